package widget

import (
	"context"

	"github.com/siteguard/widget-go/internal/domain/entities/chat"
	"github.com/siteguard/widget-go/internal/domain/entities/consent"
	"github.com/siteguard/widget-go/internal/domain/entities/identity"
	"github.com/siteguard/widget-go/internal/infrastructure/navigation"
	"github.com/siteguard/widget-go/internal/infrastructure/telemetry"
)

// Page exposes the read-only facts about the host page.
type Page interface {
	Location() navigation.Location
	Referrer() string
	UserAgent() string
	Screen() (width, height int)
	Language() string
}

// TouchScreen is implemented by hosts that can report navigator.maxTouchPoints.
type TouchScreen interface {
	MaxTouchPoints() int
}

// Renderer receives the widget subtree every time it changes.
type Renderer interface {
	Render(html string)
}

// Host is everything the widget needs from the environment it is embedded in.
type Host interface {
	Page
	Renderer
	// DurableStorage survives across sessions. SessionStorage is scoped to one tab.
	// Either may return nil when storage is unavailable.
	DurableStorage() identity.KeyValueStore
	SessionStorage() identity.KeyValueStore
	// Beacon returns nil when the host has no beacon primitive.
	Beacon() telemetry.Beacon
}

// Backend is the consent and chat API.
type Backend interface {
	CheckConsent(ctx context.Context, tenantID, sessionID string) (bool, error)
	GrantConsent(ctx context.Context, record consent.Record) error
	Chat(ctx context.Context, request chat.Request) (chat.Reply, error)
}
