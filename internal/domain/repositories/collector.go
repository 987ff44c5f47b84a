// Package repositories defines the repository interfaces for the sandbox collector.
// These repositories abstract the data persistence details, ensuring the collector
// services stay decoupled from the database.
package repositories

import (
	"time"

	"github.com/siteguard/widget-go/internal/domain/entities/collector"
	"github.com/siteguard/widget-go/internal/domain/entities/consent"
	"github.com/siteguard/widget-go/internal/domain/events"
)

type TelemetryRepository interface {
	StoreSession(record *events.Session, at time.Time) (string, error)
	StorePageView(record *events.PageView, at time.Time) (string, error)
	StorePageUpdate(record *events.PageUpdate, at time.Time) (string, error)
	StoreEvent(record *events.Event, at time.Time) (string, error)
	StoreSessionEnd(record *events.SessionEnd, at time.Time) (string, error)
	FindTimeline(tenantID, sessionID string) (*collector.Timeline, error)
}

type ConsentRepository interface {
	// Find returns nil without error when no consent was recorded.
	Find(tenantID, sessionID string) (*consent.Record, error)
	Store(record *consent.Record, at time.Time) error
}

type ChatRepository interface {
	StoreMessage(message *collector.Message) error
	FindBySession(tenantID, sessionID string) ([]collector.Message, error)
}
