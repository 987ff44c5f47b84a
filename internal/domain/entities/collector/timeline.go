// Package collector holds the records the sandbox collector keeps for a session.
package collector

import (
	"time"

	"github.com/siteguard/widget-go/internal/domain/entities/consent"
	"github.com/siteguard/widget-go/internal/domain/events"
)

// Message is one stored chat line.
type Message struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	SessionID      string    `json:"session_id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Text           string    `json:"message"`
	Confidence     *float64  `json:"confidence,omitempty"`
	Escalated      bool      `json:"escalated"`
	CreatedAt      time.Time `json:"created_at"`
}

// Timeline is everything recorded for one session, in arrival order per kind.
type Timeline struct {
	TenantID    string              `json:"tenant_id"`
	SessionID   string              `json:"session_id"`
	Session     *events.Session     `json:"session,omitempty"`
	PageViews   []events.PageView   `json:"pageviews"`
	PageUpdates []events.PageUpdate `json:"page_updates"`
	Events      []events.Event      `json:"events"`
	SessionEnds []events.SessionEnd `json:"session_ends"`
	Consent     *consent.Record     `json:"consent,omitempty"`
	Messages    []Message           `json:"messages"`
}

// Empty reports whether nothing was recorded for the session.
func (t *Timeline) Empty() bool {
	return t.Session == nil && len(t.PageViews) == 0 && len(t.PageUpdates) == 0 &&
		len(t.Events) == 0 && len(t.SessionEnds) == 0 && t.Consent == nil && len(t.Messages) == 0
}

// LiveRecord is one ingested record as streamed on the live feed.
type LiveRecord struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	TenantID   string    `json:"tenant_id"`
	SessionID  string    `json:"session_id"`
	Payload    any       `json:"payload"`
	ReceivedAt time.Time `json:"received_at"`
}
