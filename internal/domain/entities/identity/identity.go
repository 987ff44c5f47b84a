// Package identity defines visitor and session identifiers and the storage contract
// they are persisted through.
package identity

import "time"

// Storage keys. Visitor keys live in durable storage, session keys in per-tab storage.
const (
	VisitorKey      = "sg_visitor_id"
	SessionKey      = "sg_session_id"
	SessionStartKey = "sg_session_start"
	ProactiveKey    = "sg_proactive_shown"
)

// Id prefixes.
const (
	VisitorPrefix = "vis_"
	SessionPrefix = "ses_"
)

// KeyValueStore is one storage scope: durable (visitor) or volatile (session).
type KeyValueStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Session is the resolved session identity for one page load.
type Session struct {
	ID        string    `json:"sessionId"`
	StartedAt time.Time `json:"startedAt"`
	// IsNew is true when the id was created during this page load.
	IsNew bool `json:"isNew"`
	// Ephemeral is true when storage failed and the id only lives in memory.
	Ephemeral bool `json:"ephemeral"`
}

// Visitor is the resolved durable visitor identity.
type Visitor struct {
	ID        string `json:"visitorId"`
	Ephemeral bool   `json:"ephemeral"`
}

// Duration returns the session length at now, never negative.
func (s Session) Duration(now time.Time) time.Duration {
	if s.StartedAt.IsZero() || now.Before(s.StartedAt) {
		return 0
	}
	return now.Sub(s.StartedAt)
}
