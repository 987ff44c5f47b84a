// Package consent holds the visitor consent state machine for AI-assisted chat.
package consent

import "errors"

// ErrRequired is the distinguished "consent required" signal (HTTP 451).
var ErrRequired = errors.New("consent required")

// State is the consent gate state.
type State int

const (
	Unknown State = iota
	Checking
	Granted
	Ungranted
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case Granted:
		return "granted"
	case Ungranted:
		return "ungranted"
	default:
		return "unknown"
	}
}

// Record is what the consent service stores per tenant and session.
type Record struct {
	TenantID     string `json:"tenant_id"`
	SessionID    string `json:"session_id"`
	Accepted     bool   `json:"accepted"`
	TermsVersion string `json:"terms_version"`
}

// Gate is the client-side consent state. Only the owning widget goroutine mutates it.
type Gate struct {
	state    State
	granting bool
	failed   bool
}

// NewGate starts in Unknown.
func NewGate() *Gate {
	return &Gate{}
}

// State returns the current state.
func (g *Gate) State() State { return g.state }

// Granted reports whether chat input is unlocked.
func (g *Gate) Granted() bool { return g.state == Granted }

// Granting reports whether a grant write is in flight.
func (g *Gate) Granting() bool { return g.granting }

// GrantFailed reports whether the last grant attempt failed.
func (g *Gate) GrantFailed() bool { return g.failed }

// BeginCheck moves Unknown to Checking. It reports false when a check is pointless
// (already checking or granted).
func (g *Gate) BeginCheck() bool {
	if g.state != Unknown && g.state != Ungranted {
		return false
	}
	g.state = Checking
	return true
}

// CompleteCheck applies the outcome of a read. Anything but an explicit true leaves
// the gate Ungranted.
func (g *Gate) CompleteCheck(hasConsent bool, err error) {
	if g.state == Granted {
		return
	}
	if err == nil && hasConsent {
		g.state = Granted
		return
	}
	g.state = Ungranted
}

// BeginGrant marks a grant write in flight. It reports false when one already is, or
// consent is already granted.
func (g *Gate) BeginGrant() bool {
	if g.granting || g.state == Granted {
		return false
	}
	g.granting = true
	g.failed = false
	return true
}

// CompleteGrant applies the outcome of the write.
func (g *Gate) CompleteGrant(err error) {
	g.granting = false
	if err != nil {
		g.failed = true
		if g.state != Granted {
			g.state = Ungranted
		}
		return
	}
	g.failed = false
	g.state = Granted
}

// Revoke is applied when the server reports consent missing mid-conversation.
func (g *Gate) Revoke() {
	g.state = Ungranted
}
