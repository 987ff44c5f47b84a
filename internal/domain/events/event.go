// Package events provides telemetry event kinds and their wire payloads.
package events

// Kind selects the collector endpoint a telemetry record is delivered to.
type Kind string

const (
	KindSession    Kind = "session"
	KindPageView   Kind = "pageview"
	KindPageUpdate Kind = "page-update"
	KindEvent      Kind = "event"
	KindSessionEnd Kind = "session-end"
)

// Path returns the collector path for the kind.
func (k Kind) Path() string {
	return "/api/track/" + string(k)
}

// Behavioral event types carried by KindEvent records.
const (
	TypeRageClick          = "rage_click"
	TypeIdle               = "idle"
	TypeExitIntent         = "exit_intent"
	TypeFormStart          = "form_start"
	TypeFormSubmit         = "form_submit"
	TypeChatOpen           = "chat_open"
	TypeProactiveShown     = "proactive_shown"
	TypeProactiveAccepted  = "proactive_accepted"
	TypeProactiveDismissed = "proactive_dismissed"
)

// Payload is implemented by every record body. The dispatcher stamps tenant and
// session before delivery.
type Payload interface {
	Kind() Kind
	Stamp(tenantID, sessionID string)
}

// Envelope carries the fields every record shares.
type Envelope struct {
	TenantID  string `json:"tenant_id"`
	SessionID string `json:"session_id"`
}

// Stamp sets tenant and session.
func (e *Envelope) Stamp(tenantID, sessionID string) {
	e.TenantID = tenantID
	e.SessionID = sessionID
}

// Owner returns tenant and session.
func (e Envelope) Owner() (tenantID, sessionID string) {
	return e.TenantID, e.SessionID
}

// Session is posted once when a new session starts.
type Session struct {
	Envelope
	VisitorID    string `json:"visitor_id"`
	Referrer     string `json:"referrer"`
	UTMSource    string `json:"utm_source"`
	UTMMedium    string `json:"utm_medium"`
	UTMCampaign  string `json:"utm_campaign"`
	LandingPage  string `json:"landing_page"`
	DeviceType   string `json:"device_type"`
	Browser      string `json:"browser"`
	OS           string `json:"os"`
	ScreenWidth  int    `json:"screen_width"`
	ScreenHeight int    `json:"screen_height"`
	Language     string `json:"language"`
}

// Kind implements Payload.
func (*Session) Kind() Kind { return KindSession }

// PageView is posted when a logical page starts.
type PageView struct {
	Envelope
	URL   string `json:"url"`
	Path  string `json:"path"`
	Title string `json:"title"`
}

// Kind implements Payload.
func (*PageView) Kind() Kind { return KindPageView }

// PageUpdate is the periodic engagement heartbeat for the current page.
type PageUpdate struct {
	Envelope
	Path               string `json:"path"`
	TimeOnPageSeconds  int    `json:"time_on_page_seconds"`
	ScrollDepthPercent int    `json:"scroll_depth_percent"`
	Clicks             int    `json:"clicks"`
}

// Kind implements Payload.
func (*PageUpdate) Kind() Kind { return KindPageUpdate }

// Event is a discrete behavioral signal.
type Event struct {
	Envelope
	EventType string         `json:"event_type"`
	PagePath  string         `json:"page_path"`
	Value     string         `json:"value,omitempty"`
	Element   string         `json:"element,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Kind implements Payload.
func (*Event) Kind() Kind { return KindEvent }

// SessionEnd is posted synchronously on unload.
type SessionEnd struct {
	Envelope
	DurationSeconds int `json:"duration_seconds"`
}

// Kind implements Payload.
func (*SessionEnd) Kind() Kind { return KindSessionEnd }
