package behavior

import (
	"strconv"
	"strings"
	"time"

	"github.com/siteguard/widget-go/internal/domain/events"
)

// Trigger identifies which heuristic asked for a proactive prompt.
type Trigger string

const (
	TriggerIdle       Trigger = "idle"
	TriggerExitIntent Trigger = "exit_intent"
)

// Sink receives telemetry records.
type Sink interface {
	Send(payload events.Payload)
}

// Engagement is the monitor's view of the proactive engine and the chat UI.
type Engagement interface {
	ProactiveShown() bool
	ChatOpen() bool
	TriggerProactive(trigger Trigger)
}

// Thresholds are the heuristic constants.
type Thresholds struct {
	RageClickWindow     time.Duration
	RageClickThreshold  int
	IdleThresholdTicks  int
	ExitIntentThreshold int
}

// DefaultThresholds returns the production constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RageClickWindow:     2 * time.Second,
		RageClickThreshold:  5,
		IdleThresholdTicks:  30,
		ExitIntentThreshold: 5,
	}
}

// Monitor observes page signals for the current page view and turns them into
// telemetry. At most one page view and one accumulator are live at a time.
type Monitor struct {
	thresholds Thresholds
	sink       Sink
	engagement Engagement

	page         PageView
	acc          *Accumulator
	trackedForms map[string]bool
	idleSent     bool
	started      bool
}

// NewMonitor creates a monitor. Call Start before feeding signals.
func NewMonitor(thresholds Thresholds, sink Sink, engagement Engagement) *Monitor {
	return &Monitor{
		thresholds:   thresholds,
		sink:         sink,
		engagement:   engagement,
		acc:          &Accumulator{},
		trackedForms: make(map[string]bool),
	}
}

// Start opens the first page view and reports it.
func (m *Monitor) Start(page PageView) {
	m.started = true
	m.beginPage(page)
}

// Page returns the live page view.
func (m *Monitor) Page() PageView {
	return m.page
}

// Snapshot returns a copy of the live accumulator.
func (m *Monitor) Snapshot() Accumulator {
	snap := *m.acc
	snap.clickLog = append([]Click(nil), m.acc.clickLog...)
	return snap
}

// OnScroll handles a scroll signal.
func (m *Monitor) OnScroll(scrollY, documentHeight, viewportHeight float64) {
	m.acc.RecordScroll(scrollY, documentHeight, viewportHeight)
}

// OnClick handles a document-level click.
func (m *Monitor) OnClick(x, y int, element string, now time.Time) {
	if !m.acc.RecordClick(Click{At: now, X: x, Y: y}, m.thresholds.RageClickWindow, m.thresholds.RageClickThreshold) {
		return
	}
	m.sink.Send(&events.Event{
		EventType: events.TypeRageClick,
		PagePath:  m.page.Path,
		Element:   element,
		Metadata: map[string]any{
			"x":      x,
			"y":      y,
			"clicks": m.thresholds.RageClickThreshold,
		},
	})
}

// OnMouseOut handles the pointer leaving toward clientY. Leaving through the top edge
// is exit intent.
func (m *Monitor) OnMouseOut(clientY int) {
	if clientY > m.thresholds.ExitIntentThreshold || m.engagement.ProactiveShown() {
		return
	}
	m.sink.Send(&events.Event{EventType: events.TypeExitIntent, PagePath: m.page.Path})
	m.engagement.TriggerProactive(TriggerExitIntent)
}

// OnFocusIn handles focus entering a form control. Only the first focus per form
// is reported.
func (m *Monitor) OnFocusIn(formID, tag string) {
	if formID == "" || !isFormControl(tag) || m.trackedForms[formID] {
		return
	}
	m.trackedForms[formID] = true
	m.sink.Send(&events.Event{EventType: events.TypeFormStart, PagePath: m.page.Path, Element: formID})
}

// OnSubmit handles a form submission.
func (m *Monitor) OnSubmit(formID string) {
	m.sink.Send(&events.Event{EventType: events.TypeFormSubmit, PagePath: m.page.Path, Element: formID})
}

// Tick advances idle time by one tick. The first tick at or past the threshold with
// no prompt shown and the chat closed reports idle and asks for a proactive prompt.
// That happens at most once per idle stretch; an interaction starts a new one.
func (m *Monitor) Tick() {
	idle := m.acc.Tick()
	if idle < m.thresholds.IdleThresholdTicks {
		m.idleSent = false
		return
	}
	if m.idleSent || m.engagement.ProactiveShown() || m.engagement.ChatOpen() {
		return
	}
	m.idleSent = true
	m.sink.Send(&events.Event{
		EventType: events.TypeIdle,
		PagePath:  m.page.Path,
		Value:     strconv.Itoa(idle),
	})
	m.engagement.TriggerProactive(TriggerIdle)
}

// Heartbeat reports engagement for the live page.
func (m *Monitor) Heartbeat(now time.Time) {
	if !m.started {
		return
	}
	m.sink.Send(&events.PageUpdate{
		Path:               m.page.Path,
		TimeOnPageSeconds:  m.page.SecondsOnPage(now),
		ScrollDepthPercent: m.acc.ScrollDepthMax,
		Clicks:             m.acc.ClickCount,
	})
}

// Navigate handles an observed location. When the path differs from the live page
// the outgoing page is flushed first, then a fresh page view starts. It reports
// whether a navigation happened.
func (m *Monitor) Navigate(page PageView) bool {
	if !m.started {
		m.Start(page)
		return true
	}
	if page.Path == m.page.Path {
		return false
	}
	m.Heartbeat(page.EnteredAt)
	m.beginPage(page)
	return true
}

// Unload sends the final heartbeat and the session end record.
func (m *Monitor) Unload(now time.Time, sessionDuration time.Duration) {
	m.Heartbeat(now)
	m.sink.Send(&events.SessionEnd{DurationSeconds: int(sessionDuration.Round(time.Second) / time.Second)})
}

func (m *Monitor) beginPage(page PageView) {
	m.page = page
	m.acc = &Accumulator{}
	m.trackedForms = make(map[string]bool)
	m.idleSent = false
	m.sink.Send(&events.PageView{URL: page.URL, Path: page.Path, Title: page.Title})
}

func isFormControl(tag string) bool {
	switch strings.ToLower(tag) {
	case "input", "textarea", "select":
		return true
	}
	return false
}
