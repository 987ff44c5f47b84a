package widget

import (
	"github.com/siteguard/widget-go/internal/domain/entities/behavior"
	"github.com/siteguard/widget-go/internal/domain/entities/chat"
	"github.com/siteguard/widget-go/internal/domain/entities/consent"
	"github.com/siteguard/widget-go/internal/domain/entities/locale"
	"github.com/siteguard/widget-go/internal/domain/entities/proactive"
	"github.com/siteguard/widget-go/internal/presentation/templates"
)

// Snapshot is a read-only copy of the widget state.
type Snapshot struct {
	VisitorID      string               `json:"visitorId"`
	SessionID      string               `json:"sessionId"`
	Lang           locale.Lang          `json:"lang"`
	Path           string               `json:"path"`
	Behavior       behavior.Accumulator `json:"behavior"`
	Consent        string               `json:"consent"`
	Granting       bool                 `json:"granting"`
	Chat           string               `json:"chat"`
	InFlight       bool                 `json:"inFlight"`
	Transcript     []chat.Message       `json:"transcript"`
	ProactiveShown bool                 `json:"proactiveShown"`
	Bubble         string               `json:"bubble"`
	HTML           string               `json:"-"`

	consentState consent.State
	chatState    chat.State
	bubbleState  proactive.BubbleState
}

// ConsentState returns the consent gate state.
func (s Snapshot) ConsentState() consent.State { return s.consentState }

// ChatState returns the chat panel state.
func (s Snapshot) ChatState() chat.State { return s.chatState }

// BubbleState returns the proactive bubble state.
func (s Snapshot) BubbleState() proactive.BubbleState { return s.bubbleState }

// Snapshot returns the current state, read on the widget loop.
func (w *Widget) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := w.do(func() {
		st := &w.st
		bubble, _ := st.engine.Bubble()
		snap = Snapshot{
			VisitorID:      st.visitor.ID,
			SessionID:      st.session.ID,
			Lang:           w.lang,
			Path:           st.monitor.Page().Path,
			Behavior:       st.monitor.Snapshot(),
			Consent:        st.gate.State().String(),
			Granting:       st.gate.Granting(),
			Chat:           st.chat.State().String(),
			InFlight:       st.chat.InFlight(),
			Transcript:     st.chat.Transcript(),
			ProactiveShown: st.engine.Shown(),
			Bubble:         bubble.String(),
			HTML:           st.rendered,
			consentState:   st.gate.State(),
			chatState:      st.chat.State(),
			bubbleState:    bubble,
		}
	})
	return snap, err
}

func (w *Widget) view() templates.View {
	st := &w.st
	v := templates.View{
		Lang:           w.lang,
		Name:           w.cfg.Name,
		Color:          w.cfg.Color,
		Position:       string(w.cfg.Position),
		Open:           st.chat.IsOpen(),
		ConsentPending: st.chat.State() == chat.OpenConsentPending,
		Granting:       st.gate.Granting(),
		GrantFailed:    st.gate.GrantFailed(),
		InFlight:       st.chat.InFlight(),
		Transcript:     st.chat.Transcript(),
	}
	if message, ok := w.bubbleVisible(); ok {
		v.Bubble = &templates.BubbleView{Message: message}
	}
	return v
}

// render hands the subtree to the host when it changed.
func (w *Widget) render() {
	html, err := templates.RenderWidget(w.view())
	if err != nil {
		w.logger.Widget().Error("Widget render failed", "error", err.Error())
		return
	}
	if html == w.st.rendered {
		return
	}
	w.st.rendered = html
	w.host.Render(html)
}
