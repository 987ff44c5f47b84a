package widget

import (
	"context"
	"errors"
	"time"

	"github.com/siteguard/widget-go/internal/domain/entities/behavior"
	"github.com/siteguard/widget-go/internal/domain/entities/chat"
	"github.com/siteguard/widget-go/internal/domain/entities/consent"
	"github.com/siteguard/widget-go/internal/domain/entities/identity"
	"github.com/siteguard/widget-go/internal/domain/entities/locale"
	"github.com/siteguard/widget-go/internal/domain/entities/proactive"
	"github.com/siteguard/widget-go/internal/domain/events"
	"github.com/siteguard/widget-go/internal/infrastructure/navigation"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
)

// Page signals. Each call is queued onto the widget loop and returns immediately.

// Scroll reports the window scroll position and the document and viewport heights.
func (w *Widget) Scroll(scrollY, documentHeight, viewportHeight float64) error {
	return w.post(func() { w.st.monitor.OnScroll(scrollY, documentHeight, viewportHeight) })
}

// Click reports a document-level click.
func (w *Widget) Click(x, y int, element string) error {
	now := time.Now()
	return w.post(func() { w.st.monitor.OnClick(x, y, element, now) })
}

// MouseOut reports the pointer leaving the document at clientY.
func (w *Widget) MouseOut(clientY int) error {
	return w.post(func() { w.st.monitor.OnMouseOut(clientY) })
}

// FocusIn reports focus entering an element with tag inside formID.
func (w *Widget) FocusIn(formID, tag string) error {
	return w.post(func() { w.st.monitor.OnFocusIn(formID, tag) })
}

// Submit reports a form submission.
func (w *Widget) Submit(formID string) error {
	return w.post(func() { w.st.monitor.OnSubmit(formID) })
}

// Navigated reports an observed location. Navigation detectors call it; hosts that
// run their own detection may call it directly.
func (w *Widget) Navigated(loc navigation.Location) error {
	now := time.Now()
	return w.post(func() {
		if w.st.monitor.Navigate(behavior.PageView{URL: loc.URL, Path: loc.Path, Title: loc.Title, EnteredAt: now}) {
			w.logger.Behavior().Debug("Page view started", "path", loc.Path)
		}
	})
}

// Unload flushes the final heartbeat and the session end record, then closes the
// widget. Both records are handed to the transports before Unload returns, and the
// session end is the last record sent.
func (w *Widget) Unload() error {
	now := time.Now()
	if err := w.do(func() {
		w.st.monitor.Unload(now, w.st.session.Duration(now))
		w.st.phase = phaseClosed
		w.stopBubbleTimer()
	}); err != nil {
		return err
	}
	return w.Close()
}

// UI events.

// ToggleLauncher opens the chat panel, or closes it when open.
func (w *Widget) ToggleLauncher() error {
	return w.post(func() {
		if w.st.chat.IsOpen() {
			w.st.chat.Close()
			return
		}
		w.openChat("launcher")
	})
}

// CloseChat closes the chat panel.
func (w *Widget) CloseChat() error {
	return w.post(func() { w.st.chat.Close() })
}

// AcceptBubble handles a click on the proactive bubble body.
func (w *Widget) AcceptBubble() error {
	return w.post(func() {
		if !w.st.engine.Accept() {
			return
		}
		w.stopBubbleTimer()
		w.track(events.TypeProactiveAccepted, w.st.engine.Source())
		w.openChat("proactive")
	})
}

// DismissBubble handles a click on the bubble close control.
func (w *Widget) DismissBubble() error {
	return w.post(func() {
		if !w.st.engine.Dismiss() {
			return
		}
		w.stopBubbleTimer()
		w.track(events.TypeProactiveDismissed, w.st.engine.Source())
	})
}

// AcceptConsent records consent for AI-assisted chat.
func (w *Widget) AcceptConsent() error {
	return w.post(w.grantConsent)
}

// SendMessage sends a visitor message. It returns chat.ErrRequestInFlight while a
// previous message is awaiting its reply.
func (w *Widget) SendMessage(text string) error {
	var sendErr error
	if err := w.do(func() { sendErr = w.sendMessage(text) }); err != nil {
		return err
	}
	return sendErr
}

// loop-side flows

func (w *Widget) track(eventType, value string) {
	w.st.dispatcher.Send(&events.Event{EventType: eventType, PagePath: w.st.monitor.Page().Path, Value: value})
}

func (w *Widget) openChat(source string) {
	st := &w.st
	if !st.chat.Open(st.gate.Granted()) {
		return
	}
	w.track(events.TypeChatOpen, source)
	w.logger.Chat().Debug("Chat opened", "source", source, "state", st.chat.State().String())
	if !st.gate.Granted() {
		w.checkConsent()
	}
}

func (w *Widget) checkConsent() {
	st := &w.st
	if !st.gate.BeginCheck() {
		return
	}
	tenantID, sessionID := w.cfg.TenantID, st.session.ID
	w.async("consent check", func(ctx context.Context) func() {
		has, err := w.opts.backend.CheckConsent(ctx, tenantID, sessionID)
		return func() {
			w.st.gate.CompleteCheck(has, err)
			if err != nil {
				w.logger.WithSession(logging.ChannelConsent, tenantID, sessionID).Debug("Consent check failed", "error", err.Error())
			}
			if w.st.gate.Granted() {
				w.st.chat.ConsentGranted()
			}
		}
	})
}

func (w *Widget) grantConsent() {
	st := &w.st
	if st.chat.State() != chat.OpenConsentPending || !st.gate.BeginGrant() {
		return
	}
	record := consent.Record{
		TenantID:     w.cfg.TenantID,
		SessionID:    st.session.ID,
		Accepted:     true,
		TermsVersion: w.opts.termsVersion,
	}
	w.async("consent grant", func(ctx context.Context) func() {
		err := w.opts.backend.GrantConsent(ctx, record)
		return func() {
			w.st.gate.CompleteGrant(err)
			if err != nil {
				w.logger.WithSession(logging.ChannelConsent, record.TenantID, record.SessionID).Warn("Consent grant failed", "error", err.Error())
				return
			}
			w.st.chat.ConsentGranted()
		}
	})
}

func (w *Widget) sendMessage(text string) error {
	st := &w.st
	message, err := st.chat.BeginSend(text, time.Now())
	if err != nil {
		return err
	}
	req := chat.Request{
		TenantID:       w.cfg.TenantID,
		SessionID:      st.session.ID,
		Message:        message,
		Channel:        chat.Channel,
		ConversationID: st.chat.ConversationID(),
	}
	w.async("chat", func(ctx context.Context) func() {
		reply, err := w.opts.backend.Chat(ctx, req)
		return func() {
			now := time.Now()
			if err == nil {
				w.st.chat.CompleteSend(reply, now)
				return
			}
			logger := w.logger.WithSession(logging.ChannelChat, req.TenantID, req.SessionID)
			if errors.Is(err, consent.ErrRequired) {
				logger.Info("Consent required, returning to consent prompt")
				w.st.gate.Revoke()
			} else {
				logger.Warn("Chat request failed", "error", err.Error())
			}
			w.st.chat.FailSend(err, locale.Text(w.lang, locale.KeyChatError), now)
		}
	})
	return nil
}

// engagement adapts the widget state to the monitor's view of it.
type engagement struct {
	w *Widget
}

func (e engagement) ProactiveShown() bool { return e.w.st.engine.Shown() }
func (e engagement) ChatOpen() bool       { return e.w.st.chat.IsOpen() }

func (e engagement) TriggerProactive(trigger behavior.Trigger) {
	e.w.showProactive(trigger)
}

func (w *Widget) showProactive(trigger behavior.Trigger) {
	st := &w.st
	key := locale.KeyProactiveIdle
	if trigger == behavior.TriggerExitIntent {
		key = locale.KeyProactiveExit
	}
	if !st.engine.Trigger(locale.Text(w.lang, key), string(trigger), st.chat.IsOpen()) {
		return
	}
	st.identity.SetSessionFlag(identity.ProactiveKey)
	w.track(events.TypeProactiveShown, string(trigger))
	w.logger.Proactive().Info("Proactive prompt shown", "trigger", string(trigger), "path", st.monitor.Page().Path)

	st.bubbleTimer = time.AfterFunc(w.opts.timing.BubbleTimeout, func() {
		_ = w.post(w.expireBubble)
	})
}

func (w *Widget) expireBubble() {
	if w.st.engine.Expire() {
		w.logger.Proactive().Debug("Proactive prompt expired")
	}
	w.st.bubbleTimer = nil
}

func (w *Widget) stopBubbleTimer() {
	if w.st.bubbleTimer != nil {
		w.st.bubbleTimer.Stop()
		w.st.bubbleTimer = nil
	}
}

// bubbleVisible reports whether the bubble should be drawn.
func (w *Widget) bubbleVisible() (string, bool) {
	state, message := w.st.engine.Bubble()
	return message, state == proactive.BubbleVisible && !w.st.chat.IsOpen()
}
