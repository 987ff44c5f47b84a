// Package proactive decides when to surface an unsolicited assistant prompt. The
// decision is single-shot: the first qualifying signal wins and nothing resets it for
// the rest of the session.
package proactive

// BubbleState is the lifecycle of the prompt bubble.
type BubbleState int

const (
	BubbleHidden BubbleState = iota
	BubbleVisible
	BubbleAccepted
	BubbleDismissed
	BubbleExpired
)

func (s BubbleState) String() string {
	switch s {
	case BubbleVisible:
		return "visible"
	case BubbleAccepted:
		return "accepted"
	case BubbleDismissed:
		return "dismissed"
	case BubbleExpired:
		return "expired"
	default:
		return "hidden"
	}
}

// Engine holds the shown flag and the bubble it produced.
type Engine struct {
	shown   bool
	bubble  BubbleState
	message string
	source  string
}

// NewEngine creates an engine. alreadyShown restores the flag for a session that
// displayed a prompt on an earlier page load.
func NewEngine(alreadyShown bool) *Engine {
	return &Engine{shown: alreadyShown}
}

// Shown reports whether a prompt was ever shown in this session.
func (e *Engine) Shown() bool {
	return e.shown
}

// Trigger shows message unless a prompt was already shown or the chat is open.
// It reports whether the bubble was rendered.
func (e *Engine) Trigger(message, source string, chatOpen bool) bool {
	if e.shown || chatOpen {
		return false
	}
	e.shown = true
	e.bubble = BubbleVisible
	e.message = message
	e.source = source
	return true
}

// Accept records a click on the bubble body.
func (e *Engine) Accept() bool {
	return e.settle(BubbleAccepted)
}

// Dismiss records a click on the close control.
func (e *Engine) Dismiss() bool {
	return e.settle(BubbleDismissed)
}

// Expire records the auto-dismiss timeout.
func (e *Engine) Expire() bool {
	return e.settle(BubbleExpired)
}

// Bubble returns the bubble state and message.
func (e *Engine) Bubble() (BubbleState, string) {
	return e.bubble, e.message
}

// Source returns the trigger that produced the prompt.
func (e *Engine) Source() string {
	return e.source
}

func (e *Engine) settle(to BubbleState) bool {
	if e.bubble != BubbleVisible {
		return false
	}
	e.bubble = to
	return true
}
