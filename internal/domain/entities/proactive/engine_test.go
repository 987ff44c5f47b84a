package proactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTriggerIsSingleShot(t *testing.T) {
	e := NewEngine(false)

	assert.True(t, e.Trigger("Need help?", "idle", false))
	assert.False(t, e.Trigger("Leaving already?", "exit_intent", false))

	state, msg := e.Bubble()
	assert.Equal(t, BubbleVisible, state)
	assert.Equal(t, "Need help?", msg)
	assert.Equal(t, "idle", e.Source())

	assert.True(t, e.Dismiss())
	assert.False(t, e.Trigger("again", "idle", false), "dismissal does not reset the flag")
	assert.True(t, e.Shown())
}

func TestTriggerIgnoredWhileChatOpen(t *testing.T) {
	e := NewEngine(false)
	assert.False(t, e.Trigger("Need help?", "idle", true))
	assert.False(t, e.Shown())

	state, _ := e.Bubble()
	assert.Equal(t, BubbleHidden, state)
}

func TestRestoredFlagBlocksPrompt(t *testing.T) {
	e := NewEngine(true)
	assert.False(t, e.Trigger("Need help?", "idle", false))
}

func TestBubbleSettlesOnce(t *testing.T) {
	e := NewEngine(false)
	assert.False(t, e.Accept(), "nothing to accept yet")

	e.Trigger("Need help?", "exit_intent", false)
	assert.True(t, e.Accept())
	assert.False(t, e.Expire(), "expiry after acceptance is a no-op")

	state, _ := e.Bubble()
	assert.Equal(t, BubbleAccepted, state)
	assert.Equal(t, "accepted", state.String())
}
