package chat

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/siteguard/widget-go/internal/domain/entities/consent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func chatting(t *testing.T) *Session {
	t.Helper()
	s := NewSession()
	require.True(t, s.Open(true))
	require.Equal(t, OpenChatting, s.State())
	return s
}

func TestOpenWithoutConsentWaitsForIt(t *testing.T) {
	s := NewSession()
	assert.True(t, s.Open(false))
	assert.Equal(t, OpenConsentPending, s.State())
	assert.False(t, s.Open(true), "already open")

	_, err := s.BeginSend("hi", now)
	assert.ErrorIs(t, err, ErrNotChatting)

	s.ConsentGranted()
	assert.Equal(t, OpenChatting, s.State())
}

func TestSingleFlight(t *testing.T) {
	s := chatting(t)

	text, err := s.BeginSend("  where is my order?  ", now)
	require.NoError(t, err)
	assert.Equal(t, "where is my order?", text)

	_, err = s.BeginSend("hello?", now)
	assert.ErrorIs(t, err, ErrRequestInFlight)

	s.CompleteSend(Reply{Message: "It ships today.", Confidence: 0.82, Escalated: false, ConversationID: "conv_1"}, now)
	assert.False(t, s.InFlight())
	assert.Equal(t, "conv_1", s.ConversationID())

	transcript := s.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, RoleAssistant, transcript[1].Role)
	require.NotNil(t, transcript[1].Confidence)
	assert.InDelta(t, 0.82, *transcript[1].Confidence, 1e-9)
}

func TestEmptyMessageRejected(t *testing.T) {
	s := chatting(t)
	_, err := s.BeginSend("   ", now)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.False(t, s.InFlight())
}

func TestConsentRequiredRevertsAndKeepsTranscript(t *testing.T) {
	s := chatting(t)
	_, err := s.BeginSend("first", now)
	require.NoError(t, err)
	s.CompleteSend(Reply{Message: "answer"}, now)

	_, err = s.BeginSend("second", now)
	require.NoError(t, err)
	s.FailSend(fmt.Errorf("chat request: %w", consent.ErrRequired), "error", now)

	assert.Equal(t, OpenConsentPending, s.State())
	assert.False(t, s.InFlight())
	assert.Len(t, s.Transcript(), 3, "history stays visible")
}

func TestOtherFailureRendersInlineErrorAndAllowsRetry(t *testing.T) {
	s := chatting(t)
	_, err := s.BeginSend("hello", now)
	require.NoError(t, err)

	s.FailSend(errors.New("502 bad gateway"), "Something went wrong.", now)
	assert.Equal(t, OpenChatting, s.State())

	transcript := s.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, RoleError, transcript[1].Role)
	assert.Equal(t, "Something went wrong.", transcript[1].Text)

	_, err = s.BeginSend("hello", now)
	assert.NoError(t, err)
}

func TestCloseKeepsTranscript(t *testing.T) {
	s := chatting(t)
	_, _ = s.BeginSend("hello", now)
	s.Close()
	s.CompleteSend(Reply{Message: "late reply"}, now)

	assert.Equal(t, Closed, s.State())
	assert.Len(t, s.Transcript(), 2)
	assert.True(t, s.Open(true))
}
