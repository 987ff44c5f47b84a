// Package chat holds the chat panel state machine and transcript.
package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/siteguard/widget-go/internal/domain/entities/consent"
)

var (
	ErrRequestInFlight = errors.New("a chat request is already in flight")
	ErrNotChatting     = errors.New("chat is not accepting messages")
	ErrEmptyMessage    = errors.New("message is empty")
)

// Channel is sent with every chat request from the widget.
const Channel = "widget"

// State is the chat panel state.
type State int

const (
	Closed State = iota
	OpenConsentPending
	OpenChatting
)

func (s State) String() string {
	switch s {
	case OpenConsentPending:
		return "open_consent_pending"
	case OpenChatting:
		return "open_chatting"
	default:
		return "closed"
	}
}

// Role is who authored a transcript line.
type Role string

const (
	RoleVisitor   Role = "visitor"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
)

// Message is one transcript line.
type Message struct {
	Role       Role      `json:"role"`
	Text       string    `json:"text"`
	Confidence *float64  `json:"confidence,omitempty"`
	Escalated  bool      `json:"escalated,omitempty"`
	At         time.Time `json:"at"`
}

// Request is the body of POST /api/chat.
type Request struct {
	TenantID       string `json:"tenant_id"`
	SessionID      string `json:"session_id"`
	Message        string `json:"message"`
	Channel        string `json:"channel"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Reply is a successful chat response.
type Reply struct {
	Message        string  `json:"message"`
	Confidence     float64 `json:"confidence"`
	Escalated      bool    `json:"escalated"`
	ConversationID string  `json:"conversation_id"`
}

// Session is the chat state of one widget instance. Only the owning widget goroutine
// mutates it.
type Session struct {
	state          State
	transcript     []Message
	inFlight       bool
	conversationID string
}

// NewSession starts Closed.
func NewSession() *Session {
	return &Session{}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// IsOpen reports whether the panel is visible.
func (s *Session) IsOpen() bool { return s.state != Closed }

// InFlight reports whether a request is outstanding.
func (s *Session) InFlight() bool { return s.inFlight }

// ConversationID returns the server-assigned conversation id, if any.
func (s *Session) ConversationID() string { return s.conversationID }

// Transcript returns a copy of the rendered history.
func (s *Session) Transcript() []Message {
	out := make([]Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Open shows the panel. It reports false when the panel was already open.
func (s *Session) Open(consentGranted bool) bool {
	if s.state != Closed {
		return false
	}
	if consentGranted {
		s.state = OpenChatting
	} else {
		s.state = OpenConsentPending
	}
	return true
}

// Close hides the panel. The transcript is kept for the page load.
func (s *Session) Close() {
	s.state = Closed
}

// ConsentGranted unlocks the composer.
func (s *Session) ConsentGranted() {
	if s.state == OpenConsentPending {
		s.state = OpenChatting
	}
}

// BeginSend validates and records an outbound message, returning the trimmed text.
// Only one request may be in flight.
func (s *Session) BeginSend(text string, now time.Time) (string, error) {
	if s.state != OpenChatting {
		return "", ErrNotChatting
	}
	if s.inFlight {
		return "", ErrRequestInFlight
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	s.inFlight = true
	s.transcript = append(s.transcript, Message{Role: RoleVisitor, Text: text, At: now})
	return text, nil
}

// CompleteSend renders a successful reply.
func (s *Session) CompleteSend(reply Reply, now time.Time) {
	s.inFlight = false
	if reply.ConversationID != "" {
		s.conversationID = reply.ConversationID
	}
	confidence := reply.Confidence
	s.transcript = append(s.transcript, Message{
		Role:       RoleAssistant,
		Text:       reply.Message,
		Confidence: &confidence,
		Escalated:  reply.Escalated,
		At:         now,
	})
}

// FailSend applies a failed request. A consent-required failure sends an open panel
// back to the consent step and keeps the transcript; any other failure renders
// errorText inline and leaves the composer usable for a retry.
func (s *Session) FailSend(err error, errorText string, now time.Time) {
	s.inFlight = false
	if errors.Is(err, consent.ErrRequired) {
		if s.state != Closed {
			s.state = OpenConsentPending
		}
		return
	}
	s.transcript = append(s.transcript, Message{Role: RoleError, Text: errorText, At: now})
}
