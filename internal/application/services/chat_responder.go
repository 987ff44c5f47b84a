package services

import (
	"strings"

	"github.com/siteguard/widget-go/internal/domain/entities/chat"
	"github.com/siteguard/widget-go/internal/domain/entities/locale"
	"github.com/siteguard/widget-go/internal/infrastructure/security"
)

// ChatResponder produces the sandbox's canned chat replies. Messages asking for a
// person escalate.
type ChatResponder struct {
	escalationWords []string
	answers         []cannedAnswer
}

type cannedAnswer struct {
	keywords   []string
	reply      map[locale.Lang]string
	confidence float64
}

// NewChatResponder creates a responder with the built-in answers.
func NewChatResponder() *ChatResponder {
	return &ChatResponder{
		escalationWords: []string{
			"human", "agent", "person", "someone",
			"medewerker", "mens", "iemand",
			"humain", "conseiller", "quelqu'un",
		},
		answers: []cannedAnswer{
			{
				keywords:   []string{"price", "pricing", "cost", "prijs", "kosten", "prix", "tarif"},
				confidence: 0.82,
				reply: map[locale.Lang]string{
					locale.English: "Our plans start at 29 euro per month. Would you like a quote?",
					locale.Dutch:   "Onze pakketten beginnen bij 29 euro per maand. Wilt u een offerte?",
					locale.French:  "Nos formules commencent à 29 euros par mois. Souhaitez-vous un devis ?",
				},
			},
			{
				keywords:   []string{"open", "hours", "openingstijden", "horaires"},
				confidence: 0.9,
				reply: map[locale.Lang]string{
					locale.English: "We are available Monday to Friday, 9:00 to 17:00.",
					locale.Dutch:   "We zijn bereikbaar van maandag tot vrijdag, 9:00 tot 17:00.",
					locale.French:  "Nous sommes disponibles du lundi au vendredi, de 9h00 à 17h00.",
				},
			},
		},
	}
}

// Reply answers one visitor message. lang selects the reply language.
func (r *ChatResponder) Reply(req chat.Request, lang locale.Lang) chat.Reply {
	text := strings.ToLower(req.Message)

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = "conv_" + security.GenerateULID()
	}

	if containsAny(text, r.escalationWords) {
		return chat.Reply{
			Message:        pick(escalationReply, lang),
			Confidence:     1,
			Escalated:      true,
			ConversationID: conversationID,
		}
	}

	for _, a := range r.answers {
		if containsAny(text, a.keywords) {
			return chat.Reply{
				Message:        pick(a.reply, lang),
				Confidence:     a.confidence,
				ConversationID: conversationID,
			}
		}
	}

	return chat.Reply{
		Message:        pick(fallbackReply, lang),
		Confidence:     0.35,
		ConversationID: conversationID,
	}
}

var escalationReply = map[locale.Lang]string{
	locale.English: "I'll connect you with a colleague. Someone will get back to you shortly.",
	locale.Dutch:   "Ik verbind u door met een collega. U hoort zo snel mogelijk van ons.",
	locale.French:  "Je vous mets en relation avec un collègue. Nous revenons vers vous rapidement.",
}

var fallbackReply = map[locale.Lang]string{
	locale.English: "Thanks for your message. Could you tell me a bit more?",
	locale.Dutch:   "Bedankt voor uw bericht. Kunt u iets meer vertellen?",
	locale.French:  "Merci pour votre message. Pouvez-vous m'en dire un peu plus ?",
}

func pick(m map[locale.Lang]string, lang locale.Lang) string {
	if s, ok := m[lang]; ok {
		return s
	}
	return m[locale.Default]
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
