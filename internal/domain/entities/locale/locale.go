// Package locale resolves the widget language and holds its user-facing strings.
package locale

import (
	"strings"

	"golang.org/x/text/language"
)

// Lang is one of the supported widget languages.
type Lang string

const (
	Dutch   Lang = "nl"
	English Lang = "en"
	French  Lang = "fr"
)

// Default is used when nothing matches.
const Default = Dutch

var (
	supported = []language.Tag{language.Dutch, language.English, language.French}
	matcher   = language.NewMatcher(supported)
)

// Resolve picks the best supported language for the given preferences, in order.
// Preferences may be BCP 47 tags ("fr-BE") or Accept-Language style lists.
func Resolve(preferences ...string) Lang {
	var tags []language.Tag
	for _, pref := range preferences {
		pref = strings.TrimSpace(pref)
		if pref == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(pref)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return Default
	}

	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return Default
	}
	switch supported[index] {
	case language.English:
		return English
	case language.French:
		return French
	default:
		return Dutch
	}
}

// Key names a user-facing string.
type Key string

const (
	KeyProactiveIdle   Key = "proactive_idle"
	KeyProactiveExit   Key = "proactive_exit"
	KeyChatError       Key = "chat_error"
	KeyConsentPrompt   Key = "consent_prompt"
	KeyConsentAccept   Key = "consent_accept"
	KeyConsentFailed   Key = "consent_failed"
	KeyInputHint       Key = "input_hint"
	KeySend            Key = "send"
	KeyClose           Key = "close"
	KeyEscalated       Key = "escalated"
	KeyConfidence      Key = "confidence"
	KeyTyping          Key = "typing"
	KeyLauncherLabel   Key = "launcher_label"
	KeyConsentRequired Key = "consent_required"
)

var texts = map[Lang]map[Key]string{
	Dutch: {
		KeyProactiveIdle:   "Kan ik je ergens mee helpen?",
		KeyProactiveExit:   "Wacht even! Heb je nog een vraag voordat je gaat?",
		KeyChatError:       "Er ging iets mis. Probeer het opnieuw.",
		KeyConsentPrompt:   "Deze chat gebruikt AI om je vragen te beantwoorden. Ga je akkoord met de voorwaarden?",
		KeyConsentAccept:   "Akkoord",
		KeyConsentFailed:   "Je toestemming kon niet worden opgeslagen. Probeer het opnieuw.",
		KeyInputHint:       "Typ je vraag...",
		KeySend:            "Verstuur",
		KeyClose:           "Sluiten",
		KeyEscalated:       "Doorgestuurd naar een medewerker",
		KeyConfidence:      "Betrouwbaarheid",
		KeyTyping:          "Aan het typen...",
		KeyLauncherLabel:   "Open chat",
		KeyConsentRequired: "Geef eerst toestemming om verder te chatten.",
	},
	English: {
		KeyProactiveIdle:   "Can I help you with anything?",
		KeyProactiveExit:   "Wait! Do you have a question before you go?",
		KeyChatError:       "Something went wrong. Please try again.",
		KeyConsentPrompt:   "This chat uses AI to answer your questions. Do you accept the terms?",
		KeyConsentAccept:   "Accept",
		KeyConsentFailed:   "Your consent could not be saved. Please try again.",
		KeyInputHint:       "Type your question...",
		KeySend:            "Send",
		KeyClose:           "Close",
		KeyEscalated:       "Forwarded to a team member",
		KeyConfidence:      "Confidence",
		KeyTyping:          "Typing...",
		KeyLauncherLabel:   "Open chat",
		KeyConsentRequired: "Please accept the terms to continue chatting.",
	},
	French: {
		KeyProactiveIdle:   "Puis-je vous aider ?",
		KeyProactiveExit:   "Attendez ! Avez-vous une question avant de partir ?",
		KeyChatError:       "Une erreur est survenue. Veuillez réessayer.",
		KeyConsentPrompt:   "Ce chat utilise l'IA pour répondre à vos questions. Acceptez-vous les conditions ?",
		KeyConsentAccept:   "J'accepte",
		KeyConsentFailed:   "Votre consentement n'a pas pu être enregistré. Veuillez réessayer.",
		KeyInputHint:       "Tapez votre question...",
		KeySend:            "Envoyer",
		KeyClose:           "Fermer",
		KeyEscalated:       "Transmis à un collaborateur",
		KeyConfidence:      "Fiabilité",
		KeyTyping:          "En train d'écrire...",
		KeyLauncherLabel:   "Ouvrir le chat",
		KeyConsentRequired: "Veuillez accepter les conditions pour continuer.",
	},
}

// Text returns the string for key in lang, falling back to the default language.
func Text(lang Lang, key Key) string {
	if m, ok := texts[lang]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	return texts[Default][key]
}
