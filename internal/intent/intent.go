// Package intent classifies chat messages with fixed keyword lists. All
// matching is case-insensitive substring matching.
package intent

import (
	"strings"
)

type Intent string

const (
	Greeting    Intent = "greeting"
	Smalltalk   Intent = "smalltalk"
	Confused    Intent = "confused"
	Chatty      Intent = "chatty"
	Efficient   Intent = "efficient"
	AccountPlan Intent = "account_plan"
	Unknown     Intent = "unknown"
)

// Persona describes how the user talks; it is passed to the model.
type Persona string

const (
	PersonaConfused  Persona = "confused"
	PersonaEfficient Persona = "efficient"
	PersonaChatty    Persona = "chatty"
	PersonaUnknown   Persona = "unknown"
)

// Format is the output shape the user asked for.
type Format string

const (
	FormatDetailed Format = "detailed"
	FormatShort    Format = "short"
	FormatPitch    Format = "pitch"
	FormatBullets  Format = "bullets"
)

// Condensed reports whether the format needs a summary pass.
func (f Format) Condensed() bool {
	return f == FormatShort || f == FormatPitch || f == FormatBullets
}

// Classifier interprets a raw chat message.
type Classifier interface {
	Intent(message string) Intent
	Persona(message string) Persona
	Format(message string) Format
	// Company returns a well-known company mentioned anywhere in message.
	Company(message string) (string, bool)
}

// chattyWordLimit is the word count above which a message is chatty
// regardless of content.
const chattyWordLimit = 12

var (
	confusedPhrases  = []string{"i don't know", "not sure", "help me figure", "no idea"}
	greetingWords    = []string{"hello", "hi", "hey", "hlo"}
	smalltalkPhrases = []string{"who are you", "how are you", "what's up"}
	efficientWords   = []string{"short", "brief", "quick", "tl;dr"}
	planTriggers     = []string{"account plan", "create", "generate", "research"}

	personaConfused  = []string{"don't know", "not sure", "help me", "i'm confused", "what should"}
	personaEfficient = []string{"short", "quick", "tl;dr", "summary", "brief"}
	personaChatty    = []string{"story", "so anyway", "by the way", "btw"}

	formatPitch   = []string{"pitch", "investor", "one-pager"}
	formatShort   = []string{"short", "brief", "summary", "tl;dr"}
	formatBullets = []string{"bullet", "bullets", "list"}

	knownCompanies = []string{"openai", "zoom", "tesla", "meta", "google", "nvidia", "microsoft"}
)

// Keywords is the default Classifier.
type Keywords struct{}

func (Keywords) Intent(message string) Intent {
	msg := strings.ToLower(strings.TrimSpace(message))
	switch {
	case len(strings.Fields(msg)) > chattyWordLimit:
		return Chatty
	case containsAny(msg, confusedPhrases):
		return Confused
	case containsAny(msg, greetingWords):
		return Greeting
	case containsAny(msg, smalltalkPhrases):
		return Smalltalk
	case containsAny(msg, efficientWords):
		return Efficient
	case containsAny(msg, planTriggers):
		return AccountPlan
	default:
		return Unknown
	}
}

func (Keywords) Persona(message string) Persona {
	msg := strings.ToLower(message)
	switch {
	case containsAny(msg, personaConfused):
		return PersonaConfused
	case containsAny(msg, personaEfficient):
		return PersonaEfficient
	case len(strings.Fields(msg)) > 30 || containsAny(msg, personaChatty):
		return PersonaChatty
	default:
		return PersonaUnknown
	}
}

func (Keywords) Format(message string) Format {
	msg := strings.ToLower(message)
	switch {
	case containsAny(msg, formatPitch):
		return FormatPitch
	case containsAny(msg, formatShort):
		return FormatShort
	case containsAny(msg, formatBullets):
		return FormatBullets
	default:
		return FormatDetailed
	}
}

func (Keywords) Company(message string) (string, bool) {
	msg := strings.ToLower(message)
	for _, c := range knownCompanies {
		if strings.Contains(msg, c) {
			return strings.ToUpper(c[:1]) + c[1:], true
		}
	}
	return "", false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
