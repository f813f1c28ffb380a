// Package command intercepts local voice commands in a transcript
// before any language-model call is made.
package command

import "strings"

// Kind identifies a local voice command.
type Kind int

const (
	// None means the transcript is an ordinary utterance.
	None Kind = iota

	// Clear empties the conversation memory.
	Clear

	// ForgetLast removes the most recent exchange from memory.
	ForgetLast

	// RepeatUser replays the most recent user turn.
	RepeatUser

	// RepeatAssistant replays the most recent assistant turn.
	RepeatAssistant
)

// String returns the command name for logs.
func (k Kind) String() string {
	switch k {
	case Clear:
		return "clear"
	case ForgetLast:
		return "forget_last"
	case RepeatUser:
		return "repeat_user"
	case RepeatAssistant:
		return "repeat_assistant"
	default:
		return "none"
	}
}

// Phrases maps each command to the trigger phrases matched against a
// transcript.
type Phrases struct {
	Clear           []string `yaml:"clear" json:"clear"`
	ForgetLast      []string `yaml:"forget_last" json:"forget_last"`
	RepeatUser      []string `yaml:"repeat_user" json:"repeat_user"`
	RepeatAssistant []string `yaml:"repeat_assistant" json:"repeat_assistant"`
}

// DefaultPhrases returns the built-in trigger phrases.
func DefaultPhrases() Phrases {
	return Phrases{
		Clear: []string{
			"clear the conversation", "clear conversation",
			"start over", "forget everything", "wipe the slate",
		},
		ForgetLast: []string{
			"forget that", "forget the last", "scratch that",
			"never mind that",
		},
		RepeatUser: []string{
			"what did i say", "what did i just say", "repeat my last",
		},
		RepeatAssistant: []string{
			"what did you say", "say that again", "repeat that",
			"repeat your last",
		},
	}
}

// Matcher detects voice commands by case-insensitive substring match.
type Matcher struct {
	phrases Phrases
}

// NewMatcher creates a Matcher. Empty phrase sets fall back to the
// defaults.
func NewMatcher(phrases Phrases) *Matcher {
	def := DefaultPhrases()
	if len(phrases.Clear) == 0 {
		phrases.Clear = def.Clear
	}
	if len(phrases.ForgetLast) == 0 {
		phrases.ForgetLast = def.ForgetLast
	}
	if len(phrases.RepeatUser) == 0 {
		phrases.RepeatUser = def.RepeatUser
	}
	if len(phrases.RepeatAssistant) == 0 {
		phrases.RepeatAssistant = def.RepeatAssistant
	}
	return &Matcher{phrases: phrases}
}

// Match classifies a transcript. Order matters: the more specific
// repeat commands are checked before the destructive ones so "what did
// you say" is never mistaken for anything else.
func (m *Matcher) Match(transcript string) Kind {
	text := strings.ToLower(transcript)

	if containsAny(text, m.phrases.RepeatUser) {
		return RepeatUser
	}
	if containsAny(text, m.phrases.RepeatAssistant) {
		return RepeatAssistant
	}
	if containsAny(text, m.phrases.ForgetLast) {
		return ForgetLast
	}
	if containsAny(text, m.phrases.Clear) {
		return Clear
	}
	return None
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(text, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
