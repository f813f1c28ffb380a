package command

import "testing"

func TestMatch(t *testing.T) {
	m := NewMatcher(Phrases{})

	tests := []struct {
		transcript string
		want       Kind
	}{
		{"please start over now", Clear},
		{"Clear the conversation, thanks", Clear},
		{"forget that last bit", ForgetLast},
		{"scratch that", ForgetLast},
		{"what did I say a second ago", RepeatUser},
		{"sorry, what did you say?", RepeatAssistant},
		{"SAY THAT AGAIN", RepeatAssistant},
		{"what's the weather like", None},
		{"", None},
	}

	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			if got := m.Match(tt.transcript); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.transcript, got, tt.want)
			}
		})
	}
}

func TestMatchCustomPhrases(t *testing.T) {
	m := NewMatcher(Phrases{Clear: []string{"tabula rasa"}})

	if got := m.Match("give me a tabula rasa please"); got != Clear {
		t.Errorf("custom phrase not matched, got %v", got)
	}
	// Custom clear phrases replace the defaults entirely.
	if got := m.Match("start over"); got != None {
		t.Errorf("default phrase should be replaced, got %v", got)
	}
	// Other command sets keep their defaults.
	if got := m.Match("say that again"); got != RepeatAssistant {
		t.Errorf("untouched defaults lost, got %v", got)
	}
}
