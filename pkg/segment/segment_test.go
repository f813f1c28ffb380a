package segment

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "abbreviation and decimal",
			in:   "Dr. Smith arrived at 3.5pm. He left.",
			want: []string{"Dr. Smith arrived at 3.5pm.", "He left."},
		},
		{
			name: "bare numeric token guarded",
			in:   "The total is 12. It increased.",
			want: []string{"The total is 12.", "It increased."},
		},
		{
			name: "simple sentences",
			in:   "Hello there. How are you? Great!",
			want: []string{"Hello there.", "How are you?", "Great!"},
		},
		{
			name: "trailing fragment",
			in:   "First sentence. And then some",
			want: []string{"First sentence.", "And then some"},
		},
		{
			name: "abbreviations mid sentence",
			in:   "Mr. and Mrs. Jones visited approx. ten times.",
			want: []string{"Mr. and Mrs. Jones visited approx. ten times."},
		},
		{
			name: "thousands separator",
			in:   "It costs 1,000. That is a lot.",
			want: []string{"It costs 1,000.", "That is a lot."},
		},
		{
			name: "decimal token guarded",
			in:   "The version is 3.14. Upgrade soon.",
			want: []string{"The version is 3.14. Upgrade soon."},
		},
		{
			name: "decimal followed by digit word",
			in:   "Pi is 3. 14 is not pi.",
			want: []string{"Pi is 3. 14 is not pi."},
		},
		{
			name: "empty input",
			in:   "   ",
			want: nil,
		},
		{
			name: "exclamation only",
			in:   "Wow!",
			want: []string{"Wow!"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanForSpeech(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips markdown emphasis",
			in:   "This is **bold** and *italic*.",
			want: "This is bold and italic.",
		},
		{
			name: "strips code fences",
			in:   "Run ```go build``` or `make`.",
			want: "Run go build or make.",
		},
		{
			name: "newlines become periods",
			in:   "line one\n\nline two\nline three",
			want: "line one. line two. line three",
		},
		{
			name: "collapses repeated periods",
			in:   "done.. . next",
			want: "done. next",
		},
		{
			name: "collapses whitespace",
			in:   "too   many    spaces",
			want: "too many spaces",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanForSpeech(tt.in); got != tt.want {
				t.Errorf("CleanForSpeech(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
