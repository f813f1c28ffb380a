// Package segment splits streaming reply text into speakable sentences.
//
// The splitter is deliberately simple: it scans whitespace-separated
// tokens and treats trailing . ! ? as a boundary unless the token is a
// known abbreviation or a decimal number. It is tuned for
// text-to-speech chunking, not linguistic correctness.
package segment

import (
	"regexp"
	"strings"
)

// abbreviations whose trailing period is not a sentence boundary.
var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "sr": {}, "jr": {},
	"st": {}, "ave": {}, "inc": {}, "ltd": {}, "corp": {}, "dept": {},
	"est": {}, "approx": {}, "etc": {}, "vs": {}, "fig": {}, "vol": {},
	"no": {}, "jan": {}, "feb": {}, "mar": {}, "apr": {}, "jun": {},
	"jul": {}, "aug": {}, "sep": {}, "oct": {}, "nov": {}, "dec": {},
}

var (
	multiPeriod = regexp.MustCompile(`\.(\s*\.)+`)
	multiSpace  = regexp.MustCompile(`\s{2,}`)
)

// Split breaks text into sentences on . ! ? boundaries.
//
// Exceptions, applied in order for a period-terminated token:
//   - the stripped, lower-cased token is a known abbreviation;
//   - the next token starts with a digit (decimal guard, "3.5pm");
//   - the stripped token is a decimal number with an internal period
//     ("3.14."). A bare integer ("12." or "1,000.") ends the sentence.
//
// The trailing words after the last boundary form the final sentence.
func Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var sentences []string
	var current []string
	words := strings.Fields(text)

	for i, word := range words {
		current = append(current, word)

		last := word[len(word)-1]
		if last != '.' && last != '!' && last != '?' {
			continue
		}

		base := strings.ToLower(strings.TrimRight(word, ".!?"))
		if _, ok := abbreviations[base]; ok {
			continue
		}

		if last == '.' {
			if i+1 < len(words) && startsWithDigit(words[i+1]) {
				continue
			}
			if isDecimalToken(base) {
				continue
			}
		}

		if s := strings.TrimSpace(strings.Join(current, " ")); s != "" {
			sentences = append(sentences, s)
		}
		current = current[:0]
	}

	if len(current) > 0 {
		if s := strings.TrimSpace(strings.Join(current, " ")); s != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}

// CleanForSpeech strips markdown decoration so the synthesizer does not
// read formatting characters aloud.
func CleanForSpeech(text string) string {
	if text == "" {
		return ""
	}
	r := strings.NewReplacer(
		"**", "", "*", "", "#", "",
		"```", "", "`", "",
	)
	text = r.Replace(text)
	text = strings.ReplaceAll(text, "\n\n", ". ")
	text = strings.ReplaceAll(text, "\n", ". ")
	text = multiPeriod.ReplaceAllString(text, ".")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func startsWithDigit(s string) bool {
	return len(s) > 0 && s[0] >= '0' && s[0] <= '9'
}

// isDecimalToken reports whether the punctuation-stripped token is a
// decimal number, made of digits, commas and periods with at least one
// internal period ("3.14", "1,234.5"). Integers do not count: a bare
// count or amount ending a sentence is a real boundary.
func isDecimalToken(s string) bool {
	hasDigit := false
	hasPoint := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '.':
			hasPoint = true
		case r == ',':
		default:
			return false
		}
	}
	return hasDigit && hasPoint
}
