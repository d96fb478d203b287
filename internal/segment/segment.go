package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Stopwords is the fixed set of English function words ignored by scoring,
// answer selection and distractor selection.
var Stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "he": true, "her": true, "his": true,
	"i": true, "in": true, "is": true, "it": true, "its": true,
	"of": true, "on": true, "or": true, "that": true, "the": true,
	"their": true, "there": true, "they": true, "this": true, "to": true,
	"was": true, "were": true, "will": true, "with": true, "you": true,
	"your": true,
}

// IsStopword reports whether word is a stopword, ignoring case.
func IsStopword(word string) bool {
	return Stopwords[strings.ToLower(word)]
}

// Normalize collapses every whitespace run to a single space and trims the ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Split normalizes text and breaks it after '.', '!' or '?' when followed by
// whitespace. The terminal punctuation stays with its sentence.
//
// Abbreviations ("Dr. Smith"), decimals and quoted punctuation are not
// special-cased: "Dr." ends a sentence.
func Split(text string) []string {
	text = Normalize(text)
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0
	for i := 0; i+1 < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			// After Normalize the only whitespace left is a single space.
			if text[i+1] == ' ' {
				if s := strings.TrimSpace(text[start : i+1]); s != "" {
					sentences = append(sentences, s)
				}
				start = i + 2
			}
		}
	}
	if start < len(text) {
		if s := strings.TrimSpace(text[start:]); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// Span is a word token with its byte offsets in the source string.
type Span struct {
	Word  string
	Start int
	End   int
}

// WordSpans returns every maximal run of word characters (letters, digits,
// underscore) in s, in order.
func WordSpans(s string) []Span {
	var spans []Span
	start := -1
	for i, r := range s {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			spans = append(spans, Span{Word: s[start:i], Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, Span{Word: s[start:], Start: start, End: len(s)})
	}
	return spans
}

// Words returns the word tokens of s in order, preserving case.
func Words(s string) []string {
	spans := WordSpans(s)
	words := make([]string, len(spans))
	for i, sp := range spans {
		words[i] = sp.Word
	}
	return words
}

// Len is the length of a token in characters, not bytes.
func Len(word string) int {
	return utf8.RuneCountInString(word)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}
