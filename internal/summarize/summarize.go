package summarize

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dgallion1/aicli/internal/segment"
)

// ErrUnsupportedLength is returned for a summary length outside short/medium/long.
var ErrUnsupportedLength = errors.New("unsupported summary length")

// Length is a named summary size.
type Length string

const (
	Short  Length = "short"
	Medium Length = "medium"
	Long   Length = "long"
)

var sentenceBudget = map[Length]int{
	Short:  3,
	Medium: 7,
	Long:   12,
}

// ParseLength validates a length name.
func ParseLength(s string) (Length, error) {
	l := Length(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := sentenceBudget[l]; !ok {
		return "", fmt.Errorf("%w: %q (expected short, medium or long)", ErrUnsupportedLength, s)
	}
	return l, nil
}

// Sentences returns the sentence budget for l, or 0 if l is unknown.
func (l Length) Sentences() int {
	return sentenceBudget[l]
}

// WithLength summarizes text using the budget of a named length.
func WithLength(text string, l Length) (string, error) {
	n, ok := sentenceBudget[l]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLength, string(l))
	}
	return Text(text, n), nil
}

type scoredSentence struct {
	score int
	index int
	text  string
}

// Text returns up to maxSentences sentences of text chosen by word-frequency
// score, in their original order. Short inputs come back whole and inputs
// without scorable words fall back to the leading sentences.
func Text(text string, maxSentences int) string {
	sentences := segment.Split(text)
	if len(sentences) == 0 || maxSentences < 1 {
		return ""
	}
	if len(sentences) <= maxSentences {
		return strings.Join(sentences, " ")
	}

	freqs := wordFrequencies(sentences)
	if len(freqs) == 0 {
		return strings.Join(sentences[:maxSentences], " ")
	}

	scored := make([]scoredSentence, len(sentences))
	for i, s := range sentences {
		score := 0
		for _, tok := range segment.Words(strings.ToLower(s)) {
			score += freqs[tok]
		}
		scored[i] = scoredSentence{score: score, index: i, text: s}
	}

	// Stable: equal scores keep document order.
	slices.SortStableFunc(scored, func(a, b scoredSentence) int {
		return b.score - a.score
	})
	top := scored[:maxSentences]
	slices.SortFunc(top, func(a, b scoredSentence) int {
		return a.index - b.index
	})

	out := make([]string, len(top))
	for i, s := range top {
		out[i] = s.text
	}
	return strings.Join(out, " ")
}

// wordFrequencies counts lowercase tokens longer than two characters that
// are not stopwords.
func wordFrequencies(sentences []string) map[string]int {
	freqs := make(map[string]int)
	for _, s := range sentences {
		for _, tok := range segment.Words(strings.ToLower(s)) {
			if segment.Stopwords[tok] || segment.Len(tok) <= 2 {
				continue
			}
			freqs[tok]++
		}
	}
	return freqs
}
