package quiz

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/dgallion1/aicli/internal/segment"
)

// Blank replaces the hidden answer in a question.
const Blank = "____"

const (
	minSentenceWords = 5
	numDistractors   = 3
)

// ErrUnsupportedCount is returned for a question count other than 5, 10 or 20.
var ErrUnsupportedCount = errors.New("unsupported question count")

// SupportedCounts lists the question counts the CLI and API accept.
var SupportedCounts = []int{5, 10, 20}

// ParseCount validates a requested question count.
func ParseCount(n int) (int, error) {
	for _, c := range SupportedCounts {
		if n == c {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: %d (expected 5, 10 or 20)", ErrUnsupportedCount, n)
}

// MCQ is a single multiple-choice question.
type MCQ struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
}

// Answer returns the text of the correct option.
func (q MCQ) Answer() string {
	return q.Options[q.AnswerIndex]
}

// Random picks and shuffles. *rand.Rand from math/rand/v2 satisfies it.
type Random interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int                     { return rand.IntN(n) }
func (globalRandom) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// DefaultRandom uses the process-wide math/rand/v2 source.
func DefaultRandom() Random {
	return globalRandom{}
}

// NewSeeded returns a deterministic Random for reproducible quizzes.
func NewSeeded(seed uint64) Random {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Generate builds up to count questions from text. Sentences shorter than
// five words are skipped, and each correct answer is used at most once per
// call. A nil rng uses DefaultRandom.
func Generate(text string, count int, rng Random) []MCQ {
	if rng == nil {
		rng = DefaultRandom()
	}
	text = segment.Normalize(text)

	var sentences []string
	for _, s := range segment.Split(text) {
		if len(strings.Fields(s)) >= minSentenceWords {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 || count < 1 {
		return []MCQ{}
	}

	vocab := vocabulary(text)
	used := make(map[string]bool)
	mcqs := make([]MCQ, 0, min(count, len(sentences)))

	for _, sentence := range sentences {
		if len(mcqs) >= count {
			break
		}

		answer, ok := selectAnswer(sentence, used, rng)
		if !ok {
			continue
		}
		question, ok := blankOut(sentence, answer)
		if !ok {
			continue
		}

		options := append(distractors(answer, vocab), answer)
		rng.Shuffle(len(options), func(i, j int) {
			options[i], options[j] = options[j], options[i]
		})
		answerIndex := 0
		for i, o := range options {
			if o == answer {
				answerIndex = i
				break
			}
		}

		used[strings.ToLower(answer)] = true
		mcqs = append(mcqs, MCQ{
			Question:    question,
			Options:     options,
			AnswerIndex: answerIndex,
		})
	}
	return mcqs
}

// vocabulary returns the distinct content words of text in first-occurrence order.
func vocabulary(text string) []string {
	var vocab []string
	seen := make(map[string]bool)
	for _, tok := range segment.Words(text) {
		lower := strings.ToLower(tok)
		if seen[lower] || segment.Stopwords[lower] || segment.Len(lower) <= 3 {
			continue
		}
		seen[lower] = true
		vocab = append(vocab, tok)
	}
	return vocab
}

func eligible(tok string) bool {
	return segment.Len(tok) > 3 && !segment.IsStopword(tok)
}

func selectAnswer(sentence string, used map[string]bool, rng Random) (string, bool) {
	var candidates []string
	for _, tok := range segment.Words(sentence) {
		if eligible(tok) && !used[strings.ToLower(tok)] {
			candidates = append(candidates, tok)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[rng.IntN(len(candidates))], true
}

// blankOut replaces the first whole-word, case-insensitive occurrence of answer.
func blankOut(sentence, answer string) (string, bool) {
	for _, sp := range segment.WordSpans(sentence) {
		if strings.EqualFold(sp.Word, answer) {
			return sentence[:sp.Start] + Blank + sentence[sp.End:], true
		}
	}
	return sentence, false
}

func distractors(answer string, vocab []string) []string {
	out := make([]string, 0, numDistractors+1)
	seen := map[string]bool{strings.ToLower(answer): true}

	for _, tok := range vocab {
		if len(out) >= numDistractors {
			break
		}
		lower := strings.ToLower(tok)
		if seen[lower] || !eligible(tok) {
			continue
		}
		out = append(out, tok)
		seen[lower] = true
	}

	// Small documents: pad with answer-prefix placeholders like "pyt2".
	prefix := string([]rune(answer)[:min(3, segment.Len(answer))])
	for n := len(out) + 1; len(out) < numDistractors; n++ {
		synthetic := prefix + strconv.Itoa(n)
		lower := strings.ToLower(synthetic)
		if seen[lower] {
			continue
		}
		out = append(out, synthetic)
		seen[lower] = true
	}
	return out
}

// Format renders questions as numbered plain text with lettered options.
func Format(mcqs []MCQ) string {
	var b strings.Builder
	for i, q := range mcqs {
		fmt.Fprintf(&b, "Q%d. %s\n", i+1, q.Question)
		for j, opt := range q.Options {
			fmt.Fprintf(&b, "  %c. %s\n", 'A'+j, opt)
		}
		fmt.Fprintf(&b, "Answer: %c\n", 'A'+q.AnswerIndex)
		if i < len(mcqs)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
