package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kiraleos/reply-engine/internal/text"
)

const defaultMinChars = 5

type RejectionReason string

const (
	RejectEmpty                RejectionReason = "empty"
	RejectTooShort             RejectionReason = "too_short"
	RejectEcho                 RejectionReason = "echo"
	RejectTooManyWords         RejectionReason = "too_many_words"
	RejectForbiddenWord        RejectionReason = "forbidden_word"
	RejectForbiddenPunctuation RejectionReason = "forbidden_punctuation"
	RejectQuestion             RejectionReason = "question"
)

// Constraints are the acceptance rules one route applies to model output.
type Constraints struct {
	MinChars             int // defaults to 5 when zero
	MaxWords             int // zero means unbounded
	ForbiddenWords       []string
	ForbiddenPunctuation []string
	ForbidQuestion       bool
	RejectEcho           bool
}

type GenerationResult struct {
	Text            string
	Accepted        bool
	RejectionReason RejectionReason
}

// RejectionError is returned when model output fails its route's constraints.
type RejectionError struct {
	Route  string
	Reason RejectionReason
	Text   string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("generated %s output rejected: %s", e.Route, e.Reason)
}

// Validate checks already normalized model text against c. original is the
// user input the text must not repeat.
func Validate(generated, original string, c Constraints) GenerationResult {
	generated = strings.TrimSpace(generated)
	reject := func(reason RejectionReason) GenerationResult {
		return GenerationResult{Text: generated, RejectionReason: reason}
	}

	minChars := c.MinChars
	if minChars == 0 {
		minChars = defaultMinChars
	}

	if generated == "" {
		return reject(RejectEmpty)
	}
	if len([]rune(generated)) < minChars {
		return reject(RejectTooShort)
	}
	if c.RejectEcho {
		// the output went through contraction expansion, the input did not
		needle := text.Sanitize(original)
		if needle != "" && (strings.Contains(generated, needle) || strings.Contains(generated, text.ExpandContractions(needle))) {
			return reject(RejectEcho)
		}
	}
	if c.MaxWords > 0 && text.WordCount(generated) > c.MaxWords {
		return reject(RejectTooManyWords)
	}
	if containsWord(generated, c.ForbiddenWords) {
		return reject(RejectForbiddenWord)
	}
	for _, p := range c.ForbiddenPunctuation {
		if strings.Contains(generated, p) {
			return reject(RejectForbiddenPunctuation)
		}
	}
	if c.ForbidQuestion && strings.ContainsAny(generated, "?？") {
		return reject(RejectQuestion)
	}

	return GenerationResult{Text: generated, Accepted: true}
}

func containsWord(s string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	re := regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	return re.MatchString(s)
}
