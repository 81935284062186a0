// Package text holds the pure string helpers shared by prompt rendering and
// response cleanup.
package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Contractions maps each supported contraction (straight apostrophe, lower case)
// to its full form.
var Contractions = map[string]string{
	"isn't":     "is not",
	"aren't":    "are not",
	"wasn't":    "was not",
	"weren't":   "were not",
	"don't":     "do not",
	"doesn't":   "does not",
	"didn't":    "did not",
	"can't":     "cannot",
	"couldn't":  "could not",
	"won't":     "will not",
	"wouldn't":  "would not",
	"shouldn't": "should not",
	"haven't":   "have not",
	"hasn't":    "has not",
	"hadn't":    "had not",
	"i'm":       "I am",
	"you're":    "you are",
	"we're":     "we are",
	"they're":   "they are",
	"he's":      "he is",
	"she's":     "she is",
	"it's":      "it is",
	"that's":    "that is",
	"there's":   "there is",
	"what's":    "what is",
	"let's":     "let us",
	"i've":      "I have",
	"you've":    "you have",
	"we've":     "we have",
	"they've":   "they have",
	"i'll":      "I will",
	"you'll":    "you will",
	"we'll":     "we will",
	"they'll":   "they will",
	"i'd":       "I would",
	"you'd":     "you would",
	"we'd":      "we would",
	"they'd":    "they would",
}

type contraction struct {
	pattern  *regexp.Regexp
	expanded string
}

var contractionPatterns = compileContractions()

func compileContractions() []contraction {
	out := make([]contraction, 0, len(Contractions))
	for short, full := range Contractions {
		// accept both the straight and the typographic apostrophe
		expr := regexp.QuoteMeta(short)
		expr = strings.ReplaceAll(expr, "'", "['’]")
		out = append(out, contraction{
			pattern:  regexp.MustCompile(`(?i)\b` + expr + `\b`),
			expanded: full,
		})
	}
	return out
}

// Sanitize drops double quotes and collapses every whitespace run, newlines
// included, into one space.
func Sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '"', '“', '”':
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// ExpandContractions rewrites dictionary contractions into their full form.
// Matches are whole-word and case-insensitive; a match that starts with a capital
// letter keeps it.
func ExpandContractions(s string) string {
	if s == "" {
		return s
	}
	for _, c := range contractionPatterns {
		s = c.pattern.ReplaceAllStringFunc(s, func(match string) string {
			first, _ := utf8.DecodeRuneInString(match)
			if unicode.IsUpper(first) {
				return capitalize(c.expanded)
			}
			return c.expanded
		})
	}
	return s
}

// WordCount counts whitespace separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
