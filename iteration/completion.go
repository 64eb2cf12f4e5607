package iteration

import (
	"regexp"
	"strings"
)

// DefaultCompletionMarker is the literal substring whose presence in
// assistant text terminates the iteration loop with status Completed.
// Detection runs on the raw, pre-render assistant text.
const DefaultCompletionMarker = "<promise>COMPLETE</promise>"

// CompletionStrategy decides whether an iteration's accumulated assistant
// text satisfies the completion contract.
type CompletionStrategy interface {
	Detect(text string) bool
}

// PromiseStrategy matches a single literal substring, case-sensitive by
// default.
type PromiseStrategy struct {
	Marker          string
	CaseInsensitive bool
}

func (s PromiseStrategy) Detect(text string) bool {
	marker := s.Marker
	if marker == "" {
		marker = DefaultCompletionMarker
	}
	if s.CaseInsensitive {
		return strings.Contains(strings.ToLower(text), strings.ToLower(marker))
	}
	return strings.Contains(text, marker)
}

// AnyOfStrategy matches if any of a list of substrings is present.
type AnyOfStrategy struct {
	Markers         []string
	CaseInsensitive bool
}

func (s AnyOfStrategy) Detect(text string) bool {
	haystack := text
	if s.CaseInsensitive {
		haystack = strings.ToLower(haystack)
	}
	for _, m := range s.Markers {
		needle := m
		if s.CaseInsensitive {
			needle = strings.ToLower(needle)
		}
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

// RegexStrategy matches an unanchored, multi-line regular expression.
type RegexStrategy struct {
	Pattern *regexp.Regexp
}

func (s RegexStrategy) Detect(text string) bool {
	if s.Pattern == nil {
		return false
	}
	return s.Pattern.MatchString(text)
}

// NewRegexStrategy compiles pattern with multi-line matching enabled, and
// case-insensitivity as an opt-in.
func NewRegexStrategy(pattern string, caseInsensitive bool) (RegexStrategy, error) {
	flags := "(?m)"
	if caseInsensitive {
		flags = "(?mi)"
	}
	re, err := regexp.Compile(flags + pattern)
	if err != nil {
		return RegexStrategy{}, err
	}
	return RegexStrategy{Pattern: re}, nil
}
