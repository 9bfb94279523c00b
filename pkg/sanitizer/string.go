package sanitizer

import (
	"strings"
	"time"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

func NormalizeEmail(email string) string {
	return Pipeline{strings.TrimSpace, strings.ToLower}.Apply(email)
}

// NormalizeClock pads "9:05" to "09:05". Values that are not a clock time are
// only trimmed, so validation can still reject them.
func NormalizeClock(clock string) string {
	clock = strings.TrimSpace(clock)
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return clock
	}
	return t.Format("15:04")
}

func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}
