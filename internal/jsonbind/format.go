package jsonbind

import (
	"strings"
	"time"

	"golang.org/x/text/language"
)

// DateLayout is the only accepted date form: UTC with seven fraction digits.
const DateLayout = "2006-01-02T15:04:05.0000000Z"

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses s, which must match DateLayout exactly.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatLocale renders a tag in underscore form, e.g. "en_US".
func FormatLocale(tag language.Tag) string {
	return strings.ReplaceAll(tag.String(), "-", "_")
}

// ParseLocale accepts both "en_US" and "en-US".
func ParseLocale(s string) (language.Tag, error) {
	return language.Parse(strings.ReplaceAll(s, "_", "-"))
}
