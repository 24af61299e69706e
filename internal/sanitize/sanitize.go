// Package sanitize validates and normalizes untrusted upstream field values
// before they reach storage. Every function rejects bad input with a typed
// error instead of silently coercing it.
package sanitize

import (
	"fmt"
	"html"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// ValidationError reports a rejected field value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

const maxIDLength = 255

var (
	idPattern    = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

	stripPolicy = bluemonday.StrictPolicy()
	richPolicy  = newRichPolicy()
)

func newRichPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "p", "br", "ul", "ol", "li")
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	return p
}

// ID accepts upstream identifiers: [A-Za-z0-9_-]+, at most 255 characters.
func ID(s string) (string, error) {
	if s == "" {
		return "", &ValidationError{Field: "id", Reason: "empty"}
	}
	if len(s) > maxIDLength {
		return "", &ValidationError{Field: "id", Reason: "too long"}
	}
	if !idPattern.MatchString(s) {
		return "", &ValidationError{Field: "id", Reason: "contains disallowed characters"}
	}
	return s, nil
}

// PlainText strips all markup, trims whitespace and enforces maxLen runes.
func PlainText(s string, maxLen int) (string, error) {
	out := strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(s)))
	if maxLen > 0 && utf8.RuneCountInString(out) > maxLen {
		return "", &ValidationError{Field: "text", Reason: fmt.Sprintf("longer than %d characters", maxLen)}
	}
	return out, nil
}

// RichText strips markup down to a small allow-list of inline and structural
// tags, dropping every attribute except link targets.
func RichText(s string) string {
	return strings.TrimSpace(richPolicy.Sanitize(s))
}

// Color accepts 3- or 6-digit hex colors with a leading '#', lowercased.
func Color(s string) (string, error) {
	if !colorPattern.MatchString(s) {
		return "", &ValidationError{Field: "color", Reason: "not a hex color"}
	}
	return strings.ToLower(s), nil
}

// ISODate parses a calendar date. Empty input is nil, not an error; malformed
// input is always an error.
func ISODate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, &ValidationError{Field: "date", Reason: "not a valid calendar date"}
}

// Timestamp parses a required RFC3339 timestamp.
func Timestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "timestamp", Reason: "not a valid RFC3339 timestamp"}
	}
	return t, nil
}

// Email accepts a bare address in standard format, lowercased.
func Email(s string) (string, error) {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", &ValidationError{Field: "email", Reason: "not a valid email address"}
	}
	return strings.ToLower(s), nil
}

// fieldErr rewrites the generic field name of a leaf error so composite
// record errors name the offending field.
func fieldErr(field string, err error) error {
	if ve, ok := err.(*ValidationError); ok {
		return &ValidationError{Field: field, Reason: ve.Reason}
	}
	return err
}
