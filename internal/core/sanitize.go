// AngelaMos | 2026
// sanitize.go

package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	`"`, "&quot;",
	"'", "&#x27;",
	"<", "&lt;",
	">", "&gt;",
	"/", "&#x2F;",
	`\`, "&#x5C;",
	"`", "&#96;",
)

// Sanitize trims and HTML-escapes free text. Only strings are accepted.
func Sanitize(input any) (string, error) {
	switch v := input.(type) {
	case string:
		return SanitizeString(v), nil
	case *string:
		if v == nil {
			return "", fmt.Errorf("sanitize nil: %w", ErrInvalidInputType)
		}
		return SanitizeString(*v), nil
	default:
		return "", fmt.Errorf("sanitize %T: %w", input, ErrInvalidInputType)
	}
}

func SanitizeString(s string) string {
	return htmlEscaper.Replace(strings.TrimSpace(s))
}

// SanitizeOptional keeps absent fields absent.
func SanitizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	clean := SanitizeString(*s)
	if clean == "" {
		return nil
	}
	return &clean
}

// FieldLengthError reports a value whose escaped form no longer fits the
// column it is stored in.
type FieldLengthError struct {
	Field string
	Max   int
}

func (e *FieldLengthError) Error() string {
	return fmt.Sprintf("%s must be at most %d characters once escaped", e.Field, e.Max)
}

func (e *FieldLengthError) Unwrap() error {
	return ErrInvalidInput
}

// SanitizeBounded escapes s and checks the result against a column of max
// characters.
func SanitizeBounded(field, s string, maxLen int) (string, error) {
	clean := SanitizeString(s)
	if utf8.RuneCountInString(clean) > maxLen {
		return "", &FieldLengthError{Field: field, Max: maxLen}
	}
	return clean, nil
}

func SanitizeOptionalBounded(field string, s *string, maxLen int) (*string, error) {
	clean := SanitizeOptional(s)
	if clean != nil && utf8.RuneCountInString(*clean) > maxLen {
		return nil, &FieldLengthError{Field: field, Max: maxLen}
	}
	return clean, nil
}
