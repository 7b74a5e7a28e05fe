// Package inputval holds small predicates for request input.
package inputval

import (
	"strings"
	"time"

	"github.com/dalemusser/confhub/internal/app/system/apperr"
	"github.com/dalemusser/waffle/pantry/validate"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IsValidEmail is waffle's check (an "@" followed by a dotted domain)
// narrowed to a bare addr-spec with no stray dots.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if !validate.SimpleEmailValid(s) {
		return false
	}
	if len(s) > 254 || strings.ContainsAny(s, " \t\r\n<>\"(),;:\\[]") {
		return false
	}
	local, domain, ok := strings.Cut(s, "@")
	if !ok || strings.Contains(domain, "@") {
		return false
	}
	return validDotted(local) && validDotted(domain)
}

func validDotted(s string) bool {
	if s == "" || strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") {
		return false
	}
	return !strings.Contains(s, "..")
}

// IsValidObjectID reports whether s (trimmed) is a 24-hex Mongo ObjectID.
func IsValidObjectID(s string) bool {
	return primitive.IsValidObjectID(strings.TrimSpace(s))
}

// IsValidPhone accepts digits with optional leading "+" and the usual
// separators, 6 to 20 digits in total.
func IsValidPhone(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return false
		}
	}
	return digits >= 6 && digits <= 20
}

// ParseDate accepts a calendar date ("2006-01-02") or an RFC 3339
// timestamp and returns it in UTC. Failures are validation errors on field.
func ParseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, apperr.Validation(field, "must be a date (YYYY-MM-DD)")
}

// ParseOptionalDate is ParseDate for fields that may be omitted: a blank
// value yields nil.
func ParseOptionalDate(field, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseDate(field, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
