package domain

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks that email is present and well-formed.
func ValidateEmail(email string) error {
	if email == "" {
		return &ErrValidation{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return &ErrValidation{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateCommissionRate checks that a percentage lies in [0, 100].
func ValidateCommissionRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return &ErrValidation{Field: "commission_rate", Message: "commission rate must be between 0 and 100"}
	}
	return nil
}

// ValidateRequired checks that a trimmed string field is non-empty.
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ErrValidation{Field: field, Message: field + " is required"}
	}
	return nil
}
