package domain

import "strings"

const maxPhoneDigits = 11

// FormatPhone applies the national mask "(DD) DDDDD-DDDD" progressively over
// the first 11 digits found in raw. Non-digits are ignored and extra digits
// are dropped, so partial input comes back partially masked.
func FormatPhone(raw string) string {
	d := UnformatPhone(raw)
	if len(d) > maxPhoneDigits {
		d = d[:maxPhoneDigits]
	}

	switch {
	case len(d) <= 2:
		return d
	case len(d) <= 7:
		return "(" + d[:2] + ") " + d[2:]
	default:
		return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:]
	}
}

// UnformatPhone strips every non-digit character.
func UnformatPhone(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// IsValidPhone reports whether s carries 10 or 11 digits (with or without
// the leading mobile 9).
func IsValidPhone(s string) bool {
	n := len(UnformatPhone(s))
	return n >= 10 && n <= maxPhoneDigits
}

// DisplayPhone formats a stored phone for display. Values too short to be a
// phone number are returned untouched.
func DisplayPhone(s string) string {
	if s == "" {
		return ""
	}
	if len(UnformatPhone(s)) < 10 {
		return s
	}
	return FormatPhone(s)
}
