package observability

import (
	"net/url"
	"path"
	"strings"
)

// maskMiddle keeps the first keep and last tail characters of s.
func maskMiddle(s string, keep, tail int) string {
	r := []rune(s)
	if len(r) <= keep+tail {
		return s
	}
	return string(r[:keep]) + strings.Repeat("*", len(r)-keep-tail) + string(r[len(r)-tail:])
}

// MaskEmail hides the local part of an address: "tania@x.com" -> "t***a@x.com".
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}
	return maskMiddle(local, 1, 1) + "@" + domain
}

// MaskPhone keeps the area code and the last two digits.
func MaskPhone(phone string) string {
	digits := make([]rune, 0, len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 8 {
		return phone
	}
	return maskMiddle(string(digits), 2, 2)
}

// MaskURL reduces a file URL to its base name.
func MaskURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return "[masked url]"
	}
	return "[file: " + path.Base(u.Path) + "]"
}

// MaskID shortens a UUID to its first and last four characters.
func MaskID(id string) string {
	if len(id) != 36 {
		return id
	}
	return id[:4] + "..." + id[len(id)-4:]
}

// MaskName keeps the initial of each word.
func MaskName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = maskMiddle(w, 1, 0)
	}
	return strings.Join(words, " ")
}
