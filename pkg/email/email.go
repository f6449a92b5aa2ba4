// Package email normalises the addresses used as candidate and staff keys.
package email

import (
	"errors"
	"net/mail"
	"strings"
	"unicode"
)

const maxLength = 254

var (
	ErrRequired = errors.New("email is required")
	ErrTooLong  = errors.New("email is too long")
	ErrInvalid  = errors.New("email is invalid")
)

// Normalize trims and lower-cases an address and rejects anything that is not
// a bare addr-spec. Display-name forms like "Siti <siti@example.com>" fail.
func Normalize(raw string) (string, error) {
	addr := strings.ToLower(strings.TrimSpace(raw))
	if addr == "" {
		return "", ErrRequired
	}
	if len(addr) > maxLength {
		return "", ErrTooLong
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		return "", ErrInvalid
	}
	return addr, nil
}

// DeriveName builds a display name from the local part, so
// "siti.rahma@example.com" becomes "Siti Rahma". Returns "" when the local
// part has no usable words.
func DeriveName(addr string) string {
	local := addr
	if at := strings.IndexByte(addr, '@'); at >= 0 {
		local = addr[:at]
	}
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+' || unicode.IsDigit(r)
	})
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
