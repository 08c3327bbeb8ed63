package validation

import (
	"errors"
	"strings"
	"unicode"
)

// ErrCityEmpty is returned when city is empty or whitespace-only after trim.
var ErrCityEmpty = errors.New("city is required")

// ErrCityTooLong is returned when city length exceeds the maximum.
var ErrCityTooLong = errors.New("city too long")

// ErrCityInvalidChars is returned when city contains disallowed characters.
var ErrCityInvalidChars = errors.New("city contains invalid characters")

// ErrCountryInvalid is returned when country is not a 2-letter code.
var ErrCountryInvalid = errors.New("country must be a 2-letter code")

// ValidateCity trims the input, enforces a length bound (maxLen in runes),
// and restricts to allowed characters: letters (Unicode), digits, space,
// comma, hyphen, apostrophe, period. Returns the trimmed string or an error
// suitable for 400 INVALID_CITY responses. Normalization (e.g. lowercase)
// is left to the service layer.
func ValidateCity(input string, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	if len(r) == 0 {
		return "", ErrCityEmpty
	}
	if maxLen > 0 && len(r) > maxLen {
		return "", ErrCityTooLong
	}
	for _, c := range r {
		if !isAllowedCityRune(c) {
			return "", ErrCityInvalidChars
		}
	}
	return s, nil
}

// ValidateCountry accepts an empty string (country is optional) or exactly
// two ASCII letters, returned upper-cased.
func ValidateCountry(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", nil
	}
	if len(s) != 2 {
		return "", ErrCountryInvalid
	}
	for _, c := range s {
		if c < 'A' || (c > 'Z' && c < 'a') || c > 'z' {
			return "", ErrCountryInvalid
		}
	}
	return strings.ToUpper(s), nil
}

// isAllowedCityRune returns true for letters (Unicode), digits, space,
// comma, hyphen, apostrophe, period.
func isAllowedCityRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '\'', '.':
		return true
	}
	return false
}
