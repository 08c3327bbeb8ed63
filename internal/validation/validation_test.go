package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateCity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		maxLen  int
		want    string
		wantErr error
	}{
		{name: "plain", input: "Tokyo", maxLen: 100, want: "Tokyo"},
		{name: "trims whitespace", input: "  Tokyo  ", maxLen: 100, want: "Tokyo"},
		{name: "empty", input: "", maxLen: 100, wantErr: ErrCityEmpty},
		{name: "whitespace only", input: "   ", maxLen: 100, wantErr: ErrCityEmpty},
		{name: "unicode letters", input: "Zürich", maxLen: 100, want: "Zürich"},
		{name: "comma and space", input: "Washington, D.C.", maxLen: 100, want: "Washington, D.C."},
		{name: "hyphen and apostrophe", input: "Saint-Martin-d'Hères", maxLen: 100, want: "Saint-Martin-d'Hères"},
		{name: "too long", input: strings.Repeat("a", 101), maxLen: 100, wantErr: ErrCityTooLong},
		{name: "at limit", input: strings.Repeat("a", 100), maxLen: 100, want: strings.Repeat("a", 100)},
		{name: "unlimited when maxLen zero", input: strings.Repeat("a", 500), maxLen: 0, want: strings.Repeat("a", 500)},
		{name: "angle brackets", input: "<script>", maxLen: 100, wantErr: ErrCityInvalidChars},
		{name: "semicolon", input: "Tokyo;drop", maxLen: 100, wantErr: ErrCityInvalidChars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateCity(tt.input, tt.maxLen)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateCity(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateCity(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateCountry(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "empty is optional", input: "", want: ""},
		{name: "whitespace is optional", input: "  ", want: ""},
		{name: "lowercase upcased", input: "jp", want: "JP"},
		{name: "uppercase kept", input: "GB", want: "GB"},
		{name: "mixed case", input: "dE", want: "DE"},
		{name: "three letters", input: "JPN", wantErr: ErrCountryInvalid},
		{name: "one letter", input: "J", wantErr: ErrCountryInvalid},
		{name: "digits", input: "12", wantErr: ErrCountryInvalid},
		{name: "non-ascii", input: "日本", wantErr: ErrCountryInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateCountry(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateCountry(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateCountry(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
