package validate

import (
	"errors"
	"regexp"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		constraints StringConstraints
		wantErr     error
		wantOutput  string
	}{
		{
			name:        "valid string within length constraints",
			input:       "Hello World",
			constraints: StringConstraints{MinLength: 5, MaxLength: 20, TrimSpace: true},
			wantOutput:  "Hello World",
		},
		{
			name:        "string too short",
			input:       "Hi",
			constraints: StringConstraints{MinLength: 5, MaxLength: 20},
			wantErr:     ErrStringTooShort,
		},
		{
			name:        "string too long",
			input:       strings.Repeat("a", 101),
			constraints: StringConstraints{MinLength: 1, MaxLength: 100},
			wantErr:     ErrStringTooLong,
		},
		{
			name:    "empty string not allowed",
			input:   "",
			wantErr: ErrEmpty,
		},
		{
			name:        "empty string allowed",
			input:       "",
			constraints: StringConstraints{AllowEmpty: true},
			wantOutput:  "",
		},
		{
			name:        "whitespace trimmed",
			input:       "  Hello  ",
			constraints: StringConstraints{TrimSpace: true},
			wantOutput:  "Hello",
		},
		{
			name:        "unicode counted by rune",
			input:       "héllo",
			constraints: StringConstraints{MaxLength: 5},
			wantOutput:  "héllo",
		},
		{
			name:        "pattern mismatch",
			input:       "abc!",
			constraints: StringConstraints{AllowedPattern: regexp.MustCompile(`^[a-z]+$`)},
			wantErr:     ErrInvalidCharacters,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := String(tt.input, tt.constraints)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("String() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("String() unexpected error = %v", err)
			}
			if got != tt.wantOutput {
				t.Errorf("String() = %q, want %q", got, tt.wantOutput)
			}
		})
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		input   string
		wantErr error
	}{
		{"hubspot", nil},
		{"project-management", nil},
		{"g2", nil},
		{"", ErrEmpty},
		{"HubSpot", ErrInvalidCharacters},
		{"-leading", ErrInvalidCharacters},
		{"trailing-", ErrInvalidCharacters},
		{"double--dash", ErrInvalidCharacters},
		{"under_score", ErrInvalidCharacters},
		{"../etc", ErrInvalidCharacters},
		{"links:tool:x", ErrInvalidCharacters},
		{strings.Repeat("a", MaxSlugLength+1), ErrStringTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Slug(tt.input)
			if tt.wantErr == nil && err != nil {
				t.Errorf("Slug(%q) unexpected error = %v", tt.input, err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Slug(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestToken(t *testing.T) {
	long := strings.Repeat("a", MaxSlugLength)
	valid := []string{
		"hubspot",
		"hubspot-vs-salesforce",
		"crm-tools-for-startups",
		long + "-vs-" + long,
	}
	for _, token := range valid {
		if _, err := Token(token); err != nil {
			t.Errorf("Token(%q) unexpected error = %v", token, err)
		}
	}

	invalid := []string{"", "a vs b", "a-vs-B", strings.Repeat("a", MaxTokenLength+1)}
	for _, token := range invalid {
		if _, err := Token(token); err == nil {
			t.Errorf("Token(%q) expected error", token)
		}
	}
}
