package detector

import (
	"errors"
	"testing"

	lingua "github.com/pemistahl/lingua-go"
)

func TestDetector_Detect(t *testing.T) {
	d := New()

	tests := []struct {
		name     string
		text     string
		wantCode string
		wantErr  bool
	}{
		{
			name:    "empty text",
			text:    "",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			text:    "  \n\t ",
			wantErr: true,
		},
		{
			name:     "english text",
			text:     "Hello, this is a test in English.",
			wantCode: "en",
		},
		{
			name:     "khmer text",
			text:     "សួស្តី នេះគឺជាការសាកល្បងជាភាសាខ្មែរ។",
			wantCode: "km",
		},
		{
			name:     "khmer with latin acronym",
			text:     "ក្រសួងសុខាភិបាល WHO បានប្រកាសថ្ងៃនេះ",
			wantCode: "km",
		},
		{
			name:     "french text",
			text:     "Bonjour, ceci est un test en français.",
			wantCode: "fr",
		},
		{
			name:     "german text",
			text:     "Hallo, das ist ein Test auf Deutsch.",
			wantCode: "de",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := d.Detect(tt.text)
			if tt.wantErr {
				if !errors.Is(err, ErrUndetermined) {
					t.Errorf("Detect(%q) error = %v, want ErrUndetermined", tt.text, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Detect(%q) unexpected error: %v", tt.text, err)
			}
			if code != tt.wantCode {
				t.Errorf("Detect(%q) = %q, want %q", tt.text, code, tt.wantCode)
			}
		})
	}
}

func TestDetector_NewFor(t *testing.T) {
	d := NewFor(lingua.English, lingua.French)

	tests := []struct {
		text string
		want string
	}{
		{"Hello, this is a test in English.", "en"},
		{"Bonjour, ceci est un test en français.", "fr"},
		{"សួស្តី", "km"},
	}
	for _, tt := range tests {
		if code, err := d.Detect(tt.text); err != nil || code != tt.want {
			t.Errorf("Detect(%q) = %q, %v; want %q", tt.text, code, err, tt.want)
		}
	}
}

func TestLanguages(t *testing.T) {
	tests := []struct {
		name    string
		codes   []string
		want    []lingua.Language
		wantErr bool
	}{
		{name: "english and french", codes: []string{"en", "FR"}, want: []lingua.Language{lingua.English, lingua.French}},
		{name: "khmer skipped", codes: []string{"en", "km", "th"}, want: []lingua.Language{lingua.English, lingua.Thai}},
		{name: "unknown code", codes: []string{"en", "xx"}, wantErr: true},
		{name: "too few", codes: []string{"en", "km"}, wantErr: true},
		{name: "empty", codes: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Languages(tt.codes)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("language %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestIsKhmer(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"", false},
		{"12345 !?", false},
		{"Hello world", false},
		{"សួស្តី", true},
		{"សួស្តី world", true},
		{"Hello world and everyone else ស", false},
	}
	for _, tt := range tests {
		if got := IsKhmer(tt.text); got != tt.want {
			t.Errorf("IsKhmer(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestDetector_ShortText(t *testing.T) {
	d := New()

	code, err := d.Detect("Hi")
	// Short text may or may not be detected, just check it doesn't panic
	_ = code
	_ = err
}
