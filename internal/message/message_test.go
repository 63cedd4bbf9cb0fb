package message

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizeTrims(t *testing.T) {
	text, ok := Normalize("  hello world \n")
	if !ok {
		t.Fatal("expected message to be accepted")
	}
	if text != "hello world" {
		t.Errorf("expected %q, got %q", "hello world", text)
	}
}

func TestNormalizeDropsEmpty(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"spaces", "   "},
		{"whitespace mix", " \t\n\r "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := Normalize(tc.input); ok {
				t.Fatalf("expected %q to be dropped", tc.input)
			}
		})
	}
}

func TestNormalizeTruncatesLongText(t *testing.T) {
	input := strings.Repeat("x", 3000)

	text, ok := Normalize(input)
	if !ok {
		t.Fatal("expected message to be accepted")
	}
	if got := utf8.RuneCountInString(text); got != MaxTextRunes {
		t.Fatalf("expected %d runes after truncation, got %d", MaxTextRunes, got)
	}
}

func TestNormalizeTruncatesByRunesNotBytes(t *testing.T) {
	// 2500 multi-byte runes must truncate to exactly 2000 runes without
	// splitting a rune in the middle.
	input := strings.Repeat("é", 2500)

	text, ok := Normalize(input)
	if !ok {
		t.Fatal("expected message to be accepted")
	}
	if got := utf8.RuneCountInString(text); got != MaxTextRunes {
		t.Fatalf("expected %d runes, got %d", MaxTextRunes, got)
	}
	if !utf8.ValidString(text) {
		t.Error("truncation produced invalid UTF-8")
	}
}

func TestNormalizeKeepsShortText(t *testing.T) {
	text, ok := Normalize("hi")
	if !ok || text != "hi" {
		t.Fatalf("expected %q unchanged, got %q ok=%v", "hi", text, ok)
	}
}
