package fs

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSafeFileName(t *testing.T) {
	tests := []struct {
		name  string
		title string
		ref   string
		want  string
	}{
		{"Title and Ref", "Attention Is All You Need", "vaswani2017", "Attention Is All You Need (vaswani2017).md"},
		{"Strips Invalid Characters", `Deep Learning: A <Review>? "Yes"/No`, "lecun2015", "Deep Learning A Review YesNo (lecun2015).md"},
		{"Untitled Uses Ref", "", "smith2020", "smith2020.md"},
		{"Untitled Without Ref", "", "", "untitled.md"},
		{"Reserved Name Is Prefixed", "", "CON", "_CON.md"},
		{"Trailing Dots Dropped", "Is it true...", "doe2019", "Is it true (doe2019).md"},
		{"Parentheses Dropped From Ref", "Title", "a(b)c", "Title (abc-456e64).md"},
		{"Lossy Ref Gets Hash", "Beta", "smith:2020", "Beta (smith2020-fae187).md"},
		{"Control Characters Become Spaces", "Line\none\ttwo", "x1", "Line one two (x1).md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeFileName(tt.title, tt.ref, MaxFileName)
			if got != tt.want {
				t.Errorf("SafeFileName(%q, %q) = %q, want %q", tt.title, tt.ref, got, tt.want)
			}
		})
	}
}

func TestSafeFileName_Length(t *testing.T) {
	t.Run("Truncates Long Titles", func(t *testing.T) {
		got := SafeFileName(strings.Repeat("a", 400), "ref2020", MaxFileName)
		if len(got) > MaxFileName {
			t.Errorf("expected at most %d bytes, got %d", MaxFileName, len(got))
		}
		if !strings.HasSuffix(got, " (ref2020).md") {
			t.Errorf("expected ref suffix to survive truncation, got %q", got)
		}
	})

	t.Run("Does Not Split Runes", func(t *testing.T) {
		got := SafeFileName(strings.Repeat("é", 300), "ref", MaxFileName)
		if len(got) > MaxFileName {
			t.Errorf("expected at most %d bytes, got %d", MaxFileName, len(got))
		}
		if !utf8.ValidString(got) {
			t.Errorf("expected valid UTF-8, got %q", got)
		}
	})

	t.Run("Long Ref Without Title", func(t *testing.T) {
		got := SafeFileName("", strings.Repeat("r", 300), MaxFileName)
		if len(got) > MaxFileName {
			t.Errorf("expected at most %d bytes, got %d", MaxFileName, len(got))
		}
		if !strings.HasSuffix(got, noteExt) {
			t.Errorf("expected %s extension, got %q", noteExt, got)
		}
	})

	t.Run("Is Stable", func(t *testing.T) {
		title := "Über die Grundlagen: " + strings.Repeat("x", 300)
		if SafeFileName(title, "k", 100) != SafeFileName(title, "k", 100) {
			t.Error("expected the same name for the same input")
		}
	})
}

func TestTruncateBytes(t *testing.T) {
	if got := truncateBytes("héllo", 2); got != "h" {
		t.Errorf("expected %q, got %q", "h", got)
	}
	if got := truncateBytes("hello", 10); got != "hello" {
		t.Errorf("expected %q, got %q", "hello", got)
	}
	if got := truncateBytes("hello", 0); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestSanitizeRef(t *testing.T) {
	if got := SanitizeRef("smith2020"); got != "smith2020" {
		t.Errorf("expected clean ids to be kept, got %q", got)
	}
	if a, b := SanitizeRef("smith:2020"), SanitizeRef("smith/2020"); a == b || a == "smith2020" {
		t.Errorf("expected distinct names for distinct ids, got %q and %q", a, b)
	}
	if got := SanitizeRef(""); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
