package handlers

import (
	"strings"
	"testing"
)

func TestIsValidPhone(t *testing.T) {
	valid := []string{"+1000", "1000", "+15551234567", "447911123456"}
	for _, p := range valid {
		if !isValidPhone(p) {
			t.Fatalf("%q should be valid", p)
		}
	}

	invalid := []string{"", "+", "123", "+12 34", "phone", "+123456789012345678"}
	for _, p := range invalid {
		if isValidPhone(p) {
			t.Fatalf("%q should be invalid", p)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	if got := sanitizeName("  Jane\tDoe\n "); got != "JaneDoe" {
		t.Fatalf("control characters not stripped: %q", got)
	}
	long := strings.Repeat("a", 150)
	if got := sanitizeName(long); len(got) != 100 {
		t.Fatalf("name not truncated: %d chars", len(got))
	}
}
