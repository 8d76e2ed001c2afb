package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestRateLimitMatch(t *testing.T) {
	rl := NewRateLimiter(nil, zerolog.Nop(), nil)

	cases := []struct {
		method, path string
		wantPattern  string
		wantMatch    bool
	}{
		{"POST", "/api/messages", "POST /api/messages", true},
		{"GET", "/api/conversations", "GET /api/conversations", true},
		// Sub-resources inherit the parent limit
		{"GET", "/api/conversations/1/messages", "GET /api/conversations", true},
		// Longest pattern wins over a shorter parent
		{"POST", "/api/accounts/verification", "POST /api/accounts/verification", true},
		// Segment boundary: a lookalike path is not under the pattern
		{"POST", "/api/messagesx", "", false},
		{"GET", "/health", "", false},
		{"DELETE", "/api/messages", "", false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(tc.method, tc.path, nil)
		pattern, _, ok := rl.match(r)
		if ok != tc.wantMatch {
			t.Fatalf("%s %s: match = %v, want %v", tc.method, tc.path, ok, tc.wantMatch)
		}
		if pattern != tc.wantPattern {
			t.Fatalf("%s %s: pattern = %q, want %q", tc.method, tc.path, pattern, tc.wantPattern)
		}
	}
}

func TestRateLimitWhitelist(t *testing.T) {
	rl := NewRateLimiter(nil, zerolog.Nop(), []string{"10.0.0.1", "192.168.0.0/16"})

	if !rl.isWhitelisted("10.0.0.1") {
		t.Fatal("exact IP should be whitelisted")
	}
	if !rl.isWhitelisted("192.168.5.7") {
		t.Fatal("IP inside CIDR should be whitelisted")
	}
	if rl.isWhitelisted("10.0.0.2") {
		t.Fatal("unlisted IP should not be whitelisted")
	}
}
