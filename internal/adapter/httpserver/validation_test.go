package httpserver

import (
	"strings"
	"testing"
)

func TestValidateSessionID(t *testing.T) {
	cases := []struct {
		name     string
		id       string
		valid    bool
		wantCode string
	}{
		{"uuid", "3f2b8c1a-9d4e-4f6a-8b2c-1d3e5f7a9b0c", true, ""},
		{"short", "sess-1", true, ""},
		{"empty", "", false, "REQUIRED"},
		{"too_long", strings.Repeat("a", 101), false, "TOO_LONG"},
		{"spaces", "sess 1", false, "INVALID_FORMAT"},
		{"injection", "sess-1'; DROP TABLE", false, "INVALID_FORMAT"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ValidateSessionID(c.id)
			if got.Valid != c.valid {
				t.Fatalf("valid: got %v want %v", got.Valid, c.valid)
			}
			if !c.valid {
				if len(got.Errors) != 1 {
					t.Fatalf("expected one error, got %d", len(got.Errors))
				}
				if got.Errors[0].Code != c.wantCode {
					t.Fatalf("code: got %s want %s", got.Errors[0].Code, c.wantCode)
				}
			}
		})
	}
}
