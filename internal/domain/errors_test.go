package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorConstants(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"ErrInvalidArgument", ErrInvalidArgument, "invalid argument"},
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrConflict", ErrConflict, "conflict"},
		{"ErrRateLimited", ErrRateLimited, "rate limited"},
		{"ErrUpstreamTimeout", ErrUpstreamTimeout, "upstream timeout"},
		{"ErrUpstreamRateLimit", ErrUpstreamRateLimit, "upstream rate limit"},
		{"ErrConfiguration", ErrConfiguration, "configuration invalid"},
		{"ErrGeneration", ErrGeneration, "generation failed"},
		{"ErrParse", ErrParse, "parse failed"},
		{"ErrValidation", ErrValidation, "validation failed"},
		{"ErrSession", ErrSession, "session state invalid"},
		{"ErrInternal", ErrInternal, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("Expected %s to be %q, got %q", tt.name, tt.expected, tt.err.Error())
			}
		})
	}
}

func TestErrorIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		target   error
		expected bool
	}{
		{"ErrGeneration is ErrGeneration", ErrGeneration, ErrGeneration, true},
		{"wrapped ErrSession is ErrSession", fmt.Errorf("op=state.Validate: %w", ErrSession), ErrSession, true},
		{"wrapped ErrGeneration is not ErrParse", fmt.Errorf("op=generator.Generate: %w", ErrGeneration), ErrParse, false},
		{"ErrNotFound is not ErrConflict", ErrNotFound, ErrConflict, false},
		{"ErrValidation is not ErrGeneration", ErrValidation, ErrGeneration, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if errors.Is(tt.err, tt.target) != tt.expected {
				t.Errorf("Expected errors.Is(%v, %v) to be %v, got %v", tt.err, tt.target, tt.expected, !tt.expected)
			}
		})
	}
}
