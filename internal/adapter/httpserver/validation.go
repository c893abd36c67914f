package httpserver

import "regexp"

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of validating request input.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

var validIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateSessionID checks the id path parameter: session and resume ids
// are UUIDs, so anything outside a conservative charset is rejected
// before it reaches a query.
func ValidateSessionID(id string) ValidationResult {
	if id == "" {
		return ValidationResult{Valid: false, Errors: []ValidationError{{
			Field: "id", Code: "REQUIRED", Message: "session id is required",
		}}}
	}
	if len(id) > 100 {
		return ValidationResult{Valid: false, Errors: []ValidationError{{
			Field: "id", Code: "TOO_LONG", Message: "session id is too long (max 100 characters)",
		}}}
	}
	if !validIDPattern.MatchString(id) {
		return ValidationResult{Valid: false, Errors: []ValidationError{{
			Field: "id", Code: "INVALID_FORMAT", Message: "session id contains invalid characters",
		}}}
	}
	return ValidationResult{Valid: true}
}
