// Package httpserver contains the HTTP handlers and middleware for the
// interview API: resume ingestion, session lifecycle, answer submission
// and report retrieval. HTTP concerns stay here; the interview engine
// and its services never see a request.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Raghav-madderla/AIMI/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels to HTTP status codes in one place.
// Errors the engine absorbs into fallbacks never reach here; what does
// arrive is either caller fault (4xx) or infrastructure fault (5xx).
func writeError(w http.ResponseWriter, _ *http.Request, err error, details interface{}) {
	code := http.StatusInternalServerError
	codeStr := "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		code = http.StatusBadRequest
		codeStr = "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
		codeStr = "NOT_FOUND"
	case errors.Is(err, domain.ErrConflict):
		code = http.StatusConflict
		codeStr = "CONFLICT"
	case errors.Is(err, domain.ErrRateLimited):
		code = http.StatusTooManyRequests
		codeStr = "RATE_LIMITED"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		code = http.StatusServiceUnavailable
		codeStr = "UPSTREAM_TIMEOUT"
	case errors.Is(err, domain.ErrUpstreamRateLimit):
		code = http.StatusServiceUnavailable
		codeStr = "UPSTREAM_RATE_LIMIT"
	case errors.Is(err, domain.ErrGeneration):
		code = http.StatusServiceUnavailable
		codeStr = "GENERATION_FAILED"
	case errors.Is(err, domain.ErrConfiguration):
		code = http.StatusServiceUnavailable
		codeStr = "MISCONFIGURED"
	case errors.Is(err, domain.ErrSession):
		code = http.StatusInternalServerError
		codeStr = "SESSION_STATE"
	}
	writeJSON(w, code, errorEnvelope{Error: apiError{Code: codeStr, Message: err.Error(), Details: details}})
}
