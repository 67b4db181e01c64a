package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/tubeswipe/internal/shared"
)

// Error codes sent in the "code" field of error bodies.
const (
	codeUnauthorized = "unauthorized"
	codeBadRequest   = "bad_request"
	codeNotFound     = "not_found"
	codeUpstream     = "upstream_error"
	codeInternal     = "internal_error"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// statusFor maps domain errors to an HTTP status and error code.
// upstream is the status used for YouTube and LLM API failures.
func statusFor(err error, upstream int) (int, string) {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated),
		errors.Is(err, shared.ErrRefreshFailed),
		errors.Is(err, shared.ErrTokenExpired):
		return http.StatusUnauthorized, codeUnauthorized
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest, codeBadRequest
	case errors.Is(err, shared.ErrNotFound),
		errors.Is(err, shared.ErrVideoNotFound),
		errors.Is(err, shared.ErrPlaylistNotFound),
		errors.Is(err, shared.ErrNoContent):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, shared.ErrAPIRequest),
		errors.Is(err, shared.ErrEmptySummary),
		errors.Is(err, shared.ErrNoLLMKey):
		if upstream == http.StatusInternalServerError {
			return upstream, codeInternal
		}
		return upstream, codeUpstream
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// fail renders err as a JSON error body.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, upstream int) {
	status, code := statusFor(err, upstream)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.Logger.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, code, err.Error())
}

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", shared.ErrInvalidInput, err)
	}
	return nil
}
