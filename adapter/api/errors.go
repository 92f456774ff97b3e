// Package api is the HTTP ingress: thin route handlers that decode
// requests, resolve the principal, invoke the core, and translate error
// kinds to statuses exactly once.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/oncall/oncall/internal/core"
)

// apiError is the JSON error body.
type apiError struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func statusForKind(kind core.Kind) int {
	switch kind {
	case core.KindBadRequest:
		return http.StatusBadRequest
	case core.KindUnauthorized:
		return http.StatusForbidden
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindConflict:
		return http.StatusUnprocessableEntity
	case core.KindUpstreamFailure:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func titleForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Invalid Request"
	case http.StatusUnauthorized:
		return "Authentication Required"
	case http.StatusForbidden:
		return "Unauthorized"
	case http.StatusNotFound:
		return "Not Found"
	case http.StatusUnprocessableEntity:
		return "Unprocessable Entity"
	default:
		return "Internal Server Error"
	}
}

// writeError translates a core error to its HTTP shape. Non-core errors
// surface as 500 with a generic body.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	description := "unexpected error"
	if coreErr, ok := core.As(err); ok {
		status = statusForKind(coreErr.Kind)
		description = coreErr.Message
	}
	if status >= 500 {
		logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, apiError{Title: titleForStatus(status), Description: description})
}

// writeJSON writes a JSON response body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response failed", "error", err)
		}
	}
}

// decodeJSON reads a request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return core.BadRequest("malformed request body")
	}
	return nil
}
