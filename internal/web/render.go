package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/hpungsan/daybook/internal/errors"
)

// maxJSONBody bounds request bodies that are not file uploads.
const maxJSONBody = 4 << 20

// renderJSON writes a JSON response. The status line is already sent when
// encoding fails, so the failure is only logged.
func (h *Handlers) renderJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error(r.Context(), "writing response failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
}

// renderError writes {"error": {...}} with the error's status. Errors that
// are not DaybookErrors are reported as INTERNAL without their text.
func (h *Handlers) renderError(w http.ResponseWriter, r *http.Request, err error) {
	dErr, ok := errors.As(err)
	if !ok {
		dErr = errors.NewInternal(err)
	}
	if dErr.Code == errors.ErrInternal || dErr.Code == errors.ErrRestoreFailed {
		h.log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	body := map[string]any{
		"code":    string(dErr.Code),
		"message": dErr.Message,
		"status":  dErr.Status,
	}
	if !ok {
		body["message"] = "an internal error occurred"
	}
	if dErr.Code != errors.ErrInternal && dErr.Details != nil {
		body["details"] = dErr.Details
	}
	h.renderJSON(w, r, dErr.Status, map[string]any{"error": body})
}

// decodeBody reads a JSON request body into T, rejecting unknown fields.
func decodeBody[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, errors.NewInvalidRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return v, nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
