package web

// errors.go answers failed requests.
//
// The technical error is logged with the request ID; the client gets the
// mapped UserMessage as an HTML alert fragment, JSON or plain text depending
// on what it asked for.

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/JonMunkholm/tablemirror/internal/logging"
	"github.com/JonMunkholm/tablemirror/internal/web/templates"
)

// ErrorResponse is the JSON body of a failed API request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError maps err, logs it and writes the response. The status comes
// from the mapped message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", msg.Status,
		"code", msg.Code,
		"error", err.Error(),
	}
	if IsUserFacing(err) {
		logger.Warn("request failed", attrs...)
	} else {
		logger.Error("request error", attrs...)
	}

	switch {
	case wantsFragment(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(msg.Status)
		if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
			logger.Error("render error alert", "error", err)
		}
	case wantsJSON(r):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(msg.Status)
		_ = json.NewEncoder(w).Encode(ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
	default:
		http.Error(w, msg.Message+" ("+msg.Code+")", msg.Status)
	}
}

// writeJSON encodes v as JSON. Encoding errors are only logged since the
// header is already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}

// wantsFragment reports whether the request is for a page fragment, whose
// failures are shown inline as an alert.
func wantsFragment(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/partials/")
}

// wantsJSON reports whether the client prefers a JSON response. API routes
// default to JSON.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
