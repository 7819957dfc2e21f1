package web

// error_messages.go maps errors to user-facing messages with support codes.
//
// # Error Codes Reference
//
//	EXP001 - The table has no columns to export          (422)
//	EXP002 - The export name cannot be used as a sheet   (422)
//	SRC001 - The data source could not be reached        (502)
//	COL001 - The column no longer exists                 (404)
//	REQ001 - The request was malformed                   (400)
//	RATE001 - Too many requests                          (429)
//	SRV001 - The refresh loop is not running             (503)
//	ERR000 - Anything else                               (500)

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/tablemirror/internal/core"
	"github.com/JonMunkholm/tablemirror/internal/export"
)

var (
	errBadRequest  = errors.New("bad request")
	errRateLimited = errors.New("rate limit exceeded")
)

// badRequest wraps a client error so it maps to REQ001.
func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// UserMessage is what the browser shows for a failed request.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
	Status  int    // HTTP status
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
	Status:  http.StatusInternalServerError,
}

// MapError converts an error to a UserMessage. Unknown errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var invalidSheet *export.InvalidSheetNameError
	var transport *core.TransportError

	switch {
	case errors.Is(err, export.ErrEmptyTable):
		return UserMessage{
			Message: "The table has no columns to export",
			Action:  "Wait for data to load, then export again",
			Code:    "EXP001",
			Status:  http.StatusUnprocessableEntity,
		}
	case errors.As(err, &invalidSheet):
		return UserMessage{
			Message: fmt.Sprintf("%q cannot be used as a sheet name", invalidSheet.Name),
			Action:  "Choose a name with letters or digits, up to 31 characters",
			Code:    "EXP002",
			Status:  http.StatusUnprocessableEntity,
		}
	case errors.As(err, &transport):
		return UserMessage{
			Message: "The data source could not be reached",
			Action:  "Please try again in a few moments",
			Code:    "SRC001",
			Status:  http.StatusBadGateway,
		}
	case errors.Is(err, core.ErrColumnOutOfRange):
		return UserMessage{
			Message: "That column no longer exists",
			Action:  "Reload the table and try again",
			Code:    "COL001",
			Status:  http.StatusNotFound,
		}
	case errors.Is(err, errBadRequest), errors.Is(err, core.ErrUnknownSignal):
		return UserMessage{
			Message: "The request could not be understood",
			Action:  "Check the request parameters",
			Code:    "REQ001",
			Status:  http.StatusBadRequest,
		}
	case errors.Is(err, errRateLimited):
		return UserMessage{
			Message: "Too many requests",
			Action:  "Wait a minute before trying again",
			Code:    "RATE001",
			Status:  http.StatusTooManyRequests,
		}
	case errors.Is(err, core.ErrStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return UserMessage{
			Message: "The table is not available right now",
			Action:  "Please try again in a few moments",
			Code:    "SRV001",
			Status:  http.StatusServiceUnavailable,
		}
	}

	return defaultMessage
}

// IsUserFacing reports whether err maps to a specific message rather than
// the generic fallback.
func IsUserFacing(err error) bool {
	return MapError(err).Code != defaultMessage.Code
}
