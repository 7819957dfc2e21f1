package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownSignal is returned when a notification names no known signal kind.
	ErrUnknownSignal = errors.New("unknown signal kind")

	// ErrColumnOutOfRange is returned by user column operations on a position
	// that does not exist in the current snapshot.
	ErrColumnOutOfRange = errors.New("column index out of range")

	// ErrStopped is returned when the orchestrator loop is no longer running.
	ErrStopped = errors.New("orchestrator stopped")
)

// TransportError reports a failed snapshot fetch or subscription.
// It is recovered locally: the cycle is skipped and no render happens.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
