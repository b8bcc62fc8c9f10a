package dispatch

import (
	"errors"
	"fmt"
)

// ErrBusy means another command is still in flight. Commands are rejected,
// not queued.
var ErrBusy = errors.New("another action is still processing")

// ErrNoSession means no identity could be resolved before dispatching.
var ErrNoSession = errors.New("user not found, please login again")

// InsufficientPointsError is returned when a redemption costs more than the
// current balance. No request is attempted.
type InsufficientPointsError struct {
	Cost    int64
	Balance int64
	Deficit int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("you need %d more points to redeem this reward", e.Deficit)
}

// CommandError is a command rejected by the server. Message is user-facing:
// the server's own wording when it sent one, a generic fallback otherwise.
type CommandError struct {
	Message string
	Err     error
}

func (e *CommandError) Error() string { return e.Message }

func (e *CommandError) Unwrap() error { return e.Err }
