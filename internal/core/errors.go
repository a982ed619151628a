package core

import (
	"errors"
	"fmt"
)

// ErrBackpressure is returned by TrySend when a connection's send
// queue is full. Callers drop the frame; they never block or retry.
var ErrBackpressure = errors.New("backpressure")

// ErrConnClosed is returned by TrySend after Close. Posting to a
// closed connection is a benign race, not a failure.
var ErrConnClosed = errors.New("connection closed")

// AuthenticationError means the credential could not be resolved to an
// identity. Fatal to the connection attempt.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return "authentication failed: " + e.Reason
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// AuthorizationError means a valid identity lacks rights to a room.
// The join is refused; the connection stays alive.
type AuthorizationError struct {
	Room   string
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("not authorized for %s: %s", e.Room, e.Reason)
}

// NotFoundError references a room, element or target that does not
// currently exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}
