package server

import (
	"errors"
	"fmt"

	uuid "github.com/satori/go.uuid"
)

// Kinds of connection failures.
const (
	KindTimedOut = "timed out"
	KindReset    = "reset"
)

var (
	// ErrTimedOut matches connection errors of kind "timed out".
	ErrTimedOut = errors.New("server: timed out")

	// ErrReset matches connection errors of kind "reset".
	ErrReset = errors.New("server: connection reset")

	// ErrListenerClosed is returned by Serve when the listener was closed
	// before shutdown was signaled.
	ErrListenerClosed = errors.New("server: listener closed")
)

// ConnError is a fatal error on a single connection.
type ConnError struct {
	ID   uuid.UUID
	Peer string
	Kind string
	Op   string // operation that failed
	Err  error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("server: connection %s (%s): %s: %s: %v", e.ID, e.Peer, e.Kind, e.Op, e.Err)
}

func (e *ConnError) Unwrap() error {
	return e.Err
}

// Is matches ErrTimedOut and ErrReset by kind.
func (e *ConnError) Is(target error) bool {
	switch target {
	case ErrTimedOut:
		return e.Kind == KindTimedOut
	case ErrReset:
		return e.Kind == KindReset
	}
	return false
}

// ErrorKind returns the kind of a connection error, or "" if err is not one.
func ErrorKind(err error) string {
	var ce *ConnError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
