package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrOperationInFlight = errors.New("operation already in flight for this diary")
)

// ValidationError reports caller-supplied input that is invalid before any
// request is sent to the server.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RemoteError reports a reachable server that answered with a failure, or a
// transport-level failure. The message is meant for direct display; the
// console never retries automatically.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsRemote reports whether err wraps a RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
