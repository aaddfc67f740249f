package downloads

import (
	"errors"
	"fmt"
)

// ErrUnknownJob is returned by control operations on nonexistent ids.
var ErrUnknownJob = errors.New("job not found")

// ErrPlaylistMismatch is returned when the URL resolves to a playlist but
// the request did not opt in to playlist handling.
var ErrPlaylistMismatch = errors.New("URL is a playlist. Please set 'is_playlist' to download.")

// RequestError marks a submission rejected for client-side reasons, letting
// the delivery layer distinguish bad requests from engine failures.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// AdmissionError reports a resource-limit rejection at job start.
type AdmissionError struct {
	Reason string
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("insufficient resources: %s", e.Reason)
}

// ConfigurationError reports an invalid format/quality combination, caught
// at resolution time, never at execution time.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Detail)
}

// TransientError marks a fetch failure as retryable (network or extraction
// hiccup). Anything not wrapped in it is terminal.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is classified as retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
