package vmapi

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrUnresolvableImage matches every UnresolvableImageError via errors.Is.
var ErrUnresolvableImage = errors.New("unresolvable image")

// UnresolvableImageError reports a record whose primary image could not be
// determined. It is a property of the record and is never retried.
type UnresolvableImageError struct {
	UUID   uuid.UUID
	Reason string
}

// Error implements the error interface.
func (e *UnresolvableImageError) Error() string {
	return fmt.Sprintf("vm %s: %s: %s", e.UUID, ErrUnresolvableImage, e.Reason)
}

// Is reports whether target is ErrUnresolvableImage.
func (e *UnresolvableImageError) Is(target error) bool {
	return target == ErrUnresolvableImage
}

// TransportError wraps a failure talking to VMAPI. It is surfaced unchanged;
// nothing in this module retries it.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	msg := fmt.Sprintf("vmapi %s %s", e.Op, e.URL)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}
