package checkin

import (
	"errors"
	"fmt"
)

// FormatError reports a scanned or typed identifier that is not a
// well-formed personal code. Recoverable: the operator re-scans or
// falls back to manual entry.
type FormatError struct {
	Raw    string // the rejected input
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid code %q: %s", e.Raw, e.Reason)
}

// NotFoundError reports a well-formed code with no matching member.
// Recoverable: the operator falls back to name search.
type NotFoundError struct {
	Code string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no member with code %q", e.Code)
}

// WriteFailureError wraps a store failure during commit. The pipeline
// holds its confirmed candidate so the same commit can be retried
// without re-scanning.
type WriteFailureError struct {
	Err error
}

func (e *WriteFailureError) Error() string {
	return fmt.Sprintf("attendance write failed: %v", e.Err)
}

func (e *WriteFailureError) Unwrap() error {
	return e.Err
}

// ErrBusy is returned by Scan while a candidate is awaiting
// confirmation or a rejection is unacknowledged.
var ErrBusy = errors.New("checkin: scan already in progress")

// ErrNoCandidate is returned by Confirm and Cancel when nothing is
// awaiting confirmation.
var ErrNoCandidate = errors.New("checkin: no candidate awaiting confirmation")

// IsFormatError reports whether err is a FormatError.
// Uses errors.As to handle wrapped errors.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IsWriteFailure reports whether err is a WriteFailureError.
func IsWriteFailure(err error) bool {
	var we *WriteFailureError
	return errors.As(err, &we)
}
