package privilege

import (
	"errors"
	"fmt"
)

// ErrNoAccount means the member has no registered account and cannot
// carry a grant.
var ErrNoAccount = errors.New("member has no registered account")

// ErrUnknownMember means the member id resolves to nothing.
var ErrUnknownMember = errors.New("unknown member")

// ConflictError is returned when a grant is requested for a member who
// already holds a live one.
type ConflictError struct {
	MemberID   string
	ExistingID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("member %s already holds live assignment %s", e.MemberID, e.ExistingID)
}

// CredentialMismatchError is returned by Activate when the presented
// username/password pair does not exactly match the live assignment.
type CredentialMismatchError struct {
	Email string
}

func (e *CredentialMismatchError) Error() string {
	return fmt.Sprintf("credentials do not match the live assignment for %s", e.Email)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsCredentialMismatch reports whether err is a CredentialMismatchError.
func IsCredentialMismatch(err error) bool {
	var ce *CredentialMismatchError
	return errors.As(err, &ce)
}
