// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Lookup errors.
	ErrObligationNotFound  = errors.New("obligation not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	// Settlement precondition errors. ErrAccountRequired is recoverable:
	// callers are expected to prompt for an account and retry.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrAccountRequired        = errors.New("obligation has no linked account")

	// ErrPersistenceFailure marks a failure that occurred mid-settlement and
	// triggered compensation of already-applied steps.
	ErrPersistenceFailure = errors.New("persistence failure")

	// Validation errors.
	ErrInvalidObligation = errors.New("invalid obligation")
	ErrInvalidAccount    = errors.New("invalid account")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error whose message should be shown to the user
// verbatim.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRecoverable reports whether the caller can retry the operation with
// more input rather than treating it as a hard failure.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrAccountRequired)
}
