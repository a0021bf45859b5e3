package engine

import (
	"errors"
	"fmt"
)

// BusyError is returned when an execution is requested while another is
// already in flight. The new request is rejected outright - there is no
// queueing and no retry; the caller decides whether to try again.
type BusyError struct{}

// Error implements the error interface.
func (e *BusyError) Error() string {
	return "execution already in progress"
}

// IsBusyError reports whether err is a BusyError.
// Uses errors.As to handle wrapped errors.
func IsBusyError(err error) bool {
	var be *BusyError
	return errors.As(err, &be)
}

// UndoErrorCode categorizes undo failures.
type UndoErrorCode string

const (
	// UndoErrNotFound indicates no undoable item exists for the execution.
	UndoErrNotFound UndoErrorCode = "NOT_UNDOABLE"
	// UndoErrPartial indicates reversal stopped partway through: some
	// inverse transfers were issued, the rest were not.
	UndoErrPartial UndoErrorCode = "PARTIAL_REVERSAL"
)

// UndoError is returned when an undo cannot run or cannot complete.
//
// For partial reversals the Reversed/Remaining counts let the caller
// reconcile manually: the transfers already reversed stay reversed.
type UndoError struct {
	Code        UndoErrorCode
	ExecutionID string
	Reversed    int
	Remaining   int
	Err         error
}

// Error implements the error interface.
func (e *UndoError) Error() string {
	switch e.Code {
	case UndoErrPartial:
		return fmt.Sprintf("%s: execution %s: %d transfers reversed, %d remaining: %v",
			e.Code, e.ExecutionID, e.Reversed, e.Remaining, e.Err)
	default:
		return fmt.Sprintf("%s: execution %s is not undoable", e.Code, e.ExecutionID)
	}
}

// Unwrap returns the underlying ledger error, if any.
func (e *UndoError) Unwrap() error {
	return e.Err
}

// IsUndoError reports whether err is an UndoError.
// Uses errors.As to handle wrapped errors.
func IsUndoError(err error) bool {
	var ue *UndoError
	return errors.As(err, &ue)
}
