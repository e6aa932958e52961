package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidChoice      = errors.New("invalid choice")
	ErrInvalidQuestion    = errors.New("invalid question")
	ErrUnknownQuestion    = errors.New("unknown question")
	ErrLearnerArchived    = errors.New("learner archived")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInconsistentState  = errors.New("inconsistent state")
)

// StorageError reports a failed storage operation. It matches
// ErrStorageUnavailable under errors.Is so callers can retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage unavailable (%s): %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorageUnavailable }

// Unavailable wraps err as a StorageError for op. A nil err stays nil.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
