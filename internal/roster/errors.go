package roster

import "errors"

var (
	// ErrUnavailable marks failures of the session or record store. The
	// session is left at its prior value and the same input can be retried.
	ErrUnavailable = errors.New("roster: storage unavailable")
	// ErrIncompleteDraft is returned when a draft lacks a required field.
	ErrIncompleteDraft = errors.New("roster: incomplete draft")
)

// StorageError wraps a store failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "roster: " + e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// Is makes every StorageError match ErrUnavailable.
func (e *StorageError) Is(target error) bool { return target == ErrUnavailable }

// Code names the failure for log aggregation.
func (e *StorageError) Code() string { return "storage_unavailable" }

func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
