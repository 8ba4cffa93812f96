package store

import (
	"errors"
)

var (
	ErrConflict = errors.New("conflict")
	ErrNotFound = errors.New("not found")
)

// StorageError wraps a failure of the storage backend itself. Callers surface it as
// "storage unavailable" and never retry it on the client's behalf.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage unavailable: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func IsStorageError(err error) bool {
	var sErr *StorageError
	return errors.As(err, &sErr)
}
