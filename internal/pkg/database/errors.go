package database

import (
	"errors"
	"fmt"
)

// ErrStore marks an underlying persistence failure. It is the only error class
// callers may retry.
var ErrStore = errors.New("store error")

// StoreError wraps a driver error with the operation that failed.
type StoreError struct {
	Op  string
	Err error
}

func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}
