package deployment

import (
	"errors"
	"fmt"
)

var (
	// ErrDeploymentNotFound is returned when a deployment is not found
	ErrDeploymentNotFound = errors.New("deployment not found")

	// ErrInvalidStatusTransition is returned when trying to transition to an invalid status
	ErrInvalidStatusTransition = errors.New("invalid deployment status transition")

	// ErrInvalidStatus is returned for an unknown status value
	ErrInvalidStatus = errors.New("invalid deployment status")

	// ErrInvalidEnvironment is returned for an unknown environment value
	ErrInvalidEnvironment = errors.New("invalid deployment environment")

	// ErrInvalidDeploymentID is returned when an identifier is not a UUID
	ErrInvalidDeploymentID = errors.New("invalid deployment ID format")

	// ErrAppNotBound is returned when an operation needs an app identifier and none is bound
	ErrAppNotBound = errors.New("no app bound")
)

// StoreError wraps a backend read or write failure
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError wraps err as a StoreError for op
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err is or wraps a StoreError
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
