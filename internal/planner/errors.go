package planner

import (
	"errors"
	"fmt"
)

var (
	// ErrDataAccess marks failures of the inventory, catalog or plan stores.
	ErrDataAccess = errors.New("data access failed")
	// ErrMalformedPlan is returned when a stored payload cannot be decoded.
	ErrMalformedPlan = errors.New("malformed plan payload")
	// ErrInvariantViolation is returned when the builder cannot fill a week.
	ErrInvariantViolation = errors.New("plan invariant violated")
	// ErrPlanNotFound is returned by Current when the week has no plan yet.
	ErrPlanNotFound = errors.New("plan not found")
)

// DataAccessError wraps a store failure. It matches both ErrDataAccess and
// the underlying error with errors.Is.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() []error {
	return []error{ErrDataAccess, e.Err}
}

func dataAccess(op string, err error) error {
	return &DataAccessError{Op: op, Err: err}
}
