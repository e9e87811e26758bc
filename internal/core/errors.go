package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPlanNotFound        = errors.New("installment plan not found")
	ErrInstallmentNotFound = errors.New("installment not found")
	ErrCardNotFound        = errors.New("credit card not found")
)

// InvalidPlanError is returned by Generate when the plan cannot be split.
type InvalidPlanError struct {
	Reason string
}

func (e *InvalidPlanError) Error() string {
	return "invalid installment plan: " + e.Reason
}

// ValidationError carries every structural problem found, not just the first.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed:\n- %s", strings.Join(e.Problems, "\n- "))
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// StorageError wraps a failure of the backing store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err wraps a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
