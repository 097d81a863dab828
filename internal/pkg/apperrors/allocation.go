package apperrors

import (
	"errors"
	"fmt"
)

// Allocation error kinds. Callers match them with errors.Is.
var (
	ErrInvalidBranch      = errors.New("invalid branch")
	ErrAllocationConflict = errors.New("student ID allocation conflict")
	ErrStorageFault       = errors.New("student ID storage fault")
)

// AllocationKind classifies why a student ID could not be issued
type AllocationKind int

const (
	KindInvalidBranch AllocationKind = iota + 1
	KindConflict
	KindStorageFault
)

func (k AllocationKind) String() string {
	switch k {
	case KindInvalidBranch:
		return "InvalidBranch"
	case KindConflict:
		return "AllocationConflict"
	case KindStorageFault:
		return "StorageFault"
	default:
		return "Unknown"
	}
}

func (k AllocationKind) sentinel() error {
	switch k {
	case KindInvalidBranch:
		return ErrInvalidBranch
	case KindConflict:
		return ErrAllocationConflict
	default:
		return ErrStorageFault
	}
}

// AllocationError is returned by the student ID allocator. No counter was
// advanced when it is returned.
type AllocationError struct {
	Kind     AllocationKind
	Branch   string
	Attempts int
	Err      error
}

// NewAllocationError builds an AllocationError of the given kind
func NewAllocationError(kind AllocationKind, branch string, attempts int, err error) *AllocationError {
	return &AllocationError{Kind: kind, Branch: branch, Attempts: attempts, Err: err}
}

func (e *AllocationError) Error() string {
	msg := fmt.Sprintf("failed to generate student ID for branch %q: %s", e.Branch, e.Kind.sentinel())
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind
func (e *AllocationError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// AllocationKindOf returns the kind carried by err, or 0 when err is not an allocation failure
func AllocationKindOf(err error) AllocationKind {
	var allocErr *AllocationError
	if errors.As(err, &allocErr) {
		return allocErr.Kind
	}
	return 0
}
