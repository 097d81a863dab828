package apperrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocationError_IsMatchesKindOnly(t *testing.T) {
	err := NewAllocationError(KindConflict, "wardha", 5, nil)

	assert.ErrorIs(t, err, ErrAllocationConflict)
	assert.NotErrorIs(t, err, ErrStorageFault)
	assert.NotErrorIs(t, err, ErrInvalidBranch)
	assert.Contains(t, err.Error(), "after 5 attempts")
}

func TestAllocationError_UnwrapsCause(t *testing.T) {
	err := NewAllocationError(KindStorageFault, "akola", 1, context.Canceled)
	wrapped := fmt.Errorf("signup: %w", err)

	assert.ErrorIs(t, wrapped, ErrStorageFault)
	assert.ErrorIs(t, wrapped, context.Canceled)
	assert.Equal(t, KindStorageFault, AllocationKindOf(wrapped))
}

func TestAllocationKindOf_NonAllocation(t *testing.T) {
	assert.Equal(t, AllocationKind(0), AllocationKindOf(errors.New("boom")))
	assert.Equal(t, "Unknown", AllocationKind(0).String())
	assert.Equal(t, "InvalidBranch", KindInvalidBranch.String())
}

func TestCustomError_Field(t *testing.T) {
	err := NewValidationError("phone", "Phone number must be 10 digits")

	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, "phone", err.Field())
	assert.Equal(t, "Phone number must be 10 digits", err.Error())
	assert.True(t, Is(err, ErrBadRequest, ErrValidationFailed))
	assert.False(t, Is(err, ErrBadRequest, ErrUserNotFound))
	assert.False(t, Is(err))
}
