package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/supersix/academy/internal/app/models"
	"github.com/supersix/academy/internal/app/repositories"
	"github.com/supersix/academy/internal/pkg/apperrors"
)

// ErrCounterExhausted is returned when a branch counter cannot be incremented further
var ErrCounterExhausted = errors.New("branch counter exhausted")

// RetryPolicy bounds how often a conflicting allocation is replayed
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// StudentIDAllocator issues sequential, per-branch student IDs
type StudentIDAllocator struct {
	store    repositories.CounterStore
	branches *BranchRegistry
	policy   RetryPolicy
	logger   zerolog.Logger
}

// NewStudentIDAllocator creates a new StudentIDAllocator
func NewStudentIDAllocator(store repositories.CounterStore, branches *BranchRegistry, policy RetryPolicy, logger zerolog.Logger) *StudentIDAllocator {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &StudentIDAllocator{
		store:    store,
		branches: branches,
		policy:   policy,
		logger:   logger.With().Str("component", "student_id_allocator").Logger(),
	}
}

func (a *StudentIDAllocator) newBackOff() backoff.BackOff {
	if a.policy.InitialBackoff <= 0 {
		return &backoff.ZeroBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.policy.InitialBackoff
	b.MaxInterval = a.policy.MaxBackoff
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	return b
}

// AllocateStudentID reserves the next number for branchKey and returns the
// formatted ID. On any error no number has been consumed; the error is an
// *apperrors.AllocationError.
func (a *StudentIDAllocator) AllocateStudentID(ctx context.Context, branchKey string) (string, error) {
	branch, err := a.branches.Lookup(branchKey)
	if err != nil {
		a.logger.Warn().Str("branch", branchKey).Str("errorKind", apperrors.KindInvalidBranch.String()).Msg("Rejected student ID request for unknown branch")
		return "", apperrors.NewAllocationError(apperrors.KindInvalidBranch, branchKey, 0, err)
	}

	attempts := 0
	operation := func() (int64, error) {
		attempts++
		next, err := a.increment(ctx, branch)
		switch {
		case err == nil:
			return next, nil
		case errors.Is(err, repositories.ErrCounterConflict):
			return 0, err
		default:
			return 0, backoff.Permanent(err)
		}
	}

	next, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(a.newBackOff()),
		backoff.WithMaxTries(uint(a.policy.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			a.logger.Debug().Err(err).Str("branch", branch.Key).Int("attempt", attempts).Dur("backoff", wait).Msg("Student ID allocation conflicted, retrying")
		}),
	)
	if err != nil {
		kind := apperrors.KindStorageFault
		if errors.Is(err, repositories.ErrCounterConflict) {
			kind = apperrors.KindConflict
		}
		allocErr := apperrors.NewAllocationError(kind, branch.Key, attempts, unwrapPermanent(err))
		a.logger.Error().Err(allocErr.Err).
			Str("branch", branch.Key).
			Int("attempts", attempts).
			Str("errorKind", kind.String()).
			Msg("Failed to generate student ID")
		return "", allocErr
	}

	studentID := a.branches.Format(branch, next)
	a.logger.Info().Str("branch", branch.Key).Str("studentId", studentID).Int("attempts", attempts).Msg("Student ID allocated")
	return studentID, nil
}

// increment runs one read-modify-write attempt and returns the number it committed
func (a *StudentIDAllocator) increment(ctx context.Context, branch models.Branch) (int64, error) {
	var next int64
	err := a.store.RunCounterTransaction(ctx, branch.Key, func(ctx context.Context, tx repositories.CounterTx) error {
		counter, _, err := tx.Get(ctx)
		if err != nil {
			return err
		}
		if counter.Count == math.MaxInt64 {
			return fmt.Errorf("%w: %s", ErrCounterExhausted, branch.Key)
		}
		next = counter.Count + 1
		return tx.Set(next)
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// CurrentCount reports how many IDs branchKey has issued. It is a display
// value only; reading it and adding one does not reserve anything.
func (a *StudentIDAllocator) CurrentCount(ctx context.Context, branchKey string) (int64, error) {
	branch, err := a.branches.Lookup(branchKey)
	if err != nil {
		return 0, err
	}
	counter, err := a.store.GetCounter(ctx, branch.Key)
	if err != nil {
		return 0, fmt.Errorf("failed to read counter for %s: %w", branch.Key, err)
	}
	return counter.Count, nil
}

// Branches exposes the registry backing this allocator
func (a *StudentIDAllocator) Branches() *BranchRegistry {
	return a.branches
}

func unwrapPermanent(err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Unwrap()
	}
	return err
}
