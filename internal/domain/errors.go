package domain

import (
	"errors"
	"fmt"
)

// Validation errors. None of them is retried.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidUserID    = fmt.Errorf("%w: malformed user id", ErrInvalidInput)
	ErrCannotSwipeSelf  = fmt.Errorf("%w: cannot swipe yourself", ErrInvalidInput)
	ErrUserNotFound     = fmt.Errorf("%w: user not found", ErrInvalidInput)
	ErrReswipeForbidden = fmt.Errorf("%w: candidate was already rejected", ErrInvalidInput)
	ErrReswipeCooldown  = fmt.Errorf("%w: rejected candidate is still cooling down", ErrInvalidInput)
)

// Lookup errors returned by repositories.
var (
	ErrEdgeNotFound    = errors.New("edge not found")
	ErrMatchNotFound   = errors.New("match not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists")
)

// Authentication errors.
var (
	ErrInvalidToken = errors.New("invalid token")
)

// Store-level concurrency errors.
var (
	// ErrVersionConflict means a compare-and-swap write lost against a concurrent writer.
	ErrVersionConflict = errors.New("edge version conflict")

	// ErrTransientStore covers store unavailability and driver failures. Safe to retry.
	ErrTransientStore = errors.New("transient store error")

	// ErrLockTimeout is returned when the pair lock could not be acquired in time.
	ErrLockTimeout = fmt.Errorf("%w: pair lock wait timed out", ErrTransientStore)

	// ErrConflictExhausted means the retry budget ran out under sustained contention.
	ErrConflictExhausted = errors.New("conflict retries exhausted")
)

// Transient wraps err so that it matches ErrTransientStore.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransientStore) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransientStore, err)
}

// IsValidation reports whether err is a caller mistake that must not be retried.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRetryable reports whether the caller may safely resubmit the action.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientStore) || errors.Is(err, ErrConflictExhausted)
}
