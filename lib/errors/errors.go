// Package errors provides structured error types for the hostpool library.
// All errors are designed to be safe to return to callers without exposing
// internal implementation details.
//
// This package provides:
//   - Sentinel errors for capacity and lifecycle conditions
//   - Predicate helpers for errors.Is checks
//   - Error wrapping with context preservation
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrHostLimitReached indicates the per-host connection cap is reached
	// and no idle record is available for reuse.
	ErrHostLimitReached = errors.New("pool: host connection limit reached")

	// ErrPoolExhausted indicates the global connection cap is reached.
	ErrPoolExhausted = errors.New("pool: connection pool exhausted")

	// ErrInvalidHost indicates a malformed host was supplied.
	ErrInvalidHost = errors.New("pool: invalid host")

	// ErrPoolClosed is returned when operating on a pool after Shutdown.
	ErrPoolClosed = errors.New("pool: pool is closed")

	// ErrInvalidState indicates an invalid record state transition.
	ErrInvalidState = errors.New("pool: invalid state")

	// ErrConfiguration indicates a configuration error.
	ErrConfiguration = errors.New("pool: configuration error")
)

// Wrap adds context to an error while preserving the sentinel for
// errors.Is checks. Returns nil if err is nil.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Wrapf adds formatted context to an error.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// IsHostLimit returns true if the error indicates the per-host cap was hit.
func IsHostLimit(err error) bool {
	return errors.Is(err, ErrHostLimitReached)
}

// IsPoolExhausted returns true if the error indicates the global cap was hit.
func IsPoolExhausted(err error) bool {
	return errors.Is(err, ErrPoolExhausted)
}

// IsCapacity returns true if the error indicates any capacity condition,
// per-host or global. Capacity errors are recoverable: the caller may queue,
// retry later, or surface the condition.
func IsCapacity(err error) bool {
	return errors.Is(err, ErrHostLimitReached) || errors.Is(err, ErrPoolExhausted)
}

// IsInvalidHost returns true if the error indicates malformed host input.
func IsInvalidHost(err error) bool {
	return errors.Is(err, ErrInvalidHost)
}

// IsClosed returns true if the error indicates the pool is closed.
func IsClosed(err error) bool {
	return errors.Is(err, ErrPoolClosed)
}

// Join combines multiple errors into a single error.
// Returns nil if all errors are nil.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target,
// and if so, sets target to that error value and returns true.
func As(err error, target any) bool {
	return errors.As(err, target)
}
