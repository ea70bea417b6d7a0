// Package syncerr defines the error taxonomy shared across the sync engine.
//
// Four failure classes exist: network (request could not complete),
// validation (rejected client-side before any request), auth (no
// authenticated principal), and not-found (referenced entity missing).
// Callers classify with the Is* predicates rather than string matching.
package syncerr

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for the four failure classes.
var (
	ErrNetwork    = errors.New("network failure")
	ErrValidation = errors.New("validation failure")
	ErrAuth       = errors.New("not authenticated")
	ErrNotFound   = errors.New("not found")
)

// Network wraps err as a network failure attributed to op.
func Network(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrNetwork, err)
}

// Validation returns a validation failure with the given reason.
func Validation(op, reason string) error {
	return fmt.Errorf("%s: %w: %s", op, ErrValidation, reason)
}

// Auth returns an auth failure attributed to op.
func Auth(op string) error {
	return fmt.Errorf("%s: %w", op, ErrAuth)
}

// NotFound returns a not-found failure for the named entity.
func NotFound(op, entity string) error {
	return fmt.Errorf("%s: %s: %w", op, entity, ErrNotFound)
}

// IsNetwork reports whether err is a network failure.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsAuth reports whether err is an auth failure.
func IsAuth(err error) bool {
	return errors.Is(err, ErrAuth)
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsCanceled reports whether err is a context cancellation. Requests cut
// short by view teardown are treated as a silent outcome, not a failure.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
