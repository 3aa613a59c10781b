package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

// ErrInvalidArgument matches every InvalidArgumentError through errors.Is.
var ErrInvalidArgument = errors.New("invalid argument")

type TrackerError struct {
	Message string
	Cause   error
}

func (e *TrackerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *TrackerError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As
type ConfigurationError struct{ TrackerError }
type DatabaseError struct{ TrackerError }
type InvalidArgumentError struct{ TrackerError }

// TransientFetchFailure is one failed attempt that will be retried.
type TransientFetchFailure struct {
	TrackerError
	Attempt int
}

// TerminalFetchFailure means every attempt failed.
type TerminalFetchFailure struct {
	TrackerError
	Attempts int
}

func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// -----------------------------------------------------------------------------

func NewInvalidArgumentError(format string, args ...interface{}) error {
	return &InvalidArgumentError{TrackerError{Message: fmt.Sprintf(format, args...)}}
}

func NewConfigurationError(message string, cause error) error {
	return &ConfigurationError{TrackerError{Message: message, Cause: cause}}
}

func NewDatabaseError(message string, cause error) error {
	return &DatabaseError{TrackerError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryFixed runs fn once plus up to retries more times, waiting delay between
// attempts. onFailure sees every failed attempt as a TransientFetchFailure.
// When all attempts fail the last error is wrapped in a TerminalFetchFailure.
// Context cancellation stops the loop and is returned as is.
func RetryFixed[T any](
	ctx context.Context,
	operation string,
	retries int,
	delay time.Duration,
	fn func(attempt int) (T, error),
	onFailure func(*TransientFetchFailure),
) (T, error) {
	var zero T
	var lastErr error
	attempts := retries + 1

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		res, err := fn(attempt)
		if err == nil {
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		lastErr = err
		if onFailure != nil {
			onFailure(&TransientFetchFailure{
				TrackerError: TrackerError{Message: fmt.Sprintf("%s attempt %d/%d failed", operation, attempt, attempts), Cause: err},
				Attempt:      attempt,
			})
		}

		if attempt < attempts && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}

	return zero, &TerminalFetchFailure{
		TrackerError: TrackerError{Message: fmt.Sprintf("%s failed after %d attempts", operation, attempts), Cause: lastErr},
		Attempts:     attempts,
	}
}
