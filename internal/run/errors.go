package run

import "errors"

// NonRetryableError marks failures that retrying cannot fix, like an
// oversized prompt. The dispatcher drops these instead of re-queueing.
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return e.Err.Error()
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// IsNonRetryable reports whether err originated from a non-retryable failure.
func IsNonRetryable(err error) bool {
	if err == nil {
		return false
	}
	var target *NonRetryableError
	return errors.As(err, &target)
}
