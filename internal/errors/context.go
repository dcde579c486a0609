package errors

import (
	"context"
	"errors"
)

// MapContextError turns context deadline and cancellation errors into timeout and
// canceled AppErrors. Other errors pass through unchanged.
func MapContextError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, "Request timed out. Please try again.")
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeCanceled, "Request was canceled.")
	default:
		return err
	}
}
