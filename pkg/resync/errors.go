package resync

import (
	"errors"

	apperrors "github.com/qhato/ecommerce/pkg/errors"
)

// Classify normalizes any error into an *apperrors.AppError so
// ErrorAggregator always has a Severity/Retryable pair to act on.
// (Executor does not use it: it treats any error that is not an
// *apperrors.AppError as non-retryable.) An error that is already an *apperrors.AppError (or
// wraps one) passes through unchanged; anything else is treated as an
// unclassified store failure, since in this pipeline everything that
// isn't already typed comes from the RMS store.
func Classify(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.ConnectionLost(err)
}
