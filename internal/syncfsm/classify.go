package syncfsm

import (
	"context"
	"errors"
	"strings"

	"docsync/internal/apperrors"
	"docsync/internal/domain"
)

// Classify maps an error surfaced by a pipeline step to one of the six
// ErrorCategory values the retry policy decides on. It generalizes the
// teacher's isRetryableStorageError/isRetryableEmbeddingError pattern
// (substring matching on the error text, plus a check for a Temporary()
// interface) into a richer taxonomy that also distinguishes rate limiting
// and permanent client/data errors rather than collapsing everything into a
// single retryable/not-retryable bool.
func Classify(err error) domain.ErrorCategory {
	if err == nil {
		return domain.ErrorCategoryUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.ErrorCategoryTransientNetwork
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.ErrorCodeValidation:
			return domain.ErrorCategoryPermanentData
		case apperrors.ErrorCodeDependencyUnavailable:
			return domain.ErrorCategoryTransientStore
		case apperrors.ErrorCodeConflict, apperrors.ErrorCodeNotFound:
			return domain.ErrorCategoryPermanentData
		case apperrors.ErrorCodeIntegrity, apperrors.ErrorCodeInternal:
			return domain.ErrorCategoryUnknown
		}
	}

	type temporary interface{ Temporary() bool }
	var tempIface temporary
	if errors.As(err, &tempIface) {
		if tempIface.Temporary() {
			return domain.ErrorCategoryTransientNetwork
		}
		return domain.ErrorCategoryPermanentClient
	}

	errStr := strings.ToLower(err.Error())

	for _, pattern := range rateLimitPatterns {
		if strings.Contains(errStr, pattern) {
			return domain.ErrorCategoryTransientRateLimit
		}
	}
	for _, pattern := range networkPatterns {
		if strings.Contains(errStr, pattern) {
			return domain.ErrorCategoryTransientNetwork
		}
	}
	for _, pattern := range storePatterns {
		if strings.Contains(errStr, pattern) {
			return domain.ErrorCategoryTransientStore
		}
	}
	for _, pattern := range clientPatterns {
		if strings.Contains(errStr, pattern) {
			return domain.ErrorCategoryPermanentClient
		}
	}
	for _, pattern := range dataPatterns {
		if strings.Contains(errStr, pattern) {
			return domain.ErrorCategoryPermanentData
		}
	}

	return domain.ErrorCategoryUnknown
}

var rateLimitPatterns = []string{
	"rate limit",
	"too many requests",
	"429",
	"quota exceeded",
}

var networkPatterns = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"i/o timeout",
	"eof",
	"no such host",
	"broken pipe",
	"temporary failure",
}

var storePatterns = []string{
	"service unavailable",
	"unavailable",
	"internal server error",
	"bad gateway",
	"gateway timeout",
	"deadline exceeded",
	"500",
	"502",
	"503",
	"504",
}

var clientPatterns = []string{
	"invalid api key",
	"unauthorized",
	"forbidden",
	"401",
	"403",
	"invalid_request_error",
	"not found",
	"404",
}

var dataPatterns = []string{
	"validation",
	"malformed",
	"invalid",
	"context length exceeded",
	"unsupported",
}
