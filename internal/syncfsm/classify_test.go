package syncfsm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"docsync/internal/apperrors"
	"docsync/internal/domain"
)

type fakeTemporaryError struct {
	msg       string
	temporary bool
}

func (e *fakeTemporaryError) Error() string   { return e.msg }
func (e *fakeTemporaryError) Temporary() bool { return e.temporary }

func TestClassify_NilIsUnknown(t *testing.T) {
	assert.Equal(t, domain.ErrorCategoryUnknown, Classify(nil))
}

func TestClassify_ContextDeadlineIsTransientNetwork(t *testing.T) {
	assert.Equal(t, domain.ErrorCategoryTransientNetwork, Classify(context.DeadlineExceeded))
	assert.Equal(t, domain.ErrorCategoryTransientNetwork, Classify(context.Canceled))
}

func TestClassify_AppErrorCodesMapToCategories(t *testing.T) {
	assert.Equal(t, domain.ErrorCategoryPermanentData, Classify(apperrors.ValidationField("mime", "unsupported")))
	assert.Equal(t, domain.ErrorCategoryTransientStore, Classify(apperrors.DependencyUnavailable("qdrant", errors.New("down"))))
	assert.Equal(t, domain.ErrorCategoryPermanentData, Classify(apperrors.Conflict("duplicate")))
	assert.Equal(t, domain.ErrorCategoryPermanentData, Classify(apperrors.NotFound("document", "d1")))
	assert.Equal(t, domain.ErrorCategoryUnknown, Classify(apperrors.Integrity("inconsistent state")))
}

func TestClassify_TemporaryInterfaceWins(t *testing.T) {
	assert.Equal(t, domain.ErrorCategoryTransientNetwork, Classify(&fakeTemporaryError{msg: "dial tcp: i/o timeout", temporary: true}))
	assert.Equal(t, domain.ErrorCategoryPermanentClient, Classify(&fakeTemporaryError{msg: "bad request", temporary: false}))
}

func TestClassify_SubstringPatterns(t *testing.T) {
	cases := []struct {
		err  string
		want domain.ErrorCategory
	}{
		{"429: rate limit exceeded", domain.ErrorCategoryTransientRateLimit},
		{"dial tcp: connection refused", domain.ErrorCategoryTransientNetwork},
		{"qdrant: 503 service unavailable", domain.ErrorCategoryTransientStore},
		{"openai: 401 unauthorized: invalid api key", domain.ErrorCategoryPermanentClient},
		{"embedding: context length exceeded", domain.ErrorCategoryPermanentData},
		{"something entirely unrecognized happened", domain.ErrorCategoryUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(errors.New(tc.err)), tc.err)
	}
}
