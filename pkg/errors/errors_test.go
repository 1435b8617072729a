package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneKeepsIdentityForIs(t *testing.T) {
	cloned := Clone(ErrNotFound, "class not found")

	assert.Equal(t, "class not found", cloned.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
	assert.True(t, stdErrors.Is(cloned, ErrNotFound))
	assert.False(t, stdErrors.Is(cloned, ErrConflict))
}

func TestWrapAsPreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := WrapAs(ErrExportDelivery, cause, "write summary-report-2024-01-02.csv")

	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, err.Status)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrExportDelivery)
	assert.Contains(t, err.Error(), "disk full")
}

func TestFromErrorNormalisesPlainErrors(t *testing.T) {
	plain := fmt.Errorf("boom")
	normalised := FromError(plain)

	assert.Equal(t, ErrInternal.Code, normalised.Code)
	assert.ErrorIs(t, normalised, plain)

	wrapped := fmt.Errorf("outer: %w", Clone(ErrForbidden, "nope"))
	assert.Equal(t, ErrForbidden.Code, FromError(wrapped).Code)
	assert.Nil(t, FromError(nil))
}

func TestFromErrorMapsDeadlines(t *testing.T) {
	err := FromError(fmt.Errorf("get_classes: %w", context.DeadlineExceeded))
	assert.Equal(t, ErrTimeout.Code, err.Code)
	assert.Equal(t, http.StatusGatewayTimeout, err.Status)
}

func TestRetryableSeparatesBadRequestsFromFailures(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.True(t, Retryable(stdErrors.New("connection reset")))
	assert.True(t, Retryable(WrapAs(ErrExportDelivery, stdErrors.New("disk full"), "")))
	assert.False(t, Retryable(fmt.Errorf("job: %w", WrapAs(ErrValidation, stdErrors.New("bad format"), ""))))
	assert.False(t, Retryable(ErrNotFound))
}
