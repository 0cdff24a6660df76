package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKindAndReason(t *testing.T) {
	err := fmt.Errorf("complete: %w", ErrAlreadyCompleted)

	assert.True(t, errors.Is(err, ErrAlreadyCompleted))
	assert.True(t, errors.Is(err, New(Conflict, "")))
	assert.False(t, errors.Is(err, ErrActiveEnrollment))
	assert.False(t, errors.Is(err, New(NotFound, "")))
}

func TestKindOfDefaultsToTransactionFailed(t *testing.T) {
	assert.Equal(t, TransactionFailed, KindOf(errors.New("connection reset")))
	assert.Equal(t, NotFound, KindOf(fmt.Errorf("x: %w", New(NotFound, "task not found"))))
	assert.True(t, Retryable(errors.New("boom")))
	assert.False(t, Retryable(ErrAlreadyCompleted))
	assert.False(t, Retryable(nil))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(Unauthorized))
	assert.Equal(t, http.StatusConflict, HTTPStatus(Conflict))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ValidationFailed))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(TransactionFailed))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := Wrap(TransactionFailed, cause, "failed to complete task")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to complete task", ReasonOf(err))
	assert.Equal(t, "internal error", ReasonOf(cause))
}
