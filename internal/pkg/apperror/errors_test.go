package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeNotFound:         http.StatusNotFound,
		ErrCodeUnauthorized:     http.StatusUnauthorized,
		ErrCodeForbidden:        http.StatusForbidden,
		ErrCodeValidation:       http.StatusBadRequest,
		ErrCodeBadRequest:       http.StatusBadRequest,
		ErrCodeInvalidOperation: http.StatusUnprocessableEntity,
		ErrCodeLimitExceeded:    http.StatusUnprocessableEntity,
		ErrCodeInvalidState:     http.StatusPreconditionFailed,
		ErrCodeConflict:         http.StatusConflict,
		ErrCodePayment:          http.StatusBadGateway,
		ErrCodeDatabaseError:    http.StatusInternalServerError,
		ErrCodeInternal:         http.StatusInternalServerError,
	}

	for code, status := range cases {
		assert.Equal(t, status, New(code, "x").HTTPStatus, code)
	}
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, ErrCodePayment, "платёж не прошёл")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "PAYMENT_ERROR")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("use case: %w", ErrDisputeNotFound)

	assert.Equal(t, ErrCodeNotFound, CodeOf(wrapped))
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("plain")))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(wrapped))
	assert.True(t, IsForbidden(ErrAdminOnly))
	assert.True(t, IsConflict(ErrRetryTransaction))
}
