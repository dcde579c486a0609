package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "job not found", NotFound("job not found").Error())
	assert.Equal(t,
		"verification failed: engine unavailable",
		Upstream(errors.New("engine unavailable"), "verification failed").Error())
}

func TestAppError_UnwrapKeepsCause(t *testing.T) {
	cause := errors.New("rate limited")
	err := Upstream(cause, "verification failed")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeUpstream, err.Code)
}

func TestValidationField(t *testing.T) {
	err := ValidationField("tier", "tier must be one of [basic pro]")

	assert.Equal(t, ErrCodeValidation, err.Code)
	assert.Equal(t, "tier", err.Field)
	assert.Equal(t, "tier", GetField(fmt.Errorf("decode: %w", err)))
	assert.Empty(t, GetField(nil))
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying")
	err := Wrap(cause, ErrCodeInternal, "create job")

	assert.Equal(t, ErrCodeInternal, err.Code)
	assert.Equal(t, "create job", err.Message)
	require.ErrorIs(t, err, cause)

	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nothing"))
}

func TestPredicates(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", Validation("bad input"))

	tests := []struct {
		name string
		fn   func(error) bool
		err  error
		want bool
	}{
		{"not found", IsNotFound, NotFound("missing"), true},
		{"not found on validation", IsNotFound, Validation("bad"), false},
		{"validation wrapped", IsValidation, wrapped, true},
		{"internal", IsInternal, Wrap(errors.New("x"), ErrCodeInternal, "boom"), true},
		{"timeout", IsTimeout, &AppError{Code: ErrCodeTimeout}, true},
		{"canceled", IsCanceled, &AppError{Code: ErrCodeCanceled}, true},
		{"plain error", IsInternal, errors.New("plain"), false},
		{"nil error", IsNotFound, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn(tt.err))
		})
	}

	assert.True(t, HasCode(wrapped, ErrCodeValidation))
	assert.Equal(t, ErrCodeValidation, GetCode(wrapped))
	assert.Empty(t, GetCode(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{Validation("x"), http.StatusBadRequest},
		{Upstream(nil, "x"), http.StatusBadGateway},
		{&AppError{Code: ErrCodeTimeout}, http.StatusGatewayTimeout},
		{&AppError{Code: ErrCodeCanceled}, StatusClientClosedRequest},
		{&AppError{Code: ErrCodeInternal}, http.StatusInternalServerError},
		{&AppError{Code: "unknown"}, http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "err=%v", tt.err)
	}
}

func TestMapContextError(t *testing.T) {
	require.NoError(t, MapContextError(nil))

	deadline := MapContextError(fmt.Errorf("verify: %w", context.DeadlineExceeded))
	assert.True(t, IsTimeout(deadline))
	require.ErrorIs(t, deadline, context.DeadlineExceeded)

	assert.True(t, IsCanceled(MapContextError(context.Canceled)))

	plain := errors.New("plain")
	assert.Same(t, plain, MapContextError(plain))
}
