package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Wrapped(t *testing.T) {
	err := fmt.Errorf("fetch trade areas: %w", statusErr(404))

	code, ok := Status(err)
	assert.True(t, ok)
	assert.Equal(t, 404, code)

	_, ok = Status(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(statusErr(404)))
	assert.True(t, IsNotFound(fmt.Errorf("wrap: %w", statusErr(404))))
	assert.False(t, IsNotFound(statusErr(500)))
	assert.False(t, IsNotFound(errors.New("not found")))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(statusErr(400)))
	assert.True(t, IsClientError(statusErr(404)))
	assert.False(t, IsClientError(statusErr(429)))
	assert.False(t, IsClientError(statusErr(408)))
	assert.False(t, IsClientError(statusErr(503)))
	assert.False(t, IsClientError(io.EOF))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{200, false},
		{400, false},
		{404, false},
		{408, true},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsTransientHTTPStatus(tt.code), "status %d", tt.code)
	}
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.False(t, Retryable(context.Canceled))
	assert.False(t, Retryable(fmt.Errorf("wrap: %w", context.Canceled)))
	assert.False(t, Retryable(statusErr(403)))
	assert.True(t, Retryable(statusErr(500)))
	assert.True(t, Retryable(io.ErrUnexpectedEOF))
	assert.True(t, Retryable(errors.New("dial tcp: connection refused")))
	assert.False(t, Retryable(Permanent(errors.New("decode: bad json"))))
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
	err := Permanent(io.EOF)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "EOF", err.Error())
}
