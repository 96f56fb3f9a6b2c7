package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestWithBackoff_Success(t *testing.T) {
	config := Config{MaxRetries: 3, BaseDelay: 1 * time.Millisecond}
	attempts := 0

	err := WithBackoff(context.Background(), config, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return &StatusError{Op: "lark", StatusCode: http.StatusBadGateway}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithBackoff_FailureAfterMaxRetries(t *testing.T) {
	config := Config{MaxRetries: 2, BaseDelay: 1 * time.Millisecond}
	attempts := 0

	err := WithBackoff(context.Background(), config, func(ctx context.Context) error {
		attempts++
		return errors.New("persistent error")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts) // MaxRetries + 1
	assert.Contains(t, err.Error(), "operation failed after 3 attempts")
}

func TestWithBackoff_NonRetryableStatus(t *testing.T) {
	config := Config{MaxRetries: 3, BaseDelay: 1 * time.Millisecond}
	attempts := 0

	err := WithBackoff(context.Background(), config, func(ctx context.Context) error {
		attempts++
		return &StatusError{Op: "lark", StatusCode: http.StatusBadRequest}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Contains(t, err.Error(), "non-retryable error")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
}

func TestWithBackoff_Permanent(t *testing.T) {
	config := Config{MaxRetries: 3, BaseDelay: 1 * time.Millisecond}
	attempts := 0
	sentinel := errors.New("bad credentials")

	err := WithBackoff(context.Background(), config, func(ctx context.Context) error {
		attempts++
		return Permanent(sentinel)
	})

	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, sentinel)
}

func TestWithBackoff_ContextCancellation(t *testing.T) {
	config := Config{MaxRetries: 5, BaseDelay: 100 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := WithBackoff(ctx, config, func(ctx context.Context) error {
		return errors.New("retryable error")
	})
	duration := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled), "got %v", err)
	assert.Less(t, duration, 200*time.Millisecond)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"net timeout", fmt.Errorf("send: %w", timeoutErr{}), true},
		{"500 server error", &StatusError{StatusCode: 500}, true},
		{"502 bad gateway", fmt.Errorf("wrapped: %w", &StatusError{StatusCode: 502}), true},
		{"429 rate limit", &StatusError{StatusCode: 429}, true},
		{"400 bad request", &StatusError{StatusCode: 400}, false},
		{"401 unauthorized", &StatusError{StatusCode: 401}, false},
		{"404 not found", &StatusError{StatusCode: 404}, false},
		{"context canceled", context.Canceled, false},
		{"permanent", Permanent(errors.New("x")), false},
		{"unknown error", errors.New("some unknown error"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryableError(tt.err))
		})
	}
}

func TestHTTPStatusRetryable(t *testing.T) {
	tests := []struct {
		status   int
		expected bool
	}{
		{200, false},
		{400, false},
		{401, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatusRetryable(tt.status))
		})
	}
}

func TestStatusErrorMessage(t *testing.T) {
	assert.Equal(t, "reader: unexpected status 503", (&StatusError{Op: "reader", StatusCode: 503}).Error())
	assert.Equal(t, "lark: unexpected status 400: bad", (&StatusError{Op: "lark", StatusCode: 400, Body: "bad"}).Error())
}
