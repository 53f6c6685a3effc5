package datasource

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Test constants to avoid string duplication
const (
	testConnectionFailed = "connection failed"
)

func TestErrorTypeFormatting(t *testing.T) {
	tests := []struct {
		name     string
		error    ClientError
		contains []string
	}{
		{
			name:     "network error without wrapped error",
			error:    NewNetworkError(testConnectionFailed, 0, nil),
			contains: []string{"network error", testConnectionFailed},
		},
		{
			name:     "network error with wrapped error",
			error:    NewNetworkError(testConnectionFailed, 0, errors.New("underlying issue")),
			contains: []string{"network error", testConnectionFailed, "underlying issue"},
		},
		{
			name:     "network error with status",
			error:    NewNetworkError("server unavailable", 503, nil),
			contains: []string{"network error", "server unavailable", "503"},
		},
		{
			name:     "auth error",
			error:    NewAuthError("token rejected", 401),
			contains: []string{"authentication error", "token rejected", "401"},
		},
		{
			name:     "not found error",
			error:    NewNotFoundError("missing resource"),
			contains: []string{"not found", "missing resource"},
		},
		{
			name:     "timeout error",
			error:    NewTimeoutError("request timeout", 30*time.Second, nil),
			contains: []string{"timeout error", "request timeout", "30s"},
		},
		{
			name:     "config error with field",
			error:    NewConfigError("must be an absolute URL", "baseUrl"),
			contains: []string{"invalid configuration", "baseUrl", "must be an absolute URL"},
		},
		{
			name:     "config error without field",
			error:    NewConfigError("bad setup", ""),
			contains: []string{"invalid configuration", "bad setup"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errorMsg := tt.error.Error()
			for _, expected := range tt.contains {
				assert.Contains(t, errorMsg, expected, "Error message should contain: %s", expected)
			}
		})
	}
}

func TestErrorTypeIdentification(t *testing.T) {
	tests := []struct {
		name     string
		error    ClientError
		expected ErrorType
	}{
		{"network", NewNetworkError("test", 0, nil), NetworkError},
		{"auth", NewAuthError("test", 403), AuthError},
		{"not found", NewNotFoundError("test"), NotFoundError},
		{"timeout", NewTimeoutError("test", time.Second, nil), TimeoutError},
		{"config", NewConfigError("test", "field"), ConfigError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.error.Type())
			assert.True(t, IsErrorType(tt.error, tt.expected))
		})
	}
}

func TestErrorUnwrapping(t *testing.T) {
	t.Run("network error unwrapping", func(t *testing.T) {
		underlying := errors.New("connection refused")
		netErr := NewNetworkError("failed to connect", 0, underlying)

		assert.True(t, errors.Is(netErr, underlying))

		var target *networkError
		assert.True(t, errors.As(netErr, &target))
		assert.Equal(t, "failed to connect", target.message)
	})

	t.Run("timeout error unwrapping", func(t *testing.T) {
		underlying := errors.New("deadline exceeded")
		timeoutErr := NewTimeoutError("attempt expired", 5*time.Second, underlying)

		assert.True(t, errors.Is(timeoutErr, underlying))

		var target *timeoutError
		assert.True(t, errors.As(timeoutErr, &target))
		assert.Equal(t, 5*time.Second, target.Timeout())
	})
}

func TestStatusCodeAccess(t *testing.T) {
	assert.Equal(t, 503, NewNetworkError("m", 503, nil).StatusCode())
	assert.Equal(t, 401, NewAuthError("m", 401).StatusCode())
	assert.Equal(t, 404, NewNotFoundError("m").StatusCode())
	assert.Equal(t, 0, NewTimeoutError("m", time.Second, nil).StatusCode())
	assert.Equal(t, 0, NewConfigError("m", "f").StatusCode())
}

func TestWithRequestContextStripsQueryString(t *testing.T) {
	err := withRequestContext(
		NewNetworkError("m", 500, nil),
		"https://api.example.com/v1/users?token=secret&page=2",
		"GET",
	)

	ctx := err.Context()
	assert.Equal(t, "https://api.example.com/v1/users", ctx["url"])
	assert.Equal(t, "GET", ctx["method"])
	assert.NotContains(t, fmt.Sprint(ctx), "secret")
}

func TestIsErrorTypeUtilities(t *testing.T) {
	tests := []struct {
		name      string
		error     error
		errorType ErrorType
		expected  bool
	}{
		{"nil error", nil, NetworkError, false},
		{"network error matches", NewNetworkError("test", 0, nil), NetworkError, true},
		{"network error doesn't match timeout", NewNetworkError("test", 0, nil), TimeoutError, false},
		{"standard error doesn't match", errors.New("standard error"), NetworkError, false},
		{"wrapped client error matches", fmt.Errorf("wrapped: %w", NewAuthError("x", 401)), AuthError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsErrorType(tt.error, tt.errorType))
		})
	}
}

func TestIsNetworkError(t *testing.T) {
	tests := []struct {
		name     string
		error    error
		expected bool
	}{
		{"nil", nil, false},
		{"classified network error", NewNetworkError("x", 0, nil), true},
		{"connection reset", syscall.ECONNRESET, true},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "nope.invalid"}, true},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("down")}, true},
		{"auth error", NewAuthError("x", 401), false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNetworkError(tt.error))
		})
	}
}

func TestIsServerError(t *testing.T) {
	assert.True(t, IsServerError(NewNetworkError("x", 500, nil)))
	assert.True(t, IsServerError(NewNetworkError("x", 599, nil)))
	assert.False(t, IsServerError(NewNetworkError("x", 499, nil)))
	assert.False(t, IsServerError(NewNetworkError("x", 0, nil)))
	assert.False(t, IsServerError(errors.New("not classified")))
}

func TestIsHTTPStatusError(t *testing.T) {
	assert.True(t, IsHTTPStatusError(NewNetworkError("x", 429, nil), 429))
	assert.False(t, IsHTTPStatusError(NewNetworkError("x", 500, nil), 429))
	assert.False(t, IsHTTPStatusError(nil, 429))
	assert.False(t, IsHTTPStatusError(errors.New("boom"), 429))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		error    error
		expected bool
	}{
		{"nil", nil, false},
		{"network", NewNetworkError("x", 0, nil), true},
		{"server 503", NewNetworkError("x", 503, nil), true},
		{"throttled 429", NewNetworkError("x", 429, nil), true},
		{"timeout", NewTimeoutError("x", time.Second, nil), true},
		{"transport reset", syscall.ECONNRESET, true},
		{"auth", NewAuthError("x", 401), false},
		{"not found", NewNotFoundError("x"), false},
		{"config", NewConfigError("x", "f"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.error))
		})
	}
}
