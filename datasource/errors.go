package datasource

import (
	"fmt"
	"net/url"
	"time"
)

// ErrorType identifies the classified failure kind of a ClientError.
type ErrorType string

const (
	// NetworkError covers transport failures and unclassified HTTP failures.
	NetworkError ErrorType = "network"
	// AuthError covers 401/403 responses and credential problems.
	AuthError ErrorType = "authentication"
	// NotFoundError covers 404 responses.
	NotFoundError ErrorType = "not_found"
	// TimeoutError covers per-attempt deadline expiry. It is a specialization
	// of NetworkError for retry purposes.
	TimeoutError ErrorType = "timeout"
	// ConfigError covers invalid datasource configuration. Never retried.
	ConfigError ErrorType = "invalid_config"
)

// ClientError is the error contract crossing the datasource boundary.
// Every failure surfaced by this package is one of the fixed error types;
// no raw transport error escapes unclassified.
type ClientError interface {
	error
	// Type returns the classified failure kind.
	Type() ErrorType
	// StatusCode returns the associated HTTP status, or 0 when none applies.
	StatusCode() int
	// Context returns free-form diagnostic fields (URL origin+path, verb).
	// Query strings are never included so that credentials in parameters
	// cannot leak through error messages or logs.
	Context() map[string]string
}

type networkError struct {
	message string
	status  int
	context map[string]string
	err     error
}

func (e *networkError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("network error: %s: %v", e.message, e.err)
	}
	if e.status > 0 {
		return fmt.Sprintf("network error: %s (status %d)", e.message, e.status)
	}
	return fmt.Sprintf("network error: %s", e.message)
}

func (e *networkError) Type() ErrorType            { return NetworkError }
func (e *networkError) StatusCode() int            { return e.status }
func (e *networkError) Context() map[string]string { return e.context }
func (e *networkError) Unwrap() error              { return e.err }

type authError struct {
	message string
	status  int
	context map[string]string
}

func (e *authError) Error() string {
	return fmt.Sprintf("authentication error: %s (status %d)", e.message, e.status)
}

func (e *authError) Type() ErrorType            { return AuthError }
func (e *authError) StatusCode() int            { return e.status }
func (e *authError) Context() map[string]string { return e.context }

type notFoundError struct {
	message string
	context map[string]string
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.message)
}

func (e *notFoundError) Type() ErrorType            { return NotFoundError }
func (e *notFoundError) StatusCode() int            { return 404 }
func (e *notFoundError) Context() map[string]string { return e.context }

type timeoutError struct {
	message string
	timeout time.Duration
	context map[string]string
	err     error
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timeout error: %s (after %s)", e.message, e.timeout)
}

func (e *timeoutError) Type() ErrorType            { return TimeoutError }
func (e *timeoutError) StatusCode() int            { return 0 }
func (e *timeoutError) Context() map[string]string { return e.context }
func (e *timeoutError) Unwrap() error              { return e.err }

// Timeout returns the configured per-attempt deadline that expired.
func (e *timeoutError) Timeout() time.Duration { return e.timeout }

type configError struct {
	message string
	field   string
}

func (e *configError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("invalid configuration: %s: %s", e.field, e.message)
	}
	return fmt.Sprintf("invalid configuration: %s", e.message)
}

func (e *configError) Type() ErrorType            { return ConfigError }
func (e *configError) StatusCode() int            { return 0 }
func (e *configError) Context() map[string]string { return map[string]string{"field": e.field} }

// NewNetworkError creates a network-kind error, optionally carrying an HTTP
// status and a wrapped transport error.
func NewNetworkError(message string, status int, err error) ClientError {
	return &networkError{message: message, status: status, context: map[string]string{}, err: err}
}

// NewAuthError creates an authentication-kind error for 401/403 responses.
func NewAuthError(message string, status int) ClientError {
	return &authError{message: message, status: status, context: map[string]string{}}
}

// NewNotFoundError creates a not-found-kind error.
func NewNotFoundError(message string) ClientError {
	return &notFoundError{message: message, context: map[string]string{}}
}

// NewTimeoutError creates a timeout-kind error carrying the configured
// per-attempt deadline that expired.
func NewTimeoutError(message string, timeout time.Duration, err error) ClientError {
	return &timeoutError{message: message, timeout: timeout, context: map[string]string{}, err: err}
}

// NewConfigError creates an invalid-configuration error. Configuration errors
// indicate a setup defect and are never retried.
func NewConfigError(message, field string) ClientError {
	return &configError{message: message, field: field}
}

// withRequestContext annotates err with the request's origin+path and verb.
// The raw URL's query string is deliberately dropped.
func withRequestContext(err ClientError, rawURL, method string) ClientError {
	ctx := err.Context()
	if ctx == nil {
		return err
	}
	if u, parseErr := url.Parse(rawURL); parseErr == nil {
		ctx["url"] = u.Scheme + "://" + u.Host + u.Path
	}
	if method != "" {
		ctx["method"] = method
	}
	return err
}
