package datasource

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"syscall"
)

// IsErrorType reports whether err is a ClientError of the given type.
func IsErrorType(err error, errorType ErrorType) bool {
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsNetworkError reports whether err is classified as a network failure, or
// whether the underlying transport error signals one (connection reset or
// refused, unresolved host, generic net.Error).
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if IsErrorType(err, NetworkError) {
		return true
	}
	return isTransportError(err)
}

// IsServerError reports whether err carries a 5xx HTTP status.
func IsServerError(err error) bool {
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		status := clientErr.StatusCode()
		return status >= 500 && status <= 599
	}
	return false
}

// IsHTTPStatusError reports whether err carries exactly the given HTTP status.
func IsHTTPStatusError(err error, statusCode int) bool {
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.StatusCode() == statusCode
	}
	return false
}

// IsRetryable reports whether err represents a transient condition worth
// retrying: network failures, server errors, throttling (429) and timeouts.
// Authentication, not-found and configuration errors are excluded since
// retrying them cannot change the outcome.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return IsNetworkError(err) ||
		IsServerError(err) ||
		IsHTTPStatusError(err, http.StatusTooManyRequests) ||
		IsErrorType(err, TimeoutError)
}

// isTransportError recognizes raw transport-level failures before they have
// been classified into the taxonomy.
func isTransportError(err error) bool {
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// isDeadlineError recognizes context or I/O deadline expiry on an attempt.
func isDeadlineError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded)
}
