// Package fetcher defines the profile acquisition boundary: the Fetcher
// interface, the FetchError taxonomy the pipeline's retry policy keys on,
// and an HTTP implementation against a profile-data provider API.
package fetcher

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ErrorKind classifies a fetch failure for retry purposes.
type ErrorKind string

const (
	// KindTransient errors (timeouts, throttling, 5xx) are safe to retry.
	KindTransient ErrorKind = "transient"
	// KindPermanent errors (not found, access denied, malformed URL) fail
	// immediately without retry.
	KindPermanent ErrorKind = "permanent"
)

// FetchError is the typed failure returned by a Fetcher. All fetch failures
// are represented as a FetchError; nothing else crosses the boundary.
type FetchError struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Message    string
	Cause      error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: %s (%s, status %d)", e.URL, e.Message, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s (%s)", e.URL, e.Message, e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Transient wraps err as a retryable fetch failure.
func Transient(url, message string, cause error) *FetchError {
	return &FetchError{Kind: KindTransient, URL: url, Message: message, Cause: cause}
}

// Permanent wraps err as a non-retryable fetch failure.
func Permanent(url, message string, cause error) *FetchError {
	return &FetchError{Kind: KindPermanent, URL: url, Message: message, Cause: cause}
}

// IsTransient reports whether err should be retried: an explicit transient
// FetchError, a network timeout, or a connection-level failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind == KindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// Heuristics for wrapped transport errors that lose their type.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether the status code indicates a
// server-side condition worth retrying.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
