package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Kind classifies a failed attempt.
type Kind int

const (
	KindUnknown Kind = iota
	KindRateLimited
	KindTransient
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindTransient:
		return "transient"
	case KindAuth:
		return "auth_or_permission"
	default:
		return "unknown"
	}
}

// Error is a classified failure returned by remote adapters.
type Error struct {
	Kind       Kind
	RetryAfter time.Duration
	Err        error
}

// NewError wraps cause with a classification.
func NewError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

// RateLimited wraps cause as a rate-limit failure with an optional server hint.
func RateLimited(cause error, after time.Duration) *Error {
	return &Error{Kind: KindRateLimited, RetryAfter: after, Err: cause}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ExhaustedError is returned once every allowed attempt has failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Classify maps err onto a Kind. Errors that carry no classification fall
// back to Transient for timeouts and network failures and Unknown otherwise.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindTransient
	}
	return KindUnknown
}

// IsAuth reports whether err, or anything it wraps, is an auth or permission
// failure.
func IsAuth(err error) bool {
	var classified *Error
	return errors.As(err, &classified) && classified.Kind == KindAuth
}

// KindForStatus classifies an HTTP status code.
func KindForStatus(code int) Kind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusRequestTimeout || code >= 500:
		return KindTransient
	default:
		return KindUnknown
	}
}

// StatusError builds a classified error for a failed HTTP response.
func StatusError(resp *http.Response, body string) *Error {
	kind := KindForStatus(resp.StatusCode)
	cause := fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(body))
	if kind == KindRateLimited {
		return RateLimited(cause, ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()))
	}
	return NewError(kind, cause)
}

// ParseRetryAfter reads a Retry-After header given either in seconds or as an
// HTTP date. Unparseable or past values yield zero.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	at, err := http.ParseTime(value)
	if err != nil {
		return 0
	}
	if d := at.Sub(now); d > 0 {
		return d
	}
	return 0
}
