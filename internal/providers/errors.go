package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// ErrProviderUnavailable is returned when no provider is wired.
var ErrProviderUnavailable = errors.New("provider unavailable")

// Kind classifies a failed fetch. It decides whether a retry is attempted.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindUnreachable
	KindTimeout
	KindServerError
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindUnreachable:
		return "unreachable"
	case KindTimeout:
		return "timeout"
	case KindServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// FetchError captures a classified failure from a match provider.
type FetchError struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Kind == KindServerError && e.Status > 0 {
		return fmt.Sprintf("%s (status=%d)", msg, e.Status)
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure class allows an automatic retry.
func (e *FetchError) Retryable() bool {
	return e.Kind != KindUnauthorized
}

// AsFetchError attempts to unwrap an error into a FetchError.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsRetryable classifies err and reports whether it may be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).Retryable()
}

// Unauthorized builds the non-retryable failure for a missing or rejected identity.
func Unauthorized(msg string) *FetchError {
	return &FetchError{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: msg}
}

// Classify maps an arbitrary error onto the failure taxonomy. Errors that are
// already classified are returned unchanged.
func Classify(err error) *FetchError {
	if err == nil {
		return nil
	}
	if fe, ok := AsFetchError(err); ok {
		return fe
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &FetchError{Kind: KindTimeout, Message: "request timeout", Err: err}
	case isTimeout(err):
		return &FetchError{Kind: KindTimeout, Message: "request timeout", Err: err}
	case isUnreachable(err):
		return &FetchError{Kind: KindUnreachable, Message: "unable to connect to the matches API", Err: err}
	default:
		return &FetchError{Kind: KindUnknown, Err: err}
	}
}

// FromStatus maps a non-2xx HTTP response onto the failure taxonomy.
func FromStatus(status int, msg string) *FetchError {
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &FetchError{Kind: KindUnauthorized, Status: status, Message: msg}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &FetchError{Kind: KindTimeout, Status: status, Message: msg}
	case http.StatusServiceUnavailable:
		return &FetchError{Kind: KindUnreachable, Status: status, Message: msg}
	default:
		return &FetchError{Kind: KindServerError, Status: status, Message: msg}
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isUnreachable(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
