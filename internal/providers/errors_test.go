package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"wrapped deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), KindTimeout},
		{"net timeout", &net.OpError{Op: "read", Err: timeoutErr{}}, KindTimeout},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.invalid"}, KindUnreachable},
		{"refused", &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, KindUnreachable},
		{"reset", fmt.Errorf("read: %w", syscall.ECONNRESET), KindUnreachable},
		{"other", errors.New("boom"), KindUnknown},
		{"already classified", Unauthorized("nope"), KindUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Kind != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got.Kind)
			}
			if !errors.Is(got, tt.err) {
				t.Fatalf("expected classified error to wrap original")
			}
		})
	}
	if Classify(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusUnauthorized, KindUnauthorized},
		{http.StatusForbidden, KindUnauthorized},
		{http.StatusRequestTimeout, KindTimeout},
		{http.StatusGatewayTimeout, KindTimeout},
		{http.StatusServiceUnavailable, KindUnreachable},
		{http.StatusInternalServerError, KindServerError},
		{http.StatusBadGateway, KindServerError},
	}
	for _, tt := range tests {
		got := FromStatus(tt.status, "")
		if got.Kind != tt.want || got.Status != tt.status {
			t.Fatalf("status %d: expected %s, got %+v", tt.status, tt.want, got)
		}
	}
}

func TestFetchErrorMessageAndRetryable(t *testing.T) {
	fe := FromStatus(500, "API returned 500: Internal Server Error")
	if fe.Error() != "API returned 500: Internal Server Error (status=500)" {
		t.Fatalf("unexpected message %q", fe.Error())
	}
	if !fe.Retryable() {
		t.Fatal("server errors are retryable")
	}
	if Unauthorized("").Retryable() {
		t.Fatal("unauthorized must not be retryable")
	}
	if (&FetchError{Kind: KindTimeout}).Error() != "timeout" {
		t.Fatal("expected kind name as fallback message")
	}
	inner := errors.New("inner")
	if (&FetchError{Err: inner}).Error() != "inner" {
		t.Fatal("expected wrapped error message")
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(nil) {
		t.Fatal("nil is not retryable")
	}
	if !IsRetryable(errors.New("boom")) {
		t.Fatal("unknown errors are retryable")
	}
	if IsRetryable(fmt.Errorf("wrap: %w", Unauthorized("no user"))) {
		t.Fatal("wrapped unauthorized must not be retryable")
	}
}

func TestAsFetchError(t *testing.T) {
	if _, ok := AsFetchError(errors.New("plain")); ok {
		t.Fatal("expected plain error not to unwrap")
	}
	fe, ok := AsFetchError(fmt.Errorf("wrap: %w", FromStatus(503, "")))
	if !ok || fe.Kind != KindUnreachable {
		t.Fatalf("expected unwrapped fetch error, got %+v", fe)
	}
}
