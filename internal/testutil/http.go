package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Serve executes a request against the provided handler and returns the recorder.
func Serve(h http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// ServeRequest executes the given request against the handler.
func ServeRequest(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// AssertStatus verifies the response status code.
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if err := statusError(rr, want); err != nil {
		t.Fatal(err)
	}
}

// DecodeJSON decodes the recorder body into dest, failing the test on error.
func DecodeJSON(t *testing.T, rr *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := decodeJSONBody(rr, dest); err != nil {
		t.Fatal(err)
	}
}

// JSONServer starts an httptest server that answers every request with status
// and the JSON encoding of body. The server is closed on test cleanup.
func JSONServer(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func statusError(rr *httptest.ResponseRecorder, want int) error {
	if rr.Code == want {
		return nil
	}
	body := rr.Body.String()
	if len(body) > 512 {
		body = body[:512]
	}
	return fmt.Errorf("expected status %d, got %d body=%s", want, rr.Code, body)
}

func decodeJSONBody(rr *httptest.ResponseRecorder, dest any) error {
	if err := json.NewDecoder(rr.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
