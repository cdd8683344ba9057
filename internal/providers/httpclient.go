package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
)

const (
	// DefaultTimeout bounds a whole fetch, transport retries included.
	DefaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

// HTTPOptions configures the shared retrying HTTP client.
type HTTPOptions struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

// NewRetryableClient builds a go-retryablehttp client that only retries
// connection failures and 429/502/503/504 responses. Timeouts and 401s are
// returned at once. Exhausted retries hand back the last response unchanged
// so callers can classify its status.
func NewRetryableClient(opts HTTPOptions) *retryablehttp.Client {
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = 100 * time.Millisecond
	}
	if opts.RetryWaitMax < opts.RetryWaitMin {
		opts.RetryWaitMax = 10 * opts.RetryWaitMin
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	client := &retryablehttp.Client{
		HTTPClient:   httpClient,
		RetryMax:     opts.RetryMax,
		RetryWaitMin: opts.RetryWaitMin,
		RetryWaitMax: opts.RetryWaitMax,
		Backoff:      retryablehttp.DefaultBackoff,
		CheckRetry:   checkRetry,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}
	if opts.Logger != nil {
		// *slog.Logger satisfies retryablehttp.LeveledLogger.
		client.Logger = opts.Logger
	}
	return client
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return Classify(err).Kind == KindUnreachable, nil
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	default:
		return false, nil
	}
}

// ErrorMessageFunc renders the message for a non-2xx response.
type ErrorMessageFunc func(status int, body []byte) string

// GetSnapshot performs a GET through client and decodes the snapshot. Non-2xx
// responses become *FetchError via FromStatus with a message built by msg.
func GetSnapshot(ctx context.Context, client *retryablehttp.Client, url string, header http.Header, msg ErrorMessageFunc) ([]matches.Match, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, Classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, FromStatus(resp.StatusCode, msg(resp.StatusCode, body))
	}
	list, err := matches.DecodeSnapshot(resp.Body)
	if err != nil {
		if fe := Classify(err); fe.Kind != KindUnknown {
			return nil, fe
		}
		return nil, &FetchError{Kind: KindServerError, Message: "invalid matches payload", Err: err}
	}
	return list, nil
}

// StatusTextMessage renders "API returned <code>: <text>".
func StatusTextMessage(status int, _ []byte) string {
	return fmt.Sprintf("API returned %d: %s", status, http.StatusText(status))
}

// ErrorBodyMessage reads an {"error": "..."} body, falling back to "HTTP <code>".
func ErrorBodyMessage(status int, body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		return payload.Error
	}
	return fmt.Sprintf("HTTP %d", status)
}
