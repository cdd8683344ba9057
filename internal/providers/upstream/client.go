package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
	"github.com/preston-bernstein/live-matches/internal/providers"
)

// IdentityHeader carries the caller identity to the matches API.
const IdentityHeader = "username"

// Config holds upstream client settings.
type Config struct {
	URL        string
	Timeout    time.Duration
	RetryMax   int
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client fetches snapshots from the external matches API.
type Client struct {
	endpoint *url.URL
	timeout  time.Duration
	client   *retryablehttp.Client
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return nil, fmt.Errorf("upstream url is required")
	}
	endpoint, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if endpoint.Scheme == "" {
		endpoint.Scheme = "http"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = providers.DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		timeout:  cfg.Timeout,
		client: providers.NewRetryableClient(providers.HTTPOptions{
			RetryMax:   cfg.RetryMax,
			HTTPClient: cfg.HTTPClient,
			Logger:     cfg.Logger,
		}),
	}, nil
}

// FetchMatches implements providers.MatchProvider. Upstream HTTP failures
// carry "API returned <code>: <text>" so the proxy can pass them through.
func (c *Client) FetchMatches(ctx context.Context, identity string, filters matches.Filters) ([]matches.Match, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, providers.Unauthorized("Username is required")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := *c.endpoint
	q := u.Query()
	for k, vals := range filters.Query() {
		q[k] = vals
	}
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set(IdentityHeader, identity)
	return providers.GetSnapshot(ctx, c.client, u.String(), header, providers.StatusTextMessage)
}
