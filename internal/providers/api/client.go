package api

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

const (
	matchesPath    = "/api/matches"
	identityParam  = "username"
	identityHeader = "username"
)

// Client fetches snapshots from the live-matches server. It performs no
// transport retries of its own; retry policy belongs to the sync session.
type Client struct {
	base    *url.URL
	timeout time.Duration
	client  *retryablehttp.Client
}

// NewClient builds a client for baseURL (for example http://localhost:4000).
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("api url %q has no host", baseURL)
	}
	if timeout <= 0 {
		timeout = providers.DefaultTimeout
	}
	return &Client{
		base:    base,
		timeout: timeout,
		client: providers.NewRetryableClient(providers.HTTPOptions{
			RetryMax:   0,
			HTTPClient: httpClient,
			Logger:     logger,
		}),
	}, nil
}

// FetchMatches implements providers.MatchProvider.
func (c *Client) FetchMatches(ctx context.Context, identity string, filters matches.Filters) ([]matches.Match, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, providers.Unauthorized("Username is required")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := filters.Query()
	q.Set(identityParam, identity)
	u := c.base.JoinPath(matchesPath)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set(identityHeader, identity)
	return providers.GetSnapshot(ctx, c.client, u.String(), header, providers.ErrorBodyMessage)
}
