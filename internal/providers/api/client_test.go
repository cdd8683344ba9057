package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
	"github.com/preston-bernstein/live-matches/internal/providers"
)

func TestFetchMatchesBuildsRequest(t *testing.T) {
	var gotPath, gotUser, gotHeader, gotStatus string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser = r.URL.Query().Get("username")
		gotHeader = r.Header.Get("username")
		gotStatus = r.URL.Query().Get(matches.ParamStatus)
		_, _ = w.Write([]byte(`{"matches":[{"id":"a","status":"upcoming","matchTime":"2024-05-01T18:00:00Z"}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/", 0, nil, nil)
	require.NoError(t, err)

	list, err := c.FetchMatches(context.Background(), "fan@example.com", matches.Filters{Status: matches.StatusUpcoming})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "/api/matches", gotPath)
	assert.Equal(t, "fan@example.com", gotUser)
	assert.Equal(t, "fan@example.com", gotHeader)
	assert.Equal(t, "upcoming", gotStatus)
	assert.False(t, list[0].StartTime.IsZero(), "matchTime alias should populate StartTime")
}

func TestFetchMatchesClassifiesStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    providers.Kind
		message string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"Unauthorized"}`, providers.KindUnauthorized, "Unauthorized"},
		{"gateway timeout", http.StatusGatewayTimeout, `{"error":"Request timeout - API is taking too long to respond"}`, providers.KindTimeout, "Request timeout - API is taking too long to respond"},
		{"unavailable", http.StatusServiceUnavailable, `{"error":"Unable to connect to the matches API"}`, providers.KindUnreachable, "Unable to connect to the matches API"},
		{"server error without body", http.StatusInternalServerError, ``, providers.KindServerError, "HTTP 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewClient(srv.URL, 0, nil, nil)
			require.NoError(t, err)

			_, err = c.FetchMatches(context.Background(), "u", matches.Filters{})
			fe, ok := providers.AsFetchError(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, fe.Kind)
			assert.Equal(t, tt.message, fe.Message)
		})
	}
}

func TestFetchMatchesRejectsInvalidPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"a","status":"live"},{"id":"a","status":"live"}]`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, 0, nil, nil)
	require.NoError(t, err)

	_, err = c.FetchMatches(context.Background(), "u", matches.Filters{})
	require.ErrorIs(t, err, matches.ErrDuplicateID)
}

func TestFetchMatchesEmptyIdentity(t *testing.T) {
	c, err := NewClient("http://localhost:4000", 0, nil, nil)
	require.NoError(t, err)
	_, err = c.FetchMatches(context.Background(), "  ", matches.Filters{})
	fe, ok := providers.AsFetchError(err)
	require.True(t, ok)
	assert.False(t, fe.Retryable())
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient("not a url", 0, nil, nil)
	assert.Error(t, err)
}
