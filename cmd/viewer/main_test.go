package main

import (
	"bytes"
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
	"github.com/preston-bernstein/live-matches/internal/testutil"
)

type harness struct {
	t      *testing.T
	apiURL string
	db     string
}

func newHarness(t *testing.T, status int, body any) harness {
	t.Helper()
	srv := testutil.JSONServer(t, status, body)
	return harness{t: t, apiURL: srv.URL, db: filepath.Join(t.TempDir(), "session.db")}
}

func (h harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	full := append([]string{"--api-url", h.apiURL, "--session-db", h.db, "--log-level", "error"}, args...)
	err := run(context.Background(), full, strings.NewReader(stdin), &out)
	return out.String(), err
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t, http.StatusOK, matches.NewListResponse(testutil.SampleSnapshot("m1"), testutil.MustParseRFC3339("2024-05-01T12:00:00Z")))

	out, err := h.run("", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "not logged in\n", out)

	out, err = h.run("", "login", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as alice")

	out, err = h.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "alice (expires ")

	out, err = h.run("", "logout")
	require.NoError(t, err)
	assert.Equal(t, "logged out\n", out)

	out, err = h.run("", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "not logged in\n", out)
}

func TestLoginRejectedByServer(t *testing.T) {
	h := newHarness(t, http.StatusUnauthorized, map[string]string{"error": "Unknown user"})

	_, err := h.run("", "login", "mallory")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown user")

	out, err := h.run("", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "not logged in\n", out)
}

func TestLoginRejectsInvalidUsername(t *testing.T) {
	h := newHarness(t, http.StatusOK, []matches.Match{})
	_, err := h.run("", "login", "not valid!")
	require.Error(t, err)
}

func TestFavoritesCommands(t *testing.T) {
	h := newHarness(t, http.StatusOK, []matches.Match{})

	_, err := h.run("", "favorites", "list")
	require.Error(t, err, "favorites need a session")

	_, err = h.run("", "login", "alice")
	require.NoError(t, err)

	out, err := h.run("", "favorites", "add", "m2")
	require.NoError(t, err)
	assert.Equal(t, "added m2\n", out)

	_, err = h.run("", "favorites", "add", "m1")
	require.NoError(t, err)

	out, err = h.run("", "favorites", "toggle", "m2")
	require.NoError(t, err)
	assert.Equal(t, "removed m2\n", out)

	out, err = h.run("", "favorites", "list")
	require.NoError(t, err)
	assert.Equal(t, "m1\n", out)

	out, err = h.run("", "favorites", "remove", "m1")
	require.NoError(t, err)
	assert.Equal(t, "removed m1\n", out)

	out, err = h.run("", "favorites", "list")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestWatchRequiresSession(t *testing.T) {
	h := newHarness(t, http.StatusOK, []matches.Match{})
	_, err := h.run("q\n", "watch", "--no-push")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestWatchRejectsInvalidFilters(t *testing.T) {
	h := newHarness(t, http.StatusOK, []matches.Match{})
	_, err := h.run("", "login", "alice")
	require.NoError(t, err)

	_, err = h.run("q\n", "watch", "--no-push", "--sort-by", "bogus")
	require.Error(t, err)
}

func TestWatchQuitsOnCommand(t *testing.T) {
	h := newHarness(t, http.StatusOK, testutil.SampleSnapshot("m1"))
	_, err := h.run("", "login", "alice")
	require.NoError(t, err)

	_, err = h.run("q\n", "watch", "--no-push", "--league", "Test League")
	require.NoError(t, err)
}

func TestPushURL(t *testing.T) {
	assert.Equal(t, "http://localhost:4000/ws", pushURL("http://localhost:4000/", ""))
	assert.Equal(t, "ws://push.example/ws", pushURL("http://localhost:4000", "ws://push.example/ws"))
}
