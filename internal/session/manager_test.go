package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
	"github.com/preston-bernstein/live-matches/internal/providers"
	"github.com/preston-bernstein/live-matches/internal/providers/mocks"
	"github.com/preston-bernstein/live-matches/internal/testutil"
)

func TestManagerLoginValidatesByFetching(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockMatchProvider(ctrl)
	provider.EXPECT().
		FetchMatches(gomock.Any(), "alice", matches.Filters{}).
		Return(testutil.SampleSnapshot("a"), nil)

	store, _ := openTestStore(t)
	bus := NewBus()
	var events []Event
	bus.Subscribe(func(ev Event) { events = append(events, ev) })

	m := NewManager(store, bus, provider, nil)
	sess, err := m.Login(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.Identity)
	assert.True(t, m.LoggedIn())
	assert.Equal(t, []Event{{Kind: EventLogin, Identity: "alice"}}, events)

	require.NoError(t, m.Logout())
	assert.False(t, m.LoggedIn())
	_, err = m.Current(false)
	assert.True(t, IsNoSession(err))
	assert.Equal(t, EventLogout, events[1].Kind)
}

func TestManagerLoginRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockMatchProvider(ctrl)
	rejected := providers.FromStatus(401, "Invalid username")
	provider.EXPECT().FetchMatches(gomock.Any(), "mallory", gomock.Any()).Return(nil, rejected)

	store, _ := openTestStore(t)
	m := NewManager(store, nil, provider, nil)
	published := 0
	m.Bus().Subscribe(func(Event) { published++ })

	_, err := m.Login(context.Background(), "mallory")
	require.ErrorIs(t, err, rejected)
	assert.False(t, m.LoggedIn())
	assert.Zero(t, published)
}

func TestManagerLoginInvalidIdentitySkipsFetch(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockMatchProvider(ctrl)
	store, _ := openTestStore(t)

	_, err := NewManager(store, nil, provider, nil).Login(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestManagerCurrentRefresh(t *testing.T) {
	store, clock := openTestStore(t)
	m := NewManager(store, nil, testutil.GoodProvider{}, nil)
	_, err := m.Login(context.Background(), "alice")
	require.NoError(t, err)

	clock.Advance(DefaultTTL / 2)
	sess, err := m.Current(true)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().UTC(), sess.SavedAt)
}
