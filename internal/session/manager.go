package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
	"github.com/preston-bernstein/live-matches/internal/logging"
	"github.com/preston-bernstein/live-matches/internal/providers"
)

// Manager ties the store to the bus: login and logout persist the change and
// announce it.
type Manager struct {
	store    *Store
	bus      *Bus
	provider providers.MatchProvider
	logger   *slog.Logger
}

// NewManager builds a manager. provider is used to validate identities on
// login; bus may be nil.
func NewManager(store *Store, bus *Bus, provider providers.MatchProvider, logger *slog.Logger) *Manager {
	if bus == nil {
		bus = NewBus()
	}
	return &Manager{store: store, bus: bus, provider: provider, logger: logger}
}

// Bus returns the identity bus.
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Login validates identity by fetching its matches once and then saves and
// announces the session. Fetch failures are returned as-is.
func (m *Manager) Login(ctx context.Context, identity string) (Session, error) {
	if err := ValidateIdentity(identity); err != nil {
		return Session{}, err
	}
	if m.provider == nil {
		return Session{}, providers.ErrProviderUnavailable
	}
	if _, err := m.provider.FetchMatches(ctx, identity, matches.Filters{}); err != nil {
		logging.Warn(m.logger, "login rejected", logging.FieldIdentity, identity, "error", err)
		return Session{}, err
	}
	sess, err := m.store.Save(identity)
	if err != nil {
		return Session{}, err
	}
	logging.Info(m.logger, "logged in", logging.FieldIdentity, identity)
	m.bus.Publish(Event{Kind: EventLogin, Identity: identity})
	return sess, nil
}

// Logout clears the stored session and announces it, even when none was
// stored.
func (m *Manager) Logout() error {
	if err := m.store.Clear(); err != nil {
		return err
	}
	m.bus.Publish(Event{Kind: EventLogout})
	return nil
}

// Current returns the active session, refreshing its timestamp when refresh
// is set.
func (m *Manager) Current(refresh bool) (Session, error) {
	if refresh {
		return m.store.Refresh()
	}
	return m.store.Current()
}

// LoggedIn reports whether a valid session exists.
func (m *Manager) LoggedIn() bool {
	_, err := m.store.Current()
	return err == nil
}

// IsNoSession reports whether err means nobody is logged in.
func IsNoSession(err error) bool {
	return errors.Is(err, ErrNoSession)
}
