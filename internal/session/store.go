package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.etcd.io/bbolt"
)

const DefaultTTL = 24 * time.Hour

var (
	// ErrNoSession is returned when no valid session is stored. Expired
	// sessions are cleared on read and reported the same way.
	ErrNoSession = errors.New("session: no active session")

	bucketSession   = []byte("session")
	bucketFavorites = []byte("favorites")
	currentKey      = []byte("current")
)

// Session is the persisted login.
type Session struct {
	Identity string    `json:"identity"`
	SavedAt  time.Time `json:"savedAt"`
}

// ExpiresAt returns the instant after which the session is no longer valid.
func (s Session) ExpiresAt(ttl time.Duration) time.Time {
	return s.SavedAt.Add(ttl)
}

// StoreOptions configures a Store.
type StoreOptions struct {
	TTL   time.Duration
	Clock clockwork.Clock
	// Timeout bounds how long Open waits for the file lock.
	Timeout time.Duration
}

// Store persists the session and per-identity favorites in a bbolt file.
type Store struct {
	db    *bbolt.DB
	ttl   time.Duration
	clock clockwork.Clock
}

// Open opens (or creates) the store at path.
func Open(path string, opts StoreOptions) (*Store, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: opts.Timeout})
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketSession, bucketFavorites} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, ttl: opts.TTL, clock: opts.Clock}, nil
}

// Close releases the file.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// TTL returns the session validity window.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Save stores identity with the current time.
func (s *Store) Save(identity string) (Session, error) {
	if err := ValidateIdentity(identity); err != nil {
		return Session{}, err
	}
	sess := Session{Identity: identity, SavedAt: s.clock.Now().UTC()}
	raw, err := json.Marshal(sess)
	if err != nil {
		return Session{}, fmt.Errorf("encode session: %w", err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSession).Put(currentKey, raw)
	})
	if err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// Current returns the stored session. A session at or past its TTL is
// deleted and ErrNoSession is returned.
func (s *Store) Current() (Session, error) {
	var (
		sess  Session
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketSession).Get(currentKey)
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &sess)
	})
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	if !found || sess.Identity == "" {
		return Session{}, ErrNoSession
	}
	if !s.clock.Now().Before(sess.ExpiresAt(s.ttl)) {
		if err := s.Clear(); err != nil {
			return Session{}, err
		}
		return Session{}, ErrNoSession
	}
	return sess, nil
}

// Refresh extends a valid session to a full TTL from now.
func (s *Store) Refresh() (Session, error) {
	sess, err := s.Current()
	if err != nil {
		return Session{}, err
	}
	return s.Save(sess.Identity)
}

// Clear removes the stored session. Favorites are kept.
func (s *Store) Clear() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSession).Delete(currentKey)
	})
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
