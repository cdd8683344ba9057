package session

import (
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
)

// Favorites returns the favorite match IDs of identity.
func (s *Store) Favorites(identity string) (matches.IDSet, error) {
	out := matches.NewIDSet()
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketFavorites).Bucket([]byte(identity))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			out[string(k)] = struct{}{}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return out, nil
}

// IsFavorite reports whether matchID is a favorite of identity.
func (s *Store) IsFavorite(identity, matchID string) (bool, error) {
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketFavorites).Bucket([]byte(identity))
		ok = b != nil && b.Get([]byte(matchID)) != nil
		return nil
	})
	return ok, err
}

// AddFavorite marks matchID as a favorite of identity.
func (s *Store) AddFavorite(identity, matchID string) error {
	if err := ValidateIdentity(identity); err != nil {
		return err
	}
	if matchID == "" {
		return fmt.Errorf("add favorite: empty match id")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(bucketFavorites).CreateBucketIfNotExists([]byte(identity))
		if err != nil {
			return fmt.Errorf("add favorite: %w", err)
		}
		return b.Put([]byte(matchID), []byte{1})
	})
}

// RemoveFavorite unmarks matchID. Removing an unknown ID is not an error.
func (s *Store) RemoveFavorite(identity, matchID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketFavorites).Bucket([]byte(identity))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(matchID))
	})
}

// ToggleFavorite flips matchID and reports whether it is now a favorite.
func (s *Store) ToggleFavorite(identity, matchID string) (bool, error) {
	fav, err := s.IsFavorite(identity, matchID)
	if err != nil {
		return false, err
	}
	if fav {
		return false, s.RemoveFavorite(identity, matchID)
	}
	return true, s.AddFavorite(identity, matchID)
}
