package session

import (
	"errors"
	"regexp"
)

// ErrInvalidIdentity is returned for an empty or malformed identity.
var ErrInvalidIdentity = errors.New("session: invalid identity")

var identityPattern = regexp.MustCompile(`^[A-Za-z0-9._@-]{1,64}$`)

// ValidateIdentity checks that identity is a usable username.
func ValidateIdentity(identity string) error {
	if !identityPattern.MatchString(identity) {
		return ErrInvalidIdentity
	}
	return nil
}
