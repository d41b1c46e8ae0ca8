// Package identity defines canonical chat identities and the boundary to
// the external identity provider.
package identity

import (
	"errors"
	"strings"
)

// An Identity is a canonical (trimmed, lowercased) email address. Two
// identities are equal iff their canonical forms are equal; display names
// are advisory and never used for authorization.
type Identity = string

var ErrInvalidIdentity = errors.New("invalid identity")

// Canonicalize folds an email claim into its canonical form. An empty
// result is a precondition violation, never silently accepted.
func Canonicalize(email string) (Identity, error) {
	canonical := strings.ToLower(strings.TrimSpace(email))
	if canonical == "" {
		return "", ErrInvalidIdentity
	}
	return canonical, nil
}

// Equal reports whether two raw email claims name the same identity.
func Equal(a, b string) bool {
	left, err := Canonicalize(a)
	if err != nil {
		return false
	}
	right, err := Canonicalize(b)
	if err != nil {
		return false
	}
	return left == right
}
