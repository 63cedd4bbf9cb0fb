// Package auth resolves opaque credential tokens into stable user identities
// and manages the credential records behind the registration and login
// endpoints. The chat core only depends on the Verifier interface; the rest
// of the package exists so the token lifecycle is complete end to end.
package auth

import "errors"

// Sentinel errors callers branch on.
var (
	// ErrInvalidToken is returned for a missing, malformed, expired, or
	// badly signed credential token. The connection is refused with no
	// state mutation.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrInvalidCredentials is returned for a failed username/password login.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrUserExists is returned when registering an already taken username.
	ErrUserExists = errors.New("auth: username already taken")
)

// Identity is the stable identity resolved from a credential token. It is
// immutable for the lifetime of the connection that presented the token.
type Identity struct {
	UserID      string
	DisplayName string
}

// Verifier validates a credential token and returns the identity it carries.
type Verifier interface {
	Verify(token string) (Identity, error)
}
