// Package auth validates the bearer credential a client presents when it
// opens a relay connection. Nothing past the handshake touches credentials.
package auth

import (
	"errors"

	"github.com/avolkov/relay/internal/domain"
)

// ErrUnauthorized covers every credential failure: missing, malformed,
// expired, or signed with the wrong key. Terminal for the connection.
var ErrUnauthorized = errors.New("unauthorized")

// TokenVerifier resolves a bearer token to the connecting user.
type TokenVerifier interface {
	Verify(token string) (domain.User, error)
}
