package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avolkov/relay/internal/domain"
)

type relayClaims struct {
	Username string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HMAC-signed tokens issued by the credential service.
// The subject claim is the user id; "name" carries the display name.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	return &JWTVerifier{secret: []byte(secret)}, nil
}

func (v *JWTVerifier) Verify(token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, ErrUnauthorized
	}

	claims := &relayClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return domain.User{}, ErrUnauthorized
	}
	if claims.Subject == "" {
		return domain.User{}, ErrUnauthorized
	}

	username := claims.Username
	if username == "" {
		username = claims.Subject
	}
	return domain.User{ID: domain.UserID(claims.Subject), Username: username}, nil
}
