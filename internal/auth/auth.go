// Package auth is the client side of the external identity provider.
// The provider signs short-lived session JWTs for dashboard users; this
// package only verifies them and extracts the stable user identifier.
// Humans are never authenticated here.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession is returned for missing, malformed, expired, or
// wrongly signed session tokens.
var ErrInvalidSession = errors.New("invalid session")

// Verifier validates identity-provider session tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier with the shared HS256 secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// UserID verifies the session token and returns the stable user id
// from its subject claim.
func (v *Verifier) UserID(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidSession
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidSession
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", ErrInvalidSession
	}

	return subject, nil
}
