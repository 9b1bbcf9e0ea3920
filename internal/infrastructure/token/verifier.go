package token

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Errors returned by Verify. The socket handshake maps these to a
// connect_error frame rather than an HTTP error page.
var (
	ErrNoCredential = errors.New("token: no credential supplied")
	ErrInvalid      = errors.New("token: credential invalid or expired")
)

// ChatClaims is the claim set carried by the short-lived chat credential
// issued by the platform's credential service. Subject is the user id.
type ChatClaims struct {
	jwt.RegisteredClaims
}

// Verifier checks HMAC-signed chat credentials on the websocket handshake.
type Verifier struct {
	secret []byte
	leeway time.Duration
}

// NewVerifier builds a Verifier for the given shared secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret, leeway: 30 * time.Second}
}

// NewVerifierFromEnv reads the shared secret from CHAT_JWT_SECRET.
func NewVerifierFromEnv() (*Verifier, error) {
	secret := os.Getenv("CHAT_JWT_SECRET")
	if secret == "" {
		return nil, errors.New("token: CHAT_JWT_SECRET environment variable is not set")
	}
	return NewVerifier([]byte(secret)), nil
}

// Verify parses and validates the credential and returns the user id it was
// issued for. An empty credential returns ErrNoCredential so callers can
// treat "not logged in" differently from "bad token".
func (v *Verifier) Verify(credential string) (string, error) {
	if credential == "" {
		return "", ErrNoCredential
	}

	claims := &ChatClaims{}
	_, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithLeeway(v.leeway))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalid)
	}
	return claims.Subject, nil
}

// Issue mints a credential for userID, valid for ttl. Used by tests and by
// deployments where the API doubles as the credential source.
func (v *Verifier) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ChatClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(v.secret)
}
