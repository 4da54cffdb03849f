// Package identity verifies the bearer identity tokens minted by the account
// provider. These are ordinary JWTs and are distinct from the compact guest and
// verifier-session tokens in internal/token.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gatepass/gatepass/internal/shared"
)

// Verifier validates identity tokens and extracts the user id.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier constructs a Verifier. Refuses an empty secret.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("identity: jwt secret must not be empty")
	}
	return &Verifier{secret: []byte(secret), now: time.Now}, nil
}

// Verify parses and validates the token and returns the subject user id. Every
// failure is shared.ErrUnauthorized; the cause is not distinguished to callers.
func (v *Verifier) Verify(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", shared.ErrUnauthorized
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: identity token", shared.ErrUnauthorized)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: identity token", shared.ErrUnauthorized)
	}
	return claims.Subject, nil
}

// WithClock overrides the time source; tests only.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Mint signs an identity token for the given user id. Used by the seed tool and
// tests; production tokens come from the account provider.
func (v *Verifier) Mint(userID string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
