// Package token implements the compact signed-token scheme used for guest
// invitations and verifier sessions: base64url(JSON claims) + "." +
// base64url(HMAC-SHA256). Tokens are stateless; expiry lives in the claims.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Version is the only claims version this codec signs or accepts.
const Version = 1

// TypGuest marks guest invitation claims.
const TypGuest = "guest"

// ErrInvalidToken covers every verification failure: malformed structure, bad
// signature, unsupported version, expiry. Callers must not learn which.
var ErrInvalidToken = errors.New("invalid or expired token")

var encoding = base64.RawURLEncoding

// Claims is the union of the two claim shapes (guest invitation and verifier
// session). Unused fields are omitted from the wire form.
type Claims struct {
	V            int    `json:"v"`
	IssuedAt     int64  `json:"iat"`
	ExpiresAt    int64  `json:"exp"`
	Typ          string `json:"typ,omitempty"`
	OrgID        string `json:"orgId,omitempty"`
	CredentialID string `json:"credentialId,omitempty"`
	StaffID      string `json:"staffId,omitempty"`
	UserID       string `json:"userId,omitempty"`
	DeviceID     string `json:"deviceId,omitempty"`
}

// Codec signs and verifies tokens with a single shared secret.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// New constructs a Codec. An empty secret is refused so a misconfigured
// deployment fails closed instead of signing with a guessable key.
func New(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token: signing secret must not be empty")
	}
	return &Codec{secret: []byte(secret), now: time.Now}, nil
}

// Sign serializes claims and appends their MAC. The version is forced to the
// supported value; IssuedAt defaults to now when unset.
func (c *Codec) Sign(claims Claims) (string, error) {
	claims.V = Version
	if claims.IssuedAt == 0 {
		claims.IssuedAt = c.now().Unix()
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	encoded := encoding.EncodeToString(payload)
	return encoded + "." + encoding.EncodeToString(c.mac(encoded)), nil
}

// Verify checks structure, signature, version and expiry, in that order, and
// only then returns the claims. Every failure maps to ErrInvalidToken.
func (c *Codec) Verify(tok string) (Claims, error) {
	encoded, sig, ok := strings.Cut(tok, ".")
	if !ok || encoded == "" || strings.Contains(sig, ".") {
		return Claims{}, ErrInvalidToken
	}
	got, err := encoding.DecodeString(sig)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	// hmac.Equal is an equal-length check plus constant-time byte compare.
	if !hmac.Equal(got, c.mac(encoded)) {
		return Claims{}, ErrInvalidToken
	}
	payload, err := encoding.DecodeString(encoded)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	var wire struct {
		V            *int   `json:"v"`
		IssuedAt     *int64 `json:"iat"`
		ExpiresAt    *int64 `json:"exp"`
		Typ          string `json:"typ"`
		OrgID        string `json:"orgId"`
		CredentialID string `json:"credentialId"`
		StaffID      string `json:"staffId"`
		UserID       string `json:"userId"`
		DeviceID     string `json:"deviceId"`
	}
	if err := json.Unmarshal(payload, &wire); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if wire.V == nil || *wire.V != Version || wire.IssuedAt == nil || wire.ExpiresAt == nil {
		return Claims{}, ErrInvalidToken
	}
	if *wire.ExpiresAt <= c.now().Unix() {
		return Claims{}, ErrInvalidToken
	}
	return Claims{
		V:            *wire.V,
		IssuedAt:     *wire.IssuedAt,
		ExpiresAt:    *wire.ExpiresAt,
		Typ:          wire.Typ,
		OrgID:        wire.OrgID,
		CredentialID: wire.CredentialID,
		StaffID:      wire.StaffID,
		UserID:       wire.UserID,
		DeviceID:     wire.DeviceID,
	}, nil
}

func (c *Codec) mac(encoded string) []byte {
	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(encoded))
	return h.Sum(nil)
}

// WithClock overrides the time source; tests only.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}
