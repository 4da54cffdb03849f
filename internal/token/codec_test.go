package token

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSignVerifyRoundTrip(t *testing.T) {
	now := time.Date(2025, 12, 15, 10, 0, 0, 0, time.UTC)
	codec, err := New("sekret")
	require.NoError(t, err)
	codec.WithClock(fixedClock(now))

	claims := Claims{
		ExpiresAt:    now.Add(time.Hour).Unix(),
		Typ:          TypGuest,
		OrgID:        "org-1",
		CredentialID: "crd-1",
	}
	tok, err := codec.Sign(claims)
	require.NoError(t, err)

	got, err := codec.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, Version, got.V)
	require.Equal(t, now.Unix(), got.IssuedAt)
	require.Equal(t, claims.ExpiresAt, got.ExpiresAt)
	require.Equal(t, TypGuest, got.Typ)
	require.Equal(t, "org-1", got.OrgID)
	require.Equal(t, "crd-1", got.CredentialID)
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	codec, _ := New("sekret")
	tok, err := codec.Sign(Claims{ExpiresAt: time.Now().Add(time.Hour).Unix()})
	require.NoError(t, err)

	payload, sig, _ := strings.Cut(tok, ".")
	for i := 0; i < len(sig); i++ {
		flipped := []byte(sig)
		if flipped[i] == 'A' {
			flipped[i] = 'B'
		} else {
			flipped[i] = 'A'
		}
		_, err := codec.Verify(payload + "." + string(flipped))
		require.ErrorIs(t, err, ErrInvalidToken, "bit flip at %d accepted", i)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	a, _ := New("secret-a")
	b, _ := New("secret-b")
	tok, err := a.Sign(Claims{ExpiresAt: time.Now().Add(time.Hour).Unix()})
	require.NoError(t, err)
	_, err = b.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpiryBoundary(t *testing.T) {
	now := time.Date(2025, 12, 15, 10, 0, 0, 0, time.UTC)
	codec, _ := New("sekret")
	codec.WithClock(fixedClock(now))

	atNow, err := codec.Sign(Claims{ExpiresAt: now.Unix()})
	require.NoError(t, err)
	_, err = codec.Verify(atNow)
	require.ErrorIs(t, err, ErrInvalidToken)

	oneAhead, err := codec.Sign(Claims{ExpiresAt: now.Unix() + 1})
	require.NoError(t, err)
	_, err = codec.Verify(oneAhead)
	require.NoError(t, err)
}

func TestVerifyRejectsMalformedStructure(t *testing.T) {
	codec, _ := New("sekret")
	for _, tok := range []string{"", "abc", "a.b.c", ".sig", "not base64!.sig"} {
		_, err := codec.Verify(tok)
		require.ErrorIs(t, err, ErrInvalidToken, "token %q accepted", tok)
	}
}

func TestVerifyRejectsBadClaims(t *testing.T) {
	codec, _ := New("sekret")
	sign := func(payload string) string {
		encoded := encoding.EncodeToString([]byte(payload))
		return encoded + "." + encoding.EncodeToString(codec.mac(encoded))
	}
	exp := strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10)
	cases := map[string]string{
		"unsupported version": `{"v":2,"iat":1,"exp":` + exp + `}`,
		"missing version":     `{"iat":1,"exp":` + exp + `}`,
		"missing iat":         `{"v":1,"exp":` + exp + `}`,
		"missing exp":         `{"v":1,"iat":1}`,
		"string exp":          `{"v":1,"iat":1,"exp":"soon"}`,
		"not json":            `hello`,
	}
	for name, payload := range cases {
		_, err := codec.Verify(sign(payload))
		require.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestNewRejectsEmptySecret(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}
