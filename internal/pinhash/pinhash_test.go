package pinhash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashIsSaltedButVerifiable(t *testing.T) {
	a, err := Hash("1234")
	require.NoError(t, err)
	b, err := Hash("1234")
	require.NoError(t, err)
	require.NotEqual(t, a, b, "two hashes of the same pin must differ")

	require.True(t, Verify("1234", a))
	require.True(t, Verify("1234", b))
	require.False(t, Verify("9999", a))
}

func TestHashRecordShape(t *testing.T) {
	record, err := Hash("0007")
	require.NoError(t, err)
	parts := strings.Split(record, "$")
	require.Len(t, parts, 3)
	require.Equal(t, "scrypt", parts[0])
}

func TestRejectsBadShapes(t *testing.T) {
	for _, pin := range []string{"12", "12345", "abcd", "", "12a4", "１２３４"} {
		_, err := Hash(pin)
		require.ErrorIs(t, err, ErrBadPin, "pin %q", pin)
		require.False(t, Verify(pin, "whatever"), "pin %q", pin)
	}
}

func TestLegacyPlaintextFallback(t *testing.T) {
	require.True(t, Verify("4321", "4321"))
	require.False(t, Verify("4321", "4322"))
}

func TestVerifyRejectsCorruptRecords(t *testing.T) {
	require.False(t, Verify("1234", "scrypt$not!base64$AAAA"))
	require.False(t, Verify("1234", "scrypt$AAAA$not!base64"))
}
