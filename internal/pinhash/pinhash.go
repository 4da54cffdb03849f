// Package pinhash hashes and verifies 4-digit staff PINs with scrypt.
// Stored records look like "scrypt$<salt-b64>$<key-b64>". Records without the
// tag are legacy bootstrap rows compared verbatim in constant time; Hash never
// produces them.
package pinhash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	tag     = "scrypt"
	saltLen = 16
	keyLen  = 32
	scryptN = 32768
	scryptR = 8
	scryptP = 1
)

// ErrBadPin is returned when the PIN is not exactly four digits.
var ErrBadPin = errors.New("pinhash: pin must be 4 digits")

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// ValidShape reports whether the PIN matches the strict 4-digit pattern.
func ValidShape(pin string) bool {
	return pinPattern.MatchString(pin)
}

// Hash derives a fresh salted record for a PIN. Two calls with the same PIN
// produce different records.
func Hash(pin string) (string, error) {
	if !ValidShape(pin) {
		return "", ErrBadPin
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key, err := scrypt.Key([]byte(pin), salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return "", err
	}
	return tag + "$" + base64.RawStdEncoding.EncodeToString(salt) + "$" +
		base64.RawStdEncoding.EncodeToString(key), nil
}

// Verify checks a PIN against a stored record. Shape failures and every decode
// or mismatch path report false; no error detail leaks which check failed.
func Verify(pin, stored string) bool {
	if !ValidShape(pin) {
		return false
	}
	parts := strings.Split(stored, "$")
	if len(parts) != 3 || parts[0] != tag {
		// Legacy plaintext row. Constant-time equality keeps the shim from
		// becoming a timing oracle; new records always carry the tag.
		return subtle.ConstantTimeCompare([]byte(pin), []byte(stored)) == 1
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return false
	}
	got, err := scrypt.Key([]byte(pin), salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}
