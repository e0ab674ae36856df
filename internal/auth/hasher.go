// Package auth salts and hashes account passwords for storage.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength = 16
	iterations = 65536
	keyLength  = 32

	// ':' never appears in base64 output, so it is a safe delimiter.
	delimiter = ":"
)

// Hash derives a storable credential record of the form "salt:key", both
// parts base64-encoded, from a fresh random salt.
func Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha256.New)

	return base64.StdEncoding.EncodeToString(salt) + delimiter +
		base64.StdEncoding.EncodeToString(key), nil
}

// Verify checks a password against a stored record. Records without the
// "salt:key" shape are treated as legacy bare-plaintext passwords from
// pre-existing accounts and compared directly; this is a deliberate
// compatibility shim, not a recommended storage format.
func Verify(password, record string) bool {
	parts := strings.Split(record, delimiter)
	if len(parts) != 2 {
		return password == record
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	got := pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
