// Package crypto provides password hashing for the user directory.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

var ErrInvalidHash = errors.New("crypto: invalid password hash")

// Argon2id parameters.
const (
	saltLen   = 16
	keyLen    = 32
	argonTime = 1
	memory    = 64 * 1024
	threads   = 4
)

// GenerateSalt returns saltLen random bytes.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("crypto: generate salt: %w", err)
	}
	return salt, nil
}

// HashPassword hashes a password using Argon2id with a fresh salt.
// The result is "hex(salt)$hex(key)".
func HashPassword(password string) (string, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return "", err
	}
	return encode(salt, derive(password, salt)), nil
}

// VerifyPassword reports whether password matches an encoded hash.
func VerifyPassword(encoded, password string) (bool, error) {
	saltHex, keyHex, ok := strings.Cut(encoded, "$")
	if !ok {
		return false, ErrInvalidHash
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil || len(salt) == 0 {
		return false, ErrInvalidHash
	}
	want, err := hex.DecodeString(keyHex)
	if err != nil || len(want) != keyLen {
		return false, ErrInvalidHash
	}
	got := derive(password, salt)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, memory, threads, keyLen)
}

func encode(salt, key []byte) string {
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(key)
}
