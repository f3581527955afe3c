package utils

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength     = 16
	hashIterations = 10000
	hashKeyLength  = 64 // 512 bits
	tokenLength    = 32
)

// HashPassword derives a password hash with a random 16-byte salt and
// returns it encoded as "salt.hash" in hex.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), salt, hashIterations, hashKeyLength, sha512.New)
	return hex.EncodeToString(salt) + "." + hex.EncodeToString(key), nil
}

// VerifyPassword checks a password against a stored "salt.hash" pair using
// a constant-time comparison.
func VerifyPassword(password, stored string) bool {
	parts := strings.SplitN(stored, ".", 2)
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	key := pbkdf2.Key([]byte(password), salt, hashIterations, hashKeyLength, sha512.New)
	return subtle.ConstantTimeCompare(key, expected) == 1
}

// GenerateResetToken returns a hex-encoded 32-byte random token.
func GenerateResetToken() (string, error) {
	b := make([]byte, tokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
