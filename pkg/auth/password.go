package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// bcrypt silently ignores input beyond 72 bytes, and some implementations
// error on it. Truncating identically on hash and verify keeps hashes
// interoperable for over-long passwords.
const maxPasswordBytes = 72

// HashPassword hashes a password with bcrypt, truncated to 72 bytes.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(truncatePassword(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword verifies a password against a bcrypt hash.
// Applies the same 72-byte truncation as HashPassword.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncatePassword(password)) == nil
}

func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
