// Package security provides functionality for handling password hashing and verification.
// It leverages the bcrypt algorithm to hash passwords and compare hashed values in constant time.
package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when no account matches, so a failed login
// costs the same whether or not the email is registered.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("rewear-dummy-password"), bcrypt.DefaultCost)

// HashPassword takes a plaintext password and returns its bcrypt hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a bcrypt hashed password with its possible plaintext equivalent.
// It returns nil on success, or bcrypt.ErrMismatchedHashAndPassword when they differ.
func CheckPassword(hashedPassword, userPassword string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(userPassword))
}

// WasteComparison performs a comparison against a fixed hash and discards the result.
func WasteComparison(userPassword string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(userPassword))
}
