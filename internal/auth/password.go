package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost of 8 keeps logins fast on the small server in the workshop
const bcryptCost = 8

// MinPasswordLength is enforced on signup and admin creation
const MinPasswordLength = 8

// ErrInvalidCredentials is returned for unknown emails, wrong passwords and inactive users
var ErrInvalidCredentials = errors.New("invalid email or password")

// HashPassword generates a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks if the provided password matches the hash
func VerifyPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
