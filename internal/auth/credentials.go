package auth

import (
	"crypto/subtle"
	"fmt"

	"github.com/benvon/doit/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// The single account the simulated login accepts
const (
	DemoEmail    = "user@example.com"
	DemoPassword = "password"
	DemoUserName = "Test User"
	DemoUserID   = 1
)

// Credentials is the fixed email/password pair a login is checked against.
// Only a bcrypt hash of the password is kept.
type Credentials struct {
	email string
	hash  []byte
}

// NewCredentials hashes password and pairs it with email
func NewCredentials(email, password string) (Credentials, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to hash password: %w", err)
	}
	return Credentials{email: email, hash: hash}, nil
}

// DemoCredentials returns the built-in user@example.com / password pair
func DemoCredentials() Credentials {
	c, err := NewCredentials(DemoEmail, DemoPassword)
	if err != nil {
		panic(err)
	}
	return c
}

// Match reports whether email and password both match exactly
func (c Credentials) Match(email, password string) bool {
	if len(c.hash) == 0 {
		return false
	}
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(c.email)) == 1
	passwordOK := bcrypt.CompareHashAndPassword(c.hash, []byte(password)) == nil
	return emailOK && passwordOK
}

// User returns the fixed user record for a successful login
func (c Credentials) User() models.User {
	return models.User{ID: DemoUserID, Name: DemoUserName, Email: c.email}
}
