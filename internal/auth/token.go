package auth

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"time"

	"github.com/benvon/doit/internal/models"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Issuer mints session tokens. Tokens are opaque to every caller; they are
// HS256 JWTs only so a stale or foreign token can be rejected cheaply.
type Issuer struct {
	key jwk.Key
}

// NewIssuer creates an issuer signing with secret. An empty secret gets a
// random one, which invalidates persisted sessions on restart.
func NewIssuer(secret []byte) (*Issuer, error) {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate token secret: %w", err)
		}
	}
	key, err := jwk.FromRaw(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to build signing key: %w", err)
	}
	return &Issuer{key: key}, nil
}

// Issue returns a fresh token for user. Two calls never return the same token.
func (i *Issuer) Issue(user models.User) (string, error) {
	tok, err := jwt.NewBuilder().
		Subject(strconv.Itoa(user.ID)).
		IssuedAt(time.Now()).
		JwtID(uuid.NewString()).
		Claim("email", user.Email).
		Claim("name", user.Name).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, i.key))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), nil
}

// Verify checks the token signature and standard claims
func (i *Issuer) Verify(token string) error {
	if _, err := jwt.Parse([]byte(token), jwt.WithKey(jwa.HS256, i.key), jwt.WithValidate(true)); err != nil {
		return fmt.Errorf("failed to verify token: %w", err)
	}
	return nil
}
