// internal/auth/jwt.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpired          = errors.New("token expired")
	ErrMalformedToken   = errors.New("malformed token")
)

// DefaultTokenTTL is used when a codec is built with a non-positive TTL.
const DefaultTokenTTL = time.Hour

// TokenCodec mints and verifies HS256 tokens whose subject is the member email.
// It is safe for concurrent use; the key never changes after construction.
type TokenCodec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewTokenCodec(key []byte, ttl time.Duration) (*TokenCodec, error) {
	if len(key) == 0 {
		return nil, errors.New("signing key is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &TokenCodec{key: k, ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime given to minted tokens.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Mint signs a token for subject valid from now until now+TTL.
func (c *TokenCodec) Mint(subject string) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	})

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of token and returns its subject.
// Only the signature and exp are validated.
func (c *TokenCodec) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "", ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrExpired
	default:
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrMalformedToken)
	}
	return claims.Subject, nil
}
