package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yogastudio/internal/logger"
)

// TokenCodec issues and checks HS512-signed JWTs whose subject is the
// principal's username. It only holds immutable configuration and is safe
// for concurrent use.
type TokenCodec struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// TokenOption customizes a TokenCodec.
type TokenOption func(*TokenCodec)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCodec) { c.now = now }
}

func NewTokenCodec(secret []byte, lifetime time.Duration, opts ...TokenOption) *TokenCodec {
	c := &TokenCodec{secret: secret, lifetime: lifetime, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lifetime is the validity window of issued tokens.
func (c *TokenCodec) Lifetime() time.Duration { return c.lifetime }

// Issue signs a token for p valid from now until now+lifetime.
func (c *TokenCodec) Issue(p *Principal) (string, error) {
	if p == nil || p.Username == "" {
		return "", errors.New("jwt: principal without username")
	}
	now := c.now()
	claims := jwt.RegisteredClaims{
		Subject:   p.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return token, nil
}

// Validate reports whether token is well formed, signed with our key and not
// expired. It never returns an error: every failure is logged and mapped to false.
func (c *TokenCodec) Validate(token string) bool {
	if token == "" {
		logger.Infof("jwt: claims string is empty")
		return false
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		logger.Infof("jwt: %s: %v", failureReason(err), err)
		return false
	}
	if claims.Subject == "" {
		logger.Infof("jwt: token has no subject")
		return false
	}
	return true
}

// ExtractSubject returns the sub claim without re-checking signature or
// expiry; callers are expected to have called Validate first.
func (c *TokenCodec) ExtractSubject(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("jwt: parse: %w", err)
	}
	return claims.Subject, nil
}

func (c *TokenCodec) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return c.secret, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "invalid token"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "invalid signature"
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token is expired"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "token is unsupported"
	default:
		return "token rejected"
	}
}
