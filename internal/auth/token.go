// Package auth inspects the credential the agent was configured with. The
// agent cannot verify the signature; the server does that on connect.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenEmpty   = errors.New("token empty")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is what the agent reads from the access token.
type Claims struct {
	Subject   string
	ExpiresAt *time.Time
}

// Expired reports whether the token is past its expiry at now, with leeway.
func (c *Claims) Expired(now time.Time, leeway time.Duration) bool {
	return c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway))
}

// Inspect parses token without verifying it.
func Inspect(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrTokenEmpty
	}
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &rc); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	c := &Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		exp := rc.ExpiresAt.Time
		c.ExpiresAt = &exp
	}
	return c, nil
}

// Check rejects an expired token before it is used to connect. Tokens that
// are not JWTs are passed through untouched.
func Check(token string, now time.Time) (*Claims, error) {
	c, err := Inspect(token)
	if errors.Is(err, ErrTokenEmpty) {
		return nil, err
	}
	if err != nil {
		return nil, nil
	}
	if c.Expired(now, time.Minute) {
		return c, fmt.Errorf("%w at %s", ErrTokenExpired, c.ExpiresAt.Format(time.RFC3339))
	}
	return c, nil
}
