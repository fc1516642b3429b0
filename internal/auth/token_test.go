package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return s
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := sign(t, jwt.RegisteredClaims{Subject: "42", ExpiresAt: jwt.NewNumericDate(exp)})

	c, err := Inspect(tok)
	require.NoError(t, err)
	assert.Equal(t, "42", c.Subject)
	require.NotNil(t, c.ExpiresAt)
	assert.True(t, exp.Equal(*c.ExpiresAt))
	assert.False(t, c.Expired(time.Now(), 0))
}

func TestCheckRejectsExpired(t *testing.T) {
	tok := sign(t, jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))})

	_, err := Check(tok, time.Now())
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestCheckPassesOpaqueTokens(t *testing.T) {
	c, err := Check("not-a-jwt", time.Now())
	assert.NoError(t, err)
	assert.Nil(t, c)

	_, err = Check("", time.Now())
	assert.ErrorIs(t, err, ErrTokenEmpty)
}

func TestCheckWithoutExpiry(t *testing.T) {
	c, err := Check(sign(t, jwt.RegisteredClaims{Subject: "7"}), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "7", c.Subject)
	assert.Nil(t, c.ExpiresAt)
}
