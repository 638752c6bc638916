package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte(strings.Repeat("0123456789", 7))

func TestGenerateKey(t *testing.T) {
	first, err := GenerateKey()
	require.NoError(t, err)
	second, err := GenerateKey()
	require.NoError(t, err)

	assert.Len(t, first, KeyLength)
	assert.GreaterOrEqual(t, len(first), 60)
	assert.NotEqual(t, first, second)
	for _, c := range first {
		assert.Contains(t, alphanumeric, string(c))
	}
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	s := NewTokenService(testKey, time.Hour)

	token, err := s.Issue("client-1")
	require.NoError(t, err)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "client-1", claims.ClientID())
	require.NotNil(t, claims.ExpiresAt)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 2*time.Second)
}

func TestTokenService_DefaultTTL(t *testing.T) {
	s := NewTokenService(testKey, 0)
	assert.Equal(t, 30*24*time.Hour, s.TTL())
}

func TestTokenService_RejectsExpired(t *testing.T) {
	past := time.Now().Add(-31 * 24 * time.Hour)
	issuer := NewTokenService(testKey, DefaultTokenTTL, WithClock(func() time.Time { return past }))

	token, err := issuer.Issue("client-1")
	require.NoError(t, err)

	// Same key, so the signature is valid.
	_, err = NewTokenService(testKey, DefaultTokenTTL).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RejectsExpiryEqualToNow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	issuer := NewTokenService(testKey, time.Minute, WithClock(func() time.Time { return now }))

	token, err := issuer.Issue("client-1")
	require.NoError(t, err)

	validator := NewTokenService(testKey, time.Minute, WithClock(func() time.Time { return now.Add(time.Minute) }))
	_, err = validator.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RejectsOtherKey(t *testing.T) {
	token, err := NewTokenService(testKey, time.Hour).Issue("client-1")
	require.NoError(t, err)

	otherKey, err := GenerateKey()
	require.NoError(t, err)

	_, err = NewTokenService(otherKey, time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RejectsMissingExpiry(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "client-1"})
	token, err := unsigned.SignedString(testKey)
	require.NoError(t, err)

	_, err = NewTokenService(testKey, time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RejectsOtherAlgorithm(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "client-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testKey)
	require.NoError(t, err)

	_, err = NewTokenService(testKey, time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RejectsMissingSubject(t *testing.T) {
	token, err := NewTokenService(testKey, time.Hour).Issue("")
	require.NoError(t, err)

	_, err = NewTokenService(testKey, time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RejectsGarbage(t *testing.T) {
	s := NewTokenService(testKey, time.Hour)

	for _, token := range []string{"", "abc", "a.b.c"} {
		_, err := s.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken, token)
	}
}
