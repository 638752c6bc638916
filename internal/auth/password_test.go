package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testParams keeps the tests fast; production uses DefaultParams.
var testParams = Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHasher_HashIsSalted(t *testing.T) {
	h := NewHasher(testParams)

	first, err := h.Hash("s3cret")
	require.NoError(t, err)
	second, err := h.Hash("s3cret")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	ok, err := h.Verify(first, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(second, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasher_HashFormat(t *testing.T) {
	h := NewHasher(DefaultParams())

	encoded, err := h.Hash("s3cret")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=19456,t=2,p=1$"), encoded)
	assert.Len(t, strings.Split(encoded, "$"), 6)
}

func TestHasher_VerifyWrongSecret(t *testing.T) {
	h := NewHasher(testParams)

	encoded, err := h.Hash("s3cret")
	require.NoError(t, err)

	ok, err := h.Verify(encoded, "S3cret")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasher_VerifyUsesEmbeddedParams(t *testing.T) {
	encoded, err := NewHasher(testParams).Hash("s3cret")
	require.NoError(t, err)

	ok, err := NewHasher(DefaultParams()).Verify(encoded, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasher_VerifyOtherAlgorithm(t *testing.T) {
	h := NewHasher(testParams)

	encoded, err := h.Hash("s3cret")
	require.NoError(t, err)

	ok, err := h.Verify(strings.Replace(encoded, "$argon2id$", "$argon2i$", 1), "s3cret")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.Verify(strings.Replace(encoded, "$v=19$", "$v=16$", 1), "s3cret")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasher_VerifyMalformed(t *testing.T) {
	h := NewHasher(testParams)

	tests := map[string]string{
		"empty":          "",
		"plain text":     "s3cret",
		"missing digest": "$argon2id$v=19$m=64,t=1,p=1$c2FsdHNhbHRzYWx0",
		"bad version":    "$argon2id$version$m=64,t=1,p=1$c2FsdHNhbHRzYWx0$ZGlnZXN0",
		"bad params":     "$argon2id$v=19$memory$c2FsdHNhbHRzYWx0$ZGlnZXN0",
		"zero threads":   "$argon2id$v=19$m=64,t=1,p=0$c2FsdHNhbHRzYWx0$ZGlnZXN0",
		"bad salt":       "$argon2id$v=19$m=64,t=1,p=1$!!!$ZGlnZXN0",
		"bad digest":     "$argon2id$v=19$m=64,t=1,p=1$c2FsdHNhbHRzYWx0$!!!",
	}

	for name, encoded := range tests {
		t.Run(name, func(t *testing.T) {
			ok, err := h.Verify(encoded, "s3cret")
			assert.ErrorIs(t, err, ErrInvalidHash)
			assert.False(t, ok)
		})
	}
}
