package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andygrunwald/oil-price-api/internal/auth"
	"github.com/andygrunwald/oil-price-api/internal/models"
	"github.com/andygrunwald/oil-price-api/internal/service"
	"github.com/andygrunwald/oil-price-api/internal/service/servicetest"
)

var fastParams = auth.Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newCredentials(t *testing.T) (*service.Credentials, *servicetest.MemoryStore, *auth.TokenService) {
	t.Helper()
	key, err := auth.GenerateKey()
	require.NoError(t, err)

	store := servicetest.NewMemoryStore()
	tokens := auth.NewTokenService(key, time.Hour)
	return service.NewCredentials(store, auth.NewHasher(fastParams), tokens, zerolog.Nop()), store, tokens
}

func TestCredentials_RegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	creds, _, tokens := newCredentials(t)

	pairs := [][2]string{
		{"scraper", "s3cret"},
		{"dashboard@example.com", "correct horse battery staple"},
		{"ünïcode", "pässwörd"},
	}

	for _, pair := range pairs {
		require.NoError(t, creds.Register(ctx, pair[0], pair[1]))

		body, err := creds.Login(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.Equal(t, "Bearer", body.TokenType)

		claims, err := tokens.Validate(body.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, pair[0], claims.ClientID())
	}
}

func TestCredentials_StoresPHCHash(t *testing.T) {
	ctx := context.Background()
	creds, store, _ := newCredentials(t)

	require.NoError(t, creds.Register(ctx, "scraper", "s3cret"))

	stored, err := store.GetCredential(ctx, "scraper")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotContains(t, stored.PasswordHash, "s3cret")
	assert.Contains(t, stored.PasswordHash, "$argon2id$v=19$")
}

func TestCredentials_MissingCredentials(t *testing.T) {
	ctx := context.Background()
	creds, _, _ := newCredentials(t)

	assert.ErrorIs(t, creds.Register(ctx, "", "s3cret"), service.ErrMissingCredentials)
	assert.ErrorIs(t, creds.Register(ctx, "scraper", ""), service.ErrMissingCredentials)

	_, err := creds.Login(ctx, "", "s3cret")
	assert.ErrorIs(t, err, service.ErrMissingCredentials)
	_, err = creds.Login(ctx, "scraper", "")
	assert.ErrorIs(t, err, service.ErrMissingCredentials)
}

func TestCredentials_RegisterTwice(t *testing.T) {
	ctx := context.Background()
	creds, store, _ := newCredentials(t)

	require.NoError(t, creds.Register(ctx, "scraper", "first"))
	before, err := store.GetCredential(ctx, "scraper")
	require.NoError(t, err)

	err = creds.Register(ctx, "scraper", "second")
	assert.ErrorIs(t, err, service.ErrUserExists)

	after, err := store.GetCredential(ctx, "scraper")
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)

	_, err = creds.Login(ctx, "scraper", "first")
	assert.NoError(t, err)
	_, err = creds.Login(ctx, "scraper", "second")
	assert.ErrorIs(t, err, service.ErrWrongCredentials)
}

func TestCredentials_WrongSecretAndUnknownClientAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	creds, _, _ := newCredentials(t)
	require.NoError(t, creds.Register(ctx, "scraper", "s3cret"))

	_, wrongSecret := creds.Login(ctx, "scraper", "nope")
	_, unknownClient := creds.Login(ctx, "nobody", "nope")

	require.ErrorIs(t, wrongSecret, service.ErrWrongCredentials)
	require.ErrorIs(t, unknownClient, service.ErrWrongCredentials)
	assert.Equal(t, wrongSecret.Error(), unknownClient.Error())
}

func TestCredentials_StoreFailures(t *testing.T) {
	ctx := context.Background()
	creds, store, _ := newCredentials(t)

	store.FailOn["InsertCredential"] = true
	err := creds.Register(ctx, "scraper", "s3cret")
	require.ErrorIs(t, err, servicetest.ErrStore)
	assert.NotErrorIs(t, err, service.ErrUserExists)

	store.FailOn["GetCredential"] = true
	_, err = creds.Login(ctx, "scraper", "s3cret")
	require.ErrorIs(t, err, servicetest.ErrStore)
	assert.NotErrorIs(t, err, service.ErrWrongCredentials)
}

func TestCredentials_CorruptStoredHash(t *testing.T) {
	ctx := context.Background()
	creds, store, _ := newCredentials(t)

	require.NoError(t, store.InsertCredential(ctx, models.Credential{ClientID: "scraper", PasswordHash: "not-a-hash"}))

	_, err := creds.Login(ctx, "scraper", "s3cret")
	require.ErrorIs(t, err, auth.ErrInvalidHash)
	assert.NotErrorIs(t, err, service.ErrWrongCredentials)
}

func TestStore_HoldsCredentials(t *testing.T) {
	var store service.Store = servicetest.NewMemoryStore()
	creds := service.NewCredentials(store, auth.NewHasher(fastParams), auth.NewTokenService(make([]byte, 64), time.Hour), zerolog.Nop())

	ctx := context.Background()
	require.NoError(t, creds.Register(ctx, "scraper", "s3cret"))
	_, err := creds.Login(ctx, "scraper", "s3cret")
	require.NoError(t, err)
}
