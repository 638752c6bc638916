package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/oil-price-api/internal/auth"
	"github.com/andygrunwald/oil-price-api/internal/database"
	"github.com/andygrunwald/oil-price-api/internal/models"
)

// Credentials registers API clients and exchanges their secrets for tokens.
type Credentials struct {
	store  CredentialStore
	hasher *auth.Hasher
	tokens *auth.TokenService
	logger zerolog.Logger

	// dummyHash is verified against for unknown clients so a login takes
	// as long whether or not the client exists.
	dummyHash func() (string, error)
}

// NewCredentials creates a new Credentials service.
func NewCredentials(store CredentialStore, hasher *auth.Hasher, tokens *auth.TokenService, logger zerolog.Logger) *Credentials {
	return &Credentials{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		logger: logger.With().Str("component", "credentials").Logger(),
		dummyHash: sync.OnceValues(func() (string, error) {
			return hasher.Hash("dummy-secret-for-unknown-clients")
		}),
	}
}

// Register stores a new client. A client id can be registered only once.
func (c *Credentials) Register(ctx context.Context, clientID, secret string) error {
	if clientID == "" || secret == "" {
		return ErrMissingCredentials
	}

	existing, err := c.store.GetCredential(ctx, clientID)
	if err != nil {
		return fmt.Errorf("checking existing client: %w", err)
	}
	if existing != nil {
		return ErrUserExists
	}

	hash, err := c.hasher.Hash(secret)
	if err != nil {
		return fmt.Errorf("hashing secret: %w", err)
	}

	err = c.store.InsertCredential(ctx, models.Credential{ClientID: clientID, PasswordHash: hash})
	if errors.Is(err, database.ErrDuplicate) {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("Error while creating user: %w", err)
	}

	c.logger.Info().Str("client_id", clientID).Msg("registered client")
	return nil
}

// Login verifies the secret of clientID and issues a bearer token.
// Unknown clients and wrong secrets both return ErrWrongCredentials.
func (c *Credentials) Login(ctx context.Context, clientID, secret string) (*models.AuthBody, error) {
	if clientID == "" || secret == "" {
		return nil, ErrMissingCredentials
	}

	cred, err := c.store.GetCredential(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("fetching client: %w", err)
	}

	if cred == nil {
		if dummy, err := c.dummyHash(); err == nil {
			_, _ = c.hasher.Verify(dummy, secret)
		}
		c.logger.Debug().Str("client_id", clientID).Msg("login for unknown client")
		return nil, ErrWrongCredentials
	}

	ok, err := c.hasher.Verify(cred.PasswordHash, secret)
	if err != nil {
		return nil, fmt.Errorf("verifying secret: %w", err)
	}
	if !ok {
		c.logger.Debug().Str("client_id", clientID).Msg("login with wrong secret")
		return nil, ErrWrongCredentials
	}

	token, err := c.tokens.Issue(clientID)
	if err != nil {
		return nil, err
	}

	return &models.AuthBody{AccessToken: token, TokenType: auth.TokenType}, nil
}
