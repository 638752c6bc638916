package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andygrunwald/oil-price-api/internal/models"
)

// GetCredential returns the credential of clientID, or nil if none exists.
func (q *Queries) GetCredential(ctx context.Context, clientID string) (*models.Credential, error) {
	query := `SELECT client_id, password_hash, created_at FROM users WHERE client_id = $1`

	var c models.Credential
	err := sqlxGet(ctx, q, &c, query, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting credential: %w", err)
	}
	return &c, nil
}

// InsertCredential stores a new credential. It returns ErrDuplicate if the
// client id is already taken.
func (q *Queries) InsertCredential(ctx context.Context, cred models.Credential) error {
	query := `INSERT INTO users (client_id, password_hash) VALUES ($1, $2)`

	if _, err := q.ext.ExecContext(ctx, query, cred.ClientID, cred.PasswordHash); err != nil {
		return fmt.Errorf("inserting credential: %w", translate(err))
	}

	q.logger.Debug().Str("client_id", cred.ClientID).Msg("inserted credential")
	return nil
}
