package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func sqlxGet(ctx context.Context, q *Queries, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, q.ext, dest, query, args...)
}

func sqlxSelect(ctx context.Context, q *Queries, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, q.ext, dest, query, args...)
}

// exists reports whether query returns at least one row.
func (q *Queries) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := sqlxGet(ctx, q, &found, "SELECT EXISTS ("+query+")", args...); err != nil {
		return false, err
	}
	return found, nil
}

// affected reports whether res changed at least one row.
func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return n > 0, nil
}
