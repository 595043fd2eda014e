// Package repo persists programs, ideas, axes and events in SQLite.
//
// Methods without a Tx suffix run on the pool. Inside a transaction every
// query must go through the Tx variants: the shared-cache connection would
// otherwise block on the transaction's own locks.
package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

func exec(ctx context.Context, q querier, b squirrel.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return q.ExecContext(ctx, query, args...)
}

func query(ctx context.Context, q querier, b squirrel.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return q.QueryContext(ctx, query, args...)
}

// affectedOrNotFound maps a zero-row write to ErrNotFound.
func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func like(s string) string {
	return "%" + s + "%"
}
