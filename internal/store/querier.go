package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/erazemk/instrumenti/internal/model"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so every store function
// can run standalone (auto-commit) or inside a caller's transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// now is the clock used for registration timestamps.
var now = time.Now

// SQLite takes "?" placeholders, which is squirrel's default.
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

func queryRows(ctx context.Context, q Querier, b sq.SelectBuilder) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	return q.QueryContext(ctx, query, args...)
}

func exec(ctx context.Context, q Querier, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building statement: %w", err)
	}
	return q.ExecContext(ctx, query, args...)
}

// parseStored converts a TEXT timestamp column; NULL yields the zero time.
func parseStored(column string, v sql.NullString) (time.Time, error) {
	if !v.Valid || v.String == "" {
		return time.Time{}, nil
	}
	t, err := model.ParseTimestamp(v.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", column, err)
	}
	return t, nil
}

// nullable stores empty strings as NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
