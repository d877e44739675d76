package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/garnizeh/southwheels/internal/db"
	"github.com/garnizeh/southwheels/pkg/repository"
)

// Store implements repository interfaces using the internal DB wrapper.
// Queries are built with goqu for the dialect of the underlying driver.
type Store struct {
	conn   *db.DB
	logger *slog.Logger
	now    func() time.Time
}

// Ensure Store implements the public interfaces.
var _ repository.IdentityRepo = (*Store)(nil)
var _ repository.ProfileRepo = (*Store)(nil)
var _ repository.CarRepo = (*Store)(nil)
var _ repository.BookingRepo = (*Store)(nil)
var _ repository.EnquiryRepo = (*Store)(nil)

func New(conn *db.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{conn: conn, logger: logger, now: time.Now}
}

// WithClock replaces the time source used for created/updated columns.
func (r *Store) WithClock(now func() time.Time) *Store {
	r.now = now
	return r
}

func (r *Store) ts() int64 {
	return r.now().UTC().UnixMilli()
}

func (r *Store) from(table string) *goqu.SelectDataset {
	return r.conn.Dialect().From(table).Prepared(true)
}

func (r *Store) exec(ctx context.Context, q interface {
	ToSQL() (string, []any, error)
}) (sql.Result, error) {
	query, args, err := q.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return r.conn.Exec(ctx, query, args...)
}

// execOne runs a write that must touch exactly one row.
func (r *Store) execOne(ctx context.Context, q interface {
	ToSQL() (string, []any, error)
}) error {
	res, err := r.exec(ctx, q)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Store) queryRows(ctx context.Context, ds *goqu.SelectDataset) (*sql.Rows, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return r.conn.QueryRows(ctx, query, args...)
}

func (r *Store) queryRow(ctx context.Context, ds *goqu.SelectDataset) (*sql.Row, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return r.conn.QueryRow(ctx, query, args...), nil
}

func (r *Store) count(ctx context.Context, ds *goqu.SelectDataset) (int64, error) {
	row, err := r.queryRow(ctx, ds.Select(goqu.COUNT("*")))
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
