// Package sqldb holds the database/sql repositories shared by the sqlite and
// postgres drivers. Queries are written with '?' placeholders and rebound by
// the driver's Dialect.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/inkwell/internal/auth/store"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect captures what differs between database engines.
type Dialect interface {
	// Name is "sqlite" or "postgres".
	Name() string

	// Placeholder returns the bind parameter for the n-th (1 based) argument.
	Placeholder(n int) string

	// ConflictField reports whether err is a UNIQUE/PK violation and, if so,
	// which logical field (store.Field*) it concerns.
	ConflictField(err error) (string, bool)
}

// Migrator applies the driver's embedded schema migrations.
type Migrator func(db *sql.DB) error

// Queries binds a connection (or transaction) to a dialect.
type Queries struct {
	db      DBTX
	dialect Dialect
}

func newQueries(db DBTX, d Dialect) *Queries {
	return &Queries{db: db, dialect: d}
}

func (q *Queries) rebind(query string) string {
	if q.dialect.Placeholder(1) == "?" {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteString(q.dialect.Placeholder(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := q.db.ExecContext(ctx, q.rebind(query), args...)
	return res, q.mapErr(err)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, q.rebind(query), args...)
}

// execOne runs a mutation that must touch exactly one row.
func (q *Queries) execOne(ctx context.Context, query string, args ...any) error {
	res, err := q.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (q *Queries) mapErr(err error) error {
	if err == nil {
		return nil
	}
	if field, ok := q.dialect.ConflictField(err); ok {
		return &store.ConflictError{Field: field, Err: err}
	}
	return err
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// DollarPlaceholder is the postgres style "$n".
func DollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// FieldForColumn maps a "table.column" reference from a constraint error to
// the logical conflict field.
func FieldForColumn(ref string) string {
	switch strings.TrimSpace(ref) {
	case "users.email":
		return store.FieldEmail
	case "users.username":
		return store.FieldUsername
	case "users.telegram_id":
		return store.FieldTelegramID
	case "users.oauth_provider", "users.oauth_subject":
		return store.FieldOAuth
	case "revoked_tokens.jti":
		return store.FieldJTI
	}
	return store.FieldUnknown
}
