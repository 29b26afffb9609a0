// Package postgres is the PostgreSQL driver for the auth store, built on pgx
// through database/sql so it shares its repositories with the sqlite driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/inkwell/internal/auth/store"
	"github.com/aussiebroadwan/inkwell/internal/auth/store/sqldb"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const uniqueViolation = "23505"

// NewStore connects to dsn (a postgres:// URL) and verifies the connection.
func NewStore(ctx context.Context, dsn string) (*sqldb.Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return sqldb.New(db, Dialect{}, migrate), nil
}

// Dialect is the PostgreSQL flavour of sqldb.Dialect.
type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) Placeholder(n int) string { return sqldb.DollarPlaceholder(n) }

func (Dialect) ConflictField(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return "", false
	}
	switch pgErr.ConstraintName {
	case "users_email_unique":
		return store.FieldEmail, true
	case "users_username_unique":
		return store.FieldUsername, true
	case "users_telegram_id_unique":
		return store.FieldTelegramID, true
	case "users_oauth_unique":
		return store.FieldOAuth, true
	case "revoked_tokens_pkey":
		return store.FieldJTI, true
	}
	return store.FieldUnknown, true
}
