package sqldb

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/inkwell/internal/auth/store"
)

// Store implements store.Store on top of a *sql.DB.
type Store struct {
	db      *sql.DB
	q       *Queries
	dialect Dialect
	migrate Migrator
}

// New wraps an open database. The caller hands over ownership of db.
func New(db *sql.DB, d Dialect, m Migrator) *Store {
	return &Store{db: db, q: newQueries(db, d), dialect: d, migrate: m}
}

// DB exposes the underlying handle for driver specific setup.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the engine dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) ApplyMigrations() error { return s.migrate(s.db) }

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &txStore{tx: tx, q: newQueries(tx, s.dialect)}, nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	// Safe to call after commit; covers early returns and panics.
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Users() store.Users                 { return &usersRepo{q: s.q} }
func (s *Store) BackupCodes() store.BackupCodes     { return &backupCodesRepo{q: s.q} }
func (s *Store) RevokedTokens() store.RevokedTokens { return &revokedTokensRepo{q: s.q} }

type txStore struct {
	tx *sql.Tx
	q  *Queries
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the owning Store keeps the database open.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(ctx context.Context) error { return nil }

// Nested transactions are not supported.
func (t *txStore) Tx(ctx context.Context) (store.Tx, error) { return nil, sql.ErrTxDone }

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

// ApplyMigrations is a no-op; migrations run before any transaction.
func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) Users() store.Users                 { return &usersRepo{q: t.q} }
func (t *txStore) BackupCodes() store.BackupCodes     { return &backupCodesRepo{q: t.q} }
func (t *txStore) RevokedTokens() store.RevokedTokens { return &revokedTokensRepo{q: t.q} }
