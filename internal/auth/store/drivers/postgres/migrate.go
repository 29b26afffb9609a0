package postgres

import (
	"database/sql"

	"github.com/aussiebroadwan/inkwell/internal/auth/store/drivers/postgres/migrations"
	"github.com/aussiebroadwan/inkwell/internal/auth/store/sqldb"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
)

func migrate(db *sql.DB) error {
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return err
	}
	return sqldb.MigrateUp(migrations.Migrations, "pgx5", driver)
}
