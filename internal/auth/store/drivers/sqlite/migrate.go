package sqlite

import (
	"database/sql"

	"github.com/aussiebroadwan/inkwell/internal/auth/store/drivers/sqlite/migrations"
	"github.com/aussiebroadwan/inkwell/internal/auth/store/sqldb"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
)

func migrate(db *sql.DB) error {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	return sqldb.MigrateUp(migrations.Migrations, "sqlite", driver)
}
