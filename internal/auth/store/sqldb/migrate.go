package sqldb

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrateUp applies every pending migration in migrations (an embedded
// directory of NNNN_name.up.sql / .down.sql pairs) through driver.
func MigrateUp(migrations fs.FS, dbName string, driver database.Driver) error {
	source, err := iofs.New(migrations, ".")
	if err != nil {
		return fmt.Errorf("%s: open migrations: %w", dbName, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dbName, driver)
	if err != nil {
		return fmt.Errorf("%s: init migrate: %w", dbName, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: migrate up: %w", dbName, err)
	}
	return nil
}
