package store

import (
	"embed"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"

	"github.com/d-saikrishna/assam-tenders/internal/logging"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

// migrationLogger adapts the zap logger to migrate.Logger
type migrationLogger struct {
	*logging.Logger
	verbose bool
}

func (l migrationLogger) Verbose() bool {
	return l.verbose
}

func (l migrationLogger) Printf(format string, v ...any) {
	l.SugaredLogger.Infof(format, v...)
}

// Migrate applies the reference-table migrations for the connected driver.
// The migrate instance is not closed: its drivers would close the shared pool.
func (db *DB) Migrate(verbose bool) error {
	dir := "migrations/postgres"
	var (
		driver database.Driver
		err    error
	)
	if db.DriverName() == DriverSQLite {
		dir = "migrations/sqlite"
		driver, err = sqlite3.WithInstance(db.DB.DB, &sqlite3.Config{})
	} else {
		driver, err = postgres.WithInstance(db.DB.DB, &postgres.Config{})
	}
	if err != nil {
		return errors.Wrap(err, "create migration driver")
	}

	src, err := iofs.New(migrations, dir)
	if err != nil {
		return errors.Wrapf(err, "open migrations in %s", dir)
	}

	m, err := migrate.NewWithInstance("iofs", src, db.DriverName(), driver)
	if err != nil {
		return errors.Wrap(err, "create migrate instance")
	}
	m.Log = migrationLogger{Logger: db.logger, verbose: verbose}

	before, _, versionErr := m.Version()
	if versionErr != nil && versionErr != migrate.ErrNilVersion {
		return errors.Wrap(versionErr, "read migration version")
	}

	start := time.Now()
	err = m.Up()
	if err == migrate.ErrNoChange {
		db.logger.Info("no new migrations to apply", "version", before)
		return nil
	}
	if err != nil {
		version, dirty, _ := m.Version()
		db.logger.Error("migration failed", "error", err, "version", version, "dirty", dirty)
		return errors.Wrap(err, "apply migrations")
	}

	after, _, _ := m.Version()
	db.logger.Info("applied migrations", "from", before, "to", after, "elapsed", time.Since(start))
	return nil
}
