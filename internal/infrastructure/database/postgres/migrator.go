package postgres

import (
	stderrors "errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/database/postgres/migrations"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
)

// Migrator applies schema migrations over an open Connection. Migrations are
// read from the embedded set unless a directory is given.
type Migrator struct {
	conn   *Connection
	path   string
	logger logging.Logger
}

// NewMigrator creates a Migrator. path is a directory of *.sql migrations;
// empty selects the embedded migrations.
func NewMigrator(conn *Connection, path string, log logging.Logger) *Migrator {
	return &Migrator{conn: conn, path: path, logger: log}
}

func (m *Migrator) instance() (*migrate.Migrate, error) {
	driver, err := migratepg.WithInstance(m.conn.DB(), &migratepg.Config{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migration driver")
	}

	if m.path != "" {
		mg, err := migrate.NewWithDatabaseInstance("file://"+strings.TrimPrefix(m.path, "file://"), "postgres", driver)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
		}
		return mg, nil
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to open embedded migrations")
	}
	mg, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
	}
	return mg, nil
}

// Up applies all pending migrations. No pending migration is not an error.
func (m *Migrator) Up() error {
	mg, err := m.instance()
	if err != nil {
		return err
	}
	if err := mg.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to run migrations")
	}
	version, dirty, _ := m.status(mg)
	m.logger.Info("Database migrations completed",
		logging.Int64("version", int64(version)),
		logging.Bool("dirty", dirty),
	)
	return nil
}

// Rollback reverts steps migrations.
func (m *Migrator) Rollback(steps int) error {
	if steps <= 0 {
		return errors.New(errors.ErrCodeValidation, "steps must be greater than 0")
	}
	mg, err := m.instance()
	if err != nil {
		return err
	}
	if err := mg.Steps(-steps); err != nil {
		if stderrors.Is(err, migrate.ErrNoChange) {
			return errors.New(errors.ErrCodeConflict, "no migrations to roll back")
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to roll back migrations")
	}
	m.logger.Warn("Rolled back migrations", logging.Int("steps", steps))
	return nil
}

// Status returns the applied version and whether a migration failed half way.
// A database without any applied migration reports version 0.
func (m *Migrator) Status() (version uint, dirty bool, err error) {
	mg, err := m.instance()
	if err != nil {
		return 0, false, err
	}
	return m.status(mg)
}

func (m *Migrator) status(mg *migrate.Migrate) (uint, bool, error) {
	version, dirty, err := mg.Version()
	if err != nil {
		if stderrors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get migration version")
	}
	return version, dirty, nil
}

// Force marks version as applied without running it. It is the way out of
// a dirty state after a migration was repaired by hand.
func (m *Migrator) Force(version int) error {
	mg, err := m.instance()
	if err != nil {
		return err
	}
	if err := mg.Force(version); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to force migration version")
	}
	return nil
}

//Personal.AI order the ending
