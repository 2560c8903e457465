package migrations

import (
	"embed"
	"errors"
	"fmt"

	"ms-marketplace/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/uptrace/bun"
)

//go:embed sql/*.sql
var sqlFiles embed.FS

// Runner applies the embedded SQL migrations to Postgres. The migrate
// instance is built on first use over the bun pool.
type Runner struct {
	bunDB *bun.DB
	log   *logger.Logger
	m     *migrate.Migrate
}

func NewRunner(bunDB *bun.DB, log *logger.Logger) *Runner {
	return &Runner{bunDB: bunDB, log: log}
}

func (r *Runner) migrator() (*migrate.Migrate, error) {
	if r.m != nil {
		return r.m, nil
	}
	source, err := iofs.New(sqlFiles, "sql")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	driver, err := postgres.WithInstance(r.bunDB.DB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("build migrator: %w", err)
	}
	r.m = m
	return m, nil
}

// Version reports the applied schema version. A fresh database is
// version 0.
func (r *Runner) Version() (uint, bool, error) {
	m, err := r.migrator()
	if err != nil {
		return 0, false, err
	}
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// MigrateUp applies pending migrations. A dirty version left by a crashed
// run is forced clean first.
func (r *Runner) MigrateUp() error {
	m, err := r.migrator()
	if err != nil {
		return err
	}

	v, dirty, err := r.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		r.log.Warn("MIGRATE", fmt.Sprintf("schema version %d is dirty, forcing", v))
		if err := m.Force(int(v)); err != nil {
			return fmt.Errorf("force version %d: %w", v, err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	if v, _, err := r.Version(); err == nil {
		r.log.Info("MIGRATE", fmt.Sprintf("schema at version %d", v))
	}
	return nil
}

func (r *Runner) MigrateDown() error {
	m, err := r.migrator()
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Close releases the migrator. It closes the underlying *sql.DB too.
func (r *Runner) Close() error {
	if r.m == nil {
		return nil
	}
	srcErr, dbErr := r.m.Close()
	return errors.Join(srcErr, dbErr)
}
