package database

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:blankimports // postgres driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       //nolint:blankimports // file source driver

	"github.com/gitmujoshi/ai-curation-engine-cursor-generated-sub001/infrastructure/logger"
)

// DefaultMigrationsPath is where migrations live relative to the binary.
const DefaultMigrationsPath = "migrations"

// Migrator applies the schema in a migrations directory.
type Migrator struct {
	cfg  Config
	path string
	log  logger.Logger
}

// NewMigrator returns a migrator for dir (DefaultMigrationsPath when empty).
func NewMigrator(cfg Config, dir string, log logger.Logger) *Migrator {
	if dir == "" {
		dir = DefaultMigrationsPath
	}
	if absPath, err := filepath.Abs(dir); err == nil {
		dir = absPath
	}
	return &Migrator{cfg: cfg, path: dir, log: log}
}

func (m *Migrator) open() (*migrate.Migrate, error) {
	if !m.cfg.Enabled() {
		return nil, errors.New("database not configured")
	}
	mig, err := migrate.New("file://"+m.path, m.cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return mig, nil
}

func closeMigrate(mig *migrate.Migrate) {
	_, _ = mig.Close()
}

// Up runs all pending migrations.
func (m *Migrator) Up() error {
	mig, err := m.open()
	if err != nil {
		return err
	}
	defer closeMigrate(mig)

	if upErr := mig.Up(); upErr != nil {
		if errors.Is(upErr, migrate.ErrNoChange) {
			m.log.Info("No pending migrations", logger.String("migrations_path", m.path))
			return nil
		}
		return fmt.Errorf("run migrations: %w", upErr)
	}

	m.log.Info("Migrations applied successfully", logger.String("migrations_path", m.path))
	return nil
}

// Down rolls back steps migrations (1 when steps <= 0).
func (m *Migrator) Down(steps int) error {
	mig, err := m.open()
	if err != nil {
		return err
	}
	defer closeMigrate(mig)

	if steps <= 0 {
		steps = 1
	}
	if downErr := mig.Steps(-steps); downErr != nil {
		if errors.Is(downErr, migrate.ErrNoChange) {
			m.log.Info("No migrations to rollback", logger.String("migrations_path", m.path))
			return nil
		}
		return fmt.Errorf("rollback migrations: %w", downErr)
	}

	m.log.Info("Migrations rolled back successfully",
		logger.String("migrations_path", m.path),
		logger.Int("steps", steps),
	)
	return nil
}

// Version reports the applied version. A database without migrations
// reports 0.
func (m *Migrator) Version() (version uint, dirty bool, err error) {
	mig, err := m.open()
	if err != nil {
		return 0, false, err
	}
	defer closeMigrate(mig)

	version, dirty, err = mig.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get migration version: %w", err)
	}
	return version, dirty, nil
}
