package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
)

// Migrator applies the schema under a migrations directory.
type Migrator struct {
	m      *migrate.Migrate
	logger zerolog.Logger
}

// NewMigrator opens the migrations source and the database.
func NewMigrator(databaseURL, migrationsPath string, logger zerolog.Logger) (*Migrator, error) {
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{logger: logger}

	return &Migrator{m: m, logger: logger}, nil
}

// Up applies every pending migration. No pending migration is not an error.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info().Msg("database migrations: no change")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.logVersion("database migrations: applied")
	return nil
}

// Down rolls back the last steps migrations.
func (m *Migrator) Down(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}
	if err := m.m.Steps(-steps); err != nil {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}

	m.logVersion("database migrations: rolled back")
	return nil
}

// Version reports the applied version. A database without migrations
// reports version 0.
func (m *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Close releases the source and database handles.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}

func (m *Migrator) logVersion(msg string) {
	version, dirty, err := m.Version()
	event := m.logger.Info()
	if err == nil {
		event = event.Uint("version", version).Bool("dirty", dirty)
	}
	event.Msg(msg)
}

// RunMigrations applies every pending migration and closes the migrator.
func RunMigrations(databaseURL, migrationsPath string, logger zerolog.Logger) error {
	m, err := NewMigrator(databaseURL, migrationsPath, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	return m.Up()
}

// migrateLogger routes golang-migrate output through zerolog.
type migrateLogger struct {
	logger zerolog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug().Str("component", "migrate").Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return l.logger.GetLevel() <= zerolog.DebugLevel
}
