package migration

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
	"github.com/Additional-Code/tenzai/internal/database"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var migrations embed.FS

// Module provides the Migrator to Fx.
var Module = fx.Provide(New)

// ErrDisabled is returned when the ledger database is switched off.
var ErrDisabled = errors.New("ledger database disabled; set DB_ENABLED=true")

// Migrator wraps goose operations over the notification ledger schema.
type Migrator struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a goose-backed migrator for the configured ledger.
func New(cfg config.Config, conns *database.Connections, logger *zap.Logger) (*Migrator, error) {
	if !conns.Enabled() {
		return nil, ErrDisabled
	}
	return NewWithDB(cfg.Database.Driver, conns.Writer, logger)
}

// NewWithDB builds a migrator over an already opened handle.
func NewWithDB(driver string, db *bun.DB, logger *zap.Logger) (*Migrator, error) {
	dialect, err := gooseDialect(driver)
	if err != nil {
		return nil, err
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(dialect); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Migrator{
		db:     db,
		logger: logger,
	}, nil
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	err := goose.UpContext(ctx, m.db.DB, migrationsDir)
	if isNoMigrationErr(err) {
		m.logger.Info("ledger schema already current")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	m.logger.Info("ledger migrations applied")
	return nil
}

// Down rolls back steps migrations (at least one), or every migration when all is set.
func (m *Migrator) Down(ctx context.Context, steps int, all bool) error {
	if all {
		if err := goose.DownToContext(ctx, m.db.DB, migrationsDir, 0); err != nil && !isNoMigrationErr(err) {
			return fmt.Errorf("migrate down: %w", err)
		}
		m.logger.Info("ledger migrations rolled back", zap.String("mode", "all"))
		return nil
	}

	steps = max(steps, 1)
	for i := 0; i < steps; i++ {
		err := goose.DownContext(ctx, m.db.DB, migrationsDir)
		if isNoMigrationErr(err) {
			break
		}
		if err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	}
	m.logger.Info("ledger migrations rolled back", zap.Int("steps", steps))
	return nil
}

// Version reports the applied schema version; 0 means nothing is applied.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	return goose.GetDBVersionContext(ctx, m.db.DB)
}

func gooseDialect(driver string) (string, error) {
	switch driver {
	case "postgres", "pg":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "sqlite", "sqlite3":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported goose dialect for driver %s", driver)
	}
}

func isNoMigrationErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, goose.ErrNoNextVersion) || errors.Is(err, goose.ErrNoMigrationFiles) {
		return true
	}
	return strings.Contains(err.Error(), "no migrations")
}
