package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/schema"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
)

const pingTimeout = 5 * time.Second

// Connections bundles writer and reader bun instances backing the notification ledger.
// Both are nil when the ledger database is disabled.
type Connections struct {
	Writer *bun.DB
	Reader *bun.DB
}

// Enabled reports whether a ledger database is attached.
func (c *Connections) Enabled() bool {
	return c != nil && c.Writer != nil
}

// Close releases both pools once.
func (c *Connections) Close() error {
	if !c.Enabled() {
		return nil
	}
	err := c.Writer.Close()
	if c.Reader != nil && c.Reader != c.Writer {
		err = errors.Join(err, c.Reader.Close())
	}
	return err
}

// Module registers the database connections with Fx.
var Module = fx.Provide(New)

// New opens the ledger pools and verifies them when the application starts.
// An empty reader DSN shares the writer pool.
func New(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*Connections, error) {
	db := cfg.Database
	if !db.Enabled {
		logger.Info("ledger database disabled")
		return &Connections{}, nil
	}

	writer, err := openPool(db, db.WriterDSN)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	conns := &Connections{Writer: writer, Reader: writer}

	if db.ReaderDSN != "" && db.ReaderDSN != db.WriterDSN {
		reader, err := openPool(db, db.ReaderDSN)
		if err != nil {
			_ = writer.Close()
			return nil, fmt.Errorf("open reader: %w", err)
		}
		conns.Reader = reader
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := ping(ctx, conns.Writer); err != nil {
				return fmt.Errorf("ping writer: %w", err)
			}
			if conns.Reader != conns.Writer {
				if err := ping(ctx, conns.Reader); err != nil {
					return fmt.Errorf("ping reader: %w", err)
				}
			}
			logger.Info("ledger database connected",
				zap.String("driver", db.Driver),
				zap.Bool("replica", conns.Reader != conns.Writer),
			)
			return nil
		},
		OnStop: func(context.Context) error {
			return conns.Close()
		},
	})

	return conns, nil
}

// Open returns a single bun handle for the driver and DSN, used by tooling and tests.
func Open(driver, dsn string) (*bun.DB, error) {
	return openPool(config.Database{Driver: driver}, dsn)
}

func openPool(cfg config.Database, dsn string) (*bun.DB, error) {
	dial, err := selectDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	sqldb, err := openSQLDB(cfg.Driver, dsn)
	if err != nil {
		return nil, err
	}
	applyPoolSettings(sqldb, cfg)
	return bun.NewDB(sqldb, dial), nil
}

func selectDialect(driver string) (schema.Dialect, error) {
	switch driver {
	case "postgres":
		return pgdialect.New(), nil
	case "mysql":
		return mysqldialect.New(), nil
	case "sqlite":
		return sqlitedialect.New(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func openSQLDB(driver, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("empty DSN")
	}

	switch driver {
	case "postgres":
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn))), nil
	case "mysql":
		return sql.Open("mysql", dsn)
	case "sqlite":
		return sql.Open("sqlite3", dsn)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}

func applyPoolSettings(db *sql.DB, cfg config.Database) {
	// sqlite allows a single writer
	if cfg.Driver == "sqlite" {
		db.SetMaxOpenConns(1)
		return
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}
}

func ping(ctx context.Context, db *bun.DB) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return db.PingContext(ctx)
}
