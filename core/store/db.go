package store

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"incident-desk/config"
	"incident-desk/core/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	driverSQLite = "sqlite"
	driverPGX    = "pgx"
)

// NewDB opens the configured database. SQLite is held to a single open
// connection so that writers serialize instead of failing with SQLITE_BUSY.
func NewDB(cfg *config.AppConfig, logger *utils.Logger) (*sqlx.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if cfg.IsPostgres() {
		return openPostgres(cfg.DBURL, logger)
	}
	return openSQLite(cfg.DBURL, logger)
}

func openSQLite(path string, logger *utils.Logger) (*sqlx.DB, error) {
	path = strings.TrimSpace(strings.TrimPrefix(path, "file:"))
	if path == "" {
		return nil, fmt.Errorf("empty sqlite path")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
	}
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "foreign_keys(1)")
	if path != ":memory:" {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	q.Set("_time_format", "sqlite")
	dsn := "file:" + path + "?" + q.Encode()
	db, err := sqlx.Open(driverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if logger != nil {
		logger.Printf("DB sqlite opened at %s", path)
	}
	return db, nil
}

func openPostgres(dsn string, logger *utils.Logger) (*sqlx.DB, error) {
	pgCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	raw := stdlib.OpenDB(*pgCfg)
	raw.SetMaxOpenConns(10)
	raw.SetMaxIdleConns(10)
	raw.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	if err := raw.PingContext(ctx); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if logger != nil {
		logger.Printf("DB postgres connected host=%s db=%s", pgCfg.Host, pgCfg.Database)
	}
	return sqlx.NewDb(raw, driverPGX), nil
}

func isPostgresDB(db *sqlx.DB) bool {
	return db != nil && db.DriverName() == driverPGX
}
