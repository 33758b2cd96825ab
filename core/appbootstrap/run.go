package appbootstrap

import (
	"context"
	"fmt"

	"incident-desk/api"
	"incident-desk/config"
	"incident-desk/core/bootstrap"
	"incident-desk/core/store"
	"incident-desk/core/utils"

	"github.com/jmoiron/sqlx"
)

// Run opens the database, prepares the schema and the admin account, then
// serves until ctx is cancelled. A missing admin in admin mode aborts startup.
func Run(ctx context.Context, cfg *config.AppConfig, logger *utils.Logger) error {
	db, err := openAndMigrate(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	rc, err := composeRuntime(cfg, db, logger)
	if err != nil {
		return err
	}
	if err := bootstrap.EnsureDefaultAdminWithStore(ctx, rc.admins, cfg, logger); err != nil {
		return err
	}
	if err := bootstrap.VerifyAdminPresent(ctx, rc.admins, cfg); err != nil {
		return err
	}
	if logger != nil {
		logger.Printf("BOOT auth mode=%s protect_reads=%v driver=%s", cfg.Auth.Mode, cfg.Auth.ProtectReads, cfg.DBDriver)
	}
	srv := api.NewServer(cfg, rc.serverDeps, logger)
	return srv.Run(ctx, rc.workers...)
}

// Migrate applies pending schema migrations and reports the resulting version.
func Migrate(ctx context.Context, cfg *config.AppConfig, logger *utils.Logger) (int64, error) {
	db, err := openAndMigrate(ctx, cfg, logger)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	return store.SchemaVersion(ctx, db)
}

func openAndMigrate(ctx context.Context, cfg *config.AppConfig, logger *utils.Logger) (*sqlx.DB, error) {
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return db, nil
}
