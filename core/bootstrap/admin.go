package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"incident-desk/config"
	"incident-desk/core/auth"
	"incident-desk/core/store"
	"incident-desk/core/utils"
)

// ConfigurationError marks a deployment that cannot start as configured.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// EnsureDefaultAdminWithStore seeds the single admin account from the
// configured password. An existing row is left untouched, so restarts never
// rotate the stored hash. In open mode nothing is seeded.
func EnsureDefaultAdminWithStore(ctx context.Context, admins store.AdminsStore, cfg *config.AppConfig, logger *utils.Logger) error {
	if cfg == nil || !cfg.Auth.Enabled() {
		return nil
	}
	_, err := admins.FindByUsername(ctx, config.DefaultAdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	password := strings.TrimSpace(cfg.Admin.Password)
	if password == "" {
		return &ConfigurationError{Reason: "no admin account exists and admin.password is not set"}
	}
	hash, err := auth.HashPassword(password, cfg.Pepper)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	created, err := admins.EnsureAdmin(ctx, config.DefaultAdminUsername, hash)
	if err != nil {
		return err
	}
	if created && logger != nil {
		logger.Printf("BOOTSTRAP created admin account %q", config.DefaultAdminUsername)
	}
	return nil
}

// VerifyAdminPresent fails when admin mode is on but no admin row exists.
func VerifyAdminPresent(ctx context.Context, admins store.AdminsStore, cfg *config.AppConfig) error {
	if cfg == nil || !cfg.Auth.Enabled() {
		return nil
	}
	n, err := admins.Count(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return &ConfigurationError{Reason: "admin mode is enabled but no admin account exists"}
	}
	return nil
}
