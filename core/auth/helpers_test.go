package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"incident-desk/config"
	"incident-desk/core/store"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	hashCost = bcrypt.MinCost
}

type fixture struct {
	db       *sqlx.DB
	cfg      *config.AppConfig
	admins   store.AdminsStore
	sessions *SessionManager
	gate     *Gate
}

func newFixture(t *testing.T, password string) *fixture {
	t.Helper()
	cfg := &config.AppConfig{
		DBDriver:   config.DriverSQLite,
		DBURL:      filepath.Join(t.TempDir(), "auth.db"),
		SessionTTL: time.Hour,
		Pepper:     "pepper",
	}
	db, err := store.NewDB(cfg, nil)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, nil); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	admins := store.NewAdminsStore(db)
	if password != "" {
		if _, err := admins.EnsureAdmin(context.Background(), config.DefaultAdminUsername, MustHashPassword(password, cfg.Pepper)); err != nil {
			t.Fatalf("seed admin: %v", err)
		}
	}
	sm := NewSessionManager(store.NewSessionsStore(db), cfg, nil)
	return &fixture{
		db:       db,
		cfg:      cfg,
		admins:   admins,
		sessions: sm,
		gate:     NewGate(admins, sm, cfg, nil),
	}
}
