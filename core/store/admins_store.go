package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"incident-desk/core/utils"

	"github.com/jmoiron/sqlx"
)

type Admin struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// AdminsStore has no general Create; the admin row is only inserted through
// EnsureAdmin.
type AdminsStore interface {
	FindByUsername(ctx context.Context, username string) (*Admin, error)
	EnsureAdmin(ctx context.Context, username, passwordHash string) (bool, error)
	Count(ctx context.Context) (int, error)
}

type adminsStore struct {
	db *sqlx.DB
}

func NewAdminsStore(db *sqlx.DB) AdminsStore {
	return &adminsStore{db: db}
}

func (s *adminsStore) FindByUsername(ctx context.Context, username string) (*Admin, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, ErrNotFound
	}
	var a Admin
	err := s.db.GetContext(ctx, &a, s.db.Rebind(`SELECT id, username, password_hash, created_at FROM admins WHERE username=?`), username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// EnsureAdmin inserts the admin row unless one with that username exists.
// It reports whether a row was created.
func (s *adminsStore) EnsureAdmin(ctx context.Context, username, passwordHash string) (bool, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO admins(username, password_hash, created_at) VALUES(?,?,?)
		ON CONFLICT(username) DO NOTHING`), username, passwordHash, utils.NowUTC())
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (s *adminsStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM admins`); err != nil {
		return 0, err
	}
	return n, nil
}
