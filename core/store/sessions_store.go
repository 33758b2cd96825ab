package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

type SessionRecord struct {
	ID         string    `json:"id" db:"id"`
	AdminID    int64     `json:"admin_id" db:"admin_id"`
	Username   string    `json:"username" db:"username"`
	CSRFToken  string    `json:"-" db:"csrf_token"`
	IP         string    `json:"ip" db:"ip"`
	UserAgent  string    `json:"user_agent" db:"user_agent"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at" db:"last_seen_at"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
}

type SessionStore interface {
	SaveSession(ctx context.Context, sess *SessionRecord) error
	// GetSession returns nil, nil when the id is unknown or expired at now.
	GetSession(ctx context.Context, id string, now time.Time) (*SessionRecord, error)
	UpdateActivity(ctx context.Context, id string, now time.Time, ttl time.Duration) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionsStore struct {
	db *sqlx.DB
}

func NewSessionsStore(db *sqlx.DB) SessionStore {
	return &sessionsStore{db: db}
}

const sessionColumns = `id, admin_id, username, csrf_token, ip, user_agent, created_at, last_seen_at, expires_at`

func (s *sessionsStore) SaveSession(ctx context.Context, sess *SessionRecord) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO sessions(`+sessionColumns+`)
		VALUES(?,?,?,?,?,?,?,?,?)`),
		sess.ID, sess.AdminID, sess.Username, sess.CSRFToken, sess.IP, sess.UserAgent,
		sess.CreatedAt.UTC(), sess.LastSeenAt.UTC(), sess.ExpiresAt.UTC())
	return err
}

func (s *sessionsStore) GetSession(ctx context.Context, id string, now time.Time) (*SessionRecord, error) {
	if id == "" {
		return nil, nil
	}
	var rec SessionRecord
	err := s.db.GetContext(ctx, &rec, s.db.Rebind(`SELECT `+sessionColumns+` FROM sessions WHERE id=? AND expires_at > ?`), id, now.UTC())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.LastSeenAt = rec.LastSeenAt.UTC()
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	return &rec, nil
}

func (s *sessionsStore) UpdateActivity(ctx context.Context, id string, now time.Time, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE sessions SET last_seen_at=?, expires_at=? WHERE id=? AND expires_at > ?`),
		now.UTC(), now.UTC().Add(ttl), id, now.UTC())
	return err
}

func (s *sessionsStore) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sessions WHERE id=?`), id)
	return err
}

func (s *sessionsStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sessions WHERE expires_at <= ?`), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
