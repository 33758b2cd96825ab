package auth

import (
	"context"
	"errors"
	"strings"

	"incident-desk/config"
	"incident-desk/core/store"
	"incident-desk/core/utils"
)

// ErrInvalidCredentials is returned for both an unknown username and a wrong
// password so callers cannot tell the two apart.
var ErrInvalidCredentials = errors.New("invalid username or password")

type ClientInfo struct {
	IP        string
	UserAgent string
}

// Gate verifies the single admin credential and answers whether a session
// token is currently open.
type Gate struct {
	admins   store.AdminsStore
	sessions *SessionManager
	cfg      *config.AppConfig
	logger   *utils.Logger
}

func NewGate(admins store.AdminsStore, sessions *SessionManager, cfg *config.AppConfig, logger *utils.Logger) *Gate {
	return &Gate{admins: admins, sessions: sessions, cfg: cfg, logger: logger}
}

func (g *Gate) Login(ctx context.Context, cred Credentials, client ClientInfo) (*Session, error) {
	username := strings.ToLower(strings.TrimSpace(cred.Username))
	admin, err := g.admins.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		burnCompare(cred.Password, g.pepper())
		g.logf("AUTH fail (invalid credentials) user=%q ip=%s", username, client.IP)
		return nil, ErrInvalidCredentials
	}
	ok, err := VerifyPassword(cred.Password, g.pepper(), admin.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		g.logf("AUTH fail (invalid credentials) user=%q ip=%s", username, client.IP)
		return nil, ErrInvalidCredentials
	}
	sess, err := g.sessions.Create(ctx, admin, client.IP, client.UserAgent)
	if err != nil {
		return nil, err
	}
	g.logf("AUTH login user=%s ip=%s", admin.Username, client.IP)
	return sess, nil
}

// Logout closes the session for token. Unknown or empty tokens are not an
// error.
func (g *Gate) Logout(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return g.sessions.Delete(ctx, token)
}

// Authenticate returns the open session for token, or nil when there is none.
func (g *Gate) Authenticate(ctx context.Context, token string) (*store.SessionRecord, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	return g.sessions.Get(ctx, token)
}

func (g *Gate) IsAuthenticated(ctx context.Context, token string) bool {
	sess, err := g.Authenticate(ctx, token)
	if err != nil {
		if g.logger != nil {
			g.logger.Errorf("session lookup: %v", err)
		}
		return false
	}
	return sess != nil
}

func (g *Gate) Sessions() *SessionManager {
	return g.sessions
}

func (g *Gate) pepper() string {
	if g.cfg == nil {
		return ""
	}
	return g.cfg.Pepper
}

func (g *Gate) logf(format string, args ...any) {
	if g.logger != nil {
		g.logger.Printf(format, args...)
	}
}
