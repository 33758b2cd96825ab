package auth

import (
	"context"
	"sync"

	"incident-desk/core/utils"

	"github.com/robfig/cron/v3"
)

// Sweeper removes expired session rows on a cron schedule. Expired sessions
// are already ignored by lookups; this only keeps the table small.
type Sweeper struct {
	spec     string
	sessions *SessionManager
	logger   *utils.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewSweeper(spec string, sessions *SessionManager, logger *utils.Logger) *Sweeper {
	return &Sweeper{spec: spec, sessions: sessions, logger: logger}
}

func (s *Sweeper) StartWithContext(ctx context.Context) error {
	if s == nil || s.sessions == nil || s.spec == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.spec, func() { _, _ = s.RunOnce(ctx) }); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.running = true
	return nil
}

func (s *Sweeper) StopWithContext(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.running = false
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.sessions.PurgeExpired(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("session sweep: %v", err)
		}
		return 0, err
	}
	if n > 0 && s.logger != nil {
		s.logger.Printf("session sweep removed %d expired sessions", n)
	}
	return n, nil
}
