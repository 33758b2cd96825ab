package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"incident-desk/config"
	"incident-desk/core/auth"
	"incident-desk/core/incidents"
	"incident-desk/core/rbac"
	"incident-desk/core/utils"
	"incident-desk/gui"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

// BackgroundWorker is a long-running job started and stopped with the server.
type BackgroundWorker interface {
	StartWithContext(ctx context.Context) error
	StopWithContext(ctx context.Context) error
}

type ServerDeps struct {
	DB           *sqlx.DB
	Gate         *auth.Gate
	Policy       *rbac.Policy
	IncidentsSvc *incidents.Service
	Pages        *gui.Pages
}

type Server struct {
	cfg             *config.AppConfig
	db              *sqlx.DB
	gate            *auth.Gate
	policy          *rbac.Policy
	incidentsSvc    *incidents.Service
	pages           *gui.Pages
	logger          *utils.Logger
	router          chi.Router
	activityTracker *sessionActivity
	loginLimiter    *requestLimiter
	shutdownTimeout time.Duration
}

func NewServer(cfg *config.AppConfig, deps ServerDeps, logger *utils.Logger) *Server {
	s := &Server{
		cfg:             cfg,
		db:              deps.DB,
		gate:            deps.Gate,
		policy:          deps.Policy,
		incidentsSvc:    deps.IncidentsSvc,
		pages:           deps.Pages,
		logger:          logger,
		activityTracker: newSessionActivity(),
		loginLimiter:    newLimiter(loginLimiterCapacity, loginLimiterRefill),
		shutdownTimeout: 10 * time.Second,
	}
	if s.pages == nil {
		s.pages = gui.MustPages()
	}
	if s.policy == nil {
		s.policy = rbac.NewPolicy(rbac.DefaultRoles(cfg.Auth))
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests and stops
// the workers.
func (s *Server) Run(ctx context.Context, workers ...BackgroundWorker) error {
	for _, w := range workers {
		if err := w.StartWithContext(ctx); err != nil {
			return err
		}
	}
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Slog().Handler(), slog.LevelError),
	}
	errCh := make(chan error, 1)
	go func() {
		if s.logger != nil {
			s.logger.Printf("HTTP listening on %s tls=%v", s.cfg.ListenAddr, s.cfg.TLSEnabled)
		}
		var err error
		if s.cfg.TLSEnabled {
			err = srv.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && s.logger != nil {
		s.logger.Errorf("HTTP shutdown: %v", err)
	}
	for _, w := range workers {
		if err := w.StopWithContext(shutdownCtx); err != nil && s.logger != nil {
			s.logger.Errorf("worker stop: %v", err)
		}
	}
	return serveErr
}
