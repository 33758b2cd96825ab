package api

import (
	"net/http"

	"incident-desk/api/routegroups"
	"incident-desk/core/rbac"
	"incident-desk/gui"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

func (s *Server) registerRoutes() {
	h := s.newRouteHandlers()
	r := chi.NewRouter()
	r.Use(s.recoverMiddleware, s.securityHeadersMiddleware, s.loggingMiddleware)

	r.MethodFunc("GET", "/healthz", h.health.Healthz)
	r.Handle("/static/*", http.FileServer(http.FS(gui.StaticFiles)))
	r.MethodFunc("GET", "/login", h.auth.LoginPage)
	r.MethodFunc("POST", "/login", s.rateLimitMiddleware(h.auth.Login))
	r.MethodFunc("GET", "/logout", h.auth.Logout)

	guards := s.guards()
	routegroups.RegisterIncidentPages(r, guards, h.incidents)

	r.Route("/api", func(apiRouter chi.Router) {
		if len(s.cfg.CORS.AllowedOrigins) > 0 {
			apiRouter.Use(cors.Handler(cors.Options{
				AllowedOrigins:   s.cfg.CORS.AllowedOrigins,
				AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
		}
		apiRouter.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		})
		apiRouter.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		})
		routegroups.RegisterIncidentsAPI(apiRouter, guards, h.incidents)
	})
	s.router = r
}

func (s *Server) guards() routegroups.Guards {
	return routegroups.Guards{
		WithSession:       s.withSession,
		RequirePermission: func(p string) func(http.HandlerFunc) http.HandlerFunc { return s.requirePermission(rbac.Permission(p)) },
	}
}
