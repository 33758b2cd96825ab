package api

import "incident-desk/api/handlers"

type routeHandlers struct {
	auth      *handlers.AuthHandler
	incidents *handlers.IncidentsHandler
	health    *handlers.HealthHandler
}

func (s *Server) newRouteHandlers() routeHandlers {
	return routeHandlers{
		auth:      handlers.NewAuthHandler(s.cfg, s.gate, s.policy, s.pages, s.logger),
		incidents: handlers.NewIncidentsHandler(s.cfg, s.incidentsSvc, s.policy, s.pages, s.logger),
		health:    handlers.NewHealthHandler(s.db),
	}
}
