package routegroups

import (
	"incident-desk/api/handlers"

	"github.com/go-chi/chi/v5"
)

func RegisterIncidentPages(r chi.Router, g Guards, incidents *handlers.IncidentsHandler) {
	r.MethodFunc("GET", "/", g.SessionPerm("incidents.view", incidents.Index))
	r.MethodFunc("POST", "/add", g.SessionPerm("incidents.manage", incidents.Add))
	r.MethodFunc("GET", "/update/{id:[0-9]+}", g.SessionPerm("incidents.manage", incidents.Toggle))
	r.MethodFunc("GET", "/delete/{id:[0-9]+}", g.SessionPerm("incidents.manage", incidents.Delete))
}

func RegisterIncidentsAPI(apiRouter chi.Router, g Guards, incidents *handlers.IncidentsHandler) {
	apiRouter.Route("/incidents", func(incidentsRouter chi.Router) {
		incidentsRouter.MethodFunc("GET", "/", g.SessionPerm("incidents.view", incidents.List))
		incidentsRouter.MethodFunc("POST", "/", g.SessionPerm("incidents.manage", incidents.Create))
		incidentsRouter.MethodFunc("GET", "/{id:[0-9]+}", g.SessionPerm("incidents.view", incidents.Get))
		incidentsRouter.MethodFunc("PUT", "/{id:[0-9]+}", g.SessionPerm("incidents.manage", incidents.Update))
		incidentsRouter.MethodFunc("DELETE", "/{id:[0-9]+}", g.SessionPerm("incidents.manage", incidents.Remove))
	})
}
