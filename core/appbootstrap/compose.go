package appbootstrap

import (
	"incident-desk/api"
	"incident-desk/config"
	"incident-desk/core/auth"
	"incident-desk/core/incidents"
	"incident-desk/core/rbac"
	"incident-desk/core/store"
	"incident-desk/core/utils"
	"incident-desk/gui"

	"github.com/jmoiron/sqlx"
)

type runtimeComposition struct {
	serverDeps api.ServerDeps
	admins     store.AdminsStore
	workers    []api.BackgroundWorker
}

func composeRuntime(cfg *config.AppConfig, db *sqlx.DB, logger *utils.Logger) (*runtimeComposition, error) {
	admins := store.NewAdminsStore(db)
	sessions := store.NewSessionsStore(db)
	incidentsStore := store.NewIncidentsStore(db)

	pages, err := gui.NewPages()
	if err != nil {
		return nil, err
	}
	policy := rbac.NewPolicy(rbac.DefaultRoles(cfg.Auth))
	sessionManager := auth.NewSessionManager(sessions, cfg, logger)
	gate := auth.NewGate(admins, sessionManager, cfg, logger)
	sweeper := auth.NewSweeper(cfg.Sessions.SweepSpec, sessionManager, logger)

	return &runtimeComposition{
		serverDeps: api.ServerDeps{
			DB:           db,
			Gate:         gate,
			Policy:       policy,
			IncidentsSvc: incidents.NewService(incidentsStore, logger),
			Pages:        pages,
		},
		admins:  admins,
		workers: []api.BackgroundWorker{sweeper},
	}, nil
}
