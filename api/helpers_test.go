package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"incident-desk/api/handlers"
	"incident-desk/config"
	"incident-desk/core/auth"
	"incident-desk/core/bootstrap"
	"incident-desk/core/incidents"
	"incident-desk/core/rbac"
	"incident-desk/core/store"
)

const testAdminPassword = "correct-horse"

type testEnv struct {
	cfg    *config.AppConfig
	server *Server
	svc    *incidents.Service
}

func newTestEnv(t *testing.T, mutate func(cfg *config.AppConfig)) *testEnv {
	t.Helper()
	cfg := &config.AppConfig{
		DBDriver:   config.DriverSQLite,
		DBURL:      filepath.Join(t.TempDir(), "api.db"),
		ListenAddr: "127.0.0.1:0",
		SessionTTL: time.Hour,
		Auth:       config.AuthConfig{Mode: config.AuthModeAdmin},
		Admin:      config.AdminConfig{Password: testAdminPassword},
	}
	if mutate != nil {
		mutate(cfg)
	}
	db, err := store.NewDB(cfg, nil)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	if err := store.ApplyMigrations(ctx, db, nil); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	admins := store.NewAdminsStore(db)
	if err := bootstrap.EnsureDefaultAdminWithStore(ctx, admins, cfg, nil); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	sm := auth.NewSessionManager(store.NewSessionsStore(db), cfg, nil)
	svc := incidents.NewService(store.NewIncidentsStore(db), nil)
	srv := NewServer(cfg, ServerDeps{
		DB:           db,
		Gate:         auth.NewGate(admins, sm, cfg, nil),
		Policy:       rbac.NewPolicy(rbac.DefaultRoles(cfg.Auth)),
		IncidentsSvc: svc,
	}, nil)
	return &testEnv{cfg: cfg, server: srv, svc: svc}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rr, req)
	return rr
}

type loginResult struct {
	session string
	csrf    string
}

func (e *testEnv) login(t *testing.T) loginResult {
	t.Helper()
	form := url.Values{"username": {"admin"}, "password": {testAdminPassword}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := e.do(req)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("login: expected 303, got %d: %s", rr.Code, rr.Body.String())
	}
	var res loginResult
	for _, c := range rr.Result().Cookies() {
		switch c.Name {
		case handlers.SessionCookieName:
			res.session = c.Value
		case handlers.CSRFCookieName:
			res.csrf = c.Value
		}
	}
	if res.session == "" || res.csrf == "" {
		t.Fatalf("login did not set session and csrf cookies")
	}
	return res
}

func withSessionCookie(req *http.Request, l loginResult) *http.Request {
	req.AddCookie(&http.Cookie{Name: handlers.SessionCookieName, Value: l.session})
	return req
}

func incidentInput(title string) incidents.NewIncident {
	return incidents.NewIncident{Title: title, Description: "seeded", Priority: "Medium"}
}

func seedIncident(t *testing.T, env *testEnv, title string) *store.Incident {
	t.Helper()
	inc, err := env.svc.Create(t.Context(), incidentInput(title), incidents.ChannelForm)
	if err != nil {
		t.Fatalf("seed incident: %v", err)
	}
	return inc
}
