package gui

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"incident-desk/core/incidents"
	"incident-desk/core/store"
)

//go:embed templates/*.html static/*
var StaticFiles embed.FS

type Pages struct {
	tmpl *template.Template
}

func NewPages() (*Pages, error) {
	tmpl, err := template.New("pages").Funcs(template.FuncMap{
		"timestamp":  func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 UTC") },
		"resolved":   func(status string) bool { return status == store.StatusResolved },
		"priorities": func() []string { return Priorities },
	}).ParseFS(StaticFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Pages{tmpl: tmpl}, nil
}

func MustPages() *Pages {
	p, err := NewPages()
	if err != nil {
		panic(err)
	}
	return p
}

// Render executes the named template into a buffer so a template failure
// never leaves a half-written page behind.
func (p *Pages) Render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Priorities are the choices offered by the add form. The API accepts any
// short label.
var Priorities = []string{"Low", "Medium", "High", "Critical"}

type IndexView struct {
	Incidents     []store.Incident
	Summary       incidents.Summary
	Search        string
	Form          incidents.NewIncident
	Error         string
	CanManage     bool
	AuthEnabled   bool
	Authenticated bool
	Username      string
	CSRFToken     string
}

type LoginView struct {
	Username string
	Error    string
}
