package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"incident-desk/config"
	"incident-desk/core/incidents"
	"incident-desk/core/rbac"
	"incident-desk/core/utils"
	"incident-desk/gui"
)

type IncidentsHandler struct {
	cfg    *config.AppConfig
	svc    *incidents.Service
	policy *rbac.Policy
	pages  *gui.Pages
	logger *utils.Logger
}

func NewIncidentsHandler(cfg *config.AppConfig, svc *incidents.Service, policy *rbac.Policy, pages *gui.Pages, logger *utils.Logger) *IncidentsHandler {
	return &IncidentsHandler{cfg: cfg, svc: svc, policy: policy, pages: pages, logger: logger}
}

// Index renders the incident list, optionally filtered by ?search=.
func (h *IncidentsHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderIndex(w, r, http.StatusOK, r.URL.Query().Get("search"), incidents.NewIncident{}, "")
}

func (h *IncidentsHandler) Add(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	in := incidents.NewIncident{
		Title:       r.PostForm.Get("title"),
		Description: r.PostForm.Get("description"),
		Priority:    r.PostForm.Get("priority"),
	}
	if _, err := h.svc.Create(r.Context(), in, incidents.ChannelForm); err != nil {
		var vErr *incidents.ValidationError
		if errors.As(err, &vErr) {
			h.renderIndex(w, r, http.StatusBadRequest, "", in, vErr.Message)
			return
		}
		h.serverError(w, "create incident", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *IncidentsHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		http.Error(w, "incident not found", http.StatusNotFound)
		return
	}
	if _, err := h.svc.ToggleStatus(r.Context(), id); err != nil {
		h.pageError(w, "toggle incident", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *IncidentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		http.Error(w, "incident not found", http.StatusNotFound)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.pageError(w, "delete incident", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *IncidentsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.writeIncidentError(w, "list incidents", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *IncidentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeJSONError(w, http.StatusNotFound, incidents.ErrNotFound.Error())
		return
	}
	inc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeIncidentError(w, "get incident", err)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

func (h *IncidentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in incidents.NewIncident
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, jsonBodyMaxBytes))
	if err := dec.Decode(&in); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	inc, err := h.svc.Create(r.Context(), in, incidents.ChannelAPI)
	if err != nil {
		h.writeIncidentError(w, "create incident", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Incident added successfully",
		"id":      inc.ID,
	})
}

// Update toggles the status; the API has no field-level edit.
func (h *IncidentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeJSONError(w, http.StatusNotFound, incidents.ErrNotFound.Error())
		return
	}
	inc, err := h.svc.ToggleStatus(r.Context(), id)
	if err != nil {
		h.writeIncidentError(w, "toggle incident", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Incident %d status updated", inc.ID),
		"status":  inc.Status,
	})
}

func (h *IncidentsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeJSONError(w, http.StatusNotFound, incidents.ErrNotFound.Error())
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeIncidentError(w, "delete incident", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Incident %d deleted", id)})
}

func (h *IncidentsHandler) renderIndex(w http.ResponseWriter, r *http.Request, status int, search string, form incidents.NewIncident, msg string) {
	items, err := h.svc.List(r.Context(), search)
	if err != nil {
		h.serverError(w, "list incidents", err)
		return
	}
	sess := currentSession(r)
	view := gui.IndexView{
		Incidents:     items,
		Summary:       incidents.Summarize(items),
		Search:        search,
		Form:          form,
		Error:         msg,
		CanManage:     h.policy.Allowed(rbac.RolesFor(sess != nil), rbac.PermIncidentsManage),
		AuthEnabled:   h.cfg != nil && h.cfg.Auth.Enabled(),
		Authenticated: sess != nil,
	}
	if sess != nil {
		view.Username = sess.Username
		view.CSRFToken = sess.CSRFToken
	}
	if err := h.pages.Render(w, status, "index.html", view); err != nil {
		h.serverError(w, "render index", err)
	}
}

func (h *IncidentsHandler) pageError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, incidents.ErrNotFound) {
		http.Error(w, "incident not found", http.StatusNotFound)
		return
	}
	h.serverError(w, op, err)
}

func (h *IncidentsHandler) serverError(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Errorf("%s: %v", op, err)
	}
	http.Error(w, "server error", http.StatusInternalServerError)
}

func (h *IncidentsHandler) writeIncidentError(w http.ResponseWriter, op string, err error) {
	var vErr *incidents.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSONError(w, http.StatusBadRequest, vErr.Message)
	case errors.Is(err, incidents.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, incidents.ErrNotFound.Error())
	default:
		if h.logger != nil {
			h.logger.Errorf("%s: %v", op, err)
		}
		writeJSONError(w, http.StatusInternalServerError, "server error")
	}
}
