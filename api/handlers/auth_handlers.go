package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"incident-desk/config"
	"incident-desk/core/auth"
	"incident-desk/core/rbac"
	"incident-desk/core/utils"
	"incident-desk/gui"
)

type AuthHandler struct {
	cfg    *config.AppConfig
	gate   *auth.Gate
	policy *rbac.Policy
	pages  *gui.Pages
	logger *utils.Logger
}

func NewAuthHandler(cfg *config.AppConfig, gate *auth.Gate, policy *rbac.Policy, pages *gui.Pages, logger *utils.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, gate: gate, policy: policy, pages: pages, logger: logger}
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.Auth.Enabled() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if c, err := r.Cookie(SessionCookieName); err == nil && h.gate.IsAuthenticated(r.Context(), c.Value) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.render(w, http.StatusOK, gui.LoginView{})
}

// Login accepts either a form post (browser) or a JSON body (API clients).
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.Auth.Enabled() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	asJSON := isJSONRequest(r)
	cred, err := readCredentials(r, asJSON)
	if err != nil {
		if asJSON {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	sess, err := h.gate.Login(r.Context(), cred, auth.ClientInfo{IP: clientIP(r, h.cfg), UserAgent: r.UserAgent()})
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			if h.logger != nil {
				h.logger.Errorf("auth login: %v", err)
			}
			if asJSON {
				writeJSONError(w, http.StatusInternalServerError, "server error")
				return
			}
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		if asJSON {
			writeJSONError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
			return
		}
		h.render(w, http.StatusUnauthorized, gui.LoginView{Username: cred.Username, Error: auth.ErrInvalidCredentials.Error()})
		return
	}
	// Browser-session cookies: the sliding expires_at on the server row decides
	// when the session ends.
	secure := IsSecureRequest(r, h.cfg)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    sess.CSRFToken,
		Path:     "/",
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	if asJSON {
		writeJSON(w, http.StatusOK, map[string]any{
			"username":    sess.Username,
			"csrf_token":  sess.CSRFToken,
			"expires_at":  sess.ExpiresAt,
			"permissions": h.policy.PermissionsForRoles(rbac.RolesFor(true)),
		})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.gate.Logout(r.Context(), c.Value); err != nil && h.logger != nil {
			h.logger.Errorf("auth logout: %v", err)
		}
	}
	secure := IsSecureRequest(r, h.cfg)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *AuthHandler) render(w http.ResponseWriter, status int, view gui.LoginView) {
	if err := h.pages.Render(w, status, "login.html", view); err != nil {
		if h.logger != nil {
			h.logger.Errorf("render login: %v", err)
		}
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}

func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type"))), "application/json")
}

func readCredentials(r *http.Request, asJSON bool) (auth.Credentials, error) {
	var cred auth.Credentials
	if asJSON {
		err := json.NewDecoder(r.Body).Decode(&cred)
		return cred, err
	}
	if err := r.ParseForm(); err != nil {
		return cred, err
	}
	cred.Username = r.PostForm.Get("username")
	cred.Password = r.PostForm.Get("password")
	return cred, nil
}
