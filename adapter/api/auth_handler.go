package api

import (
	"net/http"

	"github.com/oncall/oncall/internal/authz"
	"github.com/oncall/oncall/internal/core"
	identityDomain "github.com/oncall/oncall/internal/identity/domain"
)

type loginRequest struct {
	Username string `json:"username"`
	Code     string `json:"code,omitempty"` // SSO authorization code
}

// handleLogin establishes a session. With an SSO client configured, the
// authorization code is exchanged for the IdP-asserted username;
// otherwise the external SSO/LDAP collaborator has already vouched for
// the identity upstream (debug deployments take the username at face
// value).
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	username := req.Username
	if h.SSO != nil && req.Code != "" {
		resolved, err := h.SSO.ResolveUser(r.Context(), req.Code)
		if err != nil {
			writeError(w, h.Logger, err)
			return
		}
		username = resolved
	}
	name, err := identityDomain.NewUserName(username)
	if err != nil {
		writeError(w, h.Logger, core.BadRequest("username is required"))
		return
	}
	user, err := h.Users.FindByName(r.Context(), name)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if user == nil || !user.Active() {
		writeError(w, h.Logger, core.Unauthorized("unknown or inactive user"))
		return
	}

	session, err := h.Sessions.Create(r.Context(), user.Name().String(), h.SessionTTL)
	if err != nil {
		writeError(w, h.Logger, core.Internal(err, "creating session"))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authz.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{
		"csrf_token": session.CSRFToken,
		"name":       user.Name().String(),
		"full_name":  user.FullName(),
	})
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(authz.SessionCookieName)
	if err == nil {
		if err := h.Sessions.Delete(r.Context(), cookie.Value); err != nil {
			h.Logger.Warn("deleting session failed", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authz.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}
