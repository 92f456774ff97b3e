package api

import (
	"net/http"
)

func (h *Handlers) handleTeamOncall(w http.ResponseWriter, r *http.Request) {
	var roleName *string
	if role := r.PathValue("role"); role != "" {
		roleName = &role
	}
	views, err := h.Queries.TeamOncall(r.Context(), r.PathValue("team"), roleName, h.now())
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) handleServiceOncall(w http.ResponseWriter, r *http.Request) {
	var roleName *string
	if role := r.URL.Query().Get("role"); role != "" {
		roleName = &role
	}
	views, err := h.Queries.ServiceOncall(r.Context(), r.PathValue("service"), roleName, h.now())
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}
