package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/oncall/oncall/internal/core"
	rosterDomain "github.com/oncall/oncall/internal/roster/domain"
)

// handleDeleteTeam soft-deletes a team: admin-only, renames to a random
// token and drops the team's future events.
func (h *Handlers) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	p, err := principalOr403(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	teamName, err := rosterDomain.NewTeamName(r.PathValue("team"))
	if err != nil {
		writeError(w, h.Logger, core.BadRequest("invalid team name"))
		return
	}
	team, err := h.Teams.FindByName(r.Context(), teamName)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if team == nil {
		writeError(w, h.Logger, core.NotFound("team %s not found", teamName))
		return
	}
	if err := h.Authorizer.CheckTeamAuth(r.Context(), team.ID(), p); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if err := h.TeamService.DeleteTeam(r.Context(), teamName.String(), p.OwnerName()); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type subscriptionRequest struct {
	Subscription string `json:"subscription"` // source team name
	Role         string `json:"role"`
}

// resolveSubscription maps a subscription body to ids, checking admin
// rights on the subscribing team.
func (h *Handlers) resolveSubscription(w http.ResponseWriter, r *http.Request) (teamID, sourceID, roleID uuid.UUID, ok bool) {
	p, err := principalOr403(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	teamName, err := rosterDomain.NewTeamName(r.PathValue("team"))
	if err != nil {
		writeError(w, h.Logger, core.BadRequest("invalid team name"))
		return
	}
	team, err := h.Teams.FindByName(r.Context(), teamName)
	if err != nil || team == nil {
		writeError(w, h.Logger, core.NotFound("team %s not found", teamName))
		return
	}
	if err := h.Authorizer.CheckTeamAuth(r.Context(), team.ID(), p); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	sourceName, err := rosterDomain.NewTeamName(req.Subscription)
	if err != nil {
		writeError(w, h.Logger, core.BadRequest("invalid subscription team name"))
		return
	}
	source, err := h.Teams.FindByName(r.Context(), sourceName)
	if err != nil || source == nil {
		writeError(w, h.Logger, core.Conflict("team %s not found", req.Subscription))
		return
	}
	roleName, err := rosterDomain.NewRoleName(req.Role)
	if err != nil {
		writeError(w, h.Logger, core.BadRequest("invalid role name"))
		return
	}
	role, err := h.Roles.FindByName(r.Context(), roleName)
	if err != nil || role == nil {
		writeError(w, h.Logger, core.Conflict("role %s not found", req.Role))
		return
	}
	return team.ID(), source.ID(), role.ID(), true
}

// handleSubscribe makes the source team's events of one role visible in
// this team's calendar and iCal feeds.
func (h *Handlers) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	teamID, sourceID, roleID, ok := h.resolveSubscription(w, r)
	if !ok {
		return
	}
	if err := h.Subscriptions.Subscribe(r.Context(), teamID, sourceID, roleID); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// handleUnsubscribe removes a team subscription.
func (h *Handlers) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	teamID, sourceID, roleID, ok := h.resolveSubscription(w, r)
	if !ok {
		return
	}
	if err := h.Subscriptions.Unsubscribe(r.Context(), teamID, sourceID, roleID); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteRoster deletes a roster, cascading to its schedules.
func (h *Handlers) handleDeleteRoster(w http.ResponseWriter, r *http.Request) {
	p, err := principalOr403(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	teamName, err := rosterDomain.NewTeamName(r.PathValue("team"))
	if err != nil {
		writeError(w, h.Logger, core.BadRequest("invalid team name"))
		return
	}
	team, err := h.Teams.FindByName(r.Context(), teamName)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if team == nil {
		writeError(w, h.Logger, core.NotFound("team %s not found", teamName))
		return
	}
	if err := h.Authorizer.CheckTeamAuth(r.Context(), team.ID(), p); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if err := h.TeamService.DeleteRoster(r.Context(), team.ID(), r.PathValue("roster"), p.OwnerName()); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
