package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/oncall/oncall/internal/core"
	identityDomain "github.com/oncall/oncall/internal/identity/domain"
	notificationDomain "github.com/oncall/oncall/internal/notification/domain"
	rosterDomain "github.com/oncall/oncall/internal/roster/domain"
)

func (h *Handlers) handleListNotificationTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Types.FindAll(r.Context())
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	out := make([]map[string]any, 0, len(types))
	for _, t := range types {
		out = append(out, map[string]any{
			"name":        t.Name.String(),
			"is_reminder": t.IsReminder,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type settingDTO struct {
	ID             string   `json:"id"`
	Team           string   `json:"team"`
	Mode           string   `json:"mode"`
	Type           string   `json:"type"`
	Roles          []string `json:"roles"`
	TimeBefore     *int64   `json:"time_before,omitempty"`
	OnlyIfInvolved *bool    `json:"only_if_involved,omitempty"`
}

func (h *Handlers) resolveSettingsUser(r *http.Request) (*identityDomain.User, error) {
	name, err := identityDomain.NewUserName(r.PathValue("user"))
	if err != nil {
		return nil, core.BadRequest("invalid user name")
	}
	user, err := h.Users.FindByName(r.Context(), name)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, core.NotFound("user %s not found", name)
	}
	return user, nil
}

func (h *Handlers) handleListUserSettings(w http.ResponseWriter, r *http.Request) {
	p, err := principalOr403(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	user, err := h.resolveSettingsUser(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if err := h.Authorizer.CheckUserAuth(r.Context(), user.Name().String(), p); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	settings, err := h.Settings.FindByUser(r.Context(), user.ID())
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	out := make([]settingDTO, 0, len(settings))
	for _, s := range settings {
		dto := settingDTO{
			ID:             s.ID.String(),
			Team:           s.TeamID.String(),
			Mode:           s.Mode.String(),
			Type:           s.Type.String(),
			OnlyIfInvolved: s.OnlyIfInvolved,
		}
		if s.TimeBefore != nil {
			seconds := int64(*s.TimeBefore / time.Second)
			dto.TimeBefore = &seconds
		}
		for _, roleID := range s.RoleIDs {
			dto.Roles = append(dto.Roles, roleID.String())
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

type createSettingRequest struct {
	Team           string   `json:"team"`
	Mode           string   `json:"mode"`
	Type           string   `json:"type"`
	Roles          []string `json:"roles"`
	TimeBefore     *int64   `json:"time_before,omitempty"` // seconds
	OnlyIfInvolved *bool    `json:"only_if_involved,omitempty"`
}

func (h *Handlers) handleCreateUserSetting(w http.ResponseWriter, r *http.Request) {
	p, err := principalOr403(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	user, err := h.resolveSettingsUser(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if err := h.Authorizer.CheckUserAuth(r.Context(), user.Name().String(), p); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	var req createSettingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}

	teamName, err := rosterDomain.NewTeamName(req.Team)
	if err != nil {
		writeError(w, h.Logger, core.BadRequest("invalid team name"))
		return
	}
	team, err := h.Teams.FindByName(r.Context(), teamName)
	if err != nil || team == nil {
		writeError(w, h.Logger, core.Conflict("team %s not found", req.Team))
		return
	}
	mode, err := identityDomain.ParseContactMode(req.Mode)
	if err != nil {
		writeError(w, h.Logger, core.BadRequest("unknown contact mode %s", req.Mode))
		return
	}
	typ, err := h.Types.FindByName(r.Context(), notificationDomain.Action(req.Type))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if typ == nil {
		writeError(w, h.Logger, core.Conflict("notification type %s not found", req.Type))
		return
	}
	var roleIDs []uuid.UUID
	for _, roleName := range req.Roles {
		parsed, err := rosterDomain.NewRoleName(roleName)
		if err != nil {
			writeError(w, h.Logger, core.BadRequest("invalid role name"))
			return
		}
		role, err := h.Roles.FindByName(r.Context(), parsed)
		if err != nil {
			writeError(w, h.Logger, err)
			return
		}
		if role == nil {
			writeError(w, h.Logger, core.Conflict("role %s not found", roleName))
			return
		}
		roleIDs = append(roleIDs, role.ID())
	}
	var timeBefore *time.Duration
	if req.TimeBefore != nil {
		d := time.Duration(*req.TimeBefore) * time.Second
		timeBefore = &d
	}

	setting, err := notificationDomain.NewSetting(user.ID(), team.ID(), mode, *typ, roleIDs, timeBefore, req.OnlyIfInvolved)
	if err != nil {
		writeError(w, h.Logger, core.BadRequest("%s", err.Error()))
		return
	}
	if err := h.Settings.Save(r.Context(), setting); err != nil {
		writeError(w, h.Logger, core.Wrap(core.KindConflict, "saving notification setting", err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": setting.ID.String()})
}

func (h *Handlers) handleDeleteUserSetting(w http.ResponseWriter, r *http.Request) {
	p, err := principalOr403(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	user, err := h.resolveSettingsUser(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if err := h.Authorizer.CheckUserAuth(r.Context(), user.Name().String(), p); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, h.Logger, core.BadRequest("invalid setting id"))
		return
	}
	setting, err := h.Settings.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if setting == nil || setting.UserID != user.ID() {
		writeError(w, h.Logger, core.NotFound("notification setting not found"))
		return
	}
	if err := h.Settings.Delete(r.Context(), id); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
