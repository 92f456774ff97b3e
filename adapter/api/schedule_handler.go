package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/oncall/oncall/internal/core"
	identityDomain "github.com/oncall/oncall/internal/identity/domain"
	rosterDomain "github.com/oncall/oncall/internal/roster/domain"
	schedulingApp "github.com/oncall/oncall/internal/scheduling/application"
	schedulingDomain "github.com/oncall/oncall/internal/scheduling/domain"
)

type scheduleEventRequest struct {
	Start    int64 `json:"start"`    // offset seconds within the week
	Duration int64 `json:"duration"` // seconds
}

type createScheduleRequest struct {
	Roster       string                 `json:"roster"`
	Role         string                 `json:"role"`
	Scheduler    string                 `json:"scheduler"`
	AdvancedMode bool                   `json:"advanced_mode"`
	Threshold    int                    `json:"auto_populate_threshold"` // days
	Events       []scheduleEventRequest `json:"events"`
	Order        []string               `json:"order,omitempty"` // usernames, round-robin
}

type scheduleDTO struct {
	ID           string                 `json:"id"`
	Team         string                 `json:"team_id"`
	Roster       string                 `json:"roster_id"`
	Role         string                 `json:"role_id"`
	Scheduler    string                 `json:"scheduler"`
	AdvancedMode bool                   `json:"advanced_mode"`
	Threshold    int                    `json:"auto_populate_threshold"`
	Events       []scheduleEventRequest `json:"events"`
}

func toScheduleDTO(s *schedulingDomain.Schedule) scheduleDTO {
	dto := scheduleDTO{
		ID:           s.ID().String(),
		Team:         s.TeamID().String(),
		Roster:       s.RosterID().String(),
		Role:         s.RoleID().String(),
		Scheduler:    s.SchedulerID(),
		AdvancedMode: s.AdvancedMode(),
		Threshold:    int(s.AutoPopulateThreshold() / (24 * time.Hour)),
	}
	for _, ev := range s.Events() {
		dto.Events = append(dto.Events, scheduleEventRequest{
			Start:    int64(ev.StartOffset / time.Second),
			Duration: int64(ev.Duration / time.Second),
		})
	}
	return dto
}

func (h *Handlers) parseScheduleEvents(specs []scheduleEventRequest) ([]schedulingDomain.ScheduleEvent, error) {
	var events []schedulingDomain.ScheduleEvent
	for _, spec := range specs {
		ev, err := schedulingDomain.NewScheduleEvent(
			time.Duration(spec.Start)*time.Second,
			time.Duration(spec.Duration)*time.Second,
		)
		if err != nil {
			return nil, core.BadRequest("%s", err.Error())
		}
		events = append(events, ev)
	}
	return events, nil
}

func (h *Handlers) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	p, err := principalOr403(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	var req createScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
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
	rosterName, err := rosterDomain.NewRosterName(req.Roster)
	if err != nil {
		writeError(w, h.Logger, core.BadRequest("invalid roster name"))
		return
	}
	roster, err := h.Rosters.FindByTeamAndName(r.Context(), team.ID(), rosterName)
	if err != nil || roster == nil {
		writeError(w, h.Logger, core.NotFound("roster %s not found", req.Roster))
		return
	}
	events, err := h.parseScheduleEvents(req.Events)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	order, err := h.resolveOrder(r, req.Order)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	scheduler := req.Scheduler
	if scheduler == "" {
		scheduler = schedulingDomain.SchedulerDefault
	}
	id, err := h.Schedules.Create(r.Context(), schedulingApp.CreateScheduleInput{
		TeamID:       team.ID(),
		RosterID:     roster.ID(),
		RoleName:     req.Role,
		SchedulerID:  scheduler,
		AdvancedMode: req.AdvancedMode,
		Threshold:    time.Duration(req.Threshold) * 24 * time.Hour,
		Events:       events,
		Order:        order,
	})
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}

func (h *Handlers) resolveOrder(r *http.Request, names []string) ([]uuid.UUID, error) {
	var order []uuid.UUID
	for _, name := range names {
		userName, err := identityDomain.NewUserName(name)
		if err != nil {
			return nil, core.BadRequest("invalid user name in order")
		}
		user, err := h.Users.FindByName(r.Context(), userName)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, core.Conflict("user %s not found", name)
		}
		order = append(order, user.ID())
	}
	return order, nil
}

func (h *Handlers) handleListSchedules(w http.ResponseWriter, r *http.Request) {
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
	schedules, err := h.Schedules.ForTeam(r.Context(), team.ID())
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	out := make([]scheduleDTO, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, toScheduleDTO(s))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) scheduleID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, core.BadRequest("invalid schedule id")
	}
	return id, nil
}

func (h *Handlers) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := h.scheduleID(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	schedule, err := h.Schedules.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTO(schedule))
}

type updateScheduleRequest struct {
	Events    []scheduleEventRequest `json:"events,omitempty"`
	Order     []string               `json:"order,omitempty"`
	Threshold *int                   `json:"auto_populate_threshold,omitempty"`
}

func (h *Handlers) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	p, err := principalOr403(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	id, err := h.scheduleID(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	schedule, err := h.Schedules.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if err := h.Authorizer.CheckTeamAuth(r.Context(), schedule.TeamID(), p); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	var req updateScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	in := schedulingApp.UpdateScheduleInput{}
	if req.Events != nil {
		events, err := h.parseScheduleEvents(req.Events)
		if err != nil {
			writeError(w, h.Logger, err)
			return
		}
		in.Events = events
	}
	if req.Order != nil {
		order, err := h.resolveOrder(r, req.Order)
		if err != nil {
			writeError(w, h.Logger, err)
			return
		}
		in.Order = order
	}
	if req.Threshold != nil {
		d := time.Duration(*req.Threshold) * 24 * time.Hour
		in.Threshold = &d
	}
	if err := h.Schedules.Update(r.Context(), id, in); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	p, err := principalOr403(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	id, err := h.scheduleID(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	schedule, err := h.Schedules.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if err := h.Authorizer.CheckTeamAuth(r.Context(), schedule.TeamID(), p); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if err := h.Schedules.Delete(r.Context(), id); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type populateRequest struct {
	Start int64 `json:"start"`
}

func (h *Handlers) handlePopulateSchedule(w http.ResponseWriter, r *http.Request) {
	p, err := principalOr403(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	id, err := h.scheduleID(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	schedule, err := h.Schedules.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if err := h.Authorizer.CheckTeamAuth(r.Context(), schedule.TeamID(), p); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	var req populateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if err := h.Engine.Populate(r.Context(), id, time.Unix(req.Start, 0).UTC()); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handlePreviewSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := h.scheduleID(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	start := h.now()
	if v := r.URL.Query().Get("start"); v != "" {
		unix, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, h.Logger, core.BadRequest("start must be a unix timestamp"))
			return
		}
		start = time.Unix(unix, 0).UTC()
	}
	events, err := h.Engine.Preview(r.Context(), id, start)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	out := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		out = append(out, map[string]any{
			"start": ev.Start().Unix(),
			"end":   ev.End().Unix(),
			"user":  ev.UserID().String(),
			"role":  ev.RoleID().String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
