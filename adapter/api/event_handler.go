package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/oncall/oncall/internal/calendar/application/commands"
	"github.com/oncall/oncall/internal/calendar/application/queries"
	"github.com/oncall/oncall/internal/core"
)

// eventDTO is the wire shape of an event: instants as unix seconds.
type eventDTO struct {
	ID         string  `json:"id"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	User       string  `json:"user"`
	FullName   string  `json:"full_name"`
	Team       string  `json:"team"`
	Role       string  `json:"role"`
	ScheduleID *string `json:"schedule_id,omitempty"`
	LinkID     *string `json:"link_id,omitempty"`
	Note       *string `json:"note,omitempty"`
}

func toEventDTO(v *queries.EventView) eventDTO {
	dto := eventDTO{
		ID:       v.ID.String(),
		Start:    v.Start.Unix(),
		End:      v.End.Unix(),
		User:     v.User,
		FullName: v.FullName,
		Team:     v.Team,
		Role:     v.Role,
		LinkID:   v.LinkID,
		Note:     v.Note,
	}
	if v.ScheduleID != nil {
		s := v.ScheduleID.String()
		dto.ScheduleID = &s
	}
	return dto
}

func (h *Handlers) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r.URL.Query())
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	views, err := h.Queries.List(r.Context(), q)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	out := make([]eventDTO, 0, len(views))
	for _, v := range views {
		out = append(out, toEventDTO(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, h.Logger, core.BadRequest("invalid event id"))
		return
	}
	view, err := h.Queries.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(view))
}

type createEventRequest struct {
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	User       string  `json:"user"`
	Team       string  `json:"team"`
	Role       string  `json:"role"`
	ScheduleID *string `json:"schedule_id,omitempty"`
	Note       *string `json:"note,omitempty"`
}

func (h *Handlers) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	p, err := principalOr403(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	var req createEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	cmd := commands.CreateEventCommand{
		Start: time.Unix(req.Start, 0).UTC(),
		End:   time.Unix(req.End, 0).UTC(),
		User:  req.User,
		Team:  req.Team,
		Role:  req.Role,
		Note:  req.Note,
	}
	if req.ScheduleID != nil {
		sid, err := uuid.Parse(*req.ScheduleID)
		if err != nil {
			writeError(w, h.Logger, core.BadRequest("invalid schedule id"))
			return
		}
		cmd.ScheduleID = &sid
	}
	id, err := h.CreateEvent.Handle(r.Context(), p, cmd)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id.String()})
}

type editEventRequest struct {
	Start *int64  `json:"start,omitempty"`
	End   *int64  `json:"end,omitempty"`
	User  *string `json:"user,omitempty"`
	Role  *string `json:"role,omitempty"`
	Note  *string `json:"note,omitempty"`
}

func (h *Handlers) handleEditEvent(w http.ResponseWriter, r *http.Request) {
	p, err := principalOr403(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, h.Logger, core.BadRequest("invalid event id"))
		return
	}
	var req editEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	cmd := commands.EditEventCommand{EventID: id, User: req.User, Role: req.Role, Note: req.Note}
	if req.Start != nil {
		t := time.Unix(*req.Start, 0).UTC()
		cmd.Start = &t
	}
	if req.End != nil {
		t := time.Unix(*req.End, 0).UTC()
		cmd.End = &t
	}
	if err := h.EditEvent.Handle(r.Context(), p, cmd); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	p, err := principalOr403(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, h.Logger, core.BadRequest("invalid event id"))
		return
	}
	if err := h.DeleteEvent.Handle(r.Context(), p, commands.DeleteEventCommand{EventID: id}); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type linkedEventSpecRequest struct {
	Start int64   `json:"start"`
	End   int64   `json:"end"`
	Note  *string `json:"note,omitempty"`
}

type createLinkedEventsRequest struct {
	User   string                   `json:"user"`
	Team   string                   `json:"team"`
	Role   string                   `json:"role"`
	Events []linkedEventSpecRequest `json:"events"`
}

func (h *Handlers) handleCreateLinkedEvents(w http.ResponseWriter, r *http.Request) {
	p, err := principalOr403(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	var req createLinkedEventsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	cmd := commands.CreateLinkedEventsCommand{User: req.User, Team: req.Team, Role: req.Role}
	for _, spec := range req.Events {
		cmd.Events = append(cmd.Events, commands.LinkedEventSpec{
			Start: time.Unix(spec.Start, 0).UTC(),
			End:   time.Unix(spec.End, 0).UTC(),
			Note:  spec.Note,
		})
	}
	result, err := h.CreateLinkedEvents.Handle(r.Context(), p, cmd)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	ids := make([]string, 0, len(result.EventIDs))
	for _, id := range result.EventIDs {
		ids = append(ids, id.String())
	}
	writeJSON(w, http.StatusCreated, map[string]any{"link_id": result.LinkID, "event_ids": ids})
}

func (h *Handlers) handleEditLinkedGroup(w http.ResponseWriter, r *http.Request) {
	p, err := principalOr403(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	var req editEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	cmd := commands.EditLinkedGroupCommand{
		LinkID: r.PathValue("link_id"),
		User:   req.User,
		Role:   req.Role,
		Note:   req.Note,
	}
	if req.Start != nil {
		t := time.Unix(*req.Start, 0).UTC()
		cmd.Start = &t
	}
	if req.End != nil {
		t := time.Unix(*req.End, 0).UTC()
		cmd.End = &t
	}
	if err := h.EditLinkedGroup.Handle(r.Context(), p, cmd); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) handleDeleteLinkedGroup(w http.ResponseWriter, r *http.Request) {
	p, err := principalOr403(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	cmd := commands.DeleteLinkedGroupCommand{LinkID: r.PathValue("link_id")}
	if err := h.DeleteLinkedGroup.Handle(r.Context(), p, cmd); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type swapSideRequest struct {
	ID     string `json:"id"`
	Linked bool   `json:"linked"`
}

type swapEventsRequest struct {
	Events []swapSideRequest `json:"events"`
}

func (h *Handlers) handleSwapEvents(w http.ResponseWriter, r *http.Request) {
	p, err := principalOr403(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	var req swapEventsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if len(req.Events) != 2 {
		writeError(w, h.Logger, core.BadRequest("swap requires exactly two sides"))
		return
	}
	sides := make([]commands.SwapSide, 2)
	for i, side := range req.Events {
		if side.Linked {
			sides[i] = commands.SwapSide{LinkID: side.ID, Linked: true}
			continue
		}
		id, err := uuid.Parse(side.ID)
		if err != nil {
			writeError(w, h.Logger, core.BadRequest("invalid event id in swap"))
			return
		}
		sides[i] = commands.SwapSide{EventID: id}
	}
	cmd := commands.SwapEventsCommand{First: sides[0], Second: sides[1]}
	if err := h.SwapEvents.Handle(r.Context(), p, cmd); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type overrideEventsRequest struct {
	Start    int64    `json:"start"`
	End      int64    `json:"end"`
	EventIDs []string `json:"event_ids"`
	User     string   `json:"user"`
}

func (h *Handlers) handleOverrideEvents(w http.ResponseWriter, r *http.Request) {
	p, err := principalOr403(r)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	var req overrideEventsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	cmd := commands.OverrideEventsCommand{
		Start: time.Unix(req.Start, 0).UTC(),
		End:   time.Unix(req.End, 0).UTC(),
		User:  req.User,
	}
	for _, raw := range req.EventIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, h.Logger, core.BadRequest("invalid event id %s", raw))
			return
		}
		cmd.EventIDs = append(cmd.EventIDs, id)
	}
	events, err := h.OverrideEvents.Handle(r.Context(), p, cmd)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	out := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		out = append(out, map[string]any{
			"id":    ev.ID().String(),
			"start": ev.Start().Unix(),
			"end":   ev.End().Unix(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
