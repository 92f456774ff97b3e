package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	calendarDomain "github.com/oncall/oncall/internal/calendar/domain"
	"github.com/oncall/oncall/internal/core"
	identityDomain "github.com/oncall/oncall/internal/identity/domain"
	rosterDomain "github.com/oncall/oncall/internal/roster/domain"
)

func icalParams(r *http.Request, now time.Time) (cutoff time.Time, roles []string, includeSubscribed bool, excluded []string, contact bool) {
	q := r.URL.Query()
	cutoff = now
	if v := q.Get("start"); v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			cutoff = time.Unix(unix, 0).UTC()
		}
	}
	if v := q.Get("roles"); v != "" {
		roles = strings.Split(v, ",")
	}
	includeSubscribed = q.Get("include_subscribed") != "0" && !strings.EqualFold(q.Get("include_subscribed"), "false")
	if v := q.Get("excludedTeams"); v != "" {
		excluded = strings.Split(v, ",")
	}
	contact = q.Get("contact") == "1" || strings.EqualFold(q.Get("contact"), "true")
	return
}

func writeIcal(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (h *Handlers) renderTeamIcal(w http.ResponseWriter, r *http.Request, teamName string, contactAllowed bool) {
	name, err := rosterDomain.NewTeamName(teamName)
	if err != nil {
		writeError(w, h.Logger, core.BadRequest("invalid team name"))
		return
	}
	team, err := h.Teams.FindByName(r.Context(), name)
	if err != nil || team == nil {
		writeError(w, h.Logger, core.NotFound("team %s not found", teamName))
		return
	}
	now := h.now()
	cutoff, roles, includeSubscribed, excluded, contact := icalParams(r, now)
	feed, err := h.Reader.TeamIcalFeed(r.Context(), team.ID(), cutoff, roles, includeSubscribed, excluded)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	body, err := h.Projector.Render(feed, contact && contactAllowed, now)
	if err != nil {
		writeError(w, h.Logger, core.Internal(err, "rendering calendar"))
		return
	}
	writeIcal(w, body)
}

func (h *Handlers) renderUserIcal(w http.ResponseWriter, r *http.Request, userName string, contactAllowed bool) {
	name, err := identityDomain.NewUserName(userName)
	if err != nil {
		writeError(w, h.Logger, core.BadRequest("invalid user name"))
		return
	}
	user, err := h.Users.FindByName(r.Context(), name)
	if err != nil || user == nil {
		writeError(w, h.Logger, core.NotFound("user %s not found", userName))
		return
	}
	now := h.now()
	cutoff, roles, _, _, contact := icalParams(r, now)
	feed, err := h.Reader.UserIcalFeed(r.Context(), user.ID(), cutoff, roles)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	body, err := h.Projector.Render(feed, contact && contactAllowed, now)
	if err != nil {
		writeError(w, h.Logger, core.Internal(err, "rendering calendar"))
		return
	}
	writeIcal(w, body)
}

func (h *Handlers) handleTeamIcal(w http.ResponseWriter, r *http.Request) {
	h.renderTeamIcal(w, r, r.PathValue("team"), true)
}

func (h *Handlers) handleUserIcal(w http.ResponseWriter, r *http.Request) {
	h.renderUserIcal(w, r, r.PathValue("user"), true)
}

// handleKeyIcal is the unauthenticated public feed: an ical_key maps to
// one principal and always renders without contact details.
func (h *Handlers) handleKeyIcal(w http.ResponseWriter, r *http.Request) {
	key, err := uuid.Parse(r.PathValue("key"))
	if err != nil {
		writeError(w, h.Logger, core.NotFound("unknown ical key"))
		return
	}
	icalKey, err := h.IcalKeys.FindByKey(r.Context(), key)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if icalKey == nil {
		writeError(w, h.Logger, core.NotFound("unknown ical key"))
		return
	}
	switch icalKey.Type {
	case calendarDomain.IcalKeyTeam:
		h.renderTeamIcal(w, r, icalKey.Name, false)
	case calendarDomain.IcalKeyUser:
		h.renderUserIcal(w, r, icalKey.Name, false)
	default:
		writeError(w, h.Logger, core.Internal(nil, "ical key has unknown type"))
	}
}
