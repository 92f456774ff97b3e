// Package icalendar renders the current calendar as RFC5545 for external
// consumers: team feeds, user feeds, and the public ical_key endpoints.
package icalendar

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/emersion/go-ical"

	"github.com/oncall/oncall/internal/calendar/application/queries"
)

// ProductID identifies this server in emitted calendars.
const ProductID = "-//Oncall//Calendar//EN"

// Projector encodes event feeds into VCALENDAR documents.
type Projector struct{}

// NewProjector creates the projector.
func NewProjector() *Projector { return &Projector{} }

// Render encodes the given feed rows into one VCALENDAR. Contact lines
// are appended to each description only when includeContacts is set;
// public ical_key feeds always render without them.
func (p *Projector) Render(events []*queries.IcalEvent, includeContacts bool, now time.Time) (string, error) {
	sorted := make([]*queries.IcalEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)

	for _, ev := range sorted {
		vevent := ical.NewEvent()
		vevent.Props.SetText(ical.PropUID, fmt.Sprintf("event-%s@oncall", ev.ID))
		vevent.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
		vevent.Props.SetDateTime(ical.PropDateTimeStart, ev.Start.UTC())
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, ev.End.UTC())
		vevent.Props.SetText(ical.PropSummary, fmt.Sprintf("%s %s shift: %s", ev.Team, ev.Role, ev.FullName))
		vevent.Props.SetText(ical.PropDescription, description(ev, includeContacts))
		vevent.Props.SetText(ical.PropTransparency, "TRANSPARENT")
		if ev.Email != "" {
			attendee := ical.NewProp(ical.PropAttendee)
			attendee.Params.Set(ical.ParamCommonName, ev.FullName)
			attendee.Value = "MAILTO:" + ev.Email
			vevent.Props.Set(attendee)
		}
		cal.Children = append(cal.Children, vevent.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func description(ev *queries.IcalEvent, includeContacts bool) string {
	desc := ev.FullName
	if !includeContacts {
		return desc
	}
	modes := make([]string, 0, len(ev.Contacts))
	for mode := range ev.Contacts {
		modes = append(modes, mode)
	}
	sort.Strings(modes)
	for _, mode := range modes {
		desc += fmt.Sprintf("\n%s: %s", mode, ev.Contacts[mode])
	}
	return desc
}
