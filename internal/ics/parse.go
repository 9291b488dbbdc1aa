// Package ics turns busy calendars (uploaded or fetched) into concrete busy
// intervals that can be subtracted from a meeting grid.
package ics

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "meetbrew/internal/log"
)

var (
	ErrEmptyCalendar = errors.New("ics: empty calendar body")
	ErrMalformed     = errors.New("ics: malformed calendar")
)

// Event is a VEVENT reduced to what busy-time computation needs. Recurrences
// are left unexpanded here.
type Event struct {
	SourceID string

	UID     string
	Summary string

	Start  time.Time
	End    time.Time
	AllDay bool

	RRule   string
	ExDates []time.Time
	// RecurrenceID is set on overrides of a single recurring instance.
	RecurrenceID *time.Time
	Cancelled    bool
}

// Parse reads body and returns the events that block time. Transparent events
// are dropped. Floating and all-day values are read in floating.
func Parse(sourceID string, body []byte, floating *time.Location) ([]Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyCalendar
	}
	if floating == nil {
		floating = time.UTC
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "source", sourceID)
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	events := make([]Event, 0, len(cal.Events()))
	skipped := 0
	for _, ve := range cal.Events() {
		if transparent(ve) {
			skipped++
			continue
		}
		ev, err := parseEvent(sourceID, ve, floating)
		if err != nil {
			appLog.Warn("ics vevent skipped", "source", sourceID, "err", err.Error())
			skipped++
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "source", sourceID, "events", len(events), "skipped", skipped)
	return events, nil
}

func transparent(ve *ical.VEvent) bool {
	p := ve.GetProperty(ical.ComponentProperty("TRANSP"))
	return p != nil && strings.EqualFold(strings.TrimSpace(p.Value), "TRANSPARENT")
}

func parseEvent(sourceID string, ve *ical.VEvent, floating *time.Location) (Event, error) {
	ev := Event{SourceID: sourceID}

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return ev, errors.New("missing UID")
	}
	ev.UID = uid.Value
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil {
		ev.Cancelled = strings.EqualFold(strings.TrimSpace(p.Value), "CANCELLED")
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return ev, errors.New("missing DTSTART")
	}
	start, allDay, err := propTime(dtStart, floating)
	if err != nil {
		return ev, fmt.Errorf("DTSTART: %w", err)
	}
	ev.Start, ev.AllDay = start, allDay

	switch dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); {
	case dtEnd != nil:
		end, _, err := propTime(dtEnd, floating)
		if err != nil {
			return ev, fmt.Errorf("DTEND: %w", err)
		}
		ev.End = end
	case ve.GetProperty(ical.ComponentProperty("DURATION")) != nil:
		d, err := parseDuration(ve.GetProperty(ical.ComponentProperty("DURATION")).Value)
		if err != nil {
			return ev, fmt.Errorf("DURATION: %w", err)
		}
		ev.End = addDuration(ev.Start, d)
	case allDay:
		ev.End = ev.Start.AddDate(0, 0, 1)
	default:
		ev.End = ev.Start
	}
	if ev.End.Before(ev.Start) {
		return ev, fmt.Errorf("end %s before start %s", ev.End, ev.Start)
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.RRule = strings.TrimSpace(p.Value)
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		tzid := param(p.ICalParameters, "TZID")
		for _, part := range strings.Split(p.Value, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			if t, _, err := parseValue(part, tzid, floating); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}
	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		t, _, err := propTime(p, floating)
		if err != nil {
			return ev, fmt.Errorf("RECURRENCE-ID: %w", err)
		}
		ev.RecurrenceID = &t
	}
	return ev, nil
}

func param(params map[string][]string, name string) string {
	for k, vs := range params {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

// propTime reads a DATE or DATE-TIME property, honoring TZID.
func propTime(p *ical.IANAProperty, floating *time.Location) (time.Time, bool, error) {
	t, allDay, err := parseValue(p.Value, param(p.ICalParameters, "TZID"), floating)
	if strings.EqualFold(param(p.ICalParameters, "VALUE"), "DATE") {
		allDay = true
	}
	return t, allDay, err
}

// parseValue parses 20240108, 20240108T090000 or 20240108T090000Z. Values
// without Z or a loadable TZID are floating.
func parseValue(v, tzid string, floating *time.Location) (time.Time, bool, error) {
	v = strings.TrimSpace(v)
	loc := floating
	if tzid != "" {
		if l, err := time.LoadLocation(strings.Trim(tzid, `"`)); err == nil {
			loc = l
		} else {
			appLog.Debug("ics unknown TZID, reading as floating", "tzid", tzid)
		}
	}
	switch {
	case strings.HasSuffix(v, "Z"):
		t, err := time.Parse("20060102T150405Z", v)
		return t, false, err
	case strings.Contains(v, "T"):
		t, err := time.ParseInLocation("20060102T150405", v, loc)
		return t, false, err
	default:
		t, err := time.ParseInLocation("20060102", v, floating)
		return t, true, err
	}
}

var durationRe = regexp.MustCompile(`^([+-])?P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// icsDuration keeps days apart from the clock part: a day is one calendar day,
// not 24 hours, across DST changes.
type icsDuration struct {
	days  int
	clock time.Duration
}

func parseDuration(s string) (icsDuration, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	m := durationRe.FindStringSubmatch(s)
	if m == nil || strings.HasSuffix(s, "P") || strings.HasSuffix(s, "T") {
		return icsDuration{}, fmt.Errorf("invalid duration %q", s)
	}
	n := func(i int) int {
		v, _ := strconv.Atoi(m[i])
		return v
	}
	d := icsDuration{
		days:  n(2)*7 + n(3),
		clock: time.Duration(n(4))*time.Hour + time.Duration(n(5))*time.Minute + time.Duration(n(6))*time.Second,
	}
	if m[1] == "-" {
		d.days, d.clock = -d.days, -d.clock
	}
	return d, nil
}

func addDuration(t time.Time, d icsDuration) time.Time {
	return t.AddDate(0, 0, d.days).Add(d.clock)
}
