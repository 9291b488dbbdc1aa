package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "meetbrew/internal/log"
	"meetbrew/internal/model"
)

const defaultMaxPerEvent = 2000

var ErrBadRange = errors.New("ics: range end before start")

// ExpandConfig bounds expansion to [RangeStart, RangeEnd).
type ExpandConfig struct {
	RangeStart time.Time
	RangeEnd   time.Time
	// MaxPerEvent caps occurrences of a single series. Zero means the default.
	MaxPerEvent int
}

// Expand turns events into busy intervals overlapping the range, sorted by
// start. Overrides replace the instance their RECURRENCE-ID names; cancelled
// overrides remove it.
func Expand(events []Event, cfg ExpandConfig) ([]model.Busy, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, ErrBadRange
	}
	if cfg.MaxPerEvent <= 0 {
		cfg.MaxPerEvent = defaultMaxPerEvent
	}

	bases := make(map[string][]Event)
	overrides := make(map[string][]Event)
	var order []string
	for _, ev := range events {
		if ev.RecurrenceID != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		if _, seen := bases[ev.UID]; !seen {
			order = append(order, ev.UID)
		}
		bases[ev.UID] = append(bases[ev.UID], ev)
	}

	var out []model.Busy
	for _, uid := range order {
		for _, ev := range bases[uid] {
			if ev.Cancelled {
				continue
			}
			out = append(out, expandEvent(ev, overrides[uid], cfg)...)
		}
	}

	// Overrides that moved an instance into the range from outside it.
	for uid, ovs := range overrides {
		for _, ov := range ovs {
			if ov.Cancelled || !overlaps(ov.Start, ov.End, cfg.RangeStart, cfg.RangeEnd) {
				continue
			}
			if _, ok := bases[uid]; !ok || !contains(out, ov) {
				out = append(out, busy(ov, ov.Start, ov.End))
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func expandEvent(ev Event, overrides []Event, cfg ExpandConfig) []model.Busy {
	if ev.RRule == "" {
		if o, ok := override(overrides, ev.Start); ok {
			if o.Cancelled || !overlaps(o.Start, o.End, cfg.RangeStart, cfg.RangeEnd) {
				return nil
			}
			return []model.Busy{busy(o, o.Start, o.End)}
		}
		if !overlaps(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
			return nil
		}
		return []model.Busy{busy(ev, ev.Start, ev.End)}
	}

	rule, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		appLog.Error("ics rrule parse failed", err, "uid", ev.UID, "rrule", ev.RRule)
		return nil
	}
	rule.DTStart(ev.Start)

	set := rrule.Set{}
	set.RRule(rule)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Occurrences that start before the range can still run into it.
	loc := ev.Start.Location()
	dur := ev.End.Sub(ev.Start)
	from := cfg.RangeStart.Add(-dur).In(loc)
	starts := set.Between(from, cfg.RangeEnd.In(loc), true)
	if len(starts) > cfg.MaxPerEvent {
		appLog.Warn("ics occurrences truncated", "uid", ev.UID, "cap", cfg.MaxPerEvent, "found", len(starts))
		starts = starts[:cfg.MaxPerEvent]
	}

	out := make([]model.Busy, 0, len(starts))
	for _, s := range starts {
		e := s.Add(dur)
		if ev.AllDay {
			days := int(dur.Round(24*time.Hour) / (24 * time.Hour))
			e = s.AddDate(0, 0, max(days, 1))
		}
		if o, ok := override(overrides, s); ok {
			if o.Cancelled {
				continue
			}
			if overlaps(o.Start, o.End, cfg.RangeStart, cfg.RangeEnd) {
				out = append(out, busy(o, o.Start, o.End))
			}
			continue
		}
		if overlaps(s, e, cfg.RangeStart, cfg.RangeEnd) {
			out = append(out, busy(ev, s, e))
		}
	}
	return out
}

func override(overrides []Event, start time.Time) (Event, bool) {
	for _, o := range overrides {
		if o.RecurrenceID != nil && o.RecurrenceID.Equal(start) {
			return o, true
		}
	}
	return Event{}, false
}

func contains(out []model.Busy, ev Event) bool {
	for _, b := range out {
		if b.UID == ev.UID && b.Start.Equal(ev.Start) && b.End.Equal(ev.End) {
			return true
		}
	}
	return false
}

func busy(ev Event, start, end time.Time) model.Busy {
	return model.Busy{
		SourceID: ev.SourceID,
		UID:      ev.UID,
		Summary:  ev.Summary,
		AllDay:   ev.AllDay,
		Start:    start,
		End:      end,
	}
}

// overlaps treats zero-length events as occupying their start instant.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Equal(aStart) {
		return !aStart.Before(bStart) && aStart.Before(bEnd)
	}
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
