// Package grid lays an organizer's availability template out as a calendar
// grid in a viewer's timezone.
//
// Every active 15-minute slot carries a global index. Indices are assigned in
// organizer-local order (selected days in order, then time of day), so the same
// instant gets the same index for every viewer. Respondent availability is
// stored as those indices only.
package grid

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"meetbrew/internal/model"
	"meetbrew/internal/timefmt"
)

// Step is the width of one interval.
const Step = 15 * time.Minute

const slotsPerHour = int(time.Hour / Step)

var (
	ErrEmptyTemplate   = errors.New("grid: template has no active intervals")
	ErrInvalidTemplate = errors.New("grid: invalid template")
)

// referenceSunday starts the canonical week that weekday templates are laid
// out in. January keeps the week clear of DST transitions in nearly every zone.
var referenceSunday = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

// Interval is one 15-minute cell in viewer-local wall-clock time.
type Interval struct {
	Hour   int  `json:"hour"`
	Minute int  `json:"minute"`
	Active bool `json:"active"`
	// Index is the global index, or -1 for inactive cells.
	Index int `json:"index"`
	// Start is zero for Skipped placeholders.
	Start time.Time `json:"start,omitzero"`
	// Repeated marks the second pass through a fall-back hour.
	Repeated bool `json:"repeated,omitempty"`
	// Skipped marks a wall clock that does not exist on this day.
	Skipped bool `json:"skipped,omitempty"`
}

// Day is one display column.
type Day struct {
	// Date is the viewer-local ISO date. For weekday templates it is the date
	// of that weekday in the reference week.
	Date      string       `json:"date"`
	Weekday   time.Weekday `json:"weekday"`
	Intervals []Interval   `json:"intervals"`
}

type cellPos struct {
	day, row int
}

// Grid is the result of Build. It is immutable.
type Grid struct {
	Days     []Day
	Location *time.Location
	Origin   *time.Location
	Weekly   bool

	hours    []int
	instants []time.Time
	cells    []cellPos
}

// slotKey identifies a viewer-local wall-clock slot. fold is 1 for the second
// occurrence of a repeated wall clock.
type slotKey struct {
	day    string
	minute int
	fold   int
}

// Build lays m out in the viewer zone. A nil viewer means the organizer's zone.
func Build(m model.Meeting, viewer *time.Location) (*Grid, error) {
	origin, err := time.LoadLocation(m.Timezone)
	if err != nil || m.Timezone == "" {
		return nil, fmt.Errorf("%w: timezone %q", ErrInvalidTemplate, m.Timezone)
	}
	if viewer == nil {
		viewer = origin
	}

	instants, err := enumerate(m, origin)
	if err != nil {
		return nil, err
	}
	if len(instants) == 0 {
		return nil, ErrEmptyTemplate
	}

	weekly := m.Selector.Kind == model.KindDays
	active := make(map[slotKey]int, len(instants))
	dayKeys := make(map[string]bool)
	var hourSeen [24]bool
	minHour, maxHour := 23, 0

	for idx, inst := range instants {
		local := inst.In(viewer)
		key := displayKey(local, weekly)
		active[slotKey{day: key, minute: minuteOfDay(local), fold: foldOrdinal(local)}] = idx
		dayKeys[key] = true

		h := local.Hour()
		hourSeen[h] = true
		minHour = min(minHour, h)
		maxHour = max(maxHour, h)
	}

	// Hours in the span without any active slot on any day are left out.
	hours := make([]int, 0, maxHour-minHour+1)
	for h := minHour; h <= maxHour; h++ {
		if hourSeen[h] {
			hours = append(hours, h)
		}
	}

	keys := make([]string, 0, len(dayKeys))
	for k := range dayKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	g := &Grid{
		Location: viewer,
		Origin:   origin,
		Weekly:   weekly,
		hours:    hours,
		instants: instants,
		cells:    make([]cellPos, len(instants)),
	}
	for _, key := range keys {
		day := buildDay(key, viewer, hours, active, instants)
		for row, iv := range day.Intervals {
			if iv.Active {
				g.cells[iv.Index] = cellPos{day: len(g.Days), row: row}
			}
		}
		g.Days = append(g.Days, day)
	}
	return g, nil
}

// enumerate returns the organizer-local active instants in index order.
func enumerate(m model.Meeting, origin *time.Location) ([]time.Time, error) {
	var out []time.Time
	for _, key := range m.Selector.Keys() {
		y, mo, d, err := organizerDate(m.Selector.Kind, key)
		if err != nil {
			return nil, err
		}
		w := m.WindowFor(key)
		if !w.Valid() {
			return nil, fmt.Errorf("%w: window [%d, %d) for %s", ErrInvalidTemplate, w.Earliest, w.Latest, key)
		}
		lo, hi := w.Earliest*60, w.Latest*60
		// Real instants only: spring-forward wall clocks never show up here
		// and fall-back wall clocks show up twice.
		for _, t := range dayInstants(y, mo, d, origin) {
			if mod := minuteOfDay(t); mod >= lo && mod < hi {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func organizerDate(kind model.SelectorKind, key string) (int, time.Month, int, error) {
	if kind == model.KindDays {
		var wd int
		if _, err := fmt.Sscanf(key, "%d", &wd); err != nil || wd < 0 || wd > 6 {
			return 0, 0, 0, fmt.Errorf("%w: weekday %q", ErrInvalidTemplate, key)
		}
		y, mo, d := referenceSunday.AddDate(0, 0, wd).Date()
		return y, mo, d, nil
	}
	date, err := time.Parse(model.DateLayout, key)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: date %q", ErrInvalidTemplate, key)
	}
	y, mo, d := date.Date()
	return y, mo, d, nil
}

// displayKey buckets a viewer-local instant into its display column. Weekday
// templates wrap into the reference week so they repeat identically.
func displayKey(local time.Time, weekly bool) string {
	if weekly {
		return referenceSunday.AddDate(0, 0, int(local.Weekday())).Format(model.DateLayout)
	}
	return local.Format(model.DateLayout)
}

// buildDay walks one display column. Active cells take their Start from the
// instant their index stands for; a wrapped weekday cell lives in a different
// real week than the column it is drawn in.
func buildDay(key string, loc *time.Location, hours []int, active map[slotKey]int, indexed []time.Time) Day {
	date, _ := time.Parse(model.DateLayout, key)
	y, mo, d := date.Date()

	var inHours [24]bool
	for _, h := range hours {
		inHours[h] = true
	}

	// Chronological walk: a fall-back hour appears twice in a row, a
	// spring-forward hour not at all.
	present := make(map[int]bool)
	var instants []time.Time
	for _, t := range dayInstants(y, mo, d, loc) {
		if inHours[t.Hour()] {
			instants = append(instants, t)
			present[minuteOfDay(t)] = true
		}
	}

	// Wall clocks the day skips still get a row so columns line up.
	var missing []int
	for _, h := range hours {
		for q := 0; q < slotsPerHour; q++ {
			if mod := h*60 + q*int(Step/time.Minute); !present[mod] {
				missing = append(missing, mod)
			}
		}
	}
	placeholder := func(mod int) Interval {
		h, minute := mod/60, mod%60
		return Interval{
			Hour:    h,
			Minute:  minute,
			Index:   -1,
			Skipped: !wallClockExists(y, mo, d, h, minute, loc),
		}
	}

	day := Day{
		Date:      key,
		Weekday:   date.Weekday(),
		Intervals: make([]Interval, 0, len(hours)*slotsPerHour),
	}
	for _, t := range instants {
		mod := minuteOfDay(t)
		for len(missing) > 0 && missing[0] < mod {
			day.Intervals = append(day.Intervals, placeholder(missing[0]))
			missing = missing[1:]
		}
		fold := foldOrdinal(t)
		iv := Interval{Hour: t.Hour(), Minute: t.Minute(), Index: -1, Start: t, Repeated: fold > 0}
		if idx, ok := active[slotKey{day: key, minute: mod, fold: fold}]; ok {
			iv.Active = true
			iv.Index = idx
			iv.Start = indexed[idx].In(loc)
		}
		day.Intervals = append(day.Intervals, iv)
	}
	for _, mod := range missing {
		day.Intervals = append(day.Intervals, placeholder(mod))
	}
	return day
}

// Len is the number of active intervals; indices run 0..Len()-1.
func (g *Grid) Len() int {
	return len(g.instants)
}

// Indices returns every valid index in order.
func (g *Grid) Indices() []int {
	out := make([]int, len(g.instants))
	for i := range out {
		out[i] = i
	}
	return out
}

// Hours returns the viewer-local hours that have rows.
func (g *Grid) Hours() []int {
	return append([]int(nil), g.hours...)
}

// Rows returns the row count of the longest day.
func (g *Grid) Rows() int {
	n := 0
	for _, d := range g.Days {
		n = max(n, len(d.Intervals))
	}
	return n
}

// Instant returns the instant an index stands for.
func (g *Grid) Instant(index int) (time.Time, bool) {
	if index < 0 || index >= len(g.instants) {
		return time.Time{}, false
	}
	return g.instants[index], true
}

// Locate returns the cell holding index. Stale indices report false.
func (g *Grid) Locate(index int) (day, row int, ok bool) {
	if index < 0 || index >= len(g.cells) {
		return 0, 0, false
	}
	p := g.cells[index]
	return p.day, p.row, true
}

// Cell returns the interval at (day, row); days may be shorter than Rows().
func (g *Grid) Cell(day, row int) (Interval, bool) {
	if day < 0 || day >= len(g.Days) {
		return Interval{}, false
	}
	ivs := g.Days[day].Intervals
	if row < 0 || row >= len(ivs) {
		return Interval{}, false
	}
	return ivs[row], true
}

// Label renders the slot at index for display in the viewer zone.
func (g *Grid) Label(index int) string {
	t, ok := g.Instant(index)
	if !ok {
		return ""
	}
	return timefmt.Interval(t.In(g.Location), g.Weekly)
}

// RowLabels returns one clock label per row of the given day.
func (g *Grid) RowLabels(day int) []string {
	if day < 0 || day >= len(g.Days) {
		return nil
	}
	ivs := g.Days[day].Intervals
	out := make([]string, len(ivs))
	for i, iv := range ivs {
		out[i] = timefmt.Clock(iv.Hour, iv.Minute)
	}
	return out
}

// Overlapping returns the indices whose interval overlaps [start, end).
func (g *Grid) Overlapping(start, end time.Time) []int {
	var out []int
	for i, t := range g.instants {
		if t.Before(end) && start.Before(t.Add(Step)) {
			out = append(out, i)
		}
	}
	return out
}

// Pinned returns a weekly grid whose indices stand for the next real
// occurrence of their organizer weekday and wall clock, on or after now's
// organizer-local date. Days and cells are shared with g. Date grids are
// returned as is.
func (g *Grid) Pinned(now time.Time) *Grid {
	if !g.Weekly {
		return g
	}
	today := now.In(g.Origin)
	ty, tm, td := today.Date()
	base := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)

	out := *g
	out.instants = make([]time.Time, len(g.instants))
	for i, t := range g.instants {
		local := t.In(g.Origin)
		ahead := (int(local.Weekday()) - int(today.Weekday()) + 7) % 7
		y, mo, d := local.Date()
		days := int(base.AddDate(0, 0, ahead).Sub(time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)) / (24 * time.Hour))
		out.instants[i] = local.AddDate(0, 0, days)
	}
	return &out
}

// Span returns the earliest active instant and the end of the latest one.
func (g *Grid) Span() (time.Time, time.Time) {
	first, last := g.instants[0], g.instants[0]
	for _, t := range g.instants[1:] {
		if t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
	}
	return first, last.Add(Step)
}
