package model

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// DateLayout is the ISO calendar-date format used for template dates and
// display days.
const DateLayout = "2006-01-02"

// SelectorKind tells which variant of DateSelector is populated.
type SelectorKind string

const (
	KindDates SelectorKind = "dates"
	KindDays  SelectorKind = "days"
)

// DateSelector picks the organizer's candidate days: either specific calendar
// dates or weekdays (Sunday=0) that repeat every week.
type DateSelector struct {
	Kind  SelectorKind `json:"type" yaml:"type"`
	Dates []string     `json:"dates,omitempty" yaml:"dates,omitempty"`
	Days  []int        `json:"days,omitempty" yaml:"days,omitempty"`
}

// Dates returns a selector for specific calendar dates, sorted and de-duplicated.
func Dates(dates ...string) DateSelector {
	seen := make(map[string]bool, len(dates))
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return DateSelector{Kind: KindDates, Dates: out}
}

// Weekdays returns a selector for recurring weekdays, sorted and de-duplicated.
func Weekdays(days ...int) DateSelector {
	seen := make(map[int]bool, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return DateSelector{Kind: KindDays, Days: out}
}

// Keys returns the per-day keys in selector order: ISO dates, or weekday digits.
func (s DateSelector) Keys() []string {
	if s.Kind == KindDays {
		keys := make([]string, len(s.Days))
		for i, d := range s.Days {
			keys[i] = strconv.Itoa(d)
		}
		return keys
	}
	return append([]string(nil), s.Dates...)
}

// Window is a half-open hour range [Earliest, Latest) in the organizer's zone.
type Window struct {
	Earliest int `json:"earliest" yaml:"earliest"`
	Latest   int `json:"latest" yaml:"latest"`
}

func (w Window) Valid() bool {
	return w.Earliest >= 0 && w.Latest <= 24 && w.Earliest < w.Latest
}

// Meeting is the organizer-authored availability template. It is never
// mutated after creation.
type Meeting struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Timezone string       `json:"timezone"`
	Earliest int          `json:"earliest"`
	Latest   int          `json:"latest"`
	Selector DateSelector `json:"selector"`
	// Windows overrides the hour window for individual day keys.
	Windows map[string]Window `json:"windows,omitempty"`
	Created time.Time         `json:"created"`
}

// WindowFor returns the hour window for a selector key.
func (m Meeting) WindowFor(key string) Window {
	if w, ok := m.Windows[key]; ok {
		return w
	}
	return Window{Earliest: m.Earliest, Latest: m.Latest}
}

// Limits applied when an organizer creates a meeting.
const (
	MaxTitleLen = 100
	MaxDates    = 31
	MaxNameLen  = 50
)

var ErrInvalidMeeting = errors.New("invalid meeting")

// Validate checks the template the way the creation flow does. maxDates <= 0
// uses MaxDates.
func (m Meeting) Validate(maxDates int) error {
	if maxDates <= 0 {
		maxDates = MaxDates
	}
	if m.Title == "" {
		return fmt.Errorf("%w: must enter a title", ErrInvalidMeeting)
	}
	if len([]rune(m.Title)) > MaxTitleLen {
		return fmt.Errorf("%w: title longer than %d characters", ErrInvalidMeeting, MaxTitleLen)
	}
	if _, err := time.LoadLocation(m.Timezone); err != nil || m.Timezone == "" {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalidMeeting, m.Timezone)
	}
	if !(Window{Earliest: m.Earliest, Latest: m.Latest}).Valid() {
		return fmt.Errorf("%w: window [%d, %d) out of range", ErrInvalidMeeting, m.Earliest, m.Latest)
	}

	switch m.Selector.Kind {
	case KindDates:
		if len(m.Selector.Dates) == 0 {
			return fmt.Errorf("%w: must select at least one date", ErrInvalidMeeting)
		}
		if len(m.Selector.Dates) > maxDates {
			return fmt.Errorf("%w: too many dates selected, maximum is %d", ErrInvalidMeeting, maxDates)
		}
		for _, d := range m.Selector.Dates {
			if _, err := time.Parse(DateLayout, d); err != nil {
				return fmt.Errorf("%w: bad date %q", ErrInvalidMeeting, d)
			}
		}
	case KindDays:
		if len(m.Selector.Days) == 0 {
			return fmt.Errorf("%w: must select at least one day", ErrInvalidMeeting)
		}
		for _, d := range m.Selector.Days {
			if d < 0 || d > 6 {
				return fmt.Errorf("%w: bad weekday %d", ErrInvalidMeeting, d)
			}
		}
	default:
		return fmt.Errorf("%w: unknown selector type %q", ErrInvalidMeeting, m.Selector.Kind)
	}

	keys := make(map[string]bool)
	for _, k := range m.Selector.Keys() {
		keys[k] = true
	}
	for k, w := range m.Windows {
		if !keys[k] {
			return fmt.Errorf("%w: window for unselected day %q", ErrInvalidMeeting, k)
		}
		if !w.Valid() {
			return fmt.Errorf("%w: window for %s out of range", ErrInvalidMeeting, k)
		}
	}
	return nil
}

// Respondent is one person's answer. Availability holds grid indices.
type Respondent struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Availability []int     `json:"availability"`
	Created      time.Time `json:"created"`
	Updated      time.Time `json:"updated"`
}

// Busy is one concrete busy interval taken from an imported calendar, after
// recurrence expansion.
type Busy struct {
	SourceID string
	UID      string
	Summary  string
	AllDay   bool
	Start    time.Time
	End      time.Time
}
