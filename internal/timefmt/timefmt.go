// Package timefmt renders wall-clock values as 12-hour labels.
package timefmt

import (
	"fmt"
	"time"
)

func amPm(hour int) string {
	if hour < 12 || hour == 24 {
		return "AM"
	}
	return "PM"
}

func hour12(hour int) int {
	if h := hour % 12; h != 0 {
		return h
	}
	return 12
}

// Hour returns a label such as "9 AM". Hour 24 is midnight at the end of a day.
func Hour(hour int) string {
	return fmt.Sprintf("%d %s", hour12(hour), amPm(hour))
}

// Clock returns a label such as "9:15 AM".
func Clock(hour, minute int) string {
	return fmt.Sprintf("%d:%02d %s", hour12(hour), minute, amPm(hour))
}

// Range returns an hour-window label such as "9 AM – 5 PM".
func Range(earliest, latest int) string {
	return Hour(earliest) + " – " + Hour(latest)
}

// Interval labels the 15-minute slot starting at start, in start's location.
// Weekday templates omit the calendar date.
func Interval(start time.Time, weekdayOnly bool) string {
	end := start.Add(15 * time.Minute)
	span := Clock(start.Hour(), start.Minute()) + " – " + Clock(end.Hour(), end.Minute())
	if weekdayOnly {
		return start.Weekday().String() + " " + span
	}
	return start.Format("Mon, Jan 2") + " " + span
}

// Day labels a display column: "Mon, Jan 8", or "Monday" for weekday templates.
func Day(date time.Time, weekdayOnly bool) string {
	if weekdayOnly {
		return date.Weekday().String()
	}
	return date.Format("Mon, Jan 2")
}
