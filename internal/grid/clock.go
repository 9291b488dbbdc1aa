package grid

import "time"

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func sameDate(t time.Time, y int, mo time.Month, d int) bool {
	ty, tm, td := t.Date()
	return ty == y && tm == mo && td == d
}

// startOfDay returns the first real instant of the local date. time.Date does
// not promise which side of a transition it lands on, so nudge into the date
// and back to its first 15-minute instant.
func startOfDay(y int, mo time.Month, d int, loc *time.Location) time.Time {
	t := time.Date(y, mo, d, 0, 0, 0, 0, loc)
	target := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	for {
		ty, tm, td := t.Date()
		if !time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC).Before(target) {
			break
		}
		t = t.Add(Step)
	}
	for {
		prev := t.Add(-Step)
		if !sameDate(prev, y, mo, d) {
			return t
		}
		t = prev
	}
}

// dayInstants lists every real instant of a local date at 15-minute steps, in
// chronological order.
func dayInstants(y int, mo time.Month, d int, loc *time.Location) []time.Time {
	out := make([]time.Time, 0, 24*slotsPerHour+slotsPerHour)
	for t := startOfDay(y, mo, d, loc); sameDate(t, y, mo, d); t = t.Add(Step) {
		out = append(out, t)
	}
	return out
}

// foldOrdinal is 1 when t is the second occurrence of its wall clock after a
// fall-back transition, 0 otherwise.
func foldOrdinal(t time.Time) int {
	_, off := t.Zone()
	_, prevOff := t.Add(-3 * time.Hour).Zone()
	if prevOff <= off {
		return 0
	}
	earlier := t.Add(-time.Duration(prevOff-off) * time.Second)
	ey, em, ed := earlier.Date()
	if sameDate(t, ey, em, ed) && minuteOfDay(earlier) == minuteOfDay(t) {
		return 1
	}
	return 0
}

// wallClockExists reports whether the wall clock survives a round trip
// through the zone, i.e. it is not inside a spring-forward gap.
func wallClockExists(y int, mo time.Month, d, hour, minute int, loc *time.Location) bool {
	t := time.Date(y, mo, d, hour, minute, 0, 0, loc)
	return sameDate(t, y, mo, d) && t.Hour() == hour && t.Minute() == minute
}
