package ics

import (
	"time"

	"meetbrew/internal/model"
)

// BusyBetween parses body and expands it into busy intervals overlapping
// [start, end). Floating and all-day values are read in floating.
func BusyBetween(sourceID string, body []byte, start, end time.Time, floating *time.Location) ([]model.Busy, error) {
	events, err := Parse(sourceID, body, floating)
	if err != nil {
		return nil, err
	}
	return Expand(events, ExpandConfig{RangeStart: start, RangeEnd: end})
}
