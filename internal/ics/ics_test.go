package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calendar(events ...string) []byte {
	body := "BEGIN:VCALENDAR\nVERSION:2.0\nPRODID:-//meetbrew//test//EN\n" +
		strings.Join(events, "") + "END:VCALENDAR\n"
	return []byte(strings.ReplaceAll(body, "\n", "\r\n"))
}

const (
	singleEvent = `BEGIN:VEVENT
UID:single@test
DTSTAMP:20240101T000000Z
DTSTART:20240108T140000Z
DTEND:20240108T150000Z
SUMMARY:Standup
END:VEVENT
`
	weeklyEvent = `BEGIN:VEVENT
UID:weekly@test
DTSTAMP:20240101T000000Z
DTSTART;TZID=America/New_York:20240101T090000
DTEND;TZID=America/New_York:20240101T093000
RRULE:FREQ=WEEKLY;COUNT=10
EXDATE;TZID=America/New_York:20240115T090000
SUMMARY:Weekly
END:VEVENT
`
	weeklyOverride = `BEGIN:VEVENT
UID:weekly@test
DTSTAMP:20240101T000000Z
RECURRENCE-ID;TZID=America/New_York:20240108T090000
DTSTART;TZID=America/New_York:20240108T110000
DTEND;TZID=America/New_York:20240108T120000
SUMMARY:Weekly moved
END:VEVENT
`
	transparentEvent = `BEGIN:VEVENT
UID:free@test
DTSTAMP:20240101T000000Z
DTSTART:20240108T160000Z
DTEND:20240108T170000Z
TRANSP:TRANSPARENT
END:VEVENT
`
	allDayEvent = `BEGIN:VEVENT
UID:allday@test
DTSTAMP:20240101T000000Z
DTSTART;VALUE=DATE:20240109
SUMMARY:Holiday
END:VEVENT
`
	durationEvent = `BEGIN:VEVENT
UID:dur@test
DTSTAMP:20240101T000000Z
DTSTART:20240110T100000Z
DURATION:PT45M
END:VEVENT
`
)

func utc(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParse(t *testing.T) {
	events, err := Parse("cal", calendar(singleEvent, weeklyEvent, weeklyOverride, transparentEvent, allDayEvent, durationEvent), time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 5)

	byUID := map[string]Event{}
	for _, ev := range events {
		if ev.RecurrenceID == nil {
			byUID[ev.UID] = ev
		}
	}

	weekly := byUID["weekly@test"]
	assert.Equal(t, "FREQ=WEEKLY;COUNT=10", weekly.RRule)
	assert.Equal(t, "America/New_York", weekly.Start.Location().String())
	require.Len(t, weekly.ExDates, 1)
	assert.True(t, weekly.ExDates[0].Equal(utc("2024-01-15T14:00:00Z")))

	allDay := byUID["allday@test"]
	assert.True(t, allDay.AllDay)
	assert.True(t, allDay.End.Equal(utc("2024-01-10T00:00:00Z")))

	assert.True(t, byUID["dur@test"].End.Equal(utc("2024-01-10T10:45:00Z")))
	assert.Equal(t, "cal", byUID["single@test"].SourceID)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse("cal", []byte("  \n"), nil)
	assert.ErrorIs(t, err, ErrEmptyCalendar)
}

func TestExpand(t *testing.T) {
	busy, err := BusyBetween("cal",
		calendar(singleEvent, weeklyEvent, weeklyOverride, transparentEvent, allDayEvent, durationEvent),
		utc("2024-01-07T00:00:00Z"), utc("2024-01-21T00:00:00Z"), time.UTC)
	require.NoError(t, err)
	require.Len(t, busy, 4)

	assert.Equal(t, "Standup", busy[0].Summary)
	assert.Equal(t, "Weekly moved", busy[1].Summary)
	assert.True(t, busy[1].Start.Equal(utc("2024-01-08T16:00:00Z")))
	assert.True(t, busy[1].End.Equal(utc("2024-01-08T17:00:00Z")))
	assert.True(t, busy[2].AllDay)
	assert.Equal(t, "dur@test", busy[3].UID)
}

func TestExpandCancelledOverride(t *testing.T) {
	cancelled := strings.Replace(weeklyOverride, "SUMMARY:Weekly moved\n", "STATUS:CANCELLED\n", 1)
	busy, err := BusyBetween("cal", calendar(weeklyEvent, cancelled),
		utc("2024-01-07T00:00:00Z"), utc("2024-01-14T00:00:00Z"), time.UTC)
	require.NoError(t, err)
	assert.Empty(t, busy)
}

func TestExpandKeepsLongOccurrenceStartingBeforeRange(t *testing.T) {
	ev := `BEGIN:VEVENT
UID:long@test
DTSTART:20240101T220000Z
DTEND:20240102T020000Z
RRULE:FREQ=DAILY;COUNT=3
END:VEVENT
`
	busy, err := BusyBetween("cal", calendar(ev), utc("2024-01-02T00:00:00Z"), utc("2024-01-02T12:00:00Z"), time.UTC)
	require.NoError(t, err)
	require.Len(t, busy, 1)
	assert.True(t, busy[0].Start.Equal(utc("2024-01-01T22:00:00Z")))
}

func TestExpandBadRange(t *testing.T) {
	_, err := Expand(nil, ExpandConfig{RangeStart: utc("2024-01-02T00:00:00Z"), RangeEnd: utc("2024-01-01T00:00:00Z")})
	assert.ErrorIs(t, err, ErrBadRange)
}

func TestDurationAcrossDST(t *testing.T) {
	ev := `BEGIN:VEVENT
UID:dst@test
DTSTART;TZID=America/New_York:20240309T120000
DURATION:P1D
END:VEVENT
`
	events, err := Parse("cal", calendar(ev), time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 23*time.Hour, events[0].End.Sub(events[0].Start))
}

func TestParseDuration(t *testing.T) {
	cases := map[string]icsDuration{
		"PT45M":   {clock: 45 * time.Minute},
		"P1D":     {days: 1},
		"P2W":     {days: 14},
		"P1DT2H":  {days: 1, clock: 2 * time.Hour},
		"-PT15M":  {clock: -15 * time.Minute},
		"pt1h30m": {clock: 90 * time.Minute},
	}
	for in, want := range cases {
		got, err := parseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "P", "PT", "1H", "P1H"} {
		_, err := parseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestFetchCachesAndRevalidates(t *testing.T) {
	body := calendar(singleEvent)
	var status atomic.Int32
	status.Store(http.StatusOK)
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if code := int(status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	ctx := context.Background()

	res, err := f.Fetch(ctx, srv.URL+"/cal.ics?token=secret")
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, body, res.Body)

	res, err = f.Fetch(ctx, srv.URL+"/cal.ics?token=secret")
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, body, res.Body)

	status.Store(http.StatusBadGateway)
	res, err = f.Fetch(ctx, srv.URL+"/cal.ics?token=secret")
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, int32(3), hits.Load())

	_, err = f.Fetch(ctx, srv.URL+"/other.ics")
	assert.Error(t, err)
}

func TestFetchLimits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	f := NewFetcher("", srv.Client())
	f.maxBytes = 32
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = f.Fetch(context.Background(), "ftp://example.com/cal.ics")
	assert.ErrorIs(t, err, ErrBadURL)
	_, err = f.Fetch(context.Background(), "not a url")
	assert.ErrorIs(t, err, ErrBadURL)
}

func TestPublicClientRefusesInternalAddresses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(calendar(singleEvent))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), nil)
	for _, u := range []string{
		srv.URL + "/cal.ics",
		"http://169.254.169.254/latest/meta-data/",
		"http://10.0.0.1/cal.ics",
	} {
		_, err := f.Fetch(context.Background(), u)
		assert.ErrorIs(t, err, ErrBlocked, u)
	}
}

func TestPublicAddr(t *testing.T) {
	cases := map[string]bool{
		"93.184.216.34":   true,
		"2606:4700::1111": true,
		"127.0.0.1":       false,
		"10.1.2.3":        false,
		"172.16.0.9":      false,
		"192.168.1.1":     false,
		"169.254.169.254": false,
		"100.64.0.1":      false,
		"0.0.0.0":         false,
		"::1":             false,
		"fe80::1":         false,
		"fd00::1":         false,
		"::ffff:10.0.0.1": false,
		"224.0.0.1":       false,
	}
	for in, want := range cases {
		assert.Equal(t, want, publicAddr(netip.MustParseAddr(in)), in)
	}
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://cal.example.com/...(redacted)", redactURL("https://cal.example.com/u/42/private.ics?key=abc"))
	assert.Equal(t, "ics://...(redacted)", redactURL("garbage"))
}
