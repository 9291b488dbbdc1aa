// Package tz resolves reported timezones onto the picker catalog.
package tz

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	appLog "meetbrew/internal/log"
)

// DefaultZone is used whenever a zone cannot be resolved.
const DefaultZone = "Etc/GMT"

// Entry is a catalog zone with its offset at some instant.
type Entry struct {
	Zone
	Offset int  `json:"offset"` // minutes east of UTC
	DST    bool `json:"dst"`
}

// Resolver maps arbitrary IANA names onto Catalog. The zero value uses the
// package Catalog, the wall clock and DefaultZone.
type Resolver struct {
	Catalog []Zone
	Now     func() time.Time
	Default string
}

func (r Resolver) catalog() []Zone {
	if r.Catalog != nil {
		return r.Catalog
	}
	return Catalog
}

func (r Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r Resolver) fallback() string {
	if r.Default != "" {
		return r.Default
	}
	return DefaultZone
}

// Entries returns every loadable catalog zone with its offset at now.
func (r Resolver) Entries() []Entry {
	now := r.now()
	out := make([]Entry, 0, len(r.catalog()))
	for _, z := range r.catalog() {
		loc, err := time.LoadLocation(z.Name)
		if err != nil {
			continue
		}
		out = append(out, Entry{Zone: z, Offset: offsetMinutes(now, loc), DST: observesDST(now, loc)})
	}
	return out
}

// Resolve returns reported itself when it is in the catalog, otherwise the
// closest catalog zone sharing its current offset, otherwise the default.
func (r Resolver) Resolve(reported string) string {
	reported = strings.TrimSpace(reported)
	if reported == "" {
		return r.fallback()
	}
	for _, z := range r.catalog() {
		if z.Name == reported {
			return reported
		}
	}
	loc, err := time.LoadLocation(reported)
	if err != nil {
		appLog.Warn("unknown timezone, using default", "tz", reported, "default", r.fallback())
		return r.fallback()
	}

	now := r.now()
	offset := offsetMinutes(now, loc)
	dst := observesDST(now, loc)
	before, after := splitZone(reported)

	type candidate struct {
		name  string
		score int
	}
	var candidates []candidate
	for _, e := range r.Entries() {
		if e.Offset != offset {
			continue
		}
		score := 0
		if e.DST == dst {
			name, label := strings.ToLower(e.Name), strings.ToLower(e.Label)
			if strings.Contains(name, after) {
				score += 8
			}
			if strings.Contains(label, after) {
				score += 4
			}
			if before != "" && strings.Contains(name, before) {
				score += 2
			}
			score++
		}
		candidates = append(candidates, candidate{e.Name, score})
	}
	if len(candidates) == 0 {
		appLog.Warn("no catalog zone shares offset, using default", "tz", reported, "offset", offset)
		return r.fallback()
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	appLog.Debug("timezone resolved", "tz", reported, "resolved", candidates[0].name, "score", candidates[0].score)
	return candidates[0].name
}

// Device resolves the host's own zone: $TZ first, then the local zone.
func (r Resolver) Device() string {
	return r.Resolve(deviceZone())
}

// OffsetMinutes returns the current offset of a catalog zone.
func (r Resolver) OffsetMinutes(name string) (int, bool) {
	for _, e := range r.Entries() {
		if e.Name == name {
			return e.Offset, true
		}
	}
	return 0, false
}

// Load resolves name and loads it. It never fails: the default zone, then UTC,
// back it up.
func (r Resolver) Load(name string) *time.Location {
	if loc, err := time.LoadLocation(name); err == nil && name != "" {
		return loc
	}
	if loc, err := time.LoadLocation(r.Resolve(name)); err == nil {
		return loc
	}
	return time.UTC
}

func deviceZone() string {
	if v := strings.TrimPrefix(os.Getenv("TZ"), ":"); v != "" {
		return v
	}
	if name := time.Local.String(); name != "Local" && name != "" {
		return name
	}
	// Most Linux hosts link /etc/localtime into the zoneinfo tree.
	if target, err := os.Readlink("/etc/localtime"); err == nil {
		if i := strings.Index(target, "zoneinfo/"); i >= 0 {
			return filepath.ToSlash(target[i+len("zoneinfo/"):])
		}
	}
	return ""
}

func offsetMinutes(t time.Time, loc *time.Location) int {
	_, off := t.In(loc).Zone()
	return off / 60
}

// observesDST reports whether loc's January and July offsets differ in t's year.
func observesDST(t time.Time, loc *time.Location) bool {
	y := t.In(loc).Year()
	_, jan := time.Date(y, time.January, 1, 12, 0, 0, 0, loc).Zone()
	_, jul := time.Date(y, time.July, 1, 12, 0, 0, 0, loc).Zone()
	return jan != jul
}

func splitZone(name string) (before, after string) {
	name = strings.ToLower(name)
	i := strings.Index(name, "/")
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+1:]
}
