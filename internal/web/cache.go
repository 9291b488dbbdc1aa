package web

import (
	"sync"
	"time"

	"meetbrew/internal/grid"
	"meetbrew/internal/model"
)

// gridKey carries the creation time so a purged id that is created again
// never sees the old meeting's grid.
type gridKey struct {
	meeting string
	created int64
	zone    string
}

type gridEntry struct {
	g         *grid.Grid
	updatedAt time.Time
}

// gridCache keeps built grids per (meeting, viewer zone). Meetings never
// change after creation, so entries only age out.
type gridCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[gridKey]gridEntry
}

func newGridCache(ttl time.Duration, now func() time.Time) *gridCache {
	return &gridCache{ttl: ttl, now: now, entries: make(map[gridKey]gridEntry)}
}

// get returns the cached grid for m in loc, building it on a miss.
func (c *gridCache) get(m model.Meeting, loc *time.Location) (*grid.Grid, error) {
	key := gridKey{meeting: m.ID, created: m.Created.UnixNano(), zone: loc.String()}
	now := c.now()

	if c.ttl > 0 {
		c.mu.RLock()
		e, ok := c.entries[key]
		c.mu.RUnlock()
		if ok && now.Sub(e.updatedAt) < c.ttl {
			return e.g, nil
		}
	}

	g, err := grid.Build(m, loc)
	if err != nil {
		return nil, err
	}
	if c.ttl <= 0 {
		return g, nil
	}

	c.mu.Lock()
	c.entries[key] = gridEntry{g: g, updatedAt: now}
	for k, e := range c.entries {
		if now.Sub(e.updatedAt) >= c.ttl {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
	return g, nil
}

func (c *gridCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
