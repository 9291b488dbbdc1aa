// Package store keeps meetings and their respondents in memory. Respondent
// writes replace a single record; a meeting is never rewritten after creation.
package store

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"meetbrew/internal/availability"
	appLog "meetbrew/internal/log"
	"meetbrew/internal/model"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrIDTaken  = errors.New("store: id already taken")
	ErrInvalid  = errors.New("store: invalid input")
)

const (
	idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	idLength   = 6
	idAttempts = 8
)

var customIDRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// DefaultReserved are ids that collide with site routes.
var DefaultReserved = []string{"about", "api", "health", "static", "new"}

type Options struct {
	// Reserved ids cannot be chosen or generated.
	Reserved []string
	// MaxDates bounds date templates; zero uses model.MaxDates.
	MaxDates int
	Now      func() time.Time
}

// Stats is a snapshot of store size.
type Stats struct {
	Meetings    int `json:"meetings"`
	Respondents int `json:"respondents"`
}

type entry struct {
	meeting     model.Meeting
	respondents map[string]*model.Respondent
	touched     time.Time
}

type Store struct {
	mu       sync.RWMutex
	meetings map[string]*entry
	reserved map[string]bool
	maxDates int
	now      func() time.Time
}

func New(opts Options) *Store {
	if opts.Reserved == nil {
		opts.Reserved = DefaultReserved
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	reserved := make(map[string]bool, len(opts.Reserved))
	for _, id := range opts.Reserved {
		reserved[strings.ToLower(id)] = true
	}
	return &Store{
		meetings: make(map[string]*entry),
		reserved: reserved,
		maxDates: opts.MaxDates,
		now:      opts.Now,
	}
}

// CreateMeeting validates m and stores it. An empty ID gets a generated one;
// a custom ID is lowercased and must be free.
func (s *Store) CreateMeeting(m model.Meeting) (model.Meeting, error) {
	m.Title = strings.TrimSpace(m.Title)
	if err := m.Validate(s.maxDates); err != nil {
		return model.Meeting{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	m.Selector = normalizeSelector(m.Selector)

	custom := strings.ToLower(strings.TrimSpace(m.ID))
	if custom != "" && !customIDRe.MatchString(custom) {
		return model.Meeting{}, fmt.Errorf("%w: id %q may only use letters, digits, '-' and '_'", ErrInvalid, m.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if custom != "" {
		if s.reserved[custom] || s.meetings[custom] != nil {
			return model.Meeting{}, fmt.Errorf("%w: %q", ErrIDTaken, custom)
		}
		m.ID = custom
	} else {
		id, err := s.generateID()
		if err != nil {
			return model.Meeting{}, err
		}
		m.ID = id
	}

	now := s.now()
	m.Created = now
	s.meetings[m.ID] = &entry{meeting: m, respondents: make(map[string]*model.Respondent), touched: now}
	appLog.Info("meeting created", "id", m.ID, "tz", m.Timezone, "type", string(m.Selector.Kind))
	return m, nil
}

// generateID must be called with s.mu held.
func (s *Store) generateID() (string, error) {
	for i := 0; i < idAttempts; i++ {
		id, err := gonanoid.Generate(idAlphabet, idLength)
		if err != nil {
			return "", fmt.Errorf("store: generate id: %w", err)
		}
		if !s.reserved[id] && s.meetings[id] == nil {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: no free id after %d attempts", ErrIDTaken, idAttempts)
}

func normalizeSelector(sel model.DateSelector) model.DateSelector {
	if sel.Kind == model.KindDays {
		return model.Weekdays(sel.Days...)
	}
	return model.Dates(sel.Dates...)
}

func (s *Store) Meeting(id string) (model.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.meetings[strings.ToLower(id)]
	if !ok {
		return model.Meeting{}, ErrNotFound
	}
	return e.meeting, nil
}

// Respondents returns copies ordered by creation time.
func (s *Store) Respondents(id string) ([]model.Respondent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.meetings[strings.ToLower(id)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]model.Respondent, 0, len(e.respondents))
	for _, r := range e.respondents {
		out = append(out, clone(*r))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SignIn returns the respondent whose name matches case-insensitively, or
// creates one. created reports which happened.
func (s *Store) SignIn(id, name string) (r model.Respondent, created bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return r, false, fmt.Errorf("%w: must enter a name", ErrInvalid)
	}
	if len([]rune(name)) > model.MaxNameLen {
		return r, false, fmt.Errorf("%w: name longer than %d characters", ErrInvalid, model.MaxNameLen)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.meetings[strings.ToLower(id)]
	if !ok {
		return r, false, ErrNotFound
	}
	for _, existing := range e.respondents {
		if availability.SameName(existing.Name, name) {
			return clone(*existing), false, nil
		}
	}

	now := s.now()
	nr := &model.Respondent{
		ID:           uuid.NewString(),
		Name:         name,
		Availability: []int{},
		Created:      now,
		Updated:      now,
	}
	e.respondents[nr.ID] = nr
	e.touched = now
	appLog.Debug("respondent added", "meeting", e.meeting.ID, "respondent", nr.ID)
	return clone(*nr), true, nil
}

// Respondent returns one respondent.
func (s *Store) Respondent(id, rid string) (model.Respondent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.meetings[strings.ToLower(id)]
	if !ok {
		return model.Respondent{}, ErrNotFound
	}
	r, ok := e.respondents[rid]
	if !ok {
		return model.Respondent{}, ErrNotFound
	}
	return clone(*r), nil
}

// SetAvailability replaces a respondent's availability. Indices are stored
// deduplicated and sorted; indices the grid does not know are kept.
func (s *Store) SetAvailability(id, rid string, indices []int) (model.Respondent, error) {
	norm, err := normalizeIndices(indices)
	if err != nil {
		return model.Respondent{}, err
	}
	return s.Update(id, rid, func([]int) ([]int, error) { return norm, nil })
}

// Update computes a respondent's next availability from the current one under
// the write lock. An error from fn leaves the respondent untouched.
func (s *Store) Update(id, rid string, fn func(current []int) ([]int, error)) (model.Respondent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.meetings[strings.ToLower(id)]
	if !ok {
		return model.Respondent{}, ErrNotFound
	}
	r, ok := e.respondents[rid]
	if !ok {
		return model.Respondent{}, ErrNotFound
	}
	next, err := fn(append([]int(nil), r.Availability...))
	if err != nil {
		return model.Respondent{}, err
	}
	norm, err := normalizeIndices(next)
	if err != nil {
		return model.Respondent{}, err
	}
	now := s.now()
	r.Availability = norm
	r.Updated = now
	e.touched = now
	return clone(*r), nil
}

func normalizeIndices(indices []int) ([]int, error) {
	set := make(map[int]bool, len(indices))
	norm := make([]int, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 {
			return nil, fmt.Errorf("%w: negative index %d", ErrInvalid, idx)
		}
		if !set[idx] {
			set[idx] = true
			norm = append(norm, idx)
		}
	}
	sort.Ints(norm)
	return norm, nil
}

// Purge drops meetings untouched for longer than olderThan and returns how
// many went.
func (s *Store) Purge(olderThan time.Duration) int {
	cutoff := s.now().Add(-olderThan)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.meetings {
		if e.touched.Before(cutoff) {
			delete(s.meetings, id)
			n++
		}
	}
	return n
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Meetings: len(s.meetings)}
	for _, e := range s.meetings {
		st.Respondents += len(e.respondents)
	}
	return st
}

func clone(r model.Respondent) model.Respondent {
	r.Availability = append([]int{}, r.Availability...)
	return r
}
