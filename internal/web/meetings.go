package web

import (
	"fmt"
	"io"
	"mime"
	"net/http"

	"meetbrew/internal/availability"
	"meetbrew/internal/ics"
	appLog "meetbrew/internal/log"
	"meetbrew/internal/model"
	"meetbrew/internal/selection"
	"meetbrew/internal/store"
	"meetbrew/internal/timefmt"
)

type createMeetingRequest struct {
	ID       string                  `json:"id"`
	Title    string                  `json:"title"`
	Timezone string                  `json:"timezone"`
	Earliest int                     `json:"earliest"`
	Latest   int                     `json:"latest"`
	Type     model.SelectorKind      `json:"type"`
	Dates    []string                `json:"dates"`
	Days     []int                   `json:"days"`
	Windows  map[string]model.Window `json:"windows"`
}

type meetingResponse struct {
	model.Meeting
	Range       string             `json:"range"`
	Respondents []model.Respondent `json:"respondents"`
}

func (s *Server) handleCreateMeeting(w http.ResponseWriter, r *http.Request) {
	var req createMeetingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	if req.Timezone == "" {
		req.Timezone = s.cfg.DefaultTimezone
	}

	m, err := s.store.CreateMeeting(model.Meeting{
		ID:       req.ID,
		Title:    req.Title,
		Timezone: req.Timezone,
		Earliest: req.Earliest,
		Latest:   req.Latest,
		Selector: model.DateSelector{Kind: req.Type, Dates: req.Dates, Days: req.Days},
		Windows:  req.Windows,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, meetingResponse{
		Meeting:     m,
		Range:       timefmt.Range(m.Earliest, m.Latest),
		Respondents: []model.Respondent{},
	})
}

func (s *Server) handleGetMeeting(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.Meeting(r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	respondents, err := s.store.Respondents(m.ID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meetingResponse{
		Meeting:     m,
		Range:       timefmt.Range(m.Earliest, m.Latest),
		Respondents: respondents,
	})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	rsp, created, err := s.store.SignIn(r.PathValue("id"), req.Name)
	if err != nil {
		writeFailure(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, rsp)
}

func (s *Server) handleSetAvailability(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Availability []int `json:"availability"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	rsp, err := s.store.SetAvailability(r.PathValue("id"), r.PathValue("rid"), req.Availability)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rsp)
}

type dragRequest struct {
	Timezone string         `json:"tz"`
	Anchor   selection.Cell `json:"anchor"`
	Current  selection.Cell `json:"current"`
}

type dragResponse struct {
	Mode       string           `json:"mode"`
	Respondent model.Respondent `json:"respondent"`
}

// handleDrag applies one finished drag gesture, expressed in the viewer's
// grid coordinates, to the respondent's stored indices.
func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	id, rid := r.PathValue("id"), r.PathValue("rid")
	m, err := s.store.Meeting(id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	g, err := s.grids.get(m, s.viewerLocation(req.Timezone, m))
	if err != nil {
		writeFailure(w, err)
		return
	}

	var mode selection.Mode
	rsp, err := s.store.Update(id, rid, func(current []int) ([]int, error) {
		next, md, ok := selection.Drag(g, current, req.Anchor, req.Current)
		if !ok {
			return nil, fmt.Errorf("%w: drag starts outside the grid", store.ErrInvalid)
		}
		mode = md
		return next, nil
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dragResponse{Mode: mode.String(), Respondent: rsp})
}

type importResponse struct {
	Busy       int              `json:"busy"`
	Free       []int            `json:"free"`
	Applied    bool             `json:"applied"`
	Respondent model.Respondent `json:"respondent"`
}

// handleImport fills a respondent's availability from a busy calendar: the
// free slots become the new availability.
//
// POST /api/meetings/{id}/respondents/{rid}/import?tz=&dry_run=1
//   - text/calendar body: the calendar itself
//   - JSON body {"url": "..."}: fetched through the ICS cache
//
// tz is the zone floating and all-day calendar values are read in.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	id, rid := r.PathValue("id"), r.PathValue("rid")
	m, err := s.store.Meeting(id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	rsp, err := s.store.Respondent(id, rid)
	if err != nil {
		writeFailure(w, err)
		return
	}

	body, err := s.calendarBody(w, r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	q := r.URL.Query()
	floating := s.viewerLocation(q.Get("tz"), m)
	g, err := s.grids.get(m, floating)
	if err != nil {
		writeFailure(w, err)
		return
	}
	// Weekly grids live in a reference week; busy time is read from the
	// coming week instead.
	g = g.Pinned(s.now())
	start, end := g.Span()
	busy, err := ics.BusyBetween(rid, body, start, end, floating)
	if err != nil {
		writeFailure(w, err)
		return
	}
	free := availability.FreeIndices(g, busy)

	resp := importResponse{Busy: len(busy), Free: free, Respondent: rsp}
	if dry := q.Get("dry_run"); dry != "1" && dry != "true" {
		resp.Respondent, err = s.store.SetAvailability(id, rid, free)
		if err != nil {
			writeFailure(w, err)
			return
		}
		resp.Applied = true
	}
	appLog.Info("calendar imported", "meeting", m.ID, "respondent", rid, "busy", len(busy), "free", len(free), "applied", resp.Applied)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) calendarBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "text/calendar" {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, ics.DefaultMaxBytes))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ics.ErrTooLarge, err)
		}
		return body, nil
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		return nil, err
	}
	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: calendar urls are disabled", store.ErrInvalid)
	}
	fetched, err := s.fetcher.Fetch(r.Context(), req.URL)
	if err != nil {
		return nil, err
	}
	return fetched.Body, nil
}
