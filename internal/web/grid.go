package web

import (
	"net/http"
	"time"

	"meetbrew/internal/availability"
	"meetbrew/internal/grid"
	"meetbrew/internal/model"
	"meetbrew/internal/timefmt"
)

type dayDTO struct {
	grid.Day
	Label     string   `json:"label"`
	RowLabels []string `json:"row_labels"`
}

type respondentRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slots    int    `json:"slots"`
	Inactive bool   `json:"inactive"`
}

type gridResponse struct {
	Meeting     string                `json:"meeting"`
	Title       string                `json:"title"`
	Timezone    string                `json:"timezone"`
	Weekly      bool                  `json:"weekly"`
	Count       int                   `json:"count"`
	Rows        int                   `json:"rows"`
	Hours       []int                 `json:"hours"`
	HourLabels  []string              `json:"hour_labels"`
	Days        []dayDTO              `json:"days"`
	Heatmap     availability.Heatmap  `json:"heatmap"`
	Respondents []respondentRow       `json:"respondents"`
	Best        []availability.Window `json:"best"`
	HoverLabel  string                `json:"hover_label,omitempty"`
}

// handleGrid renders the meeting in the viewer's zone with the heatmap.
//
// GET /api/meetings/{id}/grid?tz=&respondents=a,b&hover=&shade=&editing=&index=&naming=
//   - respondents: ids counted in the heatmap (default everyone)
//   - hover:       respondent id that overrides respondents
//   - shade:       count to highlight, -1 for none
//   - editing:     name of the person answering; other rows grey out
//   - index:       hovered cell index; rows unavailable there grey out
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.Meeting(r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	q := r.URL.Query()
	loc := s.viewerLocation(q.Get("tz"), m)

	g, err := s.grids.get(m, loc)
	if err != nil {
		writeFailure(w, err)
		return
	}
	respondents, err := s.store.Respondents(m.ID)
	if err != nil {
		writeFailure(w, err)
		return
	}

	filter := availability.Filter{Selected: splitList(q.Get("respondents")), Hovered: q.Get("hover")}
	hoverIndex := parseIntDefault(q.Get("index"), -1)
	state := availability.RowState{
		Naming:     q.Get("naming") == "1" || q.Get("naming") == "true",
		Editing:    q.Get("editing"),
		HoverIndex: hoverIndex,
	}

	resp := gridResponse{
		Meeting:     m.ID,
		Title:       m.Title,
		Timezone:    loc.String(),
		Weekly:      g.Weekly,
		Count:       g.Len(),
		Rows:        g.Rows(),
		Hours:       g.Hours(),
		Days:        make([]dayDTO, len(g.Days)),
		Heatmap:     availability.BuildHeatmap(g, respondents, filter, parseIntDefault(q.Get("shade"), -1)),
		Respondents: make([]respondentRow, len(respondents)),
		Best:        availability.BestWindows(g, respondents),
		HoverLabel:  g.Label(hoverIndex),
	}
	for _, h := range resp.Hours {
		resp.HourLabels = append(resp.HourLabels, timefmt.Hour(h))
	}
	for i, d := range g.Days {
		date, _ := time.Parse(model.DateLayout, d.Date)
		resp.Days[i] = dayDTO{Day: d, Label: timefmt.Day(date, g.Weekly), RowLabels: g.RowLabels(i)}
	}
	for i, rsp := range respondents {
		resp.Respondents[i] = respondentRow{
			ID:       rsp.ID,
			Name:     rsp.Name,
			Slots:    len(rsp.Availability),
			Inactive: availability.Inactive(rsp, state),
		}
	}
	if resp.Best == nil {
		resp.Best = []availability.Window{}
	}
	writeJSON(w, http.StatusOK, resp)
}
