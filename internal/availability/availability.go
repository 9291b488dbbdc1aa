// Package availability aggregates respondents' answers over a grid. It only
// reads respondent data.
package availability

import (
	"slices"
	"time"

	"golang.org/x/text/cases"

	"meetbrew/internal/gradient"
	"meetbrew/internal/grid"
	"meetbrew/internal/model"
)

// Filter narrows which respondents count. A hovered respondent wins over the
// checked ones; with neither set everybody counts.
type Filter struct {
	Selected []string
	Hovered  string
}

func (f Filter) ids() map[string]bool {
	if f.Hovered != "" {
		return map[string]bool{f.Hovered: true}
	}
	if len(f.Selected) == 0 {
		return nil
	}
	out := make(map[string]bool, len(f.Selected))
	for _, id := range f.Selected {
		out[id] = true
	}
	return out
}

// CountAvailable counts respondents, restricted to filter when non-nil, whose
// availability contains index. Unknown indices simply count zero.
func CountAvailable(index int, respondents []model.Respondent, filter map[string]bool) int {
	n := 0
	for _, r := range respondents {
		if filter != nil && !filter[r.ID] {
			continue
		}
		if slices.Contains(r.Availability, index) {
			n++
		}
	}
	return n
}

// IsUnavailable reports whether r did not mark index.
func IsUnavailable(r model.Respondent, index int) bool {
	return !slices.Contains(r.Availability, index)
}

// RowState is what decides whether a respondent row is greyed out.
type RowState struct {
	// Naming is true while someone types their name to respond.
	Naming bool
	// Editing is the name of the respondent currently answering.
	Editing string
	// HoverIndex is the hovered cell's index, or -1.
	HoverIndex int
}

// Inactive reports whether r's row should be greyed out.
func Inactive(r model.Respondent, s RowState) bool {
	if s.Naming {
		return true
	}
	if s.Editing != "" && !SameName(s.Editing, r.Name) {
		return true
	}
	if s.HoverIndex >= 0 {
		return IsUnavailable(r, s.HoverIndex)
	}
	return false
}

var folder = cases.Fold()

// SameName compares respondent names case-insensitively.
func SameName(a, b string) bool {
	return folder.String(a) == folder.String(b)
}

// Cell is one heatmap cell.
type Cell struct {
	Index int    `json:"index"`
	Count int    `json:"count"`
	Color string `json:"color"`
	// Highlight is set when Count equals the hovered shade.
	Highlight bool `json:"highlight,omitempty"`
}

// Heatmap is laid out like the grid: Days[d][r] matches grid.Days[d].Intervals[r].
type Heatmap struct {
	Total  int      `json:"total"`
	Shades []string `json:"shades"`
	Days   [][]Cell `json:"days"`
}

// BuildHeatmap counts every cell of g. hoveredShade < 0 disables highlighting.
// Inactive cells carry index -1 and no color.
func BuildHeatmap(g *grid.Grid, respondents []model.Respondent, f Filter, hoveredShade int) Heatmap {
	ids := f.ids()
	total := len(respondents)
	if ids != nil {
		total = 0
		for _, r := range respondents {
			if ids[r.ID] {
				total++
			}
		}
	}

	// Shades follow the full respondent count so the legend is stable
	// while filtering.
	colors := gradient.Sample(len(respondents))
	hm := Heatmap{Total: total, Shades: make([]string, len(colors)), Days: make([][]Cell, len(g.Days))}
	for i, c := range colors {
		hm.Shades[i] = c.CSS()
	}

	for d, day := range g.Days {
		cells := make([]Cell, len(day.Intervals))
		for r, iv := range day.Intervals {
			if !iv.Active {
				cells[r] = Cell{Index: -1}
				continue
			}
			n := CountAvailable(iv.Index, respondents, ids)
			cells[r] = Cell{
				Index:     iv.Index,
				Count:     n,
				Color:     hm.Shades[min(n, len(hm.Shades)-1)],
				Highlight: hoveredShade >= 0 && n == hoveredShade,
			}
		}
		hm.Days[d] = cells
	}
	return hm
}

// FreeIndices returns the active indices of g that overlap none of busy.
func FreeIndices(g *grid.Grid, busy []model.Busy) []int {
	blocked := make(map[int]bool)
	for _, b := range busy {
		for _, idx := range g.Overlapping(b.Start, b.End) {
			blocked[idx] = true
		}
	}
	out := make([]int, 0, g.Len())
	for _, idx := range g.Indices() {
		if !blocked[idx] {
			out = append(out, idx)
		}
	}
	return out
}

// Best returns the indices with the highest count among everyone, earliest
// first, along with that count. It returns nil when nobody marked anything.
func Best(g *grid.Grid, respondents []model.Respondent) ([]int, int) {
	best := 0
	var out []int
	for _, idx := range g.Indices() {
		n := CountAvailable(idx, respondents, nil)
		switch {
		case n == 0 || n < best:
		case n > best:
			best = n
			out = []int{idx}
		default:
			out = append(out, idx)
		}
	}
	return out, best
}

// Window is a contiguous run of indices available to the same count.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Count int       `json:"count"`
}

// BestWindows merges Best's indices into contiguous windows.
func BestWindows(g *grid.Grid, respondents []model.Respondent) []Window {
	idxs, n := Best(g, respondents)
	var out []Window
	for _, idx := range idxs {
		t, _ := g.Instant(idx)
		if k := len(out); k > 0 && out[k-1].End.Equal(t) {
			out[k-1].End = t.Add(grid.Step)
			continue
		}
		out = append(out, Window{Start: t, End: t.Add(grid.Step), Count: n})
	}
	return out
}
