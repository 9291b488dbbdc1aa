// Package selection turns click-drag gestures over a grid into add or remove
// updates of one respondent's selected indices.
package selection

import (
	"sort"

	"meetbrew/internal/grid"
)

// Mode is decided when a drag starts.
type Mode int

const (
	Add Mode = iota
	Remove
)

func (m Mode) String() string {
	if m == Remove {
		return "remove"
	}
	return "add"
}

// Cell addresses a grid position by day column and row.
type Cell struct {
	Day int `json:"day"`
	Row int `json:"row"`
}

// Machine is the Idle/Dragging state machine for a single viewer session. It
// is not safe for concurrent use.
type Machine struct {
	grid     *grid.Grid
	selected map[int]struct{}

	dragging bool
	mode     Mode
	anchor   Cell
	current  Cell
}

// New starts an idle machine over g with the respondent's stored indices.
// Indices the grid does not know are kept untouched.
func New(g *grid.Grid, selected []int) *Machine {
	m := &Machine{grid: g, selected: make(map[int]struct{}, len(selected))}
	for _, idx := range selected {
		m.selected[idx] = struct{}{}
	}
	return m
}

// Start begins a drag at c. Cells outside the grid are ignored and report false.
func (m *Machine) Start(c Cell) bool {
	iv, ok := m.grid.Cell(c.Day, c.Row)
	if !ok {
		return false
	}
	m.mode = Add
	if iv.Active && m.has(iv.Index) {
		m.mode = Remove
	}
	m.anchor, m.current = c, c
	m.dragging = true
	return true
}

// Update moves the drag's free corner. It never touches the stored set.
func (m *Machine) Update(c Cell) {
	if !m.dragging {
		return
	}
	m.current = c
}

// Finish commits the preview and returns to idle. Without a drag it is a no-op.
func (m *Machine) Finish() {
	if !m.dragging {
		return
	}
	next := make(map[int]struct{}, len(m.selected))
	for _, idx := range m.Preview() {
		next[idx] = struct{}{}
	}
	m.selected = next
	m.dragging = false
}

// Cancel drops the drag without committing.
func (m *Machine) Cancel() {
	m.dragging = false
}

func (m *Machine) Dragging() bool {
	return m.dragging
}

// Mode reports the current drag mode; meaningful only while dragging.
func (m *Machine) Mode() Mode {
	return m.mode
}

// Rect returns the inclusive drag rectangle as its top-left and bottom-right
// corners, regardless of drag direction.
func (m *Machine) Rect() (Cell, Cell) {
	lo := Cell{Day: min(m.anchor.Day, m.current.Day), Row: min(m.anchor.Row, m.current.Row)}
	hi := Cell{Day: max(m.anchor.Day, m.current.Day), Row: max(m.anchor.Row, m.current.Row)}
	return lo, hi
}

// Preview returns the stored set with the in-progress drag applied, sorted.
// Inactive cells in the rectangle contribute nothing.
func (m *Machine) Preview() []int {
	out := make(map[int]struct{}, len(m.selected))
	for idx := range m.selected {
		out[idx] = struct{}{}
	}
	if m.dragging {
		for _, idx := range m.rectIndices() {
			if m.mode == Add {
				out[idx] = struct{}{}
			} else {
				delete(out, idx)
			}
		}
	}
	return sortedKeys(out)
}

// Selected returns the committed indices, sorted.
func (m *Machine) Selected() []int {
	return sortedKeys(m.selected)
}

// IsSelected reports whether the cell shows as selected, drag included.
func (m *Machine) IsSelected(c Cell) bool {
	iv, ok := m.grid.Cell(c.Day, c.Row)
	if !ok || !iv.Active {
		return false
	}
	in := m.has(iv.Index)
	if m.dragging && m.inRect(c) {
		return m.mode == Add
	}
	return in
}

func (m *Machine) has(idx int) bool {
	_, ok := m.selected[idx]
	return ok
}

func (m *Machine) inRect(c Cell) bool {
	lo, hi := m.Rect()
	return c.Day >= lo.Day && c.Day <= hi.Day && c.Row >= lo.Row && c.Row <= hi.Row
}

func (m *Machine) rectIndices() []int {
	lo, hi := m.Rect()
	var out []int
	for d := lo.Day; d <= hi.Day; d++ {
		for r := lo.Row; r <= hi.Row; r++ {
			iv, ok := m.grid.Cell(d, r)
			if ok && iv.Active {
				out = append(out, iv.Index)
			}
		}
	}
	return out
}

func sortedKeys(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Drag replays one complete gesture from anchor to current over selected and
// returns the committed set. ok is false when anchor lies outside the grid.
func Drag(g *grid.Grid, selected []int, anchor, current Cell) (out []int, mode Mode, ok bool) {
	m := New(g, selected)
	if !m.Start(anchor) {
		return m.Selected(), Add, false
	}
	m.Update(current)
	mode = m.Mode()
	m.Finish()
	return m.Selected(), mode, true
}
