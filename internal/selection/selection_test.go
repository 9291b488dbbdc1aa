package selection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetbrew/internal/grid"
	"meetbrew/internal/model"
)

// twoDayGrid has two UTC days of 09:00-10:00: indices 0-3 and 4-7.
func twoDayGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g, err := grid.Build(model.Meeting{
		Timezone: "UTC",
		Earliest: 9,
		Latest:   10,
		Selector: model.Dates("2024-01-08", "2024-01-09"),
	}, nil)
	require.NoError(t, err)
	return g
}

func TestZeroMovementDragTogglesOneCell(t *testing.T) {
	g := twoDayGrid(t)
	m := New(g, []int{2})

	require.True(t, m.Start(Cell{Day: 0, Row: 1}))
	m.Update(Cell{Day: 0, Row: 1})
	assert.Equal(t, Add, m.Mode())
	m.Finish()
	assert.Equal(t, []int{1, 2}, m.Selected())

	require.True(t, m.Start(Cell{Day: 0, Row: 1}))
	assert.Equal(t, Remove, m.Mode())
	m.Finish()
	assert.Equal(t, []int{2}, m.Selected())
	assert.False(t, m.Dragging())
}

func TestDragRectangleAcrossDays(t *testing.T) {
	g := twoDayGrid(t)
	m := New(g, nil)

	m.Start(Cell{Day: 1, Row: 2})
	m.Update(Cell{Day: 0, Row: 1})

	lo, hi := m.Rect()
	assert.Equal(t, Cell{Day: 0, Row: 1}, lo)
	assert.Equal(t, Cell{Day: 1, Row: 2}, hi)

	assert.Equal(t, []int{1, 2, 5, 6}, m.Preview())
	assert.Empty(t, m.Selected(), "preview must not touch the stored set")
	assert.True(t, m.IsSelected(Cell{Day: 1, Row: 1}))
	assert.False(t, m.IsSelected(Cell{Day: 1, Row: 3}))

	m.Finish()
	assert.Equal(t, []int{1, 2, 5, 6}, m.Selected())
}

func TestRemoveDrag(t *testing.T) {
	g := twoDayGrid(t)
	m := New(g, []int{0, 1, 2, 3, 4, 5, 6, 7})

	m.Start(Cell{Day: 0, Row: 3})
	assert.Equal(t, Remove, m.Mode())
	m.Update(Cell{Day: 1, Row: 2})
	assert.False(t, m.IsSelected(Cell{Day: 0, Row: 2}))
	m.Finish()
	assert.Equal(t, []int{0, 1, 4, 5}, m.Selected())
}

func TestCancelAndFinishWhenIdle(t *testing.T) {
	g := twoDayGrid(t)
	m := New(g, []int{3})

	m.Finish()
	assert.Equal(t, []int{3}, m.Selected())

	m.Start(Cell{Day: 0, Row: 0})
	m.Update(Cell{Day: 1, Row: 3})
	m.Cancel()
	assert.False(t, m.Dragging())
	assert.Equal(t, []int{3}, m.Preview())
	m.Finish()
	assert.Equal(t, []int{3}, m.Selected())

	m.Update(Cell{Day: 1, Row: 3})
	assert.Equal(t, []int{3}, m.Preview())
}

func TestInactiveCellsAreInert(t *testing.T) {
	// Tokyo view of a New York morning: 8 rows per day, 4 inactive.
	g, err := grid.Build(model.Meeting{
		Timezone: "America/New_York",
		Earliest: 9,
		Latest:   11,
		Selector: model.Dates("2024-01-08"),
	}, mustLoad(t, "Asia/Tokyo"))
	require.NoError(t, err)

	m := New(g, nil)
	require.True(t, m.Start(Cell{Day: 0, Row: 0}))
	assert.Equal(t, Add, m.Mode())
	m.Update(Cell{Day: 1, Row: 7})
	m.Finish()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, m.Selected())
	assert.False(t, m.IsSelected(Cell{Day: 0, Row: 0}))
}

func TestStaleIndicesSurvive(t *testing.T) {
	g := twoDayGrid(t)
	m := New(g, []int{99, -4, 1})

	m.Start(Cell{Day: 0, Row: 0})
	m.Update(Cell{Day: 0, Row: 1})
	m.Finish()
	assert.Equal(t, []int{-4, 0, 1, 99}, m.Selected())
}

func TestOutOfGridCells(t *testing.T) {
	g := twoDayGrid(t)
	m := New(g, nil)

	assert.False(t, m.Start(Cell{Day: 5, Row: 0}))
	assert.False(t, m.Dragging())

	m.Start(Cell{Day: 0, Row: 0})
	m.Update(Cell{Day: 9, Row: 40})
	m.Finish()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, m.Selected())
}

func TestDrag(t *testing.T) {
	g := twoDayGrid(t)

	out, mode, ok := Drag(g, []int{0}, Cell{Day: 0, Row: 0}, Cell{Day: 0, Row: 2})
	require.True(t, ok)
	assert.Equal(t, Remove, mode)
	assert.Equal(t, "remove", mode.String())
	assert.Empty(t, out)

	out, _, ok = Drag(g, []int{0}, Cell{Day: -1, Row: 0}, Cell{Day: 0, Row: 2})
	assert.False(t, ok)
	assert.Equal(t, []int{0}, out)
}

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}
