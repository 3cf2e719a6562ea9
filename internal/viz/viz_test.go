package viz

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/calc"
	"github.com/san-kum/mlmd/internal/sim"
)

func pair(t *testing.T) *atoms.Atoms {
	t.Helper()
	a, err := atoms.New([]string{"Ni", "Co"}, []atoms.Vec3{{1, 1, 1}, {3, 3, 3}}, atoms.Orthorhombic(4, 4, 4), [3]bool{true, true, true})
	require.NoError(t, err)
	return a
}

func TestCanvasPlot(t *testing.T) {
	c := NewCanvas(2, 1)
	assert.Equal(t, "⠀⠀\n", c.String())

	c.Plot(0, 0, 3)
	c.Set(3, 3)
	assert.Equal(t, "⠁⢀\n", c.String())
	assert.Equal(t, 3, c.Ink[0][0])
	assert.Equal(t, -1, c.Ink[0][1])

	c.Unset(0, 0)
	c.Set(-1, 0)
	c.Set(100, 100)
	assert.Equal(t, "⠀⢀\n", c.String())
}

func TestSceneDraw(t *testing.T) {
	s := NewScene(pair(t))
	assert.Equal(t, []int{0, 1}, s.Species)

	c := NewCanvas(width, height)
	s.Draw(c, NewCamera())

	inks := map[int]bool{}
	for _, row := range c.Ink {
		for _, k := range row {
			if k >= 0 {
				inks[k] = true
			}
		}
	}
	assert.True(t, inks[0])
	assert.True(t, inks[1])
	assert.NotEqual(t, NewCanvas(width, height).String(), c.String())
}

func TestFeedDropsWhenFull(t *testing.T) {
	a := pair(t)
	f := NewFeed(1)
	frame := sim.Frame{Atoms: a, Results: calc.Results{Forces: make([][3]float64, 2)}}
	require.NoError(t, f.Observe(frame))
	require.NoError(t, f.Observe(frame))
	assert.Len(t, f.frames, 1)

	// the scene is a copy
	a.Positions[0][0] = 99
	msg := <-f.frames
	assert.Equal(t, 1.0, msg.Scene.Positions[0][0])
}

func TestModelUpdate(t *testing.T) {
	f := NewFeed(4)
	m := NewModel(f, "npt 800k", 10)

	row := sim.ThermoRow{Step: 5, Atoms: 2, Temperature: 800, Etot: -8}
	next, cmd := m.Update(FrameMsg{Row: row, Scene: NewScene(pair(t))})
	m = next.(Model)
	assert.NotNil(t, cmd)
	assert.Equal(t, 5, m.last.Step)
	assert.Equal(t, []float64{800}, m.temp)
	assert.Equal(t, []float64{-4}, m.energy)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{' '}})
	m = next.(Model)
	assert.Equal(t, "FROZEN", m.status())

	row.Step = 6
	next, _ = m.Update(FrameMsg{Row: row})
	m = next.(Model)
	assert.Equal(t, 5, m.last.Step, "frozen view keeps the old frame")
	assert.Len(t, m.temp, 2)

	next, _ = m.Update(DoneMsg{Err: errors.New("diverged")})
	m = next.(Model)
	assert.Equal(t, "FAILED", m.status())
	assert.Contains(t, m.View(), "diverged")
}

func TestFeedWaitDeliversDone(t *testing.T) {
	f := NewFeed(1)
	f.Finish(&sim.Result{Steps: 3}, nil)
	msg := f.wait()()
	done, ok := msg.(DoneMsg)
	require.True(t, ok)
	assert.Equal(t, 3, done.Result.Steps)
}

func TestFeedWaitDrainsFramesBeforeDone(t *testing.T) {
	f := NewFeed(8)
	frame := sim.Frame{Atoms: pair(t), Results: calc.Results{Forces: make([][3]float64, 2)}}
	for step := 1; step <= 5; step++ {
		frame.Step = step
		require.NoError(t, f.Observe(frame))
	}
	f.Finish(&sim.Result{Steps: 5}, nil)

	for step := 1; step <= 5; step++ {
		msg, ok := f.wait()().(FrameMsg)
		require.True(t, ok, "frame %d arrived after the run ended", step)
		assert.Equal(t, step, msg.Row.Step)
	}
	_, ok := f.wait()().(DoneMsg)
	assert.True(t, ok)
}

func TestPicker(t *testing.T) {
	p := NewPicker()
	require.NotEmpty(t, p.choices)
	_, ok := p.Selected()
	assert.False(t, ok)

	next, _ := p.Update(tea.KeyMsg{Type: tea.KeyDown})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	got, ok := next.(Picker).Selected()
	require.True(t, ok)
	assert.Equal(t, p.choices[1], got)
	assert.Contains(t, p.View(), "MLMD")
}

func TestThemes(t *testing.T) {
	defer SetTheme(CurrentTheme.Name)
	SetTheme("retro")
	NextTheme()
	assert.Equal(t, "ocean", CurrentTheme.Name)
	assert.Equal(t, ThemeCyberpunk, GetTheme("nope"))
	assert.Equal(t, ThemeOcean.Species[0], ThemeOcean.SpeciesColor(len(ThemeOcean.Species)))
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "▁▄█", Sparkline([]float64{0, 0.5, 1}, 3))
	assert.Equal(t, "───", Sparkline(nil, 3))
}

func TestPlotThermo(t *testing.T) {
	rows := []sim.ThermoRow{{Time: 0, Temperature: 800}, {Time: 0.005, Temperature: 790}, {Time: 0.01, Temperature: 805}}
	path := filepath.Join(t.TempDir(), "temperature.png")
	require.NoError(t, PlotThermo(rows, "temperature", "NPT 800 K", path))
	assert.FileExists(t, path)

	assert.Error(t, PlotThermo(rows, "entropy", "", path))

	chart, err := ChartThermo(rows, "temperature", 4, 20)
	require.NoError(t, err)
	assert.True(t, strings.Contains(chart, "T [K]"))
}
