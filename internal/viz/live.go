package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/mlmd/internal/sim"
)

const (
	width           = 60
	height          = 20
	historyCapacity = 600
)

// FrameMsg carries one observed step into the view.
type FrameMsg struct {
	Row   sim.ThermoRow
	Scene Scene
}

// DoneMsg ends the run; Err is nil on success.
type DoneMsg struct {
	Result *sim.Result
	Err    error
}

// Feed bridges a running simulator to the view. It drops frames rather than
// block the run when the view falls behind.
type Feed struct {
	frames chan FrameMsg
	done   chan DoneMsg
}

func NewFeed(buffer int) *Feed {
	return &Feed{frames: make(chan FrameMsg, buffer), done: make(chan DoneMsg, 1)}
}

func (f *Feed) Observe(fr sim.Frame) error {
	msg := FrameMsg{Row: sim.NewThermoRow(fr), Scene: NewScene(fr.Atoms)}
	select {
	case f.frames <- msg:
	default:
	}
	return nil
}

// Finish reports the outcome of the run. Call it exactly once.
func (f *Feed) Finish(res *sim.Result, err error) {
	f.done <- DoneMsg{Result: res, Err: err}
}

func (f *Feed) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-f.frames:
			return msg
		case msg := <-f.done:
			// frames observed before Finish are shown before the end
			select {
			case fr := <-f.frames:
				f.done <- msg
				return fr
			default:
				return msg
			}
		}
	}
}

// Model is the live run view.
type Model struct {
	feed     *Feed
	title    string
	total    int
	canvas   *Canvas
	camera   *Camera
	scene    Scene
	last     sim.ThermoRow
	temp     []float64
	energy   []float64
	frozen   bool
	showHelp bool
	finished bool
	result   *sim.Result
	err      error
	started  time.Time
}

func NewModel(feed *Feed, title string, steps int) Model {
	return Model{
		feed:    feed,
		title:   title,
		total:   steps,
		canvas:  NewCanvas(width, height),
		camera:  NewCamera(),
		temp:    make([]float64, 0, historyCapacity),
		energy:  make([]float64, 0, historyCapacity),
		started: time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return m.feed.wait()
}

// Err is the run's error once the view has seen DoneMsg.
func (m Model) Err() error { return m.err }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.frozen = !m.frozen
		case "?":
			m.showHelp = !m.showHelp
		case "t":
			NextTheme()
		case "x":
			m.camera.RotateX(0.1)
		case "X":
			m.camera.RotateX(-0.1)
		case "y":
			m.camera.RotateY(0.1)
		case "Y":
			m.camera.RotateY(-0.1)
		case "z":
			m.camera.RotateZ(0.1)
		case "Z":
			m.camera.RotateZ(-0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		}
	case FrameMsg:
		m.temp = appendCapped(m.temp, msg.Row.Temperature)
		m.energy = appendCapped(m.energy, msg.Row.Etot/float64(max(msg.Row.Atoms, 1)))
		if !m.frozen {
			m.last = msg.Row
			m.scene = msg.Scene
		}
		return m, m.feed.wait()
	case DoneMsg:
		m.finished = true
		m.result = msg.Result
		m.err = msg.Err
		return m, nil
	}
	return m, nil
}

func appendCapped(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyCapacity {
		xs = xs[1:]
	}
	return xs
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return "FAILED"
	case m.finished:
		return "DONE"
	case m.frozen:
		return "FROZEN"
	}
	return "RUNNING"
}

func (m Model) View() string {
	m.scene.Draw(m.canvas, m.camera)
	canvasView := canvasStyle.Render(m.canvas.Render(CurrentTheme.SpeciesColor, CurrentTheme.Muted))

	var s strings.Builder
	s.WriteString(headerStyle().Render(strings.ToUpper(m.title)) + "\n")
	status := m.status()
	s.WriteString(statusStyle(status).Render(status) + "\n")
	if m.total > 0 {
		frac := float64(m.last.Step) / float64(m.total)
		s.WriteString(ProgressBar(frac, 30) + fmt.Sprintf(" %d/%d\n", m.last.Step, m.total))
	}
	if m.err != nil {
		s.WriteString(lipgloss.NewStyle().Foreground(CurrentTheme.Error).Render(m.err.Error()) + "\n")
	}

	if len(m.temp) > 1 {
		s.WriteString(graphStyle().Render(Chart(m.temp, "T [K]", 4, 30)) + "\n")
	}
	if len(m.energy) > 1 {
		s.WriteString(labelStyle.Render("Etot/N") + Sparkline(m.energy, 30) + "\n\n")
	}

	r := m.last
	n := float64(max(r.Atoms, 1))
	line := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	line("Time", fmt.Sprintf("%.4f ps", r.Time))
	line("Atoms", fmt.Sprintf("%d", r.Atoms))
	line("T", fmt.Sprintf("%.1f K", r.Temperature))
	line("Epot/N", fmt.Sprintf("%.4f eV", r.Epot/n))
	line("Etot/N", fmt.Sprintf("%.4f eV", r.Etot/n))
	line("P", fmt.Sprintf("%.3f GPa", r.Pressure))
	line("Volume", fmt.Sprintf("%.2f Å³", r.Volume))
	line("Fmax", fmt.Sprintf("%.3f eV/Å", r.MaxForce))
	if m.result != nil {
		line("Wall", m.result.Elapsed.Round(time.Millisecond).String())
	} else {
		line("Wall", time.Since(m.started).Round(time.Second).String())
	}

	s.WriteString(helpStyle.Render(Separator(30) + "\nSP:Freeze T:Theme ?:Help Q:Quit\nx/y/z:Rotate +/-:Zoom"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Freeze/unfreeze display  ║
║  T        - Cycle themes             ║
║  x y z    - Rotate (shift reverses)  ║
║  + -      - Zoom                     ║
║  Q        - Quit                     ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}

// Chart is an asciigraph line plot with a caption.
func Chart(values []float64, caption string, h, w int) string {
	if len(values) == 0 {
		return ""
	}
	return asciigraph.Plot(values, asciigraph.Height(h), asciigraph.Width(w), asciigraph.Caption(caption))
}
