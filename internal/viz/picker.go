package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/mlmd/internal/config"
)

// Choice is one ensemble/preset pair.
type Choice struct {
	Ensemble string
	Preset   string
}

// Picker is a menu over every preset.
type Picker struct {
	choices  []Choice
	cursor   int
	selected *Choice
}

func NewPicker() Picker {
	var choices []Choice
	for _, ens := range config.ListEnsembles() {
		for _, name := range config.ListPresets(ens) {
			choices = append(choices, Choice{Ensemble: ens, Preset: name})
		}
	}
	return Picker{choices: choices}
}

// Selected returns the chosen preset, or false if the user quit.
func (p Picker) Selected() (Choice, bool) {
	if p.selected == nil {
		return Choice{}, false
	}
	return *p.selected, true
}

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.choices)-1 {
			p.cursor++
		}
	case "enter", " ":
		if len(p.choices) > 0 {
			c := p.choices[p.cursor]
			p.selected = &c
		}
		return p, tea.Quit
	}
	return p, nil
}

func describe(c *config.Config) string {
	s := fmt.Sprintf("%g fs, %g K, %d steps", c.TimestepFS, c.Temperature, c.Steps)
	if c.PTimeFS > 0 {
		s += ", barostat"
	}
	return s
}

func (p Picker) View() string {
	var b strings.Builder
	h := lipgloss.NewStyle().Foreground(CurrentTheme.Secondary).Bold(true)
	sub := lipgloss.NewStyle().Foreground(CurrentTheme.Muted)
	b.WriteString("\n\n    " + h.Render("MLMD") + "\n    " + sub.Render("machine-learned molecular dynamics") + "\n    " + sub.Render("─────────────────────────") + "\n\n")

	active := lipgloss.NewStyle().Foreground(CurrentTheme.Text).Bold(true)
	accent := lipgloss.NewStyle().Foreground(CurrentTheme.Primary)
	for i, c := range p.choices {
		name := fmt.Sprintf("%-4s %-16s", c.Ensemble, c.Preset)
		desc := describe(config.GetPreset(c.Ensemble, c.Preset))
		if i == p.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", accent.Render("▸"), active.Render(name), accent.Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("      %s  %s\n", sub.Render(name), sub.Render(desc)))
		}
	}

	key := lipgloss.NewStyle().Foreground(CurrentTheme.Secondary).Bold(true)
	b.WriteString("\n    " + key.Render("j/k") + sub.Render(" navigate  ") + key.Render("enter") + sub.Render(" select  ") + key.Render("q") + sub.Render(" quit") + "\n")
	return b.String()
}
