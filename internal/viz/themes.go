package viz

import "github.com/charmbracelet/lipgloss"

// Theme defines the color scheme for the TUI.
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	// Species colors atoms in order of first appearance.
	Species []lipgloss.Color
}

var (
	ThemeCyberpunk = Theme{
		Name:      "cyberpunk",
		Primary:   lipgloss.Color("#ff00ff"),
		Secondary: lipgloss.Color("#00ffff"),
		Accent:    lipgloss.Color("#ffff00"),
		Text:      lipgloss.Color("#ffffff"),
		Muted:     lipgloss.Color("#666666"),
		Success:   lipgloss.Color("#00ff00"),
		Warning:   lipgloss.Color("#ff8800"),
		Error:     lipgloss.Color("#ff0000"),
		Species:   []lipgloss.Color{"#00ffff", "#ff00ff", "#ffff00", "#00ff88"},
	}

	ThemeRetroGreen = Theme{
		Name:      "retro",
		Primary:   lipgloss.Color("#00ff00"),
		Secondary: lipgloss.Color("#00cc00"),
		Accent:    lipgloss.Color("#88ff88"),
		Text:      lipgloss.Color("#00ff00"),
		Muted:     lipgloss.Color("#005500"),
		Success:   lipgloss.Color("#88ff88"),
		Warning:   lipgloss.Color("#ffff00"),
		Error:     lipgloss.Color("#ff0000"),
		Species:   []lipgloss.Color{"#00ff00", "#88ff88", "#00aa00", "#ccffcc"},
	}

	ThemeOcean = Theme{
		Name:      "ocean",
		Primary:   lipgloss.Color("#0077be"),
		Secondary: lipgloss.Color("#00a8cc"),
		Accent:    lipgloss.Color("#ffd700"),
		Text:      lipgloss.Color("#e0f0ff"),
		Muted:     lipgloss.Color("#4488aa"),
		Success:   lipgloss.Color("#00ff88"),
		Warning:   lipgloss.Color("#ffcc00"),
		Error:     lipgloss.Color("#ff4444"),
		Species:   []lipgloss.Color{"#00a8cc", "#ffd700", "#e0f0ff", "#00ff88"},
	}

	CurrentTheme = ThemeCyberpunk

	Themes = []Theme{
		ThemeCyberpunk,
		ThemeRetroGreen,
		ThemeOcean,
	}
)

// GetTheme returns a theme by name, falling back to the default.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeCyberpunk
}

func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// NextTheme switches to the theme after the current one.
func NextTheme() {
	names := ThemeNames()
	for i, name := range names {
		if name == CurrentTheme.Name {
			SetTheme(names[(i+1)%len(names)])
			return
		}
	}
}

// SpeciesColor picks the color for the k-th distinct element.
func (t Theme) SpeciesColor(k int) lipgloss.Color {
	if len(t.Species) == 0 {
		return t.Text
	}
	return t.Species[k%len(t.Species)]
}
