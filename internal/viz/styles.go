package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(46)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)

	SparkHigh = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	SparkMid  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00"))
	SparkLow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

func headerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(CurrentTheme.Secondary).Bold(true).MarginBottom(1)
}

func graphStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Padding(1, 0)
}

func statusStyle(s string) lipgloss.Style {
	c := CurrentTheme.Success
	switch s {
	case "FROZEN", "DONE":
		c = CurrentTheme.Warning
	case "FAILED":
		c = CurrentTheme.Error
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}

// ProgressBar renders a bar for a fraction in [0, 1].
func ProgressBar(percent float64, width int) string {
	filled := int(percent * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	if percent > 0.8 {
		return SparkHigh.Render(bar)
	} else if percent > 0.4 {
		return SparkMid.Render(bar)
	}
	return SparkLow.Render(bar)
}

// Sparkline maps values onto eight block heights, sampling to fit width.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}
	var b strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - lo) / rng
		idx := int(norm * float64(len(chars)-1))
		idx = max(0, min(idx, len(chars)-1))
		b.WriteRune(chars[idx])
	}
	return b.String()
}

func Separator(width int) string {
	mid := width / 2
	left := strings.Repeat("─", max(mid-3, 0))
	right := strings.Repeat("─", max(width-mid-3, 0))
	return lipgloss.NewStyle().Foreground(CurrentTheme.Muted).Render(left + " ◆ " + right)
}
