// Package export renders structures to standalone SVG files.
package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/viz"
)

// CanvasToSVG converts a Braille canvas to SVG, one circle per dot. Dots
// take the color of their cell's ink; cells without ink use plain.
func CanvasToSVG(canvas *viz.Canvas, palette func(ink int) lipgloss.Color, plain lipgloss.Color, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2
	height := float64(canvas.Height) * scale * 4

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	bits := [4][2]int{
		{0x01, 0x08},
		{0x02, 0x10},
		{0x04, 0x20},
		{0x40, 0x80},
	}
	radius := scale * 0.4

	for row := 0; row < canvas.Height; row++ {
		for col := 0; col < canvas.Width; col++ {
			r := canvas.Grid[row][col]
			if r <= 0x2800 {
				continue
			}
			pattern := int(r - 0x2800)
			color := plain
			if ink := canvas.Ink[row][col]; ink >= 0 && palette != nil {
				color = palette(ink)
			}

			baseX := float64(col) * scale * 2
			baseY := float64(row) * scale * 4
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if pattern&bits[dy][dx] == 0 {
						continue
					}
					cx := baseX + float64(dx)*scale + scale/2
					cy := baseY + float64(dy)*scale + scale/2
					fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\" fill=\"%s\"/>\n", cx, cy, radius, string(color))
				}
			}
		}
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

// Snapshot draws a with the default camera on a w x h character canvas and
// returns it as SVG colored by species.
func Snapshot(a *atoms.Atoms, theme viz.Theme, w, h int, scale float64) string {
	canvas := viz.NewCanvas(w, h)
	viz.NewScene(a).Draw(canvas, viz.NewCamera())
	return CanvasToSVG(canvas, theme.SpeciesColor, theme.Muted, scale)
}

// WriteSnapshot writes Snapshot to path.
func WriteSnapshot(path string, a *atoms.Atoms, theme viz.Theme) error {
	svg := Snapshot(a, theme, 80, 40, 4)
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
