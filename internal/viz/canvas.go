package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille cells hold a 2x4 dot grid; dot bits by (row, column):
//
//	1 4
//	2 5
//	3 6
//	7 8
var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is a Braille bitmap with one color slot per character cell. Its
// resolution in dots is (2*Width) x (4*Height).
type Canvas struct {
	Width, Height int
	Grid          [][]rune
	// Ink is the palette index of the last dot set in each cell, -1 if none.
	Ink [][]int
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h), Ink: make([][]int, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		c.Ink[i] = make([]int, w)
	}
	c.Clear()
	return c
}

// DotWidth and DotHeight give the resolution in dots.
func (c *Canvas) DotWidth() int  { return 2 * c.Width }
func (c *Canvas) DotHeight() int { return 4 * c.Height }

func (c *Canvas) cell(x, y int) (row, col int, ok bool) {
	if x < 0 || y < 0 {
		return 0, 0, false
	}
	row, col = y/4, x/2
	return row, col, row < c.Height && col < c.Width
}

// Set lights the dot at (x, y) with no color.
func (c *Canvas) Set(x, y int) {
	c.Plot(x, y, -1)
}

// Plot lights the dot at (x, y) and records ink as the cell's color.
func (c *Canvas) Plot(x, y, ink int) {
	row, col, ok := c.cell(x, y)
	if !ok {
		return
	}
	c.Grid[row][col] |= pixelMap[y%4][x%2]
	if ink >= 0 {
		c.Ink[row][col] = ink
	}
}

func (c *Canvas) Unset(x, y int) {
	row, col, ok := c.cell(x, y)
	if !ok {
		return
	}
	c.Grid[row][col] &^= pixelMap[y%4][x%2]
	if c.Grid[row][col] < brailleBlank {
		c.Grid[row][col] = brailleBlank
	}
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
			c.Ink[i][j] = -1
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Blob fills a small disc of dots around (x, y).
func (c *Canvas) Blob(x, y, radius, ink int) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				c.Plot(x+dx, y+dy, ink)
			}
		}
	}
}

// String renders the bitmap without color.
func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Render colors each cell by its ink through palette.
func (c *Canvas) Render(palette func(ink int) lipgloss.Color, plain lipgloss.Color) string {
	var b strings.Builder
	base := lipgloss.NewStyle().Foreground(plain)
	for i, row := range c.Grid {
		for j, r := range row {
			if ink := c.Ink[i][j]; ink >= 0 {
				b.WriteString(lipgloss.NewStyle().Foreground(palette(ink)).Render(string(r)))
				continue
			}
			b.WriteString(base.Render(string(r)))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
