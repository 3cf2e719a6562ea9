package viz

import (
	"fmt"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/mlmd/internal/analysis"
	"github.com/san-kum/mlmd/internal/sim"
)

var units = map[string]string{
	"temperature": "T [K]",
	"epot":        "Epot [eV]",
	"ekin":        "Ekin [eV]",
	"etot":        "Etot [eV]",
	"pressure":    "P [GPa]",
	"volume":      "V [Å³]",
	"fmax":        "Fmax [eV/Å]",
}

// PlotThermo writes one column of a run against time. The format follows
// the extension of path (.png, .svg, .pdf).
func PlotThermo(rows []sim.ThermoRow, column, title, path string) error {
	ys, ok := analysis.Column(rows, column)
	if !ok {
		return fmt.Errorf("unknown column %q (have %s)", column, strings.Join(analysis.ColumnNames(), ", "))
	}
	xs := make([]float64, len(rows))
	for i, r := range rows {
		xs[i] = r.Time
	}
	return PlotSeries(xs, ys, title, "t [ps]", units[column], path)
}

func PlotSeries(xs, ys []float64, title, xlabel, ylabel, path string) error {
	if len(xs) != len(ys) || len(xs) == 0 {
		return fmt.Errorf("plot: %d x values for %d y values", len(xs), len(ys))
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X, pts[i].Y = xs[i], ys[i]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	p.Add(line)

	if filepath.Ext(path) == "" {
		path += ".png"
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}

// ChartThermo is the terminal counterpart of PlotThermo.
func ChartThermo(rows []sim.ThermoRow, column string, h, w int) (string, error) {
	ys, ok := analysis.Column(rows, column)
	if !ok {
		return "", fmt.Errorf("unknown column %q", column)
	}
	caption := units[column]
	if caption == "" {
		caption = column
	}
	return Chart(ys, caption, h, w), nil
}
