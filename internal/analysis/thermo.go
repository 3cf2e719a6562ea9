package analysis

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/mlmd/internal/sim"
)

var ErrTooShort = errors.New("analysis: not enough samples")

type Summary struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

func Summarize1D(x []float64) Summary {
	if len(x) == 0 {
		return Summary{}
	}
	mean, std := stat.MeanStdDev(x, nil)
	if len(x) == 1 {
		std = 0
	}
	return Summary{Mean: mean, Std: std, Min: floats.Min(x), Max: floats.Max(x)}
}

type ThermoSummary struct {
	Samples     int     `json:"samples"`
	Temperature Summary `json:"temperature"`
	Epot        Summary `json:"epot_per_atom"`
	Etot        Summary `json:"etot_per_atom"`
	Pressure    Summary `json:"pressure_gpa"`
	Volume      Summary `json:"volume"`
	// DriftRate is the fitted slope of Etot/N in eV per atom per ps.
	DriftRate float64 `json:"drift_rate"`
}

// Summarize needs at least two rows.
func Summarize(rows []sim.ThermoRow) (ThermoSummary, error) {
	if len(rows) < 2 {
		return ThermoSummary{}, ErrTooShort
	}
	n := len(rows)
	var (
		t    = make([]float64, n)
		temp = make([]float64, n)
		epot = make([]float64, n)
		etot = make([]float64, n)
		pres = make([]float64, n)
		vol  = make([]float64, n)
	)
	for i, r := range rows {
		atoms := float64(r.Atoms)
		if atoms == 0 {
			atoms = 1
		}
		t[i] = r.Time
		temp[i] = r.Temperature
		epot[i] = r.Epot / atoms
		etot[i] = r.Etot / atoms
		pres[i] = r.Pressure
		vol[i] = r.Volume
	}

	_, slope := stat.LinearRegression(t, etot, nil, false)
	return ThermoSummary{
		Samples:     n,
		Temperature: Summarize1D(temp),
		Epot:        Summarize1D(epot),
		Etot:        Summarize1D(etot),
		Pressure:    Summarize1D(pres),
		Volume:      Summarize1D(vol),
		DriftRate:   slope,
	}, nil
}

// Column extracts one named column for plotting.
func Column(rows []sim.ThermoRow, name string) ([]float64, bool) {
	get, ok := columns[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = get(r)
	}
	return out, true
}

var columns = map[string]func(sim.ThermoRow) float64{
	"temperature": func(r sim.ThermoRow) float64 { return r.Temperature },
	"epot":        func(r sim.ThermoRow) float64 { return r.Epot },
	"ekin":        func(r sim.ThermoRow) float64 { return r.Ekin },
	"etot":        func(r sim.ThermoRow) float64 { return r.Etot },
	"pressure":    func(r sim.ThermoRow) float64 { return r.Pressure },
	"volume":      func(r sim.ThermoRow) float64 { return r.Volume },
	"fmax":        func(r sim.ThermoRow) float64 { return r.MaxForce },
}

// ColumnNames lists the names Column accepts.
func ColumnNames() []string {
	return []string{"temperature", "epot", "ekin", "etot", "pressure", "volume", "fmax"}
}
