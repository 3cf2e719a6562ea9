package sim

import (
	"math"
	"time"

	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/calc"
	"github.com/san-kum/mlmd/internal/integrators"
)

// Frame is what observers see. Atoms is the live configuration and must not
// be retained or modified.
type Frame struct {
	Step    int
	Time    float64 // ps
	Atoms   *atoms.Atoms
	Results calc.Results
}

type Observer interface {
	Observe(f Frame) error
}

type ObserverFunc func(f Frame) error

func (fn ObserverFunc) Observe(f Frame) error { return fn(f) }

type Result struct {
	Steps       int
	Evaluations int
	Final       calc.Results
	EnergyDrift float64
	Elapsed     time.Duration
}

// ThermoRow is one line of thermodynamic output. Energies are totals in eV
// and stresses include the ideal-gas term, in GPa.
type ThermoRow struct {
	Step        int        `json:"step"`
	Time        float64    `json:"time_ps"`
	Atoms       int        `json:"atoms"`
	Epot        float64    `json:"epot"`
	Ekin        float64    `json:"ekin"`
	Etot        float64    `json:"etot"`
	Temperature float64    `json:"temperature"`
	Volume      float64    `json:"volume"`
	Pressure    float64    `json:"pressure_gpa"`
	Stress      [6]float64 `json:"stress_gpa"`
	MaxForce    float64    `json:"fmax"`
}

func NewThermoRow(f Frame) ThermoRow {
	a := f.Atoms
	row := ThermoRow{
		Step:        f.Step,
		Time:        f.Time,
		Atoms:       a.Len(),
		Epot:        f.Results.Energy,
		Ekin:        a.KineticEnergy(),
		Temperature: a.Temperature(),
		Volume:      a.Cell.Volume(),
		MaxForce:    f.Results.MaxForce(),
	}
	row.Etot = row.Epot + row.Ekin
	kin := a.KineticStress()
	for k := range row.Stress {
		row.Stress[k] = (f.Results.Stress[k] + kin[k]) / integrators.GPa
	}
	row.Pressure = -(row.Stress[0] + row.Stress[1] + row.Stress[2]) / 3
	return row
}

// Valid reports whether the row holds only finite numbers.
func (r ThermoRow) Valid() bool {
	vals := []float64{r.Epot, r.Ekin, r.Temperature, r.Pressure}
	vals = append(vals, r.Stress[:]...)
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ThermoRecorder keeps every row it observes.
type ThermoRecorder struct {
	Rows []ThermoRow
}

func (t *ThermoRecorder) Observe(f Frame) error {
	t.Rows = append(t.Rows, NewThermoRow(f))
	return nil
}
