package metrics

import (
	"math"

	"github.com/san-kum/mlmd/internal/sim"
)

// MeanTemperature averages the instantaneous temperature.
type MeanTemperature struct {
	name    string
	samples int
	total   float64
}

func NewMeanTemperature() *MeanTemperature {
	return &MeanTemperature{name: "mean_temperature"}
}

func (m *MeanTemperature) Name() string { return m.name }

func (m *MeanTemperature) Observe(f sim.Frame) {
	m.total += f.Atoms.Temperature()
	m.samples++
}

func (m *MeanTemperature) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.total / float64(m.samples)
}

func (m *MeanTemperature) Reset() {
	m.total = 0
	m.samples = 0
}

// EnergyDrift tracks the largest excursion of the total energy per atom
// from its first observed value, in eV/atom. Only meaningful for NVE.
type EnergyDrift struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(f sim.Frame) {
	n := f.Atoms.Len()
	if n == 0 {
		return
	}
	energy := (f.Results.Energy + f.Atoms.KineticEnergy()) / float64(n)
	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++
	e.maxDrift = math.Max(e.maxDrift, math.Abs(energy-e.initial))
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}
