// Package metrics scores simulations as they run.
//
// Metrics are small accumulators fed one [sim.Frame] at a time. [Collector]
// exports the same stream, plus calculator timings, to Prometheus.
package metrics

import (
	"github.com/san-kum/mlmd/internal/sim"
)

type Metric interface {
	Name() string
	Observe(f sim.Frame)
	Value() float64
	Reset()
}

// Set feeds every frame to each metric. It satisfies sim.Observer.
type Set []Metric

func (s Set) Observe(f sim.Frame) error {
	for _, m := range s {
		m.Observe(f)
	}
	return nil
}

// Values reports the current value of each metric by name.
func (s Set) Values() map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, m := range s {
		out[m.Name()] = m.Value()
	}
	return out
}

func (s Set) Reset() {
	for _, m := range s {
		m.Reset()
	}
}

// Standard is the set a run records into its metadata.
func Standard(forceLimit float64) Set {
	return Set{
		NewEnergyDrift(),
		NewMeanTemperature(),
		NewStability(forceLimit),
		NewMeanForce(),
	}
}
