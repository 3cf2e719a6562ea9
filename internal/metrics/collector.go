package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/calc"
	"github.com/san-kum/mlmd/internal/sim"
)

// Collector holds the Prometheus series for one process. Each collector owns
// its registry so tests and replicas never collide on registration.
type Collector struct {
	registry *prometheus.Registry

	Step        prometheus.Gauge
	Temperature prometheus.Gauge
	Epot        prometheus.Gauge
	Pressure    prometheus.Gauge
	Volume      prometheus.Gauge
	MaxForce    prometheus.Gauge

	Evaluations *prometheus.CounterVec
	EvalSeconds prometheus.Histogram
	Atoms       prometheus.Gauge
}

func NewCollector(namespace string) *Collector {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "md",
			Name:      name,
			Help:      help,
		})
	}

	c := &Collector{
		registry:    prometheus.NewRegistry(),
		Step:        gauge("step", "Current MD step"),
		Temperature: gauge("temperature_kelvin", "Instantaneous temperature"),
		Epot:        gauge("potential_energy_ev", "Potential energy of the last frame"),
		Pressure:    gauge("pressure_gpa", "Pressure including the kinetic term"),
		Volume:      gauge("volume_cubic_angstrom", "Cell volume"),
		MaxForce:    gauge("max_force_ev_per_angstrom", "Largest atomic force"),
		Atoms:       gauge("atoms", "Atoms in the last evaluated configuration"),
		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "calculator",
				Name:      "evaluations_total",
				Help:      "Calculator evaluations by outcome",
			},
			[]string{"status"},
		),
		EvalSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "calculator",
				Name:      "evaluation_duration_seconds",
				Help:      "Wall time of one energy/forces/stress evaluation",
				Buckets:   prometheus.ExponentialBuckets(1e-4, 4, 10),
			},
		),
	}

	c.registry.MustRegister(
		c.Step,
		c.Temperature,
		c.Epot,
		c.Pressure,
		c.Volume,
		c.MaxForce,
		c.Atoms,
		c.Evaluations,
		c.EvalSeconds,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Observe publishes a frame. It satisfies sim.Observer.
func (c *Collector) Observe(f sim.Frame) error {
	row := sim.NewThermoRow(f)
	c.Step.Set(float64(row.Step))
	c.Temperature.Set(row.Temperature)
	c.Epot.Set(row.Epot)
	c.Pressure.Set(row.Pressure)
	c.Volume.Set(row.Volume)
	c.MaxForce.Set(row.MaxForce)
	return nil
}

// Instrument wraps a calculator so every evaluation is counted and timed.
func (c *Collector) Instrument(inner calc.Calculator) *InstrumentedCalculator {
	return &InstrumentedCalculator{inner: inner, collector: c}
}

type InstrumentedCalculator struct {
	inner     calc.Calculator
	collector *Collector
}

func (ic *InstrumentedCalculator) Calculate(a *atoms.Atoms, properties []calc.Property, changes []calc.Change) (calc.Results, error) {
	start := time.Now()
	r, err := ic.inner.Calculate(a, properties, changes)
	ic.collector.EvalSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		ic.collector.Evaluations.WithLabelValues("error").Inc()
		return r, err
	}
	ic.collector.Evaluations.WithLabelValues("ok").Inc()
	if a != nil {
		ic.collector.Atoms.Set(float64(a.Len()))
	}
	return r, nil
}

// Unwrap returns the decorated calculator.
func (ic *InstrumentedCalculator) Unwrap() calc.Calculator {
	return ic.inner
}

var _ calc.Calculator = (*InstrumentedCalculator)(nil)
