// Package sim runs molecular dynamics: one calculator evaluation per step,
// with observers attached at fixed step intervals.
package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/calc"
	"github.com/san-kum/mlmd/internal/integrators"
)

type attached struct {
	observer Observer
	interval int
}

type Simulator struct {
	calc       calc.Calculator
	integrator integrators.Integrator
	observers  []attached
	log        *zap.Logger
}

type Option func(*Simulator)

func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) { s.log = l }
}

func New(c calc.Calculator, integ integrators.Integrator, opts ...Option) *Simulator {
	s := &Simulator{
		calc:       c,
		integrator: integ,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attach registers o to be called on step 0 and every interval steps.
func (s *Simulator) Attach(o Observer, interval int) {
	if interval < 1 {
		interval = 1
	}
	s.observers = append(s.observers, attached{observer: o, interval: interval})
}

func (s *Simulator) Integrator() integrators.Integrator { return s.integrator }

// Run advances a by steps timesteps in place.
func (s *Simulator) Run(ctx context.Context, a *atoms.Atoms, steps int) (*Result, error) {
	if err := s.validate(a, steps); err != nil {
		return nil, err
	}

	start := time.Now()
	dtPS := s.integrator.Timestep() / integrators.PS
	result := &Result{}

	r, err := s.calc.Calculate(a, calc.Implemented, calc.AllChanges)
	if err != nil {
		return nil, &SimulationError{Step: 0, Wrapped: err}
	}
	result.Evaluations++
	if err := checkState(a, r); err != nil {
		return nil, &SimulationError{Step: 0, Wrapped: err}
	}
	initial := r.Energy + a.KineticEnergy()

	if err := s.notify(Frame{Step: 0, Atoms: a, Results: r}); err != nil {
		return result, err
	}

	s.log.Info("run started",
		zap.String("ensemble", s.integrator.Name()),
		zap.Int("atoms", a.Len()),
		zap.Int("steps", steps),
		zap.Float64("dt_fs", s.integrator.Timestep()/integrators.FS),
	)

	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			result.Final = r
			result.Elapsed = time.Since(start)
			return result, ctx.Err()
		default:
		}

		t := float64(i) * dtPS
		r, err = s.integrator.Step(a, s.calc, r)
		result.Evaluations++
		if err != nil {
			return result, &SimulationError{Step: i, Time: t, Wrapped: err}
		}
		if err := checkState(a, r); err != nil {
			return result, &SimulationError{Step: i, Time: t, Wrapped: err}
		}
		result.Steps = i
		result.Final = r

		if err := s.notify(Frame{Step: i, Time: t, Atoms: a, Results: r}); err != nil {
			return result, err
		}
	}

	final := r.Energy + a.KineticEnergy()
	if initial != 0 {
		result.EnergyDrift = math.Abs(final-initial) / math.Abs(initial)
	}
	result.Final = r
	result.Elapsed = time.Since(start)

	s.log.Info("run finished",
		zap.Int("steps", result.Steps),
		zap.Int("evaluations", result.Evaluations),
		zap.Float64("energy_drift", result.EnergyDrift),
		zap.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

func (s *Simulator) validate(a *atoms.Atoms, steps int) error {
	if a == nil || a.Len() == 0 {
		return fmt.Errorf("%w: no atoms", ErrInvalidConfig)
	}
	if steps < 0 {
		return fmt.Errorf("%w: steps must be non-negative, got %d", ErrInvalidConfig, steps)
	}
	if s.integrator.Timestep() <= 0 {
		return fmt.Errorf("%w: timestep must be positive, got %g", ErrInvalidConfig, s.integrator.Timestep())
	}
	return a.Validate()
}

func (s *Simulator) notify(f Frame) error {
	for _, o := range s.observers {
		if f.Step%o.interval != 0 {
			continue
		}
		if err := o.observer.Observe(f); err != nil {
			return &SimulationError{Step: f.Step, Time: f.Time, Wrapped: err}
		}
	}
	return nil
}

func checkState(a *atoms.Atoms, r calc.Results) error {
	if !r.Valid() {
		return ErrInvalidState
	}
	for i, p := range a.Positions {
		for k := 0; k < 3; k++ {
			if math.IsNaN(p[k]) || math.IsInf(p[k], 0) {
				return fmt.Errorf("%w: atom %d position", ErrInvalidState, i)
			}
		}
	}
	return nil
}
