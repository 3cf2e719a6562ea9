// Package experiment assembles a runnable MD job from a configuration:
// structure, calculator, ensemble, observers and outputs.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/calc"
	"github.com/san-kum/mlmd/internal/config"
	"github.com/san-kum/mlmd/internal/integrators"
	"github.com/san-kum/mlmd/internal/metrics"
	"github.com/san-kum/mlmd/internal/sim"
	"github.com/san-kum/mlmd/internal/storage"
)

// DefaultForceLimit is the stability threshold in eV/Å.
const DefaultForceLimit = 50.0

type Option func(*Experiment)

func WithLogger(l *zap.Logger) Option { return func(e *Experiment) { e.log = l } }

// WithOutput sets where the MD log goes when no log file is configured.
func WithOutput(w io.Writer) Option { return func(e *Experiment) { e.out = w } }

func WithRegistry(r *Registry) Option { return func(e *Experiment) { e.registry = r } }

// WithCollector instruments the calculator and publishes every logged frame.
func WithCollector(c *metrics.Collector) Option { return func(e *Experiment) { e.collector = c } }

// WithObserver attaches an extra observer, for example a live view.
func WithObserver(o sim.Observer, interval int) Option {
	return func(e *Experiment) { e.extra = append(e.extra, attachment{o, interval}) }
}

// WithAtoms starts from a instead of reading the configured structure.
// Velocities and cell are used as they are, so a run can continue from
// where an earlier one stopped.
func WithAtoms(a *atoms.Atoms) Option { return func(e *Experiment) { e.Atoms = a } }

// WithCalculator reuses c instead of building one from the configuration.
func WithCalculator(c calc.Calculator) Option { return func(e *Experiment) { e.Calculator = c } }

type attachment struct {
	observer sim.Observer
	interval int
}

type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	log       *zap.Logger
	out       io.Writer
	collector *metrics.Collector
	extra     []attachment

	Atoms      *atoms.Atoms
	Calculator calc.Calculator
	Simulator  *sim.Simulator
	Thermo     *sim.ThermoRecorder
	Metrics    metrics.Set

	closers []io.Closer
}

func New(cfg *config.Config, opts ...Option) *Experiment {
	e := &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		log:      zap.NewNop(),
		out:      os.Stdout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Setup validates the configuration and builds everything Run needs.
func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	if e.Atoms == nil {
		a, err := PrepareAtoms(e.cfg)
		if err != nil {
			return err
		}
		e.Atoms = a
	}
	a := e.Atoms

	c := e.Calculator
	if c == nil {
		var err error
		c, err = e.registry.Calculator(e.cfg, e.log)
		if err != nil {
			return fmt.Errorf("calculator: %w", err)
		}
		if e.collector != nil {
			c = e.collector.Instrument(c)
		}
	}
	e.Calculator = c

	integ, err := e.registry.Integrator(e.cfg)
	if err != nil {
		return fmt.Errorf("ensemble: %w", err)
	}

	e.Simulator = sim.New(c, integ, sim.WithLogger(e.log))
	out := e.cfg.Output

	logw := e.out
	if out.LogFile != "" && out.LogFile != "-" {
		f, err := os.Create(out.LogFile)
		if err != nil {
			return err
		}
		e.closers = append(e.closers, f)
		logw = f
	}
	e.Simulator.Attach(sim.NewLogger(logw, sim.PerAtom(out.PerAtom), sim.WithStress(out.Stress)), out.LogInterval)

	e.Thermo = &sim.ThermoRecorder{}
	e.Simulator.Attach(e.Thermo, out.LogInterval)

	e.Metrics = metrics.Standard(DefaultForceLimit)
	e.Simulator.Attach(e.Metrics, 1)

	if e.collector != nil {
		e.Simulator.Attach(e.collector, out.LogInterval)
	}

	if out.Trajectory != "" {
		tw, err := storage.NewTrajectoryWriter(out.Trajectory)
		if err != nil {
			e.Close()
			return err
		}
		e.closers = append(e.closers, tw)
		interval := out.TrajectoryInterval
		if interval < 1 {
			interval = out.LogInterval
		}
		e.Simulator.Attach(tw, interval)
	}

	for _, x := range e.extra {
		e.Simulator.Attach(x.observer, x.interval)
	}

	e.log.Info("experiment ready",
		zap.String("ensemble", integ.Name()),
		zap.String("calculator", e.cfg.Calculator),
		zap.Int("atoms", a.Len()),
		zap.Float64("timestep_fs", e.cfg.TimestepFS),
		zap.Float64("temperature_k", e.cfg.Temperature),
	)
	return nil
}

// Run advances the configured number of steps.
func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.Simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.Simulator.Run(ctx, e.Atoms, e.cfg.Steps)
}

// Close flushes the log file and trajectory.
func (e *Experiment) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i].Close())
	}
	e.closers = nil
	return errors.Join(errs...)
}

// Record stores the run's thermo rows and a metadata summary.
func (e *Experiment) Record(store *storage.Store, res *sim.Result) (string, error) {
	meta := storage.RunMetadata{
		Ensemble:    e.cfg.Ensemble,
		Timestamp:   time.Now(),
		Seed:        e.cfg.Seed,
		TimestepFS:  e.cfg.TimestepFS,
		Steps:       e.cfg.Steps,
		Temperature: e.cfg.Temperature,
		Atoms:       e.Atoms.Len(),
		Structure:   e.cfg.Structure,
		Calculator:  e.cfg.Calculator,
		Device:      e.cfg.Device,
		Trajectory:  e.cfg.Output.Trajectory,
		Metrics:     e.Metrics.Values(),
	}
	if res != nil {
		meta.Steps = res.Steps
		meta.Elapsed = res.Elapsed.Seconds()
		meta.Metrics["evaluations"] = float64(res.Evaluations)
	}
	return store.Save(meta, e.Thermo.Rows)
}

// PrepareAtoms reads the structure, applies cell, periodicity and repeats,
// and draws Maxwell-Boltzmann velocities from cfg.Seed.
func PrepareAtoms(cfg *config.Config) (*atoms.Atoms, error) {
	if cfg.Structure == "" {
		return nil, fmt.Errorf("%w: no structure file", config.ErrInvalid)
	}
	a, err := atoms.Read(cfg.Structure)
	if err != nil {
		return nil, fmt.Errorf("read structure: %w", err)
	}
	if len(cfg.Cell) > 0 {
		a.Cell = cfg.CellMatrix()
	}
	if len(cfg.Cell) > 0 || len(cfg.PBC) > 0 {
		a.PBC = cfg.Periodicity()
	}
	if reps := cfg.Repetitions(); reps != [3]int{1, 1, 1} {
		if a.Cell.IsZero() {
			return nil, fmt.Errorf("%w: repeat needs a cell", config.ErrInvalid)
		}
		a = a.Repeat(reps)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	if t := cfg.StartTemperature(); t > 0 {
		integrators.MaxwellBoltzmann(a, t, rand.New(rand.NewSource(cfg.Seed)))
		integrators.Stationary(a)
	}
	return a, nil
}

// ReplicaFactory builds fully independent experiments that differ only in
// their velocity seed. Replicas log nowhere.
func ReplicaFactory(cfg *config.Config, log *zap.Logger) sim.ReplicaFactory {
	return func(seed int64) (*sim.Simulator, *atoms.Atoms, error) {
		c := *cfg
		c.Seed = seed
		c.Output.LogFile = ""
		c.Output.Trajectory = ""
		e := New(&c, WithLogger(log.With(zap.Int64("seed", seed))), WithOutput(io.Discard))
		if err := e.Setup(); err != nil {
			return nil, nil, err
		}
		return e.Simulator, e.Atoms, nil
	}
}
