// Package automation runs scripted sequences of MD stages, such as a
// thermostatted equilibration followed by NPT production, on one
// continuously evolving structure.
package automation

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/mlmd/internal/config"
	"github.com/san-kum/mlmd/internal/experiment"
	"github.com/san-kum/mlmd/internal/sim"
	"github.com/san-kum/mlmd/internal/storage"
)

// Scenario is an ordered list of stages. Each stage's config block is
// laid over the configuration the previous stage ran with, so a stage
// names only what changes.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Stages      []ScenarioStep `yaml:"stages"`
}

type ScenarioStep struct {
	Name   string    `yaml:"name"`
	Config yaml.Node `yaml:"config"`
}

// StageResult is what one stage left behind.
type StageResult struct {
	Name   string
	Config *config.Config
	Result *sim.Result
	Thermo []sim.ThermoRow
	// RunID is set when the stage was recorded.
	RunID string
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(sc.Stages) == 0 {
		return nil, fmt.Errorf("%w: scenario %q has no stages", config.ErrInvalid, sc.Name)
	}
	for i := range sc.Stages {
		if sc.Stages[i].Name == "" {
			sc.Stages[i].Name = fmt.Sprintf("stage%d", i+1)
		}
	}
	return &sc, nil
}

// Configs resolves every stage's configuration against base without
// running anything.
func (sc *Scenario) Configs(base *config.Config) ([]*config.Config, error) {
	out := make([]*config.Config, 0, len(sc.Stages))
	prev := base
	for i, st := range sc.Stages {
		c := *prev
		if c.InitTemperature != nil {
			t := *c.InitTemperature
			c.InitTemperature = &t
		}
		if !st.Config.IsZero() {
			if err := st.Config.Decode(&c); err != nil {
				return nil, fmt.Errorf("stage %s: %w", st.Name, err)
			}
		}
		if i > 0 {
			if field := carriedChange(prev, &c); field != "" {
				return nil, fmt.Errorf("%w: stage %s changes %s, which later stages inherit from the first", config.ErrInvalid, st.Name, field)
			}
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("stage %s: %w", st.Name, err)
		}
		out = append(out, &c)
		prev = &c
	}
	return out, nil
}

// carriedChange names the first setting that a continuing stage cannot
// change, since it reuses the previous stage's atoms and calculator.
func carriedChange(prev, next *config.Config) string {
	switch {
	case next.Calculator != prev.Calculator:
		return "calculator"
	case next.ModelDir != prev.ModelDir:
		return "model_dir"
	case next.SchemeDir != prev.SchemeDir:
		return "scheme_dir"
	case next.Device != prev.Device:
		return "device"
	case next.Workers != prev.Workers:
		return "workers"
	case next.LJ != prev.LJ:
		return "lj"
	case next.Structure != prev.Structure:
		return "structure"
	case !slices.Equal(next.Cell, prev.Cell):
		return "cell"
	case !slices.Equal(next.PBC, prev.PBC):
		return "pbc"
	case !slices.Equal(next.Repeat, prev.Repeat):
		return "repeat"
	}
	return ""
}

type Runner struct {
	log   *zap.Logger
	out   io.Writer
	store *storage.Store
}

type RunnerOption func(*Runner)

func WithLogger(l *zap.Logger) RunnerOption { return func(r *Runner) { r.log = l } }

// WithOutput sets where stages without a log file write their MD log.
func WithOutput(w io.Writer) RunnerOption { return func(r *Runner) { r.out = w } }

// WithStore records every completed stage as its own run.
func WithStore(s *storage.Store) RunnerOption { return func(r *Runner) { r.store = s } }

func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{log: zap.NewNop(), out: io.Discard}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the stages in order. The first stage reads the structure and
// draws velocities; later stages continue from the atoms and calculator the
// previous stage finished with. On error the stages completed so far are
// returned.
func (r *Runner) Run(ctx context.Context, sc *Scenario, base *config.Config) ([]StageResult, error) {
	cfgs, err := sc.Configs(base)
	if err != nil {
		return nil, err
	}

	results := make([]StageResult, 0, len(cfgs))
	var prev *experiment.Experiment
	for i, cfg := range cfgs {
		name := sc.Stages[i].Name
		r.log.Info("stage started",
			zap.String("scenario", sc.Name),
			zap.String("stage", name),
			zap.Int("index", i+1),
			zap.Int("of", len(cfgs)),
			zap.String("ensemble", cfg.Ensemble),
			zap.Int("steps", cfg.Steps),
		)

		opts := []experiment.Option{experiment.WithLogger(r.log), experiment.WithOutput(r.out)}
		if prev != nil {
			opts = append(opts, experiment.WithAtoms(prev.Atoms), experiment.WithCalculator(prev.Calculator))
		}
		exp := experiment.New(cfg, opts...)
		if err := exp.Setup(); err != nil {
			return results, fmt.Errorf("stage %s setup: %w", name, err)
		}

		res, runErr := exp.Run(ctx)
		if cerr := exp.Close(); cerr != nil && runErr == nil {
			runErr = cerr
		}
		if runErr != nil {
			return results, fmt.Errorf("stage %s: %w", name, runErr)
		}

		sr := StageResult{Name: name, Config: cfg, Result: res, Thermo: exp.Thermo.Rows}
		if r.store != nil {
			id, err := exp.Record(r.store, res)
			if err != nil {
				return results, fmt.Errorf("stage %s record: %w", name, err)
			}
			sr.RunID = id
		}
		results = append(results, sr)
		prev = exp
	}
	return results, nil
}
