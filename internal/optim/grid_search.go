// Package optim scans run parameters, such as the timestep or the
// thermostat coupling, for the value that minimises a run metric.
package optim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/san-kum/mlmd/internal/config"
	"github.com/san-kum/mlmd/internal/experiment"
)

var ErrNoTrials = errors.New("optim: no trial completed")

// Setters maps the parameter names a grid may scan to the config field
// they set. Values are in the config's own units.
var Setters = map[string]func(*config.Config, float64){
	"dt":              func(c *config.Config, v float64) { c.TimestepFS = v },
	"ttime":           func(c *config.Config, v float64) { c.TTimeFS = v },
	"ptime":           func(c *config.Config, v float64) { c.PTimeFS = v },
	"temperature":     func(c *config.Config, v float64) { c.Temperature = v },
	"compressibility": func(c *config.Config, v float64) { c.Compressibility = v },
}

func ParamNames() []string {
	names := make([]string, 0, len(Setters))
	for name := range Setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Trial is one grid point. Err is set when the run could not be set up or
// blew up; Value is then +Inf.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// BuildFunc turns a grid point into a ready-to-run experiment.
type BuildFunc func(params map[string]float64) (*experiment.Experiment, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	log        *zap.Logger
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameters but %d ranges", len(params), len(ranges))
	}
	for i, name := range params {
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("optim: empty range for %s", name)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges, log: zap.NewNop()}, nil
}

func (g *GridSearch) WithLogger(l *zap.Logger) *GridSearch {
	g.log = l
	return g
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search runs every grid point and returns the trials in grid order along
// with the index of the one with the smallest metric value.
func (g *GridSearch) Search(ctx context.Context, build BuildFunc, metricName string) ([]Trial, int, error) {
	var trials []Trial
	if err := g.searchRecursive(ctx, 0, map[string]float64{}, build, metricName, &trials); err != nil {
		return trials, -1, err
	}

	best := -1
	for i, t := range trials {
		if t.Err != nil {
			continue
		}
		if best < 0 || t.Value < trials[best].Value {
			best = i
		}
	}
	if best < 0 {
		return trials, -1, ErrNoTrials
	}
	return trials, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	build BuildFunc,
	metricName string,
	trials *[]Trial,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		t := g.trial(ctx, current, build, metricName)
		if errors.Is(t.Err, context.Canceled) || errors.Is(t.Err, context.DeadlineExceeded) {
			return t.Err
		}
		*trials = append(*trials, t)
		return nil
	}

	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[name] = val

		if err := g.searchRecursive(ctx, depth+1, next, build, metricName, trials); err != nil {
			return err
		}
	}
	return nil
}

func (g *GridSearch) trial(ctx context.Context, params map[string]float64, build BuildFunc, metricName string) Trial {
	t := Trial{Params: params, Value: math.Inf(1)}

	exp, err := build(params)
	if err != nil {
		t.Err = err
		return t
	}
	defer exp.Close()

	if _, err := exp.Run(ctx); err != nil {
		t.Err = err
		g.log.Debug("trial failed", zap.Any("params", params), zap.Error(err))
		return t
	}

	v, ok := exp.Metrics.Values()[metricName]
	if !ok {
		t.Err = fmt.Errorf("optim: unknown metric %q", metricName)
		return t
	}
	if !math.IsNaN(v) {
		t.Value = v
	}
	g.log.Debug("trial", zap.Any("params", params), zap.Float64(metricName, t.Value))
	return t
}

// ConfigBuilder returns a BuildFunc that applies each grid point to a copy
// of base and sets up a quiet experiment from it.
func ConfigBuilder(base *config.Config, log *zap.Logger) BuildFunc {
	return func(params map[string]float64) (*experiment.Experiment, error) {
		c := *base
		c.Output.LogFile = ""
		c.Output.Trajectory = ""
		for name, v := range params {
			set, ok := Setters[name]
			if !ok {
				return nil, fmt.Errorf("optim: unknown parameter %q", name)
			}
			set(&c, v)
		}
		exp := experiment.New(&c, experiment.WithLogger(log), experiment.WithOutput(io.Discard))
		if err := exp.Setup(); err != nil {
			return nil, err
		}
		return exp, nil
	}
}
