package calc

import (
	"go.uber.org/zap"

	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/compute"
	"github.com/san-kum/mlmd/internal/graph"
	"github.com/san-kum/mlmd/internal/nn"
	"github.com/san-kum/mlmd/internal/scheme"
)

// Potential adapts a graph-network model to the Calculator contract.
// It is not safe for concurrent use.
type Potential struct {
	scheme  *scheme.Scheme
	builder *graph.Builder
	backend compute.Backend
	model   nn.Model
	log     *zap.Logger

	last    *atoms.Atoms
	results Results
	calls   int
}

type Option func(*Potential)

func WithLogger(l *zap.Logger) Option {
	return func(p *Potential) { p.log = l }
}

// WithModel skips loading from the model directory and uses m instead.
func WithModel(m nn.Model) Option {
	return func(p *Potential) { p.model = m }
}

// WithBackend overrides the backend resolved from the device.
func WithBackend(b compute.Backend) Option {
	return func(p *Potential) { p.backend = b }
}

// New loads the graph build scheme from schemeDir and the model from
// modelDir. The scheme is loaded first so a missing
// graph_build_scheme.json is reported before anything else is touched.
func New(modelDir, schemeDir string, device compute.Device, opts ...Option) (*Potential, error) {
	s, err := scheme.Load(schemeDir)
	if err != nil {
		return nil, err
	}
	// labels are never needed at inference time
	s.BuildProperties.TopologyOnly()

	p := &Potential{
		scheme:  s,
		builder: graph.NewBuilder(s),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.backend == nil {
		b, err := compute.ForDevice(device)
		if err != nil {
			return nil, err
		}
		p.backend = b
	}

	if p.model == nil {
		m, err := nn.Load(modelDir)
		if err != nil {
			return nil, err
		}
		p.model = m
	}

	p.log.Info("potential ready",
		zap.String("model_dir", modelDir),
		zap.String("scheme_dir", schemeDir),
		zap.String("device", p.backend.Device().String()),
		zap.Strings("species", s.Species),
		zap.Float64("cutoff", s.Cutoff),
		zap.String("mode", s.Mode()),
	)
	return p, nil
}

func (p *Potential) Scheme() *scheme.Scheme    { return p.scheme }
func (p *Potential) Backend() compute.Backend { return p.backend }
func (p *Potential) Calls() int               { return p.calls }

// Results returns the cache written by the last successful call.
func (p *Potential) Results() Results { return p.results }

// Calculate evaluates a. A nil a re-evaluates the configuration from the
// last successful call. properties defaults to every implemented property and
// changes is accepted for interface compatibility only.
func (p *Potential) Calculate(a *atoms.Atoms, properties []Property, changes []Change) (Results, error) {
	if properties == nil {
		properties = Implemented
	}
	if err := checkProperties(properties); err != nil {
		return Results{}, err
	}
	if a == nil {
		if p.last == nil {
			return Results{}, ErrNoConfiguration
		}
		a = p.last
	}

	g, err := p.builder.Build(a)
	if err != nil {
		return Results{}, &InferenceError{Atoms: a.Len(), Stage: "graph build", Wrapped: err}
	}
	if err := g.To(p.backend); err != nil {
		return Results{}, &InferenceError{Atoms: a.Len(), Stage: "placement", Wrapped: err}
	}

	out, err := p.model.Forward(g)
	if err != nil {
		return Results{}, &InferenceError{Atoms: a.Len(), Stage: "forward", Wrapped: err}
	}

	// forces and stress are copied out so the cache never aliases model buffers
	r := Results{
		Energy: out.EnergyPerAtom * float64(a.Len()),
		Forces: append([][3]float64(nil), out.Forces...),
		Stress: Voigt(out.Stress),
	}
	p.results = r
	if a != p.last {
		p.last = a.Clone()
	}
	p.calls++

	p.log.Debug("calculated",
		zap.Int("atoms", a.Len()),
		zap.Int("edges", g.NumEdges()),
		zap.Float64("energy", r.Energy),
	)
	return r.Clone(), nil
}
