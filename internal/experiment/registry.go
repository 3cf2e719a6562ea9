package experiment

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/san-kum/mlmd/internal/calc"
	"github.com/san-kum/mlmd/internal/compute"
	"github.com/san-kum/mlmd/internal/config"
	"github.com/san-kum/mlmd/internal/integrators"
)

type IntegratorFactory func(cfg *config.Config) (integrators.Integrator, error)

type CalculatorFactory func(cfg *config.Config, log *zap.Logger) (calc.Calculator, error)

// Registry maps the names used in configuration files to constructors.
type Registry struct {
	ensembles   map[string]IntegratorFactory
	calculators map[string]CalculatorFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		ensembles:   make(map[string]IntegratorFactory),
		calculators: make(map[string]CalculatorFactory),
	}

	r.ensembles["nve"] = func(cfg *config.Config) (integrators.Integrator, error) {
		return integrators.NewVelocityVerlet(cfg.TimestepFS * integrators.FS), nil
	}
	r.ensembles["nvt"] = func(cfg *config.Config) (integrators.Integrator, error) {
		return integrators.NewBerendsen(cfg.TimestepFS*integrators.FS, cfg.Temperature, cfg.TTimeFS*integrators.FS)
	}
	r.ensembles["npt"] = func(cfg *config.Config) (integrators.Integrator, error) {
		return integrators.NewNPT(integrators.NPTConfig{
			Timestep:        cfg.TimestepFS * integrators.FS,
			Temperature:     cfg.Temperature,
			TTime:           cfg.TTimeFS * integrators.FS,
			PTime:           cfg.PTimeFS * integrators.FS,
			ExternalStress:  cfg.ExternalStress * integrators.GPa,
			Compressibility: cfg.Compressibility / integrators.Bar,
			Mask:            cfg.BarostatMask(),
		})
	}

	r.calculators["potential"] = func(cfg *config.Config, log *zap.Logger) (calc.Calculator, error) {
		device, err := compute.ParseDevice(cfg.Device)
		if err != nil {
			return nil, err
		}
		opts := []calc.Option{calc.WithLogger(log)}
		if device == compute.Host && cfg.Workers > 0 {
			opts = append(opts, calc.WithBackend(compute.NewCPUBackendWorkers(cfg.Workers)))
		}
		return calc.New(cfg.ModelDir, cfg.SchemeDir, device, opts...)
	}
	r.calculators["lj"] = func(cfg *config.Config, _ *zap.Logger) (calc.Calculator, error) {
		return calc.NewLennardJones(cfg.LJ.Epsilon, cfg.LJ.Sigma, cfg.LJ.Cutoff), nil
	}

	return r
}

// Register adds or replaces an ensemble constructor.
func (r *Registry) Register(name string, fn IntegratorFactory) {
	r.ensembles[name] = fn
}

// RegisterCalculator adds or replaces a calculator constructor.
func (r *Registry) RegisterCalculator(name string, fn CalculatorFactory) {
	r.calculators[name] = fn
}

func (r *Registry) Integrator(cfg *config.Config) (integrators.Integrator, error) {
	fn, ok := r.ensembles[cfg.Ensemble]
	if !ok {
		return nil, fmt.Errorf("unknown ensemble: %s", cfg.Ensemble)
	}
	return fn(cfg)
}

func (r *Registry) Calculator(cfg *config.Config, log *zap.Logger) (calc.Calculator, error) {
	fn, ok := r.calculators[cfg.Calculator]
	if !ok {
		return nil, fmt.Errorf("unknown calculator: %s", cfg.Calculator)
	}
	return fn(cfg, log)
}

func (r *Registry) ListEnsembles() []string {
	return sortedKeys(r.ensembles)
}

func (r *Registry) ListCalculators() []string {
	return sortedKeys(r.calculators)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
