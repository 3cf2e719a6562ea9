package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/calc"
)

// NPTConfig holds the ensemble parameters. Times are in internal units,
// stresses in eV/Å³ and Compressibility in Å³/eV.
type NPTConfig struct {
	Timestep        float64
	Temperature     float64
	TTime           float64
	PTime           float64
	ExternalStress  float64
	Compressibility float64
	// Mask selects the lattice vectors the barostat may rescale.
	Mask [3]bool
}

// NPT couples a Nosé–Hoover thermostat to a Berendsen barostat that scales
// each masked lattice vector independently. Off-diagonal cell components are
// never changed, so the cell keeps its shape. With PTime zero the barostat
// is off and the cell stays fixed.
type NPT struct {
	cfg NPTConfig
	// xi is the thermostat friction in inverse time units.
	xi float64
}

func NewNPT(cfg NPTConfig) (*NPT, error) {
	if cfg.Timestep <= 0 {
		return nil, fmt.Errorf("%w: timestep %g", ErrBadParameter, cfg.Timestep)
	}
	if cfg.Temperature < 0 || cfg.TTime <= 0 {
		return nil, fmt.Errorf("%w: temperature %g K, ttime %g", ErrBadParameter, cfg.Temperature, cfg.TTime)
	}
	if cfg.PTime < 0 || (cfg.PTime > 0 && cfg.Compressibility <= 0) {
		return nil, fmt.Errorf("%w: ptime %g, compressibility %g", ErrBadParameter, cfg.PTime, cfg.Compressibility)
	}
	return &NPT{cfg: cfg}, nil
}

func (n *NPT) Name() string      { return "npt" }
func (n *NPT) Timestep() float64 { return n.cfg.Timestep }

// Friction returns the current thermostat variable.
func (n *NPT) Friction() float64 { return n.xi }

// BarostatEnabled reports whether the cell is allowed to change.
func (n *NPT) BarostatEnabled() bool { return n.cfg.PTime > 0 }

func (n *NPT) Step(a *atoms.Atoms, c calc.Calculator, r calc.Results) (calc.Results, error) {
	ensureVelocities(a)
	dt := n.cfg.Timestep
	half := 0.5 * dt

	if n.BarostatEnabled() && a.Periodic() {
		if err := n.rescaleCell(a, r.Stress); err != nil {
			return r, err
		}
	}

	scaleVelocities(a, 1-half*n.xi)
	if err := kick(a, r.Forces, half); err != nil {
		return r, err
	}
	drift(a, dt)

	next, err := evaluate(a, c)
	if err != nil {
		return r, err
	}

	if n.cfg.Temperature > 0 {
		n.xi += dt * (a.Temperature()/n.cfg.Temperature - 1) / (n.cfg.TTime * n.cfg.TTime)
	}
	if err := kick(a, next.Forces, half); err != nil {
		return next, err
	}
	scaleVelocities(a, 1/(1+half*n.xi))
	return next, nil
}

// rescaleCell applies one Berendsen update per masked axis using the total
// (virial plus kinetic) pressure along that axis.
func (n *NPT) rescaleCell(a *atoms.Atoms, stress calc.Voigt) error {
	kin := a.KineticStress()
	var mu [3]float64
	for k := 0; k < 3; k++ {
		mu[k] = 1
		if !n.cfg.Mask[k] || !a.PBC[k] {
			continue
		}
		p := -(stress[k] + kin[k])
		m := 1 - n.cfg.Compressibility*n.cfg.Timestep/n.cfg.PTime*(n.cfg.ExternalStress-p)
		if m <= 0 {
			return fmt.Errorf("%w: barostat scaling %g on axis %d", ErrBadParameter, m, k)
		}
		mu[k] = math.Cbrt(m)
	}
	if mu == [3]float64{1, 1, 1} {
		return nil
	}
	return a.SetCell(a.Cell.ScaleAxes(mu), true)
}
