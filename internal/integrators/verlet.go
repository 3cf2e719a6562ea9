package integrators

import (
	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/calc"
)

// VelocityVerlet integrates at constant energy.
type VelocityVerlet struct {
	dt float64
}

func NewVelocityVerlet(dt float64) *VelocityVerlet {
	return &VelocityVerlet{dt: dt}
}

func (v *VelocityVerlet) Name() string      { return "nve" }
func (v *VelocityVerlet) Timestep() float64 { return v.dt }

func (v *VelocityVerlet) Step(a *atoms.Atoms, c calc.Calculator, r calc.Results) (calc.Results, error) {
	ensureVelocities(a)
	half := 0.5 * v.dt

	if err := kick(a, r.Forces, half); err != nil {
		return r, err
	}
	drift(a, v.dt)

	next, err := evaluate(a, c)
	if err != nil {
		return r, err
	}
	if err := kick(a, next.Forces, half); err != nil {
		return next, err
	}
	return next, nil
}
