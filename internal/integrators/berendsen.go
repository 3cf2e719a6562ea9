package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/calc"
)

// Berendsen rescales velocities towards a target temperature after every
// velocity Verlet step.
type Berendsen struct {
	verlet      VelocityVerlet
	temperature float64
	tau         float64
}

func NewBerendsen(dt, temperature, tau float64) (*Berendsen, error) {
	if temperature < 0 || tau <= 0 {
		return nil, fmt.Errorf("%w: berendsen temperature %g K, tau %g", ErrBadParameter, temperature, tau)
	}
	return &Berendsen{verlet: VelocityVerlet{dt: dt}, temperature: temperature, tau: tau}, nil
}

func (b *Berendsen) Name() string      { return "nvt" }
func (b *Berendsen) Timestep() float64 { return b.verlet.dt }

func (b *Berendsen) Step(a *atoms.Atoms, c calc.Calculator, r calc.Results) (calc.Results, error) {
	next, err := b.verlet.Step(a, c, r)
	if err != nil {
		return next, err
	}
	scaleVelocities(a, berendsenScale(a.Temperature(), b.temperature, b.verlet.dt, b.tau))
	return next, nil
}

// berendsenScale is clamped to [0.9, 1.1] so a cold start cannot blow up.
func berendsenScale(current, target, dt, tau float64) float64 {
	if current == 0 {
		return 1
	}
	s := math.Sqrt(1 + dt/tau*(target/current-1))
	return math.Max(0.9, math.Min(1.1, s))
}
