// Package integrators advances an atomic configuration in time. Every step
// costs exactly one calculator evaluation: the results passed in are those
// for the current positions and the results returned are those for the new
// ones.
package integrators

import (
	"errors"
	"fmt"

	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/calc"
)

var ErrBadParameter = errors.New("integrators: parameter out of range")

type Integrator interface {
	Name() string
	// Timestep in internal time units.
	Timestep() float64
	Step(a *atoms.Atoms, c calc.Calculator, r calc.Results) (calc.Results, error)
}

// kick advances free velocities by dt times the acceleration from forces.
func kick(a *atoms.Atoms, forces [][3]float64, dt float64) error {
	if len(forces) != a.Len() {
		return fmt.Errorf("integrators: %d force rows for %d atoms", len(forces), a.Len())
	}
	for i := range a.Velocities {
		if a.IsFixed(i) {
			a.Velocities[i] = atoms.Vec3{}
			continue
		}
		inv := dt / a.Masses[i]
		for k := 0; k < 3; k++ {
			a.Velocities[i][k] += forces[i][k] * inv
		}
	}
	return nil
}

func drift(a *atoms.Atoms, dt float64) {
	for i := range a.Positions {
		if a.IsFixed(i) {
			continue
		}
		for k := 0; k < 3; k++ {
			a.Positions[i][k] += a.Velocities[i][k] * dt
		}
	}
}

func scaleVelocities(a *atoms.Atoms, s float64) {
	for i := range a.Velocities {
		for k := 0; k < 3; k++ {
			a.Velocities[i][k] *= s
		}
	}
}

func ensureVelocities(a *atoms.Atoms) {
	if len(a.Velocities) != a.Len() {
		a.Velocities = make([]atoms.Vec3, a.Len())
	}
}

func evaluate(a *atoms.Atoms, c calc.Calculator) (calc.Results, error) {
	return c.Calculate(a, calc.Implemented, calc.AllChanges)
}
