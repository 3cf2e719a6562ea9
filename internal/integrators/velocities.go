package integrators

import (
	"math"
	"math/rand"

	"github.com/san-kum/mlmd/internal/atoms"
)

// MaxwellBoltzmann draws velocities for temperature T and removes the
// centre-of-mass motion. Fixed atoms are left at rest.
func MaxwellBoltzmann(a *atoms.Atoms, temperature float64, rng *rand.Rand) {
	ensureVelocities(a)
	for i := range a.Velocities {
		if a.IsFixed(i) {
			a.Velocities[i] = atoms.Vec3{}
			continue
		}
		sigma := math.Sqrt(KB * temperature / a.Masses[i])
		for k := 0; k < 3; k++ {
			a.Velocities[i][k] = sigma * rng.NormFloat64()
		}
	}
	Stationary(a)
}

// Stationary subtracts the centre-of-mass velocity from every free atom.
func Stationary(a *atoms.Atoms) {
	var mass float64
	var p atoms.Vec3
	for i, v := range a.Velocities {
		if a.IsFixed(i) {
			continue
		}
		mass += a.Masses[i]
		for k := 0; k < 3; k++ {
			p[k] += a.Masses[i] * v[k]
		}
	}
	if mass == 0 {
		return
	}
	for i := range a.Velocities {
		if a.IsFixed(i) {
			continue
		}
		for k := 0; k < 3; k++ {
			a.Velocities[i][k] -= p[k] / mass
		}
	}
}
