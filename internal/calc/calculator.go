// Package calc defines the calculator contract the MD driver evaluates once
// per step, and the implementations behind it: the graph-network Potential
// adapter and a Lennard-Jones reference.
package calc

import (
	"fmt"
	"math"

	"github.com/san-kum/mlmd/internal/atoms"
)

type Property string

const (
	Energy Property = "energy"
	Forces Property = "forces"
	Stress Property = "stress"
)

// Implemented lists every property a calculator in this package returns.
var Implemented = []Property{Energy, Forces, Stress}

// Change names the parts of a configuration that differ from the previous
// call. Calculators here recompute everything, so the list is informational.
type Change string

const (
	Positions Change = "positions"
	Numbers   Change = "numbers"
	CellShape Change = "cell"
	PBC       Change = "pbc"
)

var AllChanges = []Change{Positions, Numbers, CellShape, PBC}

type Calculator interface {
	Calculate(a *atoms.Atoms, properties []Property, changes []Change) (Results, error)
}

// Voigt holds a symmetric tensor in the order xx, yy, zz, yz, xz, xy.
type Voigt [6]float64

// Matrix expands v into its 3x3 form.
func (v Voigt) Matrix() [3][3]float64 {
	return [3][3]float64{
		{v[0], v[5], v[4]},
		{v[5], v[1], v[3]},
		{v[4], v[3], v[2]},
	}
}

// Pressure is minus the mean of the diagonal.
func (v Voigt) Pressure() float64 {
	return -(v[0] + v[1] + v[2]) / 3
}

type Results struct {
	Energy float64
	Forces [][3]float64
	// Stress in eV/Å³.
	Stress Voigt
}

func (r Results) Clone() Results {
	c := r
	if r.Forces != nil {
		c.Forces = append([][3]float64(nil), r.Forces...)
	}
	return c
}

// Valid reports whether every value is finite.
func (r Results) Valid() bool {
	if !finite(r.Energy) {
		return false
	}
	for _, f := range r.Forces {
		if !finite(f[0]) || !finite(f[1]) || !finite(f[2]) {
			return false
		}
	}
	for _, s := range r.Stress {
		if !finite(s) {
			return false
		}
	}
	return true
}

// MaxForce returns the largest force norm.
func (r Results) MaxForce() float64 {
	var m float64
	for _, f := range r.Forces {
		m = math.Max(m, math.Sqrt(f[0]*f[0]+f[1]*f[1]+f[2]*f[2]))
	}
	return m
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func checkProperties(properties []Property) error {
	for _, p := range properties {
		switch p {
		case Energy, Forces, Stress:
		default:
			return fmt.Errorf("%w: %q", ErrUnsupportedProperty, p)
		}
	}
	return nil
}
