// Package nn holds trained interatomic potentials that map a graph to
// energy, forces and stress.
//
// The in-repo backend, [Potential], is a single message-passing layer:
// each atom aggregates Gaussian radial features of its neighbours, weighted
// per neighbour species and smoothly cut off, and a small tanh network turns
// that descriptor plus a species embedding into an atomic energy. Forces and
// the virial stress are the analytic derivatives of the summed energy, so
// evaluation is a plain forward pass with no gradient bookkeeping.
package nn

import (
	"errors"

	"github.com/san-kum/mlmd/internal/graph"
)

var (
	ErrNotPlaced    = errors.New("nn: graph has not been placed on a device")
	ErrSpecies      = errors.New("nn: species not known to the model")
	ErrShape        = errors.New("nn: parameter shapes are inconsistent")
	ErrModelMissing = errors.New("nn: model file not found")
)

// Output is one forward pass. EnergyPerAtom is the mean atomic energy;
// callers that need the total multiply by the node count.
type Output struct {
	EnergyPerAtom float64
	Forces        [][3]float64
	// Stress in Voigt order xx, yy, zz, yz, xz, xy (eV/Å³).
	Stress [6]float64
}

type Model interface {
	Forward(g *graph.Graph) (Output, error)
}
