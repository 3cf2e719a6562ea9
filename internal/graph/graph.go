// Package graph turns an atomic configuration into the directed radius
// graph a graph-network potential consumes.
package graph

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/compute"
)

var (
	ErrUnknownSpecies = errors.New("graph: species not in build scheme")
	ErrEmpty          = errors.New("graph: configuration has no atoms")
)

type Vec3 = atoms.Vec3

// Graph is rebuilt for every evaluation. Src/Dst/Vectors describe directed
// edges; Vectors already include the periodic image shift, so
// Vectors[e] = r[Dst[e]] + shift - r[Src[e]].
type Graph struct {
	NumNodes int
	Species  []int
	Numbers  []int

	Src     []int
	Dst     []int
	Vectors []Vec3
	Volume  float64

	// Edge features, present when the matching build property is set.
	Distances  []float64
	Directions []Vec3

	// Labels and coordinates, present when the matching build property is set.
	Energy     *float64
	Forces     []Vec3
	Stress     *[6]float64
	Cell       *atoms.Cell
	CartCoords []Vec3
	FracCoords []Vec3
	Fixed      []bool
	Path       string

	backend compute.Backend
}

func (g *Graph) NumEdges() int { return len(g.Src) }

// To places the graph on a backend. Placement fails if the backend cannot run.
func (g *Graph) To(b compute.Backend) error {
	if b == nil || !b.Available() {
		name := "<nil>"
		if b != nil {
			name = b.Device().String()
		}
		return &compute.DeviceError{Device: name, Err: compute.ErrDeviceUnavailable}
	}
	g.backend = b
	return nil
}

// Backend returns where the graph was placed, or nil before To.
func (g *Graph) Backend() compute.Backend { return g.backend }

// Degree counts outgoing edges per node.
func (g *Graph) Degree() []int {
	d := make([]int, g.NumNodes)
	for _, s := range g.Src {
		d[s]++
	}
	return d
}

func length(v Vec3) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func (g *Graph) String() string {
	return fmt.Sprintf("graph(nodes=%d, edges=%d)", g.NumNodes, g.NumEdges())
}
