package calc

import (
	"math"
	"sort"

	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/graph"
	"github.com/san-kum/mlmd/internal/scheme"
)

// LennardJones is a single-species-parameter pair potential, shifted to
// zero at the cutoff. It shares the neighbour search with Potential and is
// used for smoke runs and as a reference in tests.
type LennardJones struct {
	Epsilon float64
	Sigma   float64
	Cutoff  float64

	results Results
}

// NewLennardJones returns argon-like parameters when eps or sigma is zero.
func NewLennardJones(eps, sigma, cutoff float64) *LennardJones {
	if eps == 0 {
		eps = 0.0104
	}
	if sigma == 0 {
		sigma = 3.4
	}
	if cutoff == 0 {
		cutoff = 2.5 * sigma
	}
	return &LennardJones{Epsilon: eps, Sigma: sigma, Cutoff: cutoff}
}

func (lj *LennardJones) pair(r float64) (v, dv float64) {
	sr6 := math.Pow(lj.Sigma/r, 6)
	src6 := math.Pow(lj.Sigma/lj.Cutoff, 6)
	v = 4*lj.Epsilon*(sr6*sr6-sr6) - 4*lj.Epsilon*(src6*src6-src6)
	dv = -24 * lj.Epsilon * (2*sr6*sr6 - sr6) / r
	return v, dv
}

func (lj *LennardJones) Results() Results { return lj.results }

func (lj *LennardJones) Calculate(a *atoms.Atoms, properties []Property, changes []Change) (Results, error) {
	if err := checkProperties(properties); err != nil {
		return Results{}, err
	}
	if a == nil {
		return lj.results.Clone(), nil
	}

	s := scheme.Default(uniqueSymbols(a.Symbols))
	s.Cutoff = lj.Cutoff
	s.BuildProperties.TopologyOnly()
	g, err := graph.NewBuilder(s).Build(a)
	if err != nil {
		return Results{}, &InferenceError{Atoms: a.Len(), Stage: "graph build", Wrapped: err}
	}

	r := Results{Forces: make([][3]float64, a.Len())}
	var virial [3][3]float64
	for e := range g.Src {
		v := g.Vectors[e]
		d := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
		u, du := lj.pair(d)
		// each pair appears once per direction
		r.Energy += 0.5 * u
		i, j := g.Src[e], g.Dst[e]
		for x := 0; x < 3; x++ {
			gv := 0.5 * du * v[x] / d
			r.Forces[i][x] += gv
			r.Forces[j][x] -= gv
			for y := 0; y < 3; y++ {
				virial[x][y] += gv * v[y]
			}
		}
	}
	if g.Volume > 0 {
		vol := g.Volume
		r.Stress = Voigt{
			virial[0][0] / vol, virial[1][1] / vol, virial[2][2] / vol,
			virial[1][2] / vol, virial[0][2] / vol, virial[0][1] / vol,
		}
	}

	lj.results = r
	return r.Clone(), nil
}

func uniqueSymbols(symbols []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range symbols {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
