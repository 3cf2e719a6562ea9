package nn

import (
	"fmt"
	"math"

	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/graph"
)

// Params is the serialized form of a Potential. Shapes, with S species,
// D embedding width, K radial basis functions and H hidden units:
//
//	Embedding  S x D
//	Neighbor   S x K
//	Hidden     H x (D+K)
//	HiddenBias H
//	Output     H
//	Shift      S
type Params struct {
	Species    []string    `json:"species"`
	Cutoff     float64     `json:"cutoff"`
	NumBasis   int         `json:"num_basis"`
	BasisWidth float64     `json:"basis_width"`
	Embedding  [][]float64 `json:"embedding"`
	Neighbor   [][]float64 `json:"neighbor"`
	Hidden     [][]float64 `json:"hidden"`
	HiddenBias []float64   `json:"hidden_bias"`
	Output     []float64   `json:"output"`
	OutputBias float64     `json:"output_bias"`
	Shift      []float64   `json:"shift"`
}

func (p *Params) Validate() error {
	s := len(p.Species)
	if s == 0 {
		return fmt.Errorf("%w: no species", ErrShape)
	}
	if p.Cutoff <= 0 || p.NumBasis < 1 || p.BasisWidth <= 0 {
		return fmt.Errorf("%w: cutoff %g, num_basis %d, basis_width %g", ErrShape, p.Cutoff, p.NumBasis, p.BasisWidth)
	}
	if len(p.Embedding) != s || len(p.Neighbor) != s || len(p.Shift) != s {
		return fmt.Errorf("%w: per-species tables must have %d rows", ErrShape, s)
	}
	d := len(p.Embedding[0])
	for i := 0; i < s; i++ {
		if len(p.Embedding[i]) != d {
			return fmt.Errorf("%w: embedding row %d", ErrShape, i)
		}
		if len(p.Neighbor[i]) != p.NumBasis {
			return fmt.Errorf("%w: neighbor row %d has %d, want %d", ErrShape, i, len(p.Neighbor[i]), p.NumBasis)
		}
	}
	h := len(p.Hidden)
	if h == 0 || len(p.HiddenBias) != h || len(p.Output) != h {
		return fmt.Errorf("%w: hidden layer", ErrShape)
	}
	for i, row := range p.Hidden {
		if len(row) != d+p.NumBasis {
			return fmt.Errorf("%w: hidden row %d has %d, want %d", ErrShape, i, len(row), d+p.NumBasis)
		}
	}
	return nil
}

type Potential struct {
	params  Params
	centers []float64
	// byNumber maps atomic number to the row in the per-species tables.
	byNumber map[int]int
}

// NewPotential validates params and prepares the lookup tables.
func NewPotential(p Params) (*Potential, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	pot := &Potential{
		params:   p,
		centers:  make([]float64, p.NumBasis),
		byNumber: make(map[int]int, len(p.Species)),
	}
	for k := range pot.centers {
		if p.NumBasis > 1 {
			pot.centers[k] = p.Cutoff * float64(k) / float64(p.NumBasis-1)
		}
	}
	for i, sym := range p.Species {
		el, err := atoms.Lookup(sym)
		if err != nil {
			return nil, err
		}
		pot.byNumber[el.Number] = i
	}
	return pot, nil
}

func (p *Potential) Params() Params  { return p.params }
func (p *Potential) Cutoff() float64 { return p.params.Cutoff }

// radial fills phi and dphi with the cut-off basis and its r-derivative.
func (p *Potential) radial(r float64, phi, dphi []float64) {
	rc := p.params.Cutoff
	fc := 0.5 * (math.Cos(math.Pi*r/rc) + 1)
	dfc := -0.5 * math.Pi / rc * math.Sin(math.Pi*r/rc)
	w2 := p.params.BasisWidth * p.params.BasisWidth
	for k, mu := range p.centers {
		x := r - mu
		g := math.Exp(-x * x / (2 * w2))
		phi[k] = g * fc
		dphi[k] = g*(-x/w2)*fc + g*dfc
	}
}

type workerAcc struct {
	energy float64
	forces [][3]float64
	virial [3][3]float64
}

func (p *Potential) Forward(g *graph.Graph) (Output, error) {
	backend := g.Backend()
	if backend == nil {
		return Output{}, ErrNotPlaced
	}
	n := g.NumNodes
	if n == 0 {
		return Output{}, graph.ErrEmpty
	}

	rows := make([]int, n)
	for i, z := range g.Numbers {
		row, ok := p.byNumber[z]
		if !ok {
			return Output{}, fmt.Errorf("%w: atomic number %d", ErrSpecies, z)
		}
		rows[i] = row
	}

	// group edges by source so each atom's neighbourhood is one slice
	start := make([]int, n+1)
	for _, s := range g.Src {
		start[s+1]++
	}
	for i := 0; i < n; i++ {
		start[i+1] += start[i]
	}
	order := make([]int, len(g.Src))
	fill := append([]int(nil), start[:n]...)
	for e, s := range g.Src {
		order[fill[s]] = e
		fill[s]++
	}

	acc := make([]workerAcc, backend.Workers())
	for w := range acc {
		acc[w].forces = make([][3]float64, n)
	}

	pr := &p.params
	d := len(pr.Embedding[0])
	k := pr.NumBasis
	h := len(pr.Hidden)

	backend.ParallelFor(n, func(worker, lo, hi int) {
		a := &acc[worker]
		phi := make([]float64, k)
		dphi := make([]float64, k)
		desc := make([]float64, k)
		grad := make([]float64, k)
		act := make([]float64, h)

		for i := lo; i < hi; i++ {
			zi := rows[i]
			edges := order[start[i]:start[i+1]]

			for c := range desc {
				desc[c] = 0
			}
			for _, e := range edges {
				r := math.Sqrt(dot(g.Vectors[e], g.Vectors[e]))
				if r >= pr.Cutoff {
					continue
				}
				p.radial(r, phi, dphi)
				cj := pr.Neighbor[rows[g.Dst[e]]]
				for c := 0; c < k; c++ {
					desc[c] += cj[c] * phi[c]
				}
			}

			energy := pr.OutputBias + pr.Shift[zi]
			emb := pr.Embedding[zi]
			for u := 0; u < h; u++ {
				w := pr.Hidden[u]
				s := pr.HiddenBias[u]
				for c := 0; c < d; c++ {
					s += w[c] * emb[c]
				}
				for c := 0; c < k; c++ {
					s += w[d+c] * desc[c]
				}
				act[u] = math.Tanh(s)
				energy += pr.Output[u] * act[u]
			}
			a.energy += energy

			// dE_i/d desc
			for c := 0; c < k; c++ {
				grad[c] = 0
			}
			for u := 0; u < h; u++ {
				back := pr.Output[u] * (1 - act[u]*act[u])
				w := pr.Hidden[u]
				for c := 0; c < k; c++ {
					grad[c] += back * w[d+c]
				}
			}

			for _, e := range edges {
				v := g.Vectors[e]
				r := math.Sqrt(dot(v, v))
				if r >= pr.Cutoff {
					continue
				}
				p.radial(r, phi, dphi)
				cj := pr.Neighbor[rows[g.Dst[e]]]
				dEdr := 0.0
				for c := 0; c < k; c++ {
					dEdr += grad[c] * cj[c] * dphi[c]
				}
				// dE/dv for v = r_j + shift - r_i
				gv := [3]float64{dEdr * v[0] / r, dEdr * v[1] / r, dEdr * v[2] / r}
				j := g.Dst[e]
				for x := 0; x < 3; x++ {
					a.forces[i][x] += gv[x]
					a.forces[j][x] -= gv[x]
					for y := 0; y < 3; y++ {
						a.virial[x][y] += gv[x] * v[y]
					}
				}
			}
		}
	})

	out := Output{Forces: make([][3]float64, n)}
	var energy float64
	var virial [3][3]float64
	for w := range acc {
		energy += acc[w].energy
		for i := 0; i < n; i++ {
			for x := 0; x < 3; x++ {
				out.Forces[i][x] += acc[w].forces[i][x]
			}
		}
		for x := 0; x < 3; x++ {
			for y := 0; y < 3; y++ {
				virial[x][y] += acc[w].virial[x][y]
			}
		}
	}

	out.EnergyPerAtom = energy / float64(n)
	if g.Volume > 0 {
		v := g.Volume
		out.Stress = [6]float64{
			virial[0][0] / v,
			virial[1][1] / v,
			virial[2][2] / v,
			0.5 * (virial[1][2] + virial[2][1]) / v,
			0.5 * (virial[0][2] + virial[2][0]) / v,
			0.5 * (virial[0][1] + virial[1][0]) / v,
		}
	}
	return out, nil
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}
