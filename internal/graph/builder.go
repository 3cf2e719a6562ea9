package graph

import (
	"fmt"
	"math"

	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/scheme"
)

// selfTolerance separates an atom from its own zero-shift image.
const selfTolerance = 1e-8

// Reference carries labels for graphs built as training data.
type Reference struct {
	Energy float64
	Forces []Vec3
	Stress [6]float64
}

type Builder struct {
	scheme  *scheme.Scheme
	species map[string]int
}

func NewBuilder(s *scheme.Scheme) *Builder {
	return &Builder{
		scheme:  s,
		species: s.SpeciesIndex(),
	}
}

func (b *Builder) Scheme() *scheme.Scheme { return b.scheme }

// Build makes the evaluation graph for a configuration.
func (b *Builder) Build(a *atoms.Atoms) (*Graph, error) {
	return b.BuildWithReference(a, nil)
}

// BuildWithReference also attaches the labels in ref that the build
// properties ask for. A nil ref attaches no labels.
func (b *Builder) BuildWithReference(a *atoms.Atoms, ref *Reference) (*Graph, error) {
	n := a.Len()
	if n == 0 {
		return nil, ErrEmpty
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	g := &Graph{
		NumNodes: n,
		Species:  make([]int, n),
		Numbers:  append([]int(nil), a.Numbers...),
		Volume:   a.Cell.Volume(),
	}
	for i, sym := range a.Symbols {
		idx, ok := b.species[sym]
		if !ok {
			return nil, fmt.Errorf("%w: %s (atom %d)", ErrUnknownSpecies, sym, i)
		}
		g.Species[i] = idx
	}

	shifts, err := b.imageShifts(a)
	if err != nil {
		return nil, err
	}
	cut, err := b.pairCutoffs(a)
	if err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		ri := a.Positions[i]
		for j := 0; j < n; j++ {
			rj := a.Positions[j]
			rc := cut(i, j)
			for _, s := range shifts {
				d := Vec3{rj[0] + s[0] - ri[0], rj[1] + s[1] - ri[1], rj[2] + s[2] - ri[2]}
				r := length(d)
				if r < selfTolerance || r >= rc {
					continue
				}
				g.Src = append(g.Src, i)
				g.Dst = append(g.Dst, j)
				g.Vectors = append(g.Vectors, d)
			}
		}
	}

	b.attach(g, a, ref)
	return g, nil
}

// imageShifts lists the Cartesian translations to every periodic image a
// cutoff sphere can reach, zero shift first.
func (b *Builder) imageShifts(a *atoms.Atoms) ([]Vec3, error) {
	var reps [3]int
	if a.Periodic() {
		cell := a.Cell.Complete(a.PBC)
		h := cell.Heights()
		for k := 0; k < 3; k++ {
			if a.PBC[k] && h[k] <= 0 {
				return nil, fmt.Errorf("graph: periodic axis %d with degenerate cell", k)
			}
		}
		// atoms that drifted out of the cell widen the search by their spread
		frac, _ := cell.FracCoords(a.Positions)
		for k := 0; k < 3; k++ {
			if !a.PBC[k] {
				continue
			}
			var spread float64
			if len(frac) > 0 {
				lo, hi := frac[0][k], frac[0][k]
				for _, f := range frac[1:] {
					lo, hi = math.Min(lo, f[k]), math.Max(hi, f[k])
				}
				spread = hi - lo
			}
			reps[k] = int(math.Ceil(b.scheme.Cutoff/h[k] + spread))
		}
	}

	shifts := []Vec3{{0, 0, 0}}
	for x := -reps[0]; x <= reps[0]; x++ {
		for y := -reps[1]; y <= reps[1]; y++ {
			for z := -reps[2]; z <= reps[2]; z++ {
				if x == 0 && y == 0 && z == 0 {
					continue
				}
				shifts = append(shifts, a.Cell.Apply(Vec3{float64(x), float64(y), float64(z)}))
			}
		}
	}
	return shifts, nil
}

func (b *Builder) pairCutoffs(a *atoms.Atoms) (func(i, j int) float64, error) {
	cutoff := b.scheme.Cutoff
	if b.scheme.Mode() != scheme.ModeNaturalCutoffs {
		return func(i, j int) float64 { return cutoff }, nil
	}

	mult := b.scheme.NaturalCutoffMult
	if mult == 0 {
		mult = 1
	}
	radii := make([]float64, a.Len())
	for i, sym := range a.Symbols {
		el, err := atoms.Lookup(sym)
		if err != nil {
			return nil, err
		}
		radii[i] = el.CovalentRadius
	}
	return func(i, j int) float64 {
		return math.Min(cutoff, mult*(radii[i]+radii[j]))
	}, nil
}

func (b *Builder) attach(g *Graph, a *atoms.Atoms, ref *Reference) {
	p := b.scheme.BuildProperties

	if p.Distance || p.Direction {
		if p.Distance {
			g.Distances = make([]float64, len(g.Vectors))
		}
		if p.Direction {
			g.Directions = make([]Vec3, len(g.Vectors))
		}
		for e, v := range g.Vectors {
			r := length(v)
			if p.Distance {
				g.Distances[e] = r
			}
			if p.Direction {
				g.Directions[e] = Vec3{v[0] / r, v[1] / r, v[2] / r}
			}
		}
	}

	if p.Cell {
		c := a.Cell
		g.Cell = &c
	}
	if p.CartCoords {
		g.CartCoords = append([]Vec3(nil), a.Positions...)
	}
	if p.FracCoords {
		if frac, err := a.Cell.Complete(a.PBC).FracCoords(a.Positions); err == nil {
			g.FracCoords = frac
		}
	}
	if p.Constraints {
		g.Fixed = make([]bool, a.Len())
		for i := range g.Fixed {
			g.Fixed[i] = a.IsFixed(i)
		}
	}
	if p.Path {
		g.Path = a.Source
	}

	if ref == nil {
		return
	}
	if p.Energy {
		e := ref.Energy
		g.Energy = &e
	}
	if p.Forces {
		g.Forces = append([]Vec3(nil), ref.Forces...)
	}
	if p.Stress {
		s := ref.Stress
		g.Stress = &s
	}
}
