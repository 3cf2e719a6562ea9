package atoms

import (
	"fmt"
	"math"
)

// KB is the Boltzmann constant in eV/K.
const KB = 8.617333262e-5

type Vec3 = [3]float64

type Atoms struct {
	Symbols    []string
	Numbers    []int
	Positions  []Vec3
	Velocities []Vec3
	Masses     []float64
	Cell       Cell
	PBC        [3]bool
	Fixed      []bool
	Source     string
}

// New builds a configuration from element symbols and Cartesian positions.
// Masses and atomic numbers come from the element table.
func New(symbols []string, positions []Vec3, cell Cell, pbc [3]bool) (*Atoms, error) {
	if len(symbols) != len(positions) {
		return nil, fmt.Errorf("atoms: %d symbols for %d positions", len(symbols), len(positions))
	}
	n := len(symbols)
	a := &Atoms{
		Symbols:    make([]string, n),
		Numbers:    make([]int, n),
		Positions:  make([]Vec3, n),
		Velocities: make([]Vec3, n),
		Masses:     make([]float64, n),
		Cell:       cell,
		PBC:        pbc,
		Fixed:      make([]bool, n),
	}
	for i, s := range symbols {
		el, err := Lookup(s)
		if err != nil {
			return nil, fmt.Errorf("atom %d: %w", i, err)
		}
		a.Symbols[i] = el.Symbol
		a.Numbers[i] = el.Number
		a.Masses[i] = el.Mass
	}
	copy(a.Positions, positions)
	return a, nil
}

func (a *Atoms) Len() int { return len(a.Positions) }

func (a *Atoms) Clone() *Atoms {
	c := &Atoms{
		Symbols:    append([]string(nil), a.Symbols...),
		Numbers:    append([]int(nil), a.Numbers...),
		Positions:  append([]Vec3(nil), a.Positions...),
		Velocities: append([]Vec3(nil), a.Velocities...),
		Masses:     append([]float64(nil), a.Masses...),
		Cell:       a.Cell,
		PBC:        a.PBC,
		Fixed:      append([]bool(nil), a.Fixed...),
		Source:     a.Source,
	}
	return c
}

// Periodic reports whether any axis is periodic.
func (a *Atoms) Periodic() bool {
	return a.PBC[0] || a.PBC[1] || a.PBC[2]
}

func (a *Atoms) IsFixed(i int) bool {
	return i < len(a.Fixed) && a.Fixed[i]
}

// Free returns the number of atoms that are not held fixed.
func (a *Atoms) Free() int {
	n := 0
	for i := range a.Positions {
		if !a.IsFixed(i) {
			n++
		}
	}
	return n
}

func (a *Atoms) KineticEnergy() float64 {
	ke := 0.0
	for i, v := range a.Velocities {
		ke += 0.5 * a.Masses[i] * (v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	}
	return ke
}

// Temperature is the instantaneous kinetic temperature over 3 degrees of
// freedom per free atom.
func (a *Atoms) Temperature() float64 {
	dof := 3 * a.Free()
	if dof == 0 {
		return 0
	}
	return 2 * a.KineticEnergy() / (float64(dof) * KB)
}

// KineticStress is the ideal-gas contribution to the stress in Voigt order.
func (a *Atoms) KineticStress() [6]float64 {
	var s [6]float64
	vol := a.Cell.Volume()
	if vol == 0 {
		return s
	}
	for i, v := range a.Velocities {
		m := a.Masses[i]
		s[0] -= m * v[0] * v[0]
		s[1] -= m * v[1] * v[1]
		s[2] -= m * v[2] * v[2]
		s[3] -= m * v[1] * v[2]
		s[4] -= m * v[0] * v[2]
		s[5] -= m * v[0] * v[1]
	}
	for k := range s {
		s[k] /= vol
	}
	return s
}

// Momentum is the total linear momentum.
func (a *Atoms) Momentum() Vec3 {
	var p Vec3
	for i, v := range a.Velocities {
		for k := 0; k < 3; k++ {
			p[k] += a.Masses[i] * v[k]
		}
	}
	return p
}

// SetCell replaces the cell. With scale set, fractional coordinates are kept.
func (a *Atoms) SetCell(cell Cell, scale bool) error {
	if !scale {
		a.Cell = cell
		return nil
	}
	frac, err := a.Cell.Complete(a.PBC).FracCoords(a.Positions)
	if err != nil {
		return err
	}
	a.Cell = cell
	a.Positions = cell.Complete(a.PBC).CartCoords(frac)
	return nil
}

// Wrap maps positions back into the cell along periodic axes.
func (a *Atoms) Wrap() error {
	cell := a.Cell.Complete(a.PBC)
	frac, err := cell.FracCoords(a.Positions)
	if err != nil {
		return err
	}
	for i := range frac {
		for k := 0; k < 3; k++ {
			if a.PBC[k] {
				frac[i][k] -= math.Floor(frac[i][k])
			}
		}
	}
	a.Positions = cell.CartCoords(frac)
	return nil
}

func (a *Atoms) Validate() error {
	n := len(a.Positions)
	if len(a.Symbols) != n || len(a.Numbers) != n || len(a.Masses) != n {
		return fmt.Errorf("atoms: inconsistent lengths (positions %d, symbols %d, numbers %d, masses %d)",
			n, len(a.Symbols), len(a.Numbers), len(a.Masses))
	}
	if len(a.Velocities) != 0 && len(a.Velocities) != n {
		return fmt.Errorf("atoms: %d velocities for %d atoms", len(a.Velocities), n)
	}
	return nil
}

// Repeat tiles the configuration reps[k] times along each lattice vector.
func (a *Atoms) Repeat(reps [3]int) *Atoms {
	n := a.Len()
	total := n * reps[0] * reps[1] * reps[2]
	out := &Atoms{
		Symbols:    make([]string, 0, total),
		Numbers:    make([]int, 0, total),
		Positions:  make([]Vec3, 0, total),
		Velocities: make([]Vec3, 0, total),
		Masses:     make([]float64, 0, total),
		Fixed:      make([]bool, 0, total),
		PBC:        a.PBC,
		Source:     a.Source,
	}
	for i := 0; i < reps[0]; i++ {
		for j := 0; j < reps[1]; j++ {
			for k := 0; k < reps[2]; k++ {
				shift := a.Cell.Apply(Vec3{float64(i), float64(j), float64(k)})
				for at := 0; at < n; at++ {
					p := a.Positions[at]
					out.Symbols = append(out.Symbols, a.Symbols[at])
					out.Numbers = append(out.Numbers, a.Numbers[at])
					out.Masses = append(out.Masses, a.Masses[at])
					out.Positions = append(out.Positions, Vec3{p[0] + shift[0], p[1] + shift[1], p[2] + shift[2]})
					var v Vec3
					if at < len(a.Velocities) {
						v = a.Velocities[at]
					}
					out.Velocities = append(out.Velocities, v)
					out.Fixed = append(out.Fixed, a.IsFixed(at))
				}
			}
		}
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out.Cell[r][c] = a.Cell[r][c] * float64(reps[r])
		}
	}
	return out
}
