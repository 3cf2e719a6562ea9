package atoms

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var ErrSingularCell = errors.New("atoms: cell matrix is singular")

// Cell stores the three lattice vectors as rows.
type Cell [3][3]float64

func Orthorhombic(a, b, c float64) Cell {
	return Cell{{a, 0, 0}, {0, b, 0}, {0, 0, c}}
}

func (c Cell) dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		c[0][0], c[0][1], c[0][2],
		c[1][0], c[1][1], c[1][2],
		c[2][0], c[2][1], c[2][2],
	})
}

func (c Cell) IsZero() bool {
	return c == Cell{}
}

func (c Cell) Volume() float64 {
	if c.IsZero() {
		return 0
	}
	return math.Abs(mat.Det(c.dense()))
}

// Lengths returns the norms of the lattice vectors.
func (c Cell) Lengths() [3]float64 {
	var l [3]float64
	for i := 0; i < 3; i++ {
		l[i] = norm(c[i])
	}
	return l
}

// Heights returns the distances between opposite faces of the cell, which
// bound how many periodic images a cutoff sphere can reach. Complete the
// cell first when a non-periodic vector may be zero.
func (c Cell) Heights() [3]float64 {
	var h [3]float64
	vol := c.Volume()
	if vol == 0 {
		return h
	}
	for i := 0; i < 3; i++ {
		area := norm(cross(c[(i+1)%3], c[(i+2)%3]))
		if area > 0 {
			h[i] = vol / area
		}
	}
	return h
}

// Complete fills zero lattice vectors on non-periodic axes with unit
// vectors normal to the rest of the cell, as slabs and wires are commonly
// stored with no vacuum vector. Periodic axes are never changed.
func (c Cell) Complete(pbc [3]bool) Cell {
	for pass := 0; pass < 2; pass++ {
		for i := 0; i < 3; i++ {
			if pbc[i] || norm(c[i]) > 0 {
				continue
			}
			u, v := c[(i+1)%3], c[(i+2)%3]
			n := cross(u, v)
			if norm(n) == 0 {
				if pass == 0 {
					// wait until the other missing axis is filled
					continue
				}
				ref := u
				if norm(ref) == 0 {
					ref = v
				}
				if norm(ref) == 0 {
					continue
				}
				n = cross(ref, Vec3{1, 0, 0})
				if norm(n) < 1e-8*norm(ref) {
					n = cross(ref, Vec3{0, 1, 0})
				}
			}
			l := norm(n)
			c[i] = Vec3{n[0] / l, n[1] / l, n[2] / l}
		}
	}
	return c
}

func (c Cell) inverse() (*mat.Dense, error) {
	var inv mat.Dense
	if err := inv.Inverse(c.dense()); err != nil {
		return nil, ErrSingularCell
	}
	return &inv, nil
}

// FracCoords converts Cartesian positions to fractional coordinates.
func (c Cell) FracCoords(pos []Vec3) ([]Vec3, error) {
	inv, err := c.inverse()
	if err != nil {
		return nil, err
	}
	out := make([]Vec3, len(pos))
	for i, p := range pos {
		for k := 0; k < 3; k++ {
			out[i][k] = p[0]*inv.At(0, k) + p[1]*inv.At(1, k) + p[2]*inv.At(2, k)
		}
	}
	return out, nil
}

func (c Cell) CartCoords(frac []Vec3) []Vec3 {
	out := make([]Vec3, len(frac))
	for i, f := range frac {
		out[i] = c.Apply(f)
	}
	return out
}

// Apply maps a fractional (or integer image) vector to Cartesian space.
func (c Cell) Apply(f Vec3) Vec3 {
	var p Vec3
	for k := 0; k < 3; k++ {
		p[k] = f[0]*c[0][k] + f[1]*c[1][k] + f[2]*c[2][k]
	}
	return p
}

// ScaleAxes multiplies each lattice vector by its own factor.
func (c Cell) ScaleAxes(s [3]float64) Cell {
	var out Cell
	for i := 0; i < 3; i++ {
		for k := 0; k < 3; k++ {
			out[i][k] = c[i][k] * s[i]
		}
	}
	return out
}

func cross(a, b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func norm(v Vec3) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}
