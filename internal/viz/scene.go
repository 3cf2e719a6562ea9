package viz

import (
	"math"
	"sort"

	"github.com/san-kum/mlmd/internal/atoms"
)

// Camera rotates the scene about its center and projects orthographically
// onto the canvas.
type Camera struct {
	RotX, RotY, RotZ float64
	Zoom             float64
}

func NewCamera() *Camera {
	return &Camera{RotX: 0.35, RotY: -0.5, Zoom: 1.0}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// Rotate applies the X, Y then Z rotations to p.
func (c *Camera) Rotate(p atoms.Vec3) atoms.Vec3 {
	x, y, z := p[0], p[1], p[2]
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	y, z = y*cx-z*sx, y*sx+z*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	x, z = x*cy+z*sy, -x*sy+z*cy
	cz, sz := math.Cos(c.RotZ), math.Sin(c.RotZ)
	x, y = x*cz-y*sz, x*sz+y*cz
	return atoms.Vec3{x, y, z}
}

// Scene is a snapshot of what the live view draws.
type Scene struct {
	Positions []atoms.Vec3
	Species   []int
	Cell      atoms.Cell
}

// NewScene copies what it needs from a so the caller may keep mutating it.
func NewScene(a *atoms.Atoms) Scene {
	s := Scene{
		Positions: append([]atoms.Vec3(nil), a.Positions...),
		Species:   make([]int, a.Len()),
		Cell:      a.Cell,
	}
	seen := map[int]int{}
	for i, z := range a.Numbers {
		k, ok := seen[z]
		if !ok {
			k = len(seen)
			seen[z] = k
		}
		s.Species[i] = k
	}
	return s
}

func (s Scene) center() atoms.Vec3 {
	if !s.Cell.IsZero() {
		return s.Cell.Apply(atoms.Vec3{0.5, 0.5, 0.5})
	}
	var c atoms.Vec3
	for _, p := range s.Positions {
		for k := 0; k < 3; k++ {
			c[k] += p[k]
		}
	}
	if n := float64(len(s.Positions)); n > 0 {
		for k := range c {
			c[k] /= n
		}
	}
	return c
}

func (s Scene) extent(center atoms.Vec3) float64 {
	var r float64
	grow := func(p atoms.Vec3) {
		d := math.Sqrt((p[0]-center[0])*(p[0]-center[0]) + (p[1]-center[1])*(p[1]-center[1]) + (p[2]-center[2])*(p[2]-center[2]))
		r = math.Max(r, d)
	}
	for _, p := range s.Positions {
		grow(p)
	}
	for _, corner := range s.corners() {
		grow(corner)
	}
	if r == 0 {
		r = 1
	}
	return r
}

func (s Scene) corners() []atoms.Vec3 {
	if s.Cell.IsZero() {
		return nil
	}
	out := make([]atoms.Vec3, 8)
	for i := range out {
		out[i] = s.Cell.Apply(atoms.Vec3{float64(i & 1), float64(i >> 1 & 1), float64(i >> 2 & 1)})
	}
	return out
}

var cellEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7},
	{0, 2}, {1, 3}, {4, 6}, {5, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// Draw renders the cell outline and atoms, far atoms first.
func (s Scene) Draw(c *Canvas, cam *Camera) {
	c.Clear()
	if len(s.Positions) == 0 {
		return
	}
	center := s.center()
	w, h := c.DotWidth(), c.DotHeight()
	scale := cam.Zoom * 0.45 * float64(min(w, h)) / s.extent(center)

	project := func(p atoms.Vec3) (int, int, float64) {
		r := cam.Rotate(atoms.Vec3{p[0] - center[0], p[1] - center[1], p[2] - center[2]})
		return int(r[0]*scale) + w/2, h/2 - int(r[1]*scale), r[2]
	}

	corners := s.corners()
	for _, e := range cellEdges {
		if corners == nil {
			break
		}
		x0, y0, _ := project(corners[e[0]])
		x1, y1, _ := project(corners[e[1]])
		c.DrawLine(x0, y0, x1, y1)
	}

	type dot struct {
		x, y    int
		depth   float64
		species int
	}
	dots := make([]dot, len(s.Positions))
	for i, p := range s.Positions {
		x, y, d := project(p)
		dots[i] = dot{x, y, d, s.Species[i]}
	}
	sort.Slice(dots, func(i, j int) bool { return dots[i].depth < dots[j].depth })
	for _, d := range dots {
		c.Blob(d.x, d.y, 1, d.species)
	}
}
