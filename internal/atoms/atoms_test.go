package atoms

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellVolume(t *testing.T) {
	tests := []struct {
		name string
		cell Cell
		want float64
	}{
		{"cubic", Orthorhombic(2, 2, 2), 8},
		{"orthorhombic", Orthorhombic(10.42002806, 9.024009, 12.76187592), 10.42002806 * 9.024009 * 12.76187592},
		{"triclinic", Cell{{3, 0, 0}, {1, 3, 0}, {0, 1, 3}}, 27},
		{"empty", Cell{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.cell.Volume(), 1e-9)
		})
	}
}

func TestCellHeights(t *testing.T) {
	c := Cell{{4, 0, 0}, {2, 4, 0}, {0, 0, 5}}
	h := c.Heights()

	// b x c = (20, -10, 0), volume 80
	assert.InDelta(t, 80/math.Sqrt(500), h[0], 1e-12)
	assert.InDelta(t, 4, h[1], 1e-12)
	assert.InDelta(t, 5, h[2], 1e-12)
}

func TestFracCoords(t *testing.T) {
	c := Cell{{4, 0, 0}, {2, 4, 0}, {0, 0, 5}}
	pos := []Vec3{{3, 2, 2.5}, {0, 0, 0}}

	frac, err := c.FracCoords(pos)
	require.NoError(t, err)

	back := c.CartCoords(frac)
	for i := range pos {
		for k := 0; k < 3; k++ {
			assert.InDelta(t, pos[i][k], back[i][k], 1e-12)
		}
	}
	assert.InDelta(t, 0.5, frac[0][1], 1e-12)
	assert.InDelta(t, 0.5, frac[0][2], 1e-12)
}

func TestFracCoordsSingular(t *testing.T) {
	_, err := Cell{}.FracCoords([]Vec3{{1, 1, 1}})
	assert.ErrorIs(t, err, ErrSingularCell)
}

func TestNewUsesElementTable(t *testing.T) {
	a, err := New([]string{"ni", "PT"}, []Vec3{{0, 0, 0}, {1, 1, 1}}, Orthorhombic(5, 5, 5), [3]bool{true, true, true})
	require.NoError(t, err)

	assert.Equal(t, []string{"Ni", "Pt"}, a.Symbols)
	assert.Equal(t, []int{28, 78}, a.Numbers)
	assert.InDelta(t, 58.693, a.Masses[0], 1e-9)
	assert.Len(t, a.Velocities, 2)
}

func TestNewRejectsUnknownElement(t *testing.T) {
	_, err := New([]string{"Xx"}, []Vec3{{0, 0, 0}}, Cell{}, [3]bool{})
	assert.Error(t, err)
}

func TestTemperature(t *testing.T) {
	a, err := New([]string{"Ar", "Ar"}, []Vec3{{0, 0, 0}, {3, 0, 0}}, Cell{}, [3]bool{})
	require.NoError(t, err)
	a.Velocities[0] = Vec3{0.01, 0, 0}
	a.Velocities[1] = Vec3{-0.01, 0, 0}

	ke := a.KineticEnergy()
	assert.InDelta(t, 39.948*0.01*0.01, ke, 1e-12)
	assert.InDelta(t, 2*ke/(6*KB), a.Temperature(), 1e-9)

	a.Fixed[1] = true
	assert.InDelta(t, 2*ke/(3*KB), a.Temperature(), 1e-9)
}

func TestSetCellScalesPositions(t *testing.T) {
	a, err := New([]string{"Cu"}, []Vec3{{1, 2, 3}}, Orthorhombic(4, 4, 6), [3]bool{true, true, true})
	require.NoError(t, err)

	require.NoError(t, a.SetCell(a.Cell.ScaleAxes([3]float64{2, 1, 0.5}), true))

	assert.InDelta(t, 2, a.Positions[0][0], 1e-12)
	assert.InDelta(t, 2, a.Positions[0][1], 1e-12)
	assert.InDelta(t, 1.5, a.Positions[0][2], 1e-12)
}

func TestCellComplete(t *testing.T) {
	tests := []struct {
		name string
		cell Cell
		pbc  [3]bool
		want Cell
	}{
		{"slab", Cell{{3, 0, 0}, {0, 3, 0}, {}}, [3]bool{true, true, false}, Cell{{3, 0, 0}, {0, 3, 0}, {0, 0, 1}}},
		{"wire", Cell{{3, 0, 0}, {}, {}}, [3]bool{true, false, false}, Cell{{3, 0, 0}, {0, 0, 1}, {0, -1, 0}}},
		{"bulk unchanged", Orthorhombic(2, 3, 4), [3]bool{true, true, true}, Orthorhombic(2, 3, 4)},
		{"periodic zero axis kept", Cell{{3, 0, 0}, {0, 3, 0}, {}}, [3]bool{true, true, true}, Cell{{3, 0, 0}, {0, 3, 0}, {}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cell.Complete(tt.pbc)
			for i := 0; i < 3; i++ {
				for k := 0; k < 3; k++ {
					assert.InDelta(t, tt.want[i][k], got[i][k], 1e-12)
				}
			}
		})
	}
}

func TestSlabHeights(t *testing.T) {
	c := Cell{{4, 0, 0}, {2, 4, 0}, {}}
	assert.Equal(t, [3]float64{}, c.Heights())

	h := c.Complete([3]bool{true, true, false}).Heights()
	assert.InDelta(t, 16/math.Sqrt(20), h[0], 1e-12)
	assert.InDelta(t, 4, h[1], 1e-12)
	assert.InDelta(t, 1, h[2], 1e-12)
}

func TestSetCellSlab(t *testing.T) {
	a, err := New([]string{"Cu"}, []Vec3{{1, 2, 7}}, Cell{{4, 0, 0}, {0, 4, 0}, {}}, [3]bool{true, true, false})
	require.NoError(t, err)

	require.NoError(t, a.SetCell(a.Cell.ScaleAxes([3]float64{2, 0.5, 1}), true))

	assert.InDelta(t, 2, a.Positions[0][0], 1e-12)
	assert.InDelta(t, 1, a.Positions[0][1], 1e-12)
	assert.InDelta(t, 7, a.Positions[0][2], 1e-12)
}

func TestWrap(t *testing.T) {
	a, err := New([]string{"Cu"}, []Vec3{{5, -1, 3}}, Orthorhombic(4, 4, 4), [3]bool{true, true, false})
	require.NoError(t, err)

	require.NoError(t, a.Wrap())
	assert.InDelta(t, 1, a.Positions[0][0], 1e-12)
	assert.InDelta(t, 3, a.Positions[0][1], 1e-12)
	assert.InDelta(t, 3, a.Positions[0][2], 1e-12)
}

func TestCloneIsDeep(t *testing.T) {
	a, err := New([]string{"Fe"}, []Vec3{{1, 1, 1}}, Orthorhombic(3, 3, 3), [3]bool{true, true, true})
	require.NoError(t, err)

	c := a.Clone()
	c.Positions[0][0] = 9
	c.Symbols[0] = "Co"

	assert.Equal(t, 1.0, a.Positions[0][0])
	assert.Equal(t, "Fe", a.Symbols[0])
}

func TestReadXYZ(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pair.xyz")
	data := "2\nnickel dimer\nNi 0.0 0.0 0.0\nNi 0.0 0.0 2.2\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	a, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, 2, a.Len())
	assert.Equal(t, []int{28, 28}, a.Numbers)
	assert.InDelta(t, 2.2, a.Positions[1][2], 1e-9)
	assert.Equal(t, path, a.Source)
}

func TestRepeat(t *testing.T) {
	a, err := New([]string{"Ni", "Co"}, []Vec3{{0, 0, 0}, {1, 1, 1}}, Orthorhombic(2, 3, 4), [3]bool{true, true, true})
	require.NoError(t, err)
	a.Fixed[1] = true

	r := a.Repeat([3]int{2, 1, 3})

	assert.Equal(t, 12, r.Len())
	assert.NoError(t, r.Validate())
	assert.InDelta(t, 6*a.Cell.Volume(), r.Cell.Volume(), 1e-9)
	assert.Equal(t, 6, r.Free())
	// last copy sits at image (1, 0, 2)
	assert.Equal(t, Vec3{3, 1, 9}, r.Positions[11])
	assert.Equal(t, "Co", r.Symbols[11])
}
