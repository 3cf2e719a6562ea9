package nn

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/compute"
	"github.com/san-kum/mlmd/internal/graph"
	"github.com/san-kum/mlmd/internal/scheme"
)

func testPotential(t *testing.T) *Potential {
	t.Helper()
	cfg := DefaultInitConfig([]string{"Ni", "Co"})
	cfg.Scale = 0.3
	cfg.Cutoff = 4.0
	p, err := Init(cfg)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	return p
}

func testCluster(t *testing.T) *atoms.Atoms {
	t.Helper()
	a, err := atoms.New(
		[]string{"Ni", "Co", "Ni", "Co"},
		[]atoms.Vec3{{0.1, 0.2, 0.0}, {2.1, 0.0, 0.3}, {0.0, 2.3, 0.2}, {1.9, 2.0, 2.2}},
		atoms.Orthorhombic(4.2, 4.4, 4.6),
		[3]bool{true, true, true},
	)
	if err != nil {
		t.Fatalf("atoms: %v", err)
	}
	return a
}

func forward(t *testing.T, p *Potential, a *atoms.Atoms, b compute.Backend) Output {
	t.Helper()
	s := scheme.Default([]string{"Ni", "Co"})
	s.Cutoff = p.Cutoff()
	s.BuildProperties.TopologyOnly()
	g, err := graph.NewBuilder(s).Build(a)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := g.To(b); err != nil {
		t.Fatalf("place: %v", err)
	}
	out, err := p.Forward(g)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	return out
}

func totalEnergy(t *testing.T, p *Potential, a *atoms.Atoms) float64 {
	return forward(t, p, a, compute.NewCPUBackend()).EnergyPerAtom * float64(a.Len())
}

func TestForcesMatchFiniteDifference(t *testing.T) {
	p := testPotential(t)
	a := testCluster(t)
	out := forward(t, p, a, compute.NewCPUBackend())

	const h = 1e-5
	for i := 0; i < a.Len(); i++ {
		for x := 0; x < 3; x++ {
			plus := a.Clone()
			plus.Positions[i][x] += h
			minus := a.Clone()
			minus.Positions[i][x] -= h

			fd := -(totalEnergy(t, p, plus) - totalEnergy(t, p, minus)) / (2 * h)
			if math.Abs(fd-out.Forces[i][x]) > 1e-5*math.Max(1, math.Abs(fd)) {
				t.Errorf("force[%d][%d]: analytic %.8f, finite difference %.8f", i, x, out.Forces[i][x], fd)
			}
		}
	}
}

func TestForcesSumToZero(t *testing.T) {
	out := forward(t, testPotential(t), testCluster(t), compute.NewCPUBackend())

	var sum [3]float64
	for _, f := range out.Forces {
		for x := 0; x < 3; x++ {
			sum[x] += f[x]
		}
	}
	for x := 0; x < 3; x++ {
		if math.Abs(sum[x]) > 1e-10 {
			t.Errorf("net force component %d = %g", x, sum[x])
		}
	}
}

func TestStressMatchesStrainDerivative(t *testing.T) {
	p := testPotential(t)
	a := testCluster(t)
	out := forward(t, p, a, compute.NewCPUBackend())
	vol := a.Cell.Volume()

	const eps = 1e-6
	for axis := 0; axis < 3; axis++ {
		var up, down [3]float64
		for k := range up {
			up[k], down[k] = 1, 1
		}
		up[axis] += eps
		down[axis] -= eps

		plus := a.Clone()
		if err := plus.SetCell(a.Cell.ScaleAxes(up), true); err != nil {
			t.Fatal(err)
		}
		minus := a.Clone()
		if err := minus.SetCell(a.Cell.ScaleAxes(down), true); err != nil {
			t.Fatal(err)
		}

		fd := (totalEnergy(t, p, plus) - totalEnergy(t, p, minus)) / (2 * eps * vol)
		if math.Abs(fd-out.Stress[axis]) > 1e-6*math.Max(1, math.Abs(fd)) {
			t.Errorf("stress[%d]: analytic %.10f, finite difference %.10f", axis, out.Stress[axis], fd)
		}
	}
}

func TestForwardDeterministicAcrossWorkers(t *testing.T) {
	p := testPotential(t)
	a := testCluster(t)

	serial := forward(t, p, a, compute.NewCPUBackendWorkers(1))
	parallel := forward(t, p, a, compute.NewCPUBackendWorkers(4))
	again := forward(t, p, a, compute.NewCPUBackendWorkers(4))

	if math.Abs(serial.EnergyPerAtom-parallel.EnergyPerAtom) > 1e-12 {
		t.Errorf("energy differs: %v vs %v", serial.EnergyPerAtom, parallel.EnergyPerAtom)
	}
	if parallel.EnergyPerAtom != again.EnergyPerAtom || parallel.Stress != again.Stress {
		t.Error("repeated forward passes differ")
	}
	for i := range parallel.Forces {
		if parallel.Forces[i] != again.Forces[i] {
			t.Fatalf("forces on atom %d differ between calls", i)
		}
	}
}

func TestForwardRequiresPlacement(t *testing.T) {
	p := testPotential(t)
	s := scheme.Default([]string{"Ni", "Co"})
	g, err := graph.NewBuilder(s).Build(testCluster(t))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := p.Forward(g); !errors.Is(err, ErrNotPlaced) {
		t.Errorf("expected ErrNotPlaced, got %v", err)
	}
}

func TestForwardUnknownSpecies(t *testing.T) {
	cfg := DefaultInitConfig([]string{"Ni"})
	p, err := Init(cfg)
	if err != nil {
		t.Fatal(err)
	}
	s := scheme.Default([]string{"Ni", "Co"})
	g, err := graph.NewBuilder(s).Build(testCluster(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := g.To(compute.NewCPUBackend()); err != nil {
		t.Fatal(err)
	}

	if _, err := p.Forward(g); !errors.Is(err, ErrSpecies) {
		t.Errorf("expected ErrSpecies, got %v", err)
	}
}

func TestParamsValidate(t *testing.T) {
	good := testPotential(t).Params()

	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"no species", func(p *Params) { p.Species = nil }},
		{"zero cutoff", func(p *Params) { p.Cutoff = 0 }},
		{"short neighbor row", func(p *Params) { p.Neighbor = [][]float64{{1}, {1}} }},
		{"missing shift", func(p *Params) { p.Shift = p.Shift[:1] }},
		{"hidden width", func(p *Params) { p.Hidden = [][]float64{{1, 2}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := good
			tt.mutate(&p)
			if err := p.Validate(); !errors.Is(err, ErrShape) {
				t.Errorf("expected ErrShape, got %v", err)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	p := testPotential(t)

	for _, compress := range []bool{false, true} {
		dir := filepath.Join(t.TempDir(), "model")
		if err := Save(dir, p, compress); err != nil {
			t.Fatalf("save (compress=%v): %v", compress, err)
		}
		loaded, err := Load(dir)
		if err != nil {
			t.Fatalf("load (compress=%v): %v", compress, err)
		}
		a := testCluster(t)
		if totalEnergy(t, p, a) != totalEnergy(t, loaded, a) {
			t.Errorf("compress=%v: loaded model predicts a different energy", compress)
		}
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(t.TempDir()); !errors.Is(err, ErrModelMissing) {
		t.Errorf("expected ErrModelMissing, got %v", err)
	}
}
