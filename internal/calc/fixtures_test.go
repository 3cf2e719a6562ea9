package calc

import (
	"path/filepath"

	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/graph"
	"github.com/san-kum/mlmd/internal/nn"
	"github.com/san-kum/mlmd/internal/scheme"
)

// writeFixtures lays out a scheme directory whose build properties are all
// set, and a model directory holding a seeded Ni/Co potential.
func writeFixtures(root string) (modelDir, schemeDir string, err error) {
	modelDir = filepath.Join(root, "model")
	schemeDir = filepath.Join(root, "scheme")

	s := scheme.Default([]string{"Ni", "Co"})
	s.Cutoff = 4.0
	s.BuildProperties.Path = true
	if err := scheme.Save(schemeDir, s); err != nil {
		return "", "", err
	}

	cfg := nn.DefaultInitConfig([]string{"Ni", "Co"})
	cfg.Cutoff = 4.0
	cfg.Scale = 0.2
	m, err := nn.Init(cfg)
	if err != nil {
		return "", "", err
	}
	if err := nn.Save(modelDir, m, false); err != nil {
		return "", "", err
	}
	return modelDir, schemeDir, nil
}

// fataler is satisfied by both *testing.T and GinkgoT().
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

func nickelCobalt(t fataler) *atoms.Atoms {
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

// constantModel predicts the same atomic energy for every node.
type constantModel struct {
	perAtom float64
}

func (m constantModel) Forward(g *graph.Graph) (nn.Output, error) {
	return nn.Output{
		EnergyPerAtom: m.perAtom,
		Forces:        make([][3]float64, g.NumNodes),
		Stress:        [6]float64{1, 2, 3, 4, 5, 6},
	}, nil
}
