package scheme

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const agatScheme = `{
    "species": ["Ni", "Co", "Fe", "Pd", "Pt"],
    "path_file": "paths.log",
    "build_properties": {
        "energy": true, "forces": true, "cell": true, "cart_coords": true,
        "frac_coords": true, "constraints": true, "stress": true,
        "distance": true, "direction": true, "path": false
    },
    "dataset_path": "dataset",
    "mode_of_NN": "ase_dist",
    "cutoff": 5.0,
    "load_from_binary": false,
    "num_of_cores": 2
}`

func writeScheme(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad(t *testing.T) {
	s, err := Load(writeScheme(t, agatScheme))
	require.NoError(t, err)

	assert.Equal(t, []string{"Ni", "Co", "Fe", "Pd", "Pt"}, s.Species)
	assert.Equal(t, 5.0, s.Cutoff)
	assert.Equal(t, ModeDistance, s.Mode())
	assert.True(t, s.BuildProperties.Energy)
	assert.True(t, s.BuildProperties.Direction)
	assert.Equal(t, 3, s.SpeciesIndex()["Pd"])
}

func TestLoadMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemeNotFound))

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, filepath.Join(dir, FileName), ce.Path)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"species": [`},
		{"no species", `{"species": [], "cutoff": 5}`},
		{"zero cutoff", `{"species": ["Ni"], "cutoff": 0}`},
		{"unknown mode", `{"species": ["Ni"], "cutoff": 5, "mode_of_NN": "voronoi"}`},
		{"duplicate species", `{"species": ["Ni", "Ni"], "cutoff": 5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeScheme(t, tt.body))
			var ce *ConfigError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestTopologyOnly(t *testing.T) {
	p := Default([]string{"Ni"}).BuildProperties
	p.Path = true

	p.TopologyOnly()

	assert.Equal(t, BuildProperties{
		Constraints: true,
		Distance:    true,
		Direction:   true,
	}, p)
}

func TestSaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "model")
	s := Default([]string{"Cu", "Au"})
	s.Cutoff = 4.5

	require.NoError(t, Save(dir, s))
	got, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, s, got)
}
