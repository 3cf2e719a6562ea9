package automation

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/mlmd/internal/config"
	"github.com/san-kum/mlmd/internal/storage"
)

const equilibrate = `
name: anneal
description: heat, then hold
stages:
  - name: heat
    config:
      ensemble: nvt
      temperature_k: 600
      steps: 10
  - config:
      ensemble: nve
      steps: 6
      output:
        log_interval: 3
`

func baseConfig(t *testing.T) *config.Config {
	t.Helper()
	xyz := "4\nNi fcc\nNi 0 0 0\nNi 1.76 1.76 0\nNi 1.76 0 1.76\nNi 0 1.76 1.76\n"
	path := filepath.Join(t.TempDir(), "ni.xyz")
	require.NoError(t, os.WriteFile(path, []byte(xyz), 0644))

	cfg := config.DefaultConfig()
	cfg.Structure = path
	cfg.Cell = []float64{3.52, 3.52, 3.52}
	cfg.Repeat = []int{2, 2, 2}
	cfg.Calculator = "lj"
	cfg.LJ.Sigma = 2.2
	cfg.Temperature = 300
	cfg.Output.LogInterval = 5
	cfg.Seed = 11
	return cfg
}

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(equilibrate))
	require.NoError(t, err)
	assert.Equal(t, "anneal", sc.Name)
	require.Len(t, sc.Stages, 2)
	assert.Equal(t, "heat", sc.Stages[0].Name)
	assert.Equal(t, "stage2", sc.Stages[1].Name)

	_, err = ParseScenario([]byte("name: empty\n"))
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestConfigsInherit(t *testing.T) {
	sc, err := ParseScenario([]byte(equilibrate))
	require.NoError(t, err)
	base := baseConfig(t)

	cfgs, err := sc.Configs(base)
	require.NoError(t, err)
	require.Len(t, cfgs, 2)

	assert.Equal(t, "nvt", cfgs[0].Ensemble)
	assert.Equal(t, 600.0, cfgs[0].Temperature)
	assert.Equal(t, 5, cfgs[0].Output.LogInterval)

	// the second stage keeps the first stage's temperature
	assert.Equal(t, "nve", cfgs[1].Ensemble)
	assert.Equal(t, 600.0, cfgs[1].Temperature)
	assert.Equal(t, 3, cfgs[1].Output.LogInterval)
	assert.Equal(t, "lj", cfgs[1].Calculator)

	assert.Equal(t, 300.0, base.Temperature, "base is not modified")
	assert.Equal(t, "npt", base.Ensemble)
}

func TestConfigsInvalidStage(t *testing.T) {
	sc, err := ParseScenario([]byte("stages:\n  - config:\n      ensemble: langevin\n"))
	require.NoError(t, err)
	_, err = sc.Configs(baseConfig(t))
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestConfigsRejectCarriedChanges(t *testing.T) {
	tests := []struct {
		name  string
		block string
		field string
	}{
		{"calculator", "calculator: potential", "calculator"},
		{"model", "model_dir: /tmp/other", "model_dir"},
		{"scheme", "scheme_dir: /tmp/other", "scheme_dir"},
		{"device", "device: accelerator", "device"},
		{"structure", "structure: other.xyz", "structure"},
		{"cell", "cell: [4, 4, 4]", "cell"},
		{"lj", "lj: {sigma: 2.5}", "lj"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := "stages:\n  - config:\n      steps: 5\n  - config:\n      " + tt.block + "\n"
			sc, err := ParseScenario([]byte(doc))
			require.NoError(t, err)

			_, err = sc.Configs(baseConfig(t))
			require.ErrorIs(t, err, config.ErrInvalid)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestConfigsFirstStageMayChangeSetup(t *testing.T) {
	sc, err := ParseScenario([]byte("stages:\n  - config:\n      cell: [3.6, 3.6, 3.6]\n  - config:\n      ensemble: nve\n"))
	require.NoError(t, err)

	cfgs, err := sc.Configs(baseConfig(t))
	require.NoError(t, err)
	assert.Equal(t, []float64{3.6, 3.6, 3.6}, cfgs[1].Cell)
}

func TestRunContinuesState(t *testing.T) {
	sc, err := ParseScenario([]byte(equilibrate))
	require.NoError(t, err)

	var out bytes.Buffer
	store := storage.New(t.TempDir())
	results, err := NewRunner(WithOutput(&out), WithStore(store)).Run(context.Background(), sc, baseConfig(t))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 10, results[0].Result.Steps)
	assert.Equal(t, 6, results[1].Result.Steps)
	// steps 0, 3, 6
	assert.Len(t, results[1].Thermo, 3)

	// stage two starts where stage one ended
	last := results[0].Thermo[len(results[0].Thermo)-1]
	first := results[1].Thermo[0]
	assert.InDelta(t, last.Epot, first.Epot, 1e-9)
	assert.InDelta(t, last.Temperature, first.Temperature, 1e-9)

	runs, err := store.List()
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.NotEmpty(t, results[1].RunID)
}

func TestRunCanceled(t *testing.T) {
	sc, err := ParseScenario([]byte(equilibrate))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := NewRunner().Run(ctx, sc, baseConfig(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}
