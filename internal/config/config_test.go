package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Ensemble != "npt" {
		t.Errorf("expected ensemble npt, got %s", cfg.Ensemble)
	}
	if cfg.TimestepFS <= 0 {
		t.Error("timestep should be positive")
	}
	if cfg.Steps <= 0 {
		t.Error("steps should be positive")
	}
	if cfg.PTimeFS != 0 {
		t.Error("barostat should be off by default")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.ModelDir = "model"
		cfg.SchemeDir = "model"
		cfg.Structure = "ni.xyz"
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("default config with paths should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown ensemble", func(c *Config) { c.Ensemble = "nph" }},
		{"zero timestep", func(c *Config) { c.TimestepFS = 0 }},
		{"negative steps", func(c *Config) { c.Steps = -1 }},
		{"cell of two", func(c *Config) { c.Cell = []float64{1, 2} }},
		{"pbc of two", func(c *Config) { c.PBC = []bool{true, true} }},
		{"missing model dir", func(c *Config) { c.ModelDir = "" }},
		{"unknown calculator", func(c *Config) { c.Calculator = "eam" }},
		{"thermostat without ttime", func(c *Config) { c.TTimeFS = 0 }},
		{"barostat without compressibility", func(c *Config) { c.PTimeFS = 100 }},
		{"zero log interval", func(c *Config) { c.Output.LogInterval = 0 }},
		{"zero repeat", func(c *Config) { c.Repeat = []int{1, 0, 1} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLennardJonesNeedsNoModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Calculator = "lj"
	cfg.Ensemble = "nve"
	if err := cfg.Validate(); err != nil {
		t.Errorf("lj config should validate without model paths: %v", err)
	}
}

func TestCellMatrix(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.CellMatrix().IsZero() {
		t.Error("empty cell should be zero")
	}
	if cfg.Periodicity() != [3]bool{} {
		t.Error("no cell should mean no periodicity")
	}

	cfg.Cell = []float64{2, 3, 4}
	if v := cfg.CellMatrix().Volume(); v != 24 {
		t.Errorf("expected volume 24, got %f", v)
	}
	if cfg.Periodicity() != [3]bool{true, true, true} {
		t.Error("a cell should default to full periodicity")
	}

	cfg.Cell = []float64{2, 0, 0, 1, 2, 0, 0, 0, 3}
	m := cfg.CellMatrix()
	if m[1][0] != 1 || m[2][2] != 3 {
		t.Errorf("unexpected cell %v", m)
	}

	cfg.PBC = []bool{true, true, false}
	if cfg.Periodicity() != [3]bool{true, true, false} {
		t.Errorf("unexpected periodicity %v", cfg.Periodicity())
	}
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := DefaultConfig()
	cfg.Structure = "ni.xyz"
	cfg.Cell = []float64{10, 10, 10}
	cfg.Mask = []bool{true, false, true}

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if loaded.Structure != "ni.xyz" || len(loaded.Cell) != 3 {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
	if loaded.BarostatMask() != [3]bool{true, false, true} {
		t.Errorf("mask %v", loaded.BarostatMask())
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("structure: co.xyz\ntemperature_k: 300\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Temperature != 300 {
		t.Errorf("expected 300 K, got %f", cfg.Temperature)
	}
	if cfg.TimestepFS != DefaultTimestepFS || cfg.Output.LogInterval != DefaultLogInterval {
		t.Error("unset fields should keep their defaults")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("npt", "800k")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Temperature != 800 || cfg.TimestepFS != 5 || cfg.TTimeFS != 25 {
		t.Errorf("unexpected preset values: %+v", cfg)
	}
	if cfg.PTimeFS != 0 {
		t.Error("800k preset must keep the cell fixed")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if GetPreset("npt", "nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if GetPreset("nonexistent", "800k") != nil {
		t.Error("expected nil for nonexistent ensemble")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("npt")
	if len(presets) != 2 || presets[0] != "800k" {
		t.Errorf("unexpected npt presets %v", presets)
	}
	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent ensemble")
	}
	if len(ListEnsembles()) != 3 {
		t.Errorf("expected three ensembles, got %v", ListEnsembles())
	}
}

func TestPresetsValidate(t *testing.T) {
	for _, ensemble := range ListEnsembles() {
		for _, name := range ListPresets(ensemble) {
			cfg := DefaultConfig()
			cfg.Calculator = "lj"
			cfg.Apply(GetPreset(ensemble, name))
			if err := cfg.Validate(); err != nil {
				t.Errorf("preset %s/%s: %v", ensemble, name, err)
			}
		}
	}
}

func TestLoadOntoPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	if err := os.WriteFile(path, []byte("steps: 10\n"), 0644); err != nil {
		t.Fatal(err)
	}

	base := DefaultConfig()
	base.Apply(GetPreset("nvt", "300k"))
	cfg, err := LoadOnto(path, base)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Steps != 10 {
		t.Errorf("file should override steps, got %d", cfg.Steps)
	}
	if cfg.Ensemble != "nvt" || cfg.Temperature != 300 {
		t.Errorf("preset values lost: %s %g", cfg.Ensemble, cfg.Temperature)
	}
}
