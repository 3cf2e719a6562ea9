package config

import "sort"

// Presets are keyed by ensemble, then preset name. They carry the dynamics
// settings only; structure and model paths come from the command line or a
// config file.
var Presets = map[string]map[string]*Config{
	"npt": {
		// 5 fs steps at 800 K with the barostat off, as in the reference
		// Ni/Co run.
		"800k": {
			Ensemble: "npt", TimestepFS: 5, Temperature: 800, TTimeFS: 25, Steps: 100,
			Output: OutputConfig{LogInterval: 1, PerAtom: true, Stress: true},
		},
		"800k-barostat": {
			Ensemble: "npt", TimestepFS: 5, Temperature: 800, TTimeFS: 25, PTimeFS: 500,
			Compressibility: 5e-7, Steps: 2000,
			Output: OutputConfig{LogInterval: 10, PerAtom: true, Stress: true},
		},
	},
	"nvt": {
		"300k": {
			Ensemble: "nvt", TimestepFS: 2, Temperature: 300, TTimeFS: 100, Steps: 1000,
			Output: OutputConfig{LogInterval: 10, PerAtom: true, Stress: true},
		},
		"anneal": {
			Ensemble: "nvt", TimestepFS: 2, Temperature: 300, InitTemperature: float64Ptr(1200), TTimeFS: 50, Steps: 5000,
			Output: OutputConfig{LogInterval: 50, PerAtom: true, Stress: false},
		},
	},
	"nve": {
		"300k": {
			Ensemble: "nve", TimestepFS: 1, Temperature: 300, Steps: 1000,
			Output: OutputConfig{LogInterval: 10, PerAtom: true, Stress: true},
		},
	},
}

func float64Ptr(v float64) *float64 { return &v }

func GetPreset(ensemble, preset string) *Config {
	ensemblePresets, ok := Presets[ensemble]
	if !ok {
		return nil
	}
	cfg, ok := ensemblePresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(ensemble string) []string {
	ensemblePresets, ok := Presets[ensemble]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(ensemblePresets))
	for name := range ensemblePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListEnsembles returns the ensembles that have presets.
func ListEnsembles() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply copies the dynamics settings of p onto c.
func (c *Config) Apply(p *Config) {
	c.Ensemble = p.Ensemble
	c.TimestepFS = p.TimestepFS
	c.Temperature = p.Temperature
	c.InitTemperature = p.InitTemperature
	c.TTimeFS = p.TTimeFS
	c.PTimeFS = p.PTimeFS
	c.Compressibility = p.Compressibility
	c.ExternalStress = p.ExternalStress
	c.Steps = p.Steps
	c.Output.LogInterval = p.Output.LogInterval
	c.Output.PerAtom = p.Output.PerAtom
	c.Output.Stress = p.Output.Stress
}
