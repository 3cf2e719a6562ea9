// Package scheme reads the graph build scheme that travels with a trained
// model: which species the model knows, the neighbour cutoff, and which
// structural properties a graph should carry.
package scheme

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// FileName is the scheme file looked up inside the scheme directory.
const FileName = "graph_build_scheme.json"

const (
	ModeDistance       = "ase_dist"
	ModeNaturalCutoffs = "ase_natural_cutoffs"
)

var (
	// ErrSchemeNotFound indicates the scheme directory has no graph_build_scheme.json.
	ErrSchemeNotFound = errors.New("scheme: graph build scheme file does not exist")

	// ErrInvalidScheme indicates a scheme that parsed but fails validation.
	ErrInvalidScheme = errors.New("scheme: invalid graph build scheme")
)

// ConfigError wraps a scheme failure with the file it came from.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// BuildProperties selects what a built graph carries besides its topology.
type BuildProperties struct {
	Energy      bool `json:"energy"`
	Forces      bool `json:"forces"`
	Cell        bool `json:"cell"`
	CartCoords  bool `json:"cart_coords"`
	FracCoords  bool `json:"frac_coords"`
	Constraints bool `json:"constraints"`
	Stress      bool `json:"stress"`
	Distance    bool `json:"distance"`
	Direction   bool `json:"direction"`
	Path        bool `json:"path"`
}

// TopologyOnly clears every label and coordinate property. Edge features
// (distance, direction) and constraints are left as loaded.
func (p *BuildProperties) TopologyOnly() {
	p.Energy = false
	p.Forces = false
	p.Cell = false
	p.CartCoords = false
	p.FracCoords = false
	p.Path = false
	p.Stress = false
}

type Scheme struct {
	Species           []string        `json:"species" validate:"required,min=1,dive,required"`
	Cutoff            float64         `json:"cutoff" validate:"gt=0"`
	ModeOfNN          string          `json:"mode_of_NN" validate:"omitempty,oneof=ase_dist ase_natural_cutoffs"`
	NaturalCutoffMult float64         `json:"natural_cutoff_mult,omitempty" validate:"gte=0"`
	DatasetPath       string          `json:"dataset_path,omitempty"`
	PathFile          string          `json:"path_file,omitempty"`
	BuildProperties   BuildProperties `json:"build_properties"`
}

// Default mirrors the settings a dataset is usually built with.
func Default(species []string) *Scheme {
	return &Scheme{
		Species:           species,
		Cutoff:            5.0,
		ModeOfNN:          ModeDistance,
		NaturalCutoffMult: 1.0,
		DatasetPath:       "dataset",
		PathFile:          "paths.log",
		BuildProperties: BuildProperties{
			Energy:      true,
			Forces:      true,
			Cell:        true,
			CartCoords:  true,
			FracCoords:  true,
			Constraints: true,
			Stress:      true,
			Distance:    true,
			Direction:   true,
		},
	}
}

var validate = validator.New()

func (s *Scheme) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScheme, err)
	}
	seen := make(map[string]bool, len(s.Species))
	for _, sp := range s.Species {
		if seen[sp] {
			return fmt.Errorf("%w: duplicate species %q", ErrInvalidScheme, sp)
		}
		seen[sp] = true
	}
	return nil
}

// Mode returns the neighbour mode, defaulting to a plain distance cutoff.
func (s *Scheme) Mode() string {
	if s.ModeOfNN == "" {
		return ModeDistance
	}
	return s.ModeOfNN
}

// SpeciesIndex maps element symbols to their position in Species.
func (s *Scheme) SpeciesIndex() map[string]int {
	m := make(map[string]int, len(s.Species))
	for i, sp := range s.Species {
		m[sp] = i
	}
	return m
}

// Load reads <dir>/graph_build_scheme.json. A missing file yields a
// *ConfigError wrapping ErrSchemeNotFound.
func Load(dir string) (*Scheme, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigError{Path: path, Err: ErrSchemeNotFound}
		}
		return nil, &ConfigError{Path: path, Err: err}
	}

	var s Scheme
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	if err := s.Validate(); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return &s, nil
}

func Save(dir string, s *Scheme) error {
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, FileName), data, 0644)
}
