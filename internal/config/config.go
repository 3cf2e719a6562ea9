package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/mlmd/internal/atoms"
)

const (
	DefaultTimestepFS  = 5.0
	DefaultTemperature = 800.0
	DefaultTTimeFS     = 25.0
	DefaultSteps       = 100
	DefaultLogInterval = 1
	DefaultDevice      = "cpu"
)

var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	ModelDir   string `yaml:"model_dir"`
	SchemeDir  string `yaml:"scheme_dir"`
	Device     string `yaml:"device" validate:"required"`
	Calculator string `yaml:"calculator" validate:"oneof=potential lj"`
	Workers    int    `yaml:"workers,omitempty" validate:"gte=0"`

	Structure string `yaml:"structure"`

	// Cell is either three lengths or nine row-major components in Å.
	Cell   []float64 `yaml:"cell,omitempty" validate:"omitempty,len=3|len=9"`
	PBC    []bool    `yaml:"pbc,omitempty" validate:"omitempty,len=3"`
	Repeat []int     `yaml:"repeat,omitempty" validate:"omitempty,len=3,dive,gte=1"`

	Ensemble        string       `yaml:"ensemble" validate:"oneof=nve nvt npt"`
	TimestepFS      float64      `yaml:"timestep_fs" validate:"gt=0"`
	Temperature     float64      `yaml:"temperature_k" validate:"gte=0"`
	InitTemperature *float64     `yaml:"init_temperature_k,omitempty" validate:"omitempty,gte=0"`
	TTimeFS         float64      `yaml:"ttime_fs" validate:"gte=0"`
	PTimeFS         float64      `yaml:"ptime_fs" validate:"gte=0"`
	Compressibility float64      `yaml:"compressibility_per_bar" validate:"gte=0"`
	ExternalStress  float64      `yaml:"external_stress_gpa"`
	Mask            []bool       `yaml:"mask,omitempty" validate:"omitempty,len=3"`
	Steps           int          `yaml:"steps" validate:"gte=0"`
	Seed            int64        `yaml:"seed"`
	LJ              LJConfig     `yaml:"lj,omitempty"`
	Output          OutputConfig `yaml:"output"`
}

type LJConfig struct {
	Epsilon float64 `yaml:"epsilon,omitempty" validate:"gte=0"`
	Sigma   float64 `yaml:"sigma,omitempty" validate:"gte=0"`
	Cutoff  float64 `yaml:"cutoff,omitempty" validate:"gte=0"`
}

type OutputConfig struct {
	LogFile            string `yaml:"log_file,omitempty"`
	LogInterval        int    `yaml:"log_interval" validate:"gte=1"`
	PerAtom            bool   `yaml:"per_atom"`
	Stress             bool   `yaml:"stress"`
	Trajectory         string `yaml:"trajectory,omitempty"`
	TrajectoryInterval int    `yaml:"trajectory_interval,omitempty" validate:"gte=0"`
}

func DefaultConfig() *Config {
	return &Config{
		Device:      DefaultDevice,
		Calculator:  "potential",
		Ensemble:    "npt",
		TimestepFS:  DefaultTimestepFS,
		Temperature: DefaultTemperature,
		TTimeFS:     DefaultTTimeFS,
		Steps:       DefaultSteps,
		Output: OutputConfig{
			LogInterval: DefaultLogInterval,
			PerAtom:     true,
			Stress:      true,
		},
	}
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Calculator == "potential" && (c.ModelDir == "" || c.SchemeDir == "") {
		return fmt.Errorf("%w: the potential calculator needs model_dir and scheme_dir", ErrInvalid)
	}
	if c.Ensemble != "nve" && c.TTimeFS <= 0 {
		return fmt.Errorf("%w: %s needs ttime_fs > 0", ErrInvalid, c.Ensemble)
	}
	if c.PTimeFS > 0 && c.Compressibility <= 0 {
		return fmt.Errorf("%w: ptime_fs needs compressibility_per_bar > 0", ErrInvalid)
	}
	return nil
}

// CellMatrix expands Cell into lattice vectors. An empty Cell is the zero
// cell of a non-periodic cluster.
func (c *Config) CellMatrix() atoms.Cell {
	switch len(c.Cell) {
	case 3:
		return atoms.Orthorhombic(c.Cell[0], c.Cell[1], c.Cell[2])
	case 9:
		var m atoms.Cell
		for i := 0; i < 9; i++ {
			m[i/3][i%3] = c.Cell[i]
		}
		return m
	}
	return atoms.Cell{}
}

// Periodicity defaults to periodic along every axis whenever a cell is set.
func (c *Config) Periodicity() [3]bool {
	if len(c.PBC) == 3 {
		return [3]bool{c.PBC[0], c.PBC[1], c.PBC[2]}
	}
	periodic := len(c.Cell) > 0
	return [3]bool{periodic, periodic, periodic}
}

func (c *Config) BarostatMask() [3]bool {
	if len(c.Mask) == 3 {
		return [3]bool{c.Mask[0], c.Mask[1], c.Mask[2]}
	}
	return [3]bool{true, true, true}
}

func (c *Config) Repetitions() [3]int {
	if len(c.Repeat) == 3 {
		return [3]int{c.Repeat[0], c.Repeat[1], c.Repeat[2]}
	}
	return [3]int{1, 1, 1}
}

// StartTemperature is the temperature velocities are drawn at.
func (c *Config) StartTemperature() float64 {
	if c.InitTemperature != nil {
		return *c.InitTemperature
	}
	return c.Temperature
}

func Load(path string) (*Config, error) {
	return LoadOnto(path, DefaultConfig())
}

// LoadOnto reads path over base, so keys missing from the file keep the
// values base already had.
func LoadOnto(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return base, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
