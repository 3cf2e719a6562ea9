package nn

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

const (
	ModelFile           = "model.json"
	CompressedModelFile = "model.json.gz"
)

// Load reads a Potential from dir, preferring model.json and falling back
// to model.json.gz.
func Load(dir string) (*Potential, error) {
	plain := filepath.Join(dir, ModelFile)
	packed := filepath.Join(dir, CompressedModelFile)

	var r io.Reader
	f, err := os.Open(plain)
	switch {
	case err == nil:
		defer f.Close()
		r = f
	case errors.Is(err, os.ErrNotExist):
		gf, gerr := os.Open(packed)
		if errors.Is(gerr, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelMissing, dir)
		}
		if gerr != nil {
			return nil, gerr
		}
		defer gf.Close()
		zr, zerr := gzip.NewReader(gf)
		if zerr != nil {
			return nil, fmt.Errorf("%s: %w", packed, zerr)
		}
		defer zr.Close()
		r = zr
	default:
		return nil, err
	}

	var p Params
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode model in %s: %w", dir, err)
	}
	return NewPotential(p)
}

// Save writes the parameters to dir, gzip-compressed when compress is set.
func Save(dir string, p *Potential, compress bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	name := ModelFile
	if compress {
		name = CompressedModelFile
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	defer f.Close()

	if !compress {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(p.params)
	}
	zw := gzip.NewWriter(f)
	if err := json.NewEncoder(zw).Encode(p.params); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// InitConfig sizes a freshly initialised potential.
type InitConfig struct {
	Species    []string
	Cutoff     float64
	NumBasis   int
	Embedding  int
	Hidden     int
	Scale      float64
	Shift      float64
	BasisWidth float64
	Seed       int64
}

func DefaultInitConfig(species []string) InitConfig {
	return InitConfig{
		Species:    species,
		Cutoff:     5.0,
		NumBasis:   8,
		Embedding:  4,
		Hidden:     16,
		Scale:      0.05,
		Shift:      -5.0,
		BasisWidth: 0.5,
		Seed:       1,
	}
}

// Init draws small random weights. The result is untrained; it exists so a
// run can be wired end to end before a real model is available.
func Init(cfg InitConfig) (*Potential, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	draw := func(n int) []float64 {
		v := make([]float64, n)
		for i := range v {
			v[i] = cfg.Scale * rng.NormFloat64()
		}
		return v
	}

	s := len(cfg.Species)
	p := Params{
		Species:    append([]string(nil), cfg.Species...),
		Cutoff:     cfg.Cutoff,
		NumBasis:   cfg.NumBasis,
		BasisWidth: cfg.BasisWidth,
		Embedding:  make([][]float64, s),
		Neighbor:   make([][]float64, s),
		Hidden:     make([][]float64, cfg.Hidden),
		HiddenBias: draw(cfg.Hidden),
		Output:     draw(cfg.Hidden),
		Shift:      make([]float64, s),
	}
	for i := 0; i < s; i++ {
		p.Embedding[i] = draw(cfg.Embedding)
		p.Neighbor[i] = draw(cfg.NumBasis)
		p.Shift[i] = cfg.Shift
	}
	for u := range p.Hidden {
		p.Hidden[u] = draw(cfg.Embedding + cfg.NumBasis)
	}
	return NewPotential(p)
}
