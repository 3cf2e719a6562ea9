package metrics

import (
	"math"

	"github.com/san-kum/mlmd/internal/sim"
)

// Stability is the fraction of frames whose largest force stays below the
// threshold (eV/Å). Frames with non-finite forces always count as violations.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(f sim.Frame) {
	s.samples++
	fmax := f.Results.MaxForce()
	if math.IsNaN(fmax) || fmax > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// MeanForce averages the per-atom force magnitude over all frames.
type MeanForce struct {
	name    string
	sum     float64
	samples int
}

func NewMeanForce() *MeanForce {
	return &MeanForce{name: "mean_force"}
}

func (m *MeanForce) Name() string {
	return m.name
}

func (m *MeanForce) Observe(f sim.Frame) {
	if len(f.Results.Forces) == 0 {
		return
	}
	var sum float64
	for _, v := range f.Results.Forces {
		sum += math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	}
	m.sum += sum / float64(len(f.Results.Forces))
	m.samples++
}

func (m *MeanForce) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanForce) Reset() {
	m.sum = 0
	m.samples = 0
}
