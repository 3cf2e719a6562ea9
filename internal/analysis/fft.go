package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/mlmd/internal/atoms"
)

// PowerSpectrum returns |X_k| for the non-negative frequencies of data.
func PowerSpectrum(data []float64) []float64 {
	spectrum := fft.FFTReal(data)
	ps := make([]float64, len(spectrum)/2+1)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// VelocityAutocorrelation is normalised to 1 at zero lag. Velocities are
// taken as finite differences of successive frames.
func VelocityAutocorrelation(frames [][]atoms.Vec3, dt float64) ([]float64, error) {
	if len(frames) < 3 {
		return nil, ErrTooShort
	}
	n := len(frames[0])
	vel := make([][]atoms.Vec3, len(frames)-1)
	for f := range vel {
		vel[f] = make([]atoms.Vec3, n)
		for a := 0; a < n; a++ {
			for k := 0; k < 3; k++ {
				vel[f][a][k] = (frames[f+1][a][k] - frames[f][a][k]) / dt
			}
		}
	}

	tot := len(vel)
	vacf := make([]float64, tot)
	for i := 0; i < tot; i++ {
		for j := i; j < tot; j++ {
			var s float64
			for a := 0; a < n; a++ {
				s += vel[i][a][0]*vel[j][a][0] + vel[i][a][1]*vel[j][a][1] + vel[i][a][2]*vel[j][a][2]
			}
			vacf[j-i] += s
		}
	}
	for lag := range vacf {
		vacf[lag] /= float64(tot - lag)
	}
	if vacf[0] == 0 {
		return vacf, nil
	}
	c0 := vacf[0]
	for lag := range vacf {
		vacf[lag] /= c0
	}
	return vacf, nil
}

type Spectrum struct {
	Frequency []float64 `json:"frequency_thz"`
	Intensity []float64 `json:"intensity"`
}

// VibrationalSpectrum is the power spectrum of the Hann-windowed velocity
// autocorrelation.
func VibrationalSpectrum(frames [][]atoms.Vec3, dt float64) (Spectrum, error) {
	vacf, err := VelocityAutocorrelation(frames, dt)
	if err != nil {
		return Spectrum{}, err
	}
	m := len(vacf)
	windowed := make([]float64, m)
	for i, v := range vacf {
		// half Hann window, 1 at zero lag
		windowed[i] = v * 0.5 * (1 + math.Cos(math.Pi*float64(i)/float64(m)))
	}
	ps := PowerSpectrum(windowed)
	freq := make([]float64, len(ps))
	for k := range freq {
		freq[k] = float64(k) / (float64(m) * dt)
	}
	return Spectrum{Frequency: freq, Intensity: ps}, nil
}

// Peak returns the frequency with the highest intensity, skipping zero.
func (s Spectrum) Peak() float64 {
	best := 0
	for k := 1; k < len(s.Intensity); k++ {
		if best == 0 || s.Intensity[k] > s.Intensity[best] {
			best = k
		}
	}
	if best >= len(s.Frequency) {
		return 0
	}
	return s.Frequency[best]
}
