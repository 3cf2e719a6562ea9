package analysis

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/mlmd/internal/atoms"
)

// MSD averages squared displacements over every atom and every time origin.
// Frames must hold unwrapped positions sampled every dt ps. Element k of the
// result is the lag (k+1)*dt.
func MSD(frames [][]atoms.Vec3, dt float64) ([]float64, error) {
	tot := len(frames)
	if tot < 2 {
		return nil, ErrTooShort
	}
	n := len(frames[0])
	for f := range frames {
		if len(frames[f]) != n {
			return nil, fmt.Errorf("analysis: frame %d has %d atoms, want %d", f, len(frames[f]), n)
		}
	}

	res := make([]float64, tot-1)
	for i := 0; i < tot-1; i++ {
		for j := i + 1; j < tot; j++ {
			for a := 0; a < n; a++ {
				for k := 0; k < 3; k++ {
					d := frames[j][a][k] - frames[i][a][k]
					res[j-i-1] += d * d
				}
			}
		}
	}
	for lag := range res {
		res[lag] /= float64((tot - 1 - lag) * n)
	}
	return res, nil
}

// Diffusion fits the second half of an MSD curve and returns the
// self-diffusion coefficient in Å²/ps (slope / 6).
func Diffusion(msd []float64, dt float64) (float64, error) {
	if len(msd) < 4 {
		return 0, ErrTooShort
	}
	start := len(msd) / 2
	t := make([]float64, 0, len(msd)-start)
	for lag := start; lag < len(msd); lag++ {
		t = append(t, float64(lag+1)*dt)
	}
	_, slope := stat.LinearRegression(t, msd[start:], nil, false)
	return slope / 6, nil
}
