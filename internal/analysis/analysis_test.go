package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/sim"
)

func TestSummarize(t *testing.T) {
	var rows []sim.ThermoRow
	for i := 0; i < 11; i++ {
		tm := 0.1 * float64(i)
		rows = append(rows, sim.ThermoRow{
			Step:        i,
			Time:        tm,
			Atoms:       4,
			Epot:        -16,
			Etot:        -16 + 8*tm,
			Temperature: 300 + float64(i%2)*10,
			Pressure:    1.5,
			Volume:      80,
		})
	}

	s, err := Summarize(rows)
	require.NoError(t, err)
	assert.Equal(t, 11, s.Samples)
	assert.InDelta(t, 2.0, s.DriftRate, 1e-9)
	assert.InDelta(t, -4.0, s.Epot.Mean, 1e-12)
	assert.Equal(t, 300.0, s.Temperature.Min)
	assert.Equal(t, 310.0, s.Temperature.Max)
	assert.Zero(t, s.Pressure.Std)
	assert.Greater(t, s.Temperature.Std, 0.0)
}

func TestSummarizeTooShort(t *testing.T) {
	_, err := Summarize([]sim.ThermoRow{{}})
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestColumn(t *testing.T) {
	rows := []sim.ThermoRow{{Temperature: 1}, {Temperature: 2}}
	col, ok := Column(rows, "temperature")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2}, col)

	_, ok = Column(rows, "entropy")
	assert.False(t, ok)

	for _, name := range ColumnNames() {
		_, ok := Column(rows, name)
		assert.True(t, ok, name)
	}
}

func TestMSDBallistic(t *testing.T) {
	const dt = 0.5
	v := atoms.Vec3{1, 2, 2} // |v|² = 9
	var frames [][]atoms.Vec3
	for f := 0; f < 6; f++ {
		tm := float64(f) * dt
		frames = append(frames, []atoms.Vec3{
			{v[0] * tm, v[1] * tm, v[2] * tm},
			{1 + v[0]*tm, v[1] * tm, -v[2] * tm},
		})
	}

	msd, err := MSD(frames, dt)
	require.NoError(t, err)
	require.Len(t, msd, 5)
	for lag, got := range msd {
		tau := float64(lag+1) * dt
		assert.InDelta(t, 9*tau*tau, got, 1e-9, "lag %d", lag)
	}
}

func TestMSDMismatchedFrames(t *testing.T) {
	_, err := MSD([][]atoms.Vec3{{{0, 0, 0}}, {}}, 1)
	assert.Error(t, err)

	_, err = MSD([][]atoms.Vec3{{{0, 0, 0}}}, 1)
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestDiffusion(t *testing.T) {
	const dt, d = 0.1, 0.25
	msd := make([]float64, 20)
	for lag := range msd {
		msd[lag] = 6 * d * float64(lag+1) * dt
	}
	got, err := Diffusion(msd, dt)
	require.NoError(t, err)
	assert.InDelta(t, d, got, 1e-9)

	_, err = Diffusion(msd[:2], dt)
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestVibrationalSpectrumPeak(t *testing.T) {
	const (
		dt   = 0.01 // ps
		freq = 5.0  // THz
	)
	var frames [][]atoms.Vec3
	for f := 0; f < 400; f++ {
		x := 0.1 * math.Cos(2*math.Pi*freq*float64(f)*dt)
		frames = append(frames, []atoms.Vec3{{x, 0, 0}})
	}

	vacf, err := VelocityAutocorrelation(frames, dt)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vacf[0], 1e-12)

	vdos, err := VibrationalSpectrum(frames, dt)
	require.NoError(t, err)
	assert.Len(t, vdos.Frequency, len(vdos.Intensity))
	assert.InDelta(t, freq, vdos.Peak(), 0.5)
}

func TestPowerSpectrum(t *testing.T) {
	data := make([]float64, 64)
	for i := range data {
		data[i] = math.Sin(2 * math.Pi * 8 * float64(i) / 64)
	}
	ps := PowerSpectrum(data)
	require.Len(t, ps, 33)

	best := 0
	for k := range ps {
		if ps[k] > ps[best] {
			best = k
		}
	}
	assert.Equal(t, 8, best)
}
