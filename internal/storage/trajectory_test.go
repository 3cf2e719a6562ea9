package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/sim"
)

func TestTrajectoryRoundTrip(t *testing.T) {
	for _, name := range []string{"traj.xyz", "traj.xyz.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			a, err := atoms.New([]string{"Ni", "Co"}, []atoms.Vec3{{0, 0, 0}, {1.25, 0, 0}}, atoms.Cell{}, [3]bool{})
			require.NoError(t, err)

			w, err := NewTrajectoryWriter(path)
			require.NoError(t, err)
			for step := 0; step < 3; step++ {
				a.Positions[1][0] = 1.25 + 0.5*float64(step)
				require.NoError(t, w.Observe(sim.Frame{Step: step, Atoms: a}))
			}
			assert.Equal(t, 3, w.Frames())
			require.NoError(t, w.Close())

			frames, symbols, err := atoms.ReadFrames(path)
			require.NoError(t, err)
			assert.Equal(t, []string{"Ni", "Co"}, symbols)
			require.Len(t, frames, 3)
			assert.InDelta(t, 2.25, frames[2][1][0], 1e-6)
		})
	}
}
