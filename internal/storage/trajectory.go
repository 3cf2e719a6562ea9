package storage

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	chem "github.com/rmera/gochem"
	v3 "github.com/rmera/gochem/v3"

	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/sim"
)

// topology presents atom symbols to the gochem writers.
type topology struct {
	atoms []*chem.Atom
}

func newTopology(a *atoms.Atoms) *topology {
	t := &topology{atoms: make([]*chem.Atom, a.Len())}
	for i, sym := range a.Symbols {
		t.atoms[i] = &chem.Atom{Symbol: sym, Name: sym, ID: i + 1, Mass: a.Masses[i]}
	}
	return t
}

func (t *topology) Atom(i int) *chem.Atom { return t.atoms[i] }
func (t *topology) Len() int              { return len(t.atoms) }

// TrajectoryWriter appends XYZ frames to a file, gzip-compressed when the
// name ends in .gz. It is a sim.Observer.
type TrajectoryWriter struct {
	file   *os.File
	zw     *gzip.Writer
	buf    *bufio.Writer
	top    *topology
	frames int
}

func NewTrajectoryWriter(path string) (*TrajectoryWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	t := &TrajectoryWriter{file: f}
	var w io.Writer = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		t.zw = gzip.NewWriter(f)
		w = t.zw
	}
	t.buf = bufio.NewWriter(w)
	return t, nil
}

func (t *TrajectoryWriter) Observe(f sim.Frame) error {
	return t.Write(f.Atoms)
}

// Write appends one frame.
func (t *TrajectoryWriter) Write(a *atoms.Atoms) error {
	if t.top == nil || t.top.Len() != a.Len() {
		t.top = newTopology(a)
	}
	data := make([]float64, 0, 3*a.Len())
	for _, p := range a.Positions {
		data = append(data, p[0], p[1], p[2])
	}
	coords, err := v3.NewMatrix(data)
	if err != nil {
		return err
	}
	if err := chem.XYZWrite(t.buf, coords, t.top); err != nil {
		return err
	}
	t.frames++
	return nil
}

func (t *TrajectoryWriter) Frames() int { return t.frames }

func (t *TrajectoryWriter) Close() error {
	if err := t.buf.Flush(); err != nil {
		t.file.Close()
		return err
	}
	if t.zw != nil {
		if err := t.zw.Close(); err != nil {
			t.file.Close()
			return err
		}
	}
	return t.file.Close()
}
