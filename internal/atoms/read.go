package atoms

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	chem "github.com/rmera/gochem"
)

// Read loads the first frame of a structure file. The format follows the
// extension: .pdb, .gro, anything else is read as (multi)XYZ. The cell and
// periodic flags are not part of these formats and are left for the caller.
func Read(path string) (*Atoms, error) {
	mol, err := readMolecule(path)
	if err != nil {
		return nil, err
	}
	a, err := FromMolecule(mol, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.Source = path
	return a, nil
}

// ReadFrames loads every frame of a trajectory. Gzip-compressed XYZ is
// accepted when the name ends in .gz.
func ReadFrames(path string) ([][]Vec3, []string, error) {
	mol, err := readMolecule(path)
	if err != nil {
		return nil, nil, err
	}
	symbols := make([]string, mol.Len())
	for i := range symbols {
		symbols[i] = mol.Atom(i).Symbol
	}
	frames := make([][]Vec3, len(mol.Coords))
	for f, c := range mol.Coords {
		frames[f] = make([]Vec3, mol.Len())
		for i := range frames[f] {
			frames[f][i] = Vec3{c.At(i, 0), c.At(i, 1), c.At(i, 2)}
		}
	}
	return frames, symbols, nil
}

func readMolecule(path string) (*chem.Molecule, error) {
	var (
		mol *chem.Molecule
		err error
	)
	name := strings.ToLower(path)
	switch {
	case strings.HasSuffix(name, ".gz"):
		mol, err = readGzipXYZ(path)
	case filepath.Ext(name) == ".pdb":
		mol, err = chem.PDBFileRead(path, false)
	case filepath.Ext(name) == ".gro":
		mol, err = chem.GroFileRead(path)
	default:
		mol, err = chem.XYZFileRead(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(mol.Coords) == 0 {
		return nil, fmt.Errorf("read %s: no coordinates", path)
	}
	return mol, nil
}

func readGzipXYZ(path string) (*chem.Molecule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return chem.XYZRead(io.Reader(zr))
}

// FromMolecule converts one frame of a gochem molecule.
func FromMolecule(mol *chem.Molecule, frame int) (*Atoms, error) {
	if frame < 0 || frame >= len(mol.Coords) {
		return nil, fmt.Errorf("atoms: frame %d out of range (%d frames)", frame, len(mol.Coords))
	}
	n := mol.Len()
	symbols := make([]string, n)
	pos := make([]Vec3, n)
	coords := mol.Coords[frame]
	for i := 0; i < n; i++ {
		symbols[i] = mol.Atom(i).Symbol
		pos[i] = Vec3{coords.At(i, 0), coords.At(i, 1), coords.At(i, 2)}
	}
	return New(symbols, pos, Cell{}, [3]bool{})
}
