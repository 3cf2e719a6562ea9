package integrators

import "github.com/san-kum/mlmd/internal/atoms"

// Units follow the eV, Å, amu system, in which one time unit is
// sqrt(amu Å² / eV), about 10.18 fs.
const (
	FS  = 0.09822694788464063
	PS  = 1000 * FS
	KB  = atoms.KB
	GPa = 1 / 160.21766208
	Bar = 1e-4 * GPa
)
