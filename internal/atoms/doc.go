// Package atoms holds the atomic configuration that the simulator mutates
// and the calculators evaluate.
//
//   - [Atoms]: positions, velocities, masses, species, cell and periodic flags
//   - [Cell]: lattice vectors stored as rows, with volume and fractional coordinates
//   - [Read]: structure files through gochem (XYZ, PDB, GRO)
//
// Units follow the usual atomistic conventions: Å for lengths, amu for
// masses, eV for energies, and Å per internal time unit for velocities.
package atoms
