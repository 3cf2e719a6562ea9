package sim

import (
	"fmt"
	"io"
	"strings"
)

// Logger writes thermodynamic columns in the layout of the ASE MDLogger:
// time in ps, total, potential and kinetic energy, temperature and
// optionally the six stress components in GPa.
type Logger struct {
	w       io.Writer
	perAtom bool
	stress  bool
	header  bool
}

type LoggerOption func(*Logger)

// PerAtom divides the energies by the atom count.
func PerAtom(on bool) LoggerOption { return func(l *Logger) { l.perAtom = on } }

// WithStress appends the stress columns.
func WithStress(on bool) LoggerOption { return func(l *Logger) { l.stress = on } }

func NewLogger(w io.Writer, opts ...LoggerOption) *Logger {
	l := &Logger{w: w, perAtom: true, stress: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Logger) Header() string {
	var b strings.Builder
	if l.perAtom {
		fmt.Fprintf(&b, "%-10s %12s %12s %12s  %6s", "Time[ps]", "Etot/N[eV]", "Epot/N[eV]", "Ekin/N[eV]", "T[K]")
	} else {
		fmt.Fprintf(&b, "%-10s %12s %12s %12s  %6s", "Time[ps]", "Etot[eV]", "Epot[eV]", "Ekin[eV]", "T[K]")
	}
	if l.stress {
		b.WriteString("      ---------------------- stress [GPa] -----------------------")
	}
	return b.String()
}

func (l *Logger) Format(row ThermoRow) string {
	etot, epot, ekin := row.Etot, row.Epot, row.Ekin
	if l.perAtom && row.Atoms > 0 {
		n := float64(row.Atoms)
		etot, epot, ekin = etot/n, epot/n, ekin/n
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-10.4f %12.4f %12.4f %12.4f  %6.1f", row.Time, etot, epot, ekin, row.Temperature)
	if l.stress {
		for _, s := range row.Stress {
			fmt.Fprintf(&b, " %10.3f", s)
		}
	}
	return b.String()
}

func (l *Logger) Observe(f Frame) error {
	if !l.header {
		if _, err := fmt.Fprintln(l.w, l.Header()); err != nil {
			return err
		}
		l.header = true
	}
	_, err := fmt.Fprintln(l.w, l.Format(NewThermoRow(f)))
	return err
}
