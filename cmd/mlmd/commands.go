package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/mlmd/internal/analysis"
	"github.com/san-kum/mlmd/internal/atoms"
	"github.com/san-kum/mlmd/internal/automation"
	"github.com/san-kum/mlmd/internal/calc"
	"github.com/san-kum/mlmd/internal/config"
	"github.com/san-kum/mlmd/internal/experiment"
	"github.com/san-kum/mlmd/internal/export"
	"github.com/san-kum/mlmd/internal/integrators"
	"github.com/san-kum/mlmd/internal/nn"
	"github.com/san-kum/mlmd/internal/optim"
	"github.com/san-kum/mlmd/internal/scheme"
	"github.com/san-kum/mlmd/internal/storage"
	"github.com/san-kum/mlmd/internal/viz"
)

var (
	printForces     bool
	benchSizes      []int
	benchEvals      int
	scaffoldSpecies []string
	scaffoldCutoff  float64
	scaffoldLattice float64
	plotColumns     []string
	plotOut         string
	frameDT         float64
	exportOut       string
	snapshotOut     string
	themeName       string
	tuneGrid        []string
	tuneMetric      string
)

// staticSetup loads the structure without velocities and builds the
// configured calculator.
func staticSetup(cmd *cobra.Command) (*atoms.Atoms, calc.Calculator, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	zero := 0.0
	cfg.InitTemperature = &zero

	a, err := experiment.PrepareAtoms(cfg)
	if err != nil {
		return nil, nil, err
	}
	c, err := experiment.NewRegistry().Calculator(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, c, nil
}

func evalStructure(cmd *cobra.Command, args []string) error {
	a, c, err := staticSetup(cmd)
	if err != nil {
		return err
	}
	r, err := c.Calculate(a, calc.Implemented, calc.AllChanges)
	if err != nil {
		return err
	}

	n := float64(a.Len())
	fmt.Printf("atoms:        %d\n", a.Len())
	fmt.Printf("energy:       %.6f eV\n", r.Energy)
	fmt.Printf("energy/atom:  %.6f eV\n", r.Energy/n)
	fmt.Printf("max force:    %.6f eV/Å\n", r.MaxForce())
	if v := a.Cell.Volume(); v > 0 {
		fmt.Printf("volume:       %.4f Å³\n", v)
		fmt.Printf("pressure:     %.4f GPa\n", r.Stress.Pressure()/integrators.GPa)
		fmt.Println("stress [GPa]: xx yy zz yz xz xy")
		fmt.Print("             ")
		for _, s := range r.Stress {
			fmt.Printf(" %.4f", s/integrators.GPa)
		}
		fmt.Println()
	}

	if snapshotOut != "" {
		if err := export.WriteSnapshot(snapshotOut, a, viz.GetTheme(themeName)); err != nil {
			return err
		}
		fmt.Printf("snapshot:     %s\n", snapshotOut)
	}

	if printForces {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "\nI\tSYM\tFX\tFY\tFZ\t")
		for i, f := range r.Forces {
			fmt.Fprintf(w, "%d\t%s\t%.6f\t%.6f\t%.6f\t\n", i, a.Symbols[i], f[0], f[1], f[2])
		}
		return w.Flush()
	}
	return nil
}

func benchCalculator(cmd *cobra.Command, args []string) error {
	base, c, err := staticSetup(cmd)
	if err != nil {
		return err
	}
	if benchEvals < 1 {
		return fmt.Errorf("--evals must be positive")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REPEAT\tATOMS\tEVALS\tTIME\tPER EVAL\tUS/ATOM")
	for _, k := range benchSizes {
		a := base
		if k > 1 {
			if base.Cell.IsZero() {
				return fmt.Errorf("supercells need a cell (--cell)")
			}
			a = base.Repeat([3]int{k, k, k})
		}
		// warm-up
		if _, err := c.Calculate(a, calc.Implemented, calc.AllChanges); err != nil {
			return err
		}
		start := time.Now()
		for i := 0; i < benchEvals; i++ {
			if _, err := c.Calculate(a, calc.Implemented, calc.AllChanges); err != nil {
				return err
			}
		}
		elapsed := time.Since(start)
		per := elapsed / time.Duration(benchEvals)
		fmt.Fprintf(w, "%d\t%d\t%d\t%v\t%v\t%.2f\n",
			k, a.Len(), benchEvals, elapsed.Round(time.Microsecond), per.Round(time.Microsecond),
			float64(per.Microseconds())/float64(a.Len()))
	}
	return w.Flush()
}

// parseGrid reads "name=v1,v2,..." specs in flag order.
func parseGrid(specs []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, nil, fmt.Errorf("grid %q: want name=v1,v2,...", spec)
		}
		var values []float64
		for _, field := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid %q: %w", spec, err)
			}
			values = append(values, v)
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func tuneParameters(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// tune's own defaults apply when nothing else chose these
	if configFile == "" && preset == "" {
		flags := cmd.Flags()
		if !flags.Changed("ensemble") {
			cfg.Ensemble, _ = flags.GetString("ensemble")
		}
		if !flags.Changed("steps") {
			cfg.Steps, _ = flags.GetInt("steps")
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	names, ranges, err := parseGrid(tuneGrid)
	if err != nil {
		return err
	}
	gs, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	gs.WithLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info("tuning",
		zap.Strings("params", names),
		zap.Int("trials", gs.Size()),
		zap.String("metric", tuneMetric),
	)
	trials, best, err := gs.Search(ctx, optim.ConfigBuilder(cfg, log), tuneMetric)
	if err != nil && !errors.Is(err, optim.ErrNoTrials) {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t\n", strings.ToUpper(strings.Join(names, "\t")), strings.ToUpper(tuneMetric))
	for i, t := range trials {
		for _, name := range names {
			fmt.Fprintf(w, "%g\t", t.Params[name])
		}
		switch {
		case t.Err != nil:
			fmt.Fprintf(w, "failed: %v\t", t.Err)
		case i == best:
			fmt.Fprintf(w, "%.4g *\t", t.Value)
		default:
			fmt.Fprintf(w, "%.4g\t", t.Value)
		}
		fmt.Fprintln(w)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

func runProtocol(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := []automation.RunnerOption{automation.WithLogger(log), automation.WithOutput(os.Stdout)}
	if !noSave {
		opts = append(opts, automation.WithStore(storage.New(dataDir)))
	}
	results, err := automation.NewRunner(opts...).Run(ctx, sc, base)

	w := tabwriter.NewWriter(os.Stderr, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STAGE\tENSEMBLE\tSTEPS\tT\tELAPSED\tRUN")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.0fK\t%v\t%s\n",
			r.Name, r.Config.Ensemble, r.Result.Steps, r.Config.Temperature,
			r.Result.Elapsed.Round(time.Millisecond), r.RunID)
	}
	if ferr := w.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

// scaffold writes everything a first run needs: a seeded (untrained) model,
// its graph build scheme, an fcc unit cell and a config that repeats it to
// 96 atoms.
func scaffold(cmd *cobra.Command, args []string) error {
	dir := args[0]
	schemePath := filepath.Join(dir, "scheme")
	modelPath := filepath.Join(dir, "model")
	structPath := filepath.Join(dir, "unitcell.xyz")
	cfgPath := filepath.Join(dir, "config.yaml")

	s := scheme.Default(scaffoldSpecies)
	s.Cutoff = scaffoldCutoff
	if err := scheme.Save(schemePath, s); err != nil {
		return err
	}

	ic := nn.DefaultInitConfig(scaffoldSpecies)
	ic.Cutoff = scaffoldCutoff
	ic.Seed = seed
	model, err := nn.Init(ic)
	if err != nil {
		return err
	}
	if err := nn.Save(modelPath, model, true); err != nil {
		return err
	}

	h := scaffoldLattice / 2
	basis := []atoms.Vec3{{0, 0, 0}, {h, h, 0}, {h, 0, h}, {0, h, h}}
	symbols := make([]string, len(basis))
	for i := range symbols {
		symbols[i] = scaffoldSpecies[i%len(scaffoldSpecies)]
	}
	a0 := scaffoldLattice
	unit, err := atoms.New(symbols, basis, atoms.Orthorhombic(a0, a0, a0), [3]bool{true, true, true})
	if err != nil {
		return err
	}
	tw, err := storage.NewTrajectoryWriter(structPath)
	if err != nil {
		return err
	}
	if err := tw.Write(unit); err != nil {
		tw.Close()
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	cfg.ModelDir = modelPath
	cfg.SchemeDir = schemePath
	cfg.Structure = structPath
	cfg.Cell = []float64{a0, a0, a0}
	cfg.Repeat = []int{2, 3, 4}
	cfg.Seed = seed
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	log.Info("scaffold written")
	fmt.Printf("wrote %s, %s, %s and %s\n", schemePath, modelPath, structPath, cfgPath)
	fmt.Printf("try: mlmd run --config %s\n", cfgPath)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tENSEMBLE\tTIME\tATOMS\tSTEPS\tDT\tT\tCALC\tELAPSED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.2ffs\t%.0fK\t%s\t%.1fs\n",
			run.ID,
			run.Ensemble,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Atoms,
			run.Steps,
			run.TimestepFS,
			run.Temperature,
			run.Calculator,
			run.Elapsed,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, err := st.LoadThermo(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("ensemble: %s, %d atoms\n", meta.Ensemble, meta.Atoms)
	fmt.Printf("samples: %d\n\n", len(rows))

	for _, col := range plotColumns {
		if plotOut != "" {
			path := fmt.Sprintf("%s_%s.png", plotOut, col)
			if err := viz.PlotThermo(rows, col, fmt.Sprintf("%s %s", meta.ID, col), path); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			continue
		}
		chart, err := viz.ChartThermo(rows, col, 10, 80)
		if err != nil {
			return err
		}
		fmt.Println(chart)
		fmt.Println()
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, err := st.LoadThermo(runID)
	if err != nil {
		return err
	}

	fmt.Printf("analysis: %s (%s, %d atoms)\n\n", meta.ID, meta.Ensemble, meta.Atoms)
	sum, err := analysis.Summarize(rows)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "QUANTITY\tMEAN\tSTD\tMIN\tMAX")
	line := func(name string, s analysis.Summary) {
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\t%.4f\n", name, s.Mean, s.Std, s.Min, s.Max)
	}
	line("T [K]", sum.Temperature)
	line("Epot/N [eV]", sum.Epot)
	line("Etot/N [eV]", sum.Etot)
	line("P [GPa]", sum.Pressure)
	line("V [Å³]", sum.Volume)
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nenergy drift: %.3e eV/atom/ps\n", sum.DriftRate)

	names := make([]string, 0, len(meta.Metrics))
	for name := range meta.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > 0 {
		fmt.Println("\nmetrics:")
		for _, name := range names {
			fmt.Printf("  %s: %.6g\n", name, meta.Metrics[name])
		}
	}

	traj := trajectory
	if traj == "" {
		traj = meta.Trajectory
	}
	if traj == "" {
		return nil
	}
	frames, _, err := atoms.ReadFrames(traj)
	if err != nil {
		return fmt.Errorf("trajectory: %w", err)
	}
	if len(frames) < 3 {
		fmt.Printf("\n%s has %d frames; skipping dynamics analysis\n", traj, len(frames))
		return nil
	}
	dt := frameDT
	if dt <= 0 {
		// frames are assumed evenly spaced over the whole run
		dt = meta.TimestepFS * float64(meta.Steps) / float64(len(frames)-1) / 1000
	}

	msd, err := analysis.MSD(frames, dt)
	if err != nil {
		return err
	}
	fmt.Printf("\ntrajectory: %s (%d frames, %.4f ps apart)\n", traj, len(frames), dt)
	fmt.Println(viz.Chart(msd, "MSD [Å²]", 8, 60))
	if d, err := analysis.Diffusion(msd, dt); err == nil {
		fmt.Printf("self-diffusion: %.4e Å²/ps (%.4e cm²/s)\n", d, d*1e-4)
	}

	vdos, err := analysis.VibrationalSpectrum(frames, dt)
	if err != nil {
		return err
	}
	if peak := vdos.Peak(); peak > 0 && !math.IsNaN(peak) {
		fmt.Println()
		fmt.Println(viz.Chart(vdos.Intensity, "VDOS vs frequency", 8, 60))
		fmt.Printf("dominant frequency: %.3f THz (%.1f cm⁻¹)\n", peak, peak*33.35641)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if exportOut != "" {
		if err := st.ExportJSONFile(exportOut, args[0]); err != nil {
			return err
		}
		fmt.Printf("exported %s to %s\n", args[0], exportOut)
		return nil
	}
	return st.ExportJSON(os.Stdout, args[0])
}

func listPresets(cmd *cobra.Command, args []string) error {
	ensembles := config.ListEnsembles()
	if len(args) == 1 {
		ensembles = args
	}
	for _, ens := range ensembles {
		presets := config.ListPresets(ens)
		if len(presets) == 0 {
			fmt.Printf("no presets for ensemble: %s\n", ens)
			continue
		}
		fmt.Printf("presets for %s:\n", ens)
		for _, name := range presets {
			p := config.GetPreset(ens, name)
			fmt.Printf("  %-16s %g fs, %g K, %d steps\n", name, p.TimestepFS, p.Temperature, p.Steps)
		}
	}
	return nil
}
