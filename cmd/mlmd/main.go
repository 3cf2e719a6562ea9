package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/mlmd/internal/config"
	"github.com/san-kum/mlmd/internal/experiment"
	"github.com/san-kum/mlmd/internal/logging"
	"github.com/san-kum/mlmd/internal/metrics"
	"github.com/san-kum/mlmd/internal/optim"
	"github.com/san-kum/mlmd/internal/sim"
	"github.com/san-kum/mlmd/internal/storage"
	"github.com/san-kum/mlmd/internal/viz"
)

var (
	dataDir string
	verbose bool
	log     *zap.Logger

	configFile  string
	preset      string
	structure   string
	modelDir    string
	schemeDir   string
	device      string
	calculator  string
	workers     int
	ensemble    string
	steps       int
	timestep    float64
	temperature float64
	ttime       float64
	ptime       float64
	compress    float64
	extStress   float64
	seed        int64
	cell        []float64
	pbc         []bool
	repeat      []int
	logFile     string
	logInterval int
	trajectory  string

	live        bool
	pick        bool
	metricsAddr string
	replicas    int
	noSave      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "mlmd",
		Short:        "molecular dynamics with machine-learned potentials",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(verbose)
			if err != nil {
				return err
			}
			log = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".mlmd", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run an MD simulation",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().StringVar(&ensemble, "ensemble", "npt", "ensemble (nve, nvt, npt)")
	runCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of MD steps")
	runCmd.Flags().Float64Var(&timestep, "dt", config.DefaultTimestepFS, "timestep in fs")
	runCmd.Flags().Float64Var(&temperature, "temperature", config.DefaultTemperature, "target temperature in K")
	runCmd.Flags().Float64Var(&ttime, "ttime", config.DefaultTTimeFS, "thermostat time constant in fs")
	runCmd.Flags().Float64Var(&ptime, "ptime", 0, "barostat time constant in fs (0 disables)")
	runCmd.Flags().Float64Var(&compress, "compressibility", 0, "compressibility in 1/bar")
	runCmd.Flags().Float64Var(&extStress, "pressure", 0, "external pressure in GPa")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "velocity seed")
	runCmd.Flags().StringVar(&logFile, "log", "", "MD log file (default stdout)")
	runCmd.Flags().IntVar(&logInterval, "log-interval", config.DefaultLogInterval, "steps between log lines")
	runCmd.Flags().StringVar(&trajectory, "traj", "", "trajectory file (.xyz or .xyz.gz)")
	runCmd.Flags().BoolVar(&live, "live", false, "show the live view")
	runCmd.Flags().BoolVar(&pick, "pick", false, "choose a preset interactively")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	runCmd.Flags().IntVar(&replicas, "replicas", 1, "independent runs from consecutive seeds")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not record the run in the data directory")

	evalCmd := &cobra.Command{
		Use:   "eval",
		Short: "single-point energy, forces and stress",
		Args:  cobra.NoArgs,
		RunE:  evalStructure,
	}
	addConfigFlags(evalCmd)
	evalCmd.Flags().BoolVar(&printForces, "forces", false, "print per-atom forces")
	evalCmd.Flags().StringVar(&snapshotOut, "svg", "", "write an SVG snapshot of the structure")
	evalCmd.Flags().StringVar(&themeName, "theme", "cyberpunk", "snapshot colors ("+strings.Join(viz.ThemeNames(), ", ")+")")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "time calculator evaluations on growing supercells",
		Args:  cobra.NoArgs,
		RunE:  benchCalculator,
	}
	addConfigFlags(benchCmd)
	benchCmd.Flags().IntSliceVar(&benchSizes, "sizes", []int{1, 2, 3}, "supercell repeats per axis")
	benchCmd.Flags().IntVar(&benchEvals, "evals", 10, "evaluations per size")

	scaffoldCmd := &cobra.Command{
		Use:   "scaffold [dir]",
		Short: "write a seeded model, scheme, structure and config",
		Args:  cobra.ExactArgs(1),
		RunE:  scaffold,
	}
	scaffoldCmd.Flags().StringSliceVar(&scaffoldSpecies, "species", []string{"Ni", "Co"}, "model species")
	scaffoldCmd.Flags().Float64Var(&scaffoldCutoff, "cutoff", 5.0, "cutoff radius in Å")
	scaffoldCmd.Flags().Float64Var(&scaffoldLattice, "a0", 3.52, "fcc lattice constant in Å")
	scaffoldCmd.Flags().Int64Var(&seed, "seed", 1, "weight seed")

	protocolCmd := &cobra.Command{
		Use:   "protocol [scenario.yaml]",
		Short: "run a sequence of stages on one structure",
		Args:  cobra.ExactArgs(1),
		RunE:  runProtocol,
	}
	addConfigFlags(protocolCmd)
	protocolCmd.Flags().Int64Var(&seed, "seed", 0, "velocity seed")
	protocolCmd.Flags().BoolVar(&noSave, "no-save", false, "do not record the stages in the data directory")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid-search run parameters for the lowest metric value",
		Args:  cobra.NoArgs,
		RunE:  tuneParameters,
	}
	addConfigFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&ensemble, "ensemble", "nve", "ensemble (nve, nvt, npt)")
	tuneCmd.Flags().IntVar(&steps, "steps", 200, "MD steps per trial")
	tuneCmd.Flags().Float64Var(&temperature, "temperature", config.DefaultTemperature, "target temperature in K")
	tuneCmd.Flags().Int64Var(&seed, "seed", 0, "velocity seed")
	tuneCmd.Flags().StringArrayVar(&tuneGrid, "grid", []string{"dt=0.5,1,2,4"}, "parameter=v1,v2,... ("+strings.Join(optim.ParamNames(), ", ")+")")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "energy_drift", "metric to minimise")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot thermo columns of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&plotColumns, "column", []string{"temperature", "etot"}, "columns to plot")
	plotCmd.Flags().StringVar(&plotOut, "out", "", "write image files with this prefix instead of drawing in the terminal")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "thermo statistics, diffusion and vibrational spectrum",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&trajectory, "traj", "", "trajectory to analyze (default: the run's own)")
	analyzeCmd.Flags().Float64Var(&frameDT, "frame-dt", 0, "time between trajectory frames in ps (default: inferred)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and thermo rows as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets [ensemble]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	rootCmd.AddCommand(runCmd, protocolCmd, evalCmd, benchCmd, tuneCmd, scaffoldCmd, listCmd, plotCmd, analyzeCmd, exportCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// addConfigFlags registers the flags that locate the structure and the
// calculator. They override the config file when set.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration for --ensemble")
	cmd.Flags().StringVarP(&structure, "structure", "s", "", "structure file (.xyz, .pdb, .gro)")
	cmd.Flags().StringVar(&modelDir, "model", "", "model directory")
	cmd.Flags().StringVar(&schemeDir, "scheme", "", "graph build scheme directory")
	cmd.Flags().StringVar(&device, "device", config.DefaultDevice, "compute device (cpu, cuda)")
	cmd.Flags().StringVar(&calculator, "calculator", "potential", "calculator (potential, lj)")
	cmd.Flags().IntVar(&workers, "workers", 0, "CPU workers (0 = all cores)")
	cmd.Flags().Float64SliceVar(&cell, "cell", nil, "cell: 3 lengths or 9 components in Å")
	cmd.Flags().BoolSliceVar(&pbc, "pbc", nil, "periodic flags per axis")
	cmd.Flags().IntSliceVar(&repeat, "repeat", nil, "supercell repeats per axis")
}

// loadConfig layers defaults, preset, config file and changed flags, in
// that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	flags := cmd.Flags()

	if preset != "" {
		ens := cfg.Ensemble
		if flags.Lookup("ensemble") != nil && flags.Changed("ensemble") {
			ens = ensemble
		}
		p := config.GetPreset(ens, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available for %s: %v)", preset, ens, config.ListPresets(ens))
		}
		cfg.Apply(p)
	}

	if configFile != "" {
		var err error
		cfg, err = config.LoadOnto(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	changed := func(name string) bool { return flags.Lookup(name) != nil && flags.Changed(name) }
	if changed("structure") {
		cfg.Structure = structure
	}
	if changed("model") {
		cfg.ModelDir = modelDir
	}
	if changed("scheme") {
		cfg.SchemeDir = schemeDir
	}
	if changed("device") {
		cfg.Device = device
	}
	if changed("calculator") {
		cfg.Calculator = calculator
	}
	if changed("workers") {
		cfg.Workers = workers
	}
	if changed("cell") {
		cfg.Cell = cell
	}
	if changed("pbc") {
		cfg.PBC = pbc
	}
	if changed("repeat") {
		cfg.Repeat = repeat
	}
	if changed("ensemble") {
		cfg.Ensemble = ensemble
	}
	if changed("steps") {
		cfg.Steps = steps
	}
	if changed("dt") {
		cfg.TimestepFS = timestep
	}
	if changed("temperature") {
		cfg.Temperature = temperature
	}
	if changed("ttime") {
		cfg.TTimeFS = ttime
	}
	if changed("ptime") {
		cfg.PTimeFS = ptime
	}
	if changed("compressibility") {
		cfg.Compressibility = compress
	}
	if changed("pressure") {
		cfg.ExternalStress = extStress
	}
	if changed("seed") {
		cfg.Seed = seed
	}
	if changed("log") {
		cfg.Output.LogFile = logFile
	}
	if changed("log-interval") {
		cfg.Output.LogInterval = logInterval
	}
	if changed("traj") {
		cfg.Output.Trajectory = trajectory
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	if pick {
		choice, ok, err := pickPreset()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		ensemble, preset = choice.Ensemble, choice.Preset
		if err := cmd.Flags().Set("ensemble", ensemble); err != nil {
			return err
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if replicas > 1 {
		return runReplicas(ctx, cfg)
	}

	var opts []experiment.Option
	opts = append(opts, experiment.WithLogger(log))

	if metricsAddr != "" {
		collector := metrics.NewCollector("mlmd")
		opts = append(opts, experiment.WithCollector(collector))
		go func() {
			if err := collector.Serve(ctx, metricsAddr, log); err != nil {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	var feed *viz.Feed
	if live {
		feed = viz.NewFeed(64)
		opts = append(opts, experiment.WithObserver(feed, cfg.Output.LogInterval))
		if cfg.Output.LogFile == "" {
			opts = append(opts, experiment.WithOutput(io.Discard))
		}
	}

	exp := experiment.New(cfg, opts...)
	if err := exp.Setup(); err != nil {
		return err
	}
	defer exp.Close()

	var result *sim.Result
	if live {
		result, err = runLive(ctx, exp, feed)
	} else {
		result, err = exp.Run(ctx)
	}
	switch {
	case errors.Is(err, context.Canceled) && result != nil:
		log.Warn("run interrupted", zap.Int("steps", result.Steps))
	case err != nil:
		var simErr *sim.SimulationError
		if errors.As(err, &simErr) {
			log.Error("simulation aborted", zap.Int("step", simErr.Step), zap.Error(simErr.Wrapped))
		}
		return err
	}
	if err := exp.Close(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "completed %d steps (%d evaluations) in %v\n", result.Steps, result.Evaluations, result.Elapsed)
	if noSave {
		return nil
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := exp.Record(st, result)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "run id: %s\n", runID)
	return nil
}

func runLive(ctx context.Context, exp *experiment.Experiment, feed *viz.Feed) (*sim.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := exp.Config()
	title := fmt.Sprintf("%s %g K", cfg.Ensemble, cfg.Temperature)
	prog := tea.NewProgram(viz.NewModel(feed, title, cfg.Steps), tea.WithAltScreen())

	type outcome struct {
		res *sim.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := exp.Run(ctx)
		feed.Finish(res, err)
		done <- outcome{res, err}
	}()

	if _, err := prog.Run(); err != nil {
		cancel()
		<-done
		return nil, err
	}
	// quitting the view stops the run
	cancel()
	out := <-done
	return out.res, out.err
}

func runReplicas(ctx context.Context, cfg *config.Config) error {
	rs := sim.NewReplicas(experiment.ReplicaFactory(cfg, log), replicas, cfg.Seed)
	results, err := rs.Run(ctx, cfg.Steps)
	if err != nil {
		return err
	}
	for i, r := range results {
		fmt.Printf("replica %d (seed %d): %d steps, relative drift %.3e, %v\n",
			i, cfg.Seed+int64(i), r.Steps, r.EnergyDrift, r.Elapsed)
	}
	return nil
}

func pickPreset() (viz.Choice, bool, error) {
	m, err := tea.NewProgram(viz.NewPicker()).Run()
	if err != nil {
		return viz.Choice{}, false, err
	}
	choice, ok := m.(viz.Picker).Selected()
	return choice, ok, nil
}
