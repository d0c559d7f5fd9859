package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/SamEberl/control-playground/internal/config"
	"github.com/SamEberl/control-playground/internal/experiment"
	"github.com/SamEberl/control-playground/internal/optim"
	"github.com/SamEberl/control-playground/internal/plot"
	"github.com/SamEberl/control-playground/internal/sim"
	"github.com/SamEberl/control-playground/internal/storage"
	"github.com/SamEberl/control-playground/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	verbose    bool

	controller  string
	integrator  string
	duration    float64
	seed        int64
	theta       float64
	omega       float64
	pos         float64
	vel         float64
	refX        float64
	refTheta    float64
	kp, ki, kd  float64
	disturbance string
	amplitude   float64
	start       float64
	distLen     float64

	outDir string
	metric string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cartsim",
		Short: "interactive cart-pole balancing lab",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".cartsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	addRunFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
		cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
		cmd.Flags().StringVar(&controller, "controller", "angle-pid", "controller")
		cmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator")
		cmd.Flags().Float64Var(&duration, "time", 10.0, "duration")
		cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
		cmd.Flags().Float64Var(&theta, "theta", 0.15, "initial pole angle")
		cmd.Flags().Float64Var(&omega, "omega", 0.0, "initial angular velocity")
		cmd.Flags().Float64Var(&pos, "pos", 0.0, "initial cart position")
		cmd.Flags().Float64Var(&vel, "vel", 0.0, "initial cart velocity")
		cmd.Flags().Float64Var(&refX, "ref-x", 0.0, "position reference")
		cmd.Flags().Float64Var(&refTheta, "ref-theta", 0.0, "angle reference")
		cmd.Flags().Float64Var(&kp, "kp", 50.0, "proportional gain")
		cmd.Flags().Float64Var(&ki, "ki", 1.0, "integral gain")
		cmd.Flags().Float64Var(&kd, "kd", 10.0, "derivative gain")
		cmd.Flags().StringVar(&disturbance, "disturbance", "none", "disturbance profile (none|pulse|sine|perlin)")
		cmd.Flags().Float64Var(&amplitude, "amplitude", 10.0, "disturbance amplitude")
		cmd.Flags().Float64Var(&start, "start", 2.0, "disturbance start (pulse)")
		cmd.Flags().Float64Var(&distLen, "length", 0.2, "disturbance duration / time scale")
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run headless simulation and save the result",
		RunE:  runHeadless,
	}
	addRunFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "interactive terminal session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(cmd)
		},
	}
	addRunFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "terminal plots of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	renderCmd := &cobra.Command{
		Use:   "render [run_id]",
		Short: "render PNG time-series and phase plots",
		Args:  cobra.ExactArgs(1),
		RunE:  renderRun,
	}
	renderCmd.Flags().StringVar(&outDir, "out", "plots", "output directory")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id] [path]",
		Short: "export run trajectory to CSV",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportCSV(args[0], args[1])
		},
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id] [path]",
		Short: "export run metadata and trajectory to JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(args[0], args[1])
		},
	}

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search controller gains",
		RunE:  tuneGains,
	}
	addRunFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&metric, "metric", "settling_time", "metric to minimize")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListPresets()
			sort.Strings(names)
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, renderCmd, exportCSVCmd, exportJSONCmd, tuneCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// buildConfig layers preset, config file and flags, later ones winning
// for flags the user actually set.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %s)",
				preset, strings.Join(config.ListPresets(), ", "))
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	set("controller", func() { cfg.Controller = controller })
	set("integrator", func() { cfg.Integrator = integrator })
	set("time", func() { cfg.Duration = duration })
	set("seed", func() { cfg.Seed = seed })
	set("theta", func() { cfg.InitState.Theta = theta })
	set("omega", func() { cfg.InitState.ThetaDot = omega })
	set("pos", func() { cfg.InitState.X = pos })
	set("vel", func() { cfg.InitState.XDot = vel })
	set("ref-x", func() { cfg.Reference.X = refX })
	set("ref-theta", func() { cfg.Reference.Theta = refTheta })
	set("kp", func() { cfg.Gains.Kp = kp })
	set("ki", func() { cfg.Gains.Ki = ki })
	set("kd", func() { cfg.Gains.Kd = kd })
	set("disturbance", func() { cfg.Disturbance.Profile = disturbance })
	set("amplitude", func() { cfg.Disturbance.Amplitude = amplitude })
	set("start", func() { cfg.Disturbance.Start = start })
	set("length", func() { cfg.Disturbance.Duration = distLen })

	return cfg, nil
}

func runHeadless(cmd *cobra.Command, args []string) error {
	setupLogging()

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}

	slog.Info("starting run", "controller", cfg.Controller, "duration", cfg.Duration)
	wall := time.Now()

	result, err := exp.Run(context.Background())
	if err != nil {
		return err
	}

	runID, err := st.Save(cfg.Controller, cfg.Integrator, cfg.Disturbance.Profile,
		cfg.Seed, cfg.Physics.Dt, cfg.Duration, result)
	if err != nil {
		return err
	}
	slog.Info("run saved", "id", runID, "steps", len(result.Times), "wall", time.Since(wall))

	printMetrics(result.Metrics)
	if result.Err != nil {
		fmt.Printf("run ended early: %v\n", result.Err)
	}
	return nil
}

func runLive(cmd *cobra.Command) error {
	setupLogging()

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	p, err := cfg.Params()
	if err != nil {
		return err
	}

	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}
	return viz.Run(exp.Loop(), p, "cartsim: "+cfg.Controller)
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCONTROLLER\tDISTURBANCE\tDURATION\tSETTLED\tMAX θ ERR")
	for _, run := range runs {
		settled := "-"
		if t, ok := run.Metrics["settling_time"]; ok && t < run.Duration {
			settled = fmt.Sprintf("%.2fs", t)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1fs\t%s\t%.4f\n",
			run.ID, run.Controller, run.Disturbance, run.Duration, settled, run.Metrics["max_theta_error"])
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	times, states, forces, err := storage.New(dataDir).LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	if len(times) == 0 {
		return fmt.Errorf("run %s has no samples", args[0])
	}

	series := []struct {
		name string
		vals []float64
	}{
		{"pole angle (rad)", componentOf(states, sim.Theta)},
		{"cart position (m)", componentOf(states, sim.X)},
		{"applied force (N)", forces},
	}
	for _, s := range series {
		fmt.Println(asciigraph.Plot(downsample(s.vals, 120),
			asciigraph.Height(10), asciigraph.Width(120), asciigraph.Caption(s.name)))
		fmt.Println()
	}
	return nil
}

func renderRun(cmd *cobra.Command, args []string) error {
	times, states, forces, err := storage.New(dataDir).LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	if err := plot.TimeSeries(outDir, times, states, forces); err != nil {
		return err
	}
	if err := plot.PolePhase(outDir+"/phase_pole.png", states); err != nil {
		return err
	}
	if err := plot.CartPhase(outDir+"/phase_cart.png", states); err != nil {
		return err
	}
	fmt.Printf("plots written to %s/\n", outDir)
	return nil
}

func tuneGains(cmd *cobra.Command, args []string) error {
	setupLogging()

	base, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	search := optim.NewGridSearch(
		[]string{"kp", "ki", "kd"},
		[][]float64{
			{20, 35, 50, 75, 100},
			{0, 0.5, 1, 2},
			{5, 10, 15, 25},
		},
	)

	build := func(gains map[string]float64) (*experiment.Experiment, error) {
		cfg := *base
		cfg.Gains = config.GainsConfig{Kp: gains["kp"], Ki: gains["ki"], Kd: gains["kd"]}
		return experiment.New(&cfg)
	}

	slog.Info("grid search", "controller", base.Controller, "metric", metric)
	best, score, err := search.Search(context.Background(), build, metric)
	if err != nil {
		return err
	}
	if best == nil {
		return fmt.Errorf("no gain combination produced a finite %s", metric)
	}

	fmt.Printf("best %s: %.4f\n", metric, score)
	fmt.Printf("gains: kp=%.2f ki=%.2f kd=%.2f\n", best["kp"], best["ki"], best["kd"])
	return nil
}

func printMetrics(metrics map[string]float64) {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-16s %.4f\n", name, metrics[name])
	}
}

func componentOf(states []sim.State, idx int) []float64 {
	out := make([]float64, len(states))
	for i, s := range states {
		out[i] = s[idx]
	}
	return out
}

// downsample keeps terminal plots readable for long runs.
func downsample(vals []float64, max int) []float64 {
	if len(vals) <= max {
		return vals
	}
	out := make([]float64, max)
	for i := range out {
		out[i] = vals[i*len(vals)/max]
	}
	return out
}
