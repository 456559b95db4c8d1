package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/san-kum/springsim/internal/config"
)

var (
	dataDir    string
	configFile string
	envFile    string
	preset     string
	logLevel   string
	logFile    string

	// live / serve
	frameRate int
	serve     bool
	addr      string
	watch     bool
	record    bool

	// run
	runDuration float64
	dt          float64
	integrator  string
	jsonOut     bool
	svgOut      string
	scriptFile  string
	noSave      bool

	// sweep
	sweepFields   []string
	sweepDuration float64
	objective     string
	threshold     float64
	workers       int
)

// main registers the commands and runs the live view when no subcommand is
// given. It exits with status 1 if the command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "springsim",
		Short:         "driven spring-mass simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runLive,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".springsim", "data directory for recorded runs")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with SPRINGSIM_* overrides")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "start from a named preset")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file")

	addLiveFlags := func(cmd *cobra.Command) {
		cmd.Flags().IntVar(&frameRate, "fps", 0, "host frame rate (default from config)")
		cmd.Flags().StringVar(&addr, "addr", "", "control panel listen address (default from config)")
		cmd.Flags().BoolVar(&watch, "watch", false, "hot reload initial_spring and mass from the config file")
		cmd.Flags().BoolVar(&record, "record", false, "record every tick to the data directory")
	}
	addLiveFlags(rootCmd)
	rootCmd.Flags().BoolVar(&serve, "serve", false, "also serve the HTTP control panel")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "interactive terminal view with the parameter panel",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addLiveFlags(liveCmd)
	liveCmd.Flags().BoolVar(&serve, "serve", false, "also serve the HTTP control panel")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the simulation headless behind the HTTP control panel",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	addLiveFlags(serveCmd)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a headless simulation and record it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	runCmd.Flags().Float64Var(&runDuration, "time", 20.0, "simulated seconds")
	runCmd.Flags().Float64Var(&dt, "dt", 0, "tick size in seconds (default from config)")
	runCmd.Flags().StringVar(&integrator, "integrator", "", "integrator (euler, rk4, verlet)")
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "print the run as JSON instead of a summary")
	runCmd.Flags().StringVar(&svgOut, "svg", "", "write a displacement trace to this SVG file")
	runCmd.Flags().StringVar(&scriptFile, "script", "", "play a scenario of timed parameter changes")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not record the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgOut, "svg", "", "also write the trace to this SVG file")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency, decay and phase portrait of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a recorded run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "grid search parameters against an objective",
		Args:  cobra.NoArgs,
		RunE:  sweepParameters,
	}
	sweepCmd.Flags().StringArrayVar(&sweepFields, "field", nil, "field=range, range is a,b,c or start:stop:step (repeatable)")
	sweepCmd.Flags().StringVar(&objective, "objective", "settle", "settle, peak or resonance")
	sweepCmd.Flags().Float64Var(&threshold, "threshold", 0.01, "settling band for the settle objective")
	sweepCmd.Flags().Float64Var(&sweepDuration, "time", 30.0, "simulated seconds per trial")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "parallel trials (default GOMAXPROCS)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "manage config files",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a config file with the defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}
	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "print the effective config after presets and overrides",
		Args:  cobra.NoArgs,
		RunE:  showConfig,
	}
	configCmd.AddCommand(configInitCmd, configShowCmd)

	rootCmd.AddCommand(liveCmd, serveCmd, runCmd, listCmd, plotCmd, analyzeCmd, exportCmd, sweepCmd, presetsCmd, configCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig layers defaults, the config file, the preset, the dotenv file,
// SPRINGSIM_* variables and finally command line flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if preset != "" {
		if err := cfg.ApplyPreset(preset); err != nil {
			return nil, err
		}
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = logFile
	}
	if flags.Changed("fps") {
		cfg.FPS = frameRate
	}
	if flags.Changed("addr") {
		cfg.Server.Addr = addr
	}
	if flags.Changed("dt") {
		cfg.TimeDelta = dt
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. While the terminal view owns the
// screen, logs go to the configured file or nowhere.
func newLogger(cfg *config.Config, terminal bool) (*slog.Logger, func() error, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return slog.New(slog.NewTextHandler(f, opts)), f.Close, nil
	}

	var w io.Writer = os.Stderr
	if terminal {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, opts)), func() error { return nil }, nil
}
