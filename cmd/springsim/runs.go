package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/springsim/internal/analysis"
	"github.com/san-kum/springsim/internal/automation"
	"github.com/san-kum/springsim/internal/config"
	"github.com/san-kum/springsim/internal/export"
	"github.com/san-kum/springsim/internal/metrics"
	"github.com/san-kum/springsim/internal/optim"
	"github.com/san-kum/springsim/internal/params"
	"github.com/san-kum/springsim/internal/physics"
	"github.com/san-kum/springsim/internal/sim"
	"github.com/san-kum/springsim/internal/storage"
)

func runLabel() string {
	if preset != "" {
		return preset
	}
	return "run"
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if scriptFile != "" {
		return runScript(cmd.Context(), cfg)
	}

	surface, err := params.New(cfg.Values(), params.WithTickSize(cfg.Sim().TimeDelta))
	if err != nil {
		return err
	}
	set := metrics.Standard(surface)

	if !jsonOut {
		fmt.Printf("running spring simulation for %.2fs...\n", runDuration)
	}
	start := time.Now()
	result, err := sim.Run(cmd.Context(), cfg.Sim(), cfg.Values(), runDuration, set)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	meta := storage.RunMetadata{
		Label:       runLabel(),
		Timestamp:   start,
		TimeDelta:   cfg.TimeDelta,
		Integrator:  cfg.Integrator,
		Duration:    result.Duration,
		Ticks:       result.Ticks,
		Parameters:  cfg.Values(),
		EnergyDrift: result.EnergyDrift,
		Metrics:     set.Values(),
	}
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		id, err := st.Save(meta.Label, cfg.Sim(), cfg.Values(), result, meta.Metrics)
		if err != nil {
			return err
		}
		meta.ID = id
	}

	if svgOut != "" {
		if err := writeTrace(svgOut, result.Samples); err != nil {
			return err
		}
	}
	if jsonOut {
		return export.JSON(os.Stdout, meta, result.Samples)
	}

	fmt.Printf("completed in %v\n", elapsed)
	if meta.ID != "" {
		fmt.Printf("run id: %s\n", meta.ID)
	}
	fmt.Printf("ticks: %d\n", result.Ticks)
	fmt.Printf("energy drift: %.3e\n", result.EnergyDrift)
	printMetrics(meta.Metrics)
	return nil
}

func runScript(ctx context.Context, cfg *config.Config) error {
	sc, err := automation.LoadScenario(scriptFile)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer closeLog()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.scene.Release()

	if !noSave {
		done, err := a.startRecording(sc.Name)
		if err != nil {
			return err
		}
		defer done()
	}

	var samples []physics.Sample
	report, err := automation.Play(ctx, sc, a.driver, func(f sim.Frame) {
		samples = append(samples, f.Sample)
	})
	if err != nil {
		return err
	}

	fmt.Printf("scenario: %s\n", sc.Name)
	if sc.Description != "" {
		fmt.Printf("  %s\n", sc.Description)
	}
	fmt.Printf("frames: %d\n", report.Frames)
	fmt.Printf("steps applied: %d\n", report.Applied)
	for _, r := range report.Rejected {
		fmt.Printf("  rejected: %v\n", r)
	}
	fmt.Printf("final: t=%.3fs x=%.6f epoch=%d\n", report.Final.Time, report.Final.Displacement, report.Final.Epoch)
	printMetrics(a.metrics.Values())

	if svgOut != "" {
		return writeTrace(svgOut, samples)
	}
	return nil
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func writeTrace(path string, samples []physics.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.TraceSVG(f, samples, 800, 300, export.Displacement, export.Anchor); err != nil {
		f.Close()
		return err
	}
	return f.Close()
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
	fmt.Fprintln(w, "ID\tTIME\tDURATION\tDT\tINTEG\tTICKS\tRESETS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%.2fs\t%.4fs\t%s\t%d\t%d\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.TimeDelta,
			run.Integrator,
			run.Ticks,
			run.Resets,
		)
	}
	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, []physics.Sample, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(samples) == 0 {
		return nil, nil, fmt.Errorf("run %s has no samples", runID)
	}
	return meta, samples, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("samples: %d\n\n", len(samples))

	series := []export.Series{export.Displacement, export.Elongation, export.Anchor}
	for _, s := range series {
		data := make([]float64, len(samples))
		for i, sample := range samples {
			data[i] = s.Values(sample)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.Name+" vs time"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if svgOut != "" {
		return writeTrace(svgOut, samples)
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}

	p := meta.Parameters
	natural := math.Sqrt(p.SpringFactor/p.Mass) / (2 * math.Pi)
	expected := physics.DecayRate(p.SpringParameters, p.Mass)

	fmt.Printf("analysis: %s\n\n", meta.ID)
	fmt.Printf("natural frequency:  %.4f Hz\n", natural)
	fmt.Printf("dominant frequency: %.4f Hz\n", analysis.DominantFrequency(samples, meta.TimeDelta))
	fmt.Printf("drive frequency:    %.4f Hz\n", p.Frequency)
	if rate, ok := analysis.MeasuredDecayRate(samples); ok {
		fmt.Printf("decay rate:         %.4f /s (model %.4f /s)\n", rate, expected)
	} else {
		fmt.Printf("decay rate:         not enough peaks (model %.4f /s)\n", expected)
	}

	fmt.Println("\nphase portrait (position vs velocity):")
	fmt.Print(analysis.PortraitASCII(analysis.Portrait(samples), 72, 20))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return export.JSON(os.Stdout, *meta, samples)
}

func sweepParameters(cmd *cobra.Command, args []string) error {
	if len(sweepFields) == 0 {
		return fmt.Errorf("at least one --field name=range is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	fields := make([]params.Field, 0, len(sweepFields))
	ranges := make([][]float64, 0, len(sweepFields))
	for _, spec := range sweepFields {
		name, span, ok := strings.Cut(spec, "=")
		if !ok {
			return fmt.Errorf("--field %q: expected name=range", spec)
		}
		f, err := params.ParseField(name)
		if err != nil {
			return err
		}
		r, err := optim.ParseRange(span)
		if err != nil {
			return err
		}
		fields = append(fields, f)
		ranges = append(ranges, r)
	}

	var obj optim.Objective
	switch objective {
	case "settle":
		obj = optim.SettlingTime(threshold)
	case "peak":
		obj = optim.PeakDisplacement
	case "resonance":
		obj = optim.NegPeakDisplacement
	default:
		return fmt.Errorf("unknown objective %q", objective)
	}

	g, err := optim.NewGridSearch(fields, ranges)
	if err != nil {
		return err
	}
	fmt.Printf("sweeping %d points for %.1fs each...\n", g.Size(), sweepDuration)
	best, trials, err := g.Search(cmd.Context(), cfg.Sim(), cfg.Values(), sweepDuration, obj, workers)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		header = append(header, strings.ToUpper(f.String()))
	}
	fmt.Fprintln(w, strings.Join(append(header, "SCORE"), "\t"))
	for i, tr := range trials {
		if i == 10 {
			break
		}
		row := make([]string, 0, len(fields)+1)
		for _, f := range fields {
			row = append(row, fmt.Sprintf("%.4g", tr.Values.Get(f)))
		}
		score := fmt.Sprintf("%.4f", tr.Score)
		if tr.Err != nil {
			score = "invalid"
		}
		fmt.Fprintln(w, strings.Join(append(row, score), "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println("\nbest:")
	for _, f := range fields {
		fmt.Printf("  %s = %.6g\n", f, best.Values.Get(f))
	}
	return nil
}
