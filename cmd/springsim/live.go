package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/springsim/internal/config"
	"github.com/san-kum/springsim/internal/gui"
	"github.com/san-kum/springsim/internal/loop"
	"github.com/san-kum/springsim/internal/metrics"
	"github.com/san-kum/springsim/internal/params"
	"github.com/san-kum/springsim/internal/scene"
	"github.com/san-kum/springsim/internal/server"
	"github.com/san-kum/springsim/internal/sim"
	"github.com/san-kum/springsim/internal/storage"
	"github.com/san-kum/springsim/internal/transform"
)

// app is one fully wired simulation: surface, scene, driver and loop.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	surface *params.Surface
	scene   *scene.Scene
	driver  *sim.Driver
	metrics *metrics.Set
	loop    *loop.GameLoop
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	surface, err := params.New(cfg.Values(), params.WithTickSize(cfg.Sim().TimeDelta))
	if err != nil {
		return nil, err
	}

	sc, err := cfg.BuildScene(ctx, cfg.Rig())
	if err != nil {
		return nil, fmt.Errorf("build scene: %w", err)
	}
	springObj, ok := sc.Object(cfg.Bindings.Spring)
	if !ok {
		return nil, fmt.Errorf("scene has no object %q to bind the spring to", cfg.Bindings.Spring)
	}
	massObj, ok := sc.Object(cfg.Bindings.Mass)
	if !ok {
		return nil, fmt.Errorf("scene has no object %q to bind the mass to", cfg.Bindings.Mass)
	}

	layout, err := cfg.TransformLayout()
	if err != nil {
		return nil, err
	}
	mapper, err := transform.NewMapper(layout)
	if err != nil {
		return nil, err
	}

	set := metrics.Standard(surface)
	driver, err := sim.NewDriver(cfg.Sim(), surface, mapper, massObj, springObj,
		sim.WithLogger(logger),
		sim.WithObserver(set),
	)
	if err != nil {
		return nil, err
	}

	lp := loop.New(cfg.FPS, loop.WithLogger(logger))
	lp.AddSimulation(driver)

	return &app{
		cfg:     cfg,
		logger:  logger,
		surface: surface,
		scene:   sc,
		driver:  driver,
		metrics: set,
		loop:    lp,
	}, nil
}

// startRecording attaches a recorder to the driver. The returned function
// closes it and reports where it went.
func (a *app) startRecording(label string) (func(), error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	rec, err := st.Begin(label, a.cfg.Sim(), a.surface.Read().Values)
	if err != nil {
		return nil, err
	}
	a.driver.AddObserver(rec)
	return func() {
		meta, err := rec.Close(a.metrics.Values())
		if err != nil {
			a.logger.Error("recording failed", "run", meta.ID, "err", err)
			return
		}
		a.logger.Info("recording saved", "run", meta.ID, "ticks", meta.Ticks, "resets", meta.Resets)
	}, nil
}

// run starts the loop plus the optional panel server and config watcher.
// extra runs alongside them; when it returns, everything stops.
func (a *app) run(ctx context.Context, withServer bool, extra func(ctx context.Context) error) error {
	if watch && configFile == "" {
		return errors.New("--watch needs --config")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if record {
		done, err := a.startRecording("live")
		if err != nil {
			return err
		}
		defer done()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.loop.Run(ctx) })

	if withServer {
		srv := server.New(a.cfg.ServerConfig(), a.surface, a.driver, a.metrics, a.logger)
		g.Go(func() error { return srv.Run(ctx) })
	}

	if watch {
		w := config.NewWatcher(configFile, a.surface, config.WithWatchLogger(a.logger))
		g.Go(func() error { return w.Run(ctx) })
	}

	if extra != nil {
		g.Go(func() error {
			defer cancel()
			return extra(ctx)
		})
	}

	err := g.Wait()
	a.scene.Release()
	return err
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer closeLog()

	a, err := buildApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	model := gui.New(a.surface, a.driver, a.metrics, a.scene, gui.Options{})
	return a.run(cmd.Context(), serve, func(ctx context.Context) error {
		return gui.Run(ctx, model)
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer closeLog()

	a, err := buildApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	fmt.Printf("control panel on http://%s/api/v1/params\n", cfg.Server.Addr)
	return a.run(cmd.Context(), true, nil)
}
