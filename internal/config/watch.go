package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/san-kum/springsim/internal/params"
)

const DefaultDebounce = 100 * time.Millisecond

// Watcher re-applies the tunable part of a config file whenever it changes
// on disk. Only initial_spring and initial_mass.mass are applied, as one
// group write; structural settings need a restart of the program.
type Watcher struct {
	path     string
	surface  *params.Surface
	logger   *slog.Logger
	debounce time.Duration
	onReload func(params.Snapshot, error)
}

type WatchOption func(*Watcher)

func WithWatchLogger(l *slog.Logger) WatchOption {
	return func(w *Watcher) { w.logger = l }
}

func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) { w.debounce = d }
}

// OnReload registers a callback that sees the outcome of every reload.
func OnReload(fn func(params.Snapshot, error)) WatchOption {
	return func(w *Watcher) { w.onReload = fn }
}

func NewWatcher(path string, surface *params.Surface, opts ...WatchOption) *Watcher {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	w := &Watcher{
		path:     abs,
		surface:  surface,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Reload reads the file and publishes its tunable values. On any error
// the surface is left as it was.
func (w *Watcher) Reload() (params.Snapshot, error) {
	cfg, err := Load(w.path)
	if err == nil {
		err = ApplyEnv(cfg)
	}
	if err != nil {
		return w.surface.Read(), err
	}
	return w.surface.Update(func(v *params.Values) error {
		v.SpringParameters = cfg.InitialSpring
		v.Mass = cfg.InitialMass.Mass
		return nil
	})
}

// Run watches the file's directory, so editors that replace the file by
// renaming are seen too. It returns nil when ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	w.logger.Info("watching config", "path", w.path)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending = time.After(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", "err", err)
		case <-pending:
			pending = nil
			snap, err := w.Reload()
			if err != nil {
				w.logger.Warn("config reload rejected", "path", w.path, "err", err)
			} else {
				w.logger.Info("config reloaded", "version", snap.Version)
			}
			if w.onReload != nil {
				w.onReload(snap, err)
			}
		}
	}
}
