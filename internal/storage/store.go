package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/san-kum/springsim/internal/params"
	"github.com/san-kum/springsim/internal/physics"
	"github.com/san-kum/springsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	samplesFile  = "states.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

var header = []string{"epoch", "tick", "time", "displacement", "elongation", "anchor", "velocity", "mass"}

// Store keeps recorded runs as one directory each, holding metadata.json
// and states.csv.
type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes one recorded run.
type RunMetadata struct {
	ID          string             `json:"id"`
	Label       string             `json:"label"`
	Timestamp   time.Time          `json:"timestamp"`
	TimeDelta   float64            `json:"time_delta"`
	Integrator  string             `json:"integrator"`
	Duration    float64            `json:"duration"`
	Ticks       uint64             `json:"ticks"`
	Resets      int                `json:"resets"`
	Parameters  params.Values      `json:"parameters"`
	EnergyDrift float64            `json:"energy_drift"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
}

// Recording streams samples to disk as they are produced. It satisfies
// sim.Observer and sim.Resetter, so it can be attached to a live driver.
type Recording struct {
	mu     sync.Mutex
	store  *Store
	meta   RunMetadata
	file   *os.File
	w      *csv.Writer
	epoch  int
	err    error
	closed bool
}

// Begin creates the run directory and writes the CSV header. The label
// prefixes the run id.
func (s *Store) Begin(label string, cfg sim.Config, v params.Values) (*Recording, error) {
	now := s.now()
	id := fmt.Sprintf("%s_%d", label, now.UnixNano())
	dir := filepath.Join(s.baseDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	f, err := os.Create(filepath.Join(dir, samplesFile))
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	return &Recording{
		store: s,
		file:  f,
		w:     w,
		meta: RunMetadata{
			ID:         id,
			Label:      label,
			Timestamp:  now,
			TimeDelta:  cfg.TimeDelta.Seconds(),
			Integrator: cfg.Integrator,
			Parameters: v,
		},
	}, nil
}

func (r *Recording) ID() string { return r.meta.ID }

func (r *Recording) OnTick(s physics.Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.err != nil {
		return
	}
	r.err = r.w.Write(row(r.epoch, s))
	r.meta.Ticks++
	r.meta.Duration = s.Time
}

// OnReset starts a new epoch in the recording.
func (r *Recording) OnReset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.meta.Ticks == 0 && r.epoch == 0 {
		return
	}
	r.epoch++
	r.meta.Resets++
}

// Close flushes the samples and writes the metadata. metrics may be nil.
// It returns the first error seen while recording.
func (r *Recording) Close(metrics map[string]float64) (RunMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return r.meta, r.err
	}
	r.closed = true
	r.meta.Metrics = metrics

	r.w.Flush()
	err := errors.Join(r.err, r.w.Error(), r.file.Close())
	if err != nil {
		return r.meta, err
	}
	return r.meta, r.store.writeMeta(r.meta)
}

func (s *Store) writeMeta(meta RunMetadata) error {
	f, err := os.Create(filepath.Join(s.baseDir, meta.ID, metadataFile))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func row(epoch int, s physics.Sample) []string {
	return []string{
		strconv.Itoa(epoch),
		strconv.FormatUint(s.Tick, 10),
		formatFloat(s.Time),
		formatFloat(s.Displacement),
		formatFloat(s.Elongation),
		formatFloat(s.Anchor),
		formatFloat(s.Mass.Velocity),
		formatFloat(s.Mass.Mass),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Save records a finished headless run in one call.
func (s *Store) Save(label string, cfg sim.Config, v params.Values, result *sim.Result, metrics map[string]float64) (string, error) {
	rec, err := s.Begin(label, cfg, v)
	if err != nil {
		return "", err
	}
	for _, sample := range result.Samples {
		rec.OnTick(sample)
	}
	rec.mu.Lock()
	rec.meta.Ticks = result.Ticks
	rec.meta.EnergyDrift = result.EnergyDrift
	rec.mu.Unlock()

	if _, err := rec.Close(metrics); err != nil {
		return "", err
	}
	return rec.ID(), nil
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadSamples reads a run's samples back. Rows that do not parse are
// reported as errors rather than skipped.
func (s *Store) LoadSamples(runID string) ([]physics.Sample, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, samplesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return []physics.Sample{}, nil
		}
		return nil, err
	}

	samples := make([]physics.Sample, 0)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		sample, err := parseRow(rec)
		if err != nil {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("%s line %d: %w", samplesFile, line, err)
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

func parseRow(rec []string) (physics.Sample, error) {
	var s physics.Sample
	tick, err := strconv.ParseUint(rec[1], 10, 64)
	if err != nil {
		return s, err
	}
	vals := make([]float64, 0, 6)
	for _, field := range rec[2:] {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return s, err
		}
		vals = append(vals, v)
	}
	s.Tick = tick
	s.Time = vals[0]
	s.Displacement = vals[1]
	s.Elongation = vals[2]
	s.Anchor = vals[3]
	s.Mass = physics.MassState{Position: vals[1], Velocity: vals[4], Mass: vals[5]}
	return s, nil
}
