package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "SPRINGSIM_"

// LoadDotEnv copies .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

type override struct {
	key   string
	apply func(c *Config, v string) error
}

func floatVar(dst func(c *Config) *float64) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return err
		}
		*dst(c) = f
		return nil
	}
}

func intVar(dst func(c *Config) *int) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func stringVar(dst func(c *Config) *string) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		*dst(c) = strings.TrimSpace(v)
		return nil
	}
}

var overrides = []override{
	{"TIME_DELTA", floatVar(func(c *Config) *float64 { return &c.TimeDelta })},
	{"INTEGRATOR", stringVar(func(c *Config) *string { return &c.Integrator })},
	{"MAX_CATCH_UP", intVar(func(c *Config) *int { return &c.MaxCatchUp })},
	{"FPS", intVar(func(c *Config) *int { return &c.FPS })},
	{"MASS", floatVar(func(c *Config) *float64 { return &c.InitialMass.Mass })},
	{"INITIAL_POSITION", floatVar(func(c *Config) *float64 { return &c.InitialMass.Position })},
	{"INITIAL_VELOCITY", floatVar(func(c *Config) *float64 { return &c.InitialMass.Velocity })},
	{"DAMPING_FACTOR", floatVar(func(c *Config) *float64 { return &c.InitialSpring.DampingFactor })},
	{"SPRING_FACTOR", floatVar(func(c *Config) *float64 { return &c.InitialSpring.SpringFactor })},
	{"AMPLITUDE", floatVar(func(c *Config) *float64 { return &c.InitialSpring.Amplitude })},
	{"FREQUENCY", floatVar(func(c *Config) *float64 { return &c.InitialSpring.Frequency })},
	{"PHASE_SHIFT", floatVar(func(c *Config) *float64 { return &c.InitialSpring.PhaseShift })},
	{"SERVER_ADDR", stringVar(func(c *Config) *string { return &c.Server.Addr })},
	{"LOG_LEVEL", stringVar(func(c *Config) *string { return &c.Log.Level })},
	{"LOG_FILE", stringVar(func(c *Config) *string { return &c.Log.File })},
}

// EnvKeys lists every recognised variable name.
func EnvKeys() []string {
	keys := make([]string, len(overrides))
	for i, o := range overrides {
		keys[i] = EnvPrefix + o.key
	}
	return keys
}

// ApplyEnv overlays SPRINGSIM_* variables onto c. Empty variables are
// skipped. A value that does not parse is an error naming the variable.
func ApplyEnv(c *Config) error {
	var errs []error
	for _, o := range overrides {
		key := EnvPrefix + o.key
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := o.apply(c, v); err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: %w", key, v, err))
		}
	}
	return errors.Join(errs...)
}
