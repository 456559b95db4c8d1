package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/springsim/internal/integrators"
	"github.com/san-kum/springsim/internal/loop"
	"github.com/san-kum/springsim/internal/params"
	"github.com/san-kum/springsim/internal/physics"
	"github.com/san-kum/springsim/internal/scene"
	"github.com/san-kum/springsim/internal/server"
	"github.com/san-kum/springsim/internal/sim"
	"github.com/san-kum/springsim/internal/transform"
)

const (
	DefaultTimeDelta     = 0.005
	DefaultMaxFrameDelta = 1.0
	DefaultAmplitude     = 0.5
	DefaultRoomScale     = 2.0
	DefaultRoomHalfSize  = 2.0
	DefaultFOV           = 60.0
)

// Config is the on-disk description of a simulation and its surroundings.
// Times are in seconds and angles in degrees.
type Config struct {
	TimeDelta     float64                  `yaml:"time_delta"`
	Integrator    string                   `yaml:"integrator"`
	MaxCatchUp    int                      `yaml:"max_catch_up"`
	MaxFrameDelta float64                  `yaml:"max_frame_delta"`
	FPS           int                      `yaml:"fps"`
	InitialMass   physics.MassState        `yaml:"initial_mass"`
	InitialSpring physics.SpringParameters `yaml:"initial_spring"`
	Bindings      BindingConfig            `yaml:"bindings"`
	Layout        LayoutConfig             `yaml:"layout"`
	Scene         SceneConfig              `yaml:"scene"`
	Server        ServerConfig             `yaml:"server"`
	Log           LogConfig                `yaml:"log"`
}

// BindingConfig names the scene objects the simulation writes to.
type BindingConfig struct {
	Spring string `yaml:"spring"`
	Mass   string `yaml:"mass"`
}

type LayoutConfig struct {
	Origin     mgl64.Vec3 `yaml:"origin"`
	Axis       mgl64.Vec3 `yaml:"axis"`
	RestLength float64    `yaml:"rest_length"`
	MinStretch float64    `yaml:"min_stretch"`
	Pivot      string     `yaml:"pivot"`
}

type CameraConfig struct {
	Position mgl64.Vec3 `yaml:"position"`
	Target   mgl64.Vec3 `yaml:"target"`
	FOV      float64    `yaml:"fov"`
}

// SceneConfig describes the room. When Floors is empty the six-tile room is
// generated from RoomScale and RoomHalfSize.
type SceneConfig struct {
	Camera       CameraConfig      `yaml:"camera"`
	RoomScale    float64           `yaml:"room_scale"`
	RoomHalfSize float64           `yaml:"room_half_size"`
	Floors       []scene.FloorSpec `yaml:"floors,omitempty"`
}

type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	TelemetryHz  float64  `yaml:"telemetry_hz"`
	WriteRate    float64  `yaml:"write_rate"`
	WriteBurst   int      `yaml:"write_burst"`
	AllowOrigins []string `yaml:"allow_origins,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

func DefaultConfig() *Config {
	layout := transform.DefaultLayout()
	cam := scene.DefaultCamera()
	srv := server.DefaultConfig()
	spring := physics.DefaultSpringParameters()
	spring.Amplitude = DefaultAmplitude

	return &Config{
		TimeDelta:     DefaultTimeDelta,
		Integrator:    integrators.Default,
		MaxCatchUp:    sim.DefaultMaxCatchUp,
		MaxFrameDelta: DefaultMaxFrameDelta,
		FPS:           loop.DefaultFPS,
		InitialMass:   physics.MassState{Mass: physics.DefaultMass},
		InitialSpring: spring,
		Bindings:      BindingConfig{Spring: "spring", Mass: "mass"},
		Layout: LayoutConfig{
			Origin:     layout.Origin,
			Axis:       layout.Axis,
			RestLength: layout.RestLength,
			MinStretch: layout.MinStretch,
			Pivot:      layout.Pivot.String(),
		},
		Scene: SceneConfig{
			Camera: CameraConfig{
				Position: cam.Position,
				Target:   cam.Target,
				FOV:      DefaultFOV,
			},
			RoomScale:    DefaultRoomScale,
			RoomHalfSize: DefaultRoomHalfSize,
		},
		Server: ServerConfig{
			Addr:        srv.Addr,
			TelemetryHz: srv.TelemetryHz,
			WriteRate:   srv.WriteRate,
			WriteBurst:  srv.WriteBurst,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a YAML file over the defaults, so a file only needs the keys it
// changes.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks every section and joins the failures.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Sim().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("simulation: %w", err))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", c.FPS))
	}
	if err := c.Values().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("initial values: %w", err))
	} else if c.TimeDelta > 0 {
		if err := c.Values().CheckStep(c.TimeDelta); err != nil {
			errs = append(errs, fmt.Errorf("initial values at time delta %g: %w", c.TimeDelta, err))
		}
	}
	if c.Bindings.Spring == "" || c.Bindings.Mass == "" {
		errs = append(errs, errors.New("bindings: spring and mass object names are required"))
	} else if c.Bindings.Spring == c.Bindings.Mass {
		errs = append(errs, fmt.Errorf("bindings: spring and mass share the name %q", c.Bindings.Spring))
	}
	if layout, err := c.TransformLayout(); err != nil {
		errs = append(errs, fmt.Errorf("layout: %w", err))
	} else if err := layout.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("layout: %w", err))
	}
	if err := c.Camera().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scene: %w", err))
	}
	if len(c.Scene.Floors) == 0 && !(c.Scene.RoomScale > 0 && c.Scene.RoomHalfSize > 0) {
		errs = append(errs, fmt.Errorf("scene: room scale and half size must be positive, got %f and %f",
			c.Scene.RoomScale, c.Scene.RoomHalfSize))
	}
	if c.Server.TelemetryHz <= 0 || c.Server.WriteRate <= 0 || c.Server.WriteBurst <= 0 {
		errs = append(errs, errors.New("server: telemetry rate and write limits must be positive"))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	return errors.Join(errs...)
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// Sim returns the structural settings for the driver.
func (c *Config) Sim() sim.Config {
	return sim.Config{
		TimeDelta:     seconds(c.TimeDelta),
		MaxCatchUp:    c.MaxCatchUp,
		MaxFrameDelta: seconds(c.MaxFrameDelta),
		Integrator:    c.Integrator,
	}
}

// Values returns the construction values for the parameter surface.
func (c *Config) Values() params.Values {
	return params.FromInitial(c.InitialSpring, c.InitialMass)
}

func (c *Config) TransformLayout() (transform.Layout, error) {
	pivot, err := transform.ParsePivot(c.Layout.Pivot)
	if err != nil {
		return transform.Layout{}, err
	}
	return transform.Layout{
		Origin:     c.Layout.Origin,
		Axis:       c.Layout.Axis,
		RestLength: c.Layout.RestLength,
		MinStretch: c.Layout.MinStretch,
		Pivot:      pivot,
	}, nil
}

func (c *Config) Camera() scene.Camera {
	cam := scene.DefaultCamera()
	cam.Position = c.Scene.Camera.Position
	cam.Target = c.Scene.Camera.Target
	cam.FOV = mgl64.DegToRad(c.Scene.Camera.FOV)
	return cam
}

func (c *Config) FloorSpecs() []scene.FloorSpec {
	if len(c.Scene.Floors) > 0 {
		return c.Scene.Floors
	}
	return scene.RoomFloors(c.Scene.RoomScale, c.Scene.RoomHalfSize)
}

// Rig creates the spring and mass objects under their bound names.
func (c *Config) Rig() *scene.SpringRig {
	pivot, _ := transform.ParsePivot(c.Layout.Pivot)
	return scene.NewNamedSpringRig(c.Bindings.Spring, c.Bindings.Mass,
		c.Layout.RestLength, pivot == transform.PivotCenter)
}

// BuildScene assembles the configured room around rig.
func (c *Config) BuildScene(ctx context.Context, rig *scene.SpringRig) (*scene.Scene, error) {
	return scene.Assemble(ctx, scene.CameraBuilder(c.Camera()), scene.Floors(c.FloorSpecs()), rig)
}

func (c *Config) ServerConfig() server.Config {
	return server.Config{
		Addr:         c.Server.Addr,
		TelemetryHz:  c.Server.TelemetryHz,
		WriteRate:    c.Server.WriteRate,
		WriteBurst:   c.Server.WriteBurst,
		AllowOrigins: c.Server.AllowOrigins,
	}
}

func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}
