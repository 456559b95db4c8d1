package scene

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"
)

// Builder contributes objects or a camera to a scene.
type Builder interface {
	Build(s *Scene) error
}

type BuilderFunc func(s *Scene) error

func (f BuilderFunc) Build(s *Scene) error { return f(s) }

// Assemble runs the builders concurrently, each into its own staging scene,
// then merges the results in argument order. A later camera wins.
func Assemble(ctx context.Context, builders ...Builder) (*Scene, error) {
	staged := make([]*Scene, len(builders))
	g, ctx := errgroup.WithContext(ctx)
	for i, b := range builders {
		i, b := i, b
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			part := New()
			if err := b.Build(part); err != nil {
				return fmt.Errorf("scene builder %d: %w", i, err)
			}
			staged[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := New()
	for _, part := range staged {
		if part.cameraSet {
			s.SetCamera(part.camera)
		}
		if err := s.Add(part.objects...); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func CameraBuilder(c Camera) Builder {
	return BuilderFunc(func(s *Scene) error {
		if err := c.Validate(); err != nil {
			return err
		}
		s.SetCamera(c)
		return nil
	})
}

// FloorSpec places one floor tile. Rotation is XYZ Euler angles in degrees.
type FloorSpec struct {
	Name     string     `yaml:"name" json:"name"`
	Position mgl64.Vec3 `yaml:"position" json:"position"`
	Rotation mgl64.Vec3 `yaml:"rotation" json:"rotation"`
	Scale    float64    `yaml:"scale" json:"scale"`
	Cull     CullMode   `yaml:"cull" json:"cull"`
}

func (f FloorSpec) Transform() Transform {
	scale := f.Scale
	if scale == 0 {
		scale = 1
	}
	return Transform{
		Position: f.Position,
		Scale:    mgl64.Vec3{scale, scale, scale},
		Rotation: mgl64.AnglesToQuat(
			mgl64.DegToRad(f.Rotation.X()),
			mgl64.DegToRad(f.Rotation.Y()),
			mgl64.DegToRad(f.Rotation.Z()),
			mgl64.XYZ,
		),
	}
}

// RoomFloors returns six unit tiles scaled by scale and pushed out to
// halfSize on each axis.
func RoomFloors(scale, halfSize float64) []FloorSpec {
	a := halfSize
	return []FloorSpec{
		{Name: "floor", Position: mgl64.Vec3{0, -a, 0}, Rotation: mgl64.Vec3{90, 0, 0}, Scale: scale, Cull: CullNone},
		{Name: "ceiling", Position: mgl64.Vec3{0, a, 0}, Rotation: mgl64.Vec3{90, 0, 0}, Scale: scale, Cull: CullFront},
		{Name: "wall-back", Position: mgl64.Vec3{0, 0, -a}, Scale: scale, Cull: CullFront},
		{Name: "wall-front", Position: mgl64.Vec3{0, 0, a}, Scale: scale, Cull: CullBack},
		{Name: "wall-right", Position: mgl64.Vec3{a, 0, 0}, Rotation: mgl64.Vec3{0, 90, 0}, Scale: scale, Cull: CullBack},
		{Name: "wall-left", Position: mgl64.Vec3{-a, 0, 0}, Rotation: mgl64.Vec3{0, 90, 0}, Scale: scale, Cull: CullFront},
	}
}

func Floors(specs []FloorSpec) Builder {
	return BuilderFunc(func(s *Scene) error {
		for i, spec := range specs {
			name := spec.Name
			if name == "" {
				name = fmt.Sprintf("floor-%d", i+1)
			}
			o := NewObject(name, Mesh{Kind: KindFloor, Size: 1}, RenderState{Cull: spec.Cull})
			o.tf = spec.Transform()
			if err := s.Add(o); err != nil {
				return err
			}
		}
		return nil
	})
}

// SpringRig is the pair of objects the simulation drives.
type SpringRig struct {
	Spring *Object
	Mass   *Object
}

const DefaultMassSize = 0.3

func NewSpringRig(restLength float64, centered bool) *SpringRig {
	return NewNamedSpringRig("spring", "mass", restLength, centered)
}

// NewNamedSpringRig is NewSpringRig with caller-chosen object names, used
// when a config binds the simulation to differently named objects.
func NewNamedSpringRig(springName, massName string, restLength float64, centered bool) *SpringRig {
	return &SpringRig{
		Spring: NewObject(springName, Mesh{Kind: KindSpring, Size: restLength, Centered: centered}, RenderState{}),
		Mass:   NewObject(massName, Mesh{Kind: KindMass, Size: DefaultMassSize}, RenderState{}),
	}
}

func (r *SpringRig) Build(s *Scene) error {
	return s.Add(r.Spring, r.Mass)
}

// Default assembles the reference room around the rig.
func Default(ctx context.Context, rig *SpringRig) (*Scene, error) {
	return Assemble(ctx, CameraBuilder(DefaultCamera()), Floors(RoomFloors(2, 2)), rig)
}
