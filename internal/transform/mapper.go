// Package transform maps the spring model's scalar outputs onto 3-D render
// transforms.
package transform

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/springsim/internal/dynamo"
)

// Handle is a non-owning reference to a render object's transform.
type Handle interface {
	SetPosition(p mgl64.Vec3) error
	SetScale(s mgl64.Vec3) error
	SetRotation(q mgl64.Quat) error
}

// Pivot is where the spring mesh's origin sits along its length.
type Pivot int

const (
	PivotBase Pivot = iota
	PivotCenter
)

func (p Pivot) String() string {
	if p == PivotCenter {
		return "center"
	}
	return "base"
}

func ParsePivot(s string) (Pivot, error) {
	switch strings.ToLower(s) {
	case "", "base":
		return PivotBase, nil
	case "center", "centre":
		return PivotCenter, nil
	}
	return PivotBase, fmt.Errorf("unknown pivot %q", s)
}

// meshUp is the long axis of the spring mesh in model space.
var meshUp = mgl64.Vec3{0, 1, 0}

// Layout places the spring in the world. Axis points from the anchor
// towards the mass.
type Layout struct {
	Origin     mgl64.Vec3
	Axis       mgl64.Vec3
	RestLength float64
	MinStretch float64
	Pivot      Pivot
}

func DefaultLayout() Layout {
	return Layout{
		Origin:     mgl64.Vec3{0, 1.5, 0},
		Axis:       mgl64.Vec3{0, -1, 0},
		RestLength: 1.5,
		MinStretch: 0.05,
		Pivot:      PivotBase,
	}
}

func (l Layout) Validate() error {
	if l.Axis.Len() == 0 || math.IsNaN(l.Axis.Len()) {
		return errors.New("layout axis must be a non-zero vector")
	}
	if !(l.RestLength > 0) {
		return fmt.Errorf("layout rest length must be positive, got %f", l.RestLength)
	}
	if !(l.MinStretch > 0 && l.MinStretch <= 1) {
		return fmt.Errorf("layout min stretch must be in (0, 1], got %f", l.MinStretch)
	}
	return nil
}

// Pose is the full visual placement for one physical state.
type Pose struct {
	Anchor         mgl64.Vec3
	MassPosition   mgl64.Vec3
	SpringPosition mgl64.Vec3
	SpringScale    mgl64.Vec3
	SpringRotation mgl64.Quat
	SpringLength   float64
}

// Mapper converts displacement and elongation into a Pose. It holds no
// simulation state.
type Mapper struct {
	layout Layout
	axis   mgl64.Vec3
	rot    mgl64.Quat
}

func NewMapper(l Layout) (*Mapper, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	axis := l.Axis.Normalize()
	return &Mapper{
		layout: l,
		axis:   axis,
		rot:    mgl64.QuatBetweenVectors(meshUp, axis),
	}, nil
}

func (m *Mapper) Layout() Layout { return m.layout }

// Pose places the anchor at the drive offset and the mass at the far end of
// the spring. Length is clamped so the mesh never collapses or inverts.
func (m *Mapper) Pose(displacement, elongation float64) Pose {
	l := m.layout
	anchor := l.Origin.Add(m.axis.Mul(displacement - elongation))

	length := l.RestLength + elongation
	if shortest := l.RestLength * l.MinStretch; length < shortest {
		length = shortest
	}

	springPos := anchor
	if l.Pivot == PivotCenter {
		springPos = anchor.Add(m.axis.Mul(length / 2))
	}

	return Pose{
		Anchor:         anchor,
		MassPosition:   anchor.Add(m.axis.Mul(length)),
		SpringPosition: springPos,
		SpringScale:    mgl64.Vec3{1, length / l.RestLength, 1},
		SpringRotation: m.rot,
		SpringLength:   length,
	}
}

// Apply writes the pose for one state onto the two handles. Calling it again
// with the same inputs writes the same transforms.
func (m *Mapper) Apply(displacement, elongation float64, mass, spring Handle) error {
	if mass == nil {
		return &dynamo.HandleError{Handle: "mass", Op: "bind"}
	}
	if spring == nil {
		return &dynamo.HandleError{Handle: "spring", Op: "bind"}
	}

	p := m.Pose(displacement, elongation)

	if err := spring.SetPosition(p.SpringPosition); err != nil {
		return &dynamo.HandleError{Handle: "spring", Op: "position", Err: err}
	}
	if err := spring.SetScale(p.SpringScale); err != nil {
		return &dynamo.HandleError{Handle: "spring", Op: "scale", Err: err}
	}
	if err := spring.SetRotation(p.SpringRotation); err != nil {
		return &dynamo.HandleError{Handle: "spring", Op: "rotation", Err: err}
	}
	if err := mass.SetPosition(p.MassPosition); err != nil {
		return &dynamo.HandleError{Handle: "mass", Op: "position", Err: err}
	}
	return nil
}
