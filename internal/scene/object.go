package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

var ErrReleased = errors.New("scene: object released")

type Kind int

const (
	KindFloor Kind = iota
	KindSpring
	KindMass
)

func (k Kind) String() string {
	switch k {
	case KindSpring:
		return "spring"
	case KindMass:
		return "mass"
	default:
		return "floor"
	}
}

// Mesh is the model-space shape of an object. Floors are square tiles of
// half-extent Size facing -Z. Springs are coils of length Size along +Y,
// starting at the origin unless Centered. Masses are cubes of edge Size.
type Mesh struct {
	Kind     Kind
	Size     float64
	Centered bool
}

type Transform struct {
	Position mgl64.Vec3
	Scale    mgl64.Vec3
	Rotation mgl64.Quat
}

func IdentityTransform() Transform {
	return Transform{Scale: mgl64.Vec3{1, 1, 1}, Rotation: mgl64.QuatIdent()}
}

// Matrix is translate * rotate * scale.
func (t Transform) Matrix() mgl64.Mat4 {
	return mgl64.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z()).
		Mul4(t.Rotation.Normalize().Mat4()).
		Mul4(mgl64.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
}

// Object is a named render object. The simulation writes its transform from
// the loop goroutine while the renderer reads it from another, so all access
// goes through the mutex. After Release every write fails.
type Object struct {
	name  string
	mesh  Mesh
	state RenderState

	mu       sync.RWMutex
	tf       Transform
	released bool
}

func NewObject(name string, mesh Mesh, state RenderState) *Object {
	return &Object{name: name, mesh: mesh, state: state, tf: IdentityTransform()}
}

func (o *Object) Name() string             { return o.name }
func (o *Object) Mesh() Mesh               { return o.mesh }
func (o *Object) RenderState() RenderState { return o.state }

func (o *Object) SetPosition(p mgl64.Vec3) error {
	return o.write(func(t *Transform) { t.Position = p })
}

func (o *Object) SetScale(s mgl64.Vec3) error {
	return o.write(func(t *Transform) { t.Scale = s })
}

func (o *Object) SetRotation(q mgl64.Quat) error {
	return o.write(func(t *Transform) { t.Rotation = q })
}

func (o *Object) write(fn func(*Transform)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.released {
		return fmt.Errorf("%w: %s", ErrReleased, o.name)
	}
	fn(&o.tf)
	return nil
}

// Transform returns a copy of the current transform.
func (o *Object) Transform() Transform {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.tf
}

func (o *Object) Release() {
	o.mu.Lock()
	o.released = true
	o.mu.Unlock()
}

func (o *Object) Released() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.released
}

// floorNormal is the front-face normal of a floor tile in model space.
var floorNormal = mgl64.Vec3{0, 0, -1}

// FrontFacing reports whether the front of a floor tile faces eye. Other
// meshes are closed and always count as front facing.
func (o *Object) FrontFacing(eye mgl64.Vec3) bool {
	if o.mesh.Kind != KindFloor {
		return true
	}
	tf := o.Transform()
	n := tf.Rotation.Rotate(floorNormal)
	return n.Dot(eye.Sub(tf.Position)) > 0
}
