package scene

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera looks from Position at Target. FOV is vertical, in radians.
type Camera struct {
	Position mgl64.Vec3
	Target   mgl64.Vec3
	Up       mgl64.Vec3
	FOV      float64
	Near     float64
	Far      float64
}

// DefaultCamera sits outside the room's -X/-Z corner, level with the lower
// half of the spring.
func DefaultCamera() Camera {
	return Camera{
		Position: mgl64.Vec3{-2.84, -0.57, -2.84},
		Target:   mgl64.Vec3{0, 0.5, 0},
		Up:       mgl64.Vec3{0, 1, 0},
		FOV:      math.Pi / 3,
		Near:     0.1,
		Far:      100,
	}
}

func (c Camera) Validate() error {
	if c.Position.Sub(c.Target).Len() == 0 {
		return fmt.Errorf("camera position and target coincide at %v", c.Position)
	}
	if c.Up.Len() == 0 {
		return fmt.Errorf("camera up vector is zero")
	}
	if !(c.FOV > 0 && c.FOV < math.Pi) {
		return fmt.Errorf("camera fov must be in (0, pi), got %f", c.FOV)
	}
	if !(c.Near > 0 && c.Far > c.Near) {
		return fmt.Errorf("camera clip planes invalid: near=%f far=%f", c.Near, c.Far)
	}
	return nil
}

// Scene holds the camera and the ordered object list. Objects may be added
// while a renderer is reading.
type Scene struct {
	mu        sync.RWMutex
	camera    Camera
	cameraSet bool
	objects   []*Object
}

func New() *Scene {
	return &Scene{camera: DefaultCamera()}
}

func (s *Scene) Camera() Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.camera
}

func (s *Scene) SetCamera(c Camera) {
	s.mu.Lock()
	s.camera = c
	s.cameraSet = true
	s.mu.Unlock()
}

func (s *Scene) Add(objs ...*Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range objs {
		if o == nil {
			return fmt.Errorf("scene: nil object")
		}
		for _, existing := range s.objects {
			if existing.name == o.name {
				return fmt.Errorf("scene: duplicate object %q", o.name)
			}
		}
		s.objects = append(s.objects, o)
	}
	return nil
}

// Objects returns a snapshot of the object list in insertion order.
func (s *Scene) Objects() []*Object {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Object, len(s.objects))
	copy(out, s.objects)
	return out
}

func (s *Scene) Object(name string) (*Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.objects {
		if o.name == name {
			return o, true
		}
	}
	return nil, false
}

// Release ends the lifetime of every object in the scene.
func (s *Scene) Release() {
	for _, o := range s.Objects() {
		o.Release()
	}
}
