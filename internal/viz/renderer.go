package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/springsim/internal/scene"
)

const (
	floorDivisions = 4
	springCoils    = 8
	coilSegments   = 10
	coilRadius     = 0.12
)

// Projection maps world points to canvas dots for one camera and canvas size.
type Projection struct {
	viewProj mgl64.Mat4
	w, h     float64
	near     float64
}

// NewProjection builds a perspective projection. Zoom > 1 narrows the field
// of view.
func NewProjection(cam scene.Camera, zoom float64, dotW, dotH int) Projection {
	if zoom <= 0 {
		zoom = 1
	}
	fov := cam.FOV / zoom
	if fov >= math.Pi {
		fov = math.Pi * 0.99
	}
	aspect := float64(dotW) / float64(dotH)
	view := mgl64.LookAtV(cam.Position, cam.Target, cam.Up)
	proj := mgl64.Perspective(fov, aspect, cam.Near, cam.Far)
	return Projection{viewProj: proj.Mul4(view), w: float64(dotW), h: float64(dotH), near: cam.Near}
}

// Project returns the dot coordinates of p. ok is false behind the near
// plane.
func (p Projection) Project(v mgl64.Vec3) (x, y int, depth float64, ok bool) {
	clip := p.viewProj.Mul4x1(v.Vec4(1))
	if clip.W() < p.near {
		return 0, 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	x = int(math.Round((ndc.X() + 1) / 2 * (p.w - 1)))
	y = int(math.Round((1 - ndc.Y()) / 2 * (p.h - 1)))
	return x, y, clip.W(), true
}

type edge struct{ a, b mgl64.Vec3 }

// Stats counts what the last Render call did.
type Stats struct {
	Drawn  int
	Culled []string
	Hidden int
}

// Renderer draws scenes onto its canvas.
type Renderer struct {
	Canvas *Canvas
	Zoom   float64
}

func NewRenderer(w, h int) *Renderer {
	return &Renderer{Canvas: NewCanvas(w, h), Zoom: 1}
}

// Render clears the canvas and draws every object that is neither hidden nor
// culled.
func (r *Renderer) Render(s *scene.Scene) Stats {
	r.Canvas.Clear()
	cam := s.Camera()
	proj := NewProjection(cam, r.Zoom, r.Canvas.DotWidth(), r.Canvas.DotHeight())

	var stats Stats
	for _, o := range s.Objects() {
		state := o.RenderState()
		if state.Hidden {
			stats.Hidden++
			continue
		}
		if state.Cull.Culls(o.FrontFacing(cam.Position)) {
			stats.Culled = append(stats.Culled, o.Name())
			continue
		}
		r.drawObject(proj, o)
		stats.Drawn++
	}
	return stats
}

func (r *Renderer) drawObject(proj Projection, o *scene.Object) {
	model := o.Transform().Matrix()
	limit := 4 * float64(max(r.Canvas.DotWidth(), r.Canvas.DotHeight()))
	for _, e := range meshEdges(o.Mesh()) {
		x0, y0, _, ok0 := proj.Project(mgl64.TransformCoordinate(e.a, model))
		x1, y1, _, ok1 := proj.Project(mgl64.TransformCoordinate(e.b, model))
		if !ok0 || !ok1 {
			continue
		}
		if outside(x0, y0, limit) || outside(x1, y1, limit) {
			continue
		}
		r.Canvas.DrawLine(x0, y0, x1, y1)
	}
}

func outside(x, y int, limit float64) bool {
	return math.Abs(float64(x)) > limit || math.Abs(float64(y)) > limit
}

func meshEdges(m scene.Mesh) []edge {
	switch m.Kind {
	case scene.KindSpring:
		return springEdges(m.Size, m.Centered)
	case scene.KindMass:
		return cubeEdges(m.Size)
	default:
		return floorEdges(m.Size)
	}
}

// floorEdges is the outline of a square tile in the XY plane plus a grid.
func floorEdges(half float64) []edge {
	edges := make([]edge, 0, 2*(floorDivisions+1))
	for i := 0; i <= floorDivisions; i++ {
		t := -half + 2*half*float64(i)/floorDivisions
		edges = append(edges,
			edge{mgl64.Vec3{t, -half, 0}, mgl64.Vec3{t, half, 0}},
			edge{mgl64.Vec3{-half, t, 0}, mgl64.Vec3{half, t, 0}},
		)
	}
	return edges
}

// springEdges is a helix along +Y with short straight leads at both ends.
func springEdges(length float64, centered bool) []edge {
	y0 := 0.0
	if centered {
		y0 = -length / 2
	}
	lead := length * 0.1
	coilLen := length - 2*lead

	edges := make([]edge, 0, springCoils*coilSegments+2)
	prev := mgl64.Vec3{0, y0, 0}
	start := mgl64.Vec3{coilRadius, y0 + lead, 0}
	edges = append(edges, edge{prev, start})
	prev = start

	n := springCoils * coilSegments
	for i := 1; i <= n; i++ {
		a := 2 * math.Pi * float64(i) / coilSegments
		y := y0 + lead + coilLen*float64(i)/float64(n)
		p := mgl64.Vec3{coilRadius * math.Cos(a), y, coilRadius * math.Sin(a)}
		edges = append(edges, edge{prev, p})
		prev = p
	}
	return append(edges, edge{prev, mgl64.Vec3{0, y0 + length, 0}})
}

func cubeEdges(size float64) []edge {
	s := size / 2
	v := [8]mgl64.Vec3{
		{-s, -s, -s}, {s, -s, -s}, {s, s, -s}, {-s, s, -s},
		{-s, -s, s}, {s, -s, s}, {s, s, s}, {-s, s, s},
	}
	idx := [12][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {4, 5}, {5, 6}, {6, 7}, {7, 4}, {0, 4}, {1, 5}, {2, 6}, {3, 7}}
	edges := make([]edge, len(idx))
	for i, e := range idx {
		edges[i] = edge{v[e[0]], v[e[1]]}
	}
	return edges
}
