package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/springsim/internal/physics"
	"github.com/san-kum/springsim/internal/viz"
)

// Point is one phase-space coordinate: displacement on X, velocity on Y.
type Point struct{ X, Y float64 }

func Portrait(samples []physics.Sample) []Point {
	points := make([]Point, len(samples))
	for i, s := range samples {
		points[i] = Point{X: s.Mass.Position, Y: s.Mass.Velocity}
	}
	return points
}

// bounds is the plotted window, padded so the trajectory never touches the
// frame.
type bounds struct{ x0, x1, y0, y1 float64 }

func fit(points []Point) bounds {
	b := bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	for _, p := range points {
		b.x0, b.x1 = min(b.x0, p.X), max(b.x1, p.X)
		b.y0, b.y1 = min(b.y0, p.Y), max(b.y1, p.Y)
	}
	padX := max(b.x1-b.x0, 1e-9) * 0.1
	padY := max(b.y1-b.y0, 1e-9) * 0.1
	return bounds{b.x0 - padX, b.x1 + padX, b.y0 - padY, b.y1 + padY}
}

// PortraitASCII traces points as a braille curve on width×height cells, with
// the zero axes dotted in where they fall inside the window. Each row ends
// with a newline.
func PortraitASCII(points []Point, width, height int) string {
	if len(points) == 0 || width < 2 || height < 2 {
		return ""
	}

	c := viz.NewCanvas(width, height)
	b := fit(points)
	w, h := c.DotWidth()-1, c.DotHeight()-1
	col := func(x float64) int { return int(math.Round((x - b.x0) / (b.x1 - b.x0) * float64(w))) }
	row := func(y float64) int { return h - int(math.Round((y-b.y0)/(b.y1-b.y0)*float64(h))) }

	if b.x0 < 0 && b.x1 > 0 {
		x := col(0)
		for y := 0; y <= h; y += 2 {
			c.Set(x, y)
		}
	}
	if b.y0 < 0 && b.y1 > 0 {
		y := row(0)
		for x := 0; x <= w; x += 2 {
			c.Set(x, y)
		}
	}

	px, py := col(points[0].X), row(points[0].Y)
	c.Set(px, py)
	for _, p := range points[1:] {
		x, y := col(p.X), row(p.Y)
		if x != px || y != py {
			c.DrawLine(px, py, x, y)
			px, py = x, y
		}
	}

	var sb strings.Builder
	for _, line := range c.Lines() {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}
