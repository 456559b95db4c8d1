package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/san-kum/springsim/internal/physics"
	"github.com/san-kum/springsim/internal/viz"
)

const svgBackground = "#0a0a0a"

// CanvasSVG draws every set braille dot of the canvas as a circle. scale is
// the distance between neighbouring dots in SVG units.
func CanvasSVG(w io.Writer, canvas *viz.Canvas, scale float64) error {
	if canvas == nil {
		return fmt.Errorf("export: nil canvas")
	}
	bw := bufio.NewWriter(w)
	width := float64(canvas.DotWidth()) * scale
	height := float64(canvas.DotHeight()) * scale

	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
<g fill="#00ff00">
`, width, height, width, height, svgBackground)

	r := scale * 0.4
	for y := 0; y < canvas.DotHeight(); y++ {
		for x := 0; x < canvas.DotWidth(); x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			cx := float64(x)*scale + scale/2
			cy := float64(y)*scale + scale/2
			fmt.Fprintf(bw, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, r)
		}
	}

	bw.WriteString("</g>\n</svg>\n")
	return bw.Flush()
}

// Series is one line of a trace plot.
type Series struct {
	Name   string
	Color  string
	Values func(physics.Sample) float64
}

var (
	Displacement = Series{Name: "displacement", Color: "#00ff00", Values: func(s physics.Sample) float64 { return s.Displacement }}
	Anchor       = Series{Name: "anchor", Color: "#ff8800", Values: func(s physics.Sample) float64 { return s.Anchor }}
	Elongation   = Series{Name: "elongation", Color: "#00aaff", Values: func(s physics.Sample) float64 { return s.Elongation }}
)

// TraceSVG plots each series against sample time. All series share one
// vertical scale so that, for example, anchor and displacement compare
// directly.
func TraceSVG(w io.Writer, samples []physics.Sample, width, height int, series ...Series) error {
	if len(samples) < 2 {
		return fmt.Errorf("export: need at least two samples, got %d", len(samples))
	}
	if len(series) == 0 {
		series = []Series{Displacement}
	}

	minX, maxX := samples[0].Time, samples[len(samples)-1].Time
	minY, maxY := series[0].Values(samples[0]), series[0].Values(samples[0])
	for _, s := range series {
		for _, sample := range samples {
			v := s.Values(sample)
			if v < minY {
				minY = v
			}
			if v > maxY {
				maxY = v
			}
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, svgBackground)

	for _, s := range series {
		fmt.Fprintf(bw, `<path id="%s" fill="none" stroke="%s" stroke-width="1.5" d="`, s.Name, s.Color)
		for i, sample := range samples {
			x := (sample.Time - minX) / rangeX * float64(width)
			y := float64(height) - (s.Values(sample)-minY)/rangeY*float64(height)
			if i == 0 {
				fmt.Fprintf(bw, "M%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(bw, " L%.1f,%.1f", x, y)
			}
		}
		bw.WriteString("\"/>\n")
	}

	bw.WriteString("</svg>\n")
	return bw.Flush()
}
