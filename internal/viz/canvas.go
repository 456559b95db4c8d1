package viz

import "strings"

// Braille cells hold a 2x4 dot matrix:
//
//	1 4
//	2 5
//	3 6
//	7 8
const brailleBase = 0x2800

var dotBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Canvas is a dot-addressed drawing surface backed by braille runes. A canvas
// of Width x Height cells has (2*Width) x (4*Height) dots.
type Canvas struct {
	Width, Height int
	cells         []rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{}
	c.Resize(w, h)
	return c
}

// Resize reallocates the canvas and clears it.
func (c *Canvas) Resize(w, h int) {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	c.Width, c.Height = w, h
	c.cells = make([]rune, w*h)
	c.Clear()
}

func (c *Canvas) DotWidth() int  { return c.Width * 2 }
func (c *Canvas) DotHeight() int { return c.Height * 4 }

func (c *Canvas) cell(x, y int) (int, bool) {
	if x < 0 || y < 0 {
		return 0, false
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return 0, false
	}
	return row*c.Width + col, true
}

// Set turns on the dot at (x, y). Out-of-range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if i, ok := c.cell(x, y); ok {
		c.cells[i] |= dotBits[y%4][x%2]
	}
}

func (c *Canvas) Unset(x, y int) {
	if i, ok := c.cell(x, y); ok {
		c.cells[i] &^= dotBits[y%4][x%2]
	}
}

func (c *Canvas) IsSet(x, y int) bool {
	i, ok := c.cell(x, y)
	return ok && c.cells[i]&dotBits[y%4][x%2] != 0
}

func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = brailleBase
	}
}

// Empty reports whether no dot is set.
func (c *Canvas) Empty() bool {
	for _, r := range c.cells {
		if r != brailleBase {
			return false
		}
	}
	return true
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) Lines() []string {
	lines := make([]string, c.Height)
	for row := range lines {
		lines[row] = string(c.cells[row*c.Width : (row+1)*c.Width])
	}
	return lines
}

func (c *Canvas) String() string {
	return strings.Join(c.Lines(), "\n")
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
