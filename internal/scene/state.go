package scene

import (
	"fmt"
	"strings"
)

// CullMode selects which faces of an object the renderer skips.
type CullMode int

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

func (c CullMode) String() string {
	switch c {
	case CullFront:
		return "front"
	case CullBack:
		return "back"
	default:
		return "none"
	}
}

func ParseCullMode(s string) (CullMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CullNone, nil
	case "front":
		return CullFront, nil
	case "back":
		return CullBack, nil
	}
	return CullNone, fmt.Errorf("unknown cull mode %q", s)
}

func (c CullMode) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *CullMode) UnmarshalText(b []byte) error {
	m, err := ParseCullMode(string(b))
	if err != nil {
		return err
	}
	*c = m
	return nil
}

// Culls reports whether a face is skipped. facingCamera is true when the
// face's front side points towards the viewer.
func (c CullMode) Culls(facingCamera bool) bool {
	switch c {
	case CullFront:
		return facingCamera
	case CullBack:
		return !facingCamera
	}
	return false
}

// RenderState is evaluated by the renderer for every draw of an object.
type RenderState struct {
	Cull   CullMode `yaml:"cull" json:"cull"`
	Hidden bool     `yaml:"hidden,omitempty" json:"hidden,omitempty"`
}
