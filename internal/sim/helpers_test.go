package sim

import (
	"testing"

	"github.com/san-kum/springsim/internal/params"
	"github.com/san-kum/springsim/internal/scene"
	"github.com/san-kum/springsim/internal/transform"
)

func newTestDriver(t *testing.T, cfg Config, surface *params.Surface, observers ...Observer) *Driver {
	t.Helper()
	mapper, err := transform.NewMapper(transform.DefaultLayout())
	if err != nil {
		t.Fatalf("mapper: %v", err)
	}
	rig := scene.NewSpringRig(transform.DefaultLayout().RestLength, false)
	opts := make([]Option, 0, len(observers))
	for _, o := range observers {
		opts = append(opts, WithObserver(o))
	}
	d, err := NewDriver(cfg, surface, mapper, rig.Mass, rig.Spring, opts...)
	if err != nil {
		t.Fatalf("driver: %v", err)
	}
	return d
}
