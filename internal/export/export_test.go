package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/san-kum/springsim/internal/physics"
	"github.com/san-kum/springsim/internal/storage"
	"github.com/san-kum/springsim/internal/viz"
)

func TestCanvasSVG(t *testing.T) {
	c := viz.NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)

	var buf bytes.Buffer
	if err := CanvasSVG(&buf, c, 2); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if n := strings.Count(out, "<circle"); n != 2 {
		t.Errorf("expected 2 dots, got %d", n)
	}
	if !strings.Contains(out, `width="8" height="8"`) {
		t.Errorf("expected 8x8 document, got %s", out[:120])
	}
	if err := CanvasSVG(&buf, nil, 1); err == nil {
		t.Error("expected error for nil canvas")
	}
}

func TestTraceSVG(t *testing.T) {
	samples := []physics.Sample{
		{Time: 0, Displacement: 0, Anchor: 1},
		{Time: 1, Displacement: 1, Anchor: 0},
		{Time: 2, Displacement: -1, Anchor: 0.5},
	}

	var buf bytes.Buffer
	if err := TraceSVG(&buf, samples, 200, 100, Displacement, Anchor); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, id := range []string{`id="displacement"`, `id="anchor"`} {
		if !strings.Contains(out, id) {
			t.Errorf("expected path %s", id)
		}
	}
	if !strings.Contains(out, "M0.0,") {
		t.Error("first point should start at x=0")
	}
	if !strings.Contains(out, " L200.0,") {
		t.Error("last point should end at the right edge")
	}
}

func TestTraceSVG_TooShort(t *testing.T) {
	var buf bytes.Buffer
	if err := TraceSVG(&buf, []physics.Sample{{}}, 10, 10); err == nil {
		t.Error("expected error for a single sample")
	}
}

func TestJSON(t *testing.T) {
	meta := storage.RunMetadata{ID: "run_1", Label: "run", Ticks: 2}
	samples := []physics.Sample{{Tick: 0}, {Tick: 1, Time: 0.005, Displacement: 0.1}}

	var buf bytes.Buffer
	if err := JSON(&buf, meta, samples); err != nil {
		t.Fatal(err)
	}
	var doc Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Run.ID != "run_1" {
		t.Errorf("expected id run_1, got %s", doc.Run.ID)
	}
	if doc.Steps != 2 || doc.Samples[1].Displacement != 0.1 {
		t.Errorf("unexpected document %+v", doc)
	}
}
