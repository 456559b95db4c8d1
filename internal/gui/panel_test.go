package gui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/springsim/internal/dynamo"
	"github.com/san-kum/springsim/internal/params"
	"github.com/san-kum/springsim/internal/physics"
	"github.com/san-kum/springsim/internal/scene"
	"github.com/san-kum/springsim/internal/sim"
)

type stubFrames struct{ frame sim.Frame }

func (s *stubFrames) Latest() sim.Frame { return s.frame }

func newModel(t *testing.T) (Model, *params.Surface, *stubFrames) {
	t.Helper()
	surface, err := params.New(params.FromInitial(physics.DefaultSpringParameters(), physics.MassState{Mass: 1}))
	if err != nil {
		t.Fatalf("surface: %v", err)
	}
	sc, err := scene.Default(context.Background(), scene.NewSpringRig(1.5, false))
	if err != nil {
		t.Fatalf("scene: %v", err)
	}
	frames := &stubFrames{}
	return New(surface, frames, nil, sc, Options{}), surface, frames
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestPanel_NudgeWritesSurface(t *testing.T) {
	m, surface, _ := newModel(t)

	// cursor starts on mass
	m = press(m, "l")
	if got := surface.Read().Mass; got != 1.1 {
		t.Errorf("expected mass 1.1, got %v", got)
	}

	m = press(m, "j", "h")
	if got := surface.Read().DampingFactor; got != 0.9 {
		t.Errorf("expected damping 0.9, got %v", got)
	}
	if m.Err() != nil {
		t.Errorf("unexpected error: %v", m.Err())
	}
}

func TestPanel_EditCommit(t *testing.T) {
	m, surface, _ := newModel(t)

	m = press(m, "j", "j", "j", "enter")
	if !m.editing {
		t.Fatal("expected edit mode")
	}
	m = press(m, "backspace", "backspace", "backspace", "backspace", "0", ".", "2", "5", "enter")

	if got := surface.Read().Amplitude; got != 0.25 {
		t.Errorf("expected amplitude 0.25, got %v", got)
	}
	if m.editing {
		t.Error("expected edit mode to end")
	}
}

func TestPanel_InvalidWriteIsReported(t *testing.T) {
	m, surface, _ := newModel(t)
	before := surface.Read()

	m = press(m, "j", "j", "enter")
	for i := 0; i < 8; i++ {
		m = press(m, "backspace")
	}
	m = press(m, "0", "enter")

	if !errors.Is(m.Err(), dynamo.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", m.Err())
	}
	if got := surface.Read(); got.SpringFactor != before.SpringFactor || got.Version != before.Version {
		t.Errorf("expected surface untouched, got %+v", got)
	}
	if !strings.Contains(m.statusView(), "invalid parameter") {
		t.Errorf("expected error in status bar, got %q", m.statusView())
	}
}

func TestPanel_EscapeCancelsEdit(t *testing.T) {
	m, surface, _ := newModel(t)
	v := surface.Version()

	m = press(m, "enter", "9", "esc")
	if m.editing || surface.Version() != v {
		t.Error("expected escape to discard the edit")
	}
}

func TestPanel_ResetAndRestart(t *testing.T) {
	m, surface, _ := newModel(t)

	m = press(m, "l", "r")
	snap := surface.Read()
	if snap.Mass != 1 || snap.Epoch != 1 {
		t.Errorf("expected reset to restore mass and bump epoch, got %+v", snap)
	}

	press(m, "l", "R")
	snap = surface.Read()
	if snap.Mass != 1.1 || snap.Epoch != 2 {
		t.Errorf("expected restart to keep mass and bump epoch, got %+v", snap)
	}
}

func TestPanel_ZoomEasesTowardsTarget(t *testing.T) {
	m, _, _ := newModel(t)
	m = press(m, "+", "+")
	if m.zoomTarget <= 1.5 {
		t.Fatalf("expected zoom target above 1.5, got %f", m.zoomTarget)
	}

	next, _ := m.Update(tickMsg(time.Now()))
	m = next.(Model)
	if !(m.zoom > 1 && m.zoom < m.zoomTarget) {
		t.Errorf("expected zoom between 1 and target after one tick, got %f", m.zoom)
	}
	for i := 0; i < 200; i++ {
		next, _ = m.Update(tickMsg(time.Now()))
		m = next.(Model)
	}
	if diff := m.zoom - m.zoomTarget; diff > 1e-3 || diff < -1e-3 {
		t.Errorf("expected zoom to settle at %f, got %f", m.zoomTarget, m.zoom)
	}
}

func TestPanel_HistoryFollowsFrames(t *testing.T) {
	m, _, frames := newModel(t)

	for i := 0; i < 5; i++ {
		frames.frame.Displacement = float64(i)
		next, _ := m.Update(tickMsg(time.Now()))
		m = next.(Model)
	}
	if len(m.history) != 5 {
		t.Fatalf("expected 5 history points, got %d", len(m.history))
	}

	frames.frame.Epoch = 1
	next, _ := m.Update(tickMsg(time.Now()))
	m = next.(Model)
	if len(m.history) != 1 {
		t.Errorf("expected history cleared on new epoch, got %d", len(m.history))
	}
	if view := m.View(); !strings.Contains(view, "springsim") {
		t.Error("expected title in view")
	}
}

func TestPanel_StallIsReported(t *testing.T) {
	m, _, frames := newModel(t)

	frames.frame.Stalled = true
	frames.frame.Diverged = 4
	next, _ := m.Update(tickMsg(time.Now()))
	m = next.(Model)
	if !strings.Contains(m.statusView(), "stalled: 4") {
		t.Errorf("expected stall in status bar, got %q", m.statusView())
	}

	frames.frame.Stalled = false
	next, _ = m.Update(tickMsg(time.Now()))
	m = next.(Model)
	if strings.Contains(m.statusView(), "stalled") {
		t.Errorf("expected stall cleared, got %q", m.statusView())
	}
}

func TestPanel_Quit(t *testing.T) {
	m, _, _ := newModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
