// Package gui is the terminal parameter panel. It renders the scene, shows
// live telemetry and writes parameter changes to the surface; it never
// touches simulation state directly.
package gui

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/springsim/internal/params"
	"github.com/san-kum/springsim/internal/scene"
	"github.com/san-kum/springsim/internal/sim"
	"github.com/san-kum/springsim/internal/viz"
)

const (
	historyLen = 240
	minZoom    = 0.25
	maxZoom    = 8
)

// FrameSource publishes the latest driver frame.
type FrameSource interface {
	Latest() sim.Frame
}

// MetricSource reports named metric values.
type MetricSource interface {
	Values() map[string]float64
}

type Options struct {
	Refresh time.Duration
	// Steps maps a field to its h/l nudge size. Missing fields use 0.1.
	Steps map[params.Field]float64
}

type tickMsg time.Time

// StatusMsg shows a line of text in the status bar.
type StatusMsg string

type Model struct {
	surface  *params.Surface
	frames   FrameSource
	metrics  MetricSource
	scene    *scene.Scene
	renderer *viz.Renderer
	opts     Options

	fields  []params.Field
	cursor  int
	editing bool
	editBuf string

	zoom, zoomVel, zoomTarget float64
	spring                    harmonica.Spring

	frame     sim.Frame
	history   []float64
	lastEpoch uint64
	showGraph bool
	status    string
	err       error

	width, height int
}

func New(surface *params.Surface, frames FrameSource, metrics MetricSource, sc *scene.Scene, opts Options) Model {
	if opts.Refresh <= 0 {
		opts.Refresh = 33 * time.Millisecond
	}
	fps := int(time.Second / opts.Refresh)
	return Model{
		surface:    surface,
		frames:     frames,
		metrics:    metrics,
		scene:      sc,
		renderer:   viz.NewRenderer(48, 16),
		opts:       opts,
		fields:     params.Fields(),
		zoom:       1,
		zoomTarget: 1,
		spring:     harmonica.NewSpring(harmonica.FPS(fps), 6.0, 0.8),
		history:    make([]float64, 0, historyLen),
		showGraph:  true,
		width:      100,
		height:     32,
	}
}

func (m Model) Init() tea.Cmd { return m.tick() }

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.Refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resizeCanvas()
		return m, nil
	case tickMsg:
		m.refresh()
		return m, m.tick()
	case StatusMsg:
		m.status = string(msg)
		m.err = nil
		return m, nil
	case error:
		m.err = msg
		return m, nil
	}
	return m, nil
}

func (m *Model) refresh() {
	if m.frames != nil {
		m.frame = m.frames.Latest()
		if m.frame.Epoch != m.lastEpoch {
			m.history = m.history[:0]
			m.lastEpoch = m.frame.Epoch
		}
		m.history = append(m.history, m.frame.Displacement)
		if len(m.history) > historyLen {
			m.history = m.history[len(m.history)-historyLen:]
		}
	}
	m.zoom, m.zoomVel = m.spring.Update(m.zoom, m.zoomVel, m.zoomTarget)
	m.renderer.Zoom = m.zoom
}

func (m *Model) resizeCanvas() {
	w := max(16, m.width-40)
	h := max(8, m.height-16)
	m.renderer.Canvas.Resize(w, h)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editing {
		return m.editKey(msg)
	}

	field := m.fields[m.cursor]
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.fields)-1 {
			m.cursor++
		}
	case "left", "h":
		m.write(field, m.surface.Read().Get(field)-m.step(field))
	case "right", "l":
		m.write(field, m.surface.Read().Get(field)+m.step(field))
	case "enter", " ":
		m.editing = true
		m.editBuf = strconv.FormatFloat(m.surface.Read().Get(field), 'g', -1, 64)
	case "r":
		snap := m.surface.Reset()
		m.setStatus(fmt.Sprintf("reset (epoch %d)", snap.Epoch))
	case "R":
		snap := m.surface.Restart()
		m.setStatus(fmt.Sprintf("restart (epoch %d)", snap.Epoch))
	case "+", "=":
		m.zoomTarget = math.Min(maxZoom, m.zoomTarget*1.25)
	case "-", "_":
		m.zoomTarget = math.Max(minZoom, m.zoomTarget/1.25)
	case "0":
		m.zoomTarget = 1
	case "g":
		m.showGraph = !m.showGraph
	}
	return m, nil
}

func (m Model) editKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.editing = false
		v, err := strconv.ParseFloat(strings.TrimSpace(m.editBuf), 64)
		m.editBuf = ""
		if err != nil {
			m.err = fmt.Errorf("not a number: %w", err)
			return m, nil
		}
		m.write(m.fields[m.cursor], v)
	case "esc":
		m.editing = false
		m.editBuf = ""
	case "backspace":
		if len(m.editBuf) > 0 {
			m.editBuf = m.editBuf[:len(m.editBuf)-1]
		}
	case "ctrl+c":
		return m, tea.Quit
	default:
		for _, r := range msg.Runes {
			if (r >= '0' && r <= '9') || strings.ContainsRune(".-+eE", r) {
				m.editBuf += string(r)
			}
		}
	}
	return m, nil
}

func (m *Model) write(f params.Field, v float64) {
	if err := m.surface.Write(f, v); err != nil {
		m.err = err
		return
	}
	msg := fmt.Sprintf("%s = %g", f.Label(), v)
	if !f.Live() {
		msg += " (applies on reset)"
	}
	m.setStatus(msg)
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.err = nil
}

func (m Model) step(f params.Field) float64 {
	if s, ok := m.opts.Steps[f]; ok && s > 0 {
		return s
	}
	return 0.1
}

// Err is the last rejected edit, if any.
func (m Model) Err() error { return m.err }

func (m Model) View() string {
	left := m.controlsView()
	right := m.sceneView()
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)

	parts := []string{viz.Title.Render("springsim"), body}
	if m.showGraph && len(m.history) > 1 {
		parts = append(parts, m.graphView())
	}
	parts = append(parts, m.statusView(), viz.KeyHint.Render("j/k select  h/l nudge  enter edit  r reset  R restart  +/- zoom  g graph  q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) controlsView() string {
	snap := m.surface.Read()
	var b strings.Builder
	for i, f := range m.fields {
		label := fmt.Sprintf("%-10s", f.Label())
		value := fmt.Sprintf("%10.4g", snap.Get(f))
		switch {
		case i == m.cursor && m.editing:
			b.WriteString(viz.Selected.Render("> "+label) + " " + viz.Editing.Render(fmt.Sprintf("%-10s", m.editBuf+"_")))
		case i == m.cursor:
			b.WriteString(viz.Selected.Render("> "+label) + " " + viz.MetricValue.Render(value))
		default:
			b.WriteString("  " + viz.MetricLabel.Render(label) + " " + value)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.telemetryView())
	return viz.Panel.Render(b.String())
}

func (m Model) telemetryView() string {
	f := m.frame
	rows := [][2]string{
		{"t", fmt.Sprintf("%.3f s", f.Time)},
		{"tick", strconv.FormatUint(f.Tick, 10)},
		{"x", fmt.Sprintf("%+.5f", f.Displacement)},
		{"stretch", fmt.Sprintf("%+.5f", f.Elongation)},
		{"anchor", fmt.Sprintf("%+.5f", f.Anchor)},
		{"v", fmt.Sprintf("%+.5f", f.Mass.Velocity)},
	}
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(viz.MetricLabel.Render(fmt.Sprintf("%-10s", r[0])) + " " + viz.MetricValue.Render(r[1]) + "\n")
	}
	if m.metrics != nil {
		vals := m.metrics.Values()
		if e, ok := vals["energy"]; ok {
			b.WriteString(viz.MetricLabel.Render(fmt.Sprintf("%-10s", "energy")) + " " + viz.MetricValue.Render(fmt.Sprintf("%.5f", e)) + "\n")
		}
		if env, ok := vals["envelope"]; ok {
			b.WriteString(viz.MetricLabel.Render(fmt.Sprintf("%-10s", "envelope")) + " " + viz.Bar(env, 12) + "\n")
		}
	}
	return b.String()
}

func (m Model) sceneView() string {
	if m.scene == nil {
		return ""
	}
	m.renderer.Render(m.scene)
	return viz.Panel.Render(viz.Scene.Render(m.renderer.Canvas.String()))
}

func (m Model) graphView() string {
	width := max(20, min(m.width-12, historyLen))
	return asciigraph.Plot(m.history,
		asciigraph.Height(6),
		asciigraph.Width(width),
		asciigraph.Precision(3),
		asciigraph.Caption("displacement"),
	)
}

func (m Model) statusView() string {
	var parts []string
	if m.err != nil {
		parts = append(parts, viz.StatusError.Render(m.err.Error()))
	} else if m.status != "" {
		parts = append(parts, viz.StatusOK.Render(m.status))
	}
	if m.frame.Stalled {
		parts = append(parts, viz.StatusError.Render(fmt.Sprintf("stalled: %d non-finite ticks, reset or restart", m.frame.Diverged)))
	}
	if m.frame.Dropped > 0 || m.frame.Anomalies > 0 {
		parts = append(parts, viz.StatusWarn.Render(fmt.Sprintf("behind: dropped %v, %d bad frames", m.frame.Dropped, m.frame.Anomalies)))
	}
	parts = append(parts, viz.Subtle.Render(fmt.Sprintf("v%d  zoom %.2fx", m.surface.Version(), m.zoom)))
	return strings.Join(parts, "  ")
}
