package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/SamEberl/control-playground/internal/cartpole"
	"github.com/SamEberl/control-playground/internal/sim"
)

const (
	canvasCols = 80
	canvasRows = 20

	refStepX     = 0.1
	refStepTheta = 2.0 * math.Pi / 180.0
	gainStep     = 1.05
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(42)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model is the bubbletea program state around a simulation loop. All
// mutation happens on the bubbletea goroutine, which satisfies the
// loop's single-goroutine requirement.
type Model struct {
	loop   *sim.Loop
	params cartpole.Params
	canvas *Canvas
	title  string

	// Force asserted by the arrow keys, consumed on the next frame.
	nudge float64

	thetaHist []float64
	xHist     []float64

	gainNames  []string
	selected   int
	showCharts bool
	showHelp   bool
}

func NewModel(loop *sim.Loop, p cartpole.Params, title string) Model {
	m := Model{
		loop:      loop,
		params:    p,
		canvas:    NewCanvas(canvasCols, canvasRows),
		title:     title,
		thetaHist: make([]float64, 0, p.HistoryLen),
		xHist:     make([]float64, 0, p.HistoryLen),
	}
	if tun, ok := loop.Controller().(sim.Tunable); ok {
		for name := range tun.Gains() {
			m.gainNames = append(m.gainNames, name)
		}
		sort.Strings(m.gainNames)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.loop.TogglePause()
		case "r":
			m.loop.Reset()
			m.thetaHist = m.thetaHist[:0]
			m.xHist = m.xHist[:0]
		case "left":
			m.nudge = -m.params.MaxDisturbance
		case "right":
			m.nudge = m.params.MaxDisturbance
		case "q":
			m.shiftReference(refStepX, 0)
		case "a":
			m.shiftReference(-refStepX, 0)
		case "w":
			m.shiftReference(0, refStepTheta)
		case "s":
			m.shiftReference(0, -refStepTheta)
		case "c":
			m.loop.SetReference(sim.Reference{})
		case "f":
			m.loop.SetFriction(!m.loop.FrictionEnabled())
		case "tab":
			if len(m.gainNames) > 0 {
				m.selected = (m.selected + 1) % len(m.gainNames)
			}
		case "up", "k":
			m.adjustGain(gainStep)
		case "down", "j":
			m.adjustGain(1 / gainStep)
		case "h":
			m.showCharts = !m.showCharts
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		m.loop.SetDisturbance(m.nudge)
		m.loop.Advance(m.params.Substeps)
		m.nudge = 0
		m.record()
		return m, tick()
	}
	return m, nil
}

func (m *Model) shiftReference(dx, dtheta float64) {
	ref := m.loop.Reference()
	ref.X += dx
	ref.Theta += dtheta
	m.loop.SetReference(ref)
}

func (m *Model) adjustGain(factor float64) {
	tun, ok := m.loop.Controller().(sim.Tunable)
	if !ok || len(m.gainNames) == 0 {
		return
	}
	name := m.gainNames[m.selected]
	val := tun.Gains()[name]
	if val == 0 {
		val = 0.1
	} else {
		val *= factor
	}
	tun.SetGain(name, val)
}

func (m *Model) record() {
	st := m.loop.State()
	m.thetaHist = appendBounded(m.thetaHist, cartpole.WrapAngle(st[sim.Theta]), m.params.HistoryLen)
	m.xHist = appendBounded(m.xHist, st[sim.X], m.params.HistoryLen)
}

func appendBounded(hist []float64, v float64, max int) []float64 {
	hist = append(hist, v)
	if len(hist) > max {
		hist = hist[1:]
	}
	return hist
}

func (m Model) View() string {
	m.draw()

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.title)) + "\n")

	status := "RUNNING"
	if !m.loop.Running() {
		status = "PAUSED"
	}
	s.WriteString(status + "\n\n")

	st := m.loop.State()
	ref := m.loop.Reference()
	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", m.loop.Time())) + "\n")
	s.WriteString(labelStyle.Render("x") + valueStyle.Render(fmt.Sprintf("%+.3f m (ref %+.2f)", st[sim.X], ref.X)) + "\n")
	s.WriteString(labelStyle.Render("theta") + valueStyle.Render(fmt.Sprintf("%+.2f deg (ref %+.1f)",
		cartpole.WrapAngle(st[sim.Theta])*180/math.Pi, ref.Theta*180/math.Pi)) + "\n")
	s.WriteString(labelStyle.Render("Force") + valueStyle.Render(fmt.Sprintf("%+.2f N", m.loop.AppliedForce())) + "\n")
	s.WriteString(labelStyle.Render("Energy") + valueStyle.Render(fmt.Sprintf("%.3f J", m.loop.Energy())) + "\n")

	friction := "off"
	if m.loop.FrictionEnabled() {
		friction = "on"
	}
	s.WriteString(labelStyle.Render("Friction") + valueStyle.Render(friction) + "\n")

	if m.loop.Saturated() {
		s.WriteString(warnStyle.Render("SATURATED") + "\n")
	}
	if m.loop.Faults() > 0 {
		s.WriteString(warnStyle.Render(fmt.Sprintf("faults: %d", m.loop.Faults())) + "\n")
	}
	if err := m.loop.Err(); err != nil && !m.loop.Running() {
		s.WriteString(warnStyle.Render(err.Error()) + "\n")
	}

	if tun, ok := m.loop.Controller().(sim.Tunable); ok && len(m.gainNames) > 0 {
		s.WriteString("\nGAINS\n")
		gains := tun.Gains()
		for i, name := range m.gainNames {
			line := fmt.Sprintf("%-4s %8.3f", name, gains[name])
			if i == m.selected {
				s.WriteString(activeStyle.Render("> "+line) + "\n")
			} else {
				s.WriteString("  " + labelStyle.Render(line) + "\n")
			}
		}
	}

	if m.showCharts && len(m.thetaHist) > 1 {
		s.WriteString(graphStyle.Render(asciigraph.Plot(m.thetaHist,
			asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("theta (rad)"))) + "\n")
		s.WriteString(graphStyle.Render(asciigraph.Plot(m.xHist,
			asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("x (m)"))) + "\n")
	}

	s.WriteString(helpStyle.Render("\n←→:Push SP:Pause R:Reset\nQ/A:RefX W/S:RefTheta C:Center\nF:Friction Tab ↑↓:Gains H:Charts ?:Help"))

	view := lipgloss.JoinHorizontal(lipgloss.Top,
		canvasStyle.Render(m.canvas.String()),
		statsStyle.Render(s.String()))

	if m.showHelp {
		return helpScreen + "\n" + view
	}
	return view
}

const helpScreen = `
  KEYS
    Left/Right  push the cart (held force for one frame)
    Space       pause / resume
    R           reset state, metrics and controller
    Q / A       move position reference right / left
    W / S       tilt angle reference
    C           center both references
    F           toggle friction
    Tab         select gain      Up/Down  adjust selected gain
    H           toggle history charts
    ?           toggle this help
    Esc         quit`

// draw renders track, end stops, cart, pole and reference marker into
// the braille canvas.
func (m *Model) draw() {
	m.canvas.Clear()

	cw, ch := m.canvas.Cols*2, m.canvas.Rows*4
	cx := cw / 2
	groundY := ch - 12

	// Dots per meter so the full track plus margins fits.
	scale := float64(cw-16) / (2 * m.params.TrackHalfLength)

	st := m.loop.State()
	ref := m.loop.Reference()

	// Track and end stops.
	leftX := cx - int(m.params.TrackHalfLength*scale)
	rightX := cx + int(m.params.TrackHalfLength*scale)
	m.canvas.Line(leftX-2, groundY+5, rightX+2, groundY+5)
	m.canvas.Line(leftX-2, groundY-6, leftX-2, groundY+5)
	m.canvas.Line(rightX+2, groundY-6, rightX+2, groundY+5)

	// Reference marker under the track.
	refX := cx + int(ref.X*scale)
	m.canvas.Line(refX, groundY+6, refX, groundY+7)

	// Cart body.
	cartX := cx + int(st[sim.X]*scale)
	m.canvas.FillRect(cartX-6, groundY, cartX+6, groundY+4)

	// Pole, theta measured from upright.
	theta := st[sim.Theta]
	poleLen := float64(ch) * 0.62
	tipX := cartX + int(poleLen*math.Sin(theta))
	tipY := groundY - int(poleLen*math.Cos(theta))
	m.canvas.Line(cartX, groundY, tipX, tipY)
	m.canvas.Blob(tipX, tipY, 1)
}

// Run starts the interactive session and blocks until the user quits.
func Run(loop *sim.Loop, p cartpole.Params, title string) error {
	_, err := tea.NewProgram(NewModel(loop, p, title)).Run()
	return err
}
