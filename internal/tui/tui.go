// Package tui is the operator console: a bubbletea program that shows the
// engine state and turns key presses into engine inputs.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cjeanneret/PongGo/internal/link"
	"github.com/cjeanneret/PongGo/internal/logic/drill"
	"github.com/cjeanneret/PongGo/internal/logic/motion"
	"github.com/cjeanneret/PongGo/internal/logic/session"
	"github.com/cjeanneret/PongGo/internal/robot"
)

// stickStep is how far one arrow press moves the virtual stick.
const stickStep = 0.25

const submitTimeout = time.Second

// --- STYLES ---
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#575B7E")).
			Padding(0, 1)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	keyStyle  = lipgloss.NewStyle().Bold(true)
	upStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	downStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// setupScreens is the order tab walks through when no session runs.
var setupScreens = []robot.Screen{
	robot.ScreenHome,
	robot.ScreenPan,
	robot.ScreenTilt,
	robot.ScreenLauncher,
	robot.ScreenSpin,
	robot.ScreenFeeder,
	robot.ScreenTimer,
}

// Engine is the part of the control loop the console drives.
type Engine interface {
	Snapshot() robot.Snapshot
	Submit(ctx context.Context, in robot.Input) error
}

// --- MODEL ---
type tickMsg time.Time

// submittedMsg reports the outcome of one engine submission.
type submittedMsg struct {
	what string
	err  error
}

type Model struct {
	eng       Engine
	refresh   time.Duration
	textInput textinput.Model
	snap      robot.Snapshot
	stick     motion.Stick
	status    string
	width     int
}

// NewModel builds a console polling eng every refresh.
func NewModel(eng Engine, refresh time.Duration) Model {
	ti := textinput.New()
	ti.Placeholder = "START | STOP | A,500,-250 | N,MyPhone | <C,...>"
	ti.CharLimit = link.MaxLineLen

	return Model{
		eng:       eng,
		refresh:   refresh,
		textInput: ti,
		snap:      eng.Snapshot(),
		status:    "Ready.",
		width:     80,
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

// --- UPDATE ---
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.textInput.Focused() {
			switch msg.Type {
			case tea.KeyEnter:
				return m, m.sendLine()
			case tea.KeyEsc:
				m.textInput.Blur()
				return m, nil
			case tea.KeyCtrlC:
				return m, tea.Quit
			}
			m.textInput, cmd = m.textInput.Update(msg)
			return m, cmd
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		m.snap = m.eng.Snapshot()
		return m, m.tick()

	case submittedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %s not queued: %v", msg.what, msg.err)
		} else {
			m.status = "Queued " + msg.what
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "i", ":":
		m.textInput.Focus()
		return m, textinput.Blink
	case "s":
		return m, m.submit("start", robot.StartInput{})
	case "p", "x":
		return m, m.submit("stop", robot.StopInput{Reason: session.StopConsole})
	case "tab":
		return m, m.submit("screen", robot.ScreenInput{Screen: m.nextScreen()})
	case "h":
		return m, m.submit("screen", robot.ScreenInput{Screen: robot.ScreenHome})
	case "left":
		return m.moveStick(-stickStep, 0)
	case "right":
		return m.moveStick(stickStep, 0)
	case "up":
		return m.moveStick(0, stickStep)
	case "down":
		return m.moveStick(0, -stickStep)
	case " ":
		m.stick = motion.Stick{}
		return m, m.submit("stick", robot.StickInput(m.stick))
	}
	return m, nil
}

func (m Model) moveStick(dx, dy float64) (tea.Model, tea.Cmd) {
	m.stick.X = drill.ClampFloat(m.stick.X+dx, -1, 1)
	m.stick.Y = drill.ClampFloat(m.stick.Y+dy, -1, 1)
	return m, m.submit("stick", robot.StickInput(m.stick))
}

// nextScreen is the setup page after the one currently shown.
func (m Model) nextScreen() robot.Screen {
	cur, _ := robot.ParseScreen(m.snap.Screen)
	for i, s := range setupScreens {
		if s == cur {
			return setupScreens[(i+1)%len(setupScreens)]
		}
	}
	return setupScreens[0]
}

func (m *Model) sendLine() tea.Cmd {
	line := strings.TrimSpace(m.textInput.Value())
	m.textInput.SetValue("")
	if line == "" {
		return nil
	}
	return m.submit(fmt.Sprintf("%q", line), robot.LineInput{Line: line})
}

// submit hands in to the engine off the UI goroutine.
func (m Model) submit(what string, in robot.Input) tea.Cmd {
	eng := m.eng
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		return submittedMsg{what: what, err: eng.Submit(ctx, in)}
	}
}

// --- VIEW ---
func (m Model) View() string {
	half := m.width/2 - 2
	if half < 30 {
		half = 30
	}
	top := lipgloss.JoinHorizontal(lipgloss.Top,
		paneStyle.Width(half).Render(m.renderSession()),
		paneStyle.Width(half).Render(m.renderHardware()),
	)
	parts := []string{
		titleStyle.Render("PongGo"),
		top,
		m.renderLink(),
		"Status: " + m.status,
		m.textInput.View(),
	}
	if m.textInput.Focused() {
		parts = append(parts, renderCommands(), helpStyle.Render("enter send · esc close"))
	} else {
		parts = append(parts, helpStyle.Render("s start · p stop · tab next screen · h home · arrows stick · space centre · i command · q quit"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderCommands lists what the command line accepts.
func renderCommands() string {
	var b strings.Builder
	for _, c := range link.Commands() {
		b.WriteString(keyStyle.Render(fmt.Sprintf("%-10s", c.Name)))
		b.WriteString(helpStyle.Render(c.Description))
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (m Model) renderSession() string {
	s := m.snap
	state := "idle"
	if s.Running {
		state = upStyle.Render("RUNNING")
	}
	lines := []string{
		keyStyle.Render("Screen:  ") + s.Screen,
		keyStyle.Render("Session: ") + state,
		keyStyle.Render("Played:  ") + formatMs(s.PlayedMs),
		keyStyle.Render("Best:    ") + formatMs(s.MaxPlayedMs),
		keyStyle.Render("Timer:   ") + s.Timer,
		keyStyle.Render("Drill:   ") + fmt.Sprintf("%s/%s spin %s feeder %s",
			s.Config.PanMode, s.Config.TiltMode, s.Config.SpinMode, s.Config.FeederMode),
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHardware() string {
	s := m.snap
	motors := s.Motors
	lines := []string{
		keyStyle.Render("Aim:     ") + fmt.Sprintf("pan %+.2f tilt %+.2f", s.LivePan, s.LiveTilt),
		keyStyle.Render("Stick:   ") + fmt.Sprintf("x %+.2f y %+.2f", m.stick.X, m.stick.Y),
		keyStyle.Render("Motors:  ") + fmt.Sprintf("M1 %d  M2 %d  M3 %d", motors[0], motors[1], motors[2]),
		keyStyle.Render("Feeder:  ") + fmt.Sprintf("%d", motors[3]),
		keyStyle.Render("Pan cal: ") + fmt.Sprintf("%d/%d/%d", s.PanCal.Min, s.PanCal.Mid, s.PanCal.Max),
		keyStyle.Render("Tilt cal:") + fmt.Sprintf(" %d/%d/%d", s.TiltCal.Min, s.TiltCal.Mid, s.TiltCal.Max),
	}
	if s.MotorTest {
		lines = append(lines, downStyle.Render("Motor test active"))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderLink() string {
	if !m.snap.Link.Connected {
		return "Link: " + downStyle.Render("down")
	}
	name := m.snap.Link.DeviceName
	if name == "" {
		name = "connected"
	}
	return "Link: " + upStyle.Render(name)
}

func formatMs(ms int64) string {
	return fmt.Sprintf("%.1f s", float64(ms)/1000)
}
