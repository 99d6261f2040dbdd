// Package simulator is a terminal stand-in for the hardware control surface.
// Keys produce the same named events the surface does.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ivlev/ministudio/internal/control"
)

const sliderStep = 0.1

type (
	// Emit delivers one event to the router.
	Emit func(control.Event)
	// StatusFunc reports the router state for the view.
	StatusFunc func() control.Status
)

// holdKeys toggle between press and release since terminals have no key-up.
var holdKeys = map[string]string{
	"f1": "F1", "m": "F1",
	"f2": "F2", "h": "F2",
	"f3": "F3", "z": "F3",
}

// clickKeys send a press followed by a release.
var clickKeys = map[string]string{
	"p": "Play", "r": "Record", "s": "Stop",
	"1": "Aux1", "2": "Aux2", "3": "Aux3", "4": "Aux4",
	"c":    "InputC+D",
	"left": "Rew", "right": "Fwd",
}

var (
	nord0  = lipgloss.Color("#2E3440")
	nord2  = lipgloss.Color("#434C5E")
	nord3  = lipgloss.Color("#4C566A")
	nord4  = lipgloss.Color("#D8DEE9")
	nord8  = lipgloss.Color("#88C0D0")
	nord10 = lipgloss.Color("#5E81AC")
	nord11 = lipgloss.Color("#BF616A")
	nord14 = lipgloss.Color("#A3BE8C")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(nord8)
	btnStyle   = lipgloss.NewStyle().Padding(0, 1).Foreground(nord4).Background(nord2)
	btnOnStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(nord0).Background(nord10)
	recStyle   = lipgloss.NewStyle().Padding(0, 1).Foreground(nord0).Background(nord11)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(nord3).Padding(0, 1)
	helpStyle  = lipgloss.NewStyle().Faint(true)
)

type statusMsg control.Status

type Model struct {
	emit   Emit
	status StatusFunc

	held   map[string]bool
	slider float64
	last   string
	st     control.Status
}

func New(emit Emit, status StatusFunc) *Model {
	m := &Model{emit: emit, status: status, held: make(map[string]bool), slider: 1}
	if status != nil {
		m.st = status()
		m.slider = m.st.CameraOpacity
	}
	return m
}

// eventsFor maps a key to surface events and updates local key state.
func (m *Model) eventsFor(key string) []control.Event {
	if name, ok := holdKeys[key]; ok {
		m.held[name] = !m.held[name]
		return []control.Event{control.ButtonEvent(name, m.held[name])}
	}
	if name, ok := clickKeys[key]; ok {
		return []control.Event{control.ButtonEvent(name, true), control.ButtonEvent(name, false)}
	}
	switch key {
	case "up", "down":
		next := m.slider + sliderStep
		if key == "down" {
			next = m.slider - sliderStep
		}
		next = math.Round(math.Min(1, math.Max(0, next))*100) / 100
		if next == m.slider {
			return nil
		}
		m.slider = next
		return []control.Event{control.SliderEvent("Channel1", next)}
	case "+", "=":
		return []control.Event{control.KnobEvent("BigDial", true)}
	case "-", "_":
		return []control.Event{control.KnobEvent("BigDial", false)}
	}
	return nil
}

func (m *Model) refresh() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg {
		if m.status == nil {
			return statusMsg{}
		}
		return statusMsg(m.status())
	})
}

func (m *Model) Init() tea.Cmd { return m.refresh() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" || key == "q" {
			return m, tea.Quit
		}
		evs := m.eventsFor(key)
		for _, ev := range evs {
			if m.emit != nil {
				m.emit(ev)
			}
		}
		if len(evs) > 0 {
			m.last = evs[len(evs)-1].String()
			if m.status != nil {
				m.st = m.status()
			}
		}
	case statusMsg:
		m.st = control.Status(msg)
		return m, m.refresh()
	}
	return m, nil
}

func button(label string, on bool) string {
	if on {
		return btnOnStyle.Render(label)
	}
	return btnStyle.Render(label)
}

func bar(ratio float64, width int) string {
	filled := int(math.Round(ratio * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func (m *Model) View() string {
	st := m.st

	transport := button("Play [p]", st.Live && !st.Saving)
	if st.Saving {
		transport += " " + recStyle.Render("Record [r]")
	} else {
		transport += " " + button("Record [r]", false)
	}
	transport += " " + button("Stop [s]", !st.Live)

	aux := lipgloss.JoinHorizontal(lipgloss.Top,
		button("Aux1 camera", st.Camera), " ",
		button("Aux2 title", st.Title), " ",
		button("Aux3", false), " ",
		button("Aux4 logo", st.Logo),
	)
	fkeys := lipgloss.JoinHorizontal(lipgloss.Top,
		button("F1 magnifier", m.held["F1"]), " ",
		button("F2 hold", m.held["F2"]), " ",
		button("F3 pip", m.held["F3"]),
	)

	state := lipgloss.NewStyle().Foreground(nord11).Render("stopped")
	if st.Live {
		state = lipgloss.NewStyle().Foreground(nord14).Render("live")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("MiniStudio surface") + "  " + state + "\n\n")
	b.WriteString(transport + "\n\n" + aux + "\n\n" + fkeys + "\n\n")
	fmt.Fprintf(&b, "Channel1 [%s] %.2f\n", bar(m.slider, 20), m.slider)
	fmt.Fprintf(&b, "BigDial  magnifier ×%.2f  pip ×%.2f\n", st.MagLevel, st.PIPSize)
	if st.Panel {
		b.WriteString("panel open\n")
	}
	if m.last != "" {
		b.WriteString("\n" + helpStyle.Render("last: "+m.last) + "\n")
	}
	b.WriteString(helpStyle.Render("\n←/→ rew/fwd  ↑/↓ channel1  +/- bigdial  c panel  q quit"))
	return panelStyle.Render(b.String())
}

// Run shows the surface until the user quits or ctx is done.
func Run(ctx context.Context, emit Emit, status StatusFunc) error {
	p := tea.NewProgram(New(emit, status), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("simulator: %w", err)
	}
	return nil
}
