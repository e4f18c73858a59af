// Package tui is the terminal front end for a session: a single view with
// the engine text, a start/stop key and a short history of stopped sessions.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/petems/mask-tray/internal/session"
)

const maxHistory = 8

var (
	colorListening = lipgloss.Color("#dc2626")
	colorFound     = lipgloss.Color("#16a34a")
	colorIdle      = lipgloss.Color("#4b5563")
	colorError     = lipgloss.Color("#d97706")
	colorDimmed    = lipgloss.Color("#6b7280")
	colorBorder    = lipgloss.Color("#4b5563")

	titleStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(colorDimmed)
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorBorder).Padding(0, 1)
	badgeStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("#f9fafb"))
	matchStyle  = lipgloss.NewStyle().Foreground(colorFound)
	errorStyle  = lipgloss.NewStyle().Foreground(colorError)
	spinnerType = spinner.Dot
)

// Messages delivered through the Presenter.
type (
	displayMsg struct{ ev session.DisplayEvent }
	textMsg    struct{ text string }
	toggledMsg struct{}
)

// Model is the Bubble Tea model for the listen view.
type Model struct {
	toggle func()
	keys   KeyMap
	spin   spinner.Model
	width  int

	active    bool
	available bool
	text      string
	lastErr   error
	history   []string
}

// New creates the model. toggle is invoked off the event loop.
func New(toggle func()) Model {
	return Model{
		toggle:    toggle,
		keys:      DefaultKeyMap(),
		spin:      spinner.New(spinner.WithSpinner(spinnerType)),
		available: true,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spin.Tick
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case displayMsg:
		m.applyEvent(msg.ev)
		return m, nil

	case textMsg:
		m.text = msg.text
		return m, nil

	case toggledMsg:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		if !m.available || m.toggle == nil {
			return m, nil
		}
		// The controller emits display events synchronously, so toggling on
		// the event loop would block on our own Presenter.
		toggle := m.toggle
		return m, func() tea.Msg {
			toggle()
			return toggledMsg{}
		}

	case key.Matches(msg, m.keys.Clear):
		m.history = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) applyEvent(ev session.DisplayEvent) {
	switch ev.Kind {
	case session.EventStarted:
		m.active = true
		m.lastErr = nil
	case session.EventStartFailed:
		m.active = false
		m.lastErr = ev.Err
	case session.EventUnavailable:
		m.active = false
		m.available = false
		m.lastErr = ev.Err
	}

	if ev.Stopped() {
		m.active = false
		m.history = append([]string{historyLine(ev)}, m.history...)
		if len(m.history) > maxHistory {
			m.history = m.history[:maxHistory]
		}
	}
}

func historyLine(ev session.DisplayEvent) string {
	at := ev.At.Format("15:04:05")
	switch ev.Kind {
	case session.EventStoppedFound:
		line := fmt.Sprintf("%s  found %s", at, ev.SongID)
		if ev.Asset != "" {
			line += fmt.Sprintf(" → %s @ %s", ev.Asset, ev.Offset.Round(time.Millisecond))
		}
		return line
	case session.EventStoppedTimeout:
		return fmt.Sprintf("%s  timed out", at)
	default:
		return fmt.Sprintf("%s  cancelled", at)
	}
}

// View renders the model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("mask-tray"))
	b.WriteString("  ")
	b.WriteString(m.badge())
	b.WriteString("\n\n")

	text := m.text
	if text == "" {
		text = "…"
	}
	if m.active {
		text = m.spin.View() + " " + text
	}
	b.WriteString(panelStyle.Render(text))
	b.WriteString("\n")

	if m.lastErr != nil {
		b.WriteString(errorStyle.Render(m.lastErr.Error()))
		b.WriteString("\n")
	}

	if len(m.history) > 0 {
		b.WriteString("\n")
		for _, line := range m.history {
			if strings.Contains(line, " found ") {
				b.WriteString(matchStyle.Render(line))
			} else {
				b.WriteString(dimStyle.Render(line))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.help()))
	return b.String()
}

func (m Model) badge() string {
	switch {
	case !m.available:
		return badgeStyle.Background(colorError).Render("UNAVAILABLE")
	case m.active:
		return badgeStyle.Background(colorListening).Render("LISTENING")
	case len(m.history) > 0 && strings.Contains(m.history[0], " found "):
		return badgeStyle.Background(colorFound).Render("FOUND")
	default:
		return badgeStyle.Background(colorIdle).Render("IDLE")
	}
}

func (m Model) help() string {
	parts := []string{}
	for _, b := range []key.Binding{m.keys.Toggle, m.keys.Clear, m.keys.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
