package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/medetbek/worklens/internal/models"
	synceng "github.com/medetbek/worklens/internal/sync"
	"github.com/medetbek/worklens/internal/tracker"
)

// TimerModel is the TUI model for the live session timer
type TimerModel struct {
	width  int
	height int

	machine *tracker.Tracker
	engine  *synceng.Engine
	status  tracker.Status

	// Animation state
	animation int

	// Stop flow: s opens a title prompt, enter stops and waits for the sync
	titleInput   textinput.Model
	prompting    bool
	stopping     bool
	stopped      bool
	detached     bool
	finalElapsed time.Duration
	err          error
}

// timerTickMsg is sent every second to refresh the clock
type timerTickMsg struct{}

// animationTickMsg is sent for faster animations
type animationTickMsg struct{}

// stoppedMsg carries the result of the stop-and-sync command
type stoppedMsg struct {
	status tracker.Status
	err    error
}

// NewTimerModel creates a new timer TUI model
func NewTimerModel(machine *tracker.Tracker, engine *synceng.Engine) TimerModel {
	input := textinput.New()
	input.Placeholder = "What did you work on?"
	input.CharLimit = 120
	input.Width = 48

	return TimerModel{
		machine:    machine,
		engine:     engine,
		status:     machine.Status(),
		titleInput: input,
	}
}

// Init starts the timer and animation tickers
func (m TimerModel) Init() tea.Cmd {
	return tea.Batch(timerTick(), animationTick())
}

func timerTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return timerTickMsg{} })
}

func animationTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg { return animationTickMsg{} })
}

// Update handles messages
func (m TimerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case timerTickMsg:
		m.status = m.machine.Status()
		if m.done() {
			return m, nil
		}
		return m, timerTick()

	case animationTickMsg:
		m.animation = (m.animation + 1) % 4
		if m.done() {
			return m, nil
		}
		return m, animationTick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case stoppedMsg:
		m.stopping = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.stopped = true
			m.finalElapsed = msg.status.Elapsed
		}
		return m, tea.Quit

	case tea.KeyMsg:
		if m.prompting {
			return m.updatePrompt(msg)
		}
		switch msg.String() {
		case "p", "P":
			if _, err := m.machine.Pause(); err == nil {
				m.status = m.machine.Status()
			}
			return m, nil
		case "r", "R":
			if _, err := m.machine.Resume(); err == nil {
				m.status = m.machine.Status()
			}
			return m, nil
		case "s", "S":
			m.prompting = true
			m.titleInput.Focus()
			return m, textinput.Blink
		case "ctrl+c", "esc", "q":
			// Detach without stopping; the persisted state survives
			m.detached = true
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m TimerModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.prompting = false
		m.stopping = true
		title := strings.TrimSpace(m.titleInput.Value())
		machine := m.machine
		return m, func() tea.Msg {
			// Wait for the sync so the final session is uploaded before exit
			status, err := machine.Stop(title, true)
			return stoppedMsg{status: status, err: err}
		}
	case "esc":
		m.prompting = false
		m.titleInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.titleInput, cmd = m.titleInput.Update(msg)
	return m, cmd
}

func (m TimerModel) done() bool {
	return m.stopped || m.detached || m.err != nil
}

// View renders the timer TUI
func (m TimerModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	helpBar := m.renderHelpBar()
	contentHeight := m.height - 2

	panel := m.renderTimerPanel(m.width, contentHeight)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		panel,
		helpBar,
	)
}

// renderTimerPanel renders the centered timer panel
func (m TimerModel) renderTimerPanel(width, height int) string {
	var components []string

	paused := m.status.State == models.StatusPaused

	header := "TRACKING"
	headerColor := ColorAccentBright
	if paused {
		header = "PAUSED"
		headerColor = ColorWarning
	}
	animChars := []string{"⏱", "⏲", "⏱", "⏲"}
	headerText := fmt.Sprintf("%s  %s  %s", animChars[m.animation], header, animChars[m.animation])
	if paused {
		headerText = fmt.Sprintf("⏸  %s  ⏸", header)
	}

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(headerColor)).
		Bold(true).
		Align(lipgloss.Center).
		Width(width)
	components = append(components, headerStyle.Render(headerText))

	if m.status.Session != nil && m.status.Session.Title != "" {
		titleStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorPrimaryText)).
			Bold(true).
			Align(lipgloss.Center).
			Width(width)
		title := m.status.Session.Title
		if len(title) > width-4 {
			title = title[:width-7] + "..."
		}
		components = append(components, titleStyle.Render(title))
	}

	// Big clock
	clock := renderBigClock(m.status.Elapsed)
	var clockContent strings.Builder
	for _, line := range strings.Split(clock, "\n") {
		clockContent.WriteString(lipgloss.NewStyle().
			Align(lipgloss.Center).
			Width(width).
			Render(line))
		clockContent.WriteString("\n")
	}
	components = append(components, strings.TrimRight(clockContent.String(), "\n"))

	// Session info line
	info := ""
	if m.status.Session != nil {
		info = fmt.Sprintf("Started at %s", m.status.Session.StartedAt.Format("15:04:05"))
	}
	if m.status.Paused > 0 {
		info += fmt.Sprintf("  ·  paused %s", formatClock(m.status.Paused))
	}
	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorSecondaryText)).
		Italic(true).
		Align(lipgloss.Center).
		Width(width)
	components = append(components, infoStyle.Render(info))

	if m.prompting {
		promptStyle := lipgloss.NewStyle().
			Align(lipgloss.Center).
			Width(width)
		components = append(components, promptStyle.Render("Session title: "+m.titleInput.View()))
	}
	if m.stopping {
		stopStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSuccess)).
			Align(lipgloss.Center).
			Width(width)
		components = append(components, stopStyle.Render("Stopping and syncing..."))
	}

	content := strings.Join(components, "\n\n")

	panelStyle := lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center)
	return panelStyle.Render(content)
}

func (m TimerModel) renderHelpBar() string {
	help := "p pause · r resume · s stop · esc detach"
	if m.prompting {
		help = "enter stop · esc cancel"
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Align(lipgloss.Center).
		Width(m.width).
		Render(help)
}

// bigDigits is the 5-row ASCII art for the clock display
var bigDigits = map[rune][]string{
	'0': {" ███ ", "█   █", "█   █", "█   █", " ███ "},
	'1': {"  █  ", " ██  ", "  █  ", "  █  ", "█████"},
	'2': {" ███ ", "█   █", "   █ ", "  █  ", "█████"},
	'3': {" ███ ", "█   █", "  ██ ", "█   █", " ███ "},
	'4': {"█   █", "█   █", "█████", "    █", "    █"},
	'5': {"█████", "█    ", "████ ", "    █", "████ "},
	'6': {" ███ ", "█    ", "████ ", "█   █", " ███ "},
	'7': {"█████", "    █", "   █ ", "  █  ", " █   "},
	'8': {" ███ ", "█   █", " ███ ", "█   █", " ███ "},
	'9': {" ███ ", "█   █", " ████", "    █", " ███ "},
	':': {"     ", "  █  ", "     ", "  █  ", "     "},
}

// renderBigClock renders the elapsed time as ASCII art
func renderBigClock(d time.Duration) string {
	var lines [5]strings.Builder
	for _, char := range formatClock(d) {
		art, ok := bigDigits[char]
		if !ok {
			continue
		}
		for i := 0; i < 5; i++ {
			lines[i].WriteString(art[i])
			lines[i].WriteString(" ")
		}
	}

	out := make([]string, 5)
	for i := range lines {
		out[i] = strings.TrimRight(lines[i].String(), " ")
	}
	return strings.Join(out, "\n")
}

// formatClock formats a duration as hh:mm:ss, dropping the hour when zero
func formatClock(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
