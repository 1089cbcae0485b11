package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	synceng "github.com/medetbek/worklens/internal/sync"
	"github.com/medetbek/worklens/internal/tracker"
)

// RunTimerTUI starts the interactive timer for the active session
func RunTimerTUI(machine *tracker.Tracker, engine *synceng.Engine) error {
	model := NewTimerModel(machine, engine)

	p := tea.NewProgram(model, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	// Handle exit messages after TUI closes
	if m, ok := finalModel.(TimerModel); ok {
		switch {
		case m.err != nil:
			fmt.Printf("❌ Error: %v\n", m.err)
		case m.stopped:
			fmt.Printf("⏹️  Session stopped after %s\n", formatClock(m.finalElapsed))
		case m.detached:
			fmt.Println("Detached. The session state is saved; 'worklens resume' or 'worklens stop' picks it up.")
		}
	}

	return nil
}
