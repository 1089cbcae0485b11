package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/medetbek/worklens/internal/tracker"
	"github.com/medetbek/worklens/internal/tui"
)

var startCmd = &cobra.Command{
	Use:   "start [title...]",
	Short: "Start tracking a work session",
	Long: `Start tracking a work session. Opens the interactive timer by default;
use --no-ui to keep tracking headless until a signal or 'worklens stop'.

Examples:
  worklens start Fix login bug      # Start with the interactive timer
  worklens start --task T-123       # Attach the session to a remote task
  worklens start --no-ui            # Headless tracking`,
	Run: withApp(func(app *App, cmd *cobra.Command, args []string) {
		title := strings.Join(args, " ")

		var taskRef *string
		if ref, _ := cmd.Flags().GetString("task"); ref != "" {
			taskRef = &ref
		}

		status, err := app.Tracker.Start(taskRef, title)
		if err != nil {
			if errors.Is(err, tracker.ErrAlreadyTracking) {
				fmt.Printf("Error: a session is already %s. Stop it first with 'worklens stop'\n", status.State)
			} else {
				fmt.Printf("Error: %v\n", err)
			}
			return
		}

		noUI, _ := cmd.Flags().GetBool("no-ui")
		if noUI {
			fmt.Printf("⏱️  Started session %s\n", shortID(status.Session.LocalID))
			fmt.Printf("Started at: %s\n", status.Session.StartedAt.Format("15:04:05"))
			runHeadless(app)
			return
		}

		// SIGTERM bypasses the UI, so force-stop before dying. SIGINT is
		// handled inside the timer as a detach.
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGTERM)
		go func() {
			<-sig
			app.Tracker.ForceStop()
			os.Exit(0)
		}()

		app.Engine.StartAutoSync(context.Background())
		defer app.Engine.StopAutoSync()

		if err := tui.RunTimerTUI(app.Tracker, app.Engine); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}),
}

// runHeadless keeps the process resident so the capture loop and auto sync
// stay alive, then force-stops everything on SIGINT/SIGTERM.
func runHeadless(app *App) {
	ctx := context.Background()
	app.Engine.StartAutoSync(ctx)

	fmt.Println("Tracking. Press Ctrl+C to stop.")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	app.Engine.StopAutoSync()
	app.Tracker.ForceStop()
	fmt.Println("\n⏹️  Session stopped")
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the running session",
	Run: withApp(func(app *App, cmd *cobra.Command, args []string) {
		status, err := app.Tracker.Pause()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("⏸️  Paused session %s\n", shortID(status.Session.LocalID))
		fmt.Printf("Elapsed so far: %s\n", formatDuration(status.Elapsed))
	}),
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the paused session",
	Run: withApp(func(app *App, cmd *cobra.Command, args []string) {
		status, err := app.Tracker.Resume()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("▶️  Resumed session %s\n", shortID(status.Session.LocalID))
		fmt.Printf("Paused for: %s\n", formatDuration(status.Paused))
		runHeadless(app)
	}),
}

var stopCmd = &cobra.Command{
	Use:   "stop [title...]",
	Short: "Stop the active session",
	Run: withApp(func(app *App, cmd *cobra.Command, args []string) {
		title := strings.Join(args, " ")
		wait, _ := cmd.Flags().GetBool("wait")

		status, err := app.Tracker.Stop(title, wait)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Printf("⏹️  Stopped session %s\n", shortID(status.Session.LocalID))
		fmt.Printf("Session duration: %s (paused %s)\n",
			formatDuration(status.Elapsed), formatDuration(status.Paused))
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current tracking status",
	Run: withApp(func(app *App, cmd *cobra.Command, args []string) {
		status := app.Tracker.Status()
		if !status.IsTracking {
			fmt.Println("No active work session")
			return
		}

		icon := "⏱️ "
		if status.State == "paused" {
			icon = "⏸️ "
		}
		fmt.Printf("%s Session %s (%s)\n", icon, shortID(status.Session.LocalID), status.State)
		if status.Session.Title != "" {
			fmt.Printf("Title: %s\n", status.Session.Title)
		}
		fmt.Printf("Started at: %s\n", status.Session.StartedAt.Format("15:04:05"))
		fmt.Printf("Elapsed time: %s\n", formatDuration(status.Elapsed))
		if status.Paused > 0 {
			fmt.Printf("Paused time: %s\n", formatDuration(status.Paused))
		}
	}),
}

func init() {
	startCmd.Flags().Bool("no-ui", false, "Start without the interactive timer")
	startCmd.Flags().String("task", "", "Remote task reference for the session")
	stopCmd.Flags().Bool("wait", false, "Wait for the sync to finish before returning")
}

// shortID trims a session id down to something printable.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d.Hours() >= 1 {
		return fmt.Sprintf("%.1fh", d.Hours())
	} else if d.Minutes() >= 1 {
		return fmt.Sprintf("%.0fm", d.Minutes())
	} else {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
}
