package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	synceng "github.com/medetbek/worklens/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload unsynced sessions and screenshots now",
	Run: withApp(func(app *App, cmd *cobra.Command, args []string) {
		result := app.Engine.SyncNow(context.Background())
		switch result.Status {
		case synceng.StatusSynced:
			fmt.Printf("✅ Synced %d sessions and %d screenshots\n", result.Sessions, result.Screenshots)
		case synceng.StatusNothingToSync:
			fmt.Println("Nothing to sync")
		case synceng.StatusAlreadyRunning:
			fmt.Println("A sync is already in progress")
		case synceng.StatusNotAuthenticated:
			fmt.Println("Not authenticated: add credentials to the config file and retry")
		default:
			fmt.Printf("Sync failed: %v\n", result.Err)
		}
		for _, item := range result.ItemErrors {
			fmt.Printf("  skipped: %s\n", item)
		}
	}),
}

var unstickCmd = &cobra.Command{
	Use:   "unstick",
	Short: "Force-stop any stuck session or capture loop",
	Long: `Force-stop the session state machine and the capture scheduler no matter
what state they are in. Use after a crash left tracking stuck.`,
	Run: withApp(func(app *App, cmd *cobra.Command, args []string) {
		msg := app.Scheduler.ForceStopCapturing()
		app.Tracker.ForceStop()
		fmt.Printf("Done: %s\n", msg)
	}),
}
