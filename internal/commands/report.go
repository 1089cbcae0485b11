package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show tracked sessions for a day",
	Long: `Show the stopped sessions for a day with their durations and sync state.

Examples:
  worklens report             # Today
  worklens report --date 2025-06-02`,
	Run: withApp(func(app *App, cmd *cobra.Command, args []string) {
		day := time.Now()
		if raw, _ := cmd.Flags().GetString("date"); raw != "" {
			parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
			if err != nil {
				fmt.Printf("Error: invalid date %q, expected YYYY-MM-DD\n", raw)
				return
			}
			day = parsed
		}

		from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		to := from.Add(24 * time.Hour)

		sessions, err := app.Store.SessionsInRange(from, to)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		if len(sessions) == 0 {
			fmt.Printf("No sessions on %s\n", from.Format("2006-01-02"))
			return
		}

		var total time.Duration
		for _, s := range sessions {
			duration := time.Duration(s.DurationMs) * time.Millisecond
			total += duration

			title := s.Title
			if title == "" {
				title = "(untitled)"
			}
			syncMark := " "
			if s.Synced {
				syncMark = "✓"
			}

			shots, err := app.Store.ScreenshotsBySession(s.LocalID)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				return
			}
			pending := ""
			if len(shots) > 0 {
				pending = fmt.Sprintf(", %d screenshots pending", len(shots))
			}

			fmt.Printf("%s %s  %-30s %8s%s\n",
				syncMark,
				s.StartedAt.Format("15:04"),
				title,
				formatDuration(duration),
				pending)
		}
		fmt.Printf("\nTotal: %s across %d sessions\n", formatDuration(total), len(sessions))
	}),
}

func init() {
	reportCmd.Flags().String("date", "", "Day to report on (YYYY-MM-DD)")
}
