package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var helpCmd = &cobra.Command{
	Use:   "help",
	Short: "Show comprehensive help for worklens",
	Long:  `Display detailed help for all worklens commands and flags.`,
	Run: func(cmd *cobra.Command, args []string) {
		showCustomHelp()
	},
}

func showCustomHelp() {
	fmt.Print(`
worklens - local-first work session tracker

COMMANDS:

  start [title...]        Start tracking a work session
    --task                Remote task reference to attach
    --no-ui               Headless tracking (no interactive timer)

    With the interactive timer:
      p             Pause
      r             Resume
      s             Stop (asks for an optional note)
      esc/q         Detach (session keeps its persisted state)

  pause                   Pause the running session
  resume                  Resume the paused session and keep tracking
  stop [title...]         Stop the active session and trigger a sync
    --wait                Wait for the sync before returning

  status                  Show current tracking status
  report                  Show tracked sessions for a day
    --date                Day to report on (YYYY-MM-DD, default today)
  sync                    Upload unsynced sessions and screenshots now
  unstick                 Force-stop a stuck session or capture loop

  version                 Show version information
  help                    Show this help

Screenshots are taken from every attached display while a session is
running; interval, sync cadence and credentials live in the config file
(worklens.yml under your config directory).

`)
}
