package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medetbek/worklens/internal/capture"
	"github.com/medetbek/worklens/internal/config"
	"github.com/medetbek/worklens/internal/db"
	"github.com/medetbek/worklens/internal/device"
	"github.com/medetbek/worklens/internal/logging"
	synceng "github.com/medetbek/worklens/internal/sync"
	"github.com/medetbek/worklens/internal/tracker"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "worklens",
	Short: "A local-first work session tracker",
	Long: `worklens tracks timed work sessions on this device, captures periodic
screenshots of every display while a session is running, and uploads the
records to your workspace whenever the network allows.`,
}

// App bundles the wired components every command works against.
type App struct {
	Cfg       *config.Config
	Log       *zap.Logger
	Store     *db.Store
	Tracker   *tracker.Tracker
	Scheduler *capture.Scheduler
	Engine    *synceng.Engine
}

// newApp wires the whole stack. Only the store open is allowed to kill the
// process.
func newApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logging.New(cfg.DataDir, os.Getenv("WORKLENS_DEBUG") != "")
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	store, err := db.Open(db.DefaultPath(cfg.DataDir))
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	ident, err := device.Load(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load device identity: %w", err)
	}

	client := synceng.NewClient(cfg.APIBaseURL, cfg, log)
	engine := synceng.NewEngine(store, client, ident, cfg.SyncInterval, log)

	scheduler := capture.NewScheduler(store, capture.NewScreenSource(), cfg.DataDir, cfg.CaptureInterval, log)

	machine, err := tracker.New(store, scheduler,
		func(ctx context.Context) { engine.SyncNow(ctx) },
		tracker.Config{
			PersistInterval: cfg.PersistInterval,
			OrgID:           cfg.OrgID,
			WorkspaceID:     cfg.WorkspaceID,
			UserID:          cfg.UserID,
		}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracker: %w", err)
	}

	return &App{
		Cfg:       cfg,
		Log:       log,
		Store:     store,
		Tracker:   machine,
		Scheduler: scheduler,
		Engine:    engine,
	}, nil
}

// withApp wraps a command function so the stack is wired before it runs.
func withApp(fn func(*App, *cobra.Command, []string)) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		app, err := newApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer app.Store.Close()
		defer app.Log.Sync()
		fn(app, cmd, args)
	}
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("worklens %s (commit %s, built %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(unstickCmd)
	rootCmd.AddCommand(helpCmd)
	rootCmd.AddCommand(versionCmd)
}
