// Package sync uploads unsynced sessions and screenshots in one batch and
// cleans up locally once the server has them.
package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/medetbek/worklens/internal/db"
	"github.com/medetbek/worklens/internal/device"
	"github.com/medetbek/worklens/internal/models"
)

// Status summarizes the outcome of one SyncNow call.
type Status string

const (
	StatusSynced           Status = "synced"
	StatusNothingToSync    Status = "nothing_to_sync"
	StatusAlreadyRunning   Status = "already_running"
	StatusNotAuthenticated Status = "not_authenticated"
	StatusFailed           Status = "failed"
)

// Result reports what one sync cycle did. ItemErrors holds per-item
// exclusions (e.g. unreadable screenshot files) that did not fail the batch.
type Result struct {
	Status      Status
	Sessions    int
	Screenshots int
	ItemErrors  []string
	Err         error
}

// Engine discovers work by querying the store for unsynced rows; it has no
// dependency on the tracker. At most one batch is in flight at a time.
type Engine struct {
	store    *db.Store
	client   *Client
	ident    device.Identity
	log      *zap.Logger
	interval time.Duration

	mu       sync.Mutex
	syncing  bool
	autoStop chan struct{}
}

// NewEngine builds the sync engine. A non-positive interval falls back to
// the default cadence.
func NewEngine(store *db.Store, client *Client, ident device.Identity, interval time.Duration, log *zap.Logger) *Engine {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Engine{
		store:    store,
		client:   client,
		ident:    ident,
		log:      log,
		interval: interval,
	}
}

// SyncNow runs one batch sync. A call while another is in flight returns
// immediately with StatusAlreadyRunning and performs no I/O.
func (e *Engine) SyncNow(ctx context.Context) Result {
	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return Result{Status: StatusAlreadyRunning}
	}
	e.syncing = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	}()

	if !e.client.Authenticated() {
		e.log.Info("sync skipped: no stored credentials")
		return Result{Status: StatusNotAuthenticated, Err: ErrNotAuthenticated}
	}

	sessions, err := e.store.UnsyncedSessions()
	if err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("failed to query unsynced sessions: %w", err)}
	}
	shots, err := e.store.UnsyncedScreenshots()
	if err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("failed to query unsynced screenshots: %w", err)}
	}
	if len(sessions) == 0 && len(shots) == 0 {
		e.log.Debug("nothing to sync")
		return Result{Status: StatusNothingToSync}
	}

	batch := batchRequest{
		Device:   e.ident,
		Sessions: make([]SessionDTO, 0, len(sessions)),
	}
	for _, s := range sessions {
		batch.Sessions = append(batch.Sessions, sessionToDTO(s))
	}

	// A screenshot whose file cannot be read is excluded from this batch
	// only; it stays unsynced and is retried next cycle.
	var itemErrors []string
	included := make([]int, 0, len(shots))
	for i, shot := range shots {
		data, err := os.ReadFile(shot.FilePath)
		if err != nil {
			itemErrors = append(itemErrors, fmt.Sprintf("screenshot %s: %v", shot.LocalID, err))
			e.log.Warn("screenshot excluded from batch",
				zap.String("screenshot", shot.LocalID),
				zap.Error(err))
			continue
		}
		batch.Screenshots = append(batch.Screenshots, screenshotToDTO(shot, data))
		included = append(included, i)
	}

	if len(batch.Sessions) == 0 && len(batch.Screenshots) == 0 {
		return Result{
			Status:     StatusFailed,
			ItemErrors: itemErrors,
			Err:        fmt.Errorf("no uploadable items: all %d screenshots unreadable", len(shots)),
		}
	}

	resp, err := e.client.UploadBatch(ctx, batch)
	if err != nil {
		// Nothing is marked synced; the whole batch is retried next cycle.
		status := StatusFailed
		if errors.Is(err, ErrNotAuthenticated) {
			status = StatusNotAuthenticated
		}
		e.log.Warn("batch upload failed",
			zap.Int("sessions", len(batch.Sessions)),
			zap.Int("screenshots", len(batch.Screenshots)),
			zap.Error(err))
		return Result{Status: status, ItemErrors: itemErrors, Err: err}
	}

	remoteIDs := make(map[string]*int64, len(resp.Sessions))
	for _, ack := range resp.Sessions {
		remoteIDs[ack.LocalID] = ack.RemoteID
	}
	for _, s := range sessions {
		if err := e.store.MarkSessionSynced(s.LocalID, remoteIDs[s.LocalID]); err != nil {
			e.log.Warn("could not mark session synced",
				zap.String("session", s.LocalID),
				zap.Error(err))
		}
	}

	for _, i := range included {
		e.cleanupScreenshot(shots[i])
	}

	e.log.Info("batch synced",
		zap.Int("sessions", len(batch.Sessions)),
		zap.Int("screenshots", len(batch.Screenshots)),
		zap.Int("excluded", len(itemErrors)))
	return Result{
		Status:      StatusSynced,
		Sessions:    len(batch.Sessions),
		Screenshots: len(batch.Screenshots),
		ItemErrors:  itemErrors,
	}
}

// cleanupScreenshot reclaims disk for an uploaded screenshot: file first,
// then the row. When the file will not go away the row is marked synced
// instead so an already-accepted item is never re-uploaded.
func (e *Engine) cleanupScreenshot(shot models.Screenshot) {
	if err := os.Remove(shot.FilePath); err != nil && !os.IsNotExist(err) {
		e.log.Warn("uploaded screenshot file could not be deleted, marking row synced",
			zap.String("screenshot", shot.LocalID),
			zap.String("file", shot.FilePath),
			zap.Error(err))
		if err := e.store.MarkScreenshotSynced(shot.LocalID); err != nil {
			e.log.Warn("could not mark screenshot synced", zap.Error(err))
		}
		return
	}
	if err := e.store.DeleteScreenshot(shot.LocalID); err != nil {
		e.log.Warn("could not delete screenshot row",
			zap.String("screenshot", shot.LocalID),
			zap.Error(err))
	}
}

// StartAutoSync arms the periodic sync and runs one immediately. A no-op
// when already armed.
func (e *Engine) StartAutoSync(ctx context.Context) {
	e.mu.Lock()
	if e.autoStop != nil {
		e.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	e.autoStop = stop
	e.mu.Unlock()

	e.log.Info("auto sync armed", zap.Duration("interval", e.interval))
	go func() {
		e.SyncNow(ctx)
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e.SyncNow(ctx)
			}
		}
	}()
}

// StopAutoSync disarms the periodic sync. Safe to call when not armed.
func (e *Engine) StopAutoSync() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.autoStop == nil {
		return
	}
	close(e.autoStop)
	e.autoStop = nil
	e.log.Info("auto sync disarmed")
}
