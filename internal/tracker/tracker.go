// Package tracker owns the authoritative answer to "am I tracking" and the
// duration accounting across pause/resume and restarts.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medetbek/worklens/internal/db"
	"github.com/medetbek/worklens/internal/models"
)

var (
	// ErrAlreadyTracking is returned by Start while a session is running or paused.
	ErrAlreadyTracking = errors.New("a session is already being tracked")
	// ErrNotTracking is returned by Pause/Resume/Stop when their precondition fails.
	ErrNotTracking = errors.New("no active session")
)

// StateIdle is the machine state between sessions; persisted sessions never
// carry it.
const StateIdle models.SessionStatus = "idle"

// CaptureControl is the slice of the capture scheduler the tracker drives.
type CaptureControl interface {
	StartCapturing(sessionLocalID string, taskRef *string)
	StopCapturing()
	ForceStopCapturing() string
}

// Config carries the tracker's tunables and the session context captured at
// start time.
type Config struct {
	// PersistInterval bounds store writes while running; transitions always
	// write immediately.
	PersistInterval time.Duration
	OrgID           string
	WorkspaceID     string
	UserID          string
}

// Status is a point-in-time snapshot, computed purely from in-memory clock
// state.
type Status struct {
	IsTracking bool
	State      models.SessionStatus
	Session    *models.Session
	Elapsed    time.Duration
	Paused     time.Duration
}

// Tracker is the session state machine: Idle → Running ⇄ Paused → Stopped.
type Tracker struct {
	store   *db.Store
	capture CaptureControl
	syncNow func(context.Context)
	log     *zap.Logger
	cfg     Config

	now func() time.Time

	mu          sync.Mutex
	session     *models.Session
	startedAt   time.Time
	pausedTotal time.Duration
	frozen      time.Duration // elapsed value captured at pause
	clockStop   chan struct{}
	lastPersist time.Time
}

// New builds the tracker and recovers any active session left behind by a
// previous process. syncNow is invoked after Stop; it may be nil.
func New(store *db.Store, capture CaptureControl, syncNow func(context.Context), cfg Config, log *zap.Logger) (*Tracker, error) {
	if cfg.PersistInterval <= 0 {
		cfg.PersistInterval = 60 * time.Second
	}
	if syncNow == nil {
		syncNow = func(context.Context) {}
	}
	t := &Tracker{
		store:   store,
		capture: capture,
		syncNow: syncNow,
		log:     log,
		cfg:     cfg,
		now:     time.Now,
	}
	if err := t.recover(); err != nil {
		return nil, err
	}
	return t, nil
}

// recover restores in-memory state from the store after a restart. A running
// session gets its clock and capture loop back; a paused one stays frozen
// until the user resumes; anything else is left untouched.
func (t *Tracker) recover() error {
	session, err := t.store.ActiveSession()
	if err != nil {
		return fmt.Errorf("failed to load active session: %w", err)
	}
	if session == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch session.Status {
	case models.StatusRunning:
		t.session = session
		t.startedAt = session.StartedAt
		t.pausedTotal = time.Duration(session.PausedMs) * time.Millisecond
		t.frozen = 0
		t.startClockLocked()
		t.capture.StartCapturing(session.LocalID, session.TaskRef)
		t.log.Info("recovered running session",
			zap.String("session", session.LocalID),
			zap.Time("started_at", session.StartedAt))
	case models.StatusPaused:
		t.session = session
		t.startedAt = session.StartedAt
		t.pausedTotal = time.Duration(session.PausedMs) * time.Millisecond
		t.frozen = time.Duration(session.DurationMs) * time.Millisecond
		t.log.Info("recovered paused session",
			zap.String("session", session.LocalID),
			zap.Duration("frozen", t.frozen))
	default:
		// Ambiguous persisted state: warn and leave the row alone.
		t.log.Warn("active session row has unexpected status, ignoring",
			zap.String("session", session.LocalID),
			zap.String("status", string(session.Status)))
	}
	return nil
}

// Start creates a new session and begins tracking and capturing.
func (t *Tracker) Start(taskRef *string, title string) (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session != nil && t.session.Active() {
		return t.statusLocked(), ErrAlreadyTracking
	}

	now := t.now()
	session := &models.Session{
		LocalID:     uuid.New().String(),
		TaskRef:     taskRef,
		OrgID:       t.cfg.OrgID,
		WorkspaceID: t.cfg.WorkspaceID,
		UserID:      t.cfg.UserID,
		StartedAt:   now,
		Status:      models.StatusRunning,
		Title:       title,
	}
	if err := t.store.CreateSession(session); err != nil {
		return t.statusLocked(), fmt.Errorf("failed to persist session: %w", err)
	}

	t.session = session
	t.startedAt = now
	t.pausedTotal = 0
	t.frozen = 0
	t.lastPersist = now
	t.startClockLocked()
	t.capture.StartCapturing(session.LocalID, taskRef)

	t.log.Info("session started",
		zap.String("session", session.LocalID),
		zap.String("title", title))
	return t.statusLocked(), nil
}

// Pause freezes the duration at this instant and stops capture.
func (t *Tracker) Pause() (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil || t.session.Status != models.StatusRunning {
		return t.statusLocked(), ErrNotTracking
	}

	// Persist first; memory commits to the transition only once the store
	// has it, so a failed write leaves the session running.
	now := t.now()
	frozen := clamp(now.Sub(t.startedAt) - t.pausedTotal)
	prev := *t.session
	t.session.Status = models.StatusPaused
	t.session.PausedAt = &now
	t.session.DurationMs = frozen.Milliseconds()
	t.session.PausedMs = t.pausedTotal.Milliseconds()
	if err := t.store.SaveSession(t.session); err != nil {
		*t.session = prev
		return t.statusLocked(), fmt.Errorf("failed to persist pause: %w", err)
	}

	t.frozen = frozen
	t.stopClockLocked()
	t.capture.StopCapturing()
	t.log.Info("session paused",
		zap.String("session", t.session.LocalID),
		zap.Duration("elapsed", t.frozen))
	return t.statusLocked(), nil
}

// Resume adds the pause interval to the paused total and restarts the clock
// and capture.
func (t *Tracker) Resume() (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil || t.session.Status != models.StatusPaused {
		return t.statusLocked(), ErrNotTracking
	}

	now := t.now()
	pausedTotal := t.pausedTotal
	if t.session.PausedAt != nil {
		pausedTotal += now.Sub(*t.session.PausedAt)
	}
	prev := *t.session
	t.session.Status = models.StatusRunning
	t.session.ResumedAt = &now
	t.session.PausedMs = pausedTotal.Milliseconds()
	if err := t.store.SaveSession(t.session); err != nil {
		*t.session = prev
		return t.statusLocked(), fmt.Errorf("failed to persist resume: %w", err)
	}

	t.pausedTotal = pausedTotal
	t.frozen = 0
	t.startClockLocked()
	t.capture.StartCapturing(t.session.LocalID, t.session.TaskRef)
	t.log.Info("session resumed",
		zap.String("session", t.session.LocalID),
		zap.Duration("paused_total", t.pausedTotal))
	return t.statusLocked(), nil
}

// Stop finalizes the session and triggers a sync. With waitForSync the sync
// runs before Stop returns; otherwise it is fired on a goroutine, so the
// final session is never lost on a normal exit.
func (t *Tracker) Stop(title string, waitForSync bool) (Status, error) {
	t.mu.Lock()

	if t.session == nil || !t.session.Active() {
		defer t.mu.Unlock()
		return t.statusLocked(), ErrNotTracking
	}

	now := t.now()
	var final time.Duration
	if t.session.Status == models.StatusPaused {
		final = t.frozen
	} else {
		final = clamp(now.Sub(t.startedAt) - t.pausedTotal)
	}

	prev := *t.session
	if title != "" {
		t.session.Title = title
	}
	t.session.Status = models.StatusStopped
	t.session.EndedAt = &now
	t.session.DurationMs = final.Milliseconds()
	t.session.PausedMs = t.pausedTotal.Milliseconds()
	t.session.Synced = false

	if err := t.store.SaveSession(t.session); err != nil {
		*t.session = prev
		t.mu.Unlock()
		return Status{}, fmt.Errorf("failed to persist stop: %w", err)
	}

	t.stopClockLocked()
	t.capture.StopCapturing()

	snapshot := t.statusLocked()
	t.log.Info("session stopped",
		zap.String("session", t.session.LocalID),
		zap.Duration("duration", final),
		zap.Duration("paused_total", t.pausedTotal))
	t.session = nil
	t.mu.Unlock()

	if waitForSync {
		t.syncNow(context.Background())
	} else {
		go t.syncNow(context.Background())
	}
	return snapshot, nil
}

// ForceStop is the crash/signal path: best-effort persist a stopped status,
// kill capture unconditionally, clear in-memory state. Idempotent, never
// returns an error.
func (t *Tracker) ForceStop() {
	t.mu.Lock()

	if t.session != nil && t.session.Active() {
		now := t.now()
		var final time.Duration
		if t.session.Status == models.StatusPaused {
			final = t.frozen
		} else {
			final = clamp(now.Sub(t.startedAt) - t.pausedTotal)
		}
		t.session.Status = models.StatusStopped
		t.session.EndedAt = &now
		t.session.DurationMs = final.Milliseconds()
		t.session.PausedMs = t.pausedTotal.Milliseconds()
		if err := t.store.SaveSession(t.session); err != nil {
			t.log.Warn("force stop could not persist session", zap.Error(err))
		}
	}
	t.session = nil
	t.stopClockLocked()
	t.mu.Unlock()

	t.capture.ForceStopCapturing()
}

// Status is a pure in-memory read; it never touches the store.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statusLocked()
}

func (t *Tracker) statusLocked() Status {
	if t.session == nil {
		return Status{State: StateIdle}
	}
	snap := *t.session
	return Status{
		IsTracking: t.session.Active(),
		State:      t.session.Status,
		Session:    &snap,
		Elapsed:    t.elapsedLocked(),
		Paused:     t.pausedLocked(),
	}
}

// elapsedLocked implements the duration algebra: live while running, frozen
// while paused.
func (t *Tracker) elapsedLocked() time.Duration {
	switch {
	case t.session == nil:
		return 0
	case t.session.Status == models.StatusPaused:
		return t.frozen
	case t.session.Status == models.StatusStopped:
		return time.Duration(t.session.DurationMs) * time.Millisecond
	default:
		return clamp(t.now().Sub(t.startedAt) - t.pausedTotal)
	}
}

func (t *Tracker) pausedLocked() time.Duration {
	if t.session != nil && t.session.Status == models.StatusPaused && t.session.PausedAt != nil {
		return t.pausedTotal + t.now().Sub(*t.session.PausedAt)
	}
	return t.pausedTotal
}

// startClockLocked arms the coarse persist tick. The fine-grained elapsed
// value needs no ticker; Status computes it on demand.
func (t *Tracker) startClockLocked() {
	if t.clockStop != nil {
		return
	}
	stop := make(chan struct{})
	t.clockStop = stop
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				t.persistTick()
			}
		}
	}()
}

func (t *Tracker) stopClockLocked() {
	if t.clockStop != nil {
		close(t.clockStop)
		t.clockStop = nil
	}
}

// persistTick writes the running duration back to the store at the coarse
// cadence so a crash loses at most one interval's worth of accounting. The
// write is conditional on the row still being running: another process may
// have stopped the session, and a full-row save would resurrect it.
func (t *Tracker) persistTick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil || t.session.Status != models.StatusRunning {
		return
	}
	now := t.now()
	if now.Sub(t.lastPersist) < t.cfg.PersistInterval {
		return
	}
	durationMs := t.elapsedLocked().Milliseconds()
	pausedMs := t.pausedTotal.Milliseconds()
	matched, err := t.store.UpdateRunningSession(t.session.LocalID, durationMs, pausedMs)
	if err != nil {
		t.log.Warn("periodic persist failed", zap.Error(err))
		return
	}
	if !matched {
		t.log.Info("session finalized by another process, going idle",
			zap.String("session", t.session.LocalID))
		t.session = nil
		t.stopClockLocked()
		t.capture.StopCapturing()
		return
	}
	t.session.DurationMs = durationMs
	t.session.PausedMs = pausedMs
	t.lastPersist = now
}

func clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
