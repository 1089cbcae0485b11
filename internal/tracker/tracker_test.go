package tracker

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medetbek/worklens/internal/db"
	"github.com/medetbek/worklens/internal/models"
)

// fakeCapture records the calls the tracker makes into the scheduler.
type fakeCapture struct {
	started    int
	stopped    int
	forced     int
	lastID     string
	lastTask   *string
	nowActive  bool
}

func (f *fakeCapture) StartCapturing(sessionLocalID string, taskRef *string) {
	f.started++
	f.lastID = sessionLocalID
	f.lastTask = taskRef
	f.nowActive = true
}

func (f *fakeCapture) StopCapturing() {
	f.stopped++
	f.nowActive = false
}

func (f *fakeCapture) ForceStopCapturing() string {
	f.forced++
	f.nowActive = false
	return "capture already idle"
}

// testClock lets the tests drive time by hand.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestTracker(t *testing.T, store *db.Store) (*Tracker, *fakeCapture, *testClock) {
	t.Helper()
	capture := &fakeCapture{}
	clock := &testClock{now: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)}
	tr, err := New(store, capture, nil, Config{
		PersistInterval: time.Hour,
		OrgID:           "org-1",
		WorkspaceID:     "ws-1",
		UserID:          "user-1",
	}, zap.NewNop())
	require.NoError(t, err)
	tr.now = clock.Now
	return tr, capture, clock
}

func TestStartPauseResumeStopScenario(t *testing.T) {
	store := newTestStore(t)
	tr, capture, clock := newTestTracker(t, store)

	// start at t=0
	status, err := tr.Start(nil, "deep work")
	require.NoError(t, err)
	assert.True(t, status.IsTracking)
	assert.Equal(t, models.StatusRunning, status.State)
	assert.Equal(t, 1, capture.started)

	// pause at t=10s
	clock.Advance(10 * time.Second)
	status, err = tr.Pause()
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaused, status.State)
	assert.Equal(t, 10*time.Second, status.Elapsed)
	assert.Equal(t, 1, capture.stopped)

	// resume at t=40s (30s paused)
	clock.Advance(30 * time.Second)
	status, err = tr.Resume()
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, status.State)
	assert.Equal(t, 30*time.Second, status.Paused)
	assert.Equal(t, 2, capture.started)

	// stop at t=50s
	clock.Advance(10 * time.Second)
	status, err = tr.Stop("", false)
	require.NoError(t, err)
	assert.Equal(t, models.StatusStopped, status.State)
	assert.Equal(t, int64(20000), status.Session.DurationMs)
	assert.Equal(t, int64(30000), status.Session.PausedMs)
	require.NotNil(t, status.Session.EndedAt)
	assert.Equal(t, clock.Now(), status.Session.EndedAt.UTC())

	// the machine is idle again
	assert.False(t, tr.Status().IsTracking)

	// and the persisted row agrees
	persisted, err := store.SessionByLocalID(status.Session.LocalID)
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, models.StatusStopped, persisted.Status)
	assert.Equal(t, int64(20000), persisted.DurationMs)
	assert.False(t, persisted.Synced)
}

func TestDurationConstantWhilePaused(t *testing.T) {
	store := newTestStore(t)
	tr, _, clock := newTestTracker(t, store)

	_, err := tr.Start(nil, "")
	require.NoError(t, err)
	clock.Advance(5 * time.Second)
	_, err = tr.Pause()
	require.NoError(t, err)

	frozen := tr.Status().Elapsed
	clock.Advance(12 * time.Hour)
	assert.Equal(t, frozen, tr.Status().Elapsed, "elapsed must not accrue during a pause")
	assert.Equal(t, 5*time.Second, frozen)
}

func TestStartWhileTrackingFails(t *testing.T) {
	store := newTestStore(t)
	tr, capture, clock := newTestTracker(t, store)

	first, err := tr.Start(nil, "original")
	require.NoError(t, err)
	clock.Advance(3 * time.Second)

	_, err = tr.Start(nil, "second")
	assert.ErrorIs(t, err, ErrAlreadyTracking)
	assert.Equal(t, 1, capture.started)

	// the existing session is untouched
	status := tr.Status()
	assert.Equal(t, first.Session.LocalID, status.Session.LocalID)
	assert.Equal(t, "original", status.Session.Title)

	// also from paused
	_, err = tr.Pause()
	require.NoError(t, err)
	_, err = tr.Start(nil, "third")
	assert.ErrorIs(t, err, ErrAlreadyTracking)
}

func TestTransitionPreconditions(t *testing.T) {
	store := newTestStore(t)
	tr, capture, _ := newTestTracker(t, store)

	_, err := tr.Pause()
	assert.ErrorIs(t, err, ErrNotTracking)
	_, err = tr.Resume()
	assert.ErrorIs(t, err, ErrNotTracking)
	_, err = tr.Stop("", false)
	assert.ErrorIs(t, err, ErrNotTracking)
	assert.Equal(t, 0, capture.started)

	_, err = tr.Start(nil, "")
	require.NoError(t, err)

	// resume while running is out of order
	_, err = tr.Resume()
	assert.ErrorIs(t, err, ErrNotTracking)

	_, err = tr.Pause()
	require.NoError(t, err)

	// pause while paused is out of order
	_, err = tr.Pause()
	assert.ErrorIs(t, err, ErrNotTracking)
}

func TestRecoverPausedSession(t *testing.T) {
	store := newTestStore(t)
	tr, _, clock := newTestTracker(t, store)

	_, err := tr.Start(nil, "before the crash")
	require.NoError(t, err)
	clock.Advance(90 * time.Second)
	_, err = tr.Pause()
	require.NoError(t, err)

	// a new process starts
	recovered, capture, clock2 := newTestTracker(t, store)
	clock2.now = clock.Now().Add(time.Hour)

	status := recovered.Status()
	assert.True(t, status.IsTracking)
	assert.Equal(t, models.StatusPaused, status.State)
	assert.Equal(t, 90*time.Second, status.Elapsed, "frozen duration survives the restart")
	assert.Equal(t, 0, capture.started, "paused recovery must not restart capture")

	// elapsed stays frozen until an explicit resume
	clock2.Advance(time.Hour)
	assert.Equal(t, 90*time.Second, recovered.Status().Elapsed)

	_, err = recovered.Resume()
	require.NoError(t, err)
	assert.Equal(t, 1, capture.started)
}

func TestRecoverRunningSession(t *testing.T) {
	store := newTestStore(t)
	tr, _, clock := newTestTracker(t, store)

	_, err := tr.Start(nil, "")
	require.NoError(t, err)
	clock.Advance(10 * time.Second)
	_, err = tr.Pause()
	require.NoError(t, err)
	clock.Advance(20 * time.Second)
	_, err = tr.Resume()
	require.NoError(t, err)
	tr.mu.Lock()
	tr.stopClockLocked() // simulate the process dying
	tr.mu.Unlock()

	recovered, capture, clock2 := newTestTracker(t, store)
	clock2.now = clock.Now().Add(30 * time.Second)

	status := recovered.Status()
	assert.Equal(t, models.StatusRunning, status.State)
	assert.Equal(t, 1, capture.started, "running recovery restarts capture")
	// 10s before pause + 30s since the restart baseline, 20s pause excluded
	assert.Equal(t, 40*time.Second, status.Elapsed)
}

func TestForceStopIdempotent(t *testing.T) {
	store := newTestStore(t)
	tr, capture, clock := newTestTracker(t, store)

	// from idle it is a no-op apart from the capture force stop
	tr.ForceStop()
	assert.Equal(t, 1, capture.forced)

	_, err := tr.Start(nil, "")
	require.NoError(t, err)
	clock.Advance(7 * time.Second)

	tr.ForceStop()
	tr.ForceStop()
	assert.Equal(t, 3, capture.forced)
	assert.False(t, tr.Status().IsTracking)

	// the session was persisted as stopped
	active, err := store.ActiveSession()
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestPersistTickDoesNotResurrectStoppedSession(t *testing.T) {
	store := newTestStore(t)
	trA, captureA, clockA := newTestTracker(t, store)

	status, err := trA.Start(nil, "shared store")
	require.NoError(t, err)
	localID := status.Session.LocalID

	trA.mu.Lock()
	trA.stopClockLocked() // drive the tick by hand below
	trA.mu.Unlock()

	// a second process recovers the session and stops it
	trB, _, clockB := newTestTracker(t, store)
	clockB.now = clockA.Now().Add(30 * time.Second)
	_, err = trB.Stop("", true)
	require.NoError(t, err)

	// the first process's coarse persist fires afterwards
	clockA.Advance(2 * time.Hour)
	trA.persistTick()

	row, err := store.SessionByLocalID(localID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, models.StatusStopped, row.Status, "the out-of-process stop must survive the tick")
	require.NotNil(t, row.EndedAt)

	// and the first process follows the store to idle
	assert.False(t, trA.Status().IsTracking)
	assert.Equal(t, 1, captureA.stopped)
}

func TestTransitionRollsBackWhenPersistFails(t *testing.T) {
	store := newTestStore(t)
	tr, capture, clock := newTestTracker(t, store)

	_, err := tr.Start(nil, "")
	require.NoError(t, err)
	clock.Advance(5 * time.Second)

	require.NoError(t, store.Close())

	_, err = tr.Pause()
	require.Error(t, err)

	// memory still says running, so the at-most-one-active rule holds
	status := tr.Status()
	assert.Equal(t, models.StatusRunning, status.State)
	assert.Equal(t, 0, capture.stopped)

	_, err = tr.Stop("", true)
	require.Error(t, err)
	assert.True(t, tr.Status().IsTracking)

	_, err = tr.Start(nil, "second")
	assert.ErrorIs(t, err, ErrAlreadyTracking)
}

func TestStopUsesFrozenDurationWhenPaused(t *testing.T) {
	store := newTestStore(t)
	tr, _, clock := newTestTracker(t, store)

	_, err := tr.Start(nil, "")
	require.NoError(t, err)
	clock.Advance(25 * time.Second)
	_, err = tr.Pause()
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)

	status, err := tr.Stop("wrap up", true)
	require.NoError(t, err)
	assert.Equal(t, int64(25000), status.Session.DurationMs)
	assert.Equal(t, "wrap up", status.Session.Title)
}
