package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medetbek/worklens/internal/models"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func makeSession(t *testing.T, store *Store, status models.SessionStatus, startedAt time.Time) models.Session {
	t.Helper()
	session := models.Session{
		LocalID:   uuid.New().String(),
		StartedAt: startedAt,
		Status:    status,
	}
	if status == models.StatusStopped {
		ended := startedAt.Add(time.Hour)
		session.EndedAt = &ended
	}
	require.NoError(t, store.CreateSession(&session))
	return session
}

func TestMigrationsAreIdempotent(t *testing.T) {
	_, path := openTestStore(t)

	// reopening the same file re-runs every migration
	again, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestActiveSession(t *testing.T) {
	store, _ := openTestStore(t)
	now := time.Now()

	active, err := store.ActiveSession()
	require.NoError(t, err)
	assert.Nil(t, active, "empty store has no active session")

	makeSession(t, store, models.StatusStopped, now.Add(-3*time.Hour))
	running := makeSession(t, store, models.StatusRunning, now)

	active, err = store.ActiveSession()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, running.LocalID, active.LocalID)

	// paused sessions also hold the tracking slot
	active.Status = models.StatusPaused
	require.NoError(t, store.SaveSession(active))
	active, err = store.ActiveSession()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, models.StatusPaused, active.Status)
}

func TestUnsyncedSessionsIncludesActive(t *testing.T) {
	store, _ := openTestStore(t)
	now := time.Now()

	running := makeSession(t, store, models.StatusRunning, now)
	oldest := makeSession(t, store, models.StatusStopped, now.Add(-2*time.Hour))
	newest := makeSession(t, store, models.StatusStopped, now.Add(-time.Hour))

	unsynced, err := store.UnsyncedSessions()
	require.NoError(t, err)
	require.Len(t, unsynced, 3)
	assert.Equal(t, oldest.LocalID, unsynced[0].LocalID, "oldest first")
	assert.Equal(t, newest.LocalID, unsynced[1].LocalID)
	assert.Equal(t, running.LocalID, unsynced[2].LocalID, "active sessions upload too")

	require.NoError(t, store.MarkSessionSynced(oldest.LocalID, nil))
	unsynced, err = store.UnsyncedSessions()
	require.NoError(t, err)
	require.Len(t, unsynced, 2)
	assert.Equal(t, newest.LocalID, unsynced[0].LocalID)
}

func TestUpdateRunningSessionGuardsFinalizedRows(t *testing.T) {
	store, _ := openTestStore(t)
	running := makeSession(t, store, models.StatusRunning, time.Now())
	stopped := makeSession(t, store, models.StatusStopped, time.Now().Add(-time.Hour))

	matched, err := store.UpdateRunningSession(running.LocalID, 5000, 1000)
	require.NoError(t, err)
	assert.True(t, matched)
	row, err := store.SessionByLocalID(running.LocalID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), row.DurationMs)
	assert.Equal(t, int64(1000), row.PausedMs)

	matched, err = store.UpdateRunningSession(stopped.LocalID, 9999, 0)
	require.NoError(t, err)
	assert.False(t, matched, "a finalized row must not be touched")
	row, err = store.SessionByLocalID(stopped.LocalID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), row.DurationMs)
}

func TestMarkSessionSyncedRecordsRemoteID(t *testing.T) {
	store, _ := openTestStore(t)
	session := makeSession(t, store, models.StatusStopped, time.Now().Add(-time.Hour))

	remote := int64(1234)
	require.NoError(t, store.MarkSessionSynced(session.LocalID, &remote))

	row, err := store.SessionByLocalID(session.LocalID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.True(t, row.Synced)
	require.NotNil(t, row.RemoteID)
	assert.Equal(t, int64(1234), *row.RemoteID)
}

func TestSessionsInRange(t *testing.T) {
	store, _ := openTestStore(t)
	base := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	inRange := makeSession(t, store, models.StatusStopped, base.Add(2*time.Hour))
	makeSession(t, store, models.StatusStopped, base.Add(-48*time.Hour))
	makeSession(t, store, models.StatusRunning, base.Add(3*time.Hour))

	sessions, err := store.SessionsInRange(base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, inRange.LocalID, sessions[0].LocalID)
}

func TestScreenshotLifecycle(t *testing.T) {
	store, _ := openTestStore(t)
	session := makeSession(t, store, models.StatusRunning, time.Now())

	shot := models.Screenshot{
		LocalID:        uuid.New().String(),
		SessionLocalID: &session.LocalID,
		FilePath:       "/tmp/shot.png",
		FileName:       "shot.png",
		FileSize:       42,
		MimeType:       "image/png",
		CapturedAt:     time.Now(),
	}
	require.NoError(t, store.CreateScreenshot(&shot))

	// orphaned manual capture, no owning session
	orphan := models.Screenshot{
		LocalID:    uuid.New().String(),
		FilePath:   "/tmp/manual.png",
		CapturedAt: time.Now(),
	}
	require.NoError(t, store.CreateScreenshot(&orphan))

	unsynced, err := store.UnsyncedScreenshots()
	require.NoError(t, err)
	assert.Len(t, unsynced, 2)

	bySession, err := store.ScreenshotsBySession(session.LocalID)
	require.NoError(t, err)
	require.Len(t, bySession, 1)
	assert.Equal(t, shot.LocalID, bySession[0].LocalID)

	require.NoError(t, store.MarkScreenshotSynced(orphan.LocalID))
	unsynced, err = store.UnsyncedScreenshots()
	require.NoError(t, err)
	assert.Len(t, unsynced, 1)

	require.NoError(t, store.DeleteScreenshot(shot.LocalID))
	row, err := store.ScreenshotByLocalID(shot.LocalID)
	require.NoError(t, err)
	assert.Nil(t, row)
}
