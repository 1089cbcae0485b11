package db

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/medetbek/worklens/internal/models"
)

// CreateSession persists a new session row.
func (s *Store) CreateSession(session *models.Session) error {
	return s.db.Create(session).Error
}

// SaveSession writes the full session row back.
func (s *Store) SaveSession(session *models.Session) error {
	return s.db.Save(session).Error
}

// ActiveSession returns the most recent session still in running or paused
// state, or nil when the device is idle.
func (s *Store) ActiveSession() (*models.Session, error) {
	var session models.Session
	err := s.db.
		Where("status IN ?", []models.SessionStatus{models.StatusRunning, models.StatusPaused}).
		Order("started_at DESC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SessionByLocalID looks a session up by its device-generated id.
func (s *Store) SessionByLocalID(localID string) (*models.Session, error) {
	var session models.Session
	err := s.db.Where("local_id = ?", localID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// UnsyncedSessions returns every session not yet confirmed uploaded, oldest
// first. Active sessions are included; stopping resets the sync flag so the
// final values go out again.
func (s *Store) UnsyncedSessions() ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.
		Where("synced = ?", false).
		Order("started_at ASC").
		Find(&sessions).Error
	return sessions, err
}

// UpdateRunningSession writes the duration counters for a session that is
// still marked running in the store. Reports false when no running row
// matched, which means another process has finalized the session.
func (s *Store) UpdateRunningSession(localID string, durationMs, pausedMs int64) (bool, error) {
	res := s.db.Model(&models.Session{}).
		Where("local_id = ? AND status = ?", localID, models.StatusRunning).
		Updates(map[string]any{"duration_ms": durationMs, "paused_ms": pausedMs})
	return res.RowsAffected > 0, res.Error
}

// MarkSessionSynced flips the sync flag and records the server-assigned id
// when the server returned one.
func (s *Store) MarkSessionSynced(localID string, remoteID *int64) error {
	updates := map[string]any{"synced": true}
	if remoteID != nil {
		updates["remote_id"] = *remoteID
	}
	return s.db.Model(&models.Session{}).
		Where("local_id = ?", localID).
		Updates(updates).Error
}

// SessionsInRange returns all stopped sessions that started within the range.
func (s *Store) SessionsInRange(from, to time.Time) ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.
		Where("started_at >= ? AND started_at <= ? AND status = ?", from, to, models.StatusStopped).
		Order("started_at ASC").
		Find(&sessions).Error
	return sessions, err
}
