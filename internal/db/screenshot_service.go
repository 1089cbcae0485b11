package db

import (
	"errors"

	"gorm.io/gorm"

	"github.com/medetbek/worklens/internal/models"
)

// CreateScreenshot persists a new screenshot row.
func (s *Store) CreateScreenshot(shot *models.Screenshot) error {
	return s.db.Create(shot).Error
}

// UnsyncedScreenshots returns all screenshots not yet confirmed uploaded,
// oldest first.
func (s *Store) UnsyncedScreenshots() ([]models.Screenshot, error) {
	var shots []models.Screenshot
	err := s.db.
		Where("synced = ?", false).
		Order("captured_at ASC").
		Find(&shots).Error
	return shots, err
}

// ScreenshotsBySession returns the screenshots belonging to one session.
func (s *Store) ScreenshotsBySession(sessionLocalID string) ([]models.Screenshot, error) {
	var shots []models.Screenshot
	err := s.db.
		Where("session_local_id = ?", sessionLocalID).
		Order("captured_at ASC").
		Find(&shots).Error
	return shots, err
}

// ScreenshotByLocalID looks a screenshot up by its device-generated id.
func (s *Store) ScreenshotByLocalID(localID string) (*models.Screenshot, error) {
	var shot models.Screenshot
	err := s.db.Where("local_id = ?", localID).First(&shot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shot, nil
}

// MarkScreenshotSynced flips the sync flag. Used when the upload was accepted
// but the local file could not be removed.
func (s *Store) MarkScreenshotSynced(localID string) error {
	return s.db.Model(&models.Screenshot{}).
		Where("local_id = ?", localID).
		Update("synced", true).Error
}

// DeleteScreenshot removes the row for good. The sync engine calls this
// right after a confirmed upload to reclaim disk.
func (s *Store) DeleteScreenshot(localID string) error {
	return s.db.Unscoped().
		Where("local_id = ?", localID).
		Delete(&models.Screenshot{}).Error
}
