package models

import (
	"time"

	"gorm.io/gorm"
)

// SessionStatus is the lifecycle state of a tracked session.
type SessionStatus string

const (
	StatusRunning SessionStatus = "running"
	StatusPaused  SessionStatus = "paused"
	StatusStopped SessionStatus = "stopped"
)

// Session represents one contiguous tracked work interval
type Session struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// LocalID is generated on this device and is the sync correlation key.
	// RemoteID is assigned by the server once the session has been uploaded.
	LocalID  string  `gorm:"uniqueIndex;not null" json:"local_id"`
	RemoteID *int64  `json:"remote_id"`
	TaskRef  *string `json:"task_ref"`

	// Context captured at start time, immutable for the life of the session.
	OrgID       string `json:"org_id"`
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"user_id"`

	StartedAt time.Time  `gorm:"not null" json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	PausedAt  *time.Time `json:"paused_at"`
	ResumedAt *time.Time `json:"resumed_at"`

	// DurationMs accumulates working time only; PausedMs accumulates
	// paused time. Both in milliseconds.
	DurationMs int64 `json:"duration_ms"`
	PausedMs   int64 `json:"paused_ms"`

	Status SessionStatus `gorm:"default:running;index" json:"status"`
	Title  string        `json:"title"`
	Note   string        `json:"note"`

	Synced bool `gorm:"default:false;index" json:"synced"`
}

// Active reports whether the session still owns the device's tracking slot.
func (s *Session) Active() bool {
	return s.Status == StatusRunning || s.Status == StatusPaused
}
