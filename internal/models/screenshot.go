package models

import (
	"time"

	"gorm.io/gorm"
)

// Screenshot represents one captured display image waiting for upload
type Screenshot struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	LocalID string `gorm:"uniqueIndex;not null" json:"local_id"`

	// SessionLocalID references the owning session by its opaque local id,
	// not the numeric row id, so the link survives before the server has
	// assigned anything. Nil for manually captured images.
	SessionLocalID *string `gorm:"index" json:"session_local_id"`

	FilePath string `gorm:"not null" json:"file_path"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	MimeType string `gorm:"default:image/png" json:"mime_type"`
	Checksum string `json:"checksum"`

	CapturedAt   time.Time `gorm:"not null" json:"captured_at"`
	DisplayIndex int       `json:"display_index"`

	Synced bool `gorm:"default:false;index" json:"synced"`
}
