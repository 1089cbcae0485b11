package sync

import (
	"encoding/base64"
	"time"

	"github.com/medetbek/worklens/internal/device"
	"github.com/medetbek/worklens/internal/models"
)

// Wire shapes for the batch endpoint. The local models never cross the
// network directly; these mapping functions are the only place the local and
// remote field names meet.
//
// Durations stay in milliseconds on the wire (duration_ms/paused_ms). The
// server owns any display rounding; truncating to seconds here would lose up
// to 999ms per session.

// SessionDTO is one session in a batch upload.
type SessionDTO struct {
	LocalID     string     `json:"local_id"`
	TaskRef     *string    `json:"task_ref,omitempty"`
	OrgID       string     `json:"org_id"`
	WorkspaceID string     `json:"workspace_id"`
	UserID      string     `json:"user_id"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	DurationMs  int64      `json:"duration_ms"`
	PausedMs    int64      `json:"paused_ms"`
	Title       string     `json:"title"`
	Note        string     `json:"note"`
}

// ScreenshotDTO is one screenshot in a batch upload, image bytes embedded.
type ScreenshotDTO struct {
	LocalID        string    `json:"local_id"`
	SessionLocalID *string   `json:"session_local_id,omitempty"`
	FileName       string    `json:"file_name"`
	FileSize       int64     `json:"file_size"`
	MimeType       string    `json:"mime_type"`
	Checksum       string    `json:"checksum,omitempty"`
	CapturedAt     time.Time `json:"captured_at"`
	DisplayIndex   int       `json:"display_index"`
	Data           string    `json:"data"` // base64 image bytes
}

type batchRequest struct {
	Device      device.Identity `json:"device"`
	Sessions    []SessionDTO    `json:"sessions"`
	Screenshots []ScreenshotDTO `json:"screenshots"`
}

type sessionAck struct {
	LocalID  string `json:"local_id"`
	RemoteID *int64 `json:"remote_id"`
}

type batchResponse struct {
	Sessions []sessionAck `json:"sessions"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func sessionToDTO(s models.Session) SessionDTO {
	return SessionDTO{
		LocalID:     s.LocalID,
		TaskRef:     s.TaskRef,
		OrgID:       s.OrgID,
		WorkspaceID: s.WorkspaceID,
		UserID:      s.UserID,
		StartedAt:   s.StartedAt,
		EndedAt:     s.EndedAt,
		DurationMs:  s.DurationMs,
		PausedMs:    s.PausedMs,
		Title:       s.Title,
		Note:        s.Note,
	}
}

func screenshotToDTO(s models.Screenshot, imageBytes []byte) ScreenshotDTO {
	return ScreenshotDTO{
		LocalID:        s.LocalID,
		SessionLocalID: s.SessionLocalID,
		FileName:       s.FileName,
		FileSize:       s.FileSize,
		MimeType:       s.MimeType,
		Checksum:       s.Checksum,
		CapturedAt:     s.CapturedAt,
		DisplayIndex:   s.DisplayIndex,
		Data:           base64.StdEncoding.EncodeToString(imageBytes),
	}
}
