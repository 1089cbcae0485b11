// Package capture writes periodic screenshots of every attached display
// while a session is running.
package capture

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medetbek/worklens/internal/db"
	"github.com/medetbek/worklens/internal/models"
)

type state int

const (
	stateIdle state = iota
	stateCapturing
)

// Scheduler runs the capture tick for the active session. At most one
// capture loop exists at a time; StartCapturing is idempotent against
// re-entry.
type Scheduler struct {
	store    *db.Store
	source   DisplaySource
	log      *zap.Logger
	interval time.Duration
	shotsDir string

	mu        sync.Mutex
	state     state
	sessionID string
	taskRef   *string
	stop      chan struct{}
}

// NewScheduler builds a scheduler writing image files under dataDir. A
// non-positive interval (e.g. a malformed config value) falls back to the
// default cadence.
func NewScheduler(store *db.Store, source DisplaySource, dataDir string, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		store:    store,
		source:   source,
		log:      log,
		interval: interval,
		shotsDir: filepath.Join(dataDir, "screenshots"),
	}
}

// StartCapturing begins the capture loop for a session: one capture right
// away, then one per interval. A no-op when already capturing.
func (s *Scheduler) StartCapturing(sessionLocalID string, taskRef *string) {
	s.mu.Lock()
	if s.state == stateCapturing {
		s.mu.Unlock()
		return
	}
	s.state = stateCapturing
	s.sessionID = sessionLocalID
	s.taskRef = taskRef
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	s.log.Info("capture started",
		zap.String("session", sessionLocalID),
		zap.Duration("interval", s.interval))

	go s.run(sessionLocalID, stop)
}

func (s *Scheduler) run(sessionLocalID string, stop chan struct{}) {
	s.CaptureAll(sessionLocalID)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.CaptureAll(sessionLocalID)
		}
	}
}

// StopCapturing cancels future ticks. Safe to call when not capturing.
func (s *Scheduler) StopCapturing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateCapturing {
		return
	}
	close(s.stop)
	s.stop = nil
	s.state = stateIdle
	s.sessionID = ""
	s.taskRef = nil
	s.log.Info("capture stopped")
}

// ForceStopCapturing stops the loop no matter what state the scheduler is
// in. It always succeeds; the message says whether anything was running.
func (s *Scheduler) ForceStopCapturing() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasActive := s.state == stateCapturing
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.state = stateIdle
	s.sessionID = ""
	s.taskRef = nil

	if wasActive {
		s.log.Info("capture force-stopped")
		return "capture loop stopped"
	}
	return "capture already idle"
}

// Capturing reports whether a capture loop is armed.
func (s *Scheduler) Capturing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateCapturing
}

// CaptureAll runs one capture tick: every attached display, one screenshot
// row per display. A failure on one display is logged and the loop moves on;
// it never cancels the tick or future ticks.
func (s *Scheduler) CaptureAll(sessionLocalID string) {
	n := s.source.NumDisplays()
	for i := 0; i < n; i++ {
		if err := s.captureOne(sessionLocalID, i); err != nil {
			s.log.Warn("display capture failed",
				zap.Int("display", i),
				zap.Error(err))
			continue
		}
	}
}

func (s *Scheduler) captureOne(sessionLocalID string, index int) error {
	img, err := s.source.CaptureDisplay(index)
	if err != nil {
		return fmt.Errorf("capture display %d: %w", index, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode display %d: %w", index, err)
	}

	capturedAt := time.Now()
	name := fmt.Sprintf("%s_d%d.png", capturedAt.Format("20060102T150405"), index)
	path := filepath.Join(s.shotsDir, name)

	if err := os.MkdirAll(s.shotsDir, 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	sum := sha256.Sum256(buf.Bytes())
	shot := &models.Screenshot{
		LocalID:        uuid.New().String(),
		SessionLocalID: &sessionLocalID,
		FilePath:       path,
		FileName:       name,
		FileSize:       int64(buf.Len()),
		MimeType:       "image/png",
		Checksum:       hex.EncodeToString(sum[:]),
		CapturedAt:     capturedAt,
		DisplayIndex:   index,
	}
	if err := s.store.CreateScreenshot(shot); err != nil {
		return fmt.Errorf("persist screenshot for display %d: %w", index, err)
	}

	s.log.Debug("screenshot captured",
		zap.Int("display", index),
		zap.String("file", name),
		zap.Int64("bytes", shot.FileSize))
	return nil
}
