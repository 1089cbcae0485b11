package capture

import (
	"image"

	"github.com/kbinani/screenshot"
)

// DisplaySource abstracts the machine's attached displays. Both calls are
// fallible external operations; the scheduler never assumes a capture will
// succeed.
type DisplaySource interface {
	NumDisplays() int
	CaptureDisplay(index int) (image.Image, error)
}

type screenSource struct{}

// NewScreenSource returns the DisplaySource backed by the real displays.
func NewScreenSource() DisplaySource {
	return screenSource{}
}

func (screenSource) NumDisplays() int {
	return screenshot.NumActiveDisplays()
}

func (screenSource) CaptureDisplay(index int) (image.Image, error) {
	return screenshot.CaptureDisplay(index)
}
