package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Change detection constants
const (
	// GaussianBlurSize is the kernel size used to suppress sensor noise.
	GaussianBlurSize = 21
	// DiffThreshold is the per-pixel grey difference that counts as a change.
	DiffThreshold = 25
)

// ChangeDetector reports whether a frame differs from the one before it.
// Frames are compared after grey conversion and a Gaussian blur; a frame
// has changed when more than threshold percent of its pixels moved by more
// than DiffThreshold grey levels.
type ChangeDetector struct {
	threshold float64
	prevGray  gocv.Mat
	hasPrev   bool
	mu        sync.Mutex
}

// NewChangeDetector creates a ChangeDetector. threshold is a percentage of
// the frame area, e.g. 0.5 means half a percent of pixels.
func NewChangeDetector(threshold float64) *ChangeDetector {
	return &ChangeDetector{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Changed compares frame with the previous frame and remembers it for the
// next call. The first frame after creation or Reset always counts as
// changed, as does a frame whose size differs from the previous one.
func (c *ChangeDetector) Changed(frame *gocv.Mat) (bool, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if frame == nil || frame.Empty() {
		return true, 100
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(GaussianBlurSize, GaussianBlurSize), 0, 0, gocv.BorderDefault)

	sameSize := c.hasPrev && blurred.Rows() == c.prevGray.Rows() && blurred.Cols() == c.prevGray.Cols()
	if !sameSize {
		blurred.CopyTo(&c.prevGray)
		c.hasPrev = true
		return true, 100
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, c.prevGray, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, DiffThreshold, 255, gocv.ThresholdBinary)

	percent := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100.0

	blurred.CopyTo(&c.prevGray)
	return percent > c.threshold, percent
}

// Reset forgets the previous frame.
func (c *ChangeDetector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasPrev = false
}

// Threshold returns the change threshold in percent.
func (c *ChangeDetector) Threshold() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.threshold
}

// Close releases the stored frame.
func (c *ChangeDetector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prevGray.Close()
	c.hasPrev = false
}
