// Package detector provides hand detection interfaces and landmark types for the painter.
package detector

import (
	"errors"
	"fmt"
	"image"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// ErrMalformedLandmarks is returned when a LandmarkSet is neither empty nor a full hand.
var ErrMalformedLandmarks = errors.New("malformed landmark set")

// Point3D represents a normalized landmark position as reported by MediaPipe.
// X and Y are in [0,1] relative to the frame; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Landmark is a single landmark mapped to pixel coordinates.
type Landmark struct {
	ID int `json:"id"`
	X  int `json:"x"`
	Y  int `json:"y"`
}

// Point returns the landmark position as an image.Point.
func (l Landmark) Point() image.Point {
	return image.Point{X: l.X, Y: l.Y}
}

// LandmarkSet is one detected hand in pixel space: either exactly
// NumLandmarks entries with set[i].ID == i, or empty when no hand is visible.
type LandmarkSet []Landmark

// Pixels maps the normalized landmarks onto a width x height frame.
// Coordinates are truncated like int(x*w) and clamped to the frame bounds.
func (h *HandLandmarks) Pixels(width, height int) LandmarkSet {
	if h == nil || width <= 0 || height <= 0 {
		return LandmarkSet{}
	}

	set := make(LandmarkSet, NumLandmarks)
	for i, p := range h.Points {
		set[i] = Landmark{
			ID: i,
			X:  clamp(int(p.X*float64(width)), 0, width-1),
			Y:  clamp(int(p.Y*float64(height)), 0, height-1),
		}
	}
	return set
}

// Validate checks the LandmarkSet invariant.
func (s LandmarkSet) Validate() error {
	if len(s) == 0 {
		return nil
	}
	if len(s) != NumLandmarks {
		return fmt.Errorf("%w: got %d landmarks, want 0 or %d", ErrMalformedLandmarks, len(s), NumLandmarks)
	}
	for i, l := range s {
		if l.ID != i {
			return fmt.Errorf("%w: landmark at index %d has id %d", ErrMalformedLandmarks, i, l.ID)
		}
		if l.X < 0 || l.Y < 0 {
			return fmt.Errorf("%w: landmark %d has negative position (%d,%d)", ErrMalformedLandmarks, i, l.X, l.Y)
		}
	}
	return nil
}

// Tip returns the index fingertip position. The set must not be empty.
func (s LandmarkSet) Tip() image.Point {
	return s[IndexTip].Point()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
