package detector

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Detector finds hands in a frame.
type Detector interface {
	// Detect returns the hands visible in frame with normalized
	// coordinates. No hands is an empty result, not an error.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds the hand detection thresholds.
type Config struct {
	// MaxHands is the maximum number of hands to report. The painter only
	// follows the first hand.
	MaxHands int

	// MinConfidence is the minimum detection confidence (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns the detection settings used for painting: one hand,
// detection confidence 0.85.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.85,
		MinTrackingConf: 0.7,
	}
}

// Validate rejects thresholds outside [0, 1] and a non-positive hand count.
func (c Config) Validate() error {
	if c.MaxHands < 1 {
		return fmt.Errorf("max hands must be at least 1, got %d", c.MaxHands)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("detection confidence must be within [0, 1], got %v", c.MinConfidence)
	}
	if c.MinTrackingConf < 0 || c.MinTrackingConf > 1 {
		return fmt.Errorf("tracking confidence must be within [0, 1], got %v", c.MinTrackingConf)
	}
	return nil
}
