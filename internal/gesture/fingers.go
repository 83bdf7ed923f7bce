// Package gesture classifies hand landmarks into finger states and painter gestures.
package gesture

import (
	"fmt"
	"strings"

	"github.com/ayusman/fingerpaint/internal/detector"
)

// Finger identifies a digit of the hand. The numeric value is the position
// of the finger in a FingerStates vector.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
	NumFingers
)

var fingerNames = [NumFingers]string{"thumb", "index", "middle", "ring", "pinky"}

func (f Finger) String() string {
	if f < 0 || f >= NumFingers {
		return fmt.Sprintf("finger(%d)", int(f))
	}
	return fingerNames[f]
}

// State is the binary classification of a finger.
type State uint8

const (
	Curled   State = 0
	Extended State = 1
)

// FingerStates holds one State per finger in thumb, index, middle, ring,
// pinky order. An empty vector means no hand was detected and is distinct
// from a fist ([0,0,0,0,0]).
type FingerStates []State

// Empty reports whether the vector carries no hand.
func (s FingerStates) Empty() bool {
	return len(s) == 0
}

// Extended reports whether finger f is extended. It is false for an empty vector.
func (s FingerStates) Extended(f Finger) bool {
	return len(s) == int(NumFingers) && s[f] == Extended
}

// String renders the vector as e.g. "[0 1 0 0 0]".
func (s FingerStates) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = fmt.Sprint(uint8(v))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Handedness selects which way the thumb opens in the frame.
//
// The thumb test assumes a horizontally mirrored (selfie) frame. A right hand
// in such a frame opens its thumb towards smaller x; HandLeft flips that.
// A wrong setting, or an un-mirrored capture, silently inverts thumb
// detection; nothing here tries to detect it.
type Handedness int

const (
	HandRight Handedness = iota
	HandLeft
)

func (h Handedness) String() string {
	if h == HandLeft {
		return "left"
	}
	return "right"
}

// ParseHandedness converts "right" or "left" (any case) to a Handedness.
func ParseHandedness(s string) (Handedness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "right", "":
		return HandRight, nil
	case "left":
		return HandLeft, nil
	default:
		return HandRight, fmt.Errorf("unknown handedness %q", s)
	}
}

type axis int

const (
	axisX axis = iota
	axisY
)

// fingerTopology maps each finger to the landmark pair compared to decide
// whether it is extended. The thumb compares its tip with the adjacent IP
// joint horizontally; the other fingers compare the tip with the PIP joint
// two landmarks down the chain vertically (y grows downwards).
var fingerTopology = [NumFingers]struct {
	tip   int
	joint int
	axis  axis
}{
	Thumb:  {tip: detector.ThumbTip, joint: detector.ThumbIP, axis: axisX},
	Index:  {tip: detector.IndexTip, joint: detector.IndexPIP, axis: axisY},
	Middle: {tip: detector.MiddleTip, joint: detector.MiddlePIP, axis: axisY},
	Ring:   {tip: detector.RingTip, joint: detector.RingPIP, axis: axisY},
	Pinky:  {tip: detector.PinkyTip, joint: detector.PinkyPIP, axis: axisY},
}

// Classify maps a pixel LandmarkSet to per-finger states.
//
// An empty set returns an empty vector. Ties on the compared coordinate
// count as curled. The set must be empty or hold exactly
// detector.NumLandmarks entries; anything else is a caller bug and panics.
func Classify(set detector.LandmarkSet, hand Handedness) FingerStates {
	if len(set) == 0 {
		return FingerStates{}
	}
	if len(set) != detector.NumLandmarks {
		panic(fmt.Sprintf("gesture: Classify called with %d landmarks, want 0 or %d", len(set), detector.NumLandmarks))
	}

	states := make(FingerStates, NumFingers)
	for f, topo := range fingerTopology {
		tip, joint := set[topo.tip], set[topo.joint]

		var up bool
		switch topo.axis {
		case axisX:
			if hand == HandLeft {
				up = tip.X > joint.X
			} else {
				up = tip.X < joint.X
			}
		case axisY:
			up = tip.Y < joint.Y
		}

		if up {
			states[f] = Extended
		}
	}
	return states
}
