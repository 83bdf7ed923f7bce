package gesture

// Gesture is the painter command expressed by a FingerStates vector.
type Gesture int

const (
	// None means no hand was detected.
	None Gesture = iota
	// Clear is a closed fist: every finger curled.
	Clear
	// Draw is the pointing pose: index extended and middle curled.
	Draw
	// Idle is any other pose, e.g. the two-finger selector.
	Idle
)

var gestureNames = map[Gesture]string{
	None:  "none",
	Clear: "clear",
	Draw:  "draw",
	Idle:  "idle",
}

func (g Gesture) String() string {
	if name, ok := gestureNames[g]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the gesture by name.
func (g Gesture) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// Recognize maps finger states to a Gesture. Rules are checked in order
// and the first match wins: no hand, fist, point, anything else.
func Recognize(s FingerStates) Gesture {
	if s.Empty() {
		return None
	}

	fist := true
	for _, v := range s {
		if v != Curled {
			fist = false
			break
		}
	}
	if fist {
		return Clear
	}

	if s.Extended(Index) && !s.Extended(Middle) {
		return Draw
	}

	return Idle
}
