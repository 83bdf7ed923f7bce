package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu       sync.Mutex
	hands    []HandLandmarks
	sequence [][]HandLandmarks
	err      error
	calls    int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetSequence queues per-call results. Each Detect consumes one entry;
// once the queue is drained Detect falls back to the hands set by SetHands.
func (m *MockDetector) SetSequence(seq [][]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = seq
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) > 0 {
		next := m.sequence[0]
		m.sequence = m.sequence[1:]
		return next, nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Finger columns and heights used by the preset hands. The hand is a right
// hand seen in a mirrored frame: the thumb sits on the left of the palm and
// points further left when extended.
var (
	fingerColumns = [4]float64{0.45, 0.50, 0.55, 0.60}
	extendedChain = [4]float64{0.65, 0.55, 0.47, 0.40} // MCP, PIP, DIP, TIP
	curledChain   = [4]float64{0.65, 0.58, 0.63, 0.66}
)

// PoseLandmarks builds a mirrored right hand with the given fingers
// extended, in thumb, index, middle, ring, pinky order.
func PoseLandmarks(extended [5]bool) HandLandmarks {
	h := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	h.Points[Wrist] = Point3D{X: 0.52, Y: 0.80}

	h.Points[ThumbCMC] = Point3D{X: 0.45, Y: 0.76}
	h.Points[ThumbMCP] = Point3D{X: 0.40, Y: 0.72}
	if extended[0] {
		h.Points[ThumbIP] = Point3D{X: 0.35, Y: 0.68}
		h.Points[ThumbTip] = Point3D{X: 0.30, Y: 0.64}
	} else {
		h.Points[ThumbIP] = Point3D{X: 0.42, Y: 0.68}
		h.Points[ThumbTip] = Point3D{X: 0.46, Y: 0.66}
	}

	for f := 0; f < 4; f++ {
		chain := curledChain
		if extended[f+1] {
			chain = extendedChain
		}
		base := IndexMCP + f*4
		for j := 0; j < 4; j++ {
			h.Points[base+j] = Point3D{X: fingerColumns[f], Y: chain[j], Z: -0.01 * float64(j)}
		}
	}

	return h
}

// FistLandmarks returns a closed fist: every finger curled.
func FistLandmarks() HandLandmarks {
	return PoseLandmarks([5]bool{})
}

// PointLandmarks returns the drawing pose: index extended, others curled.
func PointLandmarks() HandLandmarks {
	return PoseLandmarks([5]bool{false, true, false, false, false})
}

// SelectorLandmarks returns the two-finger pose: index and middle extended.
func SelectorLandmarks() HandLandmarks {
	return PoseLandmarks([5]bool{false, true, true, false, false})
}

// OpenPalmLandmarks returns an open palm: every finger extended.
func OpenPalmLandmarks() HandLandmarks {
	return PoseLandmarks([5]bool{true, true, true, true, true})
}

// Translate returns a copy of the hand moved by (dx, dy) in normalized units.
func (h HandLandmarks) Translate(dx, dy float64) HandLandmarks {
	moved := h
	for i := range moved.Points {
		moved.Points[i].X += dx
		moved.Points[i].Y += dy
	}
	return moved
}

// WithTipAt returns a copy of the hand moved so the index fingertip sits at
// the normalized position (x, y).
func (h HandLandmarks) WithTipAt(x, y float64) HandLandmarks {
	tip := h.Points[IndexTip]
	return h.Translate(x-tip.X, y-tip.Y)
}
