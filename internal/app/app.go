// Package app drives the painting pipeline: camera, hand detection, finger
// classification, the stroke controller and session bookkeeping.
package app

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/fingerpaint/internal/capture"
	"github.com/ayusman/fingerpaint/internal/config"
	"github.com/ayusman/fingerpaint/internal/detector"
	"github.com/ayusman/fingerpaint/internal/gesture"
	"github.com/ayusman/fingerpaint/internal/paint"
	"github.com/ayusman/fingerpaint/internal/store"
)

// ErrNoFrame is returned when there is no image to encode.
var ErrNoFrame = errors.New("no frame available")

// Config holds configuration options for the application.
type Config struct {
	Store *store.Store

	// Camera, when set, is used instead of opening Capture.
	Camera   capture.Camera
	Capture  capture.Config
	Detector detector.Config
	Paint    paint.Config
	Hand     gesture.Handedness

	// Window shows the composited feed in an OpenCV window from Run.
	Window bool

	// MotionThreshold, when positive, skips hand detection on frames that
	// changed by less than this percentage and reuses the last hands.
	MotionThreshold float64
}

// ConfigFrom builds an application config from the file settings.
func ConfigFrom(c config.Config, s *store.Store) (Config, error) {
	pc, err := c.Paint()
	if err != nil {
		return Config{}, err
	}

	return Config{
		Store: s,
		Capture: capture.Config{
			DeviceID: c.CameraID,
			Width:    c.Width,
			Height:   c.Height,
			FPS:      c.FPS,
			Mirror:   c.Mirror,
		},
		Detector: c.Detector(),
		Paint:    pc,
		Hand:     c.Hand(),
		Window:   c.Window,

		MotionThreshold: c.MotionThreshold,
	}, nil
}

// Point is a pixel position on the canvas.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Event describes the outcome of one processed frame.
type Event struct {
	Hand      bool            `json:"hand"`
	States    []int           `json:"states"`
	Gesture   gesture.Gesture `json:"gesture"`
	Action    paint.Action    `json:"action"`
	Tip       *Point          `json:"tip,omitempty"`
	Drawing   bool            `json:"drawing"`
	Timestamp time.Time       `json:"timestamp"`
}

// App is the main application that orchestrates capture, detection and painting.
type App struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	live     bool
	hand     gesture.Handedness
	enabled  bool
	mu       sync.RWMutex
	stopCh   chan struct{}
	doneCh   chan struct{}

	// canvasMu serialises every access to painter.
	painter  *paint.Painter
	canvasMu sync.Mutex
	clearCh  chan struct{}

	outMu      sync.RWMutex
	lastEvent  Event
	latestJPEG []byte
	display    gocv.Mat
	stats      store.SessionStats
	session    *store.Session

	// Owned by the pipeline goroutine.
	prevGesture gesture.Gesture
	change      *capture.ChangeDetector
	lastHands   []detector.HandLandmarks
}

// New creates a new App. Style overrides saved in the store are applied on
// top of cfg.Paint and cfg.Hand.
func New(cfg Config) (*App, error) {
	if cfg.Store != nil {
		settings, err := cfg.Store.Settings().All()
		if err != nil {
			return nil, fmt.Errorf("load settings: %w", err)
		}
		if err := applyOverrides(&cfg, settings); err != nil {
			return nil, err
		}
	}

	painter, err := paint.New(cfg.Paint)
	if err != nil {
		return nil, err
	}

	cam := cfg.Camera
	if cam == nil {
		cam = capture.NewCamera(cfg.Capture)
	}

	a := &App{
		config:  cfg,
		camera:  cam,
		hand:    cfg.Hand,
		enabled: true,
		painter: painter,
		clearCh: make(chan struct{}, 1),
		display: gocv.NewMat(),
	}
	if cfg.MotionThreshold > 0 {
		a.change = capture.NewChangeDetector(cfg.MotionThreshold)
	}

	// Try MediaPipe first, fall back to mock detector
	if mp, err := detector.NewMediaPipeDetector(cfg.Detector); err == nil {
		a.SetDetector(mp)
		log.Println("Using MediaPipe hand detection")
	} else {
		a.SetDetector(detector.NewMockDetector())
		log.Printf("WARNING: live hand detection unavailable (%v). No hands will be seen: "+
			"install scripts/%s next to the binary or in ~/.fingerpaint, or run with -replay", err, detector.ServiceScript)
	}

	return a, nil
}

// applyOverrides merges persisted settings into cfg.
func applyOverrides(cfg *Config, settings map[string]string) error {
	if v, ok := settings[store.SettingDrawColor]; ok {
		c, err := parseColorSetting(v)
		if err != nil {
			return err
		}
		cfg.Paint.Style.Color = c
	}
	if v, ok := settings[store.SettingBrushThickness]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", store.SettingBrushThickness, v, err)
		}
		cfg.Paint.Style.Thickness = n
	}
	if v, ok := settings[store.SettingHandedness]; ok {
		h, err := gesture.ParseHandedness(v)
		if err != nil {
			return err
		}
		cfg.Hand = h
	}
	return nil
}

// SetEnabled enables or disables painting. While disabled the feed keeps
// running but frames are not classified.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether painting is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
	_, a.live = d.(*detector.MediaPipeDetector)
}

// LiveDetection reports whether hands come from the MediaPipe service
// rather than a mock or a recording.
func (a *App) LiveDetection() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.live
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Handedness returns the hand the classifier assumes.
func (a *App) Handedness() gesture.Handedness {
	return a.hand
}

// Style returns the brush in use.
func (a *App) Style() paint.Style {
	a.canvasMu.Lock()
	defer a.canvasMu.Unlock()
	return a.painter.Style()
}

// RequestClear asks the pipeline to wipe the canvas before the next frame.
// Requests made while one is already pending are merged.
func (a *App) RequestClear() {
	select {
	case a.clearCh <- struct{}{}:
	default:
	}
}

// LastEvent returns the outcome of the most recent frame.
func (a *App) LastEvent() Event {
	a.outMu.RLock()
	defer a.outMu.RUnlock()
	return a.lastEvent
}

// LatestJPEG returns the most recent composited frame as JPEG, or nil if no
// frame has been processed yet.
func (a *App) LatestJPEG() []byte {
	a.outMu.RLock()
	defer a.outMu.RUnlock()
	return a.latestJPEG
}

// CanvasPNG encodes the current canvas as PNG.
func (a *App) CanvasPNG() ([]byte, error) {
	a.canvasMu.Lock()
	snap := a.painter.Snapshot()
	a.canvasMu.Unlock()
	defer snap.Close()

	if snap.Empty() {
		return nil, ErrNoFrame
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, snap)
	if err != nil {
		return nil, fmt.Errorf("encode canvas: %w", err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}

// Stats returns the counters of the current session.
func (a *App) Stats() store.SessionStats {
	a.outMu.RLock()
	defer a.outMu.RUnlock()
	return a.stats
}

// SessionID returns the ID of the running session, or "" when stopped.
func (a *App) SessionID() string {
	a.outMu.RLock()
	defer a.outMu.RUnlock()
	if a.session == nil {
		return ""
	}
	return a.session.ID
}

// Running reports whether the pipeline goroutine is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// Start opens the camera, records a new session and begins the pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}

	a.beginSession()

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	log.Println("Painting pipeline started")
	return nil
}

// Stop halts the pipeline, records the session counters and releases the camera.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}

	close(stopCh)
	<-doneCh

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	a.endSession()

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Painting pipeline stopped")
}

// Close stops the pipeline and frees the canvas.
func (a *App) Close() error {
	a.Stop()

	a.outMu.Lock()
	a.display.Close()
	a.outMu.Unlock()

	if a.change != nil {
		a.change.Close()
	}

	a.canvasMu.Lock()
	defer a.canvasMu.Unlock()
	return a.painter.Close()
}

func (a *App) beginSession() {
	a.outMu.Lock()
	defer a.outMu.Unlock()

	a.stats = store.SessionStats{}
	a.lastHands = nil
	if a.change != nil {
		a.change.Reset()
	}
	a.session = &store.Session{ID: uuid.New().String()}

	if a.config.Store == nil {
		return
	}
	if err := a.config.Store.Sessions().Create(a.session); err != nil {
		log.Printf("Failed to record session: %v", err)
	}
}

func (a *App) endSession() {
	a.outMu.Lock()
	sess, stats := a.session, a.stats
	a.session = nil
	a.outMu.Unlock()

	if sess == nil || a.config.Store == nil {
		return
	}
	if err := a.config.Store.Sessions().Finish(sess.ID, stats); err != nil {
		log.Printf("Failed to finish session %s: %v", sess.ID, err)
		return
	}
	log.Printf("Session %s: %d frames, %d strokes, %d segments, %d clears",
		sess.ID, stats.Frames, stats.Strokes, stats.Segments, stats.Clears)
}

func toPoint(p image.Point) *Point {
	return &Point{X: p.X, Y: p.Y}
}

func parseColorSetting(v string) (color.RGBA, error) {
	c, err := config.ParseColor(v)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid %s: %w", store.SettingDrawColor, err)
	}
	return c, nil
}
