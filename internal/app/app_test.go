package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/fingerpaint/internal/capture"
	"github.com/ayusman/fingerpaint/internal/detector"
	"github.com/ayusman/fingerpaint/internal/gesture"
	"github.com/ayusman/fingerpaint/internal/paint"
	"github.com/ayusman/fingerpaint/internal/store"
)

const (
	testWidth  = 640
	testHeight = 480
)

var ink = gocv.Vecb{0, 0, 255}

func testConfig(s *store.Store) Config {
	return Config{
		Store:  s,
		Camera: capture.NewBlankCamera(testWidth, testHeight),
		Paint: paint.Config{
			Width:  testWidth,
			Height: testHeight,
			Style:  paint.Style{Color: paint.DefaultColor, Thickness: 5},
		},
		Hand: gesture.HandRight,
	}
}

func newTestApp(t *testing.T, s *store.Store) (*App, *detector.MockDetector) {
	t.Helper()

	a, err := New(testConfig(s))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		a.Close()
		if mc, ok := a.Camera().(*capture.MockCamera); ok {
			mc.Release()
		}
	})

	mock := detector.NewMockDetector()
	a.SetDetector(mock)
	return a, mock
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func blankFrame(width, height int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8UC3)
}

// step feeds one blank frame through the pipeline.
func step(t *testing.T, a *App) Event {
	t.Helper()
	frame := blankFrame(testWidth, testHeight)
	defer frame.Close()

	ev, err := a.processFrame(&frame)
	if err != nil {
		t.Fatalf("processFrame() error = %v", err)
	}
	return ev
}

func hands(h ...detector.HandLandmarks) []detector.HandLandmarks {
	return h
}

func canvasAt(a *App, p Point) gocv.Vecb {
	a.canvasMu.Lock()
	defer a.canvasMu.Unlock()
	canvas := a.painter.Canvas()
	return canvas.GetVecbAt(p.Y, p.X)
}

func mid(p, q Point) Point {
	return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
}

func TestApplyOverrides(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]string
		wantErr  bool
		check    func(t *testing.T, cfg Config)
	}{
		{
			name:     "none",
			settings: map[string]string{},
			check: func(t *testing.T, cfg Config) {
				if cfg.Paint.Style.Thickness != 5 {
					t.Errorf("thickness = %d, want 5", cfg.Paint.Style.Thickness)
				}
			},
		},
		{
			name: "all",
			settings: map[string]string{
				store.SettingDrawColor:      "#00ff00",
				store.SettingBrushThickness: "9",
				store.SettingHandedness:     "left",
			},
			check: func(t *testing.T, cfg Config) {
				if cfg.Paint.Style.Color.G != 255 || cfg.Paint.Style.Color.R != 0 {
					t.Errorf("color = %v, want green", cfg.Paint.Style.Color)
				}
				if cfg.Paint.Style.Thickness != 9 {
					t.Errorf("thickness = %d, want 9", cfg.Paint.Style.Thickness)
				}
				if cfg.Hand != gesture.HandLeft {
					t.Errorf("hand = %v, want left", cfg.Hand)
				}
			},
		},
		{
			name:     "bad color",
			settings: map[string]string{store.SettingDrawColor: "red"},
			wantErr:  true,
		},
		{
			name:     "bad thickness",
			settings: map[string]string{store.SettingBrushThickness: "thick"},
			wantErr:  true,
		},
		{
			name:     "bad handedness",
			settings: map[string]string{store.SettingHandedness: "both"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(nil)
			err := applyOverrides(&cfg, tt.settings)
			if (err != nil) != tt.wantErr {
				t.Fatalf("applyOverrides() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestNew_AppliesStoredSettings(t *testing.T) {
	s := newTestStore(t)
	if err := s.Settings().SetAll(map[string]string{
		store.SettingBrushThickness: "12",
		store.SettingHandedness:     "left",
	}); err != nil {
		t.Fatalf("SetAll() error = %v", err)
	}

	a, _ := newTestApp(t, s)

	if got := a.Style().Thickness; got != 12 {
		t.Errorf("Style().Thickness = %d, want 12", got)
	}
	if a.Handedness() != gesture.HandLeft {
		t.Errorf("Handedness() = %v, want left", a.Handedness())
	}
}

func TestNew_RejectsInvalidStoredThickness(t *testing.T) {
	for _, v := range []string{"0", "40000"} {
		t.Run(v, func(t *testing.T) {
			s := newTestStore(t)
			if err := s.Settings().Set(store.SettingBrushThickness, v); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			cfg := testConfig(s)
			defer cfg.Camera.(*capture.MockCamera).Release()

			_, err := New(cfg)
			if !errors.Is(err, paint.ErrInvalidThickness) {
				t.Errorf("New() error = %v, want ErrInvalidThickness", err)
			}
		})
	}
}

func TestSetDetector_LiveDetection(t *testing.T) {
	a, _ := newTestApp(t, nil)
	if a.LiveDetection() {
		t.Error("a mock detector is not live detection")
	}

	mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig())
	if errors.Is(err, detector.ErrServiceNotFound) {
		t.Skip("mediapipe service script not installed")
	} else if err != nil {
		t.Fatalf("NewMediaPipeDetector() error = %v", err)
	}
	a.SetDetector(mp)
	if !a.LiveDetection() {
		t.Error("MediaPipe detector should count as live detection")
	}
}

func TestProcessFrame_StrokeThenClear(t *testing.T) {
	a, mock := newTestApp(t, nil)
	mock.SetSequence([][]detector.HandLandmarks{
		hands(detector.PointLandmarks().WithTipAt(0.2, 0.3)),
		hands(detector.PointLandmarks().WithTipAt(0.4, 0.3)),
		hands(detector.FistLandmarks()),
		nil,
	})

	first := step(t, a)
	if first.Action != paint.ActionStart || first.Gesture != gesture.Draw {
		t.Fatalf("frame 1: action %v gesture %v, want start/draw", first.Action, first.Gesture)
	}
	if first.Tip == nil || !first.Drawing {
		t.Fatalf("frame 1: tip %v drawing %v, want a tip and drawing", first.Tip, first.Drawing)
	}

	second := step(t, a)
	if second.Action != paint.ActionStroke {
		t.Fatalf("frame 2: action %v, want stroke", second.Action)
	}
	if got := canvasAt(a, mid(*first.Tip, *second.Tip)); !slices.Equal(got, ink) {
		t.Errorf("segment midpoint = %v, want ink", got)
	}

	third := step(t, a)
	if third.Action != paint.ActionClear {
		t.Fatalf("frame 3: action %v, want clear", third.Action)
	}
	if got := canvasAt(a, mid(*first.Tip, *second.Tip)); !slices.Equal(got, gocv.Vecb{0, 0, 0}) {
		t.Errorf("after clear midpoint = %v, want blank", got)
	}

	fourth := step(t, a)
	if fourth.Action != paint.ActionNoHand || fourth.Hand || fourth.Tip != nil {
		t.Errorf("frame 4: %+v, want an empty no-hand event", fourth)
	}

	want := store.SessionStats{Frames: 4, Strokes: 1, Segments: 1, Clears: 1}
	if got := a.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestProcessFrame_ModeSwitchBreaksStroke(t *testing.T) {
	a, mock := newTestApp(t, nil)
	mock.SetSequence([][]detector.HandLandmarks{
		hands(detector.PointLandmarks().WithTipAt(0.2, 0.3)),
		hands(detector.SelectorLandmarks().WithTipAt(0.4, 0.3)),
		hands(detector.PointLandmarks().WithTipAt(0.6, 0.6)),
	})

	first := step(t, a)
	second := step(t, a)
	third := step(t, a)

	if second.Action != paint.ActionIdle || second.Drawing {
		t.Errorf("selector frame: action %v drawing %v, want idle and not drawing", second.Action, second.Drawing)
	}
	if third.Action != paint.ActionStart {
		t.Errorf("after selector: action %v, want start", third.Action)
	}
	if got := canvasAt(a, mid(*first.Tip, *third.Tip)); !slices.Equal(got, gocv.Vecb{0, 0, 0}) {
		t.Errorf("strokes were joined across a mode switch: %v", got)
	}
}

func TestProcessFrame_DisableBreaksStroke(t *testing.T) {
	a, mock := newTestApp(t, nil)
	mock.SetSequence([][]detector.HandLandmarks{
		hands(detector.PointLandmarks().WithTipAt(0.2, 0.3)),
		hands(detector.PointLandmarks().WithTipAt(0.6, 0.6)),
	})

	first := step(t, a)

	a.SetEnabled(false)
	if ev := step(t, a); ev.Drawing {
		t.Error("no stroke should be in progress while disabled")
	}
	a.SetEnabled(true)

	last := step(t, a)
	if last.Action != paint.ActionStart {
		t.Errorf("after re-enabling: action %v, want start", last.Action)
	}
	if got := canvasAt(a, mid(*first.Tip, *last.Tip)); !slices.Equal(got, gocv.Vecb{0, 0, 0}) {
		t.Errorf("stroke was joined across a disabled period: %v", got)
	}
}

func TestProcessFrame_CompositesInkOntoFrame(t *testing.T) {
	a, mock := newTestApp(t, nil)
	mock.SetSequence([][]detector.HandLandmarks{
		hands(detector.PointLandmarks().WithTipAt(0.2, 0.3)),
		hands(detector.PointLandmarks().WithTipAt(0.4, 0.3)),
	})
	first := step(t, a)

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 40, 40, 0), testHeight, testWidth, gocv.MatTypeCV8UC3)
	defer frame.Close()

	ev, err := a.processFrame(&frame)
	if err != nil {
		t.Fatalf("processFrame() error = %v", err)
	}

	m := mid(*first.Tip, *ev.Tip)
	if got := frame.GetVecbAt(m.Y, m.X); !slices.Equal(got, ink) {
		t.Errorf("frame at stroke = %v, want ink", got)
	}
	if got := frame.GetVecbAt(testHeight-5, testWidth-5); !slices.Equal(got, gocv.Vecb{40, 40, 40}) {
		t.Errorf("frame away from stroke = %v, want camera pixel", got)
	}
	// Fingertip marker
	if got := frame.GetVecbAt(ev.Tip.Y, ev.Tip.X); !slices.Equal(got, ink) {
		t.Errorf("frame at tip = %v, want marker", got)
	}

	if jpeg := a.LatestJPEG(); len(jpeg) < 2 || jpeg[0] != 0xFF || jpeg[1] != 0xD8 {
		t.Errorf("LatestJPEG() is not a JPEG image")
	}
}

func TestProcessFrame_DetectorErrorSkipsFrame(t *testing.T) {
	a, mock := newTestApp(t, nil)
	mock.SetError(errors.New("service crashed"))

	frame := blankFrame(testWidth, testHeight)
	defer frame.Close()

	if _, err := a.processFrame(&frame); err == nil {
		t.Fatal("processFrame() should fail when detection fails")
	}
	if got := a.Stats().Frames; got != 0 {
		t.Errorf("Frames = %d, want 0 for a skipped frame", got)
	}
	if a.LatestJPEG() != nil {
		t.Error("a skipped frame should not be published")
	}
}

func TestProcessFrame_Disabled(t *testing.T) {
	a, mock := newTestApp(t, nil)
	mock.SetHands(hands(detector.PointLandmarks()))
	a.SetEnabled(false)

	ev := step(t, a)
	if ev.Action != paint.ActionNoHand {
		t.Errorf("action = %v, want no_hand while disabled", ev.Action)
	}
	if mock.Calls() != 0 {
		t.Errorf("detector called %d times while disabled", mock.Calls())
	}
}

func TestProcessFrame_StillSceneReusesHands(t *testing.T) {
	cfg := testConfig(nil)
	cfg.MotionThreshold = 0.5
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()
	defer cfg.Camera.(*capture.MockCamera).Release()

	mock := detector.NewMockDetector()
	mock.SetHands(hands(detector.PointLandmarks()))
	a.SetDetector(mock)

	for i := 0; i < 3; i++ {
		ev := step(t, a)
		if !ev.Hand || ev.Gesture != gesture.Draw {
			t.Fatalf("frame %d: hand=%v gesture=%v, want a drawing hand", i, ev.Hand, ev.Gesture)
		}
	}
	if mock.Calls() != 1 {
		t.Errorf("detector called %d times for an unchanged scene, want 1", mock.Calls())
	}
}

func TestProcessFrame_ResizesToCanvas(t *testing.T) {
	a, mock := newTestApp(t, nil)
	mock.SetHands(hands(detector.PointLandmarks()))

	frame := blankFrame(320, 240)
	defer frame.Close()

	ev, err := a.processFrame(&frame)
	if err != nil {
		t.Fatalf("processFrame() error = %v", err)
	}
	if frame.Cols() != testWidth || frame.Rows() != testHeight {
		t.Errorf("frame = %dx%d, want %dx%d", frame.Cols(), frame.Rows(), testWidth, testHeight)
	}
	if ev.Tip.X != int(0.5*testWidth) {
		t.Errorf("tip x = %d, want canvas coordinates", ev.Tip.X)
	}
}

func TestProcessFrame_EmptyFrame(t *testing.T) {
	a, _ := newTestApp(t, nil)

	frame := gocv.NewMat()
	defer frame.Close()

	if _, err := a.processFrame(&frame); !errors.Is(err, capture.ErrEmptyFrame) {
		t.Errorf("processFrame() error = %v, want ErrEmptyFrame", err)
	}
}

func TestRequestClear(t *testing.T) {
	a, mock := newTestApp(t, nil)
	mock.SetSequence([][]detector.HandLandmarks{
		hands(detector.PointLandmarks().WithTipAt(0.2, 0.3)),
		hands(detector.PointLandmarks().WithTipAt(0.4, 0.3)),
	})

	first := step(t, a)
	second := step(t, a)

	a.RequestClear()
	a.RequestClear()

	step(t, a)

	if got := canvasAt(a, mid(*first.Tip, *second.Tip)); !slices.Equal(got, gocv.Vecb{0, 0, 0}) {
		t.Errorf("canvas not cleared: %v", got)
	}
	if got := a.Stats().Clears; got != 1 {
		t.Errorf("Clears = %d, want 1 for merged requests", got)
	}
}

func TestCanvasPNG(t *testing.T) {
	a, _ := newTestApp(t, nil)

	data, err := a.CanvasPNG()
	if err != nil {
		t.Fatalf("CanvasPNG() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("CanvasPNG() did not return a PNG image")
	}
}

func TestEvent_JSON(t *testing.T) {
	a, mock := newTestApp(t, nil)
	mock.SetHands(hands(detector.PointLandmarks()))

	data, err := json.Marshal(step(t, a))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	for _, want := range []string{`"states":[0,1,0,0,0]`, `"gesture":"draw"`, `"action":"start"`, `"drawing":true`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("event JSON %s missing %s", data, want)
		}
	}
}

func TestApp_StartStopRecordsSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping pipeline test")
	}

	s := newTestStore(t)
	a, mock := newTestApp(t, s)
	mock.SetHands(hands(detector.PointLandmarks()))

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !a.Running() {
		t.Fatal("Running() = false after Start")
	}
	id := a.SessionID()
	if id == "" {
		t.Fatal("Start() should open a session")
	}

	deadline := time.Now().Add(3 * time.Second)
	for a.Stats().Frames < 3 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	a.Stop()
	if a.Running() {
		t.Error("Running() = true after Stop")
	}

	sess, err := s.Sessions().GetByID(id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if sess.EndedAt == nil {
		t.Error("session should be finished after Stop")
	}
	if sess.Stats.Frames < 3 {
		t.Errorf("session frames = %d, want >= 3", sess.Stats.Frames)
	}
	if sess.Stats.Strokes != 1 {
		t.Errorf("session strokes = %d, want 1", sess.Stats.Strokes)
	}
}
