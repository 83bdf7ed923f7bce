package app

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/fingerpaint/internal/capture"
	"github.com/ayusman/fingerpaint/internal/detector"
	"github.com/ayusman/fingerpaint/internal/gesture"
	"github.com/ayusman/fingerpaint/internal/paint"
)

// WindowName is the title of the preview window.
const WindowName = "Fingerpaint"

// Window keys.
const (
	keyQuit  = 'q'
	keyClear = 'c'
)

// runPipeline is the frame loop. It reads at the camera rate until stopCh
// is closed and closes doneCh on return.
//
// Per frame:
// 1. Apply a pending clear request
// 2. Detect hands and map the first one to canvas pixels
// 3. Classify finger states and feed the stroke controller
// 4. Composite the canvas over the frame and publish it
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	fps := a.camera.FPS()
	if fps <= 0 {
		fps = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			frame, err := a.camera.ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			if _, err := a.processFrame(frame); err != nil {
				log.Printf("Skipping frame: %v", err)
			}
			frame.Close()
		}
	}
}

// processFrame runs one frame through detection, classification and the
// painter, then composites the canvas onto frame in place. frame is resized
// to the canvas when the camera delivers a different resolution.
func (a *App) processFrame(frame *gocv.Mat) (Event, error) {
	if frame == nil || frame.Empty() {
		return Event{}, capture.ErrEmptyFrame
	}

	width, height := a.painter.Size()
	if frame.Cols() != width || frame.Rows() != height {
		resized := gocv.NewMat()
		gocv.Resize(*frame, &resized, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
		resized.CopyTo(frame)
		resized.Close()
	}

	a.applyPendingClear()

	enabled := a.IsEnabled()
	var set detector.LandmarkSet
	if enabled {
		hands, err := a.detectHands(frame)
		if err != nil {
			return Event{}, err
		}
		if len(hands) > 0 {
			set = hands[0].Pixels(width, height)
		}
	}

	if err := set.Validate(); err != nil {
		return Event{}, err
	}

	states := gesture.Classify(set, a.hand)
	g := gesture.Recognize(states)

	var tip image.Point
	if !states.Empty() {
		tip = set.Tip()
	}

	a.canvasMu.Lock()
	action := paint.ActionNoHand
	if enabled {
		action = a.painter.Update(states, tip)
	} else {
		// Re-enabling must not join the old stroke to wherever the hand is now.
		a.painter.Lift()
	}
	drawing := a.painter.Drawing()
	paint.Composite(frame, a.painter.Canvas())
	if g == gesture.Draw {
		paint.DrawMarker(frame, tip, a.painter.Style().Color)
	}
	a.canvasMu.Unlock()

	a.logTransition(g)

	ev := Event{
		Hand:      !states.Empty(),
		States:    statesToInts(states),
		Gesture:   g,
		Action:    action,
		Drawing:   drawing,
		Timestamp: time.Now(),
	}
	if ev.Hand {
		ev.Tip = toPoint(tip)
	}

	a.publish(frame, ev)
	return ev, nil
}

// detectHands runs the detector on frame. With a change gate configured, a
// frame that barely differs from the previous one reuses the last result.
func (a *App) detectHands(frame *gocv.Mat) ([]detector.HandLandmarks, error) {
	if a.change != nil {
		if changed, _ := a.change.Changed(frame); !changed {
			return a.lastHands, nil
		}
	}

	d := a.Detector()
	if d == nil {
		return nil, nil
	}
	hands, err := d.Detect(frame)
	if err != nil {
		a.lastHands = nil
		if a.change != nil {
			a.change.Reset()
		}
		return nil, fmt.Errorf("detect hands: %w", err)
	}
	a.lastHands = hands
	return hands, nil
}

// applyPendingClear wipes the canvas if RequestClear was called since the
// last frame.
func (a *App) applyPendingClear() {
	select {
	case <-a.clearCh:
	default:
		return
	}

	a.canvasMu.Lock()
	a.painter.Reset()
	a.canvasMu.Unlock()

	a.outMu.Lock()
	a.stats.Clears++
	a.outMu.Unlock()

	log.Println("Canvas cleared on request")
}

func (a *App) logTransition(g gesture.Gesture) {
	if g == a.prevGesture {
		return
	}
	switch g {
	case gesture.Draw:
		log.Println("Switched to drawing mode")
	case gesture.Clear:
		log.Println("Canvas cleared")
	case gesture.Idle:
		if a.prevGesture == gesture.Draw {
			log.Println("Switched to selection mode")
		}
	}
	a.prevGesture = g
}

// publish stores the composited frame and event for readers and updates
// the session counters.
func (a *App) publish(frame *gocv.Mat, ev Event) {
	var jpeg []byte
	if buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame); err != nil {
		log.Printf("Error encoding frame: %v", err)
	} else {
		jpeg = append([]byte(nil), buf.GetBytes()...)
		buf.Close()
	}

	a.outMu.Lock()
	defer a.outMu.Unlock()

	a.stats.Frames++
	switch ev.Action {
	case paint.ActionStart:
		a.stats.Strokes++
	case paint.ActionStroke:
		a.stats.Segments++
	case paint.ActionClear:
		a.stats.Clears++
	}

	a.lastEvent = ev
	if jpeg != nil {
		a.latestJPEG = jpeg
	}
	if a.config.Window {
		frame.CopyTo(&a.display)
	}
}

func statesToInts(states gesture.FingerStates) []int {
	out := make([]int, len(states))
	for i, s := range states {
		out[i] = int(s)
	}
	return out
}

// Run starts the pipeline and blocks until ctx is cancelled. In window mode
// it shows the composited feed; 'q' returns and 'c' clears the canvas.
// OpenCV windows must be driven from the main goroutine.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}
	defer a.Stop()

	if !a.config.Window {
		<-ctx.Done()
		return nil
	}

	window := gocv.NewWindow(WindowName)
	defer window.Close()

	shown := gocv.NewMat()
	defer shown.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		a.outMu.RLock()
		if !a.display.Empty() {
			a.display.CopyTo(&shown)
		}
		a.outMu.RUnlock()

		if !shown.Empty() {
			window.IMShow(shown)
		}

		switch window.WaitKey(1) {
		case keyQuit:
			log.Println("Quit requested from window")
			return nil
		case keyClear:
			a.RequestClear()
		}
	}
}
