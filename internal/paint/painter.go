// Package paint owns the drawing canvas and turns gestures into ink strokes.
package paint

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/fingerpaint/internal/gesture"
)

var (
	// ErrInvalidSize is returned when the canvas dimensions are not positive.
	ErrInvalidSize = errors.New("canvas size must be positive")
	// ErrInvalidThickness is returned when the brush thickness is outside [1, MaxThickness].
	ErrInvalidThickness = errors.New("brush thickness must be between 1 and 32767")
)

// Default drawing settings.
const (
	DefaultWidth     = 1280
	DefaultHeight    = 720
	DefaultThickness = 15

	// MaxThickness is the widest line OpenCV will draw.
	MaxThickness = 32767
)

// DefaultColor is the ink colour: red.
var DefaultColor = color.RGBA{R: 255, A: 255}

// Background is the colour of a blank canvas.
var Background = color.RGBA{A: 255}

// Style is the brush used for strokes. It is fixed for the life of a Painter.
type Style struct {
	Color     color.RGBA
	Thickness int
}

// Config describes a canvas.
type Config struct {
	Width  int
	Height int
	Style  Style
}

// DefaultConfig returns a 1280x720 canvas with a 15px red brush.
func DefaultConfig() Config {
	return Config{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		Style:  Style{Color: DefaultColor, Thickness: DefaultThickness},
	}
}

// Validate checks the configuration for values the painter cannot draw with.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, c.Width, c.Height)
	}
	if c.Style.Thickness < 1 || c.Style.Thickness > MaxThickness {
		return fmt.Errorf("%w: got %d", ErrInvalidThickness, c.Style.Thickness)
	}
	return nil
}

// Action reports what an Update did.
type Action int

const (
	// ActionNoHand: no hand in the frame, nothing changed.
	ActionNoHand Action = iota
	// ActionClear: the canvas was wiped and the stroke ended.
	ActionClear
	// ActionStart: a new stroke was anchored at the fingertip; nothing drawn.
	ActionStart
	// ActionStroke: a segment was drawn from the previous point to the fingertip.
	ActionStroke
	// ActionIdle: the stroke ended without drawing.
	ActionIdle
)

var actionNames = [...]string{"no_hand", "clear", "start", "stroke", "idle"}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// MarshalText encodes the action by name.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// cursor is the last drawn point, if a stroke is in progress.
type cursor struct {
	point  image.Point
	active bool
}

// Painter is the stroke controller. It exclusively owns the canvas, the
// stroke cursor and the brush style. It is not safe for concurrent use:
// callers serialise Update, Reset and any reads of the canvas.
type Painter struct {
	canvas gocv.Mat
	cursor cursor
	style  Style
	width  int
	height int
}

// New creates a Painter with a blank canvas.
func New(cfg Config) (*Painter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Painter{
		canvas: blankCanvas(cfg.Width, cfg.Height),
		style:  cfg.Style,
		width:  cfg.Width,
		height: cfg.Height,
	}, nil
}

func blankCanvas(width, height int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(Background.B), float64(Background.G), float64(Background.R), 0),
		height, width, gocv.MatTypeCV8UC3,
	)
}

// Update applies one frame of finger states. tip is the index fingertip in
// canvas pixels and is ignored when states is empty.
//
// Rules are applied in order, first match wins:
//   - no hand: nothing changes, the cursor is kept;
//   - fist: the canvas is wiped and the cursor dropped;
//   - point: the stroke is anchored at tip, or extended to tip; a segment
//     OpenCV refuses to draw re-anchors the stroke instead;
//   - anything else: the cursor is dropped so the next stroke starts fresh.
func (p *Painter) Update(states gesture.FingerStates, tip image.Point) Action {
	switch gesture.Recognize(states) {
	case gesture.None:
		return ActionNoHand

	case gesture.Clear:
		p.Reset()
		return ActionClear

	case gesture.Draw:
		action := ActionStart
		if p.cursor.active {
			if err := gocv.Line(&p.canvas, p.cursor.point, tip, p.style.Color, p.style.Thickness); err == nil {
				action = ActionStroke
			}
		}
		p.cursor = cursor{point: tip, active: true}
		return action

	default:
		p.cursor = cursor{}
		return ActionIdle
	}
}

// Reset wipes the canvas back to the background and ends any stroke.
func (p *Painter) Reset() {
	p.canvas.SetTo(gocv.NewScalar(float64(Background.B), float64(Background.G), float64(Background.R), 0))
	p.cursor = cursor{}
}

// Lift ends any stroke in progress without touching the canvas.
func (p *Painter) Lift() {
	p.cursor = cursor{}
}

// Cursor returns the last drawn point and whether a stroke is in progress.
func (p *Painter) Cursor() (image.Point, bool) {
	return p.cursor.point, p.cursor.active
}

// Drawing reports whether a stroke is in progress.
func (p *Painter) Drawing() bool {
	return p.cursor.active
}

// Canvas returns the canvas. The Mat is owned by the Painter and must not be
// modified or closed by the caller.
func (p *Painter) Canvas() gocv.Mat {
	return p.canvas
}

// Snapshot returns a copy of the canvas that the caller must Close.
func (p *Painter) Snapshot() gocv.Mat {
	return p.canvas.Clone()
}

// Style returns the brush style.
func (p *Painter) Style() Style {
	return p.style
}

// Size returns the canvas dimensions.
func (p *Painter) Size() (width, height int) {
	return p.width, p.height
}

// Close releases the canvas.
func (p *Painter) Close() error {
	return p.canvas.Close()
}
