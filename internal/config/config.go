// Package config loads and saves the painter's TOML configuration file.
package config

import (
	"bytes"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ayusman/fingerpaint/internal/detector"
	"github.com/ayusman/fingerpaint/internal/gesture"
	"github.com/ayusman/fingerpaint/internal/paint"
)

// FileName is the name of the configuration file inside the data directory.
const FileName = "config.toml"

// Config holds every user-tunable setting.
type Config struct {
	CameraID int
	Width    int
	Height   int
	FPS      int
	Mirror   bool

	Handedness     string
	DrawColor      string
	BrushThickness int

	MinDetectionConfidence float64
	MinTrackingConfidence  float64

	// MotionThreshold is the percentage of changed pixels below which a
	// frame reuses the previous detection. 0 detects on every frame.
	MotionThreshold float64

	ServerAddr string
	Window     bool
}

// Default returns the settings the painter ships with.
func Default() Config {
	return Config{
		CameraID: 0,
		Width:    paint.DefaultWidth,
		Height:   paint.DefaultHeight,
		FPS:      30,
		Mirror:   true,

		Handedness:     "right",
		DrawColor:      "#ff0000",
		BrushThickness: paint.DefaultThickness,

		MinDetectionConfidence: 0.85,
		MinTrackingConfidence:  0.7,

		MotionThreshold: 0.5,

		ServerAddr: ":8080",
		Window:     false,
	}
}

// DataDir returns ~/.fingerpaint.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".fingerpaint"), nil
}

// InitializeIfMissing writes the default configuration to path unless a
// file already exists there.
func InitializeIfMissing(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	log.Println("Initializing config")
	return Save(path, Default())
}

// Load reads path on top of the defaults, so keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to path as TOML.
func Save(path string, cfg Config) error {
	var buffer bytes.Buffer
	if err := toml.NewEncoder(&buffer).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, buffer.Bytes(), 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate rejects settings the painter cannot start with.
func (c Config) Validate() error {
	if _, err := c.Paint(); err != nil {
		return err
	}
	if _, err := gesture.ParseHandedness(c.Handedness); err != nil {
		return err
	}
	if err := c.Detector().Validate(); err != nil {
		return err
	}
	if c.MotionThreshold < 0 || c.MotionThreshold > 100 {
		return fmt.Errorf("motion threshold must be within [0, 100], got %v", c.MotionThreshold)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	return nil
}

// Paint returns the canvas configuration.
func (c Config) Paint() (paint.Config, error) {
	ink, err := ParseColor(c.DrawColor)
	if err != nil {
		return paint.Config{}, err
	}
	pc := paint.Config{
		Width:  c.Width,
		Height: c.Height,
		Style:  paint.Style{Color: ink, Thickness: c.BrushThickness},
	}
	if err := pc.Validate(); err != nil {
		return paint.Config{}, err
	}
	return pc, nil
}

// Hand returns the configured handedness, defaulting to right.
func (c Config) Hand() gesture.Handedness {
	h, err := gesture.ParseHandedness(c.Handedness)
	if err != nil {
		return gesture.HandRight
	}
	return h
}

// Detector returns the hand detection settings.
func (c Config) Detector() detector.Config {
	dc := detector.DefaultConfig()
	if c.MinDetectionConfidence > 0 {
		dc.MinConfidence = c.MinDetectionConfidence
	}
	if c.MinTrackingConfidence > 0 {
		dc.MinTrackingConf = c.MinTrackingConfidence
	}
	return dc
}

// ParseColor parses "#rrggbb" (the leading # is optional).
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// FormatColor renders c as "#rrggbb".
func FormatColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
