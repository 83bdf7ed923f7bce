package main

import (
	"flag"

	"github.com/ayusman/fingerpaint/internal/config"
)

type CLIOpts struct {
	configPath string
	window     bool
	addr       string
	webDir     string
	camera     int
	hand       string
	replay     string
}

func parseCLIOpts(args []string) (CLIOpts, map[string]bool, error) {
	var opt CLIOpts
	fs := flag.NewFlagSet("fingerpaint", flag.ContinueOnError)
	fs.StringVar(&opt.configPath, "config", "", "Path to config.toml (default ~/.fingerpaint/config.toml)")
	fs.BoolVar(&opt.window, "window", false, "Show the painter in an OpenCV window instead of the tray")
	fs.StringVar(&opt.addr, "addr", "", "HTTP listen address for the viewer and API")
	fs.StringVar(&opt.webDir, "web", "", "Directory with the viewer's static files")
	fs.IntVar(&opt.camera, "camera", 0, "Camera device ID")
	fs.StringVar(&opt.hand, "hand", "", "Drawing hand: right or left")
	fs.StringVar(&opt.replay, "replay", "", "Play back recorded landmarks (JSON lines) instead of running MediaPipe")
	if err := fs.Parse(args); err != nil {
		return CLIOpts{}, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return opt, set, nil
}

// apply overrides file settings with flags given on the command line.
func (opt CLIOpts) apply(cfg *config.Config, set map[string]bool) {
	if set["window"] {
		cfg.Window = opt.window
	}
	if set["addr"] {
		cfg.ServerAddr = opt.addr
	}
	if set["camera"] {
		cfg.CameraID = opt.camera
	}
	if set["hand"] {
		cfg.Handedness = opt.hand
	}
}
