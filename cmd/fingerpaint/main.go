package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/fingerpaint/internal/app"
	"github.com/ayusman/fingerpaint/internal/config"
	"github.com/ayusman/fingerpaint/internal/detector"
	"github.com/ayusman/fingerpaint/internal/server"
	"github.com/ayusman/fingerpaint/internal/server/api"
	"github.com/ayusman/fingerpaint/internal/store"
	"github.com/ayusman/fingerpaint/internal/tray"
)

func main() {
	fmt.Println("Fingerpaint - draw in the air with your index finger")

	opt, set, err := parseCLIOpts(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	} else if err != nil {
		os.Exit(2)
	}

	dataDir, err := config.DataDir()
	if err != nil {
		log.Fatalf("Failed to locate data directory: %v", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	configPath := opt.configPath
	if configPath == "" {
		configPath = filepath.Join(dataDir, config.FileName)
	}
	if err := config.InitializeIfMissing(configPath); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	opt.apply(&cfg, set)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid settings: %v", err)
	}

	st, err := store.New(filepath.Join(dataDir, "fingerpaint.db"))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	appCfg, err := app.ConfigFrom(cfg, st)
	if err != nil {
		log.Fatalf("Invalid settings: %v", err)
	}
	if opt.replay != "" {
		// Recorded frames have nothing to do with the camera image.
		appCfg.MotionThreshold = 0
	}
	application, err := app.New(appCfg)
	if err != nil {
		log.Fatalf("Failed to create painter: %v", err)
	}
	defer application.Close()

	if opt.replay != "" {
		replay, err := detector.LoadReplay(opt.replay, true)
		if err != nil {
			log.Fatalf("Failed to load recording: %v", err)
		}
		application.SetDetector(replay)
		log.Printf("Replaying %d recorded frames from %s", replay.Len(), opt.replay)
	}

	webDir := opt.webDir
	if webDir == "" {
		webDir = findWebDir(dataDir)
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Source:    application,
		Defaults: api.Settings{
			DrawColor:      cfg.DrawColor,
			BrushThickness: cfg.BrushThickness,
			Handedness:     cfg.Hand().String(),
		},
	})
	defer srv.Close()

	go func() {
		fmt.Printf("Starting server on %s\n", cfg.ServerAddr)
		if err := srv.ListenAndServe(cfg.ServerAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server failed: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Window {
		if err := application.Run(ctx); err != nil {
			log.Fatalf("Painter failed: %v", err)
		}
		return
	}

	runTray(ctx, cancel, application, viewerURL(cfg.ServerAddr))
}

// runTray starts the pipeline and blocks in the tray menu until Quit or ctx
// is cancelled.
func runTray(ctx context.Context, cancel context.CancelFunc, application *app.App, url string) {
	if err := application.Start(); err != nil {
		log.Fatalf("Failed to start painter: %v", err)
	}
	defer application.Stop()

	t := tray.New()
	t.OnToggle(application.SetEnabled)
	t.OnClear(application.RequestClear)
	t.OnOpenViewer(func() {
		if err := tray.OpenURL(url); err != nil {
			log.Printf("Failed to open viewer: %v", err)
		}
	})
	t.OnQuit(cancel)

	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()

		last := ""
		for {
			select {
			case <-ctx.Done():
				t.Quit()
				return
			case <-ticker.C:
				name := application.LastEvent().Gesture.String()
				if name != last {
					t.SetLastGesture(name)
					last = name
				}
			}
		}
	}()

	t.Run()
}

// viewerURL turns a listen address into a browsable URL.
func viewerURL(addr string) string {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	} else if strings.HasPrefix(host, "0.0.0.0:") {
		host = "localhost" + strings.TrimPrefix(host, "0.0.0.0")
	}
	return "http://" + host + "/"
}

// findWebDir searches for the viewer's static files in common locations:
// "web", "../web", "../../web" and the data directory.
func findWebDir(dataDir string) string {
	candidates := []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
