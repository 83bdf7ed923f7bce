package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/fingerpaint/internal/config"
)

func TestViewerURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":8080", "http://localhost:8080/"},
		{"0.0.0.0:9000", "http://localhost:9000/"},
		{"127.0.0.1:8080", "http://127.0.0.1:8080/"},
	}

	for _, tt := range tests {
		if got := viewerURL(tt.addr); got != tt.want {
			t.Errorf("viewerURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestParseCLIOpts_OnlySetFlagsOverride(t *testing.T) {
	opt, set, err := parseCLIOpts([]string{"-window", "-addr", ":9090"})
	if err != nil {
		t.Fatalf("parseCLIOpts() error = %v", err)
	}

	cfg := config.Default()
	cfg.CameraID = 2
	opt.apply(&cfg, set)

	if !cfg.Window {
		t.Error("-window should enable window mode")
	}
	if cfg.ServerAddr != ":9090" {
		t.Errorf("ServerAddr = %q, want :9090", cfg.ServerAddr)
	}
	if cfg.CameraID != 2 {
		t.Errorf("CameraID = %d, an unset flag must not override the file", cfg.CameraID)
	}
}

func TestParseCLIOpts_BadFlag(t *testing.T) {
	if _, _, err := parseCLIOpts([]string{"-nope"}); err == nil {
		t.Error("expected an error for an unknown flag")
	}
}

func TestFindWebDir(t *testing.T) {
	dataDir := t.TempDir()
	web := filepath.Join(dataDir, "web")
	if err := os.Mkdir(web, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got := findWebDir(dataDir)
	// A web directory relative to the working directory takes precedence
	if got == "" {
		t.Fatal("findWebDir() found nothing")
	}
}
