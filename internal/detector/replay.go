package detector

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// ReplayDetector plays back recorded detection results. The recording holds
// one MediaPipe service reply per line, so a session captured from the
// service can be replayed without a camera or Python.
type ReplayDetector struct {
	mu     sync.Mutex
	frames [][]HandLandmarks
	index  int
	loop   bool
}

// NewReplayDetector reads a recording from r. Blank lines are skipped.
func NewReplayDetector(r io.Reader, loop bool) (*ReplayDetector, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	d := &ReplayDetector{loop: loop}
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		hands, err := parseResponse(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		d.frames = append(d.frames, hands)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return d, nil
}

// LoadReplay opens a recording file.
func LoadReplay(path string, loop bool) (*ReplayDetector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()
	return NewReplayDetector(f, loop)
}

// Detect returns the next recorded frame. The frame argument is ignored.
// Once a non-looping recording is exhausted no hands are reported.
func (d *ReplayDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.index >= len(d.frames) {
		if !d.loop || len(d.frames) == 0 {
			return nil, nil
		}
		d.index = 0
	}

	hands := d.frames[d.index]
	d.index++
	return hands, nil
}

// Len returns the number of recorded frames.
func (d *ReplayDetector) Len() int {
	return len(d.frames)
}

// Done reports whether a non-looping recording has been fully played.
func (d *ReplayDetector) Done() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.loop && d.index >= len(d.frames)
}

// Close is a no-op.
func (d *ReplayDetector) Close() error {
	return nil
}
