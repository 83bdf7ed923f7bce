package api

import (
	"net/http"
	"strings"
)

// Canvas is the part of the painter the canvas endpoints need.
type Canvas interface {
	CanvasPNG() ([]byte, error)
	RequestClear()
}

// CanvasHandler serves the canvas image and accepts clear requests.
type CanvasHandler struct {
	canvas Canvas
}

// NewCanvasHandler creates a new CanvasHandler.
func NewCanvasHandler(c Canvas) *CanvasHandler {
	return &CanvasHandler{canvas: c}
}

// ServeHTTP routes /api/canvas and /api/canvas/clear.
func (h *CanvasHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/canvas")
	path = strings.TrimPrefix(path, "/")

	switch path {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.snapshot(w, r)
	case "clear":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.clear(w, r)
	default:
		http.NotFound(w, r)
	}
}

// snapshot handles GET /api/canvas and returns the canvas as PNG.
func (h *CanvasHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	data, err := h.canvas.CanvasPNG()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Canvas not available")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// clear handles POST /api/canvas/clear. The canvas is wiped before the next
// frame, so the response only acknowledges the request.
func (h *CanvasHandler) clear(w http.ResponseWriter, r *http.Request) {
	h.canvas.RequestClear()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "clear requested"})
}
