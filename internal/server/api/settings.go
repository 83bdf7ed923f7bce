package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ayusman/fingerpaint/internal/config"
	"github.com/ayusman/fingerpaint/internal/gesture"
	"github.com/ayusman/fingerpaint/internal/paint"
	"github.com/ayusman/fingerpaint/internal/store"
)

// Settings are the style values a user may override.
type Settings struct {
	DrawColor      string `json:"draw_color"`
	BrushThickness int    `json:"brush_thickness"`
	Handedness     string `json:"handedness"`
}

// SettingsHandler reads and writes persisted style overrides. Changes are
// picked up the next time the painter starts.
type SettingsHandler struct {
	store    *store.Store
	defaults Settings
}

// NewSettingsHandler creates a SettingsHandler. defaults are reported for
// keys that have no stored override.
func NewSettingsHandler(s *store.Store, defaults Settings) *SettingsHandler {
	return &SettingsHandler{store: s, defaults: defaults}
}

// ServeHTTP implements the http.Handler interface.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.update(w, r)
	case http.MethodDelete:
		h.reset(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type updateSettingsRequest struct {
	DrawColor      *string `json:"draw_color"`
	BrushThickness *int    `json:"brush_thickness"`
	Handedness     *string `json:"handedness"`
}

type settingsResponse struct {
	Settings
	RestartRequired bool `json:"restart_required"`
}

// effective merges stored overrides over the defaults.
func (h *SettingsHandler) effective() (Settings, error) {
	stored, err := h.store.Settings().All()
	if err != nil {
		return Settings{}, err
	}

	s := h.defaults
	if v, ok := stored[store.SettingDrawColor]; ok {
		s.DrawColor = v
	}
	if v, ok := stored[store.SettingBrushThickness]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			s.BrushThickness = n
		}
	}
	if v, ok := stored[store.SettingHandedness]; ok {
		s.Handedness = v
	}
	return s, nil
}

// get handles GET /api/settings.
func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	s, err := h.effective()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Settings: s})
}

// update handles PUT /api/settings. Only the fields present in the body
// are changed; every field is validated before anything is stored.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	values := make(map[string]string)

	if req.DrawColor != nil {
		c, err := config.ParseColor(*req.DrawColor)
		if err != nil {
			writeError(w, http.StatusBadRequest, "draw_color must be #rrggbb")
			return
		}
		values[store.SettingDrawColor] = config.FormatColor(c)
	}

	if req.BrushThickness != nil {
		if *req.BrushThickness < 1 || *req.BrushThickness > paint.MaxThickness {
			writeError(w, http.StatusBadRequest, "brush_thickness must be between 1 and 32767")
			return
		}
		values[store.SettingBrushThickness] = strconv.Itoa(*req.BrushThickness)
	}

	if req.Handedness != nil {
		hand, err := gesture.ParseHandedness(*req.Handedness)
		if err != nil {
			writeError(w, http.StatusBadRequest, "handedness must be left or right")
			return
		}
		values[store.SettingHandedness] = hand.String()
	}

	if len(values) == 0 {
		writeError(w, http.StatusBadRequest, "No settings provided")
		return
	}

	if err := h.store.Settings().SetAll(values); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	s, err := h.effective()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Settings: s, RestartRequired: true})
}

// reset handles DELETE /api/settings and drops every override.
func (h *SettingsHandler) reset(w http.ResponseWriter, r *http.Request) {
	for _, key := range []string{store.SettingDrawColor, store.SettingBrushThickness, store.SettingHandedness} {
		if err := h.store.Settings().Delete(key); err != nil && !errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "Failed to reset settings")
			return
		}
	}
	writeJSON(w, http.StatusOK, settingsResponse{Settings: h.defaults, RestartRequired: true})
}
