package tray

import (
	"reflect"
	"testing"
)

func TestTray_Toggle(t *testing.T) {
	tr := New()
	if !tr.IsEnabled() {
		t.Fatal("new tray should start enabled")
	}

	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	tr.handleToggle()
	tr.handleToggle()

	if !reflect.DeepEqual(got, []bool{false, true}) {
		t.Errorf("toggle callbacks = %v, want [false true]", got)
	}
	if !tr.IsEnabled() {
		t.Error("two toggles should leave the tray enabled")
	}
}

func TestTray_Callbacks(t *testing.T) {
	tr := New()

	clears, views := 0, 0
	tr.OnClear(func() { clears++ })
	tr.OnOpenViewer(func() { views++ })

	tr.call(tr.clearCallback())
	tr.call(tr.viewerCallback())
	tr.call(tr.viewerCallback())

	if clears != 1 || views != 2 {
		t.Errorf("clears = %d, views = %d; want 1 and 2", clears, views)
	}

	// Unset callbacks are ignored
	New().call(New().clearCallback())
}

func TestTray_SetLastGestureBeforeRun(t *testing.T) {
	tr := New()
	tr.SetLastGesture("draw")
}

func TestLastGestureTitle(t *testing.T) {
	if got := lastGestureTitle(""); got != "Last: none" {
		t.Errorf("lastGestureTitle(\"\") = %q", got)
	}
	if got := lastGestureTitle("clear"); got != "Last: clear" {
		t.Errorf("lastGestureTitle(clear) = %q", got)
	}
}

func TestOpenCommand(t *testing.T) {
	tests := []struct {
		goos string
		name string
	}{
		{"darwin", "open"},
		{"linux", "xdg-open"},
		{"freebsd", "xdg-open"},
		{"windows", "rundll32"},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args := openCommand(tt.goos, "http://localhost:8080")
			if name != tt.name {
				t.Errorf("command = %q, want %q", name, tt.name)
			}
			if args[len(args)-1] != "http://localhost:8080" {
				t.Errorf("args = %v, want the url last", args)
			}
		})
	}
}
