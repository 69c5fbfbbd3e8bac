package platform

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer/vulkan"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

var (
	_ Platform       = (*Window)(nil)
	_ Platform       = (*Headless)(nil)
	_ vulkan.Surface = (*Window)(nil)
)

func TestHeadlessLifecycle(t *testing.T) {
	h := NewHeadless()
	if err := h.Startup("test", 0, 0, 320, 240); err != nil {
		t.Fatalf("startup failed: %s", err)
	}
	if w, hh := h.ClientSize(); w != 320 || hh != 240 {
		t.Errorf("expected 320x240, got %dx%d", w, hh)
	}
	if !h.PumpMessages() || !h.PumpMessages() {
		t.Fatal("expected headless surface to stay open")
	}

	h.RequestClose()
	if h.PumpMessages() {
		t.Error("expected pump to report close after RequestClose")
	}
	if h.Pumps() != 3 {
		t.Errorf("expected 3 pumps, got %d", h.Pumps())
	}
	if err := h.Shutdown(); err != nil {
		t.Errorf("shutdown failed: %s", err)
	}
}

func TestHeadlessRejectsEmptySurface(t *testing.T) {
	if err := NewHeadless().Startup("test", 0, 0, 0, 240); !errors.Is(err, core.ErrDeviceSetup) {
		t.Fatalf("expected ErrDeviceSetup, got %v", err)
	}
}

func TestWindowBeforeStartup(t *testing.T) {
	w := NewWindow()
	if w.PumpMessages() {
		t.Error("expected an unstarted window to report closed")
	}
	if cw, ch := w.ClientSize(); cw != 0 || ch != 0 {
		t.Errorf("expected empty client size, got %dx%d", cw, ch)
	}
	if _, err := w.CreateSurface(nil); !errors.Is(err, core.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
	if err := w.Shutdown(); err != nil {
		t.Errorf("shutdown of an unstarted window failed: %s", err)
	}
}
