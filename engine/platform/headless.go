package platform

import (
	"fmt"
	"sync/atomic"

	"github.com/spaghettifunk/quadcore/engine/core"
)

// Headless is a window-less surface of a fixed size for tests and CI runs.
type Headless struct {
	width   uint32
	height  uint32
	closing atomic.Bool
	pumps   uint64
}

func NewHeadless() *Headless {
	return &Headless{}
}

func (h *Headless) Startup(title string, x, y int32, width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: headless surface of %dx%d", core.ErrDeviceSetup, width, height)
	}
	h.width = width
	h.height = height
	core.LogInfo("headless surface %q of %dx%d", title, width, height)
	return nil
}

func (h *Headless) PumpMessages() bool {
	h.pumps++
	return !h.closing.Load()
}

func (h *Headless) RequestClose() {
	h.closing.Store(true)
}

func (h *Headless) ClientSize() (uint32, uint32) {
	return h.width, h.height
}

// Pumps counts PumpMessages calls.
func (h *Headless) Pumps() uint64 {
	return h.pumps
}

func (h *Headless) Shutdown() error {
	return nil
}
