package platform

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

/**
 * @brief The window collaborator the engine drives: a message pump, a client
 * area the renderer presents into, and a way to ask it to close.
 */
type Platform interface {
	renderer.Surface
	Startup(title string, x, y int32, width, height uint32) error
	PumpMessages() bool
	RequestClose()
	Shutdown() error
}

// Window is a glfw window without a client API, ready for a Vulkan surface.
type Window struct {
	window  *glfw.Window
	closing atomic.Bool
	started bool
}

func NewWindow() *Window {
	return &Window{}
}

func (p *Window) Startup(title string, x, y int32, width, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return fmt.Errorf("%w: glfw: %w", core.ErrDeviceSetup, err)
	}
	p.started = true

	if !glfw.VulkanSupported() {
		glfw.Terminate()
		p.started = false
		return fmt.Errorf("%w: glfw reports no Vulkan loader", core.ErrDeviceSetup)
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), title, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		glfw.Terminate()
		p.started = false
		return fmt.Errorf("%w: window: %w", core.ErrDeviceSetup, err)
	}
	p.window = window

	p.window.SetKeyCallback(p.keyCallback)
	p.window.SetFramebufferSizeCallback(framebufferSizeCallback)
	p.window.SetPos(int(x), int(y))
	p.window.Show()

	fw, fh := p.window.GetFramebufferSize()
	core.LogInfo("window %q created with a %dx%d framebuffer", title, fw, fh)
	return nil
}

// PumpMessages processes pending events and reports whether the window stays open.
func (p *Window) PumpMessages() bool {
	if p.window == nil {
		return false
	}
	glfw.PollEvents()
	if p.closing.Load() {
		p.window.SetShouldClose(true)
	}
	return !p.window.ShouldClose()
}

// RequestClose may be called from any goroutine; the next pump observes it.
func (p *Window) RequestClose() {
	p.closing.Store(true)
}

// ClientSize is the framebuffer size in pixels, zero while minimized.
func (p *Window) ClientSize() (uint32, uint32) {
	if p.window == nil {
		return 0, 0
	}
	w, h := p.window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

func (p *Window) RequiredInstanceExtensions() []string {
	if p.window == nil {
		return nil
	}
	return p.window.GetRequiredInstanceExtensions()
}

func (p *Window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	if p.window == nil {
		return nil, core.ErrNotInitialized
	}
	surface, err := p.window.CreateWindowSurface(instance, nil)
	if err != nil {
		return nil, err
	}
	return vk.SurfaceFromPointer(surface), nil
}

func (p *Window) Shutdown() error {
	if p.window != nil {
		p.window.Destroy()
		p.window = nil
	}
	if p.started {
		glfw.Terminate()
		p.started = false
	}
	return nil
}

func (p *Window) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyEscape && action == glfw.Press {
		core.LogInfo("escape pressed, shutting down")
		p.RequestClose()
	}
}

func framebufferSizeCallback(w *glfw.Window, width, height int) {
	core.LogDebug("framebuffer resized to %dx%d", width, height)
}
