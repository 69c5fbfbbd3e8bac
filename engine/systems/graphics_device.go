package systems

import (
	"fmt"

	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer"
)

type GraphicsDeviceConfig struct {
	/** @brief Present waits for the vertical blank when set. */
	VSync bool
}

/**
 * @brief Owns the device, the immediate context, the swapchain and the
 * output-merger objects built from them.
 */
type GraphicsDevice struct {
	config *GraphicsDeviceConfig
	driver renderer.Driver
	arena  *renderer.Arena

	Device            renderer.Device
	Context           renderer.Context
	SwapChain         renderer.SwapChain
	RenderTargetView  renderer.RenderTargetView
	RasterizerState   renderer.RasterizerState
	DepthStencilView  renderer.DepthStencilView
	DepthStencilState renderer.DepthStencilState
	Viewport          renderer.Viewport

	width  uint32
	height uint32
}

func NewGraphicsDevice(config *GraphicsDeviceConfig, driver renderer.Driver, arena *renderer.Arena) (*GraphicsDevice, error) {
	if driver == nil || arena == nil {
		err := fmt.Errorf("func NewGraphicsDevice - driver and arena are required")
		core.LogError(err.Error())
		return nil, err
	}
	return &GraphicsDevice{
		config: config,
		driver: driver,
		arena:  arena,
	}, nil
}

func setupError(step string, err error) error {
	e := fmt.Errorf("%w: %s: %w", core.ErrDeviceSetup, step, err)
	core.LogError(e.Error())
	return e
}

/**
 * @brief Creates every device level object in order. The first failure is
 * returned and nothing after it is created.
 */
func (gd *GraphicsDevice) Initialize(surface renderer.Surface) error {
	gd.width, gd.height = surface.ClientSize()

	device, context, swapchain, err := gd.driver.CreateDeviceAndSwapChain(surface, &renderer.SwapChainDesc{
		Width:       gd.width,
		Height:      gd.height,
		Format:      renderer.FormatR8G8B8A8Unorm,
		BufferCount: 1,
		SampleCount: 1,
		Windowed:    true,
		SwapEffect:  renderer.SwapEffectDiscard,
		VSync:       gd.config.VSync,
	})
	if err != nil {
		return setupError("device and swapchain", err)
	}
	gd.Device = device
	gd.arena.Track("device", device)
	gd.Context = context
	gd.arena.Track("immediate context", context)
	gd.SwapChain = swapchain
	gd.arena.Track("swapchain", swapchain)

	backBuffer, err := gd.SwapChain.GetBuffer(0)
	if err != nil {
		return setupError("back buffer", err)
	}
	rtv, err := gd.Device.CreateRenderTargetView(backBuffer)
	// the view keeps what it needs, the back buffer reference is dropped either way
	backBuffer.Release()
	if err != nil {
		return setupError("render target view", err)
	}
	gd.RenderTargetView = rtv
	gd.arena.Track("back buffer render target view", rtv)

	rs, err := gd.Device.CreateRasterizerState(&renderer.RasterizerDesc{
		FillMode:              renderer.FillSolid,
		CullMode:              renderer.CullBack,
		FrontCounterClockwise: false,
		DepthClipEnable:       false,
		ScissorEnable:         false,
		MultisampleEnable:     true,
		AntialiasedLineEnable: true,
	})
	if err != nil {
		return setupError("rasterizer state", err)
	}
	gd.RasterizerState = rs
	gd.arena.Track("rasterizer state", rs)

	depthBuffer, err := gd.Device.CreateTexture2D(&renderer.Texture2DDesc{
		Width:       gd.width,
		Height:      gd.height,
		MipLevels:   1,
		ArraySize:   1,
		Format:      renderer.FormatD24UnormS8Uint,
		SampleCount: 1,
		Usage:       renderer.UsageDefault,
		BindFlags:   renderer.BindDepthStencil,
	}, nil)
	if err != nil {
		return setupError("depth stencil buffer", err)
	}
	gd.arena.Track("depth stencil buffer", depthBuffer)

	dsv, err := gd.Device.CreateDepthStencilView(depthBuffer)
	if err != nil {
		return setupError("depth stencil view", err)
	}
	gd.DepthStencilView = dsv
	gd.arena.Track("depth stencil view", dsv)

	dss, err := gd.Device.CreateDepthStencilState(&renderer.DepthStencilDesc{
		DepthEnable:      true,
		DepthWriteMask:   renderer.DepthWriteMaskAll,
		DepthFunc:        renderer.ComparisonLess,
		StencilEnable:    true,
		StencilReadMask:  0xFF,
		StencilWriteMask: 0xFF,
		FrontFace: renderer.DepthStencilOpDesc{
			StencilFailOp:      renderer.StencilOpKeep,
			StencilDepthFailOp: renderer.StencilOpIncr,
			StencilPassOp:      renderer.StencilOpKeep,
			StencilFunc:        renderer.ComparisonAlways,
		},
		BackFace: renderer.DepthStencilOpDesc{
			StencilFailOp:      renderer.StencilOpKeep,
			StencilDepthFailOp: renderer.StencilOpDecr,
			StencilPassOp:      renderer.StencilOpKeep,
			StencilFunc:        renderer.ComparisonAlways,
		},
	})
	if err != nil {
		return setupError("depth stencil state", err)
	}
	gd.DepthStencilState = dss
	gd.arena.Track("depth stencil state", dss)

	gd.Viewport = renderer.Viewport{
		TopLeftX: 0,
		TopLeftY: 0,
		Width:    float32(gd.width),
		Height:   float32(gd.height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}

	core.LogInfo("graphics device initialized (%dx%d, vsync %t)", gd.width, gd.height, gd.config.VSync)
	return nil
}

func (gd *GraphicsDevice) ClientSize() (uint32, uint32) {
	return gd.width, gd.height
}

func (gd *GraphicsDevice) Arena() *renderer.Arena {
	return gd.arena
}

// Clear resets the back buffer to colour and depth/stencil to 1/0.
func (gd *GraphicsDevice) Clear(colour [4]float32) {
	gd.Context.ClearRenderTargetView(gd.RenderTargetView, colour)
	gd.Context.ClearDepthStencilView(gd.DepthStencilView, renderer.ClearDepth|renderer.ClearStencil, 1.0, 0)
}

// BindOutput binds render target, depth-stencil, rasterizer and viewport.
func (gd *GraphicsDevice) BindOutput() {
	gd.Context.OMSetRenderTargets([]renderer.RenderTargetView{gd.RenderTargetView}, gd.DepthStencilView)
	gd.Context.OMSetDepthStencilState(gd.DepthStencilState, 0)
	gd.Context.RSSetState(gd.RasterizerState)
	gd.Context.RSSetViewports([]renderer.Viewport{gd.Viewport})
}

func (gd *GraphicsDevice) Present() error {
	var syncInterval uint32
	if gd.config.VSync {
		syncInterval = 1
	}
	return gd.SwapChain.Present(syncInterval)
}

// Release frees every tracked GPU object, newest first.
func (gd *GraphicsDevice) Release() {
	gd.arena.ReleaseAll()
	gd.Device = nil
	gd.Context = nil
	gd.SwapChain = nil
}
