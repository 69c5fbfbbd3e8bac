package headless

import (
	"fmt"

	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer"
)

// Object kinds as reported by the Recorder.
const (
	KindDevice             = "Device"
	KindContext            = "Context"
	KindSwapChain          = "SwapChain"
	KindTexture2D          = "Texture2D"
	KindRenderTargetView   = "RenderTargetView"
	KindDepthStencilView   = "DepthStencilView"
	KindShaderResourceView = "ShaderResourceView"
	KindRasterizerState    = "RasterizerState"
	KindDepthStencilState  = "DepthStencilState"
	KindSamplerState       = "SamplerState"
	KindVertexShader       = "VertexShader"
	KindPixelShader        = "PixelShader"
	KindInputLayout        = "InputLayout"
	KindBuffer             = "Buffer"
)

/**
 * @brief A CPU-only driver that validates and records every call. Buffers and
 * textures are plain byte slices, nothing is rasterized.
 */
type Driver struct {
	rec *Recorder
}

func NewDriver() *Driver {
	return &Driver{rec: newRecorder()}
}

func (d *Driver) Recorder() *Recorder {
	return d.rec
}

// FailOn makes every following call of op fail with err.
func (d *Driver) FailOn(op string, err error) {
	d.FailAfter(op, 0, err)
}

// FailAfter lets the next n calls of op succeed and fails the rest with err.
func (d *Driver) FailAfter(op string, n int, err error) {
	d.rec.mu.Lock()
	defer d.rec.mu.Unlock()
	d.rec.faults[op] = fault{after: d.rec.attempts[op] + n, err: err}
}

func (d *Driver) ClearFaults() {
	d.rec.mu.Lock()
	defer d.rec.mu.Unlock()
	d.rec.faults = make(map[string]fault)
}

func (d *Driver) CreateDeviceAndSwapChain(surface renderer.Surface, desc *renderer.SwapChainDesc) (renderer.Device, renderer.Context, renderer.SwapChain, error) {
	if err := d.rec.check("CreateDeviceAndSwapChain"); err != nil {
		return nil, nil, nil, err
	}
	if surface == nil || desc == nil {
		return nil, nil, nil, fmt.Errorf("surface and swapchain description are required: %w", core.ErrInvalidUsage)
	}
	if desc.Format != renderer.FormatR8G8B8A8Unorm || desc.BufferCount == 0 {
		return nil, nil, nil, fmt.Errorf("unsupported swapchain %s x%d: %w", desc.Format, desc.BufferCount, core.ErrInvalidUsage)
	}
	width, height := surface.ClientSize()
	if width == 0 || height == 0 {
		return nil, nil, nil, fmt.Errorf("surface has no client area: %w", core.ErrInvalidUsage)
	}

	device := &Device{object: d.rec.track(KindDevice)}
	context := &Context{object: d.rec.track(KindContext)}
	swapchain := &SwapChain{
		object: d.rec.track(KindSwapChain),
		desc: renderer.Texture2DDesc{
			Width:       width,
			Height:      height,
			MipLevels:   1,
			ArraySize:   1,
			Format:      desc.Format,
			SampleCount: 1,
			Usage:       renderer.UsageDefault,
			BindFlags:   renderer.BindRenderTarget,
		},
	}
	core.LogDebug("headless device created (%dx%d)", width, height)
	return device, context, swapchain, nil
}
