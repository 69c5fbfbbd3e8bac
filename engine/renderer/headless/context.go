package headless

import (
	"fmt"

	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer"
)

/** @brief A snapshot of everything bound on the context. */
type State struct {
	RenderTargets     []renderer.RenderTargetView
	DepthStencilView  renderer.DepthStencilView
	DepthStencilState renderer.DepthStencilState
	StencilRef        uint32
	Rasterizer        renderer.RasterizerState
	Viewports         []renderer.Viewport
	Topology          renderer.PrimitiveTopology
	InputLayout       renderer.InputLayout
	VertexBuffer      renderer.Buffer
	VertexStride      uint32
	VertexOffset      uint32
	IndexBuffer       renderer.Buffer
	IndexFormat       renderer.Format
	VertexShader      renderer.VertexShader
	VSConstantBuffers map[uint32]renderer.Buffer
	PixelShader       renderer.PixelShader
	PSConstantBuffers map[uint32]renderer.Buffer
	PSResources       map[uint32]renderer.ShaderResourceView
	PSSamplers        map[uint32]renderer.SamplerState
	LastClearColour   [4]float32
}

type Context struct {
	object
	state State
}

func (c *Context) State() State {
	return c.state
}

func (c *Context) ClearRenderTargetView(rtv renderer.RenderTargetView, color [4]float32) {
	c.rec.record("ClearRenderTargetView")
	c.state.LastClearColour = color
}

func (c *Context) ClearDepthStencilView(dsv renderer.DepthStencilView, flags renderer.ClearFlag, depth float32, stencil uint8) {
	c.rec.record("ClearDepthStencilView")
}

func (c *Context) OMSetRenderTargets(rtvs []renderer.RenderTargetView, dsv renderer.DepthStencilView) {
	c.rec.record("OMSetRenderTargets")
	c.state.RenderTargets = append([]renderer.RenderTargetView(nil), rtvs...)
	c.state.DepthStencilView = dsv
}

func (c *Context) OMSetDepthStencilState(state renderer.DepthStencilState, stencilRef uint32) {
	c.rec.record("OMSetDepthStencilState")
	c.state.DepthStencilState = state
	c.state.StencilRef = stencilRef
}

func (c *Context) RSSetState(state renderer.RasterizerState) {
	c.rec.record("RSSetState")
	c.state.Rasterizer = state
}

func (c *Context) RSSetViewports(viewports []renderer.Viewport) {
	c.rec.record("RSSetViewports")
	c.state.Viewports = append([]renderer.Viewport(nil), viewports...)
}

func (c *Context) IASetPrimitiveTopology(topology renderer.PrimitiveTopology) {
	c.rec.record("IASetPrimitiveTopology")
	c.state.Topology = topology
}

func (c *Context) IASetInputLayout(layout renderer.InputLayout) {
	c.rec.record("IASetInputLayout")
	c.state.InputLayout = layout
}

func (c *Context) IASetVertexBuffers(startSlot uint32, buffers []renderer.Buffer, strides, offsets []uint32) {
	c.rec.record("IASetVertexBuffers")
	if startSlot != 0 || len(buffers) == 0 {
		return
	}
	c.state.VertexBuffer = buffers[0]
	if len(strides) > 0 {
		c.state.VertexStride = strides[0]
	}
	if len(offsets) > 0 {
		c.state.VertexOffset = offsets[0]
	}
}

func (c *Context) IASetIndexBuffer(buffer renderer.Buffer, format renderer.Format, offset uint32) {
	c.rec.record("IASetIndexBuffer")
	c.state.IndexBuffer = buffer
	c.state.IndexFormat = format
}

func (c *Context) VSSetShader(shader renderer.VertexShader) {
	c.rec.record("VSSetShader")
	c.state.VertexShader = shader
}

func (c *Context) VSSetConstantBuffers(startSlot uint32, buffers []renderer.Buffer) {
	c.rec.record("VSSetConstantBuffers")
	if c.state.VSConstantBuffers == nil {
		c.state.VSConstantBuffers = make(map[uint32]renderer.Buffer)
	}
	for i, b := range buffers {
		c.state.VSConstantBuffers[startSlot+uint32(i)] = b
	}
}

func (c *Context) PSSetShader(shader renderer.PixelShader) {
	c.rec.record("PSSetShader")
	c.state.PixelShader = shader
}

func (c *Context) PSSetConstantBuffers(startSlot uint32, buffers []renderer.Buffer) {
	c.rec.record("PSSetConstantBuffers")
	if c.state.PSConstantBuffers == nil {
		c.state.PSConstantBuffers = make(map[uint32]renderer.Buffer)
	}
	for i, b := range buffers {
		c.state.PSConstantBuffers[startSlot+uint32(i)] = b
	}
}

func (c *Context) PSSetShaderResources(startSlot uint32, views []renderer.ShaderResourceView) {
	c.rec.record("PSSetShaderResources")
	if c.state.PSResources == nil {
		c.state.PSResources = make(map[uint32]renderer.ShaderResourceView)
	}
	for i, v := range views {
		c.state.PSResources[startSlot+uint32(i)] = v
	}
}

func (c *Context) PSSetSamplers(startSlot uint32, samplers []renderer.SamplerState) {
	c.rec.record("PSSetSamplers")
	if c.state.PSSamplers == nil {
		c.state.PSSamplers = make(map[uint32]renderer.SamplerState)
	}
	for i, s := range samplers {
		c.state.PSSamplers[startSlot+uint32(i)] = s
	}
}

func asBuffer(b renderer.Buffer) (*Buffer, error) {
	buf, ok := b.(*Buffer)
	if !ok || buf == nil {
		return nil, fmt.Errorf("buffer was not created by this driver: %w", core.ErrInvalidUsage)
	}
	if buf.Released() {
		return nil, fmt.Errorf("buffer %d: %w", buf.id, core.ErrResourceReleased)
	}
	return buf, nil
}

func (c *Context) Map(buffer renderer.Buffer, mapType renderer.MapType) ([]byte, error) {
	c.rec.record("Map")
	if err := c.rec.check("Map"); err != nil {
		return nil, err
	}
	buf, err := asBuffer(buffer)
	if err != nil {
		return nil, err
	}
	if buf.mapped {
		return nil, fmt.Errorf("buffer %d: %w", buf.id, core.ErrAlreadyMapped)
	}

	switch mapType {
	case renderer.MapWriteDiscard:
		if buf.desc.Usage != renderer.UsageDynamic || buf.desc.CPUAccessFlags&renderer.CPUAccessWrite == 0 {
			return nil, fmt.Errorf("write-discard on buffer %d: %w", buf.id, core.ErrInvalidUsage)
		}
		clear(buf.data)
	case renderer.MapRead:
		if buf.desc.CPUAccessFlags&renderer.CPUAccessRead == 0 {
			return nil, fmt.Errorf("read on buffer %d: %w", buf.id, core.ErrInvalidUsage)
		}
	default:
		return nil, fmt.Errorf("map type %d: %w", mapType, core.ErrInvalidUsage)
	}

	buf.mapped = true
	return buf.data, nil
}

func (c *Context) Unmap(buffer renderer.Buffer) error {
	c.rec.record("Unmap")
	buf, err := asBuffer(buffer)
	if err != nil {
		return err
	}
	if !buf.mapped {
		return fmt.Errorf("buffer %d: %w", buf.id, core.ErrNotMapped)
	}
	buf.mapped = false
	return nil
}

func (c *Context) DrawIndexed(indexCount, startIndexLocation uint32, baseVertexLocation int32) error {
	c.rec.record("DrawIndexed")
	if err := c.rec.check("DrawIndexed"); err != nil {
		return err
	}
	s := &c.state
	switch {
	case len(s.RenderTargets) == 0:
		return fmt.Errorf("draw without render target: %w", core.ErrInvalidUsage)
	case s.VertexShader == nil || s.PixelShader == nil:
		return fmt.Errorf("draw without shaders: %w", core.ErrInvalidUsage)
	case s.InputLayout == nil:
		return fmt.Errorf("draw without input layout: %w", core.ErrInvalidUsage)
	case s.Topology != renderer.TopologyTriangleList:
		return fmt.Errorf("draw without triangle list topology: %w", core.ErrInvalidUsage)
	case s.VertexBuffer == nil || s.IndexBuffer == nil:
		return fmt.Errorf("draw without geometry: %w", core.ErrInvalidUsage)
	}

	bound := []renderer.Buffer{s.VertexBuffer, s.IndexBuffer}
	for _, b := range s.VSConstantBuffers {
		bound = append(bound, b)
	}
	for _, b := range s.PSConstantBuffers {
		bound = append(bound, b)
	}
	for _, b := range bound {
		buf, err := asBuffer(b)
		if err != nil {
			return err
		}
		if buf.mapped {
			return fmt.Errorf("draw with mapped buffer %d: %w", buf.id, core.ErrAlreadyMapped)
		}
	}
	for _, v := range s.PSResources {
		if view, ok := v.(*View); ok && view.Released() {
			return fmt.Errorf("draw with released shader resource: %w", core.ErrResourceReleased)
		}
	}

	ib := s.IndexBuffer.Desc()
	if uint64(startIndexLocation+indexCount)*uint64(renderer.FormatSize(s.IndexFormat)) > uint64(ib.ByteWidth) {
		return fmt.Errorf("draw of %d indices from %d overruns index buffer: %w", indexCount, startIndexLocation, core.ErrInvalidUsage)
	}
	c.rec.draw(DrawCall{IndexCount: indexCount, StartIndex: startIndexLocation, BaseVertex: baseVertexLocation})
	return nil
}
