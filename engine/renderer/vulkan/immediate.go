package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer"
)

/**
 * @brief Records one frame into a single command buffer. The frame begins
 * with the first clear or draw and ends with Present.
 */
type ImmediateContext struct {
	base

	commandBuffer  *VulkanCommandBuffer
	descriptors    *VulkanDescriptorSets
	pipelineLayout vk.PipelineLayout
	pipelines      map[pipelineKey]*VulkanPipeline

	frameBegun   bool
	inRenderPass bool
	imageIndex   uint32
	// first failure of a call that cannot return one, reported by the next
	// draw or present
	deferred error

	rtv          *RenderTargetView
	dsv          *DepthStencilView
	clearedDSV   *DepthStencilView
	depthStencil *DepthStencilState
	stencilRef   uint32
	rasterizer   *RasterizerState
	viewport     *renderer.Viewport
	topology     renderer.PrimitiveTopology
	inputLayout  *InputLayout
	vertexBuffer *Buffer
	vertexOffset uint32
	indexBuffer  *Buffer
	indexOffset  uint32
	vertexShader *VertexShader
	pixelShader  *PixelShader
	uniforms     map[uint32]*Buffer
	texture      *ShaderResourceView
	sampler      *SamplerState
}

func newImmediateContext(context *VulkanContext) (*ImmediateContext, error) {
	ic := &ImmediateContext{
		base:      base{ctx: context},
		pipelines: make(map[pipelineKey]*VulkanPipeline),
		uniforms:  make(map[uint32]*Buffer),
	}

	cb, err := NewVulkanCommandBuffer(context, context.Device.GraphicsCommandPool, true)
	if err != nil {
		return nil, err
	}
	ic.commandBuffer = cb

	// signalled so the first frame does not wait
	fence, err := NewFence(context, true)
	if err != nil {
		ic.destroy()
		return nil, err
	}
	context.frameFence = fence

	descriptors, err := DescriptorSetsCreate(context)
	if err != nil {
		ic.destroy()
		return nil, err
	}
	ic.descriptors = descriptors

	layout, err := PipelineLayoutCreate(context, []vk.DescriptorSetLayout{descriptors.Layout})
	if err != nil {
		ic.destroy()
		return nil, err
	}
	ic.pipelineLayout = layout
	return ic, nil
}

func (c *ImmediateContext) fail(err error) {
	if c.deferred == nil {
		c.deferred = err
	}
}

func (c *ImmediateContext) takeDeferred() error {
	err := c.deferred
	c.deferred = nil
	return err
}

/**
 * @brief Waits for the previous frame, acquires the next swapchain image and
 * starts recording. An out of date swapchain is rebuilt and acquired again
 * once.
 */
func (c *ImmediateContext) beginFrame() error {
	if c.frameBegun {
		return nil
	}
	ctx := c.ctx
	if err := ctx.frameFence.Wait(ctx, noTimeout); err != nil {
		return err
	}
	ctx.frameInFlight = false

	sc := ctx.Swapchain
	index, result := sc.AcquireNextImageIndex(ctx, noTimeout)
	if result == vk.ErrorOutOfDate {
		if err := sc.Recreate(ctx, sc.VSync); err != nil {
			return err
		}
		index, result = sc.AcquireNextImageIndex(ctx, noTimeout)
	}
	if result != vk.Success && result != vk.Suboptimal {
		return check("vkAcquireNextImage", result)
	}

	if err := ctx.frameFence.Reset(ctx); err != nil {
		return err
	}
	if err := c.commandBuffer.Reset(); err != nil {
		return err
	}
	if err := c.commandBuffer.Begin(true, false, false); err != nil {
		return err
	}
	c.descriptors.Rewind()
	c.imageIndex = index
	c.frameBegun = true
	return nil
}

// depthTarget is the bound depth view, or the one cleared this frame.
func (c *ImmediateContext) depthTarget() *DepthStencilView {
	if c.dsv != nil {
		return c.dsv
	}
	return c.clearedDSV
}

func (c *ImmediateContext) beginRenderPass() error {
	if c.inRenderPass {
		return nil
	}
	depth := c.depthTarget()
	if depth == nil {
		return fmt.Errorf("render pass without depth-stencil view: %w", core.ErrInvalidUsage)
	}
	ctx := c.ctx
	fb, err := ctx.Swapchain.Framebuffer(ctx, ctx.MainRenderpass, c.imageIndex, depth)
	if err != nil {
		return err
	}
	ctx.MainRenderpass.W = min(ctx.Swapchain.Extent.Width, depth.texture.desc.Width)
	ctx.MainRenderpass.H = min(ctx.Swapchain.Extent.Height, depth.texture.desc.Height)
	ctx.MainRenderpass.Begin(ctx, c.commandBuffer, fb.Handle)
	c.inRenderPass = true
	return nil
}

func (c *ImmediateContext) ClearRenderTargetView(rtv renderer.RenderTargetView, color [4]float32) {
	if _, ok := rtv.(*RenderTargetView); !ok {
		c.fail(fmt.Errorf("clear of a foreign render target: %w", core.ErrInvalidUsage))
		return
	}
	if c.inRenderPass {
		c.fail(fmt.Errorf("clear after the first draw of a frame: %w", core.ErrInvalidUsage))
		return
	}
	c.ctx.ClearColour = color
	if err := c.beginFrame(); err != nil {
		c.fail(err)
	}
}

func (c *ImmediateContext) ClearDepthStencilView(dsv renderer.DepthStencilView, flags renderer.ClearFlag, depth float32, stencil uint8) {
	view, ok := dsv.(*DepthStencilView)
	if !ok {
		c.fail(fmt.Errorf("clear of a foreign depth-stencil view: %w", core.ErrInvalidUsage))
		return
	}
	if c.inRenderPass {
		c.fail(fmt.Errorf("clear after the first draw of a frame: %w", core.ErrInvalidUsage))
		return
	}
	// the render pass always clears both aspects; unflagged ones keep the defaults
	if flags&renderer.ClearDepth != 0 {
		c.ctx.ClearDepth = depth
	}
	if flags&renderer.ClearStencil != 0 {
		c.ctx.ClearStencil = uint32(stencil)
	}
	c.clearedDSV = view
	if err := c.beginFrame(); err != nil {
		c.fail(err)
	}
}

func (c *ImmediateContext) OMSetRenderTargets(rtvs []renderer.RenderTargetView, dsv renderer.DepthStencilView) {
	c.rtv = nil
	if len(rtvs) > 0 {
		c.rtv, _ = rtvs[0].(*RenderTargetView)
	}
	c.dsv = nil
	if dsv != nil {
		c.dsv, _ = dsv.(*DepthStencilView)
	}
}

func (c *ImmediateContext) OMSetDepthStencilState(state renderer.DepthStencilState, stencilRef uint32) {
	c.depthStencil, _ = state.(*DepthStencilState)
	c.stencilRef = stencilRef
}

func (c *ImmediateContext) RSSetState(state renderer.RasterizerState) {
	c.rasterizer, _ = state.(*RasterizerState)
}

func (c *ImmediateContext) RSSetViewports(viewports []renderer.Viewport) {
	c.viewport = nil
	if len(viewports) > 0 {
		vp := viewports[0]
		c.viewport = &vp
	}
}

func (c *ImmediateContext) IASetPrimitiveTopology(topology renderer.PrimitiveTopology) {
	c.topology = topology
}

func (c *ImmediateContext) IASetInputLayout(layout renderer.InputLayout) {
	c.inputLayout, _ = layout.(*InputLayout)
}

func (c *ImmediateContext) IASetVertexBuffers(startSlot uint32, buffers []renderer.Buffer, strides, offsets []uint32) {
	if startSlot != 0 || len(buffers) == 0 {
		return
	}
	c.vertexBuffer, _ = buffers[0].(*Buffer)
	c.vertexOffset = 0
	if len(offsets) > 0 {
		c.vertexOffset = offsets[0]
	}
	if c.inputLayout != nil && len(strides) > 0 && strides[0] != c.inputLayout.stride {
		c.fail(fmt.Errorf("vertex stride %d does not match the input layout stride %d: %w", strides[0], c.inputLayout.stride, core.ErrInvalidUsage))
	}
}

func (c *ImmediateContext) IASetIndexBuffer(buffer renderer.Buffer, format renderer.Format, offset uint32) {
	if format != renderer.FormatR32Uint {
		c.fail(fmt.Errorf("index format %s: %w", format, core.ErrInvalidUsage))
		return
	}
	c.indexBuffer, _ = buffer.(*Buffer)
	c.indexOffset = offset
}

func (c *ImmediateContext) VSSetShader(s renderer.VertexShader) {
	c.vertexShader, _ = s.(*VertexShader)
}

func (c *ImmediateContext) setConstantBuffers(pixelStage bool, startSlot uint32, buffers []renderer.Buffer) {
	for i, b := range buffers {
		binding, ok := constantBufferBinding(pixelStage, startSlot+uint32(i))
		if !ok {
			c.fail(fmt.Errorf("constant buffer slot %d: %w", startSlot+uint32(i), core.ErrInvalidUsage))
			continue
		}
		buf, _ := b.(*Buffer)
		c.uniforms[binding] = buf
	}
}

func (c *ImmediateContext) VSSetConstantBuffers(startSlot uint32, buffers []renderer.Buffer) {
	c.setConstantBuffers(false, startSlot, buffers)
}

func (c *ImmediateContext) PSSetShader(s renderer.PixelShader) {
	c.pixelShader, _ = s.(*PixelShader)
}

func (c *ImmediateContext) PSSetConstantBuffers(startSlot uint32, buffers []renderer.Buffer) {
	c.setConstantBuffers(true, startSlot, buffers)
}

func (c *ImmediateContext) PSSetShaderResources(startSlot uint32, views []renderer.ShaderResourceView) {
	if startSlot != 0 || len(views) == 0 {
		return
	}
	c.texture, _ = views[0].(*ShaderResourceView)
}

func (c *ImmediateContext) PSSetSamplers(startSlot uint32, samplers []renderer.SamplerState) {
	if startSlot != 0 || len(samplers) == 0 {
		return
	}
	c.sampler, _ = samplers[0].(*SamplerState)
}

func (c *ImmediateContext) Map(buffer renderer.Buffer, mapType renderer.MapType) ([]byte, error) {
	buf, err := asBuffer(buffer)
	if err != nil {
		return nil, err
	}
	if buf.mapped {
		return nil, fmt.Errorf("buffer: %w", core.ErrAlreadyMapped)
	}

	switch mapType {
	case renderer.MapWriteDiscard:
		if buf.desc.Usage != renderer.UsageDynamic || buf.desc.CPUAccessFlags&renderer.CPUAccessWrite == 0 {
			return nil, fmt.Errorf("write-discard map: %w", core.ErrInvalidUsage)
		}
	case renderer.MapRead:
		if buf.desc.CPUAccessFlags&renderer.CPUAccessRead == 0 {
			return nil, fmt.Errorf("read map: %w", core.ErrInvalidUsage)
		}
	default:
		return nil, fmt.Errorf("map type %d: %w", mapType, core.ErrInvalidUsage)
	}

	// outside a frame the GPU may still read the memory of the last one
	if !c.frameBegun {
		if err := c.ctx.WaitForFrame(); err != nil {
			return nil, err
		}
	}

	if mapType == renderer.MapWriteDiscard {
		clear(buf.shadow)
	} else if err := buf.buffer.Read(c.ctx, buf.shadow); err != nil {
		return nil, err
	}
	buf.mapped = true
	buf.mapType = mapType
	return buf.shadow, nil
}

func (c *ImmediateContext) Unmap(buffer renderer.Buffer) error {
	buf, err := asBuffer(buffer)
	if err != nil {
		return err
	}
	if !buf.mapped {
		return fmt.Errorf("buffer: %w", core.ErrNotMapped)
	}
	buf.mapped = false
	if buf.mapType == renderer.MapWriteDiscard {
		return buf.buffer.Write(c.ctx, buf.shadow)
	}
	return nil
}

func (c *ImmediateContext) validateDraw(indexCount, startIndexLocation uint32) error {
	switch {
	case c.rtv == nil:
		return fmt.Errorf("draw without render target: %w", core.ErrInvalidUsage)
	case c.depthTarget() == nil:
		return fmt.Errorf("draw without depth-stencil view: %w", core.ErrInvalidUsage)
	case c.vertexShader == nil || c.pixelShader == nil:
		return fmt.Errorf("draw without shaders: %w", core.ErrInvalidUsage)
	case c.inputLayout == nil:
		return fmt.Errorf("draw without input layout: %w", core.ErrInvalidUsage)
	case c.topology != renderer.TopologyTriangleList:
		return fmt.Errorf("draw without triangle list topology: %w", core.ErrInvalidUsage)
	case c.vertexBuffer == nil || c.indexBuffer == nil:
		return fmt.Errorf("draw without geometry: %w", core.ErrInvalidUsage)
	case c.rasterizer == nil || c.depthStencil == nil:
		return fmt.Errorf("draw without rasterizer or depth-stencil state: %w", core.ErrInvalidUsage)
	case c.viewport == nil:
		return fmt.Errorf("draw without viewport: %w", core.ErrInvalidUsage)
	case c.texture == nil || c.sampler == nil:
		return fmt.Errorf("draw without texture and sampler: %w", core.ErrInvalidUsage)
	}

	bound := []*Buffer{c.vertexBuffer, c.indexBuffer}
	for _, binding := range []uint32{bindingWVP, bindingLight, bindingMaterial} {
		buf := c.uniforms[binding]
		if buf == nil {
			return fmt.Errorf("draw without constant buffer for binding %d: %w", binding, core.ErrInvalidUsage)
		}
		bound = append(bound, buf)
	}
	for _, buf := range bound {
		if buf.isReleased() {
			return fmt.Errorf("draw with released buffer: %w", core.ErrResourceReleased)
		}
		if buf.mapped {
			return fmt.Errorf("draw with mapped buffer: %w", core.ErrAlreadyMapped)
		}
	}
	if c.texture.isReleased() || c.sampler.isReleased() {
		return fmt.Errorf("draw with released shader resource: %w", core.ErrResourceReleased)
	}
	if c.vertexShader.isReleased() || c.pixelShader.isReleased() {
		return fmt.Errorf("draw with released shader: %w", core.ErrResourceReleased)
	}

	indexBytes := uint64(c.indexOffset) + uint64(startIndexLocation+indexCount)*uint64(renderer.FormatSize(renderer.FormatR32Uint))
	if indexBytes > uint64(c.indexBuffer.desc.ByteWidth) {
		return fmt.Errorf("draw of %d indices from %d overruns index buffer: %w", indexCount, startIndexLocation, core.ErrInvalidUsage)
	}
	return nil
}

// pipeline returns the pipeline baked from the bound state, building it once.
func (c *ImmediateContext) pipeline() (*VulkanPipeline, error) {
	key := pipelineKey{
		vertexShader: c.vertexShader,
		pixelShader:  c.pixelShader,
		inputLayout:  c.inputLayout,
		rasterizer:   c.rasterizer,
		depthStencil: c.depthStencil,
	}
	if p, ok := c.pipelines[key]; ok {
		return p, nil
	}
	p, err := NewGraphicsPipeline(c.ctx, &VulkanPipelineConfig{
		Renderpass: c.ctx.MainRenderpass,
		Layout:     c.pipelineLayout,
		Stride:     c.inputLayout.stride,
		Attributes: c.inputLayout.attributes,
		Stages: []vk.PipelineShaderStageCreateInfo{
			c.vertexShader.stage.ShaderStageCreateInfo,
			c.pixelShader.stage.ShaderStageCreateInfo,
		},
		Rasterizer:   c.rasterizer.Desc,
		DepthStencil: c.depthStencil.Desc,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrPipelineSetup, err)
	}
	c.pipelines[key] = p
	return p, nil
}

func (c *ImmediateContext) DrawIndexed(indexCount, startIndexLocation uint32, baseVertexLocation int32) error {
	if c.isReleased() {
		return fmt.Errorf("draw: %w", core.ErrResourceReleased)
	}
	if err := c.takeDeferred(); err != nil {
		return err
	}
	if err := c.validateDraw(indexCount, startIndexLocation); err != nil {
		return err
	}
	if err := c.beginFrame(); err != nil {
		return err
	}
	if err := c.beginRenderPass(); err != nil {
		return err
	}

	p, err := c.pipeline()
	if err != nil {
		return err
	}
	set, err := c.descriptors.Write(c.ctx, &DescriptorBindings{
		UniformBuffers: c.uniforms,
		Texture:        c.texture,
		Sampler:        c.sampler,
	})
	if err != nil {
		return err
	}

	cb := c.commandBuffer.Handle
	p.Bind(c.commandBuffer)

	// flipped so clip space y points up like the D3D convention the
	// matrices are built for
	vp := c.viewport
	vk.CmdSetViewport(cb, 0, 1, []vk.Viewport{{
		X:        vp.TopLeftX,
		Y:        vp.TopLeftY + vp.Height,
		Width:    vp.Width,
		Height:   -vp.Height,
		MinDepth: vp.MinDepth,
		MaxDepth: vp.MaxDepth,
	}})
	rp := c.ctx.MainRenderpass
	vk.CmdSetScissor(cb, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: rp.W, Height: rp.H},
	}})
	vk.CmdSetStencilReference(cb, vk.StencilFaceFlags(vk.StencilFrontAndBack), c.stencilRef)

	vk.CmdBindDescriptorSets(cb, vk.PipelineBindPointGraphics, c.pipelineLayout, 0, 1, []vk.DescriptorSet{set}, 0, nil)
	vk.CmdBindVertexBuffers(cb, 0, 1, []vk.Buffer{c.vertexBuffer.buffer.Handle}, []vk.DeviceSize{vk.DeviceSize(c.vertexOffset)})
	vk.CmdBindIndexBuffer(cb, c.indexBuffer.buffer.Handle, vk.DeviceSize(c.indexOffset), vk.IndexTypeUint32)
	vk.CmdDrawIndexed(cb, indexCount, 1, startIndexLocation, baseVertexLocation, 0)
	return nil
}

/**
 * @brief Ends and submits the frame, then queues the image for presentation.
 * A frame with no draws still clears and presents.
 */
func (c *ImmediateContext) present(syncInterval uint32) error {
	if c.isReleased() {
		return fmt.Errorf("present: %w", core.ErrResourceReleased)
	}
	if err := c.takeDeferred(); err != nil {
		return err
	}
	if err := c.beginFrame(); err != nil {
		return err
	}
	if err := c.beginRenderPass(); err != nil {
		return err
	}

	ctx := c.ctx
	ctx.MainRenderpass.End(c.commandBuffer)
	if err := c.commandBuffer.End(); err != nil {
		return err
	}

	sc := ctx.Swapchain
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{sc.ImageAvailable},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{c.commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{sc.RenderComplete},
	}
	family := uint32(ctx.Device.GraphicsQueueIndex)
	err := ctx.Locks.SafeQueueCall(family, func() error {
		return check("vkQueueSubmit", vk.QueueSubmit(ctx.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, ctx.frameFence.Handle))
	})
	c.frameBegun = false
	c.inRenderPass = false
	c.clearedDSV = nil
	if err != nil {
		// nothing will signal the fence, treat it as done so the next frame
		// does not wait on it
		ctx.frameFence.IsSignaled = true
		return err
	}
	c.commandBuffer.UpdateSubmitted()
	ctx.frameInFlight = true

	vsync := syncInterval > 0
	result := sc.Present(ctx, c.imageIndex)
	switch {
	case result == vk.ErrorOutOfDate || result == vk.Suboptimal || vsync != sc.VSync:
		return sc.Recreate(ctx, vsync)
	case result != vk.Success:
		return check("vkQueuePresent", result)
	}
	return nil
}

func (c *ImmediateContext) destroy() {
	ctx := c.ctx
	for key, p := range c.pipelines {
		p.Destroy(ctx)
		delete(c.pipelines, key)
	}
	if c.pipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(ctx.Device.LogicalDevice, c.pipelineLayout, ctx.Allocator)
		c.pipelineLayout = vk.NullPipelineLayout
	}
	if c.descriptors != nil {
		c.descriptors.Destroy(ctx)
		c.descriptors = nil
	}
	if c.commandBuffer != nil {
		c.commandBuffer.Free(ctx, ctx.Device.GraphicsCommandPool)
		c.commandBuffer = nil
	}
	if ctx.frameFence != nil {
		ctx.frameFence.Destroy(ctx)
		ctx.frameFence = nil
	}
}

func (c *ImmediateContext) Release() {
	if !c.markReleased() {
		return
	}
	c.ctx.WaitIdle()
	c.destroy()
	core.LogDebug("immediate context destroyed")
}
