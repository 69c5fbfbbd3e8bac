package vulkan

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer"
)

type base struct {
	ctx      *VulkanContext
	mu       sync.Mutex
	released bool
}

// markReleased flips the released flag and reports whether this call did it.
func (b *base) markReleased() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return false
	}
	b.released = true
	return true
}

func (b *base) isReleased() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

/**
 * @brief A host visible buffer. Map hands out the CPU shadow, Unmap after a
 * write-discard copies it to GPU memory.
 */
type Buffer struct {
	base
	buffer  *VulkanBuffer
	desc    renderer.BufferDesc
	shadow  []byte
	mapped  bool
	mapType renderer.MapType
}

func (b *Buffer) Desc() renderer.BufferDesc {
	return b.desc
}

func (b *Buffer) Release() {
	if !b.markReleased() {
		return
	}
	b.ctx.WaitIdle()
	b.buffer.Destroy(b.ctx)
	b.shadow = nil
}

/**
 * @brief A sampled or depth-stencil image. The back buffer is a placeholder
 * standing for the swapchain images and owns nothing.
 */
type Texture2D struct {
	base
	image      *VulkanImage
	desc       renderer.Texture2DDesc
	backBuffer bool
}

func (t *Texture2D) Desc() renderer.Texture2DDesc {
	return t.desc
}

func (t *Texture2D) Release() {
	if !t.markReleased() || t.backBuffer {
		return
	}
	t.ctx.WaitIdle()
	t.image.Destroy(t.ctx)
}

// RenderTargetView targets whichever swapchain image the frame acquired.
type RenderTargetView struct {
	base
}

func (v *RenderTargetView) Release() {
	v.markReleased()
}

type DepthStencilView struct {
	base
	view    vk.ImageView
	texture *Texture2D
}

func (v *DepthStencilView) Release() {
	if !v.markReleased() {
		return
	}
	v.ctx.WaitIdle()
	destroyImageView(v.ctx, v.view)
}

type ShaderResourceView struct {
	base
	view    vk.ImageView
	texture *Texture2D
}

func (v *ShaderResourceView) Release() {
	if !v.markReleased() {
		return
	}
	v.ctx.WaitIdle()
	destroyImageView(v.ctx, v.view)
}

func destroyImageView(context *VulkanContext, view vk.ImageView) {
	if view != nil {
		vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
	}
}

// RasterizerState is a descriptor baked into pipelines at draw time.
type RasterizerState struct {
	base
	Desc renderer.RasterizerDesc
}

func (s *RasterizerState) Release() {
	s.markReleased()
}

type DepthStencilState struct {
	base
	Desc renderer.DepthStencilDesc
}

func (s *DepthStencilState) Release() {
	s.markReleased()
}

type SamplerState struct {
	base
	sampler vk.Sampler
	Desc    renderer.SamplerDesc
}

func (s *SamplerState) Release() {
	if !s.markReleased() {
		return
	}
	s.ctx.WaitIdle()
	if s.sampler != nil {
		vk.DestroySampler(s.ctx.Device.LogicalDevice, s.sampler, s.ctx.Allocator)
		s.sampler = nil
	}
}

type shader struct {
	base
	stage *VulkanShaderStage
}

func (s *shader) Release() {
	if !s.markReleased() {
		return
	}
	s.ctx.WaitIdle()
	s.stage.Destroy(s.ctx)
}

type VertexShader struct {
	shader
}

type PixelShader struct {
	shader
}

/** @brief Vertex attributes of binding 0, location i for element i. */
type InputLayout struct {
	base
	attributes []vk.VertexInputAttributeDescription
	stride     uint32
}

func (l *InputLayout) Release() {
	l.markReleased()
}

func asBuffer(b renderer.Buffer) (*Buffer, error) {
	buf, ok := b.(*Buffer)
	if !ok || buf == nil {
		return nil, fmt.Errorf("buffer was not created by this driver: %w", core.ErrInvalidUsage)
	}
	if buf.isReleased() {
		return nil, fmt.Errorf("buffer: %w", core.ErrResourceReleased)
	}
	return buf, nil
}

func asTexture(t renderer.Texture2D) (*Texture2D, error) {
	tex, ok := t.(*Texture2D)
	if !ok || tex == nil {
		return nil, fmt.Errorf("texture was not created by this driver: %w", core.ErrInvalidUsage)
	}
	if tex.isReleased() {
		return nil, fmt.Errorf("texture: %w", core.ErrResourceReleased)
	}
	return tex, nil
}
