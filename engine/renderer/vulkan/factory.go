package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer"
)

/**
 * @brief The resource factory. It owns the instance, surface, logical device
 * and command pool, and destroys them last.
 */
type Device struct {
	base
}

func (d *Device) usable(op string) error {
	if d.isReleased() {
		return fmt.Errorf("%s on released device: %w", op, core.ErrResourceReleased)
	}
	return nil
}

func (d *Device) CreateRenderTargetView(backBuffer renderer.Texture2D) (renderer.RenderTargetView, error) {
	if err := d.usable("CreateRenderTargetView"); err != nil {
		return nil, err
	}
	tex, err := asTexture(backBuffer)
	if err != nil {
		return nil, err
	}
	// only the swapchain can be rendered to
	if !tex.backBuffer {
		return nil, fmt.Errorf("render target must be the back buffer: %w", core.ErrInvalidUsage)
	}
	return &RenderTargetView{base: base{ctx: d.ctx}}, nil
}

func (d *Device) CreateRasterizerState(desc *renderer.RasterizerDesc) (renderer.RasterizerState, error) {
	if err := d.usable("CreateRasterizerState"); err != nil {
		return nil, err
	}
	return &RasterizerState{base: base{ctx: d.ctx}, Desc: *desc}, nil
}

func (d *Device) CreateTexture2D(desc *renderer.Texture2DDesc, initial *renderer.SubresourceData) (renderer.Texture2D, error) {
	if err := d.usable("CreateTexture2D"); err != nil {
		return nil, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("texture of %dx%d: %w", desc.Width, desc.Height, core.ErrInvalidUsage)
	}
	if desc.MipLevels > 1 || desc.ArraySize > 1 || desc.SampleCount > 1 {
		return nil, fmt.Errorf("only single level, single sample 2D textures are supported: %w", core.ErrInvalidUsage)
	}

	var (
		format vk.Format
		usage  vk.ImageUsageFlags
	)
	switch {
	case desc.BindFlags&renderer.BindDepthStencil != 0:
		if desc.Format != renderer.FormatD24UnormS8Uint {
			return nil, fmt.Errorf("depth-stencil texture of format %s: %w", desc.Format, core.ErrInvalidUsage)
		}
		if initial != nil {
			return nil, fmt.Errorf("depth-stencil texture with initial data: %w", core.ErrInvalidUsage)
		}
		// D24S8 when available, otherwise the device's packed fallback
		format = d.ctx.Device.DepthFormat
		usage = vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
	case desc.BindFlags&renderer.BindShaderResource != 0:
		format = vkFormat(desc.Format)
		if format == vk.FormatUndefined {
			return nil, fmt.Errorf("texture format %s: %w", desc.Format, core.ErrInvalidUsage)
		}
		usage = vk.ImageUsageFlags(vk.ImageUsageSampledBit) | vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)
	default:
		return nil, fmt.Errorf("texture bind flags %#x: %w", desc.BindFlags, core.ErrInvalidUsage)
	}

	var pixels []byte
	if initial != nil {
		packed, err := packRows(desc, initial)
		if err != nil {
			return nil, err
		}
		pixels = packed
	} else if desc.Usage == renderer.UsageImmutable {
		return nil, fmt.Errorf("immutable texture without initial data: %w", core.ErrInvalidUsage)
	}

	image, err := ImageCreate(d.ctx, desc.Width, desc.Height, format, usage, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrTextureSetup, err)
	}
	if pixels != nil {
		if err := image.Upload(d.ctx, pixels); err != nil {
			image.Destroy(d.ctx)
			return nil, fmt.Errorf("%w: %w", core.ErrTextureSetup, err)
		}
	}
	return &Texture2D{base: base{ctx: d.ctx}, image: image, desc: *desc}, nil
}

// packRows drops any row padding so the staging copy is tightly packed.
func packRows(desc *renderer.Texture2DDesc, initial *renderer.SubresourceData) ([]byte, error) {
	rowBytes := desc.Width * renderer.FormatSize(desc.Format)
	pitch := initial.SysMemPitch
	if pitch == 0 {
		pitch = rowBytes
	}
	if pitch < rowBytes {
		return nil, fmt.Errorf("row pitch %d below row size %d: %w", pitch, rowBytes, core.ErrInvalidUsage)
	}
	need := int(pitch)*int(desc.Height-1) + int(rowBytes)
	if len(initial.SysMem) < need {
		return nil, fmt.Errorf("texture data of %d bytes, need %d: %w", len(initial.SysMem), need, core.ErrBufferTooSmall)
	}
	if pitch == rowBytes {
		return append([]byte(nil), initial.SysMem[:need]...), nil
	}
	out := make([]byte, 0, int(rowBytes*desc.Height))
	for y := uint32(0); y < desc.Height; y++ {
		start := y * pitch
		out = append(out, initial.SysMem[start:start+rowBytes]...)
	}
	return out, nil
}

func (d *Device) CreateDepthStencilView(texture renderer.Texture2D) (renderer.DepthStencilView, error) {
	if err := d.usable("CreateDepthStencilView"); err != nil {
		return nil, err
	}
	tex, err := asTexture(texture)
	if err != nil {
		return nil, err
	}
	if tex.desc.BindFlags&renderer.BindDepthStencil == 0 || tex.image == nil {
		return nil, fmt.Errorf("texture is not bindable as depth-stencil: %w", core.ErrInvalidUsage)
	}
	aspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit) | vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	view, err := tex.image.CreateView(d.ctx, aspect)
	if err != nil {
		return nil, err
	}
	return &DepthStencilView{base: base{ctx: d.ctx}, view: view, texture: tex}, nil
}

func (d *Device) CreateDepthStencilState(desc *renderer.DepthStencilDesc) (renderer.DepthStencilState, error) {
	if err := d.usable("CreateDepthStencilState"); err != nil {
		return nil, err
	}
	return &DepthStencilState{base: base{ctx: d.ctx}, Desc: *desc}, nil
}

func (d *Device) CreateVertexShader(bytecode []byte) (renderer.VertexShader, error) {
	if err := d.usable("CreateVertexShader"); err != nil {
		return nil, err
	}
	module, err := NewShaderModule(d.ctx, bytecode, vk.ShaderStageVertexBit)
	if err != nil {
		return nil, err
	}
	return &VertexShader{shader{base: base{ctx: d.ctx}, stage: module}}, nil
}

func (d *Device) CreatePixelShader(bytecode []byte) (renderer.PixelShader, error) {
	if err := d.usable("CreatePixelShader"); err != nil {
		return nil, err
	}
	module, err := NewShaderModule(d.ctx, bytecode, vk.ShaderStageFragmentBit)
	if err != nil {
		return nil, err
	}
	return &PixelShader{shader{base: base{ctx: d.ctx}, stage: module}}, nil
}

func (d *Device) CreateInputLayout(elements []renderer.InputElementDesc, vsBytecode []byte) (renderer.InputLayout, error) {
	if err := d.usable("CreateInputLayout"); err != nil {
		return nil, err
	}
	if err := ValidateSPIRV(vsBytecode); err != nil {
		return nil, err
	}
	offsets, stride, err := renderer.ResolveInputLayout(elements)
	if err != nil {
		return nil, err
	}
	attributes := make([]vk.VertexInputAttributeDescription, len(elements))
	for i, e := range elements {
		if e.InputSlot != 0 || e.InputSlotClass != renderer.InputPerVertexData {
			return nil, fmt.Errorf("element %s: only per-vertex data in slot 0: %w", e.SemanticName, core.ErrInvalidUsage)
		}
		attributes[i] = vk.VertexInputAttributeDescription{
			Location: uint32(i),
			Binding:  0,
			Format:   vkFormat(e.Format),
			Offset:   offsets[i],
		}
	}
	return &InputLayout{base: base{ctx: d.ctx}, attributes: attributes, stride: stride}, nil
}

func bufferUsage(flags renderer.BindFlag) vk.BufferUsageFlags {
	var usage vk.BufferUsageFlags
	if flags&renderer.BindVertexBuffer != 0 {
		usage |= vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	}
	if flags&renderer.BindIndexBuffer != 0 {
		usage |= vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	}
	if flags&renderer.BindConstantBuffer != 0 {
		usage |= vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	}
	return usage
}

func (d *Device) CreateBuffer(desc *renderer.BufferDesc, initial *renderer.SubresourceData) (renderer.Buffer, error) {
	if err := d.usable("CreateBuffer"); err != nil {
		return nil, err
	}
	if desc.ByteWidth == 0 {
		return nil, fmt.Errorf("zero sized buffer: %w", core.ErrInvalidUsage)
	}
	usage := bufferUsage(desc.BindFlags)
	if usage == 0 {
		return nil, fmt.Errorf("buffer bind flags %#x: %w", desc.BindFlags, core.ErrInvalidUsage)
	}
	if desc.Usage == renderer.UsageImmutable && initial == nil {
		return nil, fmt.Errorf("immutable buffer without initial data: %w", core.ErrInvalidUsage)
	}
	if initial != nil && len(initial.SysMem) > int(desc.ByteWidth) {
		return nil, fmt.Errorf("initial data of %d bytes for a %d byte buffer: %w", len(initial.SysMem), desc.ByteWidth, core.ErrBufferTooSmall)
	}

	vb, err := BufferCreate(d.ctx, uint64(desc.ByteWidth), usage,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrBufferSetup, err)
	}
	buffer := &Buffer{
		base:   base{ctx: d.ctx},
		buffer: vb,
		desc:   *desc,
		shadow: make([]byte, desc.ByteWidth),
	}
	if initial != nil {
		copy(buffer.shadow, initial.SysMem)
	}
	// zeroed when no initial data was given
	if err := vb.Write(d.ctx, buffer.shadow); err != nil {
		vb.Destroy(d.ctx)
		return nil, fmt.Errorf("%w: %w", core.ErrBufferSetup, err)
	}
	return buffer, nil
}

func (d *Device) CreateShaderResourceView(texture renderer.Texture2D) (renderer.ShaderResourceView, error) {
	if err := d.usable("CreateShaderResourceView"); err != nil {
		return nil, err
	}
	tex, err := asTexture(texture)
	if err != nil {
		return nil, err
	}
	if tex.desc.BindFlags&renderer.BindShaderResource == 0 || tex.image == nil {
		return nil, fmt.Errorf("texture is not bindable as shader resource: %w", core.ErrInvalidUsage)
	}
	view, err := tex.image.CreateView(d.ctx, vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return nil, err
	}
	return &ShaderResourceView{base: base{ctx: d.ctx}, view: view, texture: tex}, nil
}

func (d *Device) CreateSamplerState(desc *renderer.SamplerDesc) (renderer.SamplerState, error) {
	if err := d.usable("CreateSamplerState"); err != nil {
		return nil, err
	}
	filter, mipmapMode := vkFilter(desc.Filter)
	createInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               filter,
		MinFilter:               filter,
		MipmapMode:              mipmapMode,
		AddressModeU:            vkAddressMode(desc.AddressU),
		AddressModeV:            vkAddressMode(desc.AddressV),
		AddressModeW:            vkAddressMode(desc.AddressW),
		MipLodBias:              desc.MipLODBias,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1.0,
		CompareEnable:           vk.False,
		CompareOp:               vkCompareOp(desc.ComparisonFunc),
		MinLod:                  desc.MinLOD,
		MaxLod:                  desc.MaxLOD,
		BorderColor:             vk.BorderColorFloatOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}
	if desc.Filter == renderer.FilterAnisotropic && d.ctx.Device.Features.SamplerAnisotropy == vk.True {
		createInfo.AnisotropyEnable = vk.True
		createInfo.MaxAnisotropy = float32(max(desc.MaxAnisotropy, 1))
	}
	if desc.ComparisonFunc != renderer.ComparisonNever {
		createInfo.CompareEnable = vk.True
	}

	var sampler vk.Sampler
	if err := check("vkCreateSampler", vk.CreateSampler(d.ctx.Device.LogicalDevice, &createInfo, d.ctx.Allocator, &sampler)); err != nil {
		return nil, err
	}
	return &SamplerState{base: base{ctx: d.ctx}, sampler: sampler, Desc: *desc}, nil
}

// Release tears down the device level handles in reverse creation order.
func (d *Device) Release() {
	if !d.markReleased() {
		return
	}
	ctx := d.ctx
	ctx.WaitIdle()
	DeviceDestroy(ctx)
	if ctx.Surface != vk.NullSurface {
		vk.DestroySurface(ctx.Instance, ctx.Surface, ctx.Allocator)
		ctx.Surface = vk.NullSurface
	}
	if ctx.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(ctx.Instance, ctx.debugCallback, ctx.Allocator)
		ctx.debugCallback = vk.NullDebugReportCallback
	}
	if ctx.Instance != nil {
		vk.DestroyInstance(ctx.Instance, ctx.Allocator)
		ctx.Instance = nil
	}
	core.LogInfo("vulkan device destroyed")
}
