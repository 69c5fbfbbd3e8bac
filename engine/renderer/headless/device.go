package headless

import (
	"fmt"

	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer"
)

type Device struct {
	object
}

func (d *Device) usable(op string) error {
	if err := d.rec.check(op); err != nil {
		return err
	}
	if d.Released() {
		return fmt.Errorf("%s on released device: %w", op, core.ErrResourceReleased)
	}
	return nil
}

func asTexture(t renderer.Texture2D) (*Texture2D, error) {
	tex, ok := t.(*Texture2D)
	if !ok || tex == nil {
		return nil, fmt.Errorf("texture was not created by this driver: %w", core.ErrInvalidUsage)
	}
	if tex.Released() {
		return nil, fmt.Errorf("texture %d: %w", tex.id, core.ErrResourceReleased)
	}
	return tex, nil
}

func (d *Device) CreateRenderTargetView(backBuffer renderer.Texture2D) (renderer.RenderTargetView, error) {
	if err := d.usable("CreateRenderTargetView"); err != nil {
		return nil, err
	}
	tex, err := asTexture(backBuffer)
	if err != nil {
		return nil, err
	}
	if tex.desc.BindFlags&renderer.BindRenderTarget == 0 {
		return nil, fmt.Errorf("texture is not bindable as render target: %w", core.ErrInvalidUsage)
	}
	return &View{object: d.rec.track(KindRenderTargetView), Texture: tex}, nil
}

func (d *Device) CreateRasterizerState(desc *renderer.RasterizerDesc) (renderer.RasterizerState, error) {
	if err := d.usable("CreateRasterizerState"); err != nil {
		return nil, err
	}
	return &RasterizerState{object: d.rec.track(KindRasterizerState), Desc: *desc}, nil
}

func (d *Device) CreateTexture2D(desc *renderer.Texture2DDesc, initial *renderer.SubresourceData) (renderer.Texture2D, error) {
	if err := d.usable("CreateTexture2D"); err != nil {
		return nil, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("texture has no extent: %w", core.ErrInvalidUsage)
	}
	if desc.MipLevels != 1 || desc.ArraySize != 1 {
		return nil, fmt.Errorf("only single mip, single layer textures are supported: %w", core.ErrInvalidUsage)
	}
	texelSize := renderer.FormatSize(desc.Format)
	if texelSize == 0 {
		return nil, fmt.Errorf("texture format %s: %w", desc.Format, core.ErrInvalidUsage)
	}

	tex := &Texture2D{desc: *desc}
	rowBytes := desc.Width * texelSize
	if initial != nil {
		if initial.SysMemPitch < rowBytes {
			return nil, fmt.Errorf("row pitch %d smaller than %d: %w", initial.SysMemPitch, rowBytes, core.ErrInvalidUsage)
		}
		need := int(initial.SysMemPitch*(desc.Height-1) + rowBytes)
		if len(initial.SysMem) < need {
			return nil, fmt.Errorf("texture data has %d bytes, need %d: %w", len(initial.SysMem), need, core.ErrBufferTooSmall)
		}
		tex.pixels = make([]byte, 0, rowBytes*desc.Height)
		for row := uint32(0); row < desc.Height; row++ {
			start := row * initial.SysMemPitch
			tex.pixels = append(tex.pixels, initial.SysMem[start:start+rowBytes]...)
		}
	} else {
		if desc.Usage == renderer.UsageImmutable {
			return nil, fmt.Errorf("immutable texture without initial data: %w", core.ErrInvalidUsage)
		}
		tex.pixels = make([]byte, rowBytes*desc.Height)
	}
	tex.object = d.rec.track(KindTexture2D)
	return tex, nil
}

func (d *Device) CreateDepthStencilView(texture renderer.Texture2D) (renderer.DepthStencilView, error) {
	if err := d.usable("CreateDepthStencilView"); err != nil {
		return nil, err
	}
	tex, err := asTexture(texture)
	if err != nil {
		return nil, err
	}
	if tex.desc.BindFlags&renderer.BindDepthStencil == 0 || tex.desc.Format != renderer.FormatD24UnormS8Uint {
		return nil, fmt.Errorf("texture is not a depth-stencil target: %w", core.ErrInvalidUsage)
	}
	return &View{object: d.rec.track(KindDepthStencilView), Texture: tex}, nil
}

func (d *Device) CreateDepthStencilState(desc *renderer.DepthStencilDesc) (renderer.DepthStencilState, error) {
	if err := d.usable("CreateDepthStencilState"); err != nil {
		return nil, err
	}
	return &DepthStencilState{object: d.rec.track(KindDepthStencilState), Desc: *desc}, nil
}

func (d *Device) CreateVertexShader(bytecode []byte) (renderer.VertexShader, error) {
	if err := d.usable("CreateVertexShader"); err != nil {
		return nil, err
	}
	if len(bytecode) == 0 {
		return nil, fmt.Errorf("vertex shader: %w", core.ErrInvalidBytecode)
	}
	return &Shader{object: d.rec.track(KindVertexShader), Bytecode: bytecode}, nil
}

func (d *Device) CreatePixelShader(bytecode []byte) (renderer.PixelShader, error) {
	if err := d.usable("CreatePixelShader"); err != nil {
		return nil, err
	}
	if len(bytecode) == 0 {
		return nil, fmt.Errorf("pixel shader: %w", core.ErrInvalidBytecode)
	}
	return &Shader{object: d.rec.track(KindPixelShader), Bytecode: bytecode}, nil
}

func (d *Device) CreateInputLayout(elements []renderer.InputElementDesc, vsBytecode []byte) (renderer.InputLayout, error) {
	if err := d.usable("CreateInputLayout"); err != nil {
		return nil, err
	}
	if len(vsBytecode) == 0 {
		return nil, fmt.Errorf("input layout signature: %w", core.ErrInvalidBytecode)
	}
	offsets, stride, err := renderer.ResolveInputLayout(elements)
	if err != nil {
		return nil, err
	}
	return &InputLayout{
		object:   d.rec.track(KindInputLayout),
		Elements: append([]renderer.InputElementDesc(nil), elements...),
		Offsets:  offsets,
		Stride:   stride,
	}, nil
}

func (d *Device) CreateBuffer(desc *renderer.BufferDesc, initial *renderer.SubresourceData) (renderer.Buffer, error) {
	if err := d.usable("CreateBuffer"); err != nil {
		return nil, err
	}
	if desc.ByteWidth == 0 {
		return nil, fmt.Errorf("buffer has no size: %w", core.ErrInvalidUsage)
	}
	if desc.BindFlags&renderer.BindConstantBuffer != 0 && desc.ByteWidth%16 != 0 {
		return nil, fmt.Errorf("constant buffer size %d is not a multiple of 16: %w", desc.ByteWidth, core.ErrInvalidUsage)
	}
	if desc.Usage == renderer.UsageDynamic && desc.CPUAccessFlags&renderer.CPUAccessWrite == 0 {
		return nil, fmt.Errorf("dynamic buffer without CPU write access: %w", core.ErrInvalidUsage)
	}
	if desc.Usage == renderer.UsageImmutable && (initial == nil || len(initial.SysMem) == 0) {
		return nil, fmt.Errorf("immutable buffer without initial data: %w", core.ErrInvalidUsage)
	}

	buf := &Buffer{desc: *desc, data: make([]byte, desc.ByteWidth)}
	if initial != nil {
		if len(initial.SysMem) > int(desc.ByteWidth) {
			return nil, fmt.Errorf("initial data has %d bytes for a %d byte buffer: %w", len(initial.SysMem), desc.ByteWidth, core.ErrBufferTooSmall)
		}
		copy(buf.data, initial.SysMem)
	}
	buf.object = d.rec.track(KindBuffer)
	return buf, nil
}

func (d *Device) CreateShaderResourceView(texture renderer.Texture2D) (renderer.ShaderResourceView, error) {
	if err := d.usable("CreateShaderResourceView"); err != nil {
		return nil, err
	}
	tex, err := asTexture(texture)
	if err != nil {
		return nil, err
	}
	if tex.desc.BindFlags&renderer.BindShaderResource == 0 {
		return nil, fmt.Errorf("texture is not bindable as shader resource: %w", core.ErrInvalidUsage)
	}
	return &View{object: d.rec.track(KindShaderResourceView), Texture: tex}, nil
}

func (d *Device) CreateSamplerState(desc *renderer.SamplerDesc) (renderer.SamplerState, error) {
	if err := d.usable("CreateSamplerState"); err != nil {
		return nil, err
	}
	if desc.MaxAnisotropy > 16 {
		return nil, fmt.Errorf("max anisotropy %d above 16: %w", desc.MaxAnisotropy, core.ErrInvalidUsage)
	}
	return &SamplerState{object: d.rec.track(KindSamplerState), Desc: *desc}, nil
}
