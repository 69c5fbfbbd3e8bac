package systems

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer"
	"github.com/spaghettifunk/quadcore/engine/renderer/metadata"
)

/**
 * @brief Owns the constant buffers and the CPU side data uploaded into them.
 */
type BufferRegistry struct {
	device       *GraphicsDevice
	onDataChange func()

	/** @brief Uploaded every frame, so writes to it need no notification. */
	WVP      metadata.WVP
	light    metadata.Light
	material metadata.Material

	WVPBuffer      renderer.Buffer
	LightBuffer    renderer.Buffer
	MaterialBuffer renderer.Buffer
}

func NewBufferRegistry(gd *GraphicsDevice) *BufferRegistry {
	return &BufferRegistry{device: gd}
}

func getAligned(operand, granularity uint32) uint32 {
	return (operand + (granularity - 1)) &^ (granularity - 1)
}

// SetDataChangeHook registers the callback fired whenever light or material data is replaced.
func (br *BufferRegistry) SetDataChangeHook(fn func()) {
	br.onDataChange = fn
}

func (br *BufferRegistry) fireDataChange() {
	if br.onDataChange != nil {
		br.onDataChange()
	}
}

// SetData replaces the CPU side copies uploaded by the frame loop.
func (br *BufferRegistry) SetData(wvp metadata.WVP, light metadata.Light, material metadata.Material) {
	br.WVP = wvp
	br.light = light
	br.material = material
	br.fireDataChange()
}

func (br *BufferRegistry) Light() metadata.Light {
	return br.light
}

func (br *BufferRegistry) SetLight(light metadata.Light) {
	br.light = light
	br.fireDataChange()
}

func (br *BufferRegistry) Material() metadata.Material {
	return br.material
}

func (br *BufferRegistry) SetMaterial(material metadata.Material) {
	br.material = material
	br.fireDataChange()
}

/**
 * @brief Creates a dynamic, CPU writable constant buffer. The size is rounded
 * up to a multiple of 16 bytes.
 */
func (br *BufferRegistry) CreateConstantBuffer(byteWidth uint32) (renderer.Buffer, error) {
	desc := &renderer.BufferDesc{
		ByteWidth:      getAligned(byteWidth, 16),
		Usage:          renderer.UsageDynamic,
		BindFlags:      renderer.BindConstantBuffer,
		CPUAccessFlags: renderer.CPUAccessWrite | renderer.CPUAccessRead,
	}
	buf, err := br.device.Device.CreateBuffer(desc, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: constant buffer of %d bytes: %w", core.ErrBufferSetup, desc.ByteWidth, err)
	}
	br.device.Arena().Track(fmt.Sprintf("constant buffer (%d bytes)", desc.ByteWidth), buf)
	return buf, nil
}

// CreateBuffers creates the WVP, light and material buffers and fills them.
func (br *BufferRegistry) CreateBuffers() error {
	var err error
	if br.WVPBuffer, err = br.CreateConstantBuffer(metadata.WVPSize); err != nil {
		core.LogError(err.Error())
		return err
	}
	if br.LightBuffer, err = br.CreateConstantBuffer(metadata.LightSize); err != nil {
		core.LogError(err.Error())
		return err
	}
	if br.MaterialBuffer, err = br.CreateConstantBuffer(metadata.MaterialSize); err != nil {
		core.LogError(err.Error())
		return err
	}
	if err := br.UploadAll(); err != nil {
		e := fmt.Errorf("%w: initial upload: %w", core.ErrBufferSetup, err)
		core.LogError(e.Error())
		return e
	}
	return nil
}

/**
 * @brief Copies src into buffer through a write-discard mapping. A source
 * larger than the buffer is rejected before anything is mapped.
 */
func (br *BufferRegistry) UpdateBuffer(buffer renderer.Buffer, src []byte) (err error) {
	if buffer == nil {
		return fmt.Errorf("update of nil buffer: %w", core.ErrNotInitialized)
	}
	if size := buffer.Desc().ByteWidth; uint32(len(src)) > size {
		return fmt.Errorf("%d bytes into %d: %w", len(src), size, core.ErrBufferTooSmall)
	}

	ctx := br.device.Context
	dst, err := ctx.Map(buffer, renderer.MapWriteDiscard)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, ctx.Unmap(buffer))
	}()

	copy(dst, src)
	return nil
}

// ReadBuffer maps buffer for reading and returns a copy of its contents.
func (br *BufferRegistry) ReadBuffer(buffer renderer.Buffer) (out []byte, err error) {
	if buffer == nil {
		return nil, fmt.Errorf("read of nil buffer: %w", core.ErrNotInitialized)
	}
	ctx := br.device.Context
	src, err := ctx.Map(buffer, renderer.MapRead)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, ctx.Unmap(buffer))
	}()

	out = make([]byte, len(src))
	copy(out, src)
	return out, nil
}

func (br *BufferRegistry) UploadWVP() error {
	return br.UpdateBuffer(br.WVPBuffer, br.WVP.Bytes())
}

func (br *BufferRegistry) UploadLight() error {
	return br.UpdateBuffer(br.LightBuffer, br.light.Bytes())
}

func (br *BufferRegistry) UploadMaterial() error {
	return br.UpdateBuffer(br.MaterialBuffer, br.material.Bytes())
}

func (br *BufferRegistry) UploadAll() error {
	if err := br.UploadWVP(); err != nil {
		return err
	}
	if err := br.UploadLight(); err != nil {
		return err
	}
	return br.UploadMaterial()
}
