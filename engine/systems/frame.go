package systems

import (
	"fmt"

	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer"
	"github.com/spaghettifunk/quadcore/engine/renderer/metadata"
)

const DefaultRotationPeriod float32 = 6.0

type FrameControllerConfig struct {
	ClearColour [4]float32
	/** @brief Seconds for a full rotation sweep before the direction flips. */
	RotationPeriod float32
}

type FrameStats struct {
	Frames  uint64
	Draws   uint64
	Rebinds uint64
	Uploads uint64
}

/**
 * @brief Drives one frame: clear, animate, refresh the transform, rebind and
 * upload only what is dirty, draw.
 */
type FrameController struct {
	config    *FrameControllerConfig
	device    *GraphicsDevice
	pipeline  *PipelineBuilder
	meshes    *MeshFactory
	buffers   *BufferRegistry
	textures  *TextureCache
	transform *TransformState

	accumulated float32
	swapped     bool
	stateDirty  bool
	bufferDirty bool

	stats FrameStats
}

func NewFrameController(config *FrameControllerConfig, gd *GraphicsDevice, pb *PipelineBuilder, mf *MeshFactory, br *BufferRegistry, tc *TextureCache, ts *TransformState) *FrameController {
	if config.RotationPeriod <= 0 {
		config.RotationPeriod = DefaultRotationPeriod
	}
	fc := &FrameController{
		config:      config,
		device:      gd,
		pipeline:    pb,
		meshes:      mf,
		buffers:     br,
		textures:    tc,
		transform:   ts,
		stateDirty:  true,
		bufferDirty: true,
	}
	tc.SetStateDirtyHook(fc.MarkStateDirty)
	br.SetDataChangeHook(fc.MarkBufferDirty)
	mf.SetVertexChangeHook(fc.MarkBufferDirty)
	return fc
}

// MarkStateDirty forces every pipeline binding to be reissued next frame.
func (fc *FrameController) MarkStateDirty() {
	fc.stateDirty = true
}

// MarkBufferDirty forces vertex, light and material data to be re-uploaded.
func (fc *FrameController) MarkBufferDirty() {
	fc.bufferDirty = true
}

func (fc *FrameController) StateDirty() bool  { return fc.stateDirty }
func (fc *FrameController) BufferDirty() bool { return fc.bufferDirty }

func (fc *FrameController) Stats() FrameStats {
	return fc.stats
}

/**
 * @brief Advances the animation by dt seconds. Halfway through a period the
 * next inactive texture becomes active, once. At the end of a period the
 * rotation flips direction and the cycle restarts.
 */
func (fc *FrameController) Update(dt float32) error {
	period := fc.config.RotationPeriod
	fc.accumulated += dt

	if fc.accumulated >= period/2 && !fc.swapped {
		if next, ok := fc.textures.NextInactive(); ok {
			if err := fc.textures.SetActive(next); err != nil {
				return err
			}
		}
		fc.swapped = true
	}

	if fc.accumulated >= period && fc.transform.Rotating() {
		fc.transform.FlipDirection()
		fc.accumulated = 0
		fc.swapped = false
	}

	if fc.transform.Rotating() {
		fc.transform.RotateY(dt / period * fc.transform.RotationAngle())
	}
	return nil
}

func (fc *FrameController) bindState(view renderer.ShaderResourceView) {
	ctx := fc.device.Context

	fc.device.BindOutput()
	ctx.IASetPrimitiveTopology(fc.pipeline.Topology)

	ctx.VSSetShader(fc.pipeline.VertexShader)
	ctx.VSSetConstantBuffers(0, []renderer.Buffer{fc.buffers.WVPBuffer})

	ctx.IASetInputLayout(fc.pipeline.InputLayout)
	ctx.IASetVertexBuffers(0, []renderer.Buffer{fc.meshes.VertexBuffer}, []uint32{metadata.VertexSize}, []uint32{0})
	ctx.IASetIndexBuffer(fc.meshes.IndexBuffer, renderer.FormatR32Uint, 0)

	ctx.PSSetShader(fc.pipeline.PixelShader)
	ctx.PSSetConstantBuffers(0, []renderer.Buffer{fc.buffers.LightBuffer, fc.buffers.MaterialBuffer})
	ctx.PSSetShaderResources(0, []renderer.ShaderResourceView{view})
	ctx.PSSetSamplers(0, []renderer.SamplerState{fc.pipeline.Sampler})
}

// Render records one frame. Present is separate.
func (fc *FrameController) Render(dt float32) error {
	fc.device.Clear(fc.config.ClearColour)

	if err := fc.Update(dt); err != nil {
		return err
	}
	fc.transform.Refresh(&fc.buffers.WVP.World)

	view, err := fc.textures.GetActive()
	if err != nil {
		core.LogError("frame %d: %s", fc.stats.Frames, err)
		return err
	}

	if fc.stateDirty {
		fc.bindState(view)
		fc.stateDirty = false
		fc.stats.Rebinds++
	}

	if fc.bufferDirty {
		if err := fc.buffers.UpdateBuffer(fc.meshes.VertexBuffer, fc.meshes.Mesh.VertexBytes()); err != nil {
			return fmt.Errorf("vertex upload: %w", err)
		}
		if err := fc.buffers.UploadLight(); err != nil {
			return fmt.Errorf("light upload: %w", err)
		}
		if err := fc.buffers.UploadMaterial(); err != nil {
			return fmt.Errorf("material upload: %w", err)
		}
		fc.bufferDirty = false
		fc.stats.Uploads += 3
	}

	if err := fc.buffers.UploadWVP(); err != nil {
		return fmt.Errorf("wvp upload: %w", err)
	}
	fc.stats.Uploads++

	if err := fc.device.Context.DrawIndexed(fc.meshes.Mesh.IndexCount(), 0, 0); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	fc.stats.Draws++
	fc.stats.Frames++
	return nil
}

func (fc *FrameController) Present() error {
	return fc.device.Present()
}
