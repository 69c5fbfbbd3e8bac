package systems

import (
	"fmt"

	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer"
)

const (
	DefaultVertexShaderPath = "shaders/VertexShader.spv"
	DefaultPixelShaderPath  = "shaders/PixelShader.spv"
)

// BytecodeLoader reads precompiled shader binaries.
type BytecodeLoader interface {
	LoadBytecode(path string) ([]byte, error)
}

/** @brief The vertex layout of math.Vertex3D: position, texcoord, normal. */
var QuadInputElements = []renderer.InputElementDesc{
	{SemanticName: "POSITION", Format: renderer.FormatR32G32B32Float, AlignedByteOffset: 0, InputSlotClass: renderer.InputPerVertexData},
	{SemanticName: "TEXCOORD", Format: renderer.FormatR32G32Float, AlignedByteOffset: renderer.AppendAlignedElement, InputSlotClass: renderer.InputPerVertexData},
	{SemanticName: "NORMAL", Format: renderer.FormatR32G32B32Float, AlignedByteOffset: renderer.AppendAlignedElement, InputSlotClass: renderer.InputPerVertexData},
}

type PipelineConfig struct {
	VertexShaderPath string
	PixelShaderPath  string
}

type PipelineBuilder struct {
	config *PipelineConfig
	device *GraphicsDevice
	loader BytecodeLoader

	VertexShader renderer.VertexShader
	PixelShader  renderer.PixelShader
	InputLayout  renderer.InputLayout
	Sampler      renderer.SamplerState
	Topology     renderer.PrimitiveTopology
}

func NewPipelineBuilder(config *PipelineConfig, gd *GraphicsDevice, loader BytecodeLoader) *PipelineBuilder {
	if config.VertexShaderPath == "" {
		config.VertexShaderPath = DefaultVertexShaderPath
	}
	if config.PixelShaderPath == "" {
		config.PixelShaderPath = DefaultPixelShaderPath
	}
	return &PipelineBuilder{
		config: config,
		device: gd,
		loader: loader,
	}
}

func pipelineError(step string, err error) error {
	e := fmt.Errorf("%w: %s: %w", core.ErrPipelineSetup, step, err)
	core.LogError(e.Error())
	return e
}

/**
 * @brief Loads both shader binaries and creates the vertex shader, the input
 * layout (validated against the vertex shader bytecode) and the pixel shader.
 */
func (pb *PipelineBuilder) CreateShaders() error {
	arena := pb.device.Arena()

	vsBytecode, err := pb.loader.LoadBytecode(pb.config.VertexShaderPath)
	if err != nil {
		return pipelineError("read "+pb.config.VertexShaderPath, err)
	}
	vs, err := pb.device.Device.CreateVertexShader(vsBytecode)
	if err != nil {
		return pipelineError("vertex shader", err)
	}
	pb.VertexShader = vs
	arena.Track("vertex shader", vs)

	layout, err := pb.device.Device.CreateInputLayout(QuadInputElements, vsBytecode)
	if err != nil {
		return pipelineError("input layout", err)
	}
	pb.InputLayout = layout
	arena.Track("input layout", layout)

	psBytecode, err := pb.loader.LoadBytecode(pb.config.PixelShaderPath)
	if err != nil {
		return pipelineError("read "+pb.config.PixelShaderPath, err)
	}
	ps, err := pb.device.Device.CreatePixelShader(psBytecode)
	if err != nil {
		return pipelineError("pixel shader", err)
	}
	pb.PixelShader = ps
	arena.Track("pixel shader", ps)

	core.LogDebug("shaders created from %s and %s", pb.config.VertexShaderPath, pb.config.PixelShaderPath)
	return nil
}

func (pb *PipelineBuilder) SetTopology(topology renderer.PrimitiveTopology) {
	pb.Topology = topology
}

// CreateSampler creates the anisotropic wrap sampler used for the quad texture.
func (pb *PipelineBuilder) CreateSampler() error {
	sampler, err := pb.device.Device.CreateSamplerState(&renderer.SamplerDesc{
		Filter:         renderer.FilterAnisotropic,
		AddressU:       renderer.AddressWrap,
		AddressV:       renderer.AddressWrap,
		AddressW:       renderer.AddressWrap,
		MipLODBias:     0.0,
		MaxAnisotropy:  16,
		ComparisonFunc: renderer.ComparisonNever,
		MinLOD:         0.0,
		MaxLOD:         renderer.Float32Max,
	})
	if err != nil {
		return pipelineError("sampler state", err)
	}
	pb.Sampler = sampler
	pb.device.Arena().Track("sampler state", sampler)
	return nil
}
