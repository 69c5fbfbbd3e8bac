package renderer

import (
	"fmt"
	m "math"

	"github.com/spaghettifunk/quadcore/engine/core"
)

/** @brief Pixel and element formats understood by the backends. */
type Format uint32

const (
	FormatUnknown Format = iota
	FormatR8G8B8A8Unorm
	FormatD24UnormS8Uint
	FormatR32Uint
	FormatR32G32Float
	FormatR32G32B32Float
	FormatR32G32B32A32Float
)

/** @brief Returns the size in bytes of a single element of the given format. */
func FormatSize(format Format) uint32 {
	switch format {
	case FormatR8G8B8A8Unorm, FormatD24UnormS8Uint, FormatR32Uint:
		return 4
	case FormatR32G32Float:
		return 8
	case FormatR32G32B32Float:
		return 12
	case FormatR32G32B32A32Float:
		return 16
	}
	return 0
}

func (f Format) String() string {
	switch f {
	case FormatR8G8B8A8Unorm:
		return "R8G8B8A8_UNORM"
	case FormatD24UnormS8Uint:
		return "D24_UNORM_S8_UINT"
	case FormatR32Uint:
		return "R32_UINT"
	case FormatR32G32Float:
		return "R32G32_FLOAT"
	case FormatR32G32B32Float:
		return "R32G32B32_FLOAT"
	case FormatR32G32B32A32Float:
		return "R32G32B32A32_FLOAT"
	}
	return "UNKNOWN"
}

type Usage uint8

const (
	/** @brief GPU read/write. */
	UsageDefault Usage = iota
	/** @brief GPU read only, contents fixed at creation. */
	UsageImmutable
	/** @brief GPU read, CPU write through Map. */
	UsageDynamic
)

type BindFlag uint32

const (
	BindVertexBuffer   BindFlag = 0x1
	BindIndexBuffer    BindFlag = 0x2
	BindConstantBuffer BindFlag = 0x4
	BindShaderResource BindFlag = 0x8
	BindRenderTarget   BindFlag = 0x20
	BindDepthStencil   BindFlag = 0x40
)

type CPUAccessFlag uint32

const (
	CPUAccessWrite CPUAccessFlag = 0x10000
	CPUAccessRead  CPUAccessFlag = 0x20000
)

type MapType uint8

const (
	MapRead         MapType = 1
	MapWriteDiscard MapType = 4
)

type ClearFlag uint8

const (
	ClearDepth   ClearFlag = 0x1
	ClearStencil ClearFlag = 0x2
)

type PrimitiveTopology uint8

const (
	TopologyUndefined PrimitiveTopology = iota
	TopologyTriangleList
)

type FillMode uint8

const (
	FillSolid FillMode = iota
	FillWireframe
)

type CullMode uint8

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

type ComparisonFunc uint8

const (
	ComparisonNever ComparisonFunc = iota
	ComparisonLess
	ComparisonEqual
	ComparisonLessEqual
	ComparisonGreater
	ComparisonNotEqual
	ComparisonGreaterEqual
	ComparisonAlways
)

type StencilOp uint8

const (
	StencilOpKeep StencilOp = iota
	StencilOpZero
	StencilOpReplace
	StencilOpIncrSat
	StencilOpDecrSat
	StencilOpInvert
	StencilOpIncr
	StencilOpDecr
)

type DepthWriteMask uint8

const (
	DepthWriteMaskZero DepthWriteMask = iota
	DepthWriteMaskAll
)

type Filter uint8

const (
	FilterMinMagMipPoint Filter = iota
	FilterMinMagMipLinear
	FilterAnisotropic
)

type TextureAddressMode uint8

const (
	AddressWrap TextureAddressMode = iota
	AddressMirror
	AddressClamp
	AddressBorder
)

type SwapEffect uint8

const (
	SwapEffectDiscard SwapEffect = iota
	SwapEffectSequential
)

type InputClassification uint8

const (
	InputPerVertexData InputClassification = iota
	InputPerInstanceData
)

const (
	/** @brief Places an input element directly after the previous one. */
	AppendAlignedElement uint32 = 0xffffffff
	/** @brief Unbounded level of detail for samplers. */
	Float32Max float32 = m.MaxFloat32
)

/** @brief Describes the swapchain created together with the device. */
type SwapChainDesc struct {
	Width       uint32
	Height      uint32
	Format      Format
	BufferCount uint32
	SampleCount uint32
	Windowed    bool
	SwapEffect  SwapEffect
	/** @brief Present waits for the vertical blank when set. */
	VSync bool
}

type BufferDesc struct {
	ByteWidth      uint32
	Usage          Usage
	BindFlags      BindFlag
	CPUAccessFlags CPUAccessFlag
}

/** @brief Initial contents for a buffer or texture. */
type SubresourceData struct {
	SysMem []byte
	/** @brief Bytes per row. Only meaningful for textures. */
	SysMemPitch uint32
}

type Texture2DDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         Format
	SampleCount    uint32
	Usage          Usage
	BindFlags      BindFlag
	CPUAccessFlags CPUAccessFlag
}

type RasterizerDesc struct {
	FillMode              FillMode
	CullMode              CullMode
	FrontCounterClockwise bool
	DepthClipEnable       bool
	ScissorEnable         bool
	MultisampleEnable     bool
	AntialiasedLineEnable bool
}

type DepthStencilOpDesc struct {
	StencilFailOp      StencilOp
	StencilDepthFailOp StencilOp
	StencilPassOp      StencilOp
	StencilFunc        ComparisonFunc
}

type DepthStencilDesc struct {
	DepthEnable      bool
	DepthWriteMask   DepthWriteMask
	DepthFunc        ComparisonFunc
	StencilEnable    bool
	StencilReadMask  uint8
	StencilWriteMask uint8
	FrontFace        DepthStencilOpDesc
	BackFace         DepthStencilOpDesc
}

type Viewport struct {
	TopLeftX float32
	TopLeftY float32
	Width    float32
	Height   float32
	MinDepth float32
	MaxDepth float32
}

type InputElementDesc struct {
	SemanticName         string
	SemanticIndex        uint32
	Format               Format
	InputSlot            uint32
	AlignedByteOffset    uint32
	InputSlotClass       InputClassification
	InstanceDataStepRate uint32
}

type SamplerDesc struct {
	Filter         Filter
	AddressU       TextureAddressMode
	AddressV       TextureAddressMode
	AddressW       TextureAddressMode
	MipLODBias     float32
	MaxAnisotropy  uint32
	ComparisonFunc ComparisonFunc
	BorderColor    [4]float32
	MinLOD         float32
	MaxLOD         float32
}

/**
 * @brief Resolves AppendAlignedElement offsets and returns the absolute offset
 * of every element together with the vertex stride of slot 0.
 */
func ResolveInputLayout(elements []InputElementDesc) ([]uint32, uint32, error) {
	if len(elements) == 0 {
		return nil, 0, fmt.Errorf("input layout has no elements: %w", core.ErrInvalidUsage)
	}
	offsets := make([]uint32, len(elements))
	var cursor, stride uint32
	for i, e := range elements {
		size := FormatSize(e.Format)
		if size == 0 {
			return nil, 0, fmt.Errorf("element %s has unsupported format %s: %w", e.SemanticName, e.Format, core.ErrInvalidUsage)
		}
		offset := e.AlignedByteOffset
		if offset == AppendAlignedElement {
			offset = cursor
		}
		offsets[i] = offset
		cursor = offset + size
		if cursor > stride {
			stride = cursor
		}
	}
	return offsets, stride, nil
}
