package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/quadcore/engine/renderer"
)

const (
	/** @brief Frames recorded ahead of the GPU. Present blocks on the previous one. */
	maxFramesInFlight = 1

	/** @brief SPIR-V magic number, first word of every module. */
	spirvMagic uint32 = 0x07230203

	/** @brief Wait forever on fences and image acquisition. */
	noTimeout = ^uint64(0)
)

// Descriptor bindings of the single descriptor set, matching assets/shaders.
const (
	bindingWVP uint32 = iota
	bindingLight
	bindingMaterial
	bindingTexture
	bindingSampler
	bindingCount
)

// constantBufferBinding maps a D3D-style constant buffer slot to a binding.
func constantBufferBinding(pixelStage bool, slot uint32) (uint32, bool) {
	if !pixelStage {
		return bindingWVP, slot == 0
	}
	switch slot {
	case 0:
		return bindingLight, true
	case 1:
		return bindingMaterial, true
	}
	return 0, false
}

func vkFormat(f renderer.Format) vk.Format {
	switch f {
	case renderer.FormatR8G8B8A8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case renderer.FormatD24UnormS8Uint:
		return vk.FormatD24UnormS8Uint
	case renderer.FormatR32Uint:
		return vk.FormatR32Uint
	case renderer.FormatR32G32Float:
		return vk.FormatR32g32Sfloat
	case renderer.FormatR32G32B32Float:
		return vk.FormatR32g32b32Sfloat
	case renderer.FormatR32G32B32A32Float:
		return vk.FormatR32g32b32a32Sfloat
	}
	return vk.FormatUndefined
}

func vkCompareOp(c renderer.ComparisonFunc) vk.CompareOp {
	switch c {
	case renderer.ComparisonLess:
		return vk.CompareOpLess
	case renderer.ComparisonEqual:
		return vk.CompareOpEqual
	case renderer.ComparisonLessEqual:
		return vk.CompareOpLessOrEqual
	case renderer.ComparisonGreater:
		return vk.CompareOpGreater
	case renderer.ComparisonNotEqual:
		return vk.CompareOpNotEqual
	case renderer.ComparisonGreaterEqual:
		return vk.CompareOpGreaterOrEqual
	case renderer.ComparisonAlways:
		return vk.CompareOpAlways
	}
	return vk.CompareOpNever
}

func vkStencilOp(op renderer.StencilOp) vk.StencilOp {
	switch op {
	case renderer.StencilOpZero:
		return vk.StencilOpZero
	case renderer.StencilOpReplace:
		return vk.StencilOpReplace
	case renderer.StencilOpIncrSat:
		return vk.StencilOpIncrementAndClamp
	case renderer.StencilOpDecrSat:
		return vk.StencilOpDecrementAndClamp
	case renderer.StencilOpInvert:
		return vk.StencilOpInvert
	case renderer.StencilOpIncr:
		return vk.StencilOpIncrementAndWrap
	case renderer.StencilOpDecr:
		return vk.StencilOpDecrementAndWrap
	}
	return vk.StencilOpKeep
}

func vkCullMode(c renderer.CullMode) vk.CullModeFlags {
	switch c {
	case renderer.CullFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case renderer.CullBack:
		return vk.CullModeFlags(vk.CullModeBackBit)
	}
	return vk.CullModeFlags(vk.CullModeNone)
}

func vkPolygonMode(f renderer.FillMode) vk.PolygonMode {
	if f == renderer.FillWireframe {
		return vk.PolygonModeLine
	}
	return vk.PolygonModeFill
}

// vkFrontFace follows the D3D convention where clockwise is front by default.
func vkFrontFace(counterClockwise bool) vk.FrontFace {
	if counterClockwise {
		return vk.FrontFaceCounterClockwise
	}
	return vk.FrontFaceClockwise
}

func vkAddressMode(m renderer.TextureAddressMode) vk.SamplerAddressMode {
	switch m {
	case renderer.AddressMirror:
		return vk.SamplerAddressModeMirroredRepeat
	case renderer.AddressClamp:
		return vk.SamplerAddressModeClampToEdge
	case renderer.AddressBorder:
		return vk.SamplerAddressModeClampToBorder
	}
	return vk.SamplerAddressModeRepeat
}

func vkFilter(f renderer.Filter) (vk.Filter, vk.SamplerMipmapMode) {
	if f == renderer.FilterMinMagMipPoint {
		return vk.FilterNearest, vk.SamplerMipmapModeNearest
	}
	return vk.FilterLinear, vk.SamplerMipmapModeLinear
}

func vkPresentMode(vsync bool, available []vk.PresentMode) vk.PresentMode {
	if vsync {
		// FIFO is the only mode every implementation must support
		return vk.PresentModeFifo
	}
	for _, mode := range available {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	for _, mode := range available {
		if mode == vk.PresentModeImmediate {
			return mode
		}
	}
	return vk.PresentModeFifo
}
