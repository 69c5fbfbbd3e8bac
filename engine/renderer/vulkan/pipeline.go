package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer"
)

/**
 * @brief Holds a Vulkan pipeline. The layout is shared and owned by the
 * immediate context.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
}

type VulkanPipelineConfig struct {
	/** @brief The renderpass the pipeline is used in. */
	Renderpass *VulkanRenderpass
	/** @brief The shared pipeline layout. */
	Layout vk.PipelineLayout
	/** @brief The stride of one vertex. */
	Stride uint32
	/** @brief One attribute per input element, location = element index. */
	Attributes []vk.VertexInputAttributeDescription
	/** @brief Vertex and fragment stages. */
	Stages []vk.PipelineShaderStageCreateInfo
	Rasterizer   renderer.RasterizerDesc
	DepthStencil renderer.DepthStencilDesc
}

// pipelineKey identifies the bound objects a pipeline was baked from.
type pipelineKey struct {
	vertexShader *VertexShader
	pixelShader  *PixelShader
	inputLayout  *InputLayout
	rasterizer   *RasterizerState
	depthStencil *DepthStencilState
}

func PipelineLayoutCreate(context *VulkanContext, setLayouts []vk.DescriptorSetLayout) (vk.PipelineLayout, error) {
	createInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}
	var layout vk.PipelineLayout
	err := context.Locks.SafeCall(PipelineManagement, func() error {
		return check("vkCreatePipelineLayout", vk.CreatePipelineLayout(context.Device.LogicalDevice, &createInfo, context.Allocator, &layout))
	})
	return layout, err
}

func stencilOpState(face renderer.DepthStencilOpDesc, desc *renderer.DepthStencilDesc) vk.StencilOpState {
	return vk.StencilOpState{
		FailOp:      vkStencilOp(face.StencilFailOp),
		PassOp:      vkStencilOp(face.StencilPassOp),
		DepthFailOp: vkStencilOp(face.StencilDepthFailOp),
		CompareOp:   vkCompareOp(face.StencilFunc),
		CompareMask: uint32(desc.StencilReadMask),
		WriteMask:   uint32(desc.StencilWriteMask),
		// set per draw through the dynamic stencil reference
		Reference: 0,
	}
}

func NewGraphicsPipeline(context *VulkanContext, config *VulkanPipelineConfig) (*VulkanPipeline, error) {
	if config.Renderpass == nil || len(config.Stages) != 2 {
		return nil, fmt.Errorf("pipeline needs a renderpass and two stages: %w", core.ErrInvalidUsage)
	}

	// viewport and scissor are dynamic, only the counts matter
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rs := config.Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vkPolygonMode(rs.FillMode),
		LineWidth:               1.0,
		CullMode:                vkCullMode(rs.CullMode),
		FrontFace:               vkFrontFace(rs.FrontCounterClockwise),
		DepthBiasEnable:         vk.False,
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	ds := config.DepthStencil
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vk.False,
		DepthWriteEnable:      vk.False,
		DepthCompareOp:        vkCompareOp(ds.DepthFunc),
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vk.False,
		Front:                 stencilOpState(ds.FrontFace, &ds),
		Back:                  stencilOpState(ds.BackFace, &ds),
		MinDepthBounds:        0.0,
		MaxDepthBounds:        1.0,
	}
	if ds.DepthEnable {
		depthStencil.DepthTestEnable = vk.True
	}
	if ds.DepthWriteMask == renderer.DepthWriteMaskAll {
		depthStencil.DepthWriteEnable = vk.True
	}
	if ds.StencilEnable {
		depthStencil.StencilTestEnable = vk.True
	}

	colourBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	colourBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colourBlendAttachmentState},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
		vk.DynamicStateStencilReference,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	bindingDescription := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    config.Stride,
		InputRate: vk.VertexInputRateVertex,
	}
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{bindingDescription},
		VertexAttributeDescriptionCount: uint32(len(config.Attributes)),
		PVertexAttributeDescriptions:    config.Attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(config.Stages)),
		PStages:             config.Stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colourBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              config.Layout,
		RenderPass:          config.Renderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := context.Locks.SafeCall(PipelineManagement, func() error {
		return check("vkCreateGraphicsPipelines", vk.CreateGraphicsPipelines(
			context.Device.LogicalDevice,
			vk.NullPipelineCache,
			1,
			[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
			context.Allocator,
			pipelines))
	}); err != nil {
		return nil, err
	}

	core.LogDebug("Graphics pipeline created!")
	return &VulkanPipeline{Handle: pipelines[0]}, nil
}

func (pipeline *VulkanPipeline) Destroy(context *VulkanContext) {
	if pipeline.Handle == vk.NullPipeline {
		return
	}
	_ = context.Locks.SafeCall(PipelineManagement, func() error {
		vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
		pipeline.Handle = vk.NullPipeline
		return nil
	})
}

func (pipeline *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer) {
	vk.CmdBindPipeline(commandBuffer.Handle, vk.PipelineBindPointGraphics, pipeline.Handle)
}
