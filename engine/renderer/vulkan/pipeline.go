package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

/**
 * @brief Holds a Vulkan pipeline and its layout, plus the spec it was built from
 * so the pipeline can be rebuilt in place with new shader stages.
 */
type VulkanPipeline struct {
	Handle         vk.Pipeline
	PipelineLayout vk.PipelineLayout
	BindPoint      vk.PipelineBindPoint

	spec PipelineSpec
}

/**
 * @brief Everything that varies between the graphics pipelines the renderer builds.
 * Viewport and scissor are dynamic and set per draw.
 */
type PipelineSpec struct {
	Stages               []*VulkanShaderStage
	DescriptorSetLayouts []vk.DescriptorSetLayout
	PushConstantRanges   []vk.PushConstantRange
	Renderpass           *VulkanRenderpass
	Samples              vk.SampleCountFlagBits
	// Draw a point list instead of a triangle list.
	PointList  bool
	Stride     uint32
	Attributes []vk.VertexInputAttributeDescription
	// The render pass has no colour attachment.
	DepthOnly bool
}

// fixedFunctionState is the pipeline state derived from a spec, kept free of device calls.
type fixedFunctionState struct {
	inputAssembly vk.PipelineInputAssemblyStateCreateInfo
	rasterizer    vk.PipelineRasterizationStateCreateInfo
	multisample   vk.PipelineMultisampleStateCreateInfo
	depthStencil  vk.PipelineDepthStencilStateCreateInfo
	blend         []vk.PipelineColorBlendAttachmentState
	dynamicStates []vk.DynamicState
}

const minSampleShading float32 = 0.2

func buildFixedFunctionState(spec PipelineSpec) fixedFunctionState {
	samples := spec.Samples
	if samples == 0 {
		samples = vk.SampleCount1Bit
	}
	topology := vk.PrimitiveTopologyTriangleList
	if spec.PointList {
		topology = vk.PrimitiveTopologyPointList
	}

	state := fixedFunctionState{
		inputAssembly: vk.PipelineInputAssemblyStateCreateInfo{
			SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology:               topology,
			PrimitiveRestartEnable: vk.False,
		},
		// Projection flips Y, so outward faces wind counter-clockwise on screen.
		rasterizer: vk.PipelineRasterizationStateCreateInfo{
			SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
			DepthClampEnable:        vk.False,
			RasterizerDiscardEnable: vk.False,
			PolygonMode:             vk.PolygonModeFill,
			LineWidth:               1.0,
			CullMode:                vk.CullModeFlags(vk.CullModeBackBit),
			FrontFace:               vk.FrontFaceCounterClockwise,
			DepthBiasEnable:         vk.False,
		},
		multisample: vk.PipelineMultisampleStateCreateInfo{
			SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples:  samples,
			SampleShadingEnable:   vk.False,
			MinSampleShading:      1.0,
			AlphaToCoverageEnable: vk.False,
			AlphaToOneEnable:      vk.False,
		},
		depthStencil: vk.PipelineDepthStencilStateCreateInfo{
			SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:       vk.True,
			DepthWriteEnable:      vk.True,
			DepthCompareOp:        vk.CompareOpLess,
			DepthBoundsTestEnable: vk.False,
			StencilTestEnable:     vk.False,
		},
		dynamicStates: []vk.DynamicState{
			vk.DynamicStateViewport,
			vk.DynamicStateScissor,
		},
	}
	if samples != vk.SampleCount1Bit {
		state.multisample.SampleShadingEnable = vk.True
		state.multisample.MinSampleShading = minSampleShading
	}

	if !spec.DepthOnly {
		state.blend = []vk.PipelineColorBlendAttachmentState{{
			BlendEnable:         vk.True,
			SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
			DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
			ColorBlendOp:        vk.BlendOpAdd,
			SrcAlphaBlendFactor: vk.BlendFactorOne,
			DstAlphaBlendFactor: vk.BlendFactorZero,
			AlphaBlendOp:        vk.BlendOpAdd,
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
				vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
		}}
	}
	return state
}

func NewGraphicsPipeline(context *VulkanContext, spec PipelineSpec) (*VulkanPipeline, error) {
	pipeline := &VulkanPipeline{BindPoint: vk.PipelineBindPointGraphics, spec: spec}
	if err := pipeline.build(context); err != nil {
		pipeline.Destroy(context)
		return nil, err
	}
	core.LogDebug("Graphics pipeline created!")
	return pipeline, nil
}

/**
 * @brief Builds a replacement for the pipeline from new shader stages. The
 * pipeline itself is untouched until Commit.
 */
func (pipeline *VulkanPipeline) Prepare(context *VulkanContext, stages []*VulkanShaderStage) (*VulkanPipeline, error) {
	if pipeline.BindPoint != vk.PipelineBindPointGraphics {
		return nil, fmt.Errorf("only graphics pipelines can be rebuilt")
	}
	next := &VulkanPipeline{BindPoint: pipeline.BindPoint, spec: pipeline.spec}
	next.spec.Stages = stages
	if err := next.build(context); err != nil {
		next.Destroy(context)
		return nil, err
	}
	return next, nil
}

// Commit destroys the current pipeline and takes over next. The device must be idle.
func (pipeline *VulkanPipeline) Commit(context *VulkanContext, next *VulkanPipeline) {
	pipeline.Destroy(context)
	*pipeline = *next
	next.Handle = vk.NullPipeline
	next.PipelineLayout = vk.NullPipelineLayout
}

// pipelineSwap holds replacement pipelines so a reload swaps all of them or none.
type pipelineSwap struct {
	targets []*VulkanPipeline
	next    []*VulkanPipeline
}

func (s *pipelineSwap) stage(target, next *VulkanPipeline) {
	s.targets = append(s.targets, target)
	s.next = append(s.next, next)
}

func (s *pipelineSwap) commit(context *VulkanContext) {
	for i, target := range s.targets {
		target.Commit(context, s.next[i])
	}
	s.targets, s.next = nil, nil
}

// discard destroys every staged pipeline and leaves the live ones in place.
func (s *pipelineSwap) discard(context *VulkanContext) {
	for _, next := range s.next {
		next.Destroy(context)
	}
	s.targets, s.next = nil, nil
}

func (pipeline *VulkanPipeline) build(context *VulkanContext) error {
	spec := pipeline.spec
	state := buildFixedFunctionState(spec)

	// Viewport and scissor are dynamic; only the counts matter here.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(state.blend)),
		PAttachments:    state.blend,
	}

	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(state.dynamicStates)),
		PDynamicStates:    state.dynamicStates,
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	if spec.Stride > 0 {
		vertexInputInfo.VertexBindingDescriptionCount = 1
		vertexInputInfo.PVertexBindingDescriptions = []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    spec.Stride,
			InputRate: vk.VertexInputRateVertex,
		}}
		vertexInputInfo.VertexAttributeDescriptionCount = uint32(len(spec.Attributes))
		vertexInputInfo.PVertexAttributeDescriptions = spec.Attributes
	}

	if err := pipeline.createLayout(context, spec.DescriptorSetLayouts, spec.PushConstantRanges); err != nil {
		return err
	}

	stages := make([]vk.PipelineShaderStageCreateInfo, len(spec.Stages))
	for i, s := range spec.Stages {
		stages[i] = s.CreateInfo()
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &state.inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &state.rasterizer,
		PMultisampleState:   &state.multisample,
		PDepthStencilState:  &state.depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              pipeline.PipelineLayout,
		RenderPass:          spec.Renderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	return lockPool.SafeCall(PipelineManagement, func() error {
		result := vk.CreateGraphicsPipelines(context.Device.LogicalDevice, vk.NullPipelineCache, 1,
			[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, context.Allocator, pipelines)
		if !VulkanResultIsSuccess(result) {
			err := fmt.Errorf("vkCreateGraphicsPipelines failed with %s", VulkanResultString(result, true))
			core.LogError(err.Error())
			return err
		}
		pipeline.Handle = pipelines[0]
		return nil
	})
}

func (pipeline *VulkanPipeline) createLayout(context *VulkanContext, setLayouts []vk.DescriptorSetLayout, pushConstants []vk.PushConstantRange) error {
	// NOTE: 128 bytes is the only push constant size guaranteed by every device.
	var total uint32
	for _, r := range pushConstants {
		total += r.Size
	}
	if total > 128 {
		err := fmt.Errorf("push constant ranges total %d bytes, limit is 128", total)
		core.LogError(err.Error())
		return err
	}

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(setLayouts)),
		PSetLayouts:            setLayouts,
		PushConstantRangeCount: uint32(len(pushConstants)),
		PPushConstantRanges:    pushConstants,
	}

	return lockPool.SafeCall(PipelineManagement, func() error {
		result := vk.CreatePipelineLayout(context.Device.LogicalDevice, &pipelineLayoutCreateInfo, context.Allocator, &pipeline.PipelineLayout)
		if !VulkanResultIsSuccess(result) {
			err := fmt.Errorf("vkCreatePipelineLayout failed with %s", VulkanResultString(result, true))
			core.LogError(err.Error())
			return err
		}
		return nil
	})
}

func NewComputePipeline(context *VulkanContext, stage *VulkanShaderStage, setLayouts []vk.DescriptorSetLayout, pushConstants []vk.PushConstantRange) (*VulkanPipeline, error) {
	pipeline := &VulkanPipeline{BindPoint: vk.PipelineBindPointCompute}
	if err := pipeline.createLayout(context, setLayouts, pushConstants); err != nil {
		return nil, err
	}

	createInfo := vk.ComputePipelineCreateInfo{
		SType:              vk.StructureTypeComputePipelineCreateInfo,
		Stage:              stage.CreateInfo(),
		Layout:             pipeline.PipelineLayout,
		BasePipelineHandle: vk.NullPipeline,
		BasePipelineIndex:  -1,
	}
	pipelines := make([]vk.Pipeline, 1)
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		result := vk.CreateComputePipelines(context.Device.LogicalDevice, vk.NullPipelineCache, 1,
			[]vk.ComputePipelineCreateInfo{createInfo}, context.Allocator, pipelines)
		if !VulkanResultIsSuccess(result) {
			err := fmt.Errorf("vkCreateComputePipelines failed with %s", VulkanResultString(result, true))
			core.LogError(err.Error())
			return err
		}
		pipeline.Handle = pipelines[0]
		return nil
	}); err != nil {
		pipeline.Destroy(context)
		return nil, err
	}
	core.LogDebug("Compute pipeline created!")
	return pipeline, nil
}

func (pipeline *VulkanPipeline) Destroy(context *VulkanContext) {
	_ = lockPool.SafeCall(PipelineManagement, func() error {
		if pipeline.Handle != vk.NullPipeline {
			vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
			pipeline.Handle = vk.NullPipeline
		}
		if pipeline.PipelineLayout != vk.NullPipelineLayout {
			vk.DestroyPipelineLayout(context.Device.LogicalDevice, pipeline.PipelineLayout, context.Allocator)
			pipeline.PipelineLayout = vk.NullPipelineLayout
		}
		return nil
	})
}

func (pipeline *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer) {
	vk.CmdBindPipeline(commandBuffer.Handle, pipeline.BindPoint, pipeline.Handle)
}
