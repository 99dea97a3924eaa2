package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestFixedFunctionStateColorPipeline(t *testing.T) {
	state := buildFixedFunctionState(PipelineSpec{Samples: vk.SampleCount4Bit})

	if state.inputAssembly.Topology != vk.PrimitiveTopologyTriangleList {
		t.Errorf("topology = %d, want triangle list", state.inputAssembly.Topology)
	}
	if state.rasterizer.CullMode != vk.CullModeFlags(vk.CullModeBackBit) || state.rasterizer.FrontFace != vk.FrontFaceCounterClockwise {
		t.Errorf("culling = %d/%d, want back/ccw", state.rasterizer.CullMode, state.rasterizer.FrontFace)
	}
	if state.depthStencil.DepthTestEnable != vk.True || state.depthStencil.DepthWriteEnable != vk.True ||
		state.depthStencil.DepthCompareOp != vk.CompareOpLess || state.depthStencil.StencilTestEnable != vk.False {
		t.Errorf("depth state = %+v", state.depthStencil)
	}
	if state.multisample.RasterizationSamples != vk.SampleCount4Bit || state.multisample.SampleShadingEnable != vk.True {
		t.Errorf("multisample = %+v", state.multisample)
	}
	if len(state.blend) != 1 {
		t.Fatalf("got %d blend attachments", len(state.blend))
	}
	b := state.blend[0]
	if b.BlendEnable != vk.True ||
		b.SrcColorBlendFactor != vk.BlendFactorSrcAlpha || b.DstColorBlendFactor != vk.BlendFactorOneMinusSrcAlpha ||
		b.SrcAlphaBlendFactor != vk.BlendFactorOne || b.DstAlphaBlendFactor != vk.BlendFactorZero {
		t.Errorf("blend = %+v", b)
	}

	dynamic := map[vk.DynamicState]bool{}
	for _, d := range state.dynamicStates {
		dynamic[d] = true
	}
	if !dynamic[vk.DynamicStateViewport] || !dynamic[vk.DynamicStateScissor] {
		t.Errorf("viewport and scissor must be dynamic: %v", state.dynamicStates)
	}
}

func TestFixedFunctionStateShadowPipeline(t *testing.T) {
	state := buildFixedFunctionState(PipelineSpec{DepthOnly: true})
	if len(state.blend) != 0 {
		t.Errorf("depth-only pipeline has %d blend attachments", len(state.blend))
	}
	if state.multisample.RasterizationSamples != vk.SampleCount1Bit {
		t.Errorf("unset samples = %d, want 1", state.multisample.RasterizationSamples)
	}
	if state.multisample.SampleShadingEnable != vk.False {
		t.Errorf("sample shading enabled on a single-sample pipeline")
	}
	if state.depthStencil.DepthWriteEnable != vk.True {
		t.Errorf("shadow pipeline must write depth")
	}
}

func TestFixedFunctionStateTopologyOverride(t *testing.T) {
	state := buildFixedFunctionState(PipelineSpec{PointList: true})
	if state.inputAssembly.Topology != vk.PrimitiveTopologyPointList {
		t.Errorf("topology = %d", state.inputAssembly.Topology)
	}
}

func TestPipelineSwapCommitsTogether(t *testing.T) {
	context := &VulkanContext{}
	oldShadow, oldScene := &VulkanShaderStage{}, &VulkanShaderStage{}
	newShadow, newScene := &VulkanShaderStage{}, &VulkanShaderStage{}
	shadow := &VulkanPipeline{BindPoint: vk.PipelineBindPointGraphics, spec: PipelineSpec{Stages: []*VulkanShaderStage{oldShadow}}}
	scene := &VulkanPipeline{BindPoint: vk.PipelineBindPointGraphics, spec: PipelineSpec{Stages: []*VulkanShaderStage{oldScene}}}

	var swap pipelineSwap
	swap.stage(shadow, &VulkanPipeline{BindPoint: vk.PipelineBindPointGraphics, spec: PipelineSpec{Stages: []*VulkanShaderStage{newShadow}}})
	swap.stage(scene, &VulkanPipeline{BindPoint: vk.PipelineBindPointGraphics, spec: PipelineSpec{Stages: []*VulkanShaderStage{newScene}}})
	swap.commit(context)

	if shadow.spec.Stages[0] != newShadow || scene.spec.Stages[0] != newScene {
		t.Fatalf("committed pipelines still use the old stages")
	}
	if len(swap.targets) != 0 || len(swap.next) != 0 {
		t.Errorf("swap not cleared after commit")
	}
}

func TestPipelineSwapDiscardKeepsLivePipelines(t *testing.T) {
	context := &VulkanContext{}
	oldShadow := &VulkanShaderStage{}
	shadow := &VulkanPipeline{BindPoint: vk.PipelineBindPointGraphics, spec: PipelineSpec{Stages: []*VulkanShaderStage{oldShadow}}}

	// The shadow pipeline was rebuilt but a later one failed.
	var swap pipelineSwap
	swap.stage(shadow, &VulkanPipeline{BindPoint: vk.PipelineBindPointGraphics, spec: PipelineSpec{Stages: []*VulkanShaderStage{{}}}})
	swap.discard(context)

	if shadow.spec.Stages[0] != oldShadow {
		t.Fatalf("discarded reload replaced the live shadow pipeline")
	}
	if len(swap.targets) != 0 {
		t.Errorf("swap not cleared after discard")
	}
}

func TestPrepareRejectsComputePipelines(t *testing.T) {
	compute := &VulkanPipeline{BindPoint: vk.PipelineBindPointCompute}
	if _, err := compute.Prepare(&VulkanContext{}, nil); err == nil {
		t.Fatal("compute pipeline prepared through the graphics path")
	}
}
