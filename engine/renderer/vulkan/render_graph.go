package vulkan

import (
	vk "github.com/goki/vulkan"
)

/** @brief Per-frame values handed to every FrameExtension hook. */
type FrameInfo struct {
	Slot      int
	DeltaTime float32
	Extent    vk.Extent2D
}

/**
 * @brief Extra GPU work recorded into the frame command buffer.
 * RecordPrePass runs before the shadow pass begins, RecordColorPass inside the colour pass
 * after the scene drawables.
 */
type FrameExtension interface {
	Name() string
	RecordPrePass(cb *VulkanCommandBuffer, frame FrameInfo)
	RecordColorPass(cb *VulkanCommandBuffer, frame FrameInfo)
	Destroy(context *VulkanContext)
}

// commandRecorder is the subset of vkCmd* calls the render graph issues.
type commandRecorder interface {
	CommandBuffer() *VulkanCommandBuffer
	BeginPass(pass *VulkanRenderpass, framebuffer *VulkanFramebuffer, extent vk.Extent2D)
	EndPass(pass *VulkanRenderpass)
	BindPipeline(pipeline *VulkanPipeline)
	SetViewportScissor(extent vk.Extent2D)
	BindDescriptorSet(pipeline *VulkanPipeline, set vk.DescriptorSet)
	Draw(drawable *Drawable, layout vk.PipelineLayout)
}

type vkRecorder struct {
	cb *VulkanCommandBuffer
}

func (r vkRecorder) CommandBuffer() *VulkanCommandBuffer { return r.cb }

func (r vkRecorder) BeginPass(pass *VulkanRenderpass, framebuffer *VulkanFramebuffer, extent vk.Extent2D) {
	pass.Begin(r.cb, framebuffer.Handle, extent)
}

func (r vkRecorder) EndPass(pass *VulkanRenderpass) {
	pass.End(r.cb)
}

func (r vkRecorder) BindPipeline(pipeline *VulkanPipeline) {
	pipeline.Bind(r.cb)
}

func (r vkRecorder) SetViewportScissor(extent vk.Extent2D) {
	cmdSetViewportScissor(r.cb, extent)
}

func (r vkRecorder) BindDescriptorSet(pipeline *VulkanPipeline, set vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(r.cb.Handle, pipeline.BindPoint, pipeline.PipelineLayout, 0, 1, []vk.DescriptorSet{set}, 0, nil)
}

func (r vkRecorder) Draw(drawable *Drawable, layout vk.PipelineLayout) {
	drawable.Draw(r.cb, layout)
}

func cmdSetViewportScissor(cb *VulkanCommandBuffer, extent vk.Extent2D) {
	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{scissor})
}

/**
 * @brief The fixed two-pass frame: every drawable into the shadow map from the
 * light's point of view, then every drawable into the multisampled colour target
 * that resolves into the swapchain image.
 */
type RenderGraph struct {
	ShadowPass     *VulkanRenderpass
	ColorPass      *VulkanRenderpass
	ShadowPipeline *VulkanPipeline
	Drawables      []*Drawable
	Extensions     []FrameExtension
}

// Record re-records the slot's command buffer for imageIndex.
func (g *RenderGraph) Record(slot *FrameSlot, swapchain *VulkanSwapchain, imageIndex uint32, deltaTime float32) error {
	cb := slot.CommandBuffer
	if err := cb.Reset(); err != nil {
		return err
	}
	if err := cb.Begin(false, false, false); err != nil {
		return err
	}
	frame := FrameInfo{Slot: slot.Index, DeltaTime: deltaTime, Extent: swapchain.Extent}
	g.record(vkRecorder{cb: cb}, slot, swapchain.ShadowFramebuffer, swapchain.Framebuffers[imageIndex], frame)
	return cb.End()
}

func (g *RenderGraph) record(rec commandRecorder, slot *FrameSlot, shadowFramebuffer, colorFramebuffer *VulkanFramebuffer, frame FrameInfo) {
	for _, ext := range g.Extensions {
		ext.RecordPrePass(rec.CommandBuffer(), frame)
	}

	rec.BeginPass(g.ShadowPass, shadowFramebuffer, frame.Extent)
	if len(g.Drawables) > 0 {
		rec.BindPipeline(g.ShadowPipeline)
		rec.SetViewportScissor(frame.Extent)
		rec.BindDescriptorSet(g.ShadowPipeline, slot.ShadowSet)
		for _, d := range g.Drawables {
			rec.Draw(d, g.ShadowPipeline.PipelineLayout)
		}
	}
	rec.EndPass(g.ShadowPass)

	rec.BeginPass(g.ColorPass, colorFramebuffer, frame.Extent)
	var bound *VulkanPipeline
	for _, d := range g.Drawables {
		if d.Pipeline != bound {
			rec.BindPipeline(d.Pipeline)
			rec.SetViewportScissor(frame.Extent)
			bound = d.Pipeline
		}
		rec.BindDescriptorSet(d.Pipeline, d.ColorSets[slot.Index])
		rec.Draw(d, d.Pipeline.PipelineLayout)
	}
	for _, ext := range g.Extensions {
		ext.RecordColorPass(rec.CommandBuffer(), frame)
	}
	rec.EndPass(g.ColorPass)
}

// Remove drops the drawable with the given name and returns it, or nil.
func (g *RenderGraph) Remove(name string) *Drawable {
	for i, d := range g.Drawables {
		if d.Name == name {
			g.Drawables = append(g.Drawables[:i], g.Drawables[i+1:]...)
			return d
		}
	}
	return nil
}
