package vulkan

import (
	"fmt"
	"reflect"
	"testing"

	vk "github.com/goki/vulkan"
)

type loggingRecorder struct {
	names map[any]string
	log   []string
}

func (r *loggingRecorder) name(v any) string {
	if n, ok := r.names[v]; ok {
		return n
	}
	return "?"
}

func (r *loggingRecorder) CommandBuffer() *VulkanCommandBuffer { return nil }

func (r *loggingRecorder) BeginPass(pass *VulkanRenderpass, framebuffer *VulkanFramebuffer, extent vk.Extent2D) {
	r.log = append(r.log, fmt.Sprintf("begin %s %s %dx%d", r.name(pass), r.name(framebuffer), extent.Width, extent.Height))
}

func (r *loggingRecorder) EndPass(pass *VulkanRenderpass) {
	r.log = append(r.log, "end "+r.name(pass))
}

func (r *loggingRecorder) BindPipeline(pipeline *VulkanPipeline) {
	r.log = append(r.log, "pipeline "+r.name(pipeline))
}

func (r *loggingRecorder) SetViewportScissor(extent vk.Extent2D) {
	r.log = append(r.log, "viewport")
}

func (r *loggingRecorder) BindDescriptorSet(pipeline *VulkanPipeline, set vk.DescriptorSet) {
	r.log = append(r.log, "set "+r.name(pipeline))
}

func (r *loggingRecorder) Draw(drawable *Drawable, layout vk.PipelineLayout) {
	r.log = append(r.log, "draw "+drawable.Name)
}

type loggingExtension struct {
	rec *loggingRecorder
}

func (e loggingExtension) Name() string { return "particles" }

func (e loggingExtension) RecordPrePass(cb *VulkanCommandBuffer, frame FrameInfo) {
	e.rec.log = append(e.rec.log, fmt.Sprintf("prepass slot=%d", frame.Slot))
}

func (e loggingExtension) RecordColorPass(cb *VulkanCommandBuffer, frame FrameInfo) {
	e.rec.log = append(e.rec.log, fmt.Sprintf("overlay slot=%d", frame.Slot))
}

func (e loggingExtension) Destroy(context *VulkanContext) {}

type graphFixture struct {
	graph       *RenderGraph
	rec         *loggingRecorder
	shadowFB    *VulkanFramebuffer
	colorFB     *VulkanFramebuffer
	scene, wire *VulkanPipeline
}

func newGraphFixture() *graphFixture {
	f := &graphFixture{
		shadowFB: &VulkanFramebuffer{},
		colorFB:  &VulkanFramebuffer{},
		scene:    &VulkanPipeline{},
		wire:     &VulkanPipeline{},
	}
	f.graph = &RenderGraph{
		ShadowPass:     &VulkanRenderpass{},
		ColorPass:      &VulkanRenderpass{},
		ShadowPipeline: &VulkanPipeline{},
	}
	f.rec = &loggingRecorder{names: map[any]string{
		f.graph.ShadowPass:     "shadow",
		f.graph.ColorPass:      "color",
		f.graph.ShadowPipeline: "shadow-pipeline",
		f.shadowFB:             "shadow-fb",
		f.colorFB:              "swap-fb",
		f.scene:                "scene",
		f.wire:                 "wire",
	}}
	return f
}

func (f *graphFixture) drawable(name string, pipeline *VulkanPipeline) *Drawable {
	return &Drawable{Name: name, Pipeline: pipeline, ColorSets: make([]vk.DescriptorSet, 2)}
}

func TestRenderGraphShadowBeforeColor(t *testing.T) {
	f := newGraphFixture()
	f.graph.Drawables = []*Drawable{f.drawable("cube", f.scene), f.drawable("plane", f.scene)}

	slot := &FrameSlot{Index: 1}
	f.graph.record(f.rec, slot, f.shadowFB, f.colorFB, FrameInfo{Slot: 1, Extent: vk.Extent2D{Width: 800, Height: 600}})

	want := []string{
		"begin shadow shadow-fb 800x600",
		"pipeline shadow-pipeline",
		"viewport",
		"set shadow-pipeline",
		"draw cube",
		"draw plane",
		"end shadow",
		"begin color swap-fb 800x600",
		"pipeline scene",
		"viewport",
		"set scene",
		"draw cube",
		"set scene",
		"draw plane",
		"end color",
	}
	if !reflect.DeepEqual(f.rec.log, want) {
		t.Fatalf("recorded\n%v\nwant\n%v", f.rec.log, want)
	}
}

func TestRenderGraphRebindsOnPipelineChange(t *testing.T) {
	f := newGraphFixture()
	f.graph.Drawables = []*Drawable{f.drawable("a", f.scene), f.drawable("b", f.wire), f.drawable("c", f.wire)}

	f.graph.record(f.rec, &FrameSlot{}, f.shadowFB, f.colorFB, FrameInfo{Extent: vk.Extent2D{Width: 1, Height: 1}})

	binds := 0
	for _, entry := range f.rec.log {
		if entry == "pipeline scene" || entry == "pipeline wire" {
			binds++
		}
	}
	if binds != 2 {
		t.Fatalf("colour pass bound %d pipelines, want 2: %v", binds, f.rec.log)
	}
}

func TestRenderGraphEmptySceneStillClears(t *testing.T) {
	f := newGraphFixture()
	f.graph.record(f.rec, &FrameSlot{}, f.shadowFB, f.colorFB, FrameInfo{Extent: vk.Extent2D{Width: 4, Height: 4}})

	want := []string{"begin shadow shadow-fb 4x4", "end shadow", "begin color swap-fb 4x4", "end color"}
	if !reflect.DeepEqual(f.rec.log, want) {
		t.Fatalf("recorded %v, want %v", f.rec.log, want)
	}
}

func TestRenderGraphExtensionHooks(t *testing.T) {
	f := newGraphFixture()
	f.graph.Drawables = []*Drawable{f.drawable("cube", f.scene)}
	f.graph.Extensions = []FrameExtension{loggingExtension{rec: f.rec}}

	f.graph.record(f.rec, &FrameSlot{Index: 0}, f.shadowFB, f.colorFB, FrameInfo{Extent: vk.Extent2D{Width: 2, Height: 2}})

	log := f.rec.log
	if log[0] != "prepass slot=0" {
		t.Fatalf("pre-pass hook not first: %v", log)
	}
	if log[len(log)-2] != "overlay slot=0" || log[len(log)-1] != "end color" {
		t.Fatalf("colour hook not last inside colour pass: %v", log)
	}
}

func TestRenderGraphRemove(t *testing.T) {
	f := newGraphFixture()
	f.graph.Drawables = []*Drawable{f.drawable("a", f.scene), f.drawable("b", f.scene)}

	if d := f.graph.Remove("a"); d == nil || d.Name != "a" {
		t.Fatalf("Remove(a) = %v", d)
	}
	if d := f.graph.Remove("missing"); d != nil {
		t.Fatalf("Remove(missing) = %v", d)
	}
	if len(f.graph.Drawables) != 1 || f.graph.Drawables[0].Name != "b" {
		t.Fatalf("drawables after remove: %v", f.graph.Drawables)
	}
}
