package vulkan

import (
	"context"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	lin "github.com/xlab/linmath"

	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

var _ renderer.Backend = (*VulkanRenderer)(nil)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

/** @brief What the renderer needs from the window system. */
type WindowSurface interface {
	RequiredInstanceExtensions() []string
	CreateVulkanSurface(instance vk.Instance) (vk.Surface, error)
	FramebufferSize() metadata.Extent
}

/**
 * @brief The Vulkan implementation of renderer.Backend. Owns the device, the
 * swapchain set, the frame slots and the two-pass render graph.
 */
type VulkanRenderer struct {
	config  metadata.RendererBackendConfig
	window  WindowSurface
	context *VulkanContext
	release ReleaseStack

	shadowPass     *VulkanRenderpass
	colorPass      *VulkanRenderpass
	swapchain      *VulkanSwapchain
	frames         *FrameResources
	graph          *RenderGraph
	shadowPipeline *VulkanPipeline
	scenePipeline  *VulkanPipeline
	texture        *VulkanTexture
	shadowSampler  vk.Sampler
	particles      *ParticleSystem

	lastTime  float32
	deltaTime float32

	FrameNumber uint64
}

func New(window WindowSurface, config metadata.RendererBackendConfig) *VulkanRenderer {
	if config.FramesInFlight == 0 {
		config.FramesInFlight = DefaultFramesInFlight
	}
	return &VulkanRenderer{
		config:  config,
		window:  window,
		context: &VulkanContext{Allocator: nil},
	}
}

func (vr *VulkanRenderer) Context() *VulkanContext {
	return vr.context
}

/**
 * @brief Brings the whole GPU side up: instance, surface, device, render passes,
 * swapchain set, frame slots, texture, pipelines and the optional particle system.
 * Every resource is registered for release as soon as it exists, so a failure
 * half-way can be cleaned up with Shutdown.
 */
func (vr *VulkanRenderer) Initialize() error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("GetInstanceProcAddress is nil")
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	if err := vr.createInstance(); err != nil {
		return err
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.window.CreateVulkanSurface(vr.context.Instance)
	if err != nil {
		core.LogError("Failed to create platform surface: %s", err)
		return err
	}
	vr.context.Surface = surface
	vr.release.Push("surface", func() {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = vk.NullSurface
	})
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(vr.context, vr.config.MSAASamples); err != nil {
		return err
	}
	vr.release.Push("device", func() { DeviceDestroy(vr.context) })

	if err := vr.createRenderpasses(); err != nil {
		return err
	}

	extent := vr.window.FramebufferSize()
	format := ChooseSurfaceFormat(vr.context.Device.SwapchainSupport.Formats)
	vr.swapchain, err = SwapchainCreate(vr.context, extent.Width, extent.Height, format, vr.config.VSync, vr.shadowPass, vr.colorPass)
	if err != nil {
		return err
	}
	vr.release.Push("swapchain", func() { vr.swapchain.Destroy(vr.context) })

	vr.frames, err = NewFrameResources(vr.context, int(vr.config.FramesInFlight))
	if err != nil {
		return err
	}
	vr.release.Push("frame slots", func() { vr.frames.Destroy(vr.context) })

	if err := vr.createSamplingResources(); err != nil {
		return err
	}

	if err := vr.createPipelines(vr.config.Shaders); err != nil {
		return err
	}

	vr.graph = &RenderGraph{
		ShadowPass:     vr.shadowPass,
		ColorPass:      vr.colorPass,
		ShadowPipeline: vr.shadowPipeline,
	}
	vr.release.Push("drawables", func() {
		for _, d := range vr.graph.Drawables {
			d.Destroy(vr.context)
		}
		vr.graph.Drawables = nil
	})

	if err := vr.createExtensions(); err != nil {
		return err
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) createInstance() error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(vr.config.ApplicationName),
		PEngineName:        VulkanSafeString("Penumbra"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	extensions := append([]string{}, vr.window.RequiredInstanceExtensions()...)
	if runtime.GOOS == "darwin" {
		extensions = append(extensions, "VK_KHR_portability_enumeration", "VK_KHR_get_physical_device_properties2")
		createInfo.Flags |= 1 // VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
	}

	var layers []string
	if vr.config.Debug {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
		layers = []string{validationLayerName}

		core.LogInfo("Validation layers enabled. Enumerating...")
		available, err := availableLayers()
		if err != nil {
			return err
		}
		if missing := missingLayers(layers, available); len(missing) > 0 {
			err := fmt.Errorf("required validation layers are missing: %v", missing)
			core.LogError(err.Error())
			return err
		}
		core.LogInfo("All required validation layers are present.")
	}
	core.LogDebug("Required extensions: %v", extensions)

	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		err := fmt.Errorf("failed in creating the Vulkan Instance with error `%s`", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	vr.release.Push("instance", func() {
		vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
		vr.context.Instance = nil
	})
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan Instance created.")

	if !vr.config.Debug {
		return nil
	}

	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var dbg vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
		core.LogError("vk.CreateDebugReportCallback failed with %s", err)
		return err
	}
	vr.context.debugMessenger = dbg
	vr.release.Push("debug callback", func() {
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
		vr.context.debugMessenger = vk.NullDebugReportCallback
	})
	core.LogDebug("Vulkan debugger created.")
	return nil
}

func availableLayers() ([]string, error) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return nil, fmt.Errorf("vkEnumerateInstanceLayerProperties failed with %s", VulkanResultString(res, true))
	}
	properties := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, properties); res != vk.Success {
		return nil, fmt.Errorf("vkEnumerateInstanceLayerProperties failed with %s", VulkanResultString(res, true))
	}
	names := make([]string, 0, count)
	for i := range properties {
		properties[i].Deref()
		end := FindFirstZeroInByteArray(properties[i].LayerName[:])
		names = append(names, vk.ToString(properties[i].LayerName[:end+1]))
	}
	return names, nil
}

// missingLayers returns the entries of required that are not in available.
func missingLayers(required, available []string) []string {
	have := make(map[string]struct{}, len(available))
	for _, name := range available {
		have[name] = struct{}{}
	}
	var missing []string
	for _, name := range required {
		if _, ok := have[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func (vr *VulkanRenderer) createRenderpasses() error {
	var err error
	if vr.shadowPass, err = NewShadowRenderpass(vr.context); err != nil {
		return err
	}
	vr.release.Push("shadow render pass", func() { vr.shadowPass.Destroy(vr.context) })

	format := ChooseSurfaceFormat(vr.context.Device.SwapchainSupport.Formats)
	if vr.colorPass, err = NewColorRenderpass(vr.context, format.Format); err != nil {
		return err
	}
	vr.release.Push("colour render pass", func() { vr.colorPass.Destroy(vr.context) })
	return nil
}

func (vr *VulkanRenderer) createSamplingResources() error {
	var err error
	if vr.texture, err = NewTexture(vr.context, vr.config.Texture); err != nil {
		return err
	}
	vr.release.Push("texture", func() { vr.texture.Destroy(vr.context) })

	if vr.shadowSampler, err = NewShadowSampler(vr.context); err != nil {
		return err
	}
	vr.release.Push("shadow sampler", func() { DestroySampler(vr.context, vr.shadowSampler) })

	vr.frames.BindTexture(vr.context, vr.texture)
	vr.frames.BindShadowMap(vr.context, vr.swapchain.ShadowMap.View, vr.shadowSampler)
	return nil
}

func (vr *VulkanRenderer) createPipelines(shaders metadata.ShaderSet) error {
	shadowStages, err := newShaderStages(vr.context, stageSource{"shadow.vert", shaders.ShadowVertex, vk.ShaderStageVertexBit})
	if err != nil {
		return err
	}
	defer destroyStages(vr.context, shadowStages...)

	vr.shadowPipeline, err = NewGraphicsPipeline(vr.context, PipelineSpec{
		Stages:               shadowStages,
		DescriptorSetLayouts: []vk.DescriptorSetLayout{vr.frames.ShadowLayout},
		PushConstantRanges:   []vk.PushConstantRange{drawPushConstantRange},
		Renderpass:           vr.shadowPass,
		Samples:              vk.SampleCount1Bit,
		Stride:               vertexStride,
		Attributes:           VertexAttributes(),
		DepthOnly:            true,
	})
	if err != nil {
		return err
	}
	vr.release.Push("shadow pipeline", func() { vr.shadowPipeline.Destroy(vr.context) })

	sceneStages, err := newShaderStages(vr.context,
		stageSource{"scene.vert", shaders.SceneVertex, vk.ShaderStageVertexBit},
		stageSource{"scene.frag", shaders.SceneFragment, vk.ShaderStageFragmentBit})
	if err != nil {
		return err
	}
	defer destroyStages(vr.context, sceneStages...)

	vr.scenePipeline, err = NewGraphicsPipeline(vr.context, PipelineSpec{
		Stages:               sceneStages,
		DescriptorSetLayouts: []vk.DescriptorSetLayout{vr.frames.ColorLayout},
		PushConstantRanges:   []vk.PushConstantRange{drawPushConstantRange},
		Renderpass:           vr.colorPass,
		Samples:              vr.context.MSAASamples,
		Stride:               vertexStride,
		Attributes:           VertexAttributes(),
	})
	if err != nil {
		return err
	}
	vr.release.Push("scene pipeline", func() { vr.scenePipeline.Destroy(vr.context) })
	return nil
}

func (vr *VulkanRenderer) createExtensions() error {
	if !vr.config.Particles.Enabled {
		return nil
	}
	if !vr.context.Device.SupportsCompute {
		core.LogWarn("Particles requested but the graphics queue has no compute support; skipping.")
		return nil
	}
	particles, err := NewParticleSystem(vr.context, vr.config.Particles, vr.config.Shaders, vr.colorPass, particleSeed)
	if err != nil {
		return err
	}
	vr.particles = particles
	vr.graph.Extensions = append(vr.graph.Extensions, particles)
	vr.release.Push("particles", func() { vr.particles.Destroy(vr.context) })
	return nil
}

// AddDrawable uploads mesh and adds it to both passes.
func (vr *VulkanRenderer) AddDrawable(mesh *metadata.Mesh, model lin.Mat4x4) (*Drawable, error) {
	d, err := NewDrawable(vr.context, mesh, vr.scenePipeline, vr.frames.ColorSets(), model)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	vr.graph.Drawables = append(vr.graph.Drawables, d)
	core.LogDebug("Drawable %s (%s) added with %d indices.", d.Name, d.ID, d.IndexCount)
	return d, nil
}

// RemoveDrawable waits for the device and releases the named drawable.
func (vr *VulkanRenderer) RemoveDrawable(name string) error {
	d := vr.graph.Remove(name)
	if d == nil {
		return fmt.Errorf("no drawable named %q", name)
	}
	if err := vr.WaitIdle(); err != nil {
		return err
	}
	d.Destroy(vr.context)
	return nil
}

/**
 * @brief Rebuilds every pipeline from new bytecode. Render passes, frame slots
 * and the swapchain are untouched and drawables keep their pipeline pointers.
 * On failure the previous pipelines stay in use.
 */
func (vr *VulkanRenderer) ReloadShaders(shaders metadata.ShaderSet) error {
	if err := vr.WaitIdle(); err != nil {
		return err
	}

	shadowStages, err := newShaderStages(vr.context, stageSource{"shadow.vert", shaders.ShadowVertex, vk.ShaderStageVertexBit})
	if err != nil {
		return err
	}
	defer destroyStages(vr.context, shadowStages...)
	sceneStages, err := newShaderStages(vr.context,
		stageSource{"scene.vert", shaders.SceneVertex, vk.ShaderStageVertexBit},
		stageSource{"scene.frag", shaders.SceneFragment, vk.ShaderStageFragmentBit})
	if err != nil {
		return err
	}
	defer destroyStages(vr.context, sceneStages...)

	var swap pipelineSwap
	shadow, err := vr.shadowPipeline.Prepare(vr.context, shadowStages)
	if err != nil {
		return fmt.Errorf("rebuild shadow pipeline: %w", err)
	}
	swap.stage(vr.shadowPipeline, shadow)
	scene, err := vr.scenePipeline.Prepare(vr.context, sceneStages)
	if err != nil {
		swap.discard(vr.context)
		return fmt.Errorf("rebuild scene pipeline: %w", err)
	}
	swap.stage(vr.scenePipeline, scene)
	if vr.particles != nil {
		if err := vr.particles.StageReload(vr.context, shaders, &swap); err != nil {
			swap.discard(vr.context)
			return fmt.Errorf("rebuild particle pipelines: %w", err)
		}
	}
	swap.commit(vr.context)
	vr.config.Shaders = shaders
	core.LogInfo("Shaders reloaded.")
	return nil
}

func (vr *VulkanRenderer) SlotCount() int {
	return len(vr.frames.Slots)
}

func (vr *VulkanRenderer) WaitForSlot(ctx context.Context, slot int) error {
	return vr.frames.Slots[slot].InFlight.Wait(ctx, vr.context)
}

func (vr *VulkanRenderer) AcquireImage(slot int) (uint32, error) {
	return vr.swapchain.AcquireNextImageIndex(vr.context, acquireTimeoutNs, vr.frames.Slots[slot].ImageAvailable)
}

func (vr *VulkanRenderer) ResetSlot(slot int) error {
	return vr.frames.Slots[slot].InFlight.Reset(vr.context)
}

func (vr *VulkanRenderer) WriteUniforms(slot int, payload *metadata.UniformPayload) error {
	vr.deltaTime = payload.Time - vr.lastTime
	if vr.deltaTime < 0 {
		vr.deltaTime = 0
	}
	vr.lastTime = payload.Time
	return vr.frames.Slots[slot].WriteUniforms(payload)
}

func (vr *VulkanRenderer) RecordFrame(slot int, image uint32) error {
	if int(image) >= len(vr.swapchain.Framebuffers) {
		return fmt.Errorf("image index %d out of range (%d images)", image, len(vr.swapchain.Framebuffers))
	}
	return vr.graph.Record(vr.frames.Slots[slot], vr.swapchain, image, vr.deltaTime)
}

func (vr *VulkanRenderer) Submit(slot int) error {
	s := vr.frames.Slots[slot]
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{s.ImageAvailable},
		// Only the colour output touches the swapchain image; shadow and compute work may start earlier.
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{s.CommandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{s.RenderFinished},
	}

	queue := vr.context.Device.GraphicsQueue
	return lockPool.SafeQueueCall(queue, func() error {
		if res := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, s.InFlight.Handle); res != vk.Success {
			err := fmt.Errorf("vkQueueSubmit failed with result: %s", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
		s.CommandBuffer.UpdateSubmitted()
		s.InFlight.IsSignaled = false
		vr.FrameNumber++
		return nil
	})
}

func (vr *VulkanRenderer) Present(slot int, image uint32) error {
	return vr.swapchain.Present(vr.context, vr.context.Device.PresentQueue, vr.frames.Slots[slot].RenderFinished, image)
}

func (vr *VulkanRenderer) WaitIdle() error {
	if vr.context.Device == nil || vr.context.Device.LogicalDevice == nil {
		return nil
	}
	if res := vk.DeviceWaitIdle(vr.context.Device.LogicalDevice); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("vkDeviceWaitIdle failed: '%s'", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (vr *VulkanRenderer) RecreateSwapchain(extent metadata.Extent) error {
	if err := vr.swapchain.Recreate(vr.context, extent.Width, extent.Height); err != nil {
		return err
	}
	// The shadow map follows the swapchain extent, so its view changed.
	vr.frames.BindShadowMap(vr.context, vr.swapchain.ShadowMap.View, vr.shadowSampler)
	core.LogInfo("Vulkan renderer backend->resized: %dx%d", vr.swapchain.Extent.Width, vr.swapchain.Extent.Height)
	return nil
}

// Shutdown waits for the device and releases everything in reverse order of creation.
func (vr *VulkanRenderer) Shutdown() error {
	err := vr.WaitIdle()
	vr.release.Flush()
	core.LogInfo("Vulkan renderer shut down.")
	return err
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
