package vulkan

import (
	"fmt"
	gomath "math"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/math"
)

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

/**
 * @brief The presentable images plus every resource whose size follows the surface:
 * the multisampled colour target, the depth target, the shadow map and all framebuffers.
 * Render passes are borrowed and survive recreation.
 */
type VulkanSwapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	Images      []vk.Image
	Views       []vk.ImageView

	ColorAttachment *VulkanImage
	DepthAttachment *VulkanImage
	ShadowMap       *VulkanImage

	// One per swapchain image, resolving into that image.
	Framebuffers      []*VulkanFramebuffer
	ShadowFramebuffer *VulkanFramebuffer

	shadowPass *VulkanRenderpass
	colorPass  *VulkanRenderpass
	vsync      bool
}

// ChooseSurfaceFormat prefers 8-bit sRGB BGRA and falls back to the first format offered.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		format.Deref()
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	if len(formats) == 0 {
		return vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	}
	formats[0].Deref()
	return formats[0]
}

// choosePresentMode always honours vsync with FIFO, which every device supports.
func choosePresentMode(modes []vk.PresentMode, vsync bool) vk.PresentMode {
	if vsync {
		return vk.PresentModeFifo
	}
	best := vk.PresentModeFifo
	for _, mode := range modes {
		switch mode {
		case vk.PresentModeMailbox:
			return mode
		case vk.PresentModeImmediate:
			best = mode
		}
	}
	return best
}

// chooseExtent uses the surface's current extent unless the surface lets the swapchain decide.
func chooseExtent(capabilities vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	extent := vk.Extent2D{Width: width, Height: height}
	capabilities.CurrentExtent.Deref()
	if capabilities.CurrentExtent.Width != gomath.MaxUint32 {
		extent = capabilities.CurrentExtent
	}
	minExtent := capabilities.MinImageExtent
	maxExtent := capabilities.MaxImageExtent
	minExtent.Deref()
	maxExtent.Deref()
	extent.Width = math.Clamp(extent.Width, minExtent.Width, maxExtent.Width)
	extent.Height = math.Clamp(extent.Height, minExtent.Height, maxExtent.Height)
	return extent
}

func chooseImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	count := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && count > capabilities.MaxImageCount {
		count = capabilities.MaxImageCount
	}
	return count
}

func SwapchainCreate(context *VulkanContext, width, height uint32, format vk.SurfaceFormat, vsync bool, shadowPass, colorPass *VulkanRenderpass) (*VulkanSwapchain, error) {
	swapchain := &VulkanSwapchain{
		ImageFormat: format,
		shadowPass:  shadowPass,
		colorPass:   colorPass,
		vsync:       vsync,
	}
	if err := swapchain.create(context, width, height); err != nil {
		swapchain.Destroy(context)
		return nil, err
	}
	return swapchain, nil
}

/**
 * @brief Destroys everything the swapchain owns and rebuilds it at the new size.
 * The device must be idle. Image format and render passes are kept.
 */
func (vs *VulkanSwapchain) Recreate(context *VulkanContext, width, height uint32) error {
	if err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface, &context.Device.SwapchainSupport); err != nil {
		return err
	}
	vs.Destroy(context)
	if err := vs.create(context, width, height); err != nil {
		vs.Destroy(context)
		return err
	}
	return nil
}

func (vs *VulkanSwapchain) ImageCount() int {
	return len(vs.Images)
}

/**
 * @brief Acquires the next presentable image, signalling imageAvailable when it is ready.
 * A suboptimal swapchain is still usable and reported as success.
 */
func (vs *VulkanSwapchain) AcquireNextImageIndex(context *VulkanContext, timeoutNS uint64, imageAvailable vk.Semaphore) (uint32, error) {
	var imageIndex uint32
	res := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, timeoutNS, imageAvailable, vk.NullFence, &imageIndex)
	switch res {
	case vk.Success, vk.Suboptimal:
		return imageIndex, nil
	case vk.ErrorOutOfDate:
		return 0, core.ErrSwapchainOutOfDate
	default:
		err := fmt.Errorf("vkAcquireNextImageKHR failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return 0, err
	}
}

// Present queues imageIndex for display once renderComplete is signalled.
func (vs *VulkanSwapchain) Present(context *VulkanContext, presentQueue vk.Queue, renderComplete vk.Semaphore, imageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderComplete},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{imageIndex},
	}

	var res vk.Result
	_ = lockPool.SafeQueueCall(presentQueue, func() error {
		res = vk.QueuePresent(presentQueue, &presentInfo)
		return nil
	})
	switch res {
	case vk.Success:
		return nil
	case vk.Suboptimal:
		return core.ErrSwapchainSuboptimal
	case vk.ErrorOutOfDate:
		return core.ErrSwapchainOutOfDate
	default:
		err := fmt.Errorf("vkQueuePresentKHR failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
}

func (vs *VulkanSwapchain) create(context *VulkanContext, width, height uint32) error {
	support := context.Device.SwapchainSupport
	support.Capabilities.Deref()

	vs.Extent = chooseExtent(support.Capabilities, width, height)
	vs.PresentMode = choosePresentMode(support.PresentModes, vs.vsync)

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    chooseImageCount(support.Capabilities),
		ImageFormat:      vs.ImageFormat.Format,
		ImageColorSpace:  vs.ImageFormat.ColorSpace,
		ImageExtent:      vs.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vs.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	// Setup the queue family indices
	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(context.Device.GraphicsQueueIndex),
			uint32(context.Device.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	if err := lockPool.SafeCall(SwapchainManagement, func() error {
		if res := vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &vs.Handle); res != vk.Success {
			return fmt.Errorf("vkCreateSwapchainKHR failed with %s", VulkanResultString(res, true))
		}
		var imageCount uint32
		if res := vk.GetSwapchainImages(context.Device.LogicalDevice, vs.Handle, &imageCount, nil); res != vk.Success {
			return fmt.Errorf("vkGetSwapchainImagesKHR failed with %s", VulkanResultString(res, true))
		}
		vs.Images = make([]vk.Image, imageCount)
		if res := vk.GetSwapchainImages(context.Device.LogicalDevice, vs.Handle, &imageCount, vs.Images); res != vk.Success {
			return fmt.Errorf("vkGetSwapchainImagesKHR failed with %s", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return err
	}

	vs.Views = make([]vk.ImageView, len(vs.Images))
	for i, image := range vs.Images {
		view, err := createImageView(context, image, vs.ImageFormat.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit), 1)
		if err != nil {
			return err
		}
		vs.Views[i] = view
	}

	if err := vs.createAttachments(context); err != nil {
		return err
	}
	if err := vs.createFramebuffers(context); err != nil {
		return err
	}

	core.LogInfo("Swapchain created: %dx%d, %d images, present mode %d.", vs.Extent.Width, vs.Extent.Height, len(vs.Images), vs.PresentMode)
	return nil
}

func (vs *VulkanSwapchain) createAttachments(context *VulkanContext) error {
	deviceLocal := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	depthAspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)

	color, err := ImageCreate(context, ImageSpec{
		Width:  vs.Extent.Width,
		Height: vs.Extent.Height,
		// Transient: only the resolve target is stored.
		Samples:     context.MSAASamples,
		Format:      vs.ImageFormat.Format,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       vk.ImageUsageFlags(vk.ImageUsageTransientAttachmentBit) | vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		MemoryFlags: deviceLocal,
		ViewAspect:  vk.ImageAspectFlags(vk.ImageAspectColorBit),
	})
	if err != nil {
		return err
	}
	vs.ColorAttachment = color

	depth, err := ImageCreate(context, ImageSpec{
		Width:       vs.Extent.Width,
		Height:      vs.Extent.Height,
		Samples:     context.MSAASamples,
		Format:      context.Device.DepthFormat,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		MemoryFlags: deviceLocal,
		ViewAspect:  depthAspect,
	})
	if err != nil {
		return err
	}
	vs.DepthAttachment = depth

	shadow, err := ImageCreate(context, ImageSpec{
		Width:       vs.Extent.Width,
		Height:      vs.Extent.Height,
		Format:      context.Device.DepthFormat,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit) | vk.ImageUsageFlags(vk.ImageUsageSampledBit),
		MemoryFlags: deviceLocal,
		ViewAspect:  depthAspect,
	})
	if err != nil {
		return err
	}
	vs.ShadowMap = shadow

	// Frame slots bind the shadow map before the first shadow pass has run.
	return TransitionImageLayout(context, vs.ShadowMap, vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilReadOnlyOptimal)
}

func (vs *VulkanSwapchain) createFramebuffers(context *VulkanContext) error {
	vs.Framebuffers = make([]*VulkanFramebuffer, len(vs.Views))
	for i, view := range vs.Views {
		fb, err := FramebufferCreate(context, vs.colorPass, vs.Extent.Width, vs.Extent.Height,
			vs.ColorAttachment.View, vs.DepthAttachment.View, view)
		if err != nil {
			return err
		}
		vs.Framebuffers[i] = fb
	}

	shadowFramebuffer, err := FramebufferCreate(context, vs.shadowPass, vs.Extent.Width, vs.Extent.Height, vs.ShadowMap.View)
	if err != nil {
		return err
	}
	vs.ShadowFramebuffer = shadowFramebuffer
	return nil
}

// Destroy releases everything in reverse order of creation. Safe on a partially created swapchain.
func (vs *VulkanSwapchain) Destroy(context *VulkanContext) {
	if vs.ShadowFramebuffer != nil {
		vs.ShadowFramebuffer.Destroy(context)
		vs.ShadowFramebuffer = nil
	}
	for _, fb := range vs.Framebuffers {
		if fb != nil {
			fb.Destroy(context)
		}
	}
	vs.Framebuffers = nil

	for _, image := range []**VulkanImage{&vs.ShadowMap, &vs.DepthAttachment, &vs.ColorAttachment} {
		if *image != nil {
			(*image).Destroy(context)
			*image = nil
		}
	}

	// Only destroy the views, not the images, since those are owned by the swapchain.
	for _, view := range vs.Views {
		if view != vk.NullImageView {
			vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
		}
	}
	vs.Views = nil
	vs.Images = nil

	if vs.Handle != vk.NullSwapchain {
		_ = lockPool.SafeCall(SwapchainManagement, func() error {
			vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
			return nil
		})
		vs.Handle = vk.NullSwapchain
	}
}
