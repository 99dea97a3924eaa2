package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

type VulkanImage struct {
	Handle    vk.Image
	Memory    vk.DeviceMemory
	View      vk.ImageView
	Width     uint32
	Height    uint32
	Format    vk.Format
	MipLevels uint32
	Samples   vk.SampleCountFlagBits
}

/**
 * @brief Describes an image to create. MipLevels and Samples of zero mean 1.
 */
type ImageSpec struct {
	Width       uint32
	Height      uint32
	MipLevels   uint32
	Samples     vk.SampleCountFlagBits
	Format      vk.Format
	Tiling      vk.ImageTiling
	Usage       vk.ImageUsageFlags
	MemoryFlags vk.MemoryPropertyFlags
	// When non-zero a view covering every mip level is created with this aspect.
	ViewAspect vk.ImageAspectFlags
}

func ImageCreate(context *VulkanContext, spec ImageSpec) (*VulkanImage, error) {
	if spec.MipLevels == 0 {
		spec.MipLevels = 1
	}
	if spec.Samples == 0 {
		spec.Samples = vk.SampleCount1Bit
	}
	image := &VulkanImage{
		Width:     spec.Width,
		Height:    spec.Height,
		Format:    spec.Format,
		MipLevels: spec.MipLevels,
		Samples:   spec.Samples,
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  spec.Width,
			Height: spec.Height,
			Depth:  1,
		},
		MipLevels:     spec.MipLevels,
		ArrayLayers:   1,
		Format:        spec.Format,
		Tiling:        spec.Tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         spec.Usage,
		Samples:       spec.Samples,
		SharingMode:   vk.SharingModeExclusive,
	}

	err := lockPool.SafeCall(ImageManagement, func() error {
		if res := vk.CreateImage(context.Device.LogicalDevice, &imageCreateInfo, context.Allocator, &image.Handle); res != vk.Success {
			return fmt.Errorf("vkCreateImage failed with %s", VulkanResultString(res, true))
		}

		var memoryRequirements vk.MemoryRequirements
		vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image.Handle, &memoryRequirements)
		memoryRequirements.Deref()

		memoryType, err := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, spec.MemoryFlags)
		if err != nil {
			return err
		}

		allocateInfo := vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  memoryRequirements.Size,
			MemoryTypeIndex: memoryType,
		}
		if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &image.Memory); res != vk.Success {
			return fmt.Errorf("vkAllocateMemory for image failed with %s", VulkanResultString(res, true))
		}
		if res := vk.BindImageMemory(context.Device.LogicalDevice, image.Handle, image.Memory, 0); res != vk.Success {
			return fmt.Errorf("vkBindImageMemory failed with %s", VulkanResultString(res, true))
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		image.Destroy(context)
		return nil, err
	}

	if spec.ViewAspect != 0 {
		if err := image.CreateView(context, spec.ViewAspect); err != nil {
			image.Destroy(context)
			return nil, err
		}
	}
	return image, nil
}

func (image *VulkanImage) CreateView(context *VulkanContext, aspect vk.ImageAspectFlags) error {
	view, err := createImageView(context, image.Handle, image.Format, aspect, image.MipLevels)
	if err != nil {
		return err
	}
	image.View = view
	return nil
}

func createImageView(context *VulkanContext, handle vk.Image, format vk.Format, aspect vk.ImageAspectFlags, mipLevels uint32) (vk.ImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    handle,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewCreateInfo, context.Allocator, &view); res != vk.Success {
		err := fmt.Errorf("vkCreateImageView failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return vk.NullImageView, err
	}
	return view, nil
}

// Destroy releases view, image and memory in that order. Safe on a partially created image.
func (image *VulkanImage) Destroy(context *VulkanContext) {
	_ = lockPool.SafeCall(ImageManagement, func() error {
		if image.View != vk.NullImageView {
			vk.DestroyImageView(context.Device.LogicalDevice, image.View, context.Allocator)
			image.View = vk.NullImageView
		}
		if image.Handle != vk.NullImage {
			vk.DestroyImage(context.Device.LogicalDevice, image.Handle, context.Allocator)
			image.Handle = vk.NullImage
		}
		if image.Memory != vk.NullDeviceMemory {
			vk.FreeMemory(context.Device.LogicalDevice, image.Memory, context.Allocator)
			image.Memory = vk.NullDeviceMemory
		}
		return nil
	})
}
