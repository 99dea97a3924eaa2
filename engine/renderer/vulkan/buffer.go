package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

/**
 * @brief A buffer and the memory bound to it at offset 0.
 */
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	Usage  vk.BufferUsageFlags
	// Non-nil while the memory is mapped.
	Mapped unsafe.Pointer
}

func CreateBuffer(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	buffer := &VulkanBuffer{
		Size:  size,
		Usage: usage,
	}

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	err := lockPool.SafeCall(BufferManagement, func() error {
		if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferCreateInfo, context.Allocator, &buffer.Handle); res != vk.Success {
			return fmt.Errorf("vkCreateBuffer failed with %s", VulkanResultString(res, true))
		}

		var memoryRequirements vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &memoryRequirements)
		memoryRequirements.Deref()

		memoryType, err := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, memoryFlags)
		if err != nil {
			return err
		}

		allocateInfo := vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  memoryRequirements.Size,
			MemoryTypeIndex: memoryType,
		}
		if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &buffer.Memory); res != vk.Success {
			return fmt.Errorf("vkAllocateMemory for buffer failed with %s", VulkanResultString(res, true))
		}
		if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); res != vk.Success {
			return fmt.Errorf("vkBindBufferMemory failed with %s", VulkanResultString(res, true))
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		buffer.Destroy(context)
		return nil, err
	}
	return buffer, nil
}

// Map maps the whole buffer. The pointer stays valid until Unmap or Destroy.
func (b *VulkanBuffer) Map(context *VulkanContext) (unsafe.Pointer, error) {
	if b.Mapped != nil {
		return b.Mapped, nil
	}
	var data unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, b.Memory, 0, b.Size, 0, &data); res != vk.Success {
		err := fmt.Errorf("vkMapMemory failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	b.Mapped = data
	return data, nil
}

func (b *VulkanBuffer) Unmap(context *VulkanContext) {
	if b.Mapped == nil {
		return
	}
	vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)
	b.Mapped = nil
}

// Write copies data to the start of a mapped buffer.
func (b *VulkanBuffer) Write(data []byte) error {
	if b.Mapped == nil {
		return fmt.Errorf("buffer is not mapped")
	}
	if vk.DeviceSize(len(data)) > b.Size {
		return fmt.Errorf("write of %d bytes exceeds buffer size %d", len(data), b.Size)
	}
	vk.Memcopy(b.Mapped, data)
	return nil
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	b.Unmap(context)
	_ = lockPool.SafeCall(BufferManagement, func() error {
		if b.Handle != vk.NullBuffer {
			vk.DestroyBuffer(context.Device.LogicalDevice, b.Handle, context.Allocator)
			b.Handle = vk.NullBuffer
		}
		if b.Memory != vk.NullDeviceMemory {
			vk.FreeMemory(context.Device.LogicalDevice, b.Memory, context.Allocator)
			b.Memory = vk.NullDeviceMemory
		}
		return nil
	})
}

// newStagingBuffer returns a host-visible, coherent transfer source filled with data.
func newStagingBuffer(context *VulkanContext, data []byte) (*VulkanBuffer, error) {
	staging, err := CreateBuffer(context,
		vk.DeviceSize(len(data)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	if _, err := staging.Map(context); err != nil {
		staging.Destroy(context)
		return nil, err
	}
	if err := staging.Write(data); err != nil {
		staging.Destroy(context)
		return nil, err
	}
	staging.Unmap(context)
	return staging, nil
}

/**
 * @brief Copies data into a new device-local buffer with usage dstUsage|TRANSFER_DST.
 * Blocks until the copy has completed; the staging buffer is freed before returning.
 */
func UploadViaStaging(context *VulkanContext, data []byte, dstUsage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	if len(data) == 0 {
		core.LogError(core.ErrEmptyUpload.Error())
		return nil, core.ErrEmptyUpload
	}

	staging, err := newStagingBuffer(context, data)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)

	dst, err := CreateBuffer(context,
		vk.DeviceSize(len(data)),
		dstUsage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	if err := CopyBuffer(context, staging, dst, vk.DeviceSize(len(data))); err != nil {
		dst.Destroy(context)
		return nil, err
	}
	return dst, nil
}

func CopyBuffer(context *VulkanContext, src, dst *VulkanBuffer, size vk.DeviceSize) error {
	return SingleUse(context, func(cb *VulkanCommandBuffer) error {
		region := vk.BufferCopy{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      size,
		}
		vk.CmdCopyBuffer(cb.Handle, src.Handle, dst.Handle, 1, []vk.BufferCopy{region})
		return nil
	})
}

// CopyBufferToImage fills mip level 0 of image, which must be in TRANSFER_DST_OPTIMAL.
func CopyBufferToImage(context *VulkanContext, src *VulkanBuffer, image *VulkanImage) error {
	return SingleUse(context, func(cb *VulkanCommandBuffer) error {
		region := vk.BufferImageCopy{
			BufferOffset:      0,
			BufferRowLength:   0,
			BufferImageHeight: 0,
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:       0,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
			ImageExtent: vk.Extent3D{Width: image.Width, Height: image.Height, Depth: 1},
		}
		vk.CmdCopyBufferToImage(cb.Handle, src.Handle, image.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
		return nil
	})
}

// ReadBack copies the contents of src, which needs TRANSFER_SRC usage, into host memory.
func ReadBack(context *VulkanContext, src *VulkanBuffer) ([]byte, error) {
	host, err := CreateBuffer(context, src.Size,
		vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	defer host.Destroy(context)

	if err := CopyBuffer(context, src, host, src.Size); err != nil {
		return nil, err
	}
	ptr, err := host.Map(context)
	if err != nil {
		return nil, err
	}
	out := make([]byte, src.Size)
	copy(out, unsafe.Slice((*byte)(ptr), int(src.Size)))
	return out, nil
}
