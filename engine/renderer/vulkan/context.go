package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

/**
 * @brief Everything the GPU components need from bootstrap. It is passed
 * explicitly to every constructor and operation instead of living in a global.
 */
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	// Sample count of the colour pass, already clamped to what the device supports.
	MSAASamples vk.SampleCountFlagBits
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that has every bit in propertyFlags.
func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	return selectMemoryType(vc.Device.Memory, typeFilter, propertyFlags)
}

func selectMemoryType(memoryProperties vk.PhysicalDeviceMemoryProperties, typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryType := memoryProperties.MemoryTypes[i]
		memoryType.Deref()
		if typeFilter&(1<<i) == 0 {
			continue
		}
		if memoryType.PropertyFlags&propertyFlags != propertyFlags {
			continue
		}
		return i, nil
	}
	err := fmt.Errorf("filter %#x, flags %#x: %w", typeFilter, uint32(propertyFlags), core.ErrNoSuitableMemoryType)
	core.LogError(err.Error())
	return 0, err
}
