package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

// Binding slots shared with the GLSL sources.
const (
	bindingUniforms  uint32 = 0
	bindingTexture   uint32 = 1
	bindingShadowMap uint32 = 2
)

func shadowSetBindings() []vk.DescriptorSetLayoutBinding {
	return []vk.DescriptorSetLayoutBinding{{
		Binding:         bindingUniforms,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	}}
}

func colorSetBindings() []vk.DescriptorSetLayoutBinding {
	fragment := vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	return []vk.DescriptorSetLayoutBinding{
		{
			Binding:         bindingUniforms,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit) | fragment,
		},
		{
			Binding:         bindingTexture,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      fragment,
		},
		{
			Binding:         bindingShadowMap,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      fragment,
		},
	}
}

func NewDescriptorSetLayout(context *VulkanContext, bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &layout); res != vk.Success {
			return fmt.Errorf("vkCreateDescriptorSetLayout failed with %s", VulkanResultString(res, true))
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return vk.NullDescriptorSetLayout, err
	}
	return layout, nil
}

func DestroyDescriptorSetLayout(context *VulkanContext, layout vk.DescriptorSetLayout) {
	if layout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, layout, context.Allocator)
	}
}

// descriptorPoolSizes sums the descriptors needed for count sets of each binding list.
func descriptorPoolSizes(count uint32, layouts ...[]vk.DescriptorSetLayoutBinding) []vk.DescriptorPoolSize {
	totals := map[vk.DescriptorType]uint32{}
	var order []vk.DescriptorType
	for _, bindings := range layouts {
		for _, b := range bindings {
			if _, seen := totals[b.DescriptorType]; !seen {
				order = append(order, b.DescriptorType)
			}
			totals[b.DescriptorType] += b.DescriptorCount * count
		}
	}
	sizes := make([]vk.DescriptorPoolSize, len(order))
	for i, t := range order {
		sizes[i] = vk.DescriptorPoolSize{Type: t, DescriptorCount: totals[t]}
	}
	return sizes
}

/**
 * @brief A pool sized for setsPerLayout sets of every given layout.
 */
func NewDescriptorPool(context *VulkanContext, setsPerLayout uint32, layouts ...[]vk.DescriptorSetLayoutBinding) (vk.DescriptorPool, error) {
	sizes := descriptorPoolSizes(setsPerLayout, layouts...)
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
		MaxSets:       setsPerLayout * uint32(len(layouts)),
	}
	var pool vk.DescriptorPool
	err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &pool); res != vk.Success {
			return fmt.Errorf("vkCreateDescriptorPool failed with %s", VulkanResultString(res, true))
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return vk.NullDescriptorPool, err
	}
	return pool, nil
}

func DestroyDescriptorPool(context *VulkanContext, pool vk.DescriptorPool) {
	if pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, pool, context.Allocator)
	}
}

func AllocateDescriptorSet(context *VulkanContext, pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	var set vk.DescriptorSet
	err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocInfo, &set); res != vk.Success {
			return fmt.Errorf("vkAllocateDescriptorSets failed with %s", VulkanResultString(res, true))
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return vk.NullDescriptorSet, err
	}
	return set, nil
}

func uniformWrite(set vk.DescriptorSet, binding uint32, buffer *VulkanBuffer) vk.WriteDescriptorSet {
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buffer.Handle,
			Offset: 0,
			Range:  buffer.Size,
		}},
	}
}

func storageWrite(set vk.DescriptorSet, binding uint32, buffer *VulkanBuffer) vk.WriteDescriptorSet {
	w := uniformWrite(set, binding, buffer)
	w.DescriptorType = vk.DescriptorTypeStorageBuffer
	return w
}

func samplerWrite(set vk.DescriptorSet, binding uint32, view vk.ImageView, sampler vk.Sampler, layout vk.ImageLayout) vk.WriteDescriptorSet {
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageLayout: layout,
			ImageView:   view,
			Sampler:     sampler,
		}},
	}
}

func UpdateDescriptorSets(context *VulkanContext, writes ...vk.WriteDescriptorSet) {
	if len(writes) == 0 {
		return
	}
	_ = lockPool.SafeCall(DescriptorManagement, func() error {
		vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
		return nil
	})
}
