package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

var uniformPayloadSize = vk.DeviceSize(unsafe.Sizeof(metadata.UniformPayload{}))

/**
 * @brief Everything one in-flight frame owns. A slot is reused only after its
 * fence has signaled, so nothing in here is touched by two frames at once.
 */
type FrameSlot struct {
	Index         int
	CommandBuffer *VulkanCommandBuffer
	// Host-visible, coherent and mapped for the lifetime of the slot.
	UniformBuffer *VulkanBuffer
	ShadowSet     vk.DescriptorSet
	ColorSet      vk.DescriptorSet

	ImageAvailable vk.Semaphore
	RenderFinished vk.Semaphore
	InFlight       *VulkanFence
}

// WriteUniforms copies payload into the slot's mapped uniform buffer.
func (s *FrameSlot) WriteUniforms(payload *metadata.UniformPayload) error {
	return s.UniformBuffer.Write(structBytes(payload))
}

/**
 * @brief The slots plus the descriptor layouts and pool their sets come from.
 */
type FrameResources struct {
	Slots        []*FrameSlot
	ShadowLayout vk.DescriptorSetLayout
	ColorLayout  vk.DescriptorSetLayout
	pool         vk.DescriptorPool
}

// NewFrameResources creates count slots. Every fence starts signaled so the first wait returns at once.
func NewFrameResources(context *VulkanContext, count int) (*FrameResources, error) {
	if count < 1 || count > int(MaxFramesInFlight) {
		err := fmt.Errorf("frames in flight must be between 1 and %d, got %d", MaxFramesInFlight, count)
		core.LogError(err.Error())
		return nil, err
	}

	fr := &FrameResources{}
	var err error
	if fr.ShadowLayout, err = NewDescriptorSetLayout(context, shadowSetBindings()); err != nil {
		return nil, err
	}
	if fr.ColorLayout, err = NewDescriptorSetLayout(context, colorSetBindings()); err != nil {
		fr.Destroy(context)
		return nil, err
	}
	if fr.pool, err = NewDescriptorPool(context, uint32(count), shadowSetBindings(), colorSetBindings()); err != nil {
		fr.Destroy(context)
		return nil, err
	}

	for i := 0; i < count; i++ {
		slot, err := fr.newSlot(context, i)
		if err != nil {
			fr.Destroy(context)
			return nil, fmt.Errorf("frame slot %d: %w", i, err)
		}
		fr.Slots = append(fr.Slots, slot)
	}
	core.LogDebug("Created %d frame slots.", count)
	return fr, nil
}

func (fr *FrameResources) newSlot(context *VulkanContext, index int) (*FrameSlot, error) {
	slot := &FrameSlot{Index: index}
	var err error

	slot.UniformBuffer, err = CreateBuffer(context, uniformPayloadSize,
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	if _, err = slot.UniformBuffer.Map(context); err != nil {
		slot.destroy(context)
		return nil, err
	}

	if slot.ShadowSet, err = AllocateDescriptorSet(context, fr.pool, fr.ShadowLayout); err != nil {
		slot.destroy(context)
		return nil, err
	}
	if slot.ColorSet, err = AllocateDescriptorSet(context, fr.pool, fr.ColorLayout); err != nil {
		slot.destroy(context)
		return nil, err
	}
	UpdateDescriptorSets(context,
		uniformWrite(slot.ShadowSet, bindingUniforms, slot.UniformBuffer),
		uniformWrite(slot.ColorSet, bindingUniforms, slot.UniformBuffer))

	if slot.CommandBuffer, err = NewVulkanCommandBuffer(context, context.Device.GraphicsCommandPool, true); err != nil {
		slot.destroy(context)
		return nil, err
	}
	if slot.ImageAvailable, err = NewSemaphore(context); err != nil {
		slot.destroy(context)
		return nil, err
	}
	if slot.RenderFinished, err = NewSemaphore(context); err != nil {
		slot.destroy(context)
		return nil, err
	}
	if slot.InFlight, err = NewFence(context, true); err != nil {
		slot.destroy(context)
		return nil, err
	}
	return slot, nil
}

// BindTexture points every colour set's texture binding at texture.
func (fr *FrameResources) BindTexture(context *VulkanContext, texture *VulkanTexture) {
	writes := make([]vk.WriteDescriptorSet, 0, len(fr.Slots))
	for _, slot := range fr.Slots {
		writes = append(writes, samplerWrite(slot.ColorSet, bindingTexture, texture.Image.View, texture.Sampler, vk.ImageLayoutShaderReadOnlyOptimal))
	}
	UpdateDescriptorSets(context, writes...)
}

// BindShadowMap rewrites the shadow-map binding. Called again after every swapchain rebuild.
func (fr *FrameResources) BindShadowMap(context *VulkanContext, shadowView vk.ImageView, sampler vk.Sampler) {
	writes := make([]vk.WriteDescriptorSet, 0, len(fr.Slots))
	for _, slot := range fr.Slots {
		writes = append(writes, samplerWrite(slot.ColorSet, bindingShadowMap, shadowView, sampler, vk.ImageLayoutDepthStencilReadOnlyOptimal))
	}
	UpdateDescriptorSets(context, writes...)
}

// ColorSets returns the colour set of every slot, indexed by slot.
func (fr *FrameResources) ColorSets() []vk.DescriptorSet {
	sets := make([]vk.DescriptorSet, len(fr.Slots))
	for i, slot := range fr.Slots {
		sets[i] = slot.ColorSet
	}
	return sets
}

func (s *FrameSlot) destroy(context *VulkanContext) {
	if s.InFlight != nil {
		s.InFlight.Destroy(context)
		s.InFlight = nil
	}
	if s.RenderFinished != vk.NullSemaphore {
		vk.DestroySemaphore(context.Device.LogicalDevice, s.RenderFinished, context.Allocator)
		s.RenderFinished = vk.NullSemaphore
	}
	if s.ImageAvailable != vk.NullSemaphore {
		vk.DestroySemaphore(context.Device.LogicalDevice, s.ImageAvailable, context.Allocator)
		s.ImageAvailable = vk.NullSemaphore
	}
	if s.CommandBuffer != nil {
		s.CommandBuffer.Free(context, context.Device.GraphicsCommandPool)
		s.CommandBuffer = nil
	}
	// Descriptor sets go back with the pool.
	if s.UniformBuffer != nil {
		s.UniformBuffer.Destroy(context)
		s.UniformBuffer = nil
	}
}

func (fr *FrameResources) Destroy(context *VulkanContext) {
	for i := len(fr.Slots) - 1; i >= 0; i-- {
		fr.Slots[i].destroy(context)
	}
	fr.Slots = nil
	if fr.pool != vk.NullDescriptorPool {
		DestroyDescriptorPool(context, fr.pool)
		fr.pool = vk.NullDescriptorPool
	}
	if fr.ColorLayout != vk.NullDescriptorSetLayout {
		DestroyDescriptorSetLayout(context, fr.ColorLayout)
		fr.ColorLayout = vk.NullDescriptorSetLayout
	}
	if fr.ShadowLayout != vk.NullDescriptorSetLayout {
		DestroyDescriptorSetLayout(context, fr.ShadowLayout)
		fr.ShadowLayout = vk.NullDescriptorSetLayout
	}
}
