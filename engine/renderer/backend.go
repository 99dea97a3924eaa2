package renderer

import (
	"context"

	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

/**
 * @brief The GPU side of a frame. Every method maps onto one step of the
 * frame lifecycle; the Orchestrator decides the order they run in.
 */
type Backend interface {
	// SlotCount is the number of frame slots in flight.
	SlotCount() int
	// WaitForSlot blocks until the slot's in-flight fence is signaled.
	WaitForSlot(ctx context.Context, slot int) error
	// AcquireImage returns the next presentable image index, signaling the slot's
	// image-acquired semaphore. Returns core.ErrSwapchainOutOfDate when the surface changed.
	AcquireImage(slot int) (uint32, error)
	// ResetSlot resets the slot's fence. Only valid after WaitForSlot.
	ResetSlot(slot int) error
	WriteUniforms(slot int, payload *metadata.UniformPayload) error
	// RecordFrame re-records the slot's command buffer with the shadow and colour passes.
	RecordFrame(slot int, image uint32) error
	Submit(slot int) error
	// Present queues the image. Returns core.ErrSwapchainOutOfDate or
	// core.ErrSwapchainSuboptimal when the swapchain must be rebuilt.
	Present(slot int, image uint32) error
	WaitIdle() error
	// RecreateSwapchain rebuilds every swapchain-dependent resource at extent and
	// rewrites the descriptors that reference them. The device is idle when called.
	RecreateSwapchain(extent metadata.Extent) error
}

/** @brief The window the frames end up in. */
type Surface interface {
	FramebufferSize() metadata.Extent
	// WaitEvents blocks until the window system delivers at least one event.
	WaitEvents()
	ShouldClose() bool
}

// UniformSource produces the per-frame uniform payload.
type UniformSource interface {
	Uniforms(extent metadata.Extent) metadata.UniformPayload
}

type UniformSourceFunc func(extent metadata.Extent) metadata.UniformPayload

func (f UniformSourceFunc) Uniforms(extent metadata.Extent) metadata.UniformPayload {
	return f(extent)
}
