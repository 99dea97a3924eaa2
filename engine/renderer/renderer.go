package renderer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

/**
 * @brief Drives one frame at a time through wait, acquire, reset, update,
 * record, submit, present and advance, and rebuilds the swapchain when the
 * surface changes.
 */
type Orchestrator struct {
	backend Backend
	surface Surface
	source  UniformSource
	clock   *core.Clock

	slot    int
	extent  metadata.Extent
	resized atomic.Bool

	frameCount  uint64
	recreations uint64
}

func NewOrchestrator(backend Backend, surface Surface, source UniformSource) *Orchestrator {
	return NewOrchestratorWithClock(backend, surface, source, core.NewClock())
}

func NewOrchestratorWithClock(backend Backend, surface Surface, source UniformSource, clock *core.Clock) *Orchestrator {
	o := &Orchestrator{
		backend: backend,
		surface: surface,
		source:  source,
		clock:   clock,
		extent:  surface.FramebufferSize(),
	}
	o.clock.Start()
	return o
}

// NotifyResized flags the swapchain for recreation after the next present.
// Safe to call from window-system callbacks.
func (o *Orchestrator) NotifyResized() {
	o.resized.Store(true)
}

// CurrentSlot is the slot the next RunFrame will use.
func (o *Orchestrator) CurrentSlot() int {
	return o.slot
}

func (o *Orchestrator) Extent() metadata.Extent {
	return o.extent
}

// FrameCount is the number of frames that were presented.
func (o *Orchestrator) FrameCount() uint64 {
	return o.frameCount
}

func (o *Orchestrator) Recreations() uint64 {
	return o.recreations
}

/**
 * @brief Runs a single frame. Surface changes are handled internally and never
 * returned; any other error is fatal to the render loop.
 */
func (o *Orchestrator) RunFrame(ctx context.Context) error {
	slot := o.slot

	if err := o.backend.WaitForSlot(ctx, slot); err != nil {
		return fmt.Errorf("wait for frame slot %d: %w", slot, err)
	}

	image, err := o.backend.AcquireImage(slot)
	if err != nil {
		if errors.Is(err, core.ErrSwapchainOutOfDate) {
			// Nothing was submitted, so the slot fence stays signaled and the slot is reused.
			return o.Recreate()
		}
		return fmt.Errorf("acquire swapchain image: %w", err)
	}

	// Reset only once work is guaranteed to be submitted.
	if err := o.backend.ResetSlot(slot); err != nil {
		return fmt.Errorf("reset frame slot %d: %w", slot, err)
	}

	o.clock.Update()
	payload := o.source.Uniforms(o.extent)
	payload.Time = float32(o.clock.Elapsed().Seconds())
	if err := o.backend.WriteUniforms(slot, &payload); err != nil {
		return fmt.Errorf("write uniforms for slot %d: %w", slot, err)
	}

	if err := o.backend.RecordFrame(slot, image); err != nil {
		return fmt.Errorf("record frame: %w", err)
	}
	if err := o.backend.Submit(slot); err != nil {
		return fmt.Errorf("submit frame: %w", err)
	}

	err = o.backend.Present(slot, image)
	o.frameCount++
	o.slot = (o.slot + 1) % o.backend.SlotCount()

	resized := o.resized.Swap(false)
	switch {
	case core.IsSurfaceChange(err) || (err == nil && resized):
		return o.Recreate()
	case err != nil:
		return fmt.Errorf("present swapchain image: %w", err)
	}
	return nil
}

/**
 * @brief Rebuilds the swapchain-dependent resources at the current surface
 * extent. A zero extent (minimized window) blocks on window events until the
 * surface is usable again or the window is closing.
 */
func (o *Orchestrator) Recreate() error {
	extent := o.surface.FramebufferSize()
	for extent.IsZero() {
		if o.surface.ShouldClose() {
			return nil
		}
		o.surface.WaitEvents()
		extent = o.surface.FramebufferSize()
	}

	if err := o.backend.WaitIdle(); err != nil {
		return fmt.Errorf("wait idle before swapchain recreation: %w", err)
	}
	if err := o.backend.RecreateSwapchain(extent); err != nil {
		return fmt.Errorf("recreate swapchain at %dx%d: %w", extent.Width, extent.Height, err)
	}
	o.extent = extent
	o.recreations++
	// The rebuilt swapchain already matches the latest size.
	o.resized.Store(false)
	core.LogDebug("swapchain recreated at %dx%d", extent.Width, extent.Height)
	return nil
}

// Shutdown waits for every in-flight frame to retire.
func (o *Orchestrator) Shutdown() error {
	o.clock.Stop()
	return o.backend.WaitIdle()
}
