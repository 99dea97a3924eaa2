package vulkan

import (
	"fmt"
	gomath "math"
	"math/rand/v2"
	"unsafe"

	vk "github.com/goki/vulkan"
	lin "github.com/xlab/linmath"

	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

// Must match local_size_x in particles.comp.
const particleWorkgroupSize uint32 = 256

var particleStride = uint32(unsafe.Sizeof(metadata.Particle{}))

type particlePushConstants struct {
	DeltaTime float32
}

var particlePushConstantRange = vk.PushConstantRange{
	StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit),
	Offset:     0,
	Size:       uint32(unsafe.Sizeof(particlePushConstants{})),
}

func particleSetBindings() []vk.DescriptorSetLayoutBinding {
	return []vk.DescriptorSetLayoutBinding{{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeStorageBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
	}}
}

func particleAttributes() []vk.VertexInputAttributeDescription {
	var p metadata.Particle
	return []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: uint32(unsafe.Offsetof(p.Position))},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32a32Sfloat, Offset: uint32(unsafe.Offsetof(p.Colour))},
	}
}

// dispatchGroups is the number of workgroups covering count particles.
func dispatchGroups(count uint32) uint32 {
	return (count + particleWorkgroupSize - 1) / particleWorkgroupSize
}

func newParticleRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// seedParticles places count particles on a ring around the origin moving outward.
func seedParticles(count uint32, rng *rand.Rand) []metadata.Particle {
	particles := make([]metadata.Particle, count)
	for i := range particles {
		r := 0.25 * gomath.Sqrt(rng.Float64())
		theta := rng.Float64() * 2 * gomath.Pi
		dx, dy := gomath.Cos(theta), gomath.Sin(theta)
		speed := 0.05 + 0.2*rng.Float64()

		particles[i] = metadata.Particle{
			Position: lin.Vec2{float32(r * dx), float32(r * dy)},
			Velocity: lin.Vec2{float32(speed * dx), float32(speed * dy)},
			Colour:   lin.Vec4{rng.Float32(), rng.Float32(), rng.Float32(), 1},
		}
	}
	return particles
}

type bufferBarrier struct {
	srcStage, dstStage   vk.PipelineStageFlags
	srcAccess, dstAccess vk.AccessFlags
}

// The previous frame's vertex fetch must finish before the compute pass writes.
var particleReadToWrite = bufferBarrier{
	srcStage:  vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
	dstStage:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
	srcAccess: vk.AccessFlags(vk.AccessVertexAttributeReadBit),
	dstAccess: vk.AccessFlags(vk.AccessShaderWriteBit) | vk.AccessFlags(vk.AccessShaderReadBit),
}

// Compute writes become visible to this frame's vertex fetch.
var particleWriteToRead = bufferBarrier{
	srcStage:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
	dstStage:  vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
	srcAccess: vk.AccessFlags(vk.AccessShaderWriteBit),
	dstAccess: vk.AccessFlags(vk.AccessVertexAttributeReadBit),
}

func (b bufferBarrier) record(cb *VulkanCommandBuffer, buffer *VulkanBuffer) {
	barrier := vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       b.srcAccess,
		DstAccessMask:       b.dstAccess,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              buffer.Handle,
		Offset:              0,
		Size:                vk.DeviceSize(vk.WholeSize),
	}
	vk.CmdPipelineBarrier(cb.Handle, b.srcStage, b.dstStage, 0, 0, nil, 1, []vk.BufferMemoryBarrier{barrier}, 0, nil)
}

/**
 * @brief A GPU particle simulation. A compute shader integrates a storage buffer
 * every frame and the same buffer is drawn as a point list inside the colour pass.
 */
type ParticleSystem struct {
	Count   uint32
	Buffer  *VulkanBuffer
	Compute *VulkanPipeline
	Points  *VulkanPipeline

	setLayout vk.DescriptorSetLayout
	pool      vk.DescriptorPool
	set       vk.DescriptorSet
}

func NewParticleSystem(context *VulkanContext, config metadata.ParticleConfig, shaders metadata.ShaderSet, colorPass *VulkanRenderpass, seed uint64) (*ParticleSystem, error) {
	if config.Count == 0 {
		return nil, fmt.Errorf("particle count must be positive")
	}
	if !context.Device.SupportsCompute {
		err := fmt.Errorf("graphics queue family has no compute support")
		core.LogError(err.Error())
		return nil, err
	}

	ps := &ParticleSystem{Count: config.Count}
	particles := seedParticles(config.Count, newParticleRNG(seed))

	var err error
	ps.Buffer, err = UploadViaStaging(context, sliceBytes(particles),
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)|vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return nil, fmt.Errorf("uploading particles: %w", err)
	}

	if ps.setLayout, err = NewDescriptorSetLayout(context, particleSetBindings()); err != nil {
		ps.Destroy(context)
		return nil, err
	}
	if ps.pool, err = NewDescriptorPool(context, 1, particleSetBindings()); err != nil {
		ps.Destroy(context)
		return nil, err
	}
	if ps.set, err = AllocateDescriptorSet(context, ps.pool, ps.setLayout); err != nil {
		ps.Destroy(context)
		return nil, err
	}
	UpdateDescriptorSets(context, storageWrite(ps.set, 0, ps.Buffer))

	if ps.Compute, ps.Points, err = newParticlePipelines(context, ps.setLayout, shaders, colorPass); err != nil {
		ps.Destroy(context)
		return nil, err
	}
	core.LogInfo("Particle system created with %d particles.", ps.Count)
	return ps, nil
}

func newParticlePipelines(context *VulkanContext, setLayout vk.DescriptorSetLayout, shaders metadata.ShaderSet, colorPass *VulkanRenderpass) (compute, points *VulkanPipeline, err error) {
	computeStages, err := newShaderStages(context, stageSource{"particles.comp", shaders.ParticleComp, vk.ShaderStageComputeBit})
	if err != nil {
		return nil, nil, err
	}
	defer destroyStages(context, computeStages...)

	compute, err = NewComputePipeline(context, computeStages[0], []vk.DescriptorSetLayout{setLayout}, []vk.PushConstantRange{particlePushConstantRange})
	if err != nil {
		return nil, nil, err
	}

	graphicsStages, err := newShaderStages(context,
		stageSource{"particles.vert", shaders.ParticleVertex, vk.ShaderStageVertexBit},
		stageSource{"particles.frag", shaders.ParticleFrag, vk.ShaderStageFragmentBit})
	if err != nil {
		compute.Destroy(context)
		return nil, nil, err
	}
	defer destroyStages(context, graphicsStages...)

	points, err = NewGraphicsPipeline(context, PipelineSpec{
		Stages:     graphicsStages,
		Renderpass: colorPass,
		Samples:    context.MSAASamples,
		PointList:  true,
		Stride:     particleStride,
		Attributes: particleAttributes(),
	})
	if err != nil {
		compute.Destroy(context)
		return nil, nil, err
	}
	return compute, points, nil
}

// StageReload builds both pipelines from new bytecode and queues them on swap.
func (ps *ParticleSystem) StageReload(context *VulkanContext, shaders metadata.ShaderSet, swap *pipelineSwap) error {
	compute, points, err := newParticlePipelines(context, ps.setLayout, shaders, ps.Points.spec.Renderpass)
	if err != nil {
		return err
	}
	swap.stage(ps.Compute, compute)
	swap.stage(ps.Points, points)
	return nil
}

func (ps *ParticleSystem) Name() string { return "particles" }

func (ps *ParticleSystem) RecordPrePass(cb *VulkanCommandBuffer, frame FrameInfo) {
	particleReadToWrite.record(cb, ps.Buffer)

	ps.Compute.Bind(cb)
	vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointCompute, ps.Compute.PipelineLayout, 0, 1, []vk.DescriptorSet{ps.set}, 0, nil)
	push := particlePushConstants{DeltaTime: frame.DeltaTime}
	vk.CmdPushConstants(cb.Handle, ps.Compute.PipelineLayout, particlePushConstantRange.StageFlags, 0, particlePushConstantRange.Size, unsafe.Pointer(&push))
	vk.CmdDispatch(cb.Handle, dispatchGroups(ps.Count), 1, 1)

	particleWriteToRead.record(cb, ps.Buffer)
}

func (ps *ParticleSystem) RecordColorPass(cb *VulkanCommandBuffer, frame FrameInfo) {
	ps.Points.Bind(cb)
	cmdSetViewportScissor(cb, frame.Extent)
	vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{ps.Buffer.Handle}, []vk.DeviceSize{0})
	vk.CmdDraw(cb.Handle, ps.Count, 1, 0, 0)
}

func (ps *ParticleSystem) Destroy(context *VulkanContext) {
	if ps.Points != nil {
		ps.Points.Destroy(context)
		ps.Points = nil
	}
	if ps.Compute != nil {
		ps.Compute.Destroy(context)
		ps.Compute = nil
	}
	if ps.pool != vk.NullDescriptorPool {
		DestroyDescriptorPool(context, ps.pool)
		ps.pool = vk.NullDescriptorPool
	}
	if ps.setLayout != vk.NullDescriptorSetLayout {
		DestroyDescriptorSetLayout(context, ps.setLayout)
		ps.setLayout = vk.NullDescriptorSetLayout
	}
	if ps.Buffer != nil {
		ps.Buffer.Destroy(context)
		ps.Buffer = nil
	}
}
