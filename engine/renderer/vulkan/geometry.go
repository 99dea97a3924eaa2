package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	lin "github.com/xlab/linmath"

	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

var vertexStride = uint32(unsafe.Sizeof(metadata.Vertex{}))

// VertexAttributes describes metadata.Vertex at locations 0..3.
func VertexAttributes() []vk.VertexInputAttributeDescription {
	var v metadata.Vertex
	return []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(v.Position))},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(v.Normal))},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(v.Colour))},
		{Location: 3, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: uint32(unsafe.Offsetof(v.Texcoord))},
	}
}

// drawPushConstants is pushed per draw in both passes.
type drawPushConstants struct {
	Model lin.Mat4x4
}

var drawPushConstantRange = vk.PushConstantRange{
	StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	Offset:     0,
	Size:       uint32(unsafe.Sizeof(drawPushConstants{})),
}

/**
 * @brief Device-resident geometry plus the pipeline and per-slot colour
 * descriptor sets it is drawn with.
 */
type Drawable struct {
	ID           uuid.UUID
	Name         string
	VertexBuffer *VulkanBuffer
	IndexBuffer  *VulkanBuffer
	IndexCount   uint32
	Pipeline     *VulkanPipeline
	// Indexed by frame slot.
	ColorSets []vk.DescriptorSet
	Model     lin.Mat4x4
}

func NewDrawable(context *VulkanContext, mesh *metadata.Mesh, pipeline *VulkanPipeline, colorSets []vk.DescriptorSet, model lin.Mat4x4) (*Drawable, error) {
	if len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		return nil, fmt.Errorf("mesh %q has no geometry", mesh.Name)
	}

	vertexBuffer, err := UploadViaStaging(context, sliceBytes(mesh.Vertices), vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return nil, fmt.Errorf("uploading vertices of %q: %w", mesh.Name, err)
	}
	indexBuffer, err := UploadViaStaging(context, sliceBytes(mesh.Indices), vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		vertexBuffer.Destroy(context)
		return nil, fmt.Errorf("uploading indices of %q: %w", mesh.Name, err)
	}

	return &Drawable{
		ID:           uuid.New(),
		Name:         mesh.Name,
		VertexBuffer: vertexBuffer,
		IndexBuffer:  indexBuffer,
		IndexCount:   mesh.IndexCount(),
		Pipeline:     pipeline,
		ColorSets:    colorSets,
		Model:        model,
	}, nil
}

// Draw binds the geometry, pushes the model matrix and issues one indexed draw.
func (d *Drawable) Draw(commandBuffer *VulkanCommandBuffer, layout vk.PipelineLayout) {
	vk.CmdBindVertexBuffers(commandBuffer.Handle, 0, 1, []vk.Buffer{d.VertexBuffer.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(commandBuffer.Handle, d.IndexBuffer.Handle, 0, vk.IndexTypeUint32)

	push := drawPushConstants{Model: d.Model}
	vk.CmdPushConstants(commandBuffer.Handle, layout, drawPushConstantRange.StageFlags, 0, drawPushConstantRange.Size, unsafe.Pointer(&push))
	vk.CmdDrawIndexed(commandBuffer.Handle, d.IndexCount, 1, 0, 0, 0)
}

func (d *Drawable) Destroy(context *VulkanContext) {
	if d.IndexBuffer != nil {
		d.IndexBuffer.Destroy(context)
		d.IndexBuffer = nil
	}
	if d.VertexBuffer != nil {
		d.VertexBuffer.Destroy(context)
		d.VertexBuffer = nil
	}
}
