package vulkan

import (
	"encoding/binary"
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

const spirvMagic = 0x07230203

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	Handle     vk.ShaderModule
	Stage      vk.ShaderStageFlagBits
	EntryPoint string
}

func validateSPIRV(code []byte) error {
	if len(code) < 4 || len(code)%4 != 0 {
		return fmt.Errorf("spir-v size %d is not a positive multiple of 4", len(code))
	}
	if magic := binary.LittleEndian.Uint32(code); magic != spirvMagic {
		return fmt.Errorf("bad spir-v magic %#x", magic)
	}
	return nil
}

// NewShaderStage creates a module from SPIR-V bytecode with entry point "main".
func NewShaderStage(context *VulkanContext, code []byte, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	if err := validateSPIRV(code); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    spirvWords(code),
	}

	shaderStage := &VulkanShaderStage{Stage: stage, EntryPoint: "main"}
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &shaderStage.Handle); res != vk.Success {
		err := fmt.Errorf("vkCreateShaderModule failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	return shaderStage, nil
}

func (s *VulkanShaderStage) CreateInfo() vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  s.Stage,
		Module: s.Handle,
		PName:  VulkanSafeString(s.EntryPoint),
	}
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s.Handle != vk.NullShaderModule {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = vk.NullShaderModule
	}
}

// destroyStages releases modules once the pipelines built from them exist.
func destroyStages(context *VulkanContext, stages ...*VulkanShaderStage) {
	for _, s := range stages {
		if s != nil {
			s.Destroy(context)
		}
	}
}

type stageSource struct {
	name  string
	code  []byte
	stage vk.ShaderStageFlagBits
}

// newShaderStages creates one module per source, releasing any already built on failure.
func newShaderStages(context *VulkanContext, sources ...stageSource) ([]*VulkanShaderStage, error) {
	stages := make([]*VulkanShaderStage, 0, len(sources))
	for _, src := range sources {
		stage, err := NewShaderStage(context, src.code, src.stage)
		if err != nil {
			destroyStages(context, stages...)
			return nil, fmt.Errorf("shader %s: %w", src.name, err)
		}
		stages = append(stages, stage)
	}
	return stages, nil
}
