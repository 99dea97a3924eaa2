package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

const textureFormat = vk.FormatR8g8b8a8Srgb

/**
 * @brief The scene texture: a mip-mapped RGBA8 image and its sampler.
 */
type VulkanTexture struct {
	Image   *VulkanImage
	Sampler vk.Sampler
}

// whiteTexture is bound when the scene has no texture, leaving vertex colours untouched.
func whiteTexture() *metadata.TextureData {
	return &metadata.TextureData{Width: 1, Height: 1, Pixels: []byte{0xFF, 0xFF, 0xFF, 0xFF}}
}

func validateTextureData(data *metadata.TextureData) error {
	if data.Width == 0 || data.Height == 0 {
		return fmt.Errorf("texture has zero size %dx%d", data.Width, data.Height)
	}
	if want := int(data.Width) * int(data.Height) * 4; len(data.Pixels) != want {
		return fmt.Errorf("texture %dx%d has %d bytes, want %d", data.Width, data.Height, len(data.Pixels), want)
	}
	return nil
}

func NewTexture(context *VulkanContext, data *metadata.TextureData) (*VulkanTexture, error) {
	if data == nil {
		data = whiteTexture()
	}
	if err := validateTextureData(data); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	staging, err := newStagingBuffer(context, data.Pixels)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(context)

	levels := MipLevels(data.Width, data.Height)
	image, err := ImageCreate(context, ImageSpec{
		Width:     data.Width,
		Height:    data.Height,
		MipLevels: levels,
		Format:    textureFormat,
		Tiling:    vk.ImageTilingOptimal,
		Usage: vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit) |
			vk.ImageUsageFlags(vk.ImageUsageTransferDstBit) |
			vk.ImageUsageFlags(vk.ImageUsageSampledBit),
		MemoryFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		ViewAspect:  vk.ImageAspectFlags(vk.ImageAspectColorBit),
	})
	if err != nil {
		return nil, err
	}
	texture := &VulkanTexture{Image: image}

	if err := TransitionImageLayout(context, image, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		texture.Destroy(context)
		return nil, err
	}
	if err := CopyBufferToImage(context, staging, image); err != nil {
		texture.Destroy(context)
		return nil, err
	}
	if levels > 1 {
		err = GenerateMipmaps(context, image)
	} else {
		err = TransitionImageLayout(context, image, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	}
	if err != nil {
		texture.Destroy(context)
		return nil, err
	}

	limits := context.Device.Properties.Limits
	limits.Deref()
	texture.Sampler, err = createSampler(context, vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        vk.FilterLinear,
		MinFilter:        vk.FilterLinear,
		AddressModeU:     vk.SamplerAddressModeRepeat,
		AddressModeV:     vk.SamplerAddressModeRepeat,
		AddressModeW:     vk.SamplerAddressModeRepeat,
		AnisotropyEnable: vk.True,
		MaxAnisotropy:    limits.MaxSamplerAnisotropy,
		CompareEnable:    vk.False,
		CompareOp:        vk.CompareOpAlways,
		MipmapMode:       vk.SamplerMipmapModeLinear,
		MinLod:           0,
		MaxLod:           float32(levels),
	})
	if err != nil {
		texture.Destroy(context)
		return nil, err
	}

	core.LogInfo("Texture uploaded: %dx%d, %d mip levels.", data.Width, data.Height, levels)
	return texture, nil
}

// NewShadowSampler samples depth without filtering across texels; outside the map reads as lit.
func NewShadowSampler(context *VulkanContext) (vk.Sampler, error) {
	return createSampler(context, vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    vk.FilterNearest,
		MinFilter:    vk.FilterNearest,
		AddressModeU: vk.SamplerAddressModeClampToBorder,
		AddressModeV: vk.SamplerAddressModeClampToBorder,
		AddressModeW: vk.SamplerAddressModeClampToBorder,
		BorderColor:  vk.BorderColorFloatOpaqueWhite,
		MipmapMode:   vk.SamplerMipmapModeNearest,
		MaxLod:       1,
	})
}

func createSampler(context *VulkanContext, info vk.SamplerCreateInfo) (vk.Sampler, error) {
	var sampler vk.Sampler
	if res := vk.CreateSampler(context.Device.LogicalDevice, &info, context.Allocator, &sampler); res != vk.Success {
		err := fmt.Errorf("vkCreateSampler failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return vk.NullSampler, err
	}
	return sampler, nil
}

func DestroySampler(context *VulkanContext, sampler vk.Sampler) {
	if sampler != vk.NullSampler {
		vk.DestroySampler(context.Device.LogicalDevice, sampler, context.Allocator)
	}
}

func (t *VulkanTexture) Destroy(context *VulkanContext) {
	DestroySampler(context, t.Sampler)
	t.Sampler = vk.NullSampler
	if t.Image != nil {
		t.Image.Destroy(context)
		t.Image = nil
	}
}
