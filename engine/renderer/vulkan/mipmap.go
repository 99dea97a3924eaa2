package vulkan

import (
	"fmt"
	"math/bits"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

// MipLevels is floor(log2(max(width, height))) + 1.
func MipLevels(width, height uint32) uint32 {
	m := width
	if height > m {
		m = height
	}
	if m == 0 {
		return 1
	}
	return uint32(bits.Len32(m))
}

// MipExtents lists the size of every level, halving each step and never going below 1.
func MipExtents(width, height, levels uint32) [][2]uint32 {
	out := make([][2]uint32, levels)
	w, h := width, height
	for i := range out {
		out[i] = [2]uint32{w, h}
		if w > 1 {
			w /= 2
		}
		if h > 1 {
			h /= 2
		}
	}
	return out
}

// SupportsLinearBlit checks the optimal-tiling features of format for filtered blits.
func SupportsLinearBlit(context *VulkanContext, format vk.Format) bool {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(context.Device.PhysicalDevice, format, &props)
	props.Deref()
	need := vk.FormatFeatureFlags(vk.FormatFeatureSampledImageFilterLinearBit)
	return props.OptimalTilingFeatures&need == need
}

/**
 * @brief Fills levels 1..N-1 of image by blitting each level from its predecessor
 * with linear filtering. Every level must be in TRANSFER_DST_OPTIMAL on entry;
 * every level is SHADER_READ_ONLY_OPTIMAL on return.
 */
func GenerateMipmaps(context *VulkanContext, image *VulkanImage) error {
	if !SupportsLinearBlit(context, image.Format) {
		err := fmt.Errorf("format %d: %w", image.Format, core.ErrLinearBlitUnsupported)
		core.LogError(err.Error())
		return err
	}

	extents := MipExtents(image.Width, image.Height, image.MipLevels)
	return SingleUse(context, func(cb *VulkanCommandBuffer) error {
		for i := uint32(1); i < image.MipLevels; i++ {
			// Source level becomes readable.
			if err := CmdTransitionImageLayout(cb, image.Handle, image.Format,
				vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal, i-1, 1); err != nil {
				return err
			}

			src, dst := extents[i-1], extents[i]
			blit := vk.ImageBlit{
				SrcSubresource: vk.ImageSubresourceLayers{
					AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
					MipLevel:   i - 1,
					LayerCount: 1,
				},
				SrcOffsets: [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: int32(src[0]), Y: int32(src[1]), Z: 1}},
				DstSubresource: vk.ImageSubresourceLayers{
					AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
					MipLevel:   i,
					LayerCount: 1,
				},
				DstOffsets: [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: int32(dst[0]), Y: int32(dst[1]), Z: 1}},
			}
			vk.CmdBlitImage(cb.Handle,
				image.Handle, vk.ImageLayoutTransferSrcOptimal,
				image.Handle, vk.ImageLayoutTransferDstOptimal,
				1, []vk.ImageBlit{blit}, vk.FilterLinear)

			// Finished source level is ready for sampling.
			if err := CmdTransitionImageLayout(cb, image.Handle, image.Format,
				vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal, i-1, 1); err != nil {
				return err
			}
		}
		// The last level was only ever written.
		return CmdTransitionImageLayout(cb, image.Handle, image.Format,
			vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal, image.MipLevels-1, 1)
	})
}
