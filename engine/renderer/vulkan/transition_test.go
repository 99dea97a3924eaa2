package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

func TestLookupTransitionTable(t *testing.T) {
	tests := []struct {
		name     string
		old, new vk.ImageLayout
		want     LayoutTransition
	}{
		{
			name: "upload target",
			old:  vk.ImageLayoutUndefined,
			new:  vk.ImageLayoutTransferDstOptimal,
			want: LayoutTransition{
				SrcAccess: 0,
				DstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
				SrcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
				DstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			},
		},
		{
			name: "uploaded texture to sampled",
			old:  vk.ImageLayoutTransferDstOptimal,
			new:  vk.ImageLayoutShaderReadOnlyOptimal,
			want: LayoutTransition{
				SrcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
				DstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
				SrcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
				DstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			},
		},
		{
			name: "depth attachment",
			old:  vk.ImageLayoutUndefined,
			new:  vk.ImageLayoutDepthStencilAttachmentOptimal,
			want: LayoutTransition{
				SrcAccess: 0,
				DstAccess: vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit) | vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
				SrcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
				DstStage:  vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
			},
		},
		{
			name: "mip source",
			old:  vk.ImageLayoutTransferDstOptimal,
			new:  vk.ImageLayoutTransferSrcOptimal,
			want: LayoutTransition{
				SrcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
				DstAccess: vk.AccessFlags(vk.AccessTransferReadBit),
				SrcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
				DstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			},
		},
		{
			name: "shadow map to sampled",
			old:  vk.ImageLayoutDepthStencilAttachmentOptimal,
			new:  vk.ImageLayoutDepthStencilReadOnlyOptimal,
			want: LayoutTransition{
				SrcAccess: vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
				DstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
				SrcStage:  vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit),
				DstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Repeated lookups must agree.
			for i := 0; i < 3; i++ {
				got, err := LookupTransition(tt.old, tt.new)
				if err != nil {
					t.Fatal(err)
				}
				if got != tt.want {
					t.Fatalf("got %+v, want %+v", got, tt.want)
				}
			}
		})
	}
}

func TestLookupTransitionEveryEntryHasStages(t *testing.T) {
	for pair := range layoutTransitions {
		got, err := LookupTransition(pair.Old, pair.New)
		if err != nil {
			t.Fatalf("%v: %v", pair, err)
		}
		if got.SrcStage == 0 || got.DstStage == 0 {
			t.Errorf("%v: empty stage mask %+v", pair, got)
		}
	}
}

func TestLookupTransitionRejectsUnknownPairs(t *testing.T) {
	unknown := [][2]vk.ImageLayout{
		{vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutTransferDstOptimal},
		{vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutUndefined},
		{vk.ImageLayoutUndefined, vk.ImageLayoutPresentSrc},
		{vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutColorAttachmentOptimal},
		{vk.ImageLayoutDepthStencilReadOnlyOptimal, vk.ImageLayoutDepthStencilAttachmentOptimal},
	}
	for _, pair := range unknown {
		if _, err := LookupTransition(pair[0], pair[1]); !errors.Is(err, core.ErrUnsupportedLayoutTransition) {
			t.Errorf("%d -> %d: err = %v, want ErrUnsupportedLayoutTransition", pair[0], pair[1], err)
		}
	}
}

func TestAspectMaskFor(t *testing.T) {
	depth := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	stencil := vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	colour := vk.ImageAspectFlags(vk.ImageAspectColorBit)

	if got := aspectMaskFor(vk.FormatD32Sfloat, vk.ImageLayoutDepthStencilAttachmentOptimal); got != depth {
		t.Errorf("D32 aspect = %d", got)
	}
	if got := aspectMaskFor(vk.FormatD24UnormS8Uint, vk.ImageLayoutDepthStencilAttachmentOptimal); got != depth|stencil {
		t.Errorf("D24S8 aspect = %d", got)
	}
	if got := aspectMaskFor(vk.FormatR8g8b8a8Srgb, vk.ImageLayoutTransferDstOptimal); got != colour {
		t.Errorf("colour aspect = %d", got)
	}
}
