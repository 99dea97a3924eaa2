package vulkan

import (
	gomath "math"
	"testing"

	vk "github.com/goki/vulkan"
)

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	unorm := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	if got := ChooseSurfaceFormat([]vk.SurfaceFormat{unorm, srgb}); got.Format != srgb.Format {
		t.Errorf("preferred format not picked: %d", got.Format)
	}
	if got := ChooseSurfaceFormat([]vk.SurfaceFormat{unorm}); got.Format != unorm.Format {
		t.Errorf("fallback format = %d, want first offered", got.Format)
	}
}

func TestChoosePresentMode(t *testing.T) {
	all := []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifo, vk.PresentModeMailbox}
	tests := []struct {
		name  string
		modes []vk.PresentMode
		vsync bool
		want  vk.PresentMode
	}{
		{"vsync always fifo", all, true, vk.PresentModeFifo},
		{"mailbox preferred", all, false, vk.PresentModeMailbox},
		{"immediate over fifo", []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate}, false, vk.PresentModeImmediate},
		{"fifo fallback", []vk.PresentMode{vk.PresentModeFifo}, false, vk.PresentModeFifo},
	}
	for _, tt := range tests {
		if got := choosePresentMode(tt.modes, tt.vsync); got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestChooseExtent(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: gomath.MaxUint32, Height: gomath.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 4096, Height: 2048},
	}
	if got := chooseExtent(caps, 800, 600); got.Width != 800 || got.Height != 600 {
		t.Errorf("free extent = %+v", got)
	}
	if got := chooseExtent(caps, 8000, 6000); got.Width != 4096 || got.Height != 2048 {
		t.Errorf("clamped extent = %+v", got)
	}

	caps.CurrentExtent = vk.Extent2D{Width: 1280, Height: 720}
	if got := chooseExtent(caps, 800, 600); got.Width != 1280 || got.Height != 720 {
		t.Errorf("surface extent not honoured: %+v", got)
	}
}

func TestChooseImageCount(t *testing.T) {
	if got := chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 0}); got != 3 {
		t.Errorf("unbounded: got %d", got)
	}
	if got := chooseImageCount(vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 2}); got != 2 {
		t.Errorf("bounded: got %d", got)
	}
}
