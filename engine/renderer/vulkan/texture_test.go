package vulkan

import (
	"testing"

	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

func TestWhiteTextureIsValid(t *testing.T) {
	white := whiteTexture()
	if err := validateTextureData(white); err != nil {
		t.Fatal(err)
	}
	if MipLevels(white.Width, white.Height) != 1 {
		t.Fatalf("fallback texture should have a single level")
	}
}

func TestValidateTextureData(t *testing.T) {
	tests := []struct {
		name string
		data metadata.TextureData
		ok   bool
	}{
		{"rgba", metadata.TextureData{Width: 2, Height: 2, Pixels: make([]byte, 16)}, true},
		{"short", metadata.TextureData{Width: 2, Height: 2, Pixels: make([]byte, 12)}, false},
		{"zero width", metadata.TextureData{Width: 0, Height: 2}, false},
	}
	for _, tt := range tests {
		if err := validateTextureData(&tt.data); (err == nil) != tt.ok {
			t.Errorf("%s: err = %v", tt.name, err)
		}
	}
}
