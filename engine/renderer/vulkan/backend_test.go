package vulkan

import (
	"reflect"
	"testing"

	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

func TestMissingLayers(t *testing.T) {
	tests := []struct {
		name      string
		required  []string
		available []string
		want      []string
	}{
		{"present", []string{validationLayerName}, []string{"VK_LAYER_MESA_device_select", validationLayerName}, nil},
		{"absent", []string{validationLayerName}, []string{"VK_LAYER_MESA_device_select"}, []string{validationLayerName}},
		{"nothing required", nil, []string{validationLayerName}, nil},
		{"nothing available", []string{"a", "b"}, nil, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := missingLayers(tt.required, tt.available); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("missingLayers = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewDefaultsFramesInFlight(t *testing.T) {
	vr := New(nil, metadataConfig(0))
	if vr.config.FramesInFlight != DefaultFramesInFlight {
		t.Fatalf("FramesInFlight = %d, want %d", vr.config.FramesInFlight, DefaultFramesInFlight)
	}
	vr = New(nil, metadataConfig(3))
	if vr.config.FramesInFlight != 3 {
		t.Fatalf("FramesInFlight = %d, want 3", vr.config.FramesInFlight)
	}
}

func TestWriteUniformsDeltaTime(t *testing.T) {
	vr := New(nil, metadataConfig(2))
	vr.frames = &FrameResources{Slots: []*FrameSlot{{UniformBuffer: &VulkanBuffer{}}}}

	// The buffer is not mapped, so the write fails, but the clock still advances.
	payload := uniformAt(1.5)
	_ = vr.WriteUniforms(0, &payload)
	payload = uniformAt(1.75)
	_ = vr.WriteUniforms(0, &payload)
	if vr.deltaTime != 0.25 {
		t.Fatalf("deltaTime = %v, want 0.25", vr.deltaTime)
	}
	payload = uniformAt(0.5)
	_ = vr.WriteUniforms(0, &payload)
	if vr.deltaTime != 0 {
		t.Fatalf("deltaTime went negative: %v", vr.deltaTime)
	}
}

func metadataConfig(frames uint32) metadata.RendererBackendConfig {
	return metadata.RendererBackendConfig{ApplicationName: "test", FramesInFlight: frames}
}

func uniformAt(seconds float32) metadata.UniformPayload {
	return metadata.UniformPayload{Time: seconds}
}
