package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spaghettifunk/penumbra/engine/core"
)

func TestLoadApplicationConfigMissingFile(t *testing.T) {
	cfg, err := LoadApplicationConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 1280 || cfg.FramesInFlight != 2 || len(cfg.Scene.Shapes) == 0 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestDecodeApplicationConfig(t *testing.T) {
	const file = `
name = "shadows"
width = 800
height = 600
log_level = "debug"
frames_in_flight = 3
msaa_samples = 8
hot_reload = true

[assets]
dir = "data"
texture = "textures/crate.png"

[scene]
camera_position = [1.0, 2.0, 3.0]

[[scene.shapes]]
kind = "sphere"
size = 2.0
colour = [1.0, 0.0, 0.0]

[[scene.models]]
path = "models/bunny.obj"
scale = 0.5

[particles]
enabled = true
count = 1024
`
	cfg := DefaultApplicationConfig()
	if err := decodeApplicationConfig([]byte(file), cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "shadows" || cfg.Width != 800 || cfg.FramesInFlight != 3 || cfg.MSAASamples != 8 {
		t.Errorf("top level = %+v", cfg)
	}
	if cfg.LogLevel != core.LogLevelDebug || !cfg.HotReload {
		t.Errorf("log level %q, hot reload %v", cfg.LogLevel, cfg.HotReload)
	}
	// Unset keys keep their defaults.
	if cfg.Assets.ShaderDir != "shaders" || cfg.Height != 600 || !cfg.VSync {
		t.Errorf("defaults lost: %+v", cfg.Assets)
	}
	if len(cfg.Scene.Shapes) != 1 || cfg.Scene.Shapes[0].Kind != ShapeSphere {
		t.Errorf("shapes = %+v, want only the configured sphere", cfg.Scene.Shapes)
	}
	if len(cfg.Scene.Models) != 1 || cfg.Scene.Models[0].Scale != 0.5 {
		t.Errorf("models = %+v", cfg.Scene.Models)
	}
	if cfg.Scene.CameraPosition != [3]float32{1, 2, 3} {
		t.Errorf("camera = %v", cfg.Scene.CameraPosition)
	}
	if !cfg.Particles.Enabled || cfg.Particles.Count != 1024 {
		t.Errorf("particles = %+v", cfg.Particles)
	}
}

func TestDecodeApplicationConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		file string
		want string
	}{
		{"unknown key", "colour_depth = 10\n", "unknown keys"},
		{"zero width", "width = 0\n", "window size"},
		{"too many frames", "frames_in_flight = 9\n", "frames_in_flight"},
		{"odd samples", "msaa_samples = 3\n", "msaa_samples"},
		{"log level", "log_level = \"loud\"\n", "log_level"},
		{"shape kind", "[[scene.shapes]]\nkind = \"torus\"\nsize = 1.0\n", "unknown kind"},
		{"shape size", "[[scene.shapes]]\nkind = \"cube\"\n", "size must be positive"},
		{"model path", "[[scene.models]]\nscale = 1.0\n", "path must be set"},
		{"particle count", "[particles]\nenabled = true\ncount = 0\n", "particles.count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := decodeApplicationConfig([]byte(tt.file), DefaultApplicationConfig())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadApplicationConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "penumbra.toml")
	if err := os.WriteFile(path, []byte("vsync = false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadApplicationConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.VSync {
		t.Error("vsync was not overridden")
	}

	if err := os.WriteFile(path, []byte("width = \"wide\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadApplicationConfig(path); err == nil {
		t.Error("a type mismatch was accepted")
	}
}
