package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/vulkan"
)

type ApplicationConfig struct {
	// The application name used in windowing and as the Vulkan application name.
	Name string `toml:"name"`
	// Window starting width and height.
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
	// Window starting position.
	PosX     uint32        `toml:"pos_x"`
	PosY     uint32        `toml:"pos_y"`
	LogLevel core.LogLevel `toml:"log_level"`
	// Enables validation layers.
	Debug          bool   `toml:"debug"`
	FramesInFlight uint32 `toml:"frames_in_flight"`
	// Requested sample count, clamped to the device maximum.
	MSAASamples uint32 `toml:"msaa_samples"`
	VSync       bool   `toml:"vsync"`
	// Rebuild pipelines when compiled shaders change on disk.
	HotReload bool `toml:"hot_reload"`

	Assets    AssetsConfig    `toml:"assets"`
	Scene     SceneConfig     `toml:"scene"`
	Particles ParticlesConfig `toml:"particles"`
}

type AssetsConfig struct {
	// Asset root. Every other path is relative to it.
	Dir       string `toml:"dir"`
	ShaderDir string `toml:"shader_dir"`
	// Optional scene texture; empty selects a white texture.
	Texture string `toml:"texture"`
}

type SceneConfig struct {
	CameraPosition [3]float32    `toml:"camera_position"`
	LightPosition  [3]float32    `toml:"light_position"`
	Shapes         []ShapeConfig `toml:"shapes"`
	Models         []ModelConfig `toml:"models"`
}

type ShapeKind string

const (
	ShapeCube   ShapeKind = "cube"
	ShapePlane  ShapeKind = "plane"
	ShapeSphere ShapeKind = "sphere"
)

type ShapeConfig struct {
	Kind     ShapeKind  `toml:"kind"`
	Size     float32    `toml:"size"`
	Position [3]float32 `toml:"position"`
	Colour   [3]float32 `toml:"colour"`
	// Rotation around Y in degrees, and its rate in degrees per second.
	Yaw  float32 `toml:"yaw"`
	Spin float32 `toml:"spin"`
}

type ModelConfig struct {
	// OBJ file relative to the asset root.
	Path     string     `toml:"path"`
	Position [3]float32 `toml:"position"`
	Scale    float32    `toml:"scale"`
	Yaw      float32    `toml:"yaw"`
	Spin     float32    `toml:"spin"`
}

type ParticlesConfig struct {
	Enabled bool   `toml:"enabled"`
	Count   uint32 `toml:"count"`
}

// DefaultApplicationConfig is the configuration used when no file exists.
func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Name:           "Penumbra",
		Width:          1280,
		Height:         720,
		PosX:           100,
		PosY:           100,
		LogLevel:       core.LogLevelInfo,
		FramesInFlight: vulkan.DefaultFramesInFlight,
		MSAASamples:    4,
		VSync:          true,
		Assets: AssetsConfig{
			Dir:       "assets",
			ShaderDir: "shaders",
		},
		Scene: SceneConfig{
			CameraPosition: [3]float32{0, 3, 8},
			LightPosition:  [3]float32{4, 8, 4},
			Shapes: []ShapeConfig{
				{Kind: ShapePlane, Size: 12, Colour: [3]float32{0.8, 0.8, 0.8}},
				{Kind: ShapeCube, Size: 1.5, Position: [3]float32{0, 0.75, 0}, Colour: [3]float32{0.9, 0.4, 0.3}, Spin: 30},
				{Kind: ShapeSphere, Size: 0.75, Position: [3]float32{2.5, 0.75, 0}, Colour: [3]float32{0.3, 0.6, 0.9}},
			},
		},
		Particles: ParticlesConfig{Count: 8192},
	}
}

/**
 * @brief Reads the TOML file at path over the defaults. A missing file yields
 * the defaults; unknown keys and invalid values are errors.
 */
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	cfg := DefaultApplicationConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		core.LogWarn("config %s not found, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := decodeApplicationConfig(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeApplicationConfig(data []byte, cfg *ApplicationConfig) error {
	// Shapes listed in the file replace the default scene instead of extending it.
	defaultShapes := cfg.Scene.Shapes
	cfg.Scene.Shapes = nil
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("unknown keys:\n%s", strict.String())
		}
		return err
	}
	if cfg.Scene.Shapes == nil {
		cfg.Scene.Shapes = defaultShapes
	}
	return cfg.Validate()
}

func (c *ApplicationConfig) Validate() error {
	if c.Width == 0 || c.Height == 0 {
		return fmt.Errorf("window size %dx%d must be non-zero", c.Width, c.Height)
	}
	if c.FramesInFlight < 1 || c.FramesInFlight > vulkan.MaxFramesInFlight {
		return fmt.Errorf("frames_in_flight must be between 1 and %d, got %d", vulkan.MaxFramesInFlight, c.FramesInFlight)
	}
	switch c.MSAASamples {
	case 1, 2, 4, 8, 16, 32, 64:
	default:
		return fmt.Errorf("msaa_samples must be a power of two up to 64, got %d", c.MSAASamples)
	}
	switch c.LogLevel {
	case core.LogLevelDebug, core.LogLevelInfo, core.LogLevelWarn, core.LogLevelError:
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	if c.Assets.Dir == "" {
		return fmt.Errorf("assets.dir must be set")
	}
	for i, s := range c.Scene.Shapes {
		switch s.Kind {
		case ShapeCube, ShapePlane, ShapeSphere:
		default:
			return fmt.Errorf("scene.shapes[%d]: unknown kind %q", i, s.Kind)
		}
		if s.Size <= 0 {
			return fmt.Errorf("scene.shapes[%d]: size must be positive", i)
		}
	}
	for i, m := range c.Scene.Models {
		if m.Path == "" {
			return fmt.Errorf("scene.models[%d]: path must be set", i)
		}
		if m.Scale < 0 {
			return fmt.Errorf("scene.models[%d]: scale must not be negative", i)
		}
	}
	if c.Particles.Enabled && c.Particles.Count == 0 {
		return fmt.Errorf("particles.count must be positive when particles are enabled")
	}
	return nil
}
