package metadata

type RendererBackendConfig struct {
	/** @brief The name of the application */
	ApplicationName string
	/** @brief Enables validation layers and the debug messenger. */
	Debug bool
	/** @brief Number of frame slots in flight. */
	FramesInFlight uint32
	/** @brief Requested MSAA sample count, clamped to what the device supports. */
	MSAASamples uint32
	VSync       bool
	/** @brief SPIR-V sources for the shadow, scene and particle pipelines. */
	Shaders ShaderSet
	/** @brief Decoded RGBA8 pixels of the scene texture; nil selects a 1x1 white texture. */
	Texture *TextureData
	Particles ParticleConfig
}

/** @brief Compiled SPIR-V bytecode for every pipeline stage the renderer builds. */
type ShaderSet struct {
	ShadowVertex   []byte
	SceneVertex    []byte
	SceneFragment  []byte
	ParticleVertex []byte
	ParticleFrag   []byte
	ParticleComp   []byte
}

type TextureData struct {
	Width  uint32
	Height uint32
	Pixels []byte
}

type ParticleConfig struct {
	Enabled bool
	Count   uint32
}
