package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/spaghettifunk/penumbra/engine/assets"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/math"
	"github.com/spaghettifunk/penumbra/engine/platform"
	"github.com/spaghettifunk/penumbra/engine/renderer"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
	"github.com/spaghettifunk/penumbra/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	config       *ApplicationConfig
	currentStage Stage
	isRunning    atomic.Bool
	isPaused     bool

	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     *vulkan.VulkanRenderer
	orchestrator *renderer.Orchestrator

	camera   *math.Camera
	uniforms *sceneUniforms
	objects  []*sceneObject

	shadersChanged atomic.Bool

	clock       *core.Clock
	lastTime    float64
	lastMetrics float64
}

func New(config *ApplicationConfig) (*Engine, error) {
	if err := config.Validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	am, err := assets.NewAssetManager(config.Assets.Dir)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	camera := math.NewCamera(vec3(config.Scene.CameraPosition))
	return &Engine{
		config:       config,
		currentStage: EngineStageUninitialized,
		platform:     platform.New(),
		assetManager: am,
		camera:       camera,
		uniforms: &sceneUniforms{
			camera: camera,
			light:  vec3(config.Scene.LightPosition),
		},
		clock: core.NewClock(),
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	if err := core.SetLogLevel(e.config.LogLevel); err != nil {
		return err
	}
	if err := core.InputInitialize(); err != nil {
		return err
	}
	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}
	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, e.onResized)
	core.EventRegister(core.EVENT_CODE_SHADERS_CHANGED, e, e.onShadersChanged)

	if err := e.platform.Startup(e.config.Name, e.config.PosX, e.config.PosY, e.config.Width, e.config.Height); err != nil {
		return err
	}

	if err := e.assetManager.Initialize(e.config.HotReload); err != nil {
		return err
	}

	rendererConfig, err := e.rendererConfig()
	if err != nil {
		return err
	}
	e.renderer = vulkan.New(e.platform, rendererConfig)
	if err := e.renderer.Initialize(); err != nil {
		core.LogError("renderer initialization failed: %s", err)
		return err
	}

	if err := e.buildScene(); err != nil {
		return err
	}

	e.orchestrator = renderer.NewOrchestrator(e.renderer, e.platform, e.uniforms)
	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) rendererConfig() (metadata.RendererBackendConfig, error) {
	particles := e.config.Particles.Enabled
	shaders, err := e.assetManager.LoadShaderSet(e.config.Assets.ShaderDir, particles)
	if err != nil {
		core.LogError("loading shaders: %s", err)
		return metadata.RendererBackendConfig{}, err
	}

	var texture *metadata.TextureData
	if e.config.Assets.Texture != "" {
		res, err := e.assetManager.LoadAsset(e.config.Assets.Texture, &metadata.ImageResourceParams{FlipY: false})
		if err != nil {
			return metadata.RendererBackendConfig{}, err
		}
		texture = res.Data.(*metadata.TextureData)
	}

	return metadata.RendererBackendConfig{
		ApplicationName: e.config.Name,
		Debug:           e.config.Debug,
		FramesInFlight:  e.config.FramesInFlight,
		MSAASamples:     e.config.MSAASamples,
		VSync:           e.config.VSync,
		Shaders:         shaders,
		Texture:         texture,
		Particles: metadata.ParticleConfig{
			Enabled: particles,
			Count:   e.config.Particles.Count,
		},
	}, nil
}

// buildScene uploads the configured shapes and models.
func (e *Engine) buildScene() error {
	for i, s := range e.config.Scene.Shapes {
		mesh, err := meshForShape(s, i)
		if err != nil {
			return err
		}
		if err := e.addObject(mesh, &sceneObject{
			translation: vec3(s.Position),
			scale:       1,
			yaw:         s.Yaw,
			spin:        s.Spin,
		}); err != nil {
			return err
		}
	}

	// Models are decoded in parallel and uploaded in order.
	requests := make([]assets.LoadRequest, len(e.config.Scene.Models))
	for i, m := range e.config.Scene.Models {
		requests[i] = assets.LoadRequest{Path: m.Path}
	}
	models, err := e.assetManager.LoadBatch(runtime.NumCPU(), requests)
	if err != nil {
		return err
	}
	for i, m := range e.config.Scene.Models {
		scale := m.Scale
		if scale == 0 {
			scale = 1
		}
		if err := e.addObject(models[i].Data.(*metadata.Mesh), &sceneObject{
			translation: vec3(m.Position),
			scale:       scale,
			yaw:         m.Yaw,
			spin:        m.Spin,
		}); err != nil {
			return err
		}
	}
	core.LogInfo("Scene built with %d objects.", len(e.objects))
	return nil
}

func (e *Engine) addObject(mesh *metadata.Mesh, object *sceneObject) error {
	d, err := e.renderer.AddDrawable(mesh, object.matrix())
	if err != nil {
		return err
	}
	object.model = &d.Model
	e.objects = append(e.objects, object)
	return nil
}

/**
 * @brief Runs frames until the window closes, a quit event arrives or ctx is
 * cancelled. Only unrecoverable renderer errors are returned.
 */
func (e *Engine) Run(ctx context.Context) error {
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)
	e.clock.Start()
	e.lastTime = 0

	for e.isRunning.Load() && !e.platform.ShouldClose() {
		if ctx.Err() != nil {
			break
		}
		e.platform.PumpMessages()

		e.clock.Update()
		currentTime := e.clock.Elapsed().Seconds()
		delta := currentTime - e.lastTime
		frameStartTime := platform.GetTime()

		e.handleInput(float32(delta))

		if e.shadersChanged.Swap(false) {
			e.reloadShaders()
		}

		if !e.isPaused {
			for _, o := range e.objects {
				o.advance(float32(delta))
			}
		}

		if err := e.orchestrator.RunFrame(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				break
			}
			core.LogError("frame %d failed: %s", e.orchestrator.FrameCount(), err)
			return err
		}

		frameElapsedTime := platform.GetTime() - frameStartTime
		core.MetricsUpdate(frameElapsedTime)
		if currentTime-e.lastMetrics >= 1 {
			fps, ms := core.MetricsFrame()
			core.LogDebug("%.0f fps, %.2f ms/frame, %d frames, %d swapchain rebuilds", fps, ms, e.orchestrator.FrameCount(), e.orchestrator.Recreations())
			e.lastMetrics = currentTime
		}

		// NOTE: Input update/state copying should always be handled
		// after any input should be recorded; I.E. before this line.
		// As a safety, input is the last thing to be updated before
		// this frame ends.
		core.InputUpdate()

		e.lastTime = currentTime
	}
	e.isRunning.Store(false)
	return nil
}

func (e *Engine) handleInput(dt float32) {
	in := cameraInput{
		forward: axis(core.InputIsKeyDown(core.KEY_W), core.InputIsKeyDown(core.KEY_S)),
		right:   axis(core.InputIsKeyDown(core.KEY_D), core.InputIsKeyDown(core.KEY_A)),
		up:      axis(core.InputIsKeyDown(core.KEY_E), core.InputIsKeyDown(core.KEY_Q)),
	}
	in.apply(e.camera, dt)

	if core.InputKeyPressedThisFrame(core.KEY_F1) {
		e.uniforms.debug = !e.uniforms.debug
		core.LogInfo("Debug view %s.", onOff(e.uniforms.debug))
	}
	if core.InputKeyPressedThisFrame(core.KEY_SPACE) {
		e.isPaused = !e.isPaused
		core.LogInfo("Animation %s.", onOff(!e.isPaused))
	}
	if core.InputKeyPressedThisFrame(core.KEY_R) {
		e.shadersChanged.Store(true)
	}
}

func (e *Engine) reloadShaders() {
	shaders, err := e.assetManager.LoadShaderSet(e.config.Assets.ShaderDir, e.config.Particles.Enabled)
	if err != nil {
		// Keep rendering with the old pipelines until the sources compile again.
		core.LogWarn("shader reload skipped: %s", err)
		return
	}
	if err := e.renderer.ReloadShaders(shaders); err != nil {
		core.LogWarn("shader reload failed: %s", err)
	}
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	var errs []error
	if e.orchestrator != nil {
		errs = append(errs, e.orchestrator.Shutdown())
	}
	errs = append(errs, e.assetManager.Close())
	if e.renderer != nil {
		errs = append(errs, e.renderer.Shutdown())
	}
	errs = append(errs,
		e.platform.Shutdown(),
		core.EventShutdown(),
		core.InputShutdown(),
	)
	e.currentStage = EngineStageUninitialized
	return errors.Join(errs...)
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) onEvent(code core.SystemEventCode, sender, listenerInst interface{}, data core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning.Store(false)
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender, listenerInst interface{}, data core.EventContext) bool {
	if core.KeyCode(data.Data.U16[0]) == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
		// Block anything else from processing this.
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender, listenerInst interface{}, data core.EventContext) bool {
	width, height := data.Data.U32[0], data.Data.U32[1]
	core.LogDebug("Window resize: %d, %d", width, height)
	if e.orchestrator != nil {
		e.orchestrator.NotifyResized()
	}
	return false
}

func (e *Engine) onShadersChanged(code core.SystemEventCode, sender, listenerInst interface{}, data core.EventContext) bool {
	// Fired from the watcher goroutine; pipelines are rebuilt between frames.
	e.shadersChanged.Store(true)
	return true
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

var _ renderer.UniformSource = (*sceneUniforms)(nil)
