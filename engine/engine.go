package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/spaghettifunk/quadcore/engine/assets"
	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/platform"
	"github.com/spaghettifunk/quadcore/engine/renderer"
	"github.com/spaghettifunk/quadcore/engine/renderer/headless"
	"github.com/spaghettifunk/quadcore/engine/renderer/vulkan"
	"github.com/spaghettifunk/quadcore/engine/systems"
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
	// Engine released everything it owned
	EngineStageShutdown
)

func (s Stage) String() string {
	switch s {
	case EngineStageUninitialized:
		return "uninitialized"
	case EngineStageInitializing:
		return "initializing"
	case EngineStageInitialized:
		return "initialized"
	case EngineStageRunning:
		return "running"
	case EngineStageShuttingDown:
		return "shutting down"
	case EngineStageShutdown:
		return "shut down"
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

const (
	metricsLogInterval = 5.0
	suspendedSleep     = 10 * time.Millisecond
)

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	isRunning     bool
	isSuspended   bool
	resumed       bool
	platform      platform.Platform
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager
	clock         *core.Clock
	metrics       *core.Metrics
	lastTime      float64
	lastReport    float64
	frameCount    uint64
}

// New picks the window and driver that match the configured backend.
func New(g *Game) (*Engine, error) {
	settings := g.ApplicationConfig.Settings
	var (
		p      platform.Platform
		driver renderer.Driver
	)
	backend, err := renderer.ParseRendererType(settings.Backend)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidConfig, err)
	}
	switch backend {
	case renderer.Vulkan:
		p = platform.NewWindow()
		driver = vulkan.NewDriver(g.ApplicationConfig.Name, settings.Debug)
	case renderer.Headless:
		p = platform.NewHeadless()
		driver = headless.NewDriver()
	}
	return NewWithDriver(g, p, driver)
}

// NewWithDriver wires the engine around an explicit platform and driver.
func NewWithDriver(g *Game, p platform.Platform, driver renderer.Driver) (*Engine, error) {
	am := assets.NewAssetManager()

	sm, err := systems.NewSystemManager(g.ApplicationConfig.systemsConfig(), driver, am)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Engine{
		currentStage:  EngineStageUninitialized,
		gameInstance:  g,
		platform:      p,
		assetManager:  am,
		systemManager: sm,
		clock:         core.NewClock(),
		metrics:       core.NewMetrics(),
	}, nil
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) SystemManager() *systems.SystemManager {
	return e.systemManager
}

// Frames is the number of frames presented so far.
func (e *Engine) Frames() uint64 {
	return e.frameCount
}

/**
 * @brief Opens the window, starts the asset watcher and sets up every GPU
 * object. On failure whatever was created is released before returning.
 */
func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return fmt.Errorf("initialize in stage %s: %w", e.currentStage, core.ErrInvalidUsage)
	}
	e.currentStage = EngineStageInitializing
	app := e.gameInstance.ApplicationConfig
	settings := app.Settings

	if err := core.SetLogLevel(settings.LogLevel); err != nil {
		return e.abort(err)
	}

	if err := e.platform.Startup(app.Name, settings.Window.X, settings.Window.Y, settings.Window.Width, settings.Window.Height); err != nil {
		return e.abort(err)
	}

	if err := e.assetManager.Initialize(settings.ResourceDir, settings.WatchAssets); err != nil {
		core.LogWarn("asset watcher disabled: %s", err)
		if err := e.assetManager.Initialize(settings.ResourceDir, false); err != nil {
			return e.abort(err)
		}
	}

	if err := e.systemManager.Initialize(e.platform); err != nil {
		return e.abort(err)
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e.systemManager); err != nil {
			return e.abort(err)
		}
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("engine initialized with the %s backend", settings.Backend)
	return nil
}

func (e *Engine) abort(err error) error {
	core.LogError("engine initialization failed: %s", err)
	return errors.Join(err, e.Shutdown())
}

// RequestClose asks the running loop to stop after the current frame. Safe
// from any goroutine.
func (e *Engine) RequestClose() {
	e.platform.RequestClose()
}

/**
 * @brief Pumps window messages and renders until the window closes, the
 * frame limit is reached or a frame fails. Shutdown always runs before Run
 * returns.
 */
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("run in stage %s: %w", e.currentStage, core.ErrNotInitialized)
	}
	e.currentStage = EngineStageRunning
	e.isRunning = true
	e.clock.Start()
	e.lastTime = 0

	var runErr error
	for e.isRunning {
		if !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}

		if e.suspended() {
			time.Sleep(suspendedSleep)
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		if e.resumed {
			// the suspended period does not count as frame time
			e.lastTime = currentTime
			e.resumed = false
		}
		delta := currentTime - e.lastTime

		if err := e.frame(delta); err != nil {
			core.LogError("frame %d failed, shutting down: %s", e.frameCount, err)
			runErr = err
			e.isRunning = false
			break
		}

		e.clock.Update()
		e.metrics.Update(e.clock.Elapsed() - currentTime)
		e.frameCount++
		if currentTime-e.lastReport >= metricsLogInterval {
			fps, ms := e.metrics.Frame()
			core.LogDebug("%.0f fps, %.3f ms/frame", fps, ms)
			e.lastReport = currentTime
		}

		if limit := e.gameInstance.ApplicationConfig.FrameLimit; limit > 0 && e.frameCount >= limit {
			core.LogInfo("frame limit of %d reached", limit)
			e.isRunning = false
		}
		e.lastTime = currentTime
	}

	return errors.Join(runErr, e.Shutdown())
}

func (e *Engine) suspended() bool {
	w, h := e.platform.ClientSize()
	minimized := w == 0 || h == 0
	if minimized != e.isSuspended {
		if minimized {
			core.LogInfo("Window minimized, suspending application.")
		} else {
			core.LogInfo("Window restored, resuming application.")
			e.resumed = true
		}
		e.isSuspended = minimized
	}
	return minimized
}

func (e *Engine) frame(delta float64) error {
	e.drainAssetChanges()
	if n := e.systemManager.ApplyReloads(); n > 0 {
		core.LogInfo("reloaded %d texture(s)", n)
	}

	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(e.systemManager, delta); err != nil {
			return fmt.Errorf("game update: %w", err)
		}
	}

	if err := e.systemManager.Frame.Render(float32(delta)); err != nil {
		return err
	}
	return e.systemManager.Frame.Present()
}

// drainAssetChanges hands every pending file change to the job system.
func (e *Engine) drainAssetChanges() {
	for {
		select {
		case path, ok := <-e.assetManager.Changes():
			if !ok {
				return
			}
			if e.systemManager.ScheduleReload(path) {
				core.LogDebug("scheduled reload of %s", path)
			}
		default:
			return
		}
	}
}

// Shutdown releases everything once. Later calls are no-ops.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown || e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	var errs []error
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	errs = append(errs, e.systemManager.Shutdown())
	if live := e.systemManager.Arena().Live(); live > 0 {
		core.LogWarn("%d GPU object(s) still alive after shutdown: %v", live, e.systemManager.Arena().Labels())
	}
	errs = append(errs, e.assetManager.Shutdown())
	errs = append(errs, e.platform.Shutdown())

	e.currentStage = EngineStageShutdown
	core.LogInfo("engine shut down after %d frame(s)", e.frameCount)
	return errors.Join(errs...)
}
