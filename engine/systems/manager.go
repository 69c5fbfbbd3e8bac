package systems

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spaghettifunk/quadcore/engine/containers"
	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/math"
	"github.com/spaghettifunk/quadcore/engine/renderer"
	"github.com/spaghettifunk/quadcore/engine/renderer/metadata"
)

const reloadQueueSize = 16

// AssetSource provides both decoded images and shader binaries.
type AssetSource interface {
	ImageDecoder
	BytecodeLoader
}

type SystemManagerConfig struct {
	VSync            bool
	ClearColour      [4]float32
	VertexShaderPath string
	PixelShaderPath  string
	ResourceDir      string
	Textures         []string
	ActiveTexture    string
	RotationPeriod   float32
	Rotating         bool
	JobWorkers       int
}

type textureReload struct {
	path  string
	image *metadata.ImageData
}

type SystemManager struct {
	config *SystemManagerConfig
	arena  *renderer.Arena
	assets AssetSource

	GraphicsDevice *GraphicsDevice
	Pipeline       *PipelineBuilder
	Meshes         *MeshFactory
	Buffers        *BufferRegistry
	Textures       *TextureCache
	Transform      *TransformState
	Frame          *FrameController

	jobSystem *JobSystem
	reloads   *containers.RingQueue[textureReload]
	shutdown  bool
}

func NewSystemManager(config *SystemManagerConfig, driver renderer.Driver, assets AssetSource) (*SystemManager, error) {
	workers := config.JobWorkers
	if workers <= 0 {
		workers = 1
	}
	js, err := NewJobSystem(workers, reloadQueueSize)
	if err != nil {
		return nil, err
	}

	arena := renderer.NewArena()
	gd, err := NewGraphicsDevice(&GraphicsDeviceConfig{VSync: config.VSync}, driver, arena)
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	tc, err := NewTextureCache(&TextureCacheConfig{ResourceDir: config.ResourceDir}, gd, assets)
	if err != nil {
		js.Shutdown()
		return nil, err
	}

	return &SystemManager{
		config:         config,
		arena:          arena,
		assets:         assets,
		GraphicsDevice: gd,
		Pipeline: NewPipelineBuilder(&PipelineConfig{
			VertexShaderPath: config.VertexShaderPath,
			PixelShaderPath:  config.PixelShaderPath,
		}, gd, assets),
		Meshes:    NewMeshFactory(gd),
		Buffers:   NewBufferRegistry(gd),
		Textures:  tc,
		Transform: NewTransformState(),
		jobSystem: js,
		reloads:   containers.NewRingQueue[textureReload](reloadQueueSize),
	}, nil
}

// NewSceneData builds the initial world/view/projection, light and material.
func NewSceneData(width, height uint32) (metadata.WVP, metadata.Light, metadata.Material) {
	// integer division of the client size
	aspect := uint32(1)
	if height > 0 && width/height > 0 {
		aspect = width / height
	}

	eye := math.NewVec3(0.0, 0.0, -1.0)
	wvp := metadata.WVP{
		World:      math.NewMat4Identity(),
		View:       math.NewMat4LookAtLH(eye, math.NewVec3Zero(), math.NewVec3Up()).Transposed(),
		Projection: math.NewMat4PerspectiveFovLH(math.K_HALF_PI, float32(aspect), 0.1, 20.0).Transposed(),
	}
	return wvp, metadata.NewDefaultLight(), metadata.NewDefaultMaterial()
}

/**
 * @brief Brings every system up in dependency order. The first failure stops
 * the sequence; Shutdown releases whatever was created.
 */
func (sm *SystemManager) Initialize(surface renderer.Surface) error {
	if err := sm.GraphicsDevice.Initialize(surface); err != nil {
		return err
	}
	if err := sm.Pipeline.CreateShaders(); err != nil {
		return err
	}
	sm.Pipeline.SetTopology(renderer.TopologyTriangleList)

	mesh := sm.Meshes.GenerateMesh()

	sm.Transform.SetTranslation(math.NewVec3(0.0, 0.0, -0.5))
	sm.Transform.SetScale(1.0)
	sm.Transform.SetRotationAngle(math.K_PI_2)
	sm.Transform.SetRotating(sm.config.Rotating)

	sm.Buffers.SetData(NewSceneData(sm.GraphicsDevice.ClientSize()))
	if err := sm.Buffers.CreateBuffers(); err != nil {
		return err
	}
	if err := sm.Meshes.Upload(mesh); err != nil {
		return err
	}

	for _, path := range sm.config.Textures {
		if err := sm.Textures.AddTexture(path); err != nil {
			return fmt.Errorf("%w: %w", core.ErrTextureSetup, err)
		}
	}
	active := sm.config.ActiveTexture
	if active == "" && len(sm.config.Textures) > 0 {
		active = sm.config.Textures[0]
	}
	if err := sm.Textures.SetActive(active); err != nil {
		return fmt.Errorf("%w: %w", core.ErrTextureSetup, err)
	}

	if err := sm.Pipeline.CreateSampler(); err != nil {
		return err
	}

	sm.Frame = NewFrameController(&FrameControllerConfig{
		ClearColour:    sm.config.ClearColour,
		RotationPeriod: sm.config.RotationPeriod,
	}, sm.GraphicsDevice, sm.Pipeline, sm.Meshes, sm.Buffers, sm.Textures, sm.Transform)

	core.LogInfo("systems initialized: %d GPU objects, %d textures", sm.arena.Live(), sm.Textures.Len())
	return nil
}

/**
 * @brief Decodes a changed texture on the job system. The result is applied
 * by ApplyReloads on the render thread. Returns false for uncached paths.
 */
func (sm *SystemManager) ScheduleReload(path string) bool {
	if _, ok := sm.Textures.Entry(path); !ok {
		return false
	}
	err := sm.jobSystem.Submit(metadata.JobTask{
		Name:        "reload " + path,
		InputParams: filepath.Join(sm.config.ResourceDir, path),
		OnStart: func(params interface{}) (interface{}, error) {
			return sm.assets.Decode(params.(string))
		},
		OnComplete: func(result interface{}) {
			if err := sm.reloads.Enqueue(textureReload{path: path, image: result.(*metadata.ImageData)}); err != nil {
				core.LogWarn("dropping reload of %s: %s", path, err)
			}
		},
	})
	if err != nil {
		core.LogWarn("could not schedule reload of %s: %s", path, err)
		return false
	}
	return true
}

// ApplyReloads swaps in every decoded texture and returns how many were applied.
func (sm *SystemManager) ApplyReloads() int {
	applied := 0
	for {
		r, err := sm.reloads.Dequeue()
		if errors.Is(err, containers.ErrQueueEmpty) {
			return applied
		}
		if err := sm.Textures.Reload(r.path, r.image); err != nil {
			core.LogError("reload of %s failed: %s", r.path, err)
			continue
		}
		applied++
	}
}

// Arena exposes the resource arena, mostly for leak reports.
func (sm *SystemManager) Arena() *renderer.Arena {
	return sm.arena
}

// Shutdown stops background work and releases every GPU object once.
func (sm *SystemManager) Shutdown() error {
	if sm.shutdown {
		return nil
	}
	sm.shutdown = true

	err := sm.jobSystem.Shutdown()
	sm.GraphicsDevice.Release()
	core.LogInfo("systems shut down")
	return err
}
