package testbed

import (
	"fmt"

	"github.com/spaghettifunk/quadcore/engine"
	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/systems"
)

type QuadGame struct {
	*engine.Game
}

type gameState struct {
	activeTexture string
	swaps         uint32
	elapsed       float64
}

func NewQuadGame(config *engine.ApplicationConfig) *QuadGame {
	qg := &QuadGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{},
		},
	}
	qg.FnInitialize = qg.Initialize
	qg.FnUpdate = qg.Update
	qg.FnShutdown = qg.Shutdown
	return qg
}

func (g *QuadGame) Initialize(sm *systems.SystemManager) error {
	core.LogDebug("QuadGame Initialize fn....")

	if sm == nil || sm.Frame == nil {
		return fmt.Errorf("the engine is not yet initialized with all the system managers: %w", core.ErrNotInitialized)
	}

	state := g.State.(*gameState)
	state.activeTexture = sm.Textures.Active()
	for _, path := range sm.Textures.Paths() {
		entry, _ := sm.Textures.Entry(path)
		core.LogInfo("texture slot %d: %s", entry.Slot, path)
	}
	core.LogInfo("active texture: %s", state.activeTexture)
	return nil
}

// Update reports every change of the active texture.
func (g *QuadGame) Update(sm *systems.SystemManager, deltaTime float64) error {
	state := g.State.(*gameState)
	state.elapsed += deltaTime

	if active := sm.Textures.Active(); active != state.activeTexture {
		state.swaps++
		core.LogDebug("%.2fs: active texture %s -> %s", state.elapsed, state.activeTexture, active)
		state.activeTexture = active
	}
	return nil
}

func (g *QuadGame) Shutdown() error {
	state := g.State.(*gameState)
	core.LogInfo("quad game ran %.2fs with %d texture swap(s)", state.elapsed, state.swaps)
	return nil
}

// Swaps counts how often the active texture changed.
func (g *QuadGame) Swaps() uint32 {
	return g.State.(*gameState).swaps
}
