package engine

import (
	"github.com/spaghettifunk/quadcore/engine/systems"
)

// Game plugs application code into the engine. Every hook is optional.
type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnShutdown        Shutdown
}

type Initialize func(sm *systems.SystemManager) error

// Update runs once per frame before the frame is recorded.
type Update func(sm *systems.SystemManager, deltaTime float64) error
type Shutdown func() error
