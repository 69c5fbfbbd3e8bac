package engine

import (
	"github.com/spaghettifunk/quadcore/engine/config"
	"github.com/spaghettifunk/quadcore/engine/systems"
)

type ApplicationConfig struct {
	// The application name used in windowing, if applicable.
	Name string
	// Settings loaded from quadcore.toml, already validated.
	Settings *config.Config
	// Frames to render before stopping, 0 runs until the window closes.
	FrameLimit uint64
}

func NewApplicationConfig(settings *config.Config, frameLimit uint64) *ApplicationConfig {
	return &ApplicationConfig{
		Name:       settings.Window.Title,
		Settings:   settings,
		FrameLimit: frameLimit,
	}
}

func (ac *ApplicationConfig) systemsConfig() *systems.SystemManagerConfig {
	s := ac.Settings
	return &systems.SystemManagerConfig{
		VSync:            s.VSync,
		ClearColour:      s.ClearColour,
		VertexShaderPath: s.Shaders.Vertex,
		PixelShaderPath:  s.Shaders.Pixel,
		ResourceDir:      s.ResourceDir,
		Textures:         s.Textures,
		ActiveTexture:    s.ActiveTexture,
		RotationPeriod:   s.RotationPeriod,
		Rotating:         s.Rotating,
		JobWorkers:       s.JobWorkers,
	}
}
