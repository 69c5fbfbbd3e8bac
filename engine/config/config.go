package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/math"
	"github.com/spaghettifunk/quadcore/engine/renderer"
	"github.com/spaghettifunk/quadcore/engine/systems"
)

const (
	BackendVulkan   = "vulkan"
	BackendHeadless = "headless"

	minWindowSize  = 64
	maxWindowSize  = 8192
	maxJobWorkers  = 16
	minRotationSec = 0.1
	maxRotationSec = 600.0
)

type WindowConfig struct {
	Title  string `toml:"title"`
	X      int32  `toml:"x"`
	Y      int32  `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type ShaderConfig struct {
	Vertex string `toml:"vertex"`
	Pixel  string `toml:"pixel"`
}

/**
 * @brief Everything the engine reads from quadcore.toml. Fields missing from
 * the file keep the values of Default().
 */
type Config struct {
	Window   WindowConfig `toml:"window"`
	Backend  string       `toml:"backend"`
	LogLevel string       `toml:"log_level"`
	VSync    bool         `toml:"vsync"`
	Debug    bool         `toml:"debug"`

	ResourceDir   string       `toml:"resource_dir"`
	WatchAssets   bool         `toml:"watch_assets"`
	JobWorkers    int          `toml:"job_workers"`
	Shaders       ShaderConfig `toml:"shaders"`
	Textures      []string     `toml:"textures"`
	ActiveTexture string       `toml:"active_texture"`

	ClearColour    [4]float32 `toml:"clear_colour"`
	RotationPeriod float32    `toml:"rotation_period"`
	Rotating       bool       `toml:"rotating"`
}

func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "quadcore",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Backend:     BackendVulkan,
		LogLevel:    "info",
		VSync:       true,
		ResourceDir: "resources",
		WatchAssets: true,
		JobWorkers:  2,
		Shaders: ShaderConfig{
			Vertex: "shaders/VertexShader.spv",
			Pixel:  "shaders/PixelShader.spv",
		},
		Textures:       []string{"textures/bands.png"},
		ActiveTexture:  "textures/bands.png",
		ClearColour:    [4]float32{0.0, 0.2, 0.4, 1.0},
		RotationPeriod: 6.0,
		Rotating:       true,
	}
}

// Load decodes path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: %s", core.ErrInvalidConfig, strict.String())
		}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("%w: line %d column %d: %s", core.ErrInvalidConfig, row, col, decodeErr.Error())
		}
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as TOML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

/**
 * @brief Rejects what the engine cannot run with and clamps what it can.
 * Window size, job workers, clear colour and rotation period are clamped.
 * An empty active texture falls back to the first listed one.
 */
func (c *Config) Validate() error {
	backend, err := renderer.ParseRendererType(c.Backend)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidConfig, err)
	}
	c.Backend = backend.String()

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level %q: %w", core.ErrInvalidConfig, c.LogLevel, err)
	}

	c.Window.Width = math.Clamp(c.Window.Width, minWindowSize, maxWindowSize)
	c.Window.Height = math.Clamp(c.Window.Height, minWindowSize, maxWindowSize)
	c.JobWorkers = math.Clamp(c.JobWorkers, 1, maxJobWorkers)
	c.RotationPeriod = math.Clamp(c.RotationPeriod, minRotationSec, maxRotationSec)
	for i := range c.ClearColour {
		c.ClearColour[i] = math.Clamp(c.ClearColour[i], 0.0, 1.0)
	}

	if c.Shaders.Vertex == "" || c.Shaders.Pixel == "" {
		return fmt.Errorf("%w: both shader paths are required", core.ErrInvalidConfig)
	}
	if len(c.Textures) == 0 {
		return fmt.Errorf("%w: at least one texture is required", core.ErrInvalidConfig)
	}
	if uint32(len(c.Textures)) > systems.MaxTextures {
		return fmt.Errorf("%w: %d textures configured, at most %d fit the cache", core.ErrInvalidConfig, len(c.Textures), systems.MaxTextures)
	}
	seen := make(map[string]struct{}, len(c.Textures))
	for _, t := range c.Textures {
		if t == "" {
			return fmt.Errorf("%w: empty texture path", core.ErrInvalidConfig)
		}
		if _, dup := seen[t]; dup {
			return fmt.Errorf("%w: texture %s listed twice", core.ErrInvalidConfig, t)
		}
		seen[t] = struct{}{}
	}
	if c.ActiveTexture == "" {
		c.ActiveTexture = c.Textures[0]
	} else if _, ok := seen[c.ActiveTexture]; !ok {
		return fmt.Errorf("%w: active texture %s is not in the texture list", core.ErrInvalidConfig, c.ActiveTexture)
	}
	return nil
}
