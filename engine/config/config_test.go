package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/systems"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %s", err)
	}
	if cfg.RotationPeriod != 6.0 {
		t.Errorf("expected 6s rotation period, got %f", cfg.RotationPeriod)
	}
	if cfg.ActiveTexture != cfg.Textures[0] {
		t.Errorf("expected active texture %s, got %s", cfg.Textures[0], cfg.ActiveTexture)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quadcore.toml")
	data := `
backend = "Headless"
log_level = "debug"
vsync = false
textures = ["a.png", "b.png"]
active_texture = "b.png"
clear_colour = [0.5, 0.5, 0.5, 1.0]

[window]
title = "test"
width = 320
height = 240
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %s", err)
	}
	if cfg.Backend != BackendHeadless {
		t.Errorf("expected normalized backend %q, got %q", BackendHeadless, cfg.Backend)
	}
	if cfg.VSync {
		t.Error("expected vsync to be overridden to false")
	}
	if cfg.Window.Title != "test" || cfg.Window.Width != 320 || cfg.Window.Height != 240 {
		t.Errorf("unexpected window %+v", cfg.Window)
	}
	if cfg.Window.X != 100 {
		t.Errorf("expected window x to keep its default, got %d", cfg.Window.X)
	}
	if len(cfg.Textures) != 2 || cfg.Textures[0] != "a.png" {
		t.Errorf("expected texture list to be replaced, got %v", cfg.Textures)
	}
	if cfg.ActiveTexture != "b.png" {
		t.Errorf("expected active texture b.png, got %s", cfg.ActiveTexture)
	}
	if cfg.Shaders.Vertex != "shaders/VertexShader.spv" {
		t.Errorf("expected default vertex shader path, got %s", cfg.Shaders.Vertex)
	}
	if cfg.ClearColour != [4]float32{0.5, 0.5, 0.5, 1.0} {
		t.Errorf("unexpected clear colour %v", cfg.ClearColour)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", `backend = `},
		{"unknown key", `colour = 1`},
		{"wrong type", `vsync = "yes"`},
		{"backend", `backend = "metal"`},
		{"log level", `log_level = "chatty"`},
		{"no textures", `textures = []`},
		{"empty texture", `textures = [""]`},
		{"duplicate texture", `textures = ["a.png", "a.png"]`},
		{"active not listed", "textures = [\"a.png\"]\nactive_texture = \"b.png\""},
		{"too many textures", `textures = ["0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10"]`},
		{"no pixel shader", "[shaders]\npixel = \"\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, core.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestTextureLimitMatchesCache(t *testing.T) {
	cfg := Default()
	cfg.Textures = nil
	for i := uint32(0); i < systems.MaxTextures; i++ {
		cfg.Textures = append(cfg.Textures, fmt.Sprintf("t%d.png", i))
	}
	cfg.ActiveTexture = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("a full cache must be accepted, got %v", err)
	}

	cfg.Textures = append(cfg.Textures, "overflow.png")
	if err := cfg.Validate(); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig past the cache limit, got %v", err)
	}
}

func TestValidateClamps(t *testing.T) {
	cfg := Default()
	cfg.Window.Width = 1
	cfg.Window.Height = 100000
	cfg.JobWorkers = 0
	cfg.RotationPeriod = -3
	cfg.ClearColour = [4]float32{-1, 2, 0.5, 1}
	cfg.ActiveTexture = ""

	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate failed: %s", err)
	}
	if cfg.Window.Width != minWindowSize || cfg.Window.Height != maxWindowSize {
		t.Errorf("window not clamped: %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.JobWorkers != 1 {
		t.Errorf("expected 1 job worker, got %d", cfg.JobWorkers)
	}
	if cfg.RotationPeriod != minRotationSec {
		t.Errorf("expected rotation period %f, got %f", float32(minRotationSec), cfg.RotationPeriod)
	}
	if cfg.ClearColour != [4]float32{0, 1, 0.5, 1} {
		t.Errorf("clear colour not clamped: %v", cfg.ClearColour)
	}
	if cfg.ActiveTexture != cfg.Textures[0] {
		t.Errorf("expected active texture to fall back to %s, got %s", cfg.Textures[0], cfg.ActiveTexture)
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "quadcore.toml")
	cfg := Default()
	cfg.Backend = BackendHeadless
	cfg.Textures = []string{"x.png", "y.png"}
	cfg.ActiveTexture = "y.png"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("save failed: %s", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %s", err)
	}
	if loaded.Backend != BackendHeadless || loaded.ActiveTexture != "y.png" || len(loaded.Textures) != 2 {
		t.Errorf("unexpected round trip %+v", loaded)
	}
}
