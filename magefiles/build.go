//go:build mage

package main

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/spaghettifunk/quadcore/engine/assets/loaders"
)

const (
	shaderSrcDir = "assets/shaders"
	shaderOutDir = "shaders"
	textureDir   = "resources/textures"
)

type Build mg.Namespace

// Compiles the GLSL sources to the SPIR-V blobs the engine loads.
func (Build) Shaders() error {
	return buildShaders()
}

// Writes the sample textures referenced by quadcore.toml.
func (Build) Textures() error {
	samples := map[string][]color.RGBA{
		"bands.png": {
			{255, 0, 0, 255},
			{0, 255, 0, 255},
			{0, 0, 255, 255},
		},
		"stripes.png": {
			{255, 255, 255, 255},
			{32, 32, 32, 255},
			{255, 255, 255, 255},
			{32, 32, 32, 255},
		},
	}
	for name, bands := range samples {
		path := filepath.Join(textureDir, name)
		fmt.Printf("Writing %s\n", path)
		if err := loaders.WritePNG(path, loaders.GenerateTexture(256, 256, bands)); err != nil {
			return err
		}
	}
	return nil
}

func buildShaders() error {
	if err := os.MkdirAll(shaderOutDir, 0o755); err != nil {
		return err
	}
	stages := []struct{ src, out string }{
		{"quad.vert", "VertexShader.spv"},
		{"quad.frag", "PixelShader.spv"},
	}
	for _, s := range stages {
		src := filepath.Join(shaderSrcDir, s.src)
		out := filepath.Join(shaderOutDir, s.out)
		if _, err := executeCmd("glslc", withArgs(src, "-o", out), withStream()); err != nil {
			return err
		}
	}
	return nil
}
