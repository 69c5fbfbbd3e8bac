//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Builds shaders and textures, then opens the Vulkan window.
func (Run) Engine() error {
	mg.Deps(Build.Shaders, Build.Textures)
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "quadcore.toml", "-backend", "vulkan"), withStream()); err != nil {
		return err
	}
	return nil
}

// Renders a few hundred frames on the headless backend.
func (Run) Headless() error {
	mg.Deps(Build.Shaders, Build.Textures)
	fmt.Println("Run headless...")
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "quadcore.toml", "-backend", "headless", "-frames", "300"), withStream()); err != nil {
		return err
	}
	return nil
}

type Test mg.Namespace

// Runs every package test with the race detector.
func (Test) All() error {
	// glfw and the race detector both need cgo
	if _, err := executeCmd("go", withArgs("test", "-race", "./..."), withEnv("CGO_ENABLED=1"), withStream()); err != nil {
		return err
	}
	return nil
}
