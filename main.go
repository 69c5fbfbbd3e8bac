/*
quadcore renders a single rotating, texture-mapped quad. The window, backend
and textures come from quadcore.toml; flags override the backend and can stop
the loop after a number of frames.
*/
package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/quadcore/engine"
	"github.com/spaghettifunk/quadcore/engine/config"
	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/testbed"
)

func main() {
	configPath := flag.String("config", "quadcore.toml", "path to the TOML configuration")
	backend := flag.String("backend", "", "override the configured backend (vulkan or headless)")
	frames := flag.Uint64("frames", 0, "stop after this many frames, 0 runs until the window closes")
	flag.Parse()

	settings, err := config.Load(*configPath)
	if errors.Is(err, os.ErrNotExist) {
		core.LogWarn("%s not found, using defaults", *configPath)
		settings, err = config.Default(), nil
	}
	if err != nil {
		panic(err)
	}
	if *backend != "" {
		settings.Backend = *backend
		if err := settings.Validate(); err != nil {
			panic(err)
		}
	}

	game := testbed.NewQuadGame(engine.NewApplicationConfig(settings, *frames))

	e, err := engine.New(game.Game)
	if err != nil {
		panic(err)
	}

	if err := e.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		sig := <-sigCh
		core.LogInfo("received %s, shutting down", sig)
		e.RequestClose()
	}()

	// run engine
	if err := e.Run(); err != nil {
		panic(err)
	}
}
