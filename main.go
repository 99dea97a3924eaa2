/*
Penumbra renders a shadowed, multisampled scene with Vulkan.
The scene, window and renderer settings come from a TOML file.
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/penumbra/engine"
	"github.com/spaghettifunk/penumbra/engine/core"
)

func main() {
	configPath := flag.String("config", "config/penumbra.toml", "path to the TOML configuration")
	flag.Parse()

	config, err := engine.LoadApplicationConfig(*configPath)
	if err != nil {
		core.LogFatal("invalid configuration: %s", err)
	}

	e, err := engine.New(config)
	if err != nil {
		core.LogFatal("engine setup failed: %s", err)
	}

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal("engine initialization failed: %s", err)
	}

	// capture sigterm and other system calls; the loop exits at the next frame
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	if runErr != nil {
		core.LogError("render loop stopped: %s", runErr)
		os.Exit(1)
	}
}
