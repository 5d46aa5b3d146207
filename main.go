/*
Headless testbed: drives the material system against the software render
system until interrupted.
*/
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/anima-constbuffers/engine"
	"github.com/spaghettifunk/anima-constbuffers/engine/core"
	"github.com/spaghettifunk/anima-constbuffers/engine/renderer/software"
	"github.com/spaghettifunk/anima-constbuffers/testbed"
)

const configPath = "anima.toml"

func main() {
	cfg, err := core.LoadConfig(configPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg = core.DefaultConfig()
	} else if err != nil {
		core.LogFatal(err.Error())
	}

	tb := testbed.NewTestGame()
	e, err := engine.New(tb.Game, cfg, software.New(software.Config{}))
	if err != nil {
		core.LogFatal(err.Error())
	}
	if err := e.Initialize(); err != nil {
		core.LogFatal(err.Error())
	}

	// capture sigterm and other system calls
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	if runErr != nil {
		core.LogFatal(runErr.Error())
	}
}
