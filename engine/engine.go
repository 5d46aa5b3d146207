package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spaghettifunk/anima-constbuffers/engine/assets"
	"github.com/spaghettifunk/anima-constbuffers/engine/core"
	"github.com/spaghettifunk/anima-constbuffers/engine/renderer"
	"github.com/spaghettifunk/anima-constbuffers/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released every resource
	EngineStageShutdown
)

const targetFrameDuration = time.Second / 60

type Engine struct {
	currentStage  Stage
	config        *core.EngineConfig
	gameInstance  *Game
	renderSystem  renderer.RenderSystem
	renderer      *renderer.Renderer
	systemManager *systems.SystemManager
	watcher       *assets.MaterialWatcher
	frameCount    uint64
}

func New(g *Game, config *core.EngineConfig, rs renderer.RenderSystem) (*Engine, error) {
	if err := config.Validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	if err := core.SetLogLevel(config.Logging.Level); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	r := renderer.New()
	sm, err := systems.NewSystemManager(config, r)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	if g == nil {
		g = &Game{}
	}
	g.SystemManager = sm

	return &Engine{
		currentStage:  EngineStageUninitialized,
		config:        config,
		gameInstance:  g,
		renderSystem:  rs,
		renderer:      r,
		systemManager: sm,
	}, nil
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) SystemManager() *systems.SystemManager {
	return e.systemManager
}

func (e *Engine) Renderer() *renderer.Renderer {
	return e.renderer
}

func (e *Engine) FrameCount() uint64 {
	return e.frameCount
}

// Initialize binds the render system, loads materials and runs the game
// initializer. On error the engine is left uninitialized and may be retried.
func (e *Engine) Initialize() (err error) {
	if e.currentStage != EngineStageUninitialized {
		return fmt.Errorf("func Initialize - engine already initialized")
	}
	e.currentStage = EngineStageInitializing
	defer func() {
		if err == nil {
			return
		}
		if e.watcher != nil {
			_ = e.watcher.Close()
			e.watcher = nil
		}
		e.currentStage = EngineStageUninitialized
	}()

	if e.renderSystem == nil {
		return fmt.Errorf("func Initialize - %w", core.ErrNoRenderSystem)
	}
	// binding sizes the const buffer pools and hands out material slots
	e.renderer.SetRenderSystem(e.renderSystem)

	if err := e.loadMaterials(); err != nil {
		return err
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) loadMaterials() error {
	dir := e.config.Materials.Directory
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			core.LogInfo("material directory '%s' not found, skipping", dir)
			return nil
		}
		return err
	}

	configs, err := assets.LoadDirectory(dir)
	if err != nil {
		return err
	}
	ms := e.systemManager.MaterialSystem()
	for _, cfg := range configs {
		if _, err := ms.Apply(cfg); err != nil {
			core.LogError("failed to load material '%s': %s", cfg.Name, err.Error())
		}
	}
	core.LogInfo("loaded %d materials from '%s'", len(configs), dir)

	if !e.config.Materials.Watch {
		return nil
	}
	w, err := assets.NewMaterialWatcher(0)
	if err != nil {
		return err
	}
	if err := w.AddRecursive(dir); err != nil {
		_ = w.Close()
		return err
	}
	e.watcher = w
	ms.WatchReloads(w.Configs())
	return nil
}

// Frame runs the game update and then flushes every changed material to
// the GPU.
func (e *Engine) Frame(delta float64) error {
	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(delta); err != nil {
			return err
		}
	}
	if err := e.systemManager.Update(); err != nil {
		return err
	}
	e.frameCount++
	return nil
}

// Run drives frames at a fixed rate until ctx is cancelled or a frame fails.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("func Run - engine is not initialized")
	}
	e.currentStage = EngineStageRunning
	defer func() { e.currentStage = EngineStageInitialized }()

	ticker := time.NewTicker(targetFrameDuration)
	defer ticker.Stop()

	lastTime := time.Now()
	for {
		select {
		case <-ctx.Done():
			core.LogInfo("engine stopped after %d frames", e.frameCount)
			return nil
		case now := <-ticker.C:
			delta := now.Sub(lastTime).Seconds()
			lastTime = now
			if err := e.Frame(delta); err != nil {
				core.LogError("frame failed, shutting down: %s", err.Error())
				return err
			}
		}
	}
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			core.LogError(err.Error())
		}
		e.watcher = nil
	}
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			return err
		}
	}
	if err := e.systemManager.Shutdown(); err != nil {
		return err
	}
	if err := e.renderer.Shutdown(); err != nil {
		return err
	}
	e.currentStage = EngineStageShutdown
	return nil
}
