package testbed

import (
	gomath "math"
	"strconv"

	"github.com/spaghettifunk/anima-constbuffers/engine"
	"github.com/spaghettifunk/anima-constbuffers/engine/core"
	"github.com/spaghettifunk/anima-constbuffers/engine/math"
	"github.com/spaghettifunk/anima-constbuffers/engine/renderer/metadata"
)

const pulsingMaterialCount = 512

type TestGame struct {
	*engine.Game
}

type gameState struct {
	elapsed   float64
	materials []string
}

func NewTestGame() *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			State: &gameState{},
		},
	}
	tg.FnInitialize = tg.initialize
	tg.FnUpdate = tg.update
	tg.FnShutdown = tg.shutdown
	return tg
}

func (tg *TestGame) state() *gameState {
	return tg.State.(*gameState)
}

// initialize spreads enough materials over two shaders to fill more than one
// pool per shader.
func (tg *TestGame) initialize() error {
	ms := tg.SystemManager.MaterialSystem()
	shaders := []string{"builtin.material", "builtin.unlit"}
	for i := 0; i < pulsingMaterialCount; i++ {
		cfg := metadata.DefaultMaterialConfig()
		cfg.Name = "pulse_" + strconv.Itoa(i)
		cfg.ShaderName = shaders[i%len(shaders)]
		if _, err := ms.Create(cfg); err != nil {
			return err
		}
		tg.state().materials = append(tg.state().materials, cfg.Name)
	}
	core.LogInfo("testbed created %d materials", pulsingMaterialCount)
	return nil
}

// update pulses a handful of materials each frame.
func (tg *TestGame) update(deltaTime float64) error {
	s := tg.state()
	s.elapsed += deltaTime
	ms := tg.SystemManager.MaterialSystem()

	v := float32(0.5 + 0.5*gomath.Sin(s.elapsed))
	colour := math.NewVec4(v, 1-v, math.Clamp(v*2, 0, 1), 1)
	for i := 0; i < len(s.materials); i += 7 {
		if err := ms.SetDiffuseColour(s.materials[i], colour); err != nil {
			return err
		}
	}
	return nil
}

func (tg *TestGame) shutdown() error {
	ms := tg.SystemManager.MaterialSystem()
	for _, name := range tg.state().materials {
		if err := ms.Destroy(name); err != nil {
			return err
		}
	}
	tg.state().materials = nil
	return nil
}
