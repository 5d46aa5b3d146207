package engine

import (
	"github.com/spaghettifunk/anima-constbuffers/engine/systems"
)

// Game holds the callbacks the engine drives. Any of them may be nil.
type Game struct {
	SystemManager *systems.SystemManager
	State         interface{}
	FnInitialize  Initialize
	FnUpdate      Update
	FnShutdown    Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error
type Shutdown func() error
