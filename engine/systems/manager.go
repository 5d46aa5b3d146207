package systems

import (
	"github.com/spaghettifunk/anima-constbuffers/engine/core"
	"github.com/spaghettifunk/anima-constbuffers/engine/renderer"
)

type SystemManager struct {
	renderer        *renderer.Renderer
	constBufferPool *ConstBufferPool
	materialSystem  *MaterialSystem
}

func NewSystemManager(config *core.EngineConfig, r *renderer.Renderer) (*SystemManager, error) {
	cbp, err := NewConstBufferPool(&ConstBufferPoolConfig{
		BytesPerSlot:  config.ConstBuffer.BytesPerSlot,
		MaxBufferSize: config.ConstBuffer.MaxBufferSize,
	})
	if err != nil {
		return nil, err
	}
	ms, err := NewMaterialSystem(&MaterialSystemConfig{
		MaxMaterialCount: 4096,
	}, cbp)
	if err != nil {
		return nil, err
	}

	// The pool has to be sized before materials ask it for slots.
	r.AddListener(cbp)
	r.AddListener(ms)

	return &SystemManager{
		renderer:        r,
		constBufferPool: cbp,
		materialSystem:  ms,
	}, nil
}

func (sm *SystemManager) ConstBufferPool() *ConstBufferPool {
	return sm.constBufferPool
}

func (sm *SystemManager) MaterialSystem() *MaterialSystem {
	return sm.materialSystem
}

// Update runs the per frame work of every system.
func (sm *SystemManager) Update() error {
	return sm.materialSystem.Update()
}

func (sm *SystemManager) Shutdown() error {
	sm.renderer.RemoveListener(sm.materialSystem)
	sm.renderer.RemoveListener(sm.constBufferPool)

	if err := sm.materialSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.constBufferPool.Shutdown(); err != nil {
		return err
	}
	return nil
}
