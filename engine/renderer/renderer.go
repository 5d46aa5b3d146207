package renderer

import (
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/anima-constbuffers/engine/containers"
	"github.com/spaghettifunk/anima-constbuffers/engine/core"
)

// Renderer owns the active render system and forwards context changes to
// the registered listeners, in registration order.
type Renderer struct {
	renderSystem RenderSystem
	listeners    []RenderSystemListener
}

func New() *Renderer {
	return &Renderer{}
}

func (r *Renderer) RenderSystem() RenderSystem {
	return r.renderSystem
}

func (r *Renderer) AddListener(l RenderSystemListener) {
	r.listeners = append(r.listeners, l)
	if r.renderSystem != nil {
		l.ChangeRenderSystem(r.renderSystem)
	}
}

func (r *Renderer) RemoveListener(l RenderSystemListener) {
	if i := containers.IndexOf(r.listeners, l); i >= 0 {
		r.listeners = slices.Delete(r.listeners, i, i+1)
	}
}

// SetRenderSystem replaces the device context. When a context is already
// bound, listeners first see nil so their resources are torn down before the
// new context is handed out.
func (r *Renderer) SetRenderSystem(rs RenderSystem) {
	if r.renderSystem != nil {
		core.LogInfo("render system '%s' lost", r.renderSystem.Name())
		r.renderSystem = nil
		r.notify(nil)
	}
	if rs == nil {
		return
	}
	core.LogInfo("render system '%s' bound", rs.Name())
	r.renderSystem = rs
	r.notify(rs)
}

func (r *Renderer) Shutdown() error {
	r.SetRenderSystem(nil)
	r.listeners = nil
	return nil
}

func (r *Renderer) notify(rs RenderSystem) {
	for _, l := range r.listeners {
		l.ChangeRenderSystem(rs)
	}
}
