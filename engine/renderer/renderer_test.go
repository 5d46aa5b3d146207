package renderer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/anima-constbuffers/engine/renderer"
	"github.com/spaghettifunk/anima-constbuffers/engine/renderer/software"
)

type recordingListener struct {
	seen []string
}

func (l *recordingListener) ChangeRenderSystem(rs renderer.RenderSystem) {
	if rs == nil {
		l.seen = append(l.seen, "<nil>")
		return
	}
	l.seen = append(l.seen, rs.Name())
}

func TestSetRenderSystemNotifiesLossBeforeReplacement(t *testing.T) {
	r := renderer.New()
	l := &recordingListener{}
	r.AddListener(l)

	r.SetRenderSystem(software.New(software.Config{Name: "first"}))
	r.SetRenderSystem(software.New(software.Config{Name: "second"}))
	r.SetRenderSystem(nil)

	assert.Equal(t, []string{"first", "<nil>", "second", "<nil>"}, l.seen)
	assert.Nil(t, r.RenderSystem())
}

func TestRemoveListenerKeepsOrder(t *testing.T) {
	r := renderer.New()
	var order []string
	a := &namedListener{name: "a", order: &order}
	b := &namedListener{name: "b", order: &order}
	c := &namedListener{name: "c", order: &order}
	r.AddListener(a)
	r.AddListener(b)
	r.AddListener(c)

	r.RemoveListener(b)
	r.RemoveListener(b)
	r.SetRenderSystem(software.New(software.Config{}))
	assert.Equal(t, []string{"a", "c"}, order)
}

type namedListener struct {
	name  string
	order *[]string
}

func (l *namedListener) ChangeRenderSystem(rs renderer.RenderSystem) {
	*l.order = append(*l.order, l.name)
}

func TestAddListenerSeesBoundSystem(t *testing.T) {
	r := renderer.New()
	r.SetRenderSystem(software.New(software.Config{Name: "bound"}))

	l := &recordingListener{}
	r.AddListener(l)
	assert.Equal(t, []string{"bound"}, l.seen)

	r.RemoveListener(l)
	assert.NoError(t, r.Shutdown())
	assert.Equal(t, []string{"bound"}, l.seen)
}
