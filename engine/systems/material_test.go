package systems

import (
	"encoding/binary"
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-constbuffers/engine/core"
	"github.com/spaghettifunk/anima-constbuffers/engine/math"
	"github.com/spaghettifunk/anima-constbuffers/engine/renderer"
	"github.com/spaghettifunk/anima-constbuffers/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-constbuffers/engine/renderer/software"
)

func newTestMaterialSystem(t *testing.T) (*SystemManager, *renderer.Renderer) {
	t.Helper()

	r := renderer.New()
	sm, err := NewSystemManager(core.DefaultConfig(), r)
	require.NoError(t, err)
	return sm, r
}

func materialConfig(name, shader string) metadata.MaterialConfig {
	return metadata.MaterialConfig{
		Name:           name,
		ShaderName:     shader,
		DiffuseColour:  math.NewVec4(0.25, 0.5, 0.75, 1),
		SpecularColour: math.NewVec4(1, 1, 1, 1),
		Shininess:      32,
		AlphaTest:      0.5,
	}
}

// readMaterial decodes the block the material occupies in its pool buffer.
func readMaterial(t *testing.T, m *Material) []float32 {
	t.Helper()

	require.True(t, m.HasSlot())
	data := software.BufferData(m.AssignedPool().MaterialBuffer)
	off := uint64(m.AssignedSlot()) * MaterialSizeInGpu
	values := make([]float32, 10)
	for i := range values {
		values[i] = gomath.Float32frombits(binary.LittleEndian.Uint32(data[off+uint64(i*4):]))
	}
	return values
}

func TestMaterialUploadLayout(t *testing.T) {
	m := &Material{
		DiffuseColour:  math.NewVec4(1, 2, 3, 4),
		SpecularColour: math.NewVec4(5, 6, 7, 8),
		Shininess:      9,
		AlphaTest:      10,
	}
	dst := make([]byte, MaterialSizeInGpu)
	for i := range dst {
		dst[i] = 0xFF
	}
	m.UploadToConstBuffer(dst)

	for i := 0; i < 10; i++ {
		assert.Equal(t, float32(i+1), gomath.Float32frombits(binary.LittleEndian.Uint32(dst[i*4:])))
	}
	assert.Equal(t, make([]byte, 8), dst[40:])
}

func TestMaterialsWaitForRenderSystem(t *testing.T) {
	sm, r := newTestMaterialSystem(t)
	ms := sm.MaterialSystem()

	m, err := ms.Create(materialConfig("brick", "pbs"))
	require.NoError(t, err)
	assert.False(t, m.HasSlot())
	assert.False(t, ms.Default().HasSlot())
	// nothing to upload to yet
	require.NoError(t, ms.Update())

	r.SetRenderSystem(software.New(software.Config{ConstBufferMaxSize: 1 << 20}))
	require.True(t, m.HasSlot())
	require.True(t, ms.Default().HasSlot())
	assert.True(t, m.IsDirty())

	require.NoError(t, sm.Update())
	assert.False(t, m.IsDirty())
	assert.Equal(t, []float32{0.25, 0.5, 0.75, 1, 1, 1, 1, 1, 32, 0.5}, readMaterial(t, m))
}

func TestMaterialsGroupByShader(t *testing.T) {
	sm, r := newTestMaterialSystem(t)
	r.SetRenderSystem(software.New(software.Config{ConstBufferMaxSize: 1 << 20}))
	ms := sm.MaterialSystem()

	a, err := ms.Create(materialConfig("a", "pbs"))
	require.NoError(t, err)
	b, err := ms.Create(materialConfig("b", "pbs"))
	require.NoError(t, err)
	c, err := ms.Create(materialConfig("c", "unlit"))
	require.NoError(t, err)

	assert.Same(t, a.AssignedPool(), b.AssignedPool())
	assert.NotSame(t, a.AssignedPool(), c.AssignedPool())
	assert.Equal(t, ShaderHash("pbs"), a.AssignedPool().Hash)
	assert.Equal(t, ShaderHash("unlit"), c.AssignedPool().Hash)
}

func TestMaterialSetterSchedulesUpload(t *testing.T) {
	sm, r := newTestMaterialSystem(t)
	rs := software.New(software.Config{ConstBufferMaxSize: 1 << 20})
	r.SetRenderSystem(rs)
	ms := sm.MaterialSystem()

	m, err := ms.Create(materialConfig("glass", "pbs"))
	require.NoError(t, err)
	require.NoError(t, ms.Update())
	generation := m.Generation

	require.NoError(t, ms.SetDiffuseColour("glass", math.NewVec4(0, 0, 1, 0.2)))
	require.NoError(t, ms.SetShininess("glass", 128))
	assert.Equal(t, 1, sm.ConstBufferPool().Stats().DirtyUsers)
	assert.Equal(t, generation+2, m.Generation)

	require.NoError(t, ms.Update())
	assert.Equal(t, float32(0.2), readMaterial(t, m)[3])
	assert.Equal(t, float32(128), readMaterial(t, m)[8])
	assert.Len(t, rs.Stats().LastDestinations, 1)

	require.ErrorIs(t, ms.SetShininess("missing", 1), core.ErrMaterialNotFound)
	require.ErrorIs(t, ms.SetDiffuseColour("missing", math.Vec4{}), core.ErrMaterialNotFound)
}

func TestMaterialApplyMovesShaderGroup(t *testing.T) {
	sm, r := newTestMaterialSystem(t)
	r.SetRenderSystem(software.New(software.Config{ConstBufferMaxSize: 1 << 20}))
	ms := sm.MaterialSystem()

	m, err := ms.Create(materialConfig("stone", "pbs"))
	require.NoError(t, err)
	require.NoError(t, ms.Update())

	same, err := ms.Apply(materialConfig("stone", "unlit"))
	require.NoError(t, err)
	assert.Same(t, m, same)
	assert.Equal(t, ShaderHash("unlit"), m.AssignedPool().Hash)
	assert.True(t, m.IsDirty())
	assert.Equal(t, 2, sm.ConstBufferPool().Stats().ActiveUsers)

	created, err := ms.Apply(materialConfig("moss", "pbs"))
	require.NoError(t, err)
	assert.True(t, created.HasSlot())
	assert.Equal(t, 3, ms.Count())
}

func TestMaterialAcquireFallsBackToDefault(t *testing.T) {
	sm, _ := newTestMaterialSystem(t)
	ms := sm.MaterialSystem()

	m, err := ms.Create(materialConfig("wood", "pbs"))
	require.NoError(t, err)
	assert.Same(t, m, ms.Acquire("wood"))
	assert.Same(t, ms.Default(), ms.Acquire("unknown"))
	assert.Equal(t, metadata.DefaultMaterialName, ms.Default().Name)
}

func TestMaterialCreateErrors(t *testing.T) {
	pool, err := NewConstBufferPool(&ConstBufferPoolConfig{BytesPerSlot: 256})
	require.NoError(t, err)
	_, err = NewMaterialSystem(&MaterialSystemConfig{}, pool)
	require.ErrorIs(t, err, core.ErrInvalidConfig)

	ms, err := NewMaterialSystem(&MaterialSystemConfig{MaxMaterialCount: 2}, pool)
	require.NoError(t, err)

	_, err = ms.Create(metadata.MaterialConfig{ShaderName: "pbs"})
	require.ErrorIs(t, err, core.ErrInvalidConfig)

	_, err = ms.Create(materialConfig("one", "pbs"))
	require.NoError(t, err)
	_, err = ms.Create(materialConfig("one", "pbs"))
	require.Error(t, err)
	_, err = ms.Create(materialConfig("two", "pbs"))
	require.Error(t, err, "default + one fill the system")
}

func TestMaterialDestroy(t *testing.T) {
	sm, r := newTestMaterialSystem(t)
	r.SetRenderSystem(software.New(software.Config{ConstBufferMaxSize: 1 << 20}))
	ms := sm.MaterialSystem()

	m, err := ms.Create(materialConfig("tmp", "pbs"))
	require.NoError(t, err)
	require.NoError(t, ms.Destroy("tmp"))
	assert.False(t, m.HasSlot())
	_, ok := ms.Get("tmp")
	assert.False(t, ok)
	assert.Equal(t, 1, ms.Count())

	require.ErrorIs(t, ms.Destroy("tmp"), core.ErrMaterialNotFound)
	require.NoError(t, ms.Destroy(metadata.DefaultMaterialName))
	assert.True(t, ms.Default().HasSlot())
}

func TestMaterialsSurviveContextChange(t *testing.T) {
	sm, r := newTestMaterialSystem(t)
	first := software.New(software.Config{Name: "first", ConstBufferMaxSize: 1 << 20})
	r.SetRenderSystem(first)
	ms := sm.MaterialSystem()

	m, err := ms.Create(materialConfig("metal", "pbs"))
	require.NoError(t, err)
	require.NoError(t, ms.Update())

	r.SetRenderSystem(nil)
	assert.False(t, m.HasSlot())
	assert.Equal(t, 0, first.Stats().LiveBuffers)
	require.NoError(t, ms.Update())
	require.NoError(t, ms.SetShininess("metal", 64))

	second := software.New(software.Config{Name: "second", ConstBufferMaxSize: 16 * 1024})
	r.SetRenderSystem(second)
	require.True(t, m.HasSlot())
	require.NoError(t, ms.Update())
	assert.Equal(t, float32(64), readMaterial(t, m)[8])
	assert.Equal(t, uint64(16*1024), sm.ConstBufferPool().BufferSize())
}

func TestMaterialReloadsAppliedOnUpdate(t *testing.T) {
	sm, r := newTestMaterialSystem(t)
	r.SetRenderSystem(software.New(software.Config{ConstBufferMaxSize: 1 << 20}))
	ms := sm.MaterialSystem()

	m, err := ms.Create(materialConfig("water", "pbs"))
	require.NoError(t, err)
	require.NoError(t, ms.Update())

	reloads := make(chan metadata.MaterialConfig, 2)
	ms.WatchReloads(reloads)
	cfg := materialConfig("water", "pbs")
	cfg.Shininess = 2
	reloads <- cfg
	reloads <- metadata.MaterialConfig{ShaderName: "broken"}
	close(reloads)

	require.NoError(t, ms.Update())
	assert.Equal(t, float32(2), readMaterial(t, m)[8])
	// a closed channel is dropped
	require.NoError(t, ms.Update())
}

func TestSystemManagerShutdown(t *testing.T) {
	sm, r := newTestMaterialSystem(t)
	rs := software.New(software.Config{ConstBufferMaxSize: 1 << 20})
	r.SetRenderSystem(rs)
	_, err := sm.MaterialSystem().Create(materialConfig("x", "pbs"))
	require.NoError(t, err)

	require.NoError(t, sm.Shutdown())
	assert.Equal(t, 0, rs.Stats().LiveBuffers)
	assert.Equal(t, 0, sm.ConstBufferPool().Stats().ActiveUsers)

	// listeners are detached
	r.SetRenderSystem(software.New(software.Config{}))
	assert.Equal(t, core.DefaultMaxConstBufferSize, sm.ConstBufferPool().BufferSize())
}
