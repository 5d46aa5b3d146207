package systems

import (
	"encoding/binary"
	"fmt"
	gomath "math"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/anima-constbuffers/engine/core"
	"github.com/spaghettifunk/anima-constbuffers/engine/math"
	"github.com/spaghettifunk/anima-constbuffers/engine/renderer"
	"github.com/spaghettifunk/anima-constbuffers/engine/renderer/metadata"
)

// MaterialSizeInGpu is the std140 size of one material block:
// diffuse vec4, specular vec4, shininess float, alpha test float, padding.
const MaterialSizeInGpu uint64 = 48

type MaterialSystemConfig struct {
	/** @brief The maximum number of materials that can be registered at once. */
	MaxMaterialCount uint32
}

/**
 * @brief A material, which represents various properties
 * of a surface in the world such as colour and shininess.
 * Its values live in a slot of a shared const buffer.
 */
type Material struct {
	ConstBufferPoolUser

	/** @brief Unique id of the material instance. */
	ID uuid.UUID
	/** @brief The material name. */
	Name string
	/** @brief The shader the material is rendered with. */
	ShaderName string
	/** @brief Incremented every time the material is changed. */
	Generation uint32

	DiffuseColour  math.Vec4
	SpecularColour math.Vec4
	Shininess      float32
	AlphaTest      float32
}

// Hash groups materials whose shader shares a const buffer layout.
func (m *Material) Hash() uint32 {
	return ShaderHash(m.ShaderName)
}

func ShaderHash(shaderName string) uint32 {
	return uint32(xxhash.Sum64String(shaderName))
}

func (m *Material) UploadToConstBuffer(dst []byte) {
	offset := 0
	putFloat := func(f float32) {
		binary.LittleEndian.PutUint32(dst[offset:], gomath.Float32bits(f))
		offset += 4
	}
	for _, f := range m.DiffuseColour.Elements() {
		putFloat(f)
	}
	for _, f := range m.SpecularColour.Elements() {
		putFloat(f)
	}
	putFloat(m.Shininess)
	putFloat(m.AlphaTest)
	clear(dst[offset:])
}

func (m *Material) apply(config metadata.MaterialConfig) {
	m.ShaderName = config.ShaderName
	m.DiffuseColour = config.DiffuseColour
	m.SpecularColour = config.SpecularColour
	m.Shininess = config.Shininess
	m.AlphaTest = config.AlphaTest
	m.Generation++
}

// MaterialSystem owns every material and keeps their const buffer slots in
// sync with the bound render system. Listen to the renderer after the
// ConstBufferPool so slots are requested once the pool is sized.
type MaterialSystem struct {
	config *MaterialSystemConfig
	pool   *ConstBufferPool

	// Registration order, so slots are requested deterministically.
	materials     []*Material
	materialTable map[string]*Material

	defaultMaterial *Material

	reloads <-chan metadata.MaterialConfig
}

func NewMaterialSystem(config *MaterialSystemConfig, pool *ConstBufferPool) (*MaterialSystem, error) {
	if config.MaxMaterialCount == 0 {
		err := fmt.Errorf("func NewMaterialSystem - %w: config.MaxMaterialCount must be > 0", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return nil, err
	}
	ms := &MaterialSystem{
		config:        config,
		pool:          pool,
		materialTable: make(map[string]*Material),
	}
	m, err := ms.Create(metadata.DefaultMaterialConfig())
	if err != nil {
		return nil, err
	}
	ms.defaultMaterial = m
	return ms, nil
}

func (ms *MaterialSystem) Default() *Material {
	return ms.defaultMaterial
}

func (ms *MaterialSystem) Count() int {
	return len(ms.materials)
}

func (ms *MaterialSystem) Get(name string) (*Material, bool) {
	m, ok := ms.materialTable[name]
	return m, ok
}

// Acquire resolves a material by name and falls back to the default material
// when no material with that name is registered.
func (ms *MaterialSystem) Acquire(name string) *Material {
	if m, ok := ms.materialTable[name]; ok {
		return m
	}
	core.LogWarn("material '%s' not found, using default", name)
	return ms.defaultMaterial
}

func (ms *MaterialSystem) Create(config metadata.MaterialConfig) (*Material, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("func Create - %w: material name is required", core.ErrInvalidConfig)
	}
	if _, exists := ms.materialTable[config.Name]; exists {
		return nil, fmt.Errorf("func Create - material '%s' already exists", config.Name)
	}
	if uint32(len(ms.materials)) >= ms.config.MaxMaterialCount {
		err := fmt.Errorf("func Create - material system is full (%d materials)", ms.config.MaxMaterialCount)
		core.LogError(err.Error())
		return nil, err
	}

	m := &Material{
		ID:   uuid.New(),
		Name: config.Name,
	}
	m.apply(config)

	if ms.pool.RenderSystemBound() {
		if err := ms.pool.RequestSlot(m.Hash(), m); err != nil {
			return nil, err
		}
	}

	ms.materials = append(ms.materials, m)
	ms.materialTable[m.Name] = m
	core.LogDebug("material '%s' created (%s)", m.Name, m.ID)
	return m, nil
}

// Apply updates the material named in config, creating it if needed. A new
// shader moves the material to the pool group of that shader.
func (ms *MaterialSystem) Apply(config metadata.MaterialConfig) (*Material, error) {
	m, ok := ms.materialTable[config.Name]
	if !ok {
		return ms.Create(config)
	}

	oldHash := m.Hash()
	m.apply(config)
	if !m.HasSlot() {
		return m, nil
	}
	if m.Hash() != oldHash {
		if err := ms.pool.RequestSlot(m.Hash(), m); err != nil {
			return nil, err
		}
		return m, nil
	}
	ms.pool.ScheduleForUpdate(m)
	return m, nil
}

func (ms *MaterialSystem) SetDiffuseColour(name string, colour math.Vec4) error {
	m, ok := ms.materialTable[name]
	if !ok {
		return fmt.Errorf("func SetDiffuseColour - %w: %s", core.ErrMaterialNotFound, name)
	}
	m.DiffuseColour = colour
	ms.markDirty(m)
	return nil
}

func (ms *MaterialSystem) SetShininess(name string, shininess float32) error {
	m, ok := ms.materialTable[name]
	if !ok {
		return fmt.Errorf("func SetShininess - %w: %s", core.ErrMaterialNotFound, name)
	}
	m.Shininess = shininess
	ms.markDirty(m)
	return nil
}

func (ms *MaterialSystem) markDirty(m *Material) {
	m.Generation++
	// Without a slot the values are uploaded when one is assigned.
	if m.HasSlot() {
		ms.pool.ScheduleForUpdate(m)
	}
}

func (ms *MaterialSystem) Destroy(name string) error {
	if name == metadata.DefaultMaterialName {
		core.LogWarn("func Destroy - the default material cannot be destroyed")
		return nil
	}
	m, ok := ms.materialTable[name]
	if !ok {
		return fmt.Errorf("func Destroy - %w: %s", core.ErrMaterialNotFound, name)
	}
	if m.HasSlot() {
		ms.pool.ReleaseSlot(m)
	}
	delete(ms.materialTable, name)
	if i := slices.Index(ms.materials, m); i >= 0 {
		ms.materials = slices.Delete(ms.materials, i, i+1)
	}
	return nil
}

// WatchReloads sets the channel hot reloaded material definitions arrive
// on. It is drained from Update, on the render thread.
func (ms *MaterialSystem) WatchReloads(reloads <-chan metadata.MaterialConfig) {
	ms.reloads = reloads
}

// Update applies pending reloads and uploads every changed material.
func (ms *MaterialSystem) Update() error {
	ms.drainReloads()
	if !ms.pool.RenderSystemBound() {
		return nil
	}
	return ms.pool.UploadDirtyDatablocks(MaterialSizeInGpu)
}

func (ms *MaterialSystem) drainReloads() {
	if ms.reloads == nil {
		return
	}
	for {
		select {
		case config, ok := <-ms.reloads:
			if !ok {
				ms.reloads = nil
				return
			}
			if _, err := ms.Apply(config); err != nil {
				core.LogError("failed to reload material '%s': %s", config.Name, err.Error())
				continue
			}
			core.LogInfo("material '%s' reloaded", config.Name)
		default:
			return
		}
	}
}

// ChangeRenderSystem requests slots for every material once a new render
// system is bound. The pool already dropped the old slots on context loss.
func (ms *MaterialSystem) ChangeRenderSystem(rs renderer.RenderSystem) {
	if rs == nil {
		return
	}
	for _, m := range ms.materials {
		if err := ms.pool.RequestSlot(m.Hash(), m); err != nil {
			core.LogError("failed to assign a const buffer slot to material '%s': %s", m.Name, err.Error())
		}
	}
}

func (ms *MaterialSystem) Shutdown() error {
	for _, m := range ms.materials {
		if m.HasSlot() {
			ms.pool.ReleaseSlot(m)
		}
	}
	ms.materials = nil
	ms.materialTable = make(map[string]*Material)
	ms.defaultMaterial = nil
	return nil
}
