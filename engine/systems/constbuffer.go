package systems

import (
	"cmp"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/anima-constbuffers/engine/containers"
	"github.com/spaghettifunk/anima-constbuffers/engine/core"
	"github.com/spaghettifunk/anima-constbuffers/engine/math"
	"github.com/spaghettifunk/anima-constbuffers/engine/renderer"
	"github.com/spaghettifunk/anima-constbuffers/engine/renderer/metadata"
)

type ConstBufferPoolConfig struct {
	/** @brief Size in bytes of one slot. */
	BytesPerSlot uint32
	/** @brief Ceiling for a pool buffer, at most core.DefaultMaxConstBufferSize. Zero means the default. */
	MaxBufferSize uint64
}

type ConstBufferPoolStats struct {
	Pools        int
	ActiveUsers  int
	DirtyUsers   int
	FreeSlots    int
	SlotsPerPool uint32
	BufferSize   uint64
}

// ConstBufferPool hands out fixed size slots inside shared uniform buffers
// and batches the upload of users whose data changed. It is not safe for
// concurrent use; every call is expected from the render thread.
type ConstBufferPool struct {
	config *ConstBufferPoolConfig

	slotsPerPool uint32
	bufferSize   uint64

	transfer renderer.TransferManager

	pools      map[uint32][]*BufferPool
	nextPoolID uint64

	// Dense registry of every user holding a slot.
	users      []ConstBufferUser
	dirtyUsers []ConstBufferUser
}

func NewConstBufferPool(config *ConstBufferPoolConfig) (*ConstBufferPool, error) {
	if config.BytesPerSlot == 0 {
		err := fmt.Errorf("func NewConstBufferPool - %w: config.BytesPerSlot must be > 0", core.ErrInvalidSlotSize)
		core.LogError(err.Error())
		return nil, err
	}
	cfg := *config
	if cfg.MaxBufferSize == 0 || cfg.MaxBufferSize > core.DefaultMaxConstBufferSize {
		cfg.MaxBufferSize = core.DefaultMaxConstBufferSize
	}
	return &ConstBufferPool{
		config: &cfg,
		pools:  make(map[uint32][]*BufferPool),
	}, nil
}

func (cp *ConstBufferPool) BytesPerSlot() uint32 {
	return cp.config.BytesPerSlot
}

func (cp *ConstBufferPool) SlotsPerPool() uint32 {
	return cp.slotsPerPool
}

func (cp *ConstBufferPool) BufferSize() uint64 {
	return cp.bufferSize
}

func (cp *ConstBufferPool) RenderSystemBound() bool {
	return cp.transfer != nil
}

// Pools returns the pools created for hash, in creation order.
func (cp *ConstBufferPool) Pools(hash uint32) []*BufferPool {
	return cp.pools[hash]
}

func (cp *ConstBufferPool) Stats() ConstBufferPoolStats {
	stats := ConstBufferPoolStats{
		ActiveUsers:  len(cp.users),
		DirtyUsers:   len(cp.dirtyUsers),
		SlotsPerPool: cp.slotsPerPool,
		BufferSize:   cp.bufferSize,
	}
	for _, pools := range cp.pools {
		stats.Pools += len(pools)
		for _, p := range pools {
			stats.FreeSlots += p.FreeSlotCount()
		}
	}
	return stats
}

// RequestSlot assigns user a slot in a pool of the given hash group,
// releasing whatever slot it held before. The user is scheduled for upload.
func (cp *ConstBufferPool) RequestSlot(hash uint32, user ConstBufferUser) error {
	if cp.transfer == nil {
		return fmt.Errorf("func RequestSlot - %w", core.ErrNoRenderSystem)
	}
	if cp.slotsPerPool == 0 {
		return fmt.Errorf("func RequestSlot - %w: %d bytes per slot do not fit a %d byte buffer",
			core.ErrInvalidSlotSize, cp.config.BytesPerSlot, cp.bufferSize)
	}

	pu := user.PoolUser()
	if pu.assignedPool != nil {
		cp.ReleaseSlot(user)
	}

	bufferPools := cp.pools[hash]

	var pool *BufferPool
	for _, p := range bufferPools {
		if p.HasFreeSlots() {
			pool = p
			break
		}
	}

	if pool == nil {
		materialBuffer, err := cp.transfer.RenderBufferCreate(metadata.RENDERBUFFER_TYPE_UNIFORM, cp.bufferSize)
		if err != nil {
			err = fmt.Errorf("func RequestSlot - %w: %w", core.ErrBufferCreation, err)
			core.LogError(err.Error())
			return err
		}
		pool = newBufferPool(cp.nextPoolID, hash, cp.slotsPerPool, materialBuffer)
		cp.nextPoolID++
		cp.pools[hash] = append(bufferPools, pool)
		core.LogDebug("const buffer pool %d created for hash %#08x (%d slots, %d pools in group)",
			pool.id, hash, cp.slotsPerPool, len(cp.pools[hash]))
	}

	pu.assignedSlot = pool.popFree()
	pu.assignedPool = pool
	pu.globalIndex = len(cp.users)
	cp.users = append(cp.users, user)

	cp.ScheduleForUpdate(user)
	return nil
}

// ReleaseSlot gives the slot held by user back to its pool. Releasing a user
// that holds no slot, or one registered with another ConstBufferPool, panics.
func (cp *ConstBufferPool) ReleaseSlot(user ConstBufferUser) {
	pu := user.PoolUser()
	pool := pu.assignedPool
	if pool == nil {
		panic("const buffer pool: releasing a user that holds no slot")
	}

	if pu.dirty {
		cp.removeDirty(pu)
	}

	pool.pushFree(pu.assignedSlot)

	gi := pu.globalIndex
	if gi < 0 || gi >= len(cp.users) || cp.users[gi] != user {
		panic(fmt.Sprintf("const buffer pool: global index %d out of date or user doesn't belong to this pool", gi))
	}
	var moved bool
	cp.users, moved = containers.SwapRemove(cp.users, gi)
	// The user that was at the end now lives at gi.
	if moved {
		cp.users[gi].PoolUser().globalIndex = gi
	}

	pu.reset()
}

// ScheduleForUpdate queues user for the next UploadDirtyDatablocks. Calling
// it again before the upload is a no-op.
func (cp *ConstBufferPool) ScheduleForUpdate(user ConstBufferUser) {
	pu := user.PoolUser()
	if pu.assignedPool == nil {
		panic("const buffer pool: scheduling a user that holds no slot")
	}
	if !pu.dirty {
		pu.dirty = true
		pu.dirtyIndex = len(cp.dirtyUsers)
		cp.dirtyUsers = append(cp.dirtyUsers, user)
	}
}

func (cp *ConstBufferPool) removeDirty(pu *ConstBufferPoolUser) {
	di := pu.dirtyIndex
	if di < 0 || di >= len(cp.dirtyUsers) || cp.dirtyUsers[di].PoolUser() != pu {
		panic(fmt.Sprintf("const buffer pool: dirty index %d out of date", di))
	}
	var moved bool
	cp.dirtyUsers, moved = containers.SwapRemove(cp.dirtyUsers, di)
	if moved {
		cp.dirtyUsers[di].PoolUser().dirtyIndex = di
	}
	pu.dirty = false
	pu.dirtyIndex = -1
}

// UploadDirtyDatablocks serialises every dirty user into one staging buffer
// and copies it to the pool buffers, merging copies that land next to each
// other. On error nothing is issued and the dirty set is kept.
func (cp *ConstBufferPool) UploadDirtyDatablocks(materialSizeInGpu uint64) error {
	if len(cp.dirtyUsers) == 0 {
		return nil
	}
	if cp.transfer == nil {
		return fmt.Errorf("func UploadDirtyDatablocks - %w", core.ErrNoRenderSystem)
	}
	if materialSizeInGpu == 0 || materialSizeInGpu > uint64(cp.config.BytesPerSlot) {
		return fmt.Errorf("func UploadDirtyDatablocks - %w: %d bytes per user, slots are %d bytes",
			core.ErrInvalidSlotSize, materialSizeInGpu, cp.config.BytesPerSlot)
	}

	slices.SortFunc(cp.dirtyUsers, orderByPoolThenSlot)
	for i, u := range cp.dirtyUsers {
		u.PoolUser().dirtyIndex = i
	}

	uploadSize := materialSizeInGpu * uint64(len(cp.dirtyUsers))
	stagingBuffer, err := cp.transfer.GetStagingBuffer(uploadSize, true)
	if err != nil {
		err = fmt.Errorf("func UploadDirtyDatablocks - %w: %w", core.ErrStagingAcquire, err)
		core.LogError(err.Error())
		return err
	}
	defer stagingBuffer.RemoveReferenceCount()

	data, err := stagingBuffer.Map(uploadSize)
	if err != nil {
		err = fmt.Errorf("func UploadDirtyDatablocks - %w: %w", core.ErrStagingMap, err)
		core.LogError(err.Error())
		return err
	}

	destinations := make([]metadata.StagingDestination, 0, len(cp.dirtyUsers))
	srcOffset := uint64(0)
	for _, u := range cp.dirtyUsers {
		pu := u.PoolUser()
		dstOffset := uint64(pu.assignedSlot) * materialSizeInGpu

		u.UploadToConstBuffer(data[srcOffset : srcOffset+materialSizeInGpu])

		dst := metadata.StagingDestination{
			Destination: pu.assignedPool.MaterialBuffer,
			DstOffset:   dstOffset,
			SrcOffset:   srcOffset,
			Length:      materialSizeInGpu,
		}
		srcOffset += materialSizeInGpu

		if n := len(destinations); n > 0 {
			last := &destinations[n-1]
			if last.Destination == dst.Destination && last.DstOffset+last.Length == dst.DstOffset {
				last.Length += dst.Length
				continue
			}
		}
		destinations = append(destinations, dst)
	}

	if err := stagingBuffer.Unmap(destinations); err != nil {
		err = fmt.Errorf("func UploadDirtyDatablocks - %w", err)
		core.LogError(err.Error())
		return err
	}

	core.LogDebug("uploaded %d dirty const buffer users (%d bytes) in %d copies",
		len(cp.dirtyUsers), uploadSize, len(destinations))

	for i, u := range cp.dirtyUsers {
		pu := u.PoolUser()
		pu.dirty = false
		pu.dirtyIndex = -1
		cp.dirtyUsers[i] = nil
	}
	cp.dirtyUsers = cp.dirtyUsers[:0]
	return nil
}

func orderByPoolThenSlot(a, b ConstBufferUser) int {
	pa, pb := a.PoolUser(), b.PoolUser()
	if c := cmp.Compare(pa.assignedPool.id, pb.assignedPool.id); c != 0 {
		return c
	}
	return cmp.Compare(pa.assignedSlot, pb.assignedSlot)
}

// DestroyAllPools releases every pool buffer and turns every registered user
// back into an unassigned one.
func (cp *ConstBufferPool) DestroyAllPools() {
	for hash, bufferPools := range cp.pools {
		for _, p := range bufferPools {
			if p.MaterialBuffer != nil {
				cp.transfer.RenderBufferDestroy(p.MaterialBuffer)
				p.MaterialBuffer = nil
			}
		}
		delete(cp.pools, hash)
	}

	for i, u := range cp.users {
		u.PoolUser().reset()
		cp.users[i] = nil
	}
	cp.users = cp.users[:0]

	for i := range cp.dirtyUsers {
		cp.dirtyUsers[i] = nil
	}
	cp.dirtyUsers = cp.dirtyUsers[:0]
}

// ChangeRenderSystem rebinds the pool to a new device context. Pools of the
// previous context are destroyed; users have to request their slots again.
func (cp *ConstBufferPool) ChangeRenderSystem(rs renderer.RenderSystem) {
	if cp.transfer != nil {
		cp.DestroyAllPools()
		cp.transfer = nil
		cp.bufferSize = 0
		cp.slotsPerPool = 0
	}

	if rs != nil {
		cp.transfer = rs.TransferManager()
		cp.bufferSize = math.Min(cp.transfer.ConstBufferMaxSize(), cp.config.MaxBufferSize)
		cp.slotsPerPool = uint32(cp.bufferSize / uint64(cp.config.BytesPerSlot))
		if cp.slotsPerPool == 0 {
			core.LogError("const buffer pool: %d bytes per slot do not fit a %d byte buffer on '%s'",
				cp.config.BytesPerSlot, cp.bufferSize, rs.Name())
			return
		}
		core.LogDebug("const buffer pool bound to '%s': %d byte buffers, %d slots per pool",
			rs.Name(), cp.bufferSize, cp.slotsPerPool)
	}
}

func (cp *ConstBufferPool) Shutdown() error {
	if cp.transfer != nil {
		cp.DestroyAllPools()
	}
	return nil
}
