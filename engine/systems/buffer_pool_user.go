package systems

// ConstBufferUser is anything that owns a slot in a ConstBufferPool. Types
// usually satisfy it by embedding ConstBufferPoolUser.
type ConstBufferUser interface {
	PoolUser() *ConstBufferPoolUser
	// UploadToConstBuffer serialises the user into dst, which is exactly
	// the per-user upload size long.
	UploadToConstBuffer(dst []byte)
}

// ConstBufferPoolUser is the bookkeeping a ConstBufferPool keeps on each of
// its users. The zero value is an unassigned user.
type ConstBufferPoolUser struct {
	assignedSlot uint32
	// Not owned; pools live as long as the ConstBufferPool that made them.
	assignedPool *BufferPool
	// Position in ConstBufferPool.users.
	globalIndex int
	// Position in ConstBufferPool.dirtyUsers, valid while dirty.
	dirtyIndex int
	dirty      bool
}

func (u *ConstBufferPoolUser) PoolUser() *ConstBufferPoolUser {
	return u
}

func (u *ConstBufferPoolUser) HasSlot() bool {
	return u.assignedPool != nil
}

// AssignedSlot is only meaningful while HasSlot is true.
func (u *ConstBufferPoolUser) AssignedSlot() uint32 {
	return u.assignedSlot
}

func (u *ConstBufferPoolUser) AssignedPool() *BufferPool {
	return u.assignedPool
}

// GlobalIndex returns -1 for unassigned users.
func (u *ConstBufferPoolUser) GlobalIndex() int {
	if u.assignedPool == nil {
		return -1
	}
	return u.globalIndex
}

func (u *ConstBufferPoolUser) IsDirty() bool {
	return u.dirty
}

func (u *ConstBufferPoolUser) reset() {
	u.assignedSlot = 0
	u.assignedPool = nil
	u.globalIndex = -1
	u.dirtyIndex = -1
	u.dirty = false
}
