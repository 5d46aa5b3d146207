package systems

import (
	"fmt"

	"github.com/spaghettifunk/anima-constbuffers/engine/renderer/metadata"
)

// BufferPool is one uniform buffer split into equally sized slots, all
// belonging to the same hash group. Its capacity never changes.
type BufferPool struct {
	id             uint64
	Hash           uint32
	MaterialBuffer *metadata.RenderBuffer

	// LIFO of free slot indices.
	freeSlots []uint32
	// inUse[i] is true while some user holds slot i.
	inUse []bool
}

func newBufferPool(id uint64, hash uint32, slotsPerPool uint32, materialBuffer *metadata.RenderBuffer) *BufferPool {
	bp := &BufferPool{
		id:             id,
		Hash:           hash,
		MaterialBuffer: materialBuffer,
		freeSlots:      make([]uint32, 0, slotsPerPool),
		inUse:          make([]bool, slotsPerPool),
	}
	// Pushed in reverse so slot 0 is handed out first.
	for i := uint32(0); i < slotsPerPool; i++ {
		bp.freeSlots = append(bp.freeSlots, (slotsPerPool-i)-1)
	}
	return bp
}

func (bp *BufferPool) ID() uint64 {
	return bp.id
}

func (bp *BufferPool) SlotCount() uint32 {
	return uint32(len(bp.inUse))
}

func (bp *BufferPool) FreeSlotCount() int {
	return len(bp.freeSlots)
}

func (bp *BufferPool) HasFreeSlots() bool {
	return len(bp.freeSlots) > 0
}

func (bp *BufferPool) popFree() uint32 {
	last := len(bp.freeSlots) - 1
	slot := bp.freeSlots[last]
	bp.freeSlots = bp.freeSlots[:last]
	bp.inUse[slot] = true
	return slot
}

func (bp *BufferPool) pushFree(slot uint32) {
	if slot >= uint32(len(bp.inUse)) {
		panic(fmt.Sprintf("const buffer pool %d: slot %d out of range (slots=%d)", bp.id, slot, len(bp.inUse)))
	}
	if !bp.inUse[slot] {
		panic(fmt.Sprintf("const buffer pool %d: slot %d released twice", bp.id, slot))
	}
	bp.inUse[slot] = false
	bp.freeSlots = append(bp.freeSlots, slot)
}
