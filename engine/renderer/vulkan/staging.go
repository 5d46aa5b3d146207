package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-constbuffers/engine/core"
	"github.com/spaghettifunk/anima-constbuffers/engine/renderer/metadata"
)

// VulkanStagingBuffer is a host visible buffer that lives until its last
// reference is removed.
type VulkanStagingBuffer struct {
	owner    *VulkanRenderSystem
	buffer   *metadata.RenderBuffer
	refCount int
}

type copyBatch struct {
	destination *VulkanBuffer
	regions     []vk.BufferCopy
}

// groupCopyRegions collects the copies per destination buffer, keeping the
// order in which destinations first appear.
func groupCopyRegions(destinations []metadata.StagingDestination) ([]copyBatch, error) {
	batches := []copyBatch{}
	index := map[*VulkanBuffer]int{}
	for _, dst := range destinations {
		vb, ok := dst.Destination.InternalData.(*VulkanBuffer)
		if !ok {
			return nil, fmt.Errorf("copy destination is not a vulkan buffer")
		}
		i, exists := index[vb]
		if !exists {
			i = len(batches)
			index[vb] = i
			batches = append(batches, copyBatch{destination: vb})
		}
		batches[i].regions = append(batches[i].regions, vk.BufferCopy{
			SrcOffset: vk.DeviceSize(dst.SrcOffset),
			DstOffset: vk.DeviceSize(dst.DstOffset),
			Size:      vk.DeviceSize(dst.Length),
		})
	}
	return batches, nil
}

func (sb *VulkanStagingBuffer) internal() *VulkanBuffer {
	return sb.buffer.InternalData.(*VulkanBuffer)
}

func (sb *VulkanStagingBuffer) Map(size uint64) ([]byte, error) {
	if sb.refCount == 0 {
		return nil, fmt.Errorf("%w: staging buffer has no references", core.ErrStagingMap)
	}
	data, err := sb.internal().MapMemory(sb.owner.context, 0, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStagingMap, err)
	}
	return data, nil
}

// Unmap records every copy in one single-use command buffer on the transfer
// queue and waits for it. The memory is host coherent so no flush is needed.
func (sb *VulkanStagingBuffer) Unmap(destinations []metadata.StagingDestination) error {
	context := sb.owner.context
	staging := sb.internal()
	if staging.IsMapped {
		staging.UnmapMemory(context)
	}
	if len(destinations) == 0 {
		return nil
	}

	batches, err := groupCopyRegions(destinations)
	if err != nil {
		return err
	}

	device := context.Device
	return sb.owner.locks.SafeCall(CommandPoolManagement, func() error {
		cb, err := AllocateAndBeginSingleUse(context, context.TransferCommandPool)
		if err != nil {
			return err
		}
		for _, batch := range batches {
			vk.CmdCopyBuffer(cb.Handle, staging.Handle, batch.destination.Handle, uint32(len(batch.regions)), batch.regions)
		}
		return sb.owner.locks.SafeQueueCall(uint32(device.TransferQueueIndex), func() error {
			return cb.EndSingleUse(context, context.TransferCommandPool, device.TransferQueue)
		})
	})
}

func (sb *VulkanStagingBuffer) RemoveReferenceCount() {
	if sb.refCount == 0 {
		panic("vulkan: staging buffer reference count underflow")
	}
	sb.refCount--
	if sb.refCount == 0 {
		sb.owner.RenderBufferDestroy(sb.buffer)
	}
}
