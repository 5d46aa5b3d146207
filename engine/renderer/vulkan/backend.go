package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-constbuffers/engine/core"
	"github.com/spaghettifunk/anima-constbuffers/engine/renderer"
	"github.com/spaghettifunk/anima-constbuffers/engine/renderer/metadata"
)

// VulkanRenderSystem exposes an existing Vulkan device to the const buffer
// pools: device local uniform buffers filled through host visible staging
// buffers on the transfer queue.
type VulkanRenderSystem struct {
	name    string
	context *VulkanContext
	locks   *VulkanLockPool
}

func New(name string, context *VulkanContext) (*VulkanRenderSystem, error) {
	vr := &VulkanRenderSystem{
		name:    name,
		context: context,
		locks:   NewVulkanLockPool(),
	}
	vr.locks.SetQueueFamily(uint32(context.Device.TransferQueueIndex))

	if context.TransferCommandPool == nil {
		poolInfo := vk.CommandPoolCreateInfo{
			SType:            vk.StructureTypeCommandPoolCreateInfo,
			QueueFamilyIndex: uint32(context.Device.TransferQueueIndex),
			Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
		}
		var pool vk.CommandPool
		if res := vk.CreateCommandPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &pool); res != vk.Success {
			err := resultError("vkCreateCommandPool", res)
			core.LogError(err.Error())
			return nil, err
		}
		context.TransferCommandPool = pool
	}
	return vr, nil
}

func (vr *VulkanRenderSystem) Name() string {
	return vr.name
}

func (vr *VulkanRenderSystem) TransferManager() renderer.TransferManager {
	return vr
}

func (vr *VulkanRenderSystem) Shutdown() error {
	if vr.context.TransferCommandPool != nil {
		vk.DestroyCommandPool(vr.context.Device.LogicalDevice, vr.context.TransferCommandPool, vr.context.Allocator)
		vr.context.TransferCommandPool = nil
	}
	return nil
}

func (vr *VulkanRenderSystem) ConstBufferMaxSize() uint64 {
	return vr.context.MaxUniformBufferRange()
}

func (vr *VulkanRenderSystem) RenderBufferCreate(renderbufferType metadata.RenderBufferType, totalSize uint64) (*metadata.RenderBuffer, error) {
	var usage vk.BufferUsageFlags
	var memoryFlags uint32
	switch renderbufferType {
	case metadata.RENDERBUFFER_TYPE_UNIFORM:
		usage = vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit | vk.BufferUsageTransferDstBit)
		memoryFlags = uint32(vk.MemoryPropertyDeviceLocalBit)
	case metadata.RENDERBUFFER_TYPE_STAGING:
		usage = vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
		memoryFlags = uint32(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	case metadata.RENDERBUFFER_TYPE_STORAGE:
		usage = vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit | vk.BufferUsageTransferDstBit)
		memoryFlags = uint32(vk.MemoryPropertyDeviceLocalBit)
	default:
		err := fmt.Errorf("%w: unsupported buffer type %s", core.ErrBufferCreation, renderbufferType)
		core.LogError(err.Error())
		return nil, err
	}

	var vb *VulkanBuffer
	err := vr.locks.SafeCall(BufferManagement, func() error {
		var err error
		vb, err = NewVulkanBuffer(vr.context, totalSize, usage, memoryFlags)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrBufferCreation, err)
	}
	return &metadata.RenderBuffer{
		RenderBufferType: renderbufferType,
		TotalSize:        totalSize,
		InternalData:     vb,
	}, nil
}

func (vr *VulkanRenderSystem) RenderBufferDestroy(buffer *metadata.RenderBuffer) {
	vb, ok := buffer.InternalData.(*VulkanBuffer)
	if !ok {
		core.LogWarn("RenderBufferDestroy called on a buffer not owned by the vulkan backend")
		return
	}
	_ = vr.locks.SafeCall(BufferManagement, func() error {
		vb.Destroy(vr.context)
		return nil
	})
	buffer.InternalData = nil
}

func (vr *VulkanRenderSystem) GetStagingBuffer(minSize uint64, forUpload bool) (renderer.StagingBuffer, error) {
	if !forUpload {
		return nil, fmt.Errorf("%w: download staging buffers are not supported", core.ErrStagingAcquire)
	}
	rb, err := vr.RenderBufferCreate(metadata.RENDERBUFFER_TYPE_STAGING, minSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStagingAcquire, err)
	}
	return &VulkanStagingBuffer{
		owner:    vr,
		buffer:   rb,
		refCount: 1,
	}, nil
}
