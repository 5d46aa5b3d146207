package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-constbuffers/engine/core"
)

type VulkanBuffer struct {
	TotalSize           uint64
	Handle              vk.Buffer
	Usage               vk.BufferUsageFlags
	Memory              vk.DeviceMemory
	MemoryIndex         int32
	MemoryPropertyFlags uint32
	IsMapped            bool
}

func NewVulkanBuffer(context *VulkanContext, size uint64, usage vk.BufferUsageFlags, memoryPropertyFlags uint32) (*VulkanBuffer, error) {
	vb := &VulkanBuffer{
		TotalSize:           size,
		Usage:               usage,
		MemoryPropertyFlags: memoryPropertyFlags,
	}
	device := context.Device.LogicalDevice

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if res := vk.CreateBuffer(device, &bufferInfo, context.Allocator, &handle); res != vk.Success {
		err := resultError("vkCreateBuffer", res)
		core.LogError(err.Error())
		return nil, err
	}
	vb.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, vb.Handle, &requirements)
	requirements.Deref()

	vb.MemoryIndex = context.FindMemoryIndex(requirements.MemoryTypeBits, memoryPropertyFlags)
	if vb.MemoryIndex == -1 {
		vk.DestroyBuffer(device, vb.Handle, context.Allocator)
		err := fmt.Errorf("unable to create vulkan buffer because the required memory type index was not found")
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(vb.MemoryIndex),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(device, &allocateInfo, context.Allocator, &memory); res != vk.Success {
		vk.DestroyBuffer(device, vb.Handle, context.Allocator)
		err := resultError("vkAllocateMemory", res)
		core.LogError(err.Error())
		return nil, err
	}
	vb.Memory = memory

	if res := vk.BindBufferMemory(device, vb.Handle, vb.Memory, 0); res != vk.Success {
		vb.Destroy(context)
		err := resultError("vkBindBufferMemory", res)
		core.LogError(err.Error())
		return nil, err
	}
	return vb, nil
}

func (vb *VulkanBuffer) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if vb.IsMapped {
		vb.UnmapMemory(context)
	}
	if vb.Memory != nil {
		vk.FreeMemory(device, vb.Memory, context.Allocator)
		vb.Memory = nil
	}
	if vb.Handle != nil {
		vk.DestroyBuffer(device, vb.Handle, context.Allocator)
		vb.Handle = nil
	}
	vb.TotalSize = 0
}

// MapMemory maps size bytes starting at offset. Only valid for host visible
// memory.
func (vb *VulkanBuffer) MapMemory(context *VulkanContext, offset, size uint64) ([]byte, error) {
	if offset+size > vb.TotalSize {
		return nil, fmt.Errorf("map range [%d, %d) outside buffer of %d bytes", offset, offset+size, vb.TotalSize)
	}
	var pData unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, vb.Memory, vk.DeviceSize(offset), vk.DeviceSize(size), 0, &pData); res != vk.Success {
		return nil, resultError("vkMapMemory", res)
	}
	vb.IsMapped = true
	return unsafe.Slice((*byte)(pData), size), nil
}

func (vb *VulkanBuffer) UnmapMemory(context *VulkanContext) {
	vk.UnmapMemory(context.Device.LogicalDevice, vb.Memory)
	vb.IsMapped = false
}
