package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-constbuffers/engine/core"
)

// VulkanDevice is the part of an already created device the transfer layer
// needs. Instance, surface and swapchain belong to the host engine.
type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	TransferQueueIndex int32
	TransferQueue      vk.Queue

	Properties vk.PhysicalDeviceProperties
	Memory     vk.PhysicalDeviceMemoryProperties
}

type VulkanContext struct {
	Allocator *vk.AllocationCallbacks
	Device    *VulkanDevice

	// Transient pool the single-use transfer command buffers come from.
	TransferCommandPool vk.CommandPool
}

func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}

// MaxUniformBufferRange is the device limit for a single bound uniform range.
func (vc *VulkanContext) MaxUniformBufferRange() uint64 {
	properties := vc.Device.Properties
	properties.Deref()
	properties.Limits.Deref()
	return uint64(properties.Limits.MaxUniformBufferRange)
}
