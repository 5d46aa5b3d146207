package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-constbuffers/engine/renderer/metadata"
)

func TestGroupCopyRegions(t *testing.T) {
	a := &metadata.RenderBuffer{InternalData: &VulkanBuffer{TotalSize: 1024}}
	b := &metadata.RenderBuffer{InternalData: &VulkanBuffer{TotalSize: 1024}}

	batches, err := groupCopyRegions([]metadata.StagingDestination{
		{Destination: a, DstOffset: 0, SrcOffset: 0, Length: 512},
		{Destination: b, DstOffset: 256, SrcOffset: 512, Length: 256},
		{Destination: a, DstOffset: 768, SrcOffset: 768, Length: 256},
	})
	require.NoError(t, err)
	require.Len(t, batches, 2)

	assert.Same(t, a.InternalData, batches[0].destination)
	assert.Equal(t, []vk.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: 512},
		{SrcOffset: 768, DstOffset: 768, Size: 256},
	}, batches[0].regions)

	assert.Same(t, b.InternalData, batches[1].destination)
	assert.Equal(t, []vk.BufferCopy{
		{SrcOffset: 512, DstOffset: 256, Size: 256},
	}, batches[1].regions)
}

func TestGroupCopyRegionsRejectsForeignBuffers(t *testing.T) {
	_, err := groupCopyRegions([]metadata.StagingDestination{
		{Destination: &metadata.RenderBuffer{InternalData: []byte{}}, Length: 4},
	})
	require.Error(t, err)
}

func TestVulkanResultString(t *testing.T) {
	assert.Equal(t, "VK_ERROR_OUT_OF_DEVICE_MEMORY", VulkanResultString(vk.ErrorOutOfDeviceMemory))
	assert.Equal(t, "VkResult(12345)", VulkanResultString(vk.Result(12345)))
}

func TestLockPoolSerialisesCalls(t *testing.T) {
	locks := NewVulkanLockPool()
	calls := 0
	require.NoError(t, locks.SafeCall(BufferManagement, func() error {
		calls++
		return nil
	}))
	require.NoError(t, locks.SafeQueueCall(3, func() error {
		calls++
		return nil
	}))
	assert.Equal(t, 2, calls)
}
