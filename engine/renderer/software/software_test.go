package software

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-constbuffers/engine/core"
	"github.com/spaghettifunk/anima-constbuffers/engine/renderer/metadata"
)

func TestDefaults(t *testing.T) {
	rs := New(Config{})
	assert.Equal(t, "software", rs.Name())
	assert.Equal(t, DefaultConstBufferMaxSize, rs.TransferManager().ConstBufferMaxSize())
}

func TestBufferLifecycle(t *testing.T) {
	rs := New(Config{})
	b, err := rs.RenderBufferCreate(metadata.RENDERBUFFER_TYPE_UNIFORM, 1024)
	require.NoError(t, err)
	assert.Len(t, BufferData(b), 1024)
	assert.Equal(t, 1, rs.Stats().LiveBuffers)

	rs.RenderBufferDestroy(b)
	assert.True(t, IsDestroyed(b))
	assert.Equal(t, 0, rs.Stats().LiveBuffers)
	assert.Panics(t, func() { rs.RenderBufferDestroy(b) })
}

func TestBufferCreateFailure(t *testing.T) {
	rs := New(Config{})
	rs.FailBufferCreate = true
	_, err := rs.RenderBufferCreate(metadata.RENDERBUFFER_TYPE_UNIFORM, 16)
	require.ErrorIs(t, err, core.ErrBufferCreation)
}

func TestStagingCopies(t *testing.T) {
	rs := New(Config{})
	dst, err := rs.RenderBufferCreate(metadata.RENDERBUFFER_TYPE_UNIFORM, 16)
	require.NoError(t, err)

	sb, err := rs.GetStagingBuffer(8, true)
	require.NoError(t, err)
	data, err := sb.Map(8)
	require.NoError(t, err)
	copy(data, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	require.NoError(t, sb.Unmap([]metadata.StagingDestination{
		{Destination: dst, DstOffset: 4, SrcOffset: 0, Length: 4},
		{Destination: dst, DstOffset: 12, SrcOffset: 4, Length: 4},
	}))
	sb.RemoveReferenceCount()

	assert.Equal(t, []byte{0, 0, 0, 0, 1, 2, 3, 4, 0, 0, 0, 0, 5, 6, 7, 8}, BufferData(dst))
	stats := rs.Stats()
	assert.Equal(t, 2, stats.CopiesIssued)
	assert.Equal(t, uint64(8), stats.BytesCopied)
	assert.Equal(t, 1, stats.Unmaps)
}

func TestStagingBounds(t *testing.T) {
	rs := New(Config{})
	dst, err := rs.RenderBufferCreate(metadata.RENDERBUFFER_TYPE_UNIFORM, 4)
	require.NoError(t, err)

	sb, err := rs.GetStagingBuffer(8, true)
	require.NoError(t, err)
	_, err = sb.Map(16)
	require.ErrorIs(t, err, core.ErrStagingMap)

	_, err = sb.Map(8)
	require.NoError(t, err)
	require.Error(t, sb.Unmap([]metadata.StagingDestination{{Destination: dst, DstOffset: 0, SrcOffset: 0, Length: 8}}))
}

func TestStagingRecycling(t *testing.T) {
	rs := New(Config{MaxCachedStagingBuffers: 1})

	sb, err := rs.GetStagingBuffer(64, true)
	require.NoError(t, err)
	sb.RemoveReferenceCount()
	assert.Panics(t, func() { sb.RemoveReferenceCount() })

	again, err := rs.GetStagingBuffer(32, true)
	require.NoError(t, err)
	assert.Same(t, sb, again)

	bigger, err := rs.GetStagingBuffer(128, true)
	require.NoError(t, err)
	assert.NotSame(t, sb, bigger)
	assert.Equal(t, 2, rs.Stats().StagingCreated)
	assert.Equal(t, 3, rs.Stats().StagingAcquired)
}

func TestStagingFailure(t *testing.T) {
	rs := New(Config{})
	rs.FailStaging = true
	_, err := rs.GetStagingBuffer(64, true)
	require.ErrorIs(t, err, core.ErrStagingAcquire)
}
