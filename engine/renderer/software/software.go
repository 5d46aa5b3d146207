// Package software implements the renderer transfer layer in host memory.
// Buffers are plain byte slices, so uploads can be inspected directly.
package software

import (
	"fmt"

	"github.com/eapache/queue"
	"github.com/spaghettifunk/anima-constbuffers/engine/core"
	"github.com/spaghettifunk/anima-constbuffers/engine/renderer"
	"github.com/spaghettifunk/anima-constbuffers/engine/renderer/metadata"
)

// DefaultConstBufferMaxSize mirrors the 16 KiB minimum Vulkan guarantees for
// maxUniformBufferRange.
const DefaultConstBufferMaxSize uint64 = 16 * 1024

type Config struct {
	Name string
	/** @brief Reported device limit for a single uniform buffer. */
	ConstBufferMaxSize uint64
	/** @brief Number of released staging buffers kept around for reuse. */
	MaxCachedStagingBuffers int
}

// Stats are cumulative counters for everything that went through the
// transfer layer.
type Stats struct {
	BuffersCreated   int
	BuffersDestroyed int
	LiveBuffers      int
	StagingAcquired  int
	StagingCreated   int
	Unmaps           int
	CopiesIssued     int
	BytesCopied      uint64
	// LastDestinations is the copy list of the most recent Unmap.
	LastDestinations []metadata.StagingDestination
}

type buffer struct {
	data      []byte
	destroyed bool
}

type RenderSystem struct {
	config  Config
	stats   Stats
	staging *queue.Queue

	// FailBufferCreate and FailStaging make the next calls fail, for
	// exercising error paths.
	FailBufferCreate bool
	FailStaging      bool
}

func New(config Config) *RenderSystem {
	if config.Name == "" {
		config.Name = "software"
	}
	if config.ConstBufferMaxSize == 0 {
		config.ConstBufferMaxSize = DefaultConstBufferMaxSize
	}
	if config.MaxCachedStagingBuffers == 0 {
		config.MaxCachedStagingBuffers = 4
	}
	return &RenderSystem{
		config:  config,
		staging: queue.New(),
	}
}

func (rs *RenderSystem) Name() string {
	return rs.config.Name
}

func (rs *RenderSystem) TransferManager() renderer.TransferManager {
	return rs
}

func (rs *RenderSystem) Stats() Stats {
	return rs.stats
}

func (rs *RenderSystem) ConstBufferMaxSize() uint64 {
	return rs.config.ConstBufferMaxSize
}

func (rs *RenderSystem) RenderBufferCreate(renderbufferType metadata.RenderBufferType, totalSize uint64) (*metadata.RenderBuffer, error) {
	if rs.FailBufferCreate {
		return nil, fmt.Errorf("%w: software device refused %d bytes", core.ErrBufferCreation, totalSize)
	}
	rs.stats.BuffersCreated++
	rs.stats.LiveBuffers++
	return &metadata.RenderBuffer{
		RenderBufferType: renderbufferType,
		TotalSize:        totalSize,
		InternalData:     &buffer{data: make([]byte, totalSize)},
	}, nil
}

func (rs *RenderSystem) RenderBufferDestroy(b *metadata.RenderBuffer) {
	internal, ok := b.InternalData.(*buffer)
	if !ok || internal.destroyed {
		panic("software: destroying a buffer that is not alive")
	}
	internal.destroyed = true
	internal.data = nil
	rs.stats.BuffersDestroyed++
	rs.stats.LiveBuffers--
}

// BufferData exposes the contents of a buffer created by this render system.
func BufferData(b *metadata.RenderBuffer) []byte {
	internal, ok := b.InternalData.(*buffer)
	if !ok {
		return nil
	}
	return internal.data
}

// IsDestroyed reports whether b was released through RenderBufferDestroy.
func IsDestroyed(b *metadata.RenderBuffer) bool {
	internal, ok := b.InternalData.(*buffer)
	return ok && internal.destroyed
}

func (rs *RenderSystem) GetStagingBuffer(minSize uint64, forUpload bool) (renderer.StagingBuffer, error) {
	if rs.FailStaging {
		return nil, fmt.Errorf("%w: software device refused %d bytes", core.ErrStagingAcquire, minSize)
	}
	rs.stats.StagingAcquired++

	// Reuse the oldest released buffer when it is large enough.
	if rs.staging.Length() > 0 {
		sb := rs.staging.Peek().(*StagingBuffer)
		if uint64(len(sb.data)) >= minSize && sb.forUpload == forUpload {
			rs.staging.Remove()
			sb.refCount = 1
			return sb, nil
		}
	}

	rs.stats.StagingCreated++
	return &StagingBuffer{
		owner:     rs,
		data:      make([]byte, minSize),
		forUpload: forUpload,
		refCount:  1,
	}, nil
}

func (rs *RenderSystem) recycle(sb *StagingBuffer) {
	if rs.staging.Length() >= rs.config.MaxCachedStagingBuffers {
		rs.staging.Remove()
	}
	rs.staging.Add(sb)
}

type StagingBuffer struct {
	owner     *RenderSystem
	data      []byte
	forUpload bool
	refCount  int
	mapped    uint64
}

func (sb *StagingBuffer) Map(size uint64) ([]byte, error) {
	if sb.refCount == 0 {
		return nil, fmt.Errorf("%w: staging buffer has no references", core.ErrStagingMap)
	}
	if size > uint64(len(sb.data)) {
		return nil, fmt.Errorf("%w: requested %d bytes from a %d byte staging buffer", core.ErrStagingMap, size, len(sb.data))
	}
	sb.mapped = size
	return sb.data[:size], nil
}

func (sb *StagingBuffer) Unmap(destinations []metadata.StagingDestination) error {
	rs := sb.owner
	for _, dst := range destinations {
		if dst.SrcOffset+dst.Length > sb.mapped {
			return fmt.Errorf("staging copy [%d, %d) outside mapped range %d", dst.SrcOffset, dst.SrcOffset+dst.Length, sb.mapped)
		}
		target := BufferData(dst.Destination)
		if dst.DstOffset+dst.Length > uint64(len(target)) {
			return fmt.Errorf("staging copy [%d, %d) outside destination of %d bytes", dst.DstOffset, dst.DstOffset+dst.Length, len(target))
		}
		copy(target[dst.DstOffset:dst.DstOffset+dst.Length], sb.data[dst.SrcOffset:dst.SrcOffset+dst.Length])
		rs.stats.CopiesIssued++
		rs.stats.BytesCopied += dst.Length
	}
	rs.stats.Unmaps++
	rs.stats.LastDestinations = append([]metadata.StagingDestination(nil), destinations...)
	sb.mapped = 0
	return nil
}

func (sb *StagingBuffer) RemoveReferenceCount() {
	if sb.refCount == 0 {
		panic("software: staging buffer reference count underflow")
	}
	sb.refCount--
	if sb.refCount == 0 {
		sb.owner.recycle(sb)
	}
}
