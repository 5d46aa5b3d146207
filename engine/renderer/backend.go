package renderer

import "github.com/spaghettifunk/anima-constbuffers/engine/renderer/metadata"

// StagingBuffer is host-visible scratch memory used to marshal data before
// the device-side copy. It is reference counted by the transfer layer.
type StagingBuffer interface {
	// Map returns a writable region of at least size bytes.
	Map(size uint64) ([]byte, error)
	// Unmap flushes the mapped region, issuing one copy per destination.
	Unmap(destinations []metadata.StagingDestination) error
	RemoveReferenceCount()
}

// TransferManager creates device buffers and hands out staging buffers.
type TransferManager interface {
	RenderBufferCreate(renderbufferType metadata.RenderBufferType, totalSize uint64) (*metadata.RenderBuffer, error)
	RenderBufferDestroy(buffer *metadata.RenderBuffer)
	// GetStagingBuffer returns a staging buffer of at least minSize bytes with
	// one reference held by the caller.
	GetStagingBuffer(minSize uint64, forUpload bool) (StagingBuffer, error)
	// ConstBufferMaxSize is the largest uniform buffer range the device can bind.
	ConstBufferMaxSize() uint64
}

// RenderSystem is the device context const buffer pools bind to.
type RenderSystem interface {
	Name() string
	TransferManager() TransferManager
}

// RenderSystemListener is notified when the device context is replaced.
// A nil RenderSystem means the previous context was lost.
type RenderSystemListener interface {
	ChangeRenderSystem(rs RenderSystem)
}
