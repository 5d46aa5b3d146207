package core

import (
	"errors"
)

var (
	ErrNoRenderSystem   = errors.New("no render system bound")
	ErrBufferCreation   = errors.New("failed to create render buffer")
	ErrStagingAcquire   = errors.New("failed to acquire staging buffer")
	ErrStagingMap       = errors.New("failed to map staging buffer")
	ErrInvalidSlotSize  = errors.New("invalid const buffer slot size")
	ErrMaterialNotFound = errors.New("material not found")
	ErrInvalidConfig    = errors.New("invalid configuration")
)
