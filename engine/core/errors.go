package core

import (
	"errors"
)

var (
	ErrDeviceSetup   = errors.New("graphics device setup failed")
	ErrPipelineSetup = errors.New("pipeline setup failed")
	ErrBufferSetup   = errors.New("buffer setup failed")
	ErrTextureSetup  = errors.New("texture setup failed")

	ErrTextureCacheFull = errors.New("texture cache is full")
	ErrTextureNotCached = errors.New("texture is not cached")
	ErrTextureLoad      = errors.New("failed to load texture")
	ErrNoActiveTexture  = errors.New("no active texture resolves in the cache")

	ErrAlreadyMapped    = errors.New("buffer is already mapped")
	ErrNotMapped        = errors.New("buffer is not mapped")
	ErrBufferTooSmall   = errors.New("source is larger than the buffer")
	ErrInvalidUsage     = errors.New("operation not allowed for resource usage")
	ErrResourceReleased = errors.New("resource already released")

	ErrInvalidBytecode = errors.New("invalid shader bytecode")
	ErrNotInitialized  = errors.New("not initialized")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrUnknown         = errors.New("unknown")
)
