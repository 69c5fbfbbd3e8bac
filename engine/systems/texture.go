package systems

import (
	"fmt"
	"path/filepath"

	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer"
	"github.com/spaghettifunk/quadcore/engine/renderer/metadata"
)

/** @brief The maximum number of textures that can be cached at once. */
const MaxTextures uint32 = 10

// ImageDecoder turns an image file into 4 channel pixels.
type ImageDecoder interface {
	Decode(path string) (*metadata.ImageData, error)
}

type TextureCacheConfig struct {
	/** @brief Prefix for every texture path. */
	ResourceDir string
}

type TextureCacheEntry struct {
	Path    string
	Slot    uint32
	Width   uint32
	Height  uint32
	Texture renderer.Texture2D
	View    renderer.ShaderResourceView
}

/**
 * @brief A bounded, path keyed cache of shader-readable textures with a single
 * active entry. Slots are handed out sequentially and never reused.
 */
type TextureCache struct {
	config  *TextureCacheConfig
	device  *GraphicsDevice
	decoder ImageDecoder

	entries  map[string]*TextureCacheEntry
	order    []string
	nextSlot uint32
	active   string

	onStateDirty func()
}

func NewTextureCache(config *TextureCacheConfig, gd *GraphicsDevice, decoder ImageDecoder) (*TextureCache, error) {
	if decoder == nil {
		err := fmt.Errorf("func NewTextureCache - an image decoder is required")
		core.LogError(err.Error())
		return nil, err
	}
	return &TextureCache{
		config:  config,
		device:  gd,
		decoder: decoder,
		entries: make(map[string]*TextureCacheEntry),
	}, nil
}

// SetStateDirtyHook registers the callback fired whenever the active texture changes.
func (tc *TextureCache) SetStateDirtyHook(fn func()) {
	tc.onStateDirty = fn
}

func (tc *TextureCache) fireStateDirty() {
	if tc.onStateDirty != nil {
		tc.onStateDirty()
	}
}

/**
 * @brief Loads path into the next free slot. Cached paths are a no-op. On
 * any failure the cache is left exactly as it was.
 */
func (tc *TextureCache) AddTexture(path string) error {
	if _, ok := tc.entries[path]; ok {
		return nil
	}
	if uint32(len(tc.entries)) >= MaxTextures {
		return fmt.Errorf("%s: %w", path, core.ErrTextureCacheFull)
	}

	// reserve the slot
	slot := tc.nextSlot
	tc.nextSlot++
	entry := &TextureCacheEntry{Path: path, Slot: slot}
	tc.entries[path] = entry
	tc.order = append(tc.order, path)

	rollback := func(err error) error {
		delete(tc.entries, path)
		tc.order = tc.order[:len(tc.order)-1]
		tc.nextSlot = slot
		core.LogError("failed to add texture %s: %s", path, err)
		return err
	}

	img, err := tc.decoder.Decode(filepath.Join(tc.config.ResourceDir, path))
	if err != nil {
		return rollback(fmt.Errorf("%w: %s: %w", core.ErrTextureLoad, path, err))
	}
	texture, view, err := tc.createTexture(path, img)
	if err != nil {
		return rollback(err)
	}

	entry.Width = img.Width
	entry.Height = img.Height
	entry.Texture = texture
	entry.View = view
	core.LogDebug("texture %s cached in slot %d (%dx%d)", path, slot, img.Width, img.Height)
	return nil
}

// createTexture uploads img as an immutable RGBA texture with a full view.
func (tc *TextureCache) createTexture(path string, img *metadata.ImageData) (renderer.Texture2D, renderer.ShaderResourceView, error) {
	if img.ChannelCount != 4 {
		return nil, nil, fmt.Errorf("%w: %s has %d channels, want 4", core.ErrTextureLoad, path, img.ChannelCount)
	}
	arena := tc.device.Arena()

	texture, err := tc.device.Device.CreateTexture2D(&renderer.Texture2DDesc{
		Width:       img.Width,
		Height:      img.Height,
		MipLevels:   1,
		ArraySize:   1,
		Format:      renderer.FormatR8G8B8A8Unorm,
		SampleCount: 1,
		Usage:       renderer.UsageImmutable,
		BindFlags:   renderer.BindShaderResource,
	}, &renderer.SubresourceData{
		SysMem:      img.Pixels,
		SysMemPitch: img.RowPitch(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: texture %s: %w", core.ErrTextureSetup, path, err)
	}
	arena.Track("texture "+path, texture)

	view, err := tc.device.Device.CreateShaderResourceView(texture)
	if err != nil {
		if rerr := arena.Release(texture); rerr != nil {
			core.LogWarn(rerr.Error())
		}
		return nil, nil, fmt.Errorf("%w: shader resource view %s: %w", core.ErrTextureSetup, path, err)
	}
	arena.Track("shader resource view "+path, view)
	return texture, view, nil
}

// ChangeTexture caches path if needed and makes it the active texture.
func (tc *TextureCache) ChangeTexture(path string) error {
	if err := tc.AddTexture(path); err != nil {
		return err
	}
	return tc.SetActive(path)
}

// SetActive selects a cached texture for drawing.
func (tc *TextureCache) SetActive(path string) error {
	if _, ok := tc.entries[path]; !ok {
		return fmt.Errorf("%s: %w", path, core.ErrTextureNotCached)
	}
	tc.active = path
	tc.fireStateDirty()
	return nil
}

func (tc *TextureCache) Active() string {
	return tc.active
}

// GetActive returns the view of the active texture.
func (tc *TextureCache) GetActive() (renderer.ShaderResourceView, error) {
	entry, ok := tc.entries[tc.active]
	if !ok || entry.View == nil {
		return nil, fmt.Errorf("active texture %q: %w", tc.active, core.ErrNoActiveTexture)
	}
	return entry.View, nil
}

func (tc *TextureCache) Len() int {
	return len(tc.entries)
}

func (tc *TextureCache) Entry(path string) (*TextureCacheEntry, bool) {
	entry, ok := tc.entries[path]
	return entry, ok
}

// Paths lists cached paths in insertion order.
func (tc *TextureCache) Paths() []string {
	return append([]string(nil), tc.order...)
}

// NextInactive returns the first cached path, in insertion order, that is not active.
func (tc *TextureCache) NextInactive() (string, bool) {
	for _, path := range tc.order {
		if path != tc.active {
			return path, true
		}
	}
	return "", false
}

/**
 * @brief Replaces the pixels of a cached texture, keeping its slot. The old
 * GPU objects are released only once the new ones exist.
 */
func (tc *TextureCache) Reload(path string, img *metadata.ImageData) error {
	entry, ok := tc.entries[path]
	if !ok {
		return fmt.Errorf("%s: %w", path, core.ErrTextureNotCached)
	}
	texture, view, err := tc.createTexture(path, img)
	if err != nil {
		return err
	}

	arena := tc.device.Arena()
	if err := arena.Release(entry.View); err != nil {
		core.LogWarn(err.Error())
	}
	if err := arena.Release(entry.Texture); err != nil {
		core.LogWarn(err.Error())
	}
	entry.Texture = texture
	entry.View = view
	entry.Width = img.Width
	entry.Height = img.Height

	if path == tc.active {
		tc.fireStateDirty()
	}
	core.LogInfo("texture %s reloaded in slot %d", path, entry.Slot)
	return nil
}

// Release frees every cached texture, newest slot first, and empties the cache.
func (tc *TextureCache) Release() {
	arena := tc.device.Arena()
	for i := len(tc.order) - 1; i >= 0; i-- {
		entry := tc.entries[tc.order[i]]
		if err := arena.Release(entry.View); err != nil {
			core.LogWarn(err.Error())
		}
		if err := arena.Release(entry.Texture); err != nil {
			core.LogWarn(err.Error())
		}
	}
	tc.entries = make(map[string]*TextureCacheEntry)
	tc.order = nil
	tc.active = ""
}
