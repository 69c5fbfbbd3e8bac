package systems

import (
	"errors"
	"fmt"
	"testing"

	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer"
	"github.com/spaghettifunk/quadcore/engine/renderer/headless"
)

func newTestDevice(t *testing.T) (*GraphicsDevice, *headless.Driver) {
	t.Helper()
	drv := headless.NewDriver()
	gd, err := NewGraphicsDevice(&GraphicsDeviceConfig{}, drv, renderer.NewArena())
	if err != nil {
		t.Fatalf("failed to create graphics device: %v", err)
	}
	if err := gd.Initialize(testSurface{64, 64}); err != nil {
		t.Fatalf("failed to initialize graphics device: %v", err)
	}
	t.Cleanup(gd.Release)
	return gd, drv
}

func newTestCache(t *testing.T, textures ...string) (*TextureCache, *headless.Driver, *fakeAssets) {
	t.Helper()
	gd, drv := newTestDevice(t)
	assets := newFakeAssets(textures...)
	tc, err := NewTextureCache(&TextureCacheConfig{ResourceDir: testResourceDir}, gd, assets)
	if err != nil {
		t.Fatalf("failed to create texture cache: %v", err)
	}
	return tc, drv, assets
}

func TestNewTextureCacheRequiresDecoder(t *testing.T) {
	gd, _ := newTestDevice(t)
	if _, err := NewTextureCache(&TextureCacheConfig{}, gd, nil); err == nil {
		t.Fatal("expected an error without a decoder")
	}
}

func TestAddTextureIsIdempotent(t *testing.T) {
	tc, _, assets := newTestCache(t, "a.png")

	for i := 0; i < 3; i++ {
		if err := tc.AddTexture("a.png"); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	if tc.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", tc.Len())
	}
	if assets.decodes != 1 {
		t.Errorf("expected a single decode, got %d", assets.decodes)
	}
	entry, ok := tc.Entry("a.png")
	if !ok || entry.Slot != 0 || entry.Width != 2 || entry.Height != 2 {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestAddTextureRejectsWhenFull(t *testing.T) {
	names := make([]string, MaxTextures+1)
	for i := range names {
		names[i] = fmt.Sprintf("tex%02d.png", i)
	}
	tc, _, assets := newTestCache(t, names...)

	for i, name := range names[:MaxTextures] {
		if err := tc.AddTexture(name); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
		entry, _ := tc.Entry(name)
		if entry.Slot != uint32(i) {
			t.Errorf("expected slot %d for %s, got %d", i, name, entry.Slot)
		}
	}

	err := tc.AddTexture(names[MaxTextures])
	if !errors.Is(err, core.ErrTextureCacheFull) {
		t.Fatalf("expected ErrTextureCacheFull, got %v", err)
	}
	if tc.Len() != int(MaxTextures) {
		t.Errorf("expected %d entries, got %d", MaxTextures, tc.Len())
	}
	if assets.decodes != int(MaxTextures) {
		t.Errorf("a full cache must not decode, got %d decodes", assets.decodes)
	}
	// cached paths are still accepted
	if err := tc.AddTexture(names[0]); err != nil {
		t.Errorf("re-adding a cached path failed: %v", err)
	}
}

func TestAddTextureRollsBackOnDecodeFailure(t *testing.T) {
	tc, _, _ := newTestCache(t, "a.png")

	err := tc.AddTexture("missing.png")
	if !errors.Is(err, core.ErrTextureLoad) {
		t.Fatalf("expected ErrTextureLoad, got %v", err)
	}
	if tc.Len() != 0 || len(tc.Paths()) != 0 {
		t.Errorf("expected an empty cache, got %v", tc.Paths())
	}
	if _, ok := tc.Entry("missing.png"); ok {
		t.Error("failed path must not be cached")
	}

	if err := tc.AddTexture("a.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry, _ := tc.Entry("a.png"); entry.Slot != 0 {
		t.Errorf("expected the reserved slot to be returned, got %d", entry.Slot)
	}
}

func TestAddTextureRollsBackOnDeviceFailure(t *testing.T) {
	tc, drv, _ := newTestCache(t, "a.png")
	arena := tc.device.Arena()
	live := arena.Live()
	driverLive := drv.Recorder().Live()

	drv.FailOn("CreateShaderResourceView", core.ErrUnknown)
	err := tc.AddTexture("a.png")
	if !errors.Is(err, core.ErrTextureSetup) || !errors.Is(err, core.ErrUnknown) {
		t.Fatalf("expected texture setup error, got %v", err)
	}
	if tc.Len() != 0 {
		t.Errorf("expected an empty cache, got %d entries", tc.Len())
	}
	if arena.Live() != live || drv.Recorder().Live() != driverLive {
		t.Errorf("the texture created before the failure must be released")
	}

	drv.ClearFaults()
	if err := tc.AddTexture("a.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry, _ := tc.Entry("a.png"); entry.Slot != 0 {
		t.Errorf("expected slot 0, got %d", entry.Slot)
	}
}

func TestAddTextureRejectsNonRGBA(t *testing.T) {
	tc, _, assets := newTestCache(t)
	img := solidImage(2, 2, 0)
	img.ChannelCount = 3
	assets.setImage("rgb.png", img)

	if err := tc.AddTexture("rgb.png"); !errors.Is(err, core.ErrTextureLoad) {
		t.Fatalf("expected ErrTextureLoad, got %v", err)
	}
	if tc.Len() != 0 {
		t.Errorf("expected an empty cache")
	}
}

func TestTextureUploadCopiesPixels(t *testing.T) {
	tc, _, _ := newTestCache(t, "a.png")
	if err := tc.AddTexture("a.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry, _ := tc.Entry("a.png")
	tex := entry.Texture.(*headless.Texture2D)
	desc := tex.Desc()
	if desc.Format != renderer.FormatR8G8B8A8Unorm || desc.Usage != renderer.UsageImmutable || desc.BindFlags != renderer.BindShaderResource {
		t.Errorf("unexpected texture description %+v", desc)
	}
	for i, p := range tex.Pixels() {
		if p != 1 {
			t.Fatalf("pixel byte %d: expected 1, got %d", i, p)
		}
	}
	if entry.View.(*headless.View).Texture != tex {
		t.Errorf("view must cover the cached texture")
	}
}

func TestActiveTexture(t *testing.T) {
	tc, _, _ := newTestCache(t, "a.png", "b.png")

	if _, err := tc.GetActive(); !errors.Is(err, core.ErrNoActiveTexture) {
		t.Fatalf("expected ErrNoActiveTexture, got %v", err)
	}
	if err := tc.SetActive("a.png"); !errors.Is(err, core.ErrTextureNotCached) {
		t.Fatalf("expected ErrTextureNotCached, got %v", err)
	}

	fired := 0
	tc.SetStateDirtyHook(func() { fired++ })

	if err := tc.ChangeTexture("a.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tc.Active() != "a.png" || fired != 1 {
		t.Errorf("expected a.png active and one hook call, got %q and %d", tc.Active(), fired)
	}
	view, err := tc.GetActive()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry, _ := tc.Entry("a.png")
	if view != entry.View {
		t.Errorf("GetActive must return the cached view")
	}

	if next, ok := tc.NextInactive(); ok {
		t.Errorf("expected no inactive texture, got %s", next)
	}
	if err := tc.AddTexture("b.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next, ok := tc.NextInactive(); !ok || next != "b.png" {
		t.Errorf("expected b.png, got %q", next)
	}
	if err := tc.SetActive("b.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next, _ := tc.NextInactive(); next != "a.png" {
		t.Errorf("expected a.png, got %q", next)
	}
	paths := tc.Paths()
	if len(paths) != 2 || paths[0] != "a.png" || paths[1] != "b.png" {
		t.Errorf("unexpected insertion order %v", paths)
	}
}

func TestReloadKeepsSlot(t *testing.T) {
	tc, _, _ := newTestCache(t, "a.png", "b.png")
	for _, p := range []string{"a.png", "b.png"} {
		if err := tc.AddTexture(p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := tc.SetActive("b.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fired := 0
	tc.SetStateDirtyHook(func() { fired++ })

	old, _ := tc.Entry("b.png")
	oldView := old.View.(*headless.View)
	live := tc.device.Arena().Live()

	if err := tc.Reload("b.png", solidImage(4, 4, 9)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry, _ := tc.Entry("b.png")
	if entry.Slot != 1 || entry.Width != 4 || entry.Height != 4 {
		t.Errorf("unexpected entry after reload %+v", entry)
	}
	if !oldView.Released() || entry.View == renderer.ShaderResourceView(oldView) {
		t.Errorf("old view must be released and replaced")
	}
	if tc.device.Arena().Live() != live {
		t.Errorf("reload must not leak, %d live before, %d after", live, tc.device.Arena().Live())
	}
	if fired != 1 {
		t.Errorf("reloading the active texture must mark state dirty, fired %d", fired)
	}

	if err := tc.Reload("a.png", solidImage(2, 2, 3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fired != 1 {
		t.Errorf("reloading an inactive texture must not mark state dirty")
	}

	if err := tc.Reload("c.png", solidImage(2, 2, 3)); !errors.Is(err, core.ErrTextureNotCached) {
		t.Errorf("expected ErrTextureNotCached, got %v", err)
	}
}

func TestTextureCacheRelease(t *testing.T) {
	tc, _, _ := newTestCache(t, "a.png", "b.png")
	live := tc.device.Arena().Live()
	if err := tc.ChangeTexture("a.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tc.AddTexture("b.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tc.Release()
	if tc.Len() != 0 || tc.Active() != "" {
		t.Errorf("expected an empty cache")
	}
	if tc.device.Arena().Live() != live {
		t.Errorf("expected %d live objects, got %d", live, tc.device.Arena().Live())
	}
	if _, err := tc.GetActive(); !errors.Is(err, core.ErrNoActiveTexture) {
		t.Errorf("expected ErrNoActiveTexture, got %v", err)
	}
}
