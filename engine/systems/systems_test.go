package systems

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer"
	"github.com/spaghettifunk/quadcore/engine/renderer/headless"
	"github.com/spaghettifunk/quadcore/engine/renderer/metadata"
)

const testResourceDir = "res"

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

type testSurface struct{ w, h uint32 }

func (s testSurface) ClientSize() (uint32, uint32) { return s.w, s.h }

type fakeAssets struct {
	mu      sync.Mutex
	images  map[string]*metadata.ImageData
	shaders map[string][]byte
	decodes int
}

func solidImage(w, h uint32, value byte) *metadata.ImageData {
	pixels := make([]byte, w*h*4)
	for i := range pixels {
		pixels[i] = value
	}
	return &metadata.ImageData{ChannelCount: 4, Width: w, Height: h, Pixels: pixels}
}

func newFakeAssets(textures ...string) *fakeAssets {
	fa := &fakeAssets{
		images: make(map[string]*metadata.ImageData),
		shaders: map[string][]byte{
			DefaultVertexShaderPath: {0x03, 0x02, 0x23, 0x07},
			DefaultPixelShaderPath:  {0x03, 0x02, 0x23, 0x07},
		},
	}
	for i, name := range textures {
		fa.setImage(name, solidImage(2, 2, byte(i+1)))
	}
	return fa
}

func (fa *fakeAssets) setImage(name string, img *metadata.ImageData) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	fa.images[filepath.Join(testResourceDir, name)] = img
}

func (fa *fakeAssets) Decode(path string) (*metadata.ImageData, error) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	fa.decodes++
	img, ok := fa.images[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return img, nil
}

func (fa *fakeAssets) LoadBytecode(path string) ([]byte, error) {
	data, ok := fa.shaders[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func testConfig() *SystemManagerConfig {
	return &SystemManagerConfig{
		VSync:          true,
		ClearColour:    [4]float32{0.0, 0.2, 0.4, 1.0},
		ResourceDir:    testResourceDir,
		Textures:       []string{"a.png", "b.png"},
		ActiveTexture:  "a.png",
		RotationPeriod: 6.0,
		Rotating:       true,
	}
}

func newTestManager(t *testing.T, config *SystemManagerConfig, drv *headless.Driver, assets *fakeAssets) *SystemManager {
	t.Helper()
	sm, err := NewSystemManager(config, drv, assets)
	if err != nil {
		t.Fatalf("failed to create system manager: %v", err)
	}
	t.Cleanup(func() { sm.Shutdown() })
	return sm
}

func initializedManager(t *testing.T) (*SystemManager, *headless.Driver, *fakeAssets) {
	t.Helper()
	drv := headless.NewDriver()
	assets := newFakeAssets("a.png", "b.png")
	sm := newTestManager(t, testConfig(), drv, assets)
	if err := sm.Initialize(testSurface{800, 600}); err != nil {
		t.Fatalf("failed to initialize: %v", err)
	}
	return sm, drv, assets
}

func TestInitializeCreatesObjectsInOrder(t *testing.T) {
	sm, drv, _ := initializedManager(t)

	want := []string{
		"device",
		"immediate context",
		"swapchain",
		"back buffer render target view",
		"rasterizer state",
		"depth stencil buffer",
		"depth stencil view",
		"depth stencil state",
		"vertex shader",
		"input layout",
		"pixel shader",
		"constant buffer (192 bytes)",
		"constant buffer (48 bytes)",
		"constant buffer (64 bytes)",
		"vertex buffer",
		"index buffer",
		"texture a.png",
		"shader resource view a.png",
		"texture b.png",
		"shader resource view b.png",
		"sampler state",
	}
	got := sm.Arena().Labels()
	if len(got) != len(want) {
		t.Fatalf("expected %d objects, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("object %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	rec := drv.Recorder()
	// the back buffer reference is dropped right after the view exists
	if rec.Live() != len(want) {
		t.Errorf("expected %d live driver objects, got %d", len(want), rec.Live())
	}

	if err := sm.Shutdown(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Live() != 0 {
		t.Errorf("expected every object released, %d live", rec.Live())
	}
	if rec.DoubleReleases() != 0 {
		t.Errorf("expected no double release, got %d", rec.DoubleReleases())
	}
	releases := rec.Releases()
	if releases[len(releases)-1] != headless.KindDevice {
		t.Errorf("device must be released last, got %v", releases)
	}
	if err := sm.Shutdown(); err != nil {
		t.Errorf("second shutdown should be a no-op, got %v", err)
	}
}

func TestInitializeStopsAtFirstFailure(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		sentinel error
		buffers  int
	}{
		{"device", "CreateDeviceAndSwapChain", core.ErrDeviceSetup, 0},
		{"depth view", "CreateDepthStencilView", core.ErrDeviceSetup, 0},
		{"pixel shader", "CreatePixelShader", core.ErrPipelineSetup, 0},
		{"buffers", "CreateBuffer", core.ErrBufferSetup, 0},
		{"texture", "CreateTexture2D", core.ErrTextureSetup, 5},
		{"sampler", "CreateSamplerState", core.ErrPipelineSetup, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := headless.NewDriver()
			if tt.op == "CreateTexture2D" {
				// the depth buffer is the first texture
				drv.FailAfter(tt.op, 1, core.ErrUnknown)
			} else {
				drv.FailOn(tt.op, core.ErrUnknown)
			}
			sm := newTestManager(t, testConfig(), drv, newFakeAssets("a.png", "b.png"))

			err := sm.Initialize(testSurface{800, 600})
			if !errors.Is(err, tt.sentinel) || !errors.Is(err, core.ErrUnknown) {
				t.Fatalf("expected %v wrapping the driver error, got %v", tt.sentinel, err)
			}
			rec := drv.Recorder()
			if rec.Created(headless.KindBuffer) != tt.buffers {
				t.Errorf("expected %d buffers before the failure, got %d", tt.buffers, rec.Created(headless.KindBuffer))
			}
			if sm.Frame != nil {
				t.Errorf("frame controller must not exist after a failed setup")
			}

			sm.Shutdown()
			if rec.Live() != 0 {
				t.Errorf("expected every object released, %d live", rec.Live())
			}
			if rec.DoubleReleases() != 0 {
				t.Errorf("expected no double release, got %d", rec.DoubleReleases())
			}
		})
	}
}

func TestInitializeRejectsMissingShader(t *testing.T) {
	drv := headless.NewDriver()
	assets := newFakeAssets("a.png")
	assets.shaders[DefaultPixelShaderPath] = nil
	config := testConfig()
	config.Textures = []string{"a.png"}
	sm := newTestManager(t, config, drv, assets)

	err := sm.Initialize(testSurface{800, 600})
	if !errors.Is(err, core.ErrPipelineSetup) || !errors.Is(err, core.ErrInvalidBytecode) {
		t.Fatalf("expected invalid bytecode pipeline error, got %v", err)
	}
}

func TestInitializeRejectsUnknownActiveTexture(t *testing.T) {
	config := testConfig()
	config.ActiveTexture = "c.png"
	sm := newTestManager(t, config, headless.NewDriver(), newFakeAssets("a.png", "b.png"))
	if err := sm.Initialize(testSurface{800, 600}); !errors.Is(err, core.ErrTextureNotCached) {
		t.Fatalf("expected ErrTextureNotCached, got %v", err)
	}
}

func TestDeviceState(t *testing.T) {
	sm, _, _ := initializedManager(t)
	gd := sm.GraphicsDevice

	rs := gd.RasterizerState.(*headless.RasterizerState).Desc
	if rs.CullMode != renderer.CullBack || rs.FrontCounterClockwise || rs.DepthClipEnable || !rs.MultisampleEnable || !rs.AntialiasedLineEnable {
		t.Errorf("unexpected rasterizer state %+v", rs)
	}
	ds := gd.DepthStencilState.(*headless.DepthStencilState).Desc
	if ds.DepthFunc != renderer.ComparisonLess || ds.DepthWriteMask != renderer.DepthWriteMaskAll || !ds.StencilEnable {
		t.Errorf("unexpected depth state %+v", ds)
	}
	if ds.FrontFace.StencilDepthFailOp != renderer.StencilOpIncr || ds.BackFace.StencilDepthFailOp != renderer.StencilOpDecr {
		t.Errorf("unexpected stencil ops %+v", ds)
	}
	if gd.Viewport.Width != 800 || gd.Viewport.Height != 600 || gd.Viewport.MaxDepth != 1 {
		t.Errorf("unexpected viewport %+v", gd.Viewport)
	}
	dsv := gd.DepthStencilView.(*headless.View).Texture.Desc()
	if dsv.Width != 800 || dsv.Height != 600 || dsv.Format != renderer.FormatD24UnormS8Uint {
		t.Errorf("unexpected depth buffer %+v", dsv)
	}

	layout := sm.Pipeline.InputLayout.(*headless.InputLayout)
	if layout.Stride != metadata.VertexSize || layout.Offsets[1] != 12 || layout.Offsets[2] != 20 {
		t.Errorf("unexpected input layout stride %d offsets %v", layout.Stride, layout.Offsets)
	}
	sampler := sm.Pipeline.Sampler.(*headless.SamplerState).Desc
	if sampler.Filter != renderer.FilterAnisotropic || sampler.MaxAnisotropy != 16 || sampler.AddressU != renderer.AddressWrap || sampler.MaxLOD != renderer.Float32Max {
		t.Errorf("unexpected sampler %+v", sampler)
	}
	if sm.Pipeline.Topology != renderer.TopologyTriangleList {
		t.Errorf("expected triangle list topology")
	}
}

func TestNewSceneDataAspect(t *testing.T) {
	wvp, light, material := NewSceneData(800, 600)
	// 800 / 600 is 1 with integer division
	if wvp.Projection.Data[0] != wvp.Projection.Data[5] {
		t.Errorf("expected square aspect, got %v", wvp.Projection.Data)
	}
	wide, _, _ := NewSceneData(1600, 600)
	if wide.Projection.Data[0] != wide.Projection.Data[5]/2 {
		t.Errorf("expected aspect 2, got %v", wide.Projection.Data)
	}
	tall, _, _ := NewSceneData(600, 800)
	if tall.Projection.Data[0] != tall.Projection.Data[5] {
		t.Errorf("expected aspect clamped to 1, got %v", tall.Projection.Data)
	}
	// the view is stored transposed: the eye offset sits in the last column
	if wvp.View.Data[11] != 1 {
		t.Errorf("unexpected view %v", wvp.View.Data)
	}
	if light.Position.Z != -2 || material.Shininess != 32 {
		t.Errorf("unexpected light %+v or material %+v", light, material)
	}
}
