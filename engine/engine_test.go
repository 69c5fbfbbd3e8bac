package engine

import (
	"errors"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/quadcore/engine/assets/loaders"
	"github.com/spaghettifunk/quadcore/engine/config"
	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/platform"
	"github.com/spaghettifunk/quadcore/engine/renderer/headless"
	"github.com/spaghettifunk/quadcore/engine/systems"
)

var spirvHeader = []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

func testSettings(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	for i, name := range []string{"a.png", "b.png"} {
		img := loaders.GenerateTexture(4, 4, []color.RGBA{{uint8(i * 100), 0, 0, 255}, {0, 0, 255, 255}})
		if err := loaders.WritePNG(filepath.Join(dir, name), img); err != nil {
			t.Fatal(err)
		}
	}
	vs := filepath.Join(dir, "VertexShader.spv")
	ps := filepath.Join(dir, "PixelShader.spv")
	for _, p := range []string{vs, ps} {
		if err := os.WriteFile(p, spirvHeader, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Default()
	cfg.Backend = config.BackendHeadless
	cfg.LogLevel = "error"
	cfg.ResourceDir = dir
	cfg.WatchAssets = false
	cfg.Shaders = config.ShaderConfig{Vertex: vs, Pixel: ps}
	cfg.Textures = []string{"a.png", "b.png"}
	cfg.ActiveTexture = "a.png"
	cfg.Window.Width = 320
	cfg.Window.Height = 240
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func newTestEngine(t *testing.T, g *Game) (*Engine, *headless.Driver) {
	t.Helper()
	drv := headless.NewDriver()
	e, err := NewWithDriver(g, platform.NewHeadless(), drv)
	if err != nil {
		t.Fatalf("failed to create engine: %s", err)
	}
	return e, drv
}

func TestRunHeadlessFrameLimit(t *testing.T) {
	updates, initialized, shutdowns := 0, 0, 0
	g := &Game{
		ApplicationConfig: NewApplicationConfig(testSettings(t), 5),
		FnInitialize: func(sm *systems.SystemManager) error {
			initialized++
			return nil
		},
		FnUpdate: func(sm *systems.SystemManager, deltaTime float64) error {
			updates++
			if deltaTime < 0 {
				t.Errorf("negative delta %f", deltaTime)
			}
			return nil
		},
		FnShutdown: func() error {
			shutdowns++
			return nil
		},
	}
	e, drv := newTestEngine(t, g)

	if err := e.Initialize(); err != nil {
		t.Fatalf("initialize failed: %s", err)
	}
	if e.Stage() != EngineStageInitialized {
		t.Fatalf("expected initialized stage, got %s", e.Stage())
	}
	if err := e.Run(); err != nil {
		t.Fatalf("run failed: %s", err)
	}

	if e.Frames() != 5 || updates != 5 || initialized != 1 || shutdowns != 1 {
		t.Errorf("frames=%d updates=%d initialized=%d shutdowns=%d", e.Frames(), updates, initialized, shutdowns)
	}
	rec := drv.Recorder()
	if presents, interval := rec.Presents(); presents != 5 || interval != 1 {
		t.Errorf("expected 5 vsynced presents, got %d with interval %d", presents, interval)
	}
	if rec.Count("DrawIndexed") != 5 {
		t.Errorf("expected 5 draws, got %d", rec.Count("DrawIndexed"))
	}
	if rec.Live() != 0 || rec.DoubleReleases() != 0 {
		t.Errorf("expected every object released once, live=%d double=%d", rec.Live(), rec.DoubleReleases())
	}
	if e.Stage() != EngineStageShutdown {
		t.Errorf("expected shut down stage, got %s", e.Stage())
	}
	if err := e.Shutdown(); err != nil {
		t.Errorf("second shutdown should be a no-op, got %s", err)
	}
}

func TestRequestCloseStopsRun(t *testing.T) {
	var e *Engine
	g := &Game{ApplicationConfig: NewApplicationConfig(testSettings(t), 0)}
	g.FnUpdate = func(sm *systems.SystemManager, deltaTime float64) error {
		if e.Frames() == 2 {
			e.RequestClose()
		}
		return nil
	}
	e, drv := newTestEngine(t, g)

	if err := e.Initialize(); err != nil {
		t.Fatalf("initialize failed: %s", err)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("run failed: %s", err)
	}
	if e.Frames() != 3 {
		t.Errorf("expected the requesting frame to finish, got %d frames", e.Frames())
	}
	if presents, _ := drv.Recorder().Presents(); presents != 3 {
		t.Errorf("expected 3 presents, got %d", presents)
	}
}

func TestGameUpdateErrorStopsRun(t *testing.T) {
	errBoom := errors.New("boom")
	g := &Game{
		ApplicationConfig: NewApplicationConfig(testSettings(t), 10),
		FnUpdate: func(sm *systems.SystemManager, deltaTime float64) error {
			if sm.Frame.Stats().Frames == 1 {
				return errBoom
			}
			return nil
		},
	}
	e, drv := newTestEngine(t, g)

	if err := e.Initialize(); err != nil {
		t.Fatalf("initialize failed: %s", err)
	}
	if err := e.Run(); !errors.Is(err, errBoom) {
		t.Fatalf("expected update error, got %v", err)
	}
	if presents, _ := drv.Recorder().Presents(); presents != 1 {
		t.Errorf("expected 1 present before the failure, got %d", presents)
	}
	if drv.Recorder().Live() != 0 {
		t.Errorf("expected shutdown after failure, %d objects live", drv.Recorder().Live())
	}
}

func TestPresentFailureStopsRun(t *testing.T) {
	errLost := errors.New("device lost")
	e, drv := newTestEngine(t, &Game{ApplicationConfig: NewApplicationConfig(testSettings(t), 10)})

	if err := e.Initialize(); err != nil {
		t.Fatalf("initialize failed: %s", err)
	}
	drv.FailAfter("Present", 2, errLost)
	if err := e.Run(); !errors.Is(err, errLost) {
		t.Fatalf("expected present error, got %v", err)
	}
	if e.Frames() != 2 {
		t.Errorf("expected 2 completed frames, got %d", e.Frames())
	}
}

func TestInitializeFailureReleases(t *testing.T) {
	errBoom := errors.New("no pixel shaders today")
	e, drv := newTestEngine(t, &Game{ApplicationConfig: NewApplicationConfig(testSettings(t), 1)})
	drv.FailOn("CreatePixelShader", errBoom)

	err := e.Initialize()
	if !errors.Is(err, core.ErrPipelineSetup) || !errors.Is(err, errBoom) {
		t.Fatalf("expected wrapped pipeline error, got %v", err)
	}
	if drv.Recorder().Live() != 0 || drv.Recorder().DoubleReleases() != 0 {
		t.Errorf("expected partial setup released once, live=%d double=%d", drv.Recorder().Live(), drv.Recorder().DoubleReleases())
	}
	if e.Stage() != EngineStageShutdown {
		t.Errorf("expected shut down stage, got %s", e.Stage())
	}
	if err := e.Run(); !errors.Is(err, core.ErrNotInitialized) {
		t.Errorf("expected run after failed init to be refused, got %v", err)
	}
}

func TestMissingTextureFailsInitialize(t *testing.T) {
	settings := testSettings(t)
	if err := os.Remove(filepath.Join(settings.ResourceDir, "b.png")); err != nil {
		t.Fatal(err)
	}
	e, _ := newTestEngine(t, &Game{ApplicationConfig: NewApplicationConfig(settings, 1)})
	if err := e.Initialize(); !errors.Is(err, core.ErrTextureSetup) {
		t.Fatalf("expected texture setup error, got %v", err)
	}
}

func TestNewPicksHeadlessBackend(t *testing.T) {
	e, err := New(&Game{ApplicationConfig: NewApplicationConfig(testSettings(t), 2)})
	if err != nil {
		t.Fatalf("new failed: %s", err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("initialize failed: %s", err)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("run failed: %s", err)
	}
	if e.Frames() != 2 {
		t.Errorf("expected 2 frames, got %d", e.Frames())
	}
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	settings := testSettings(t)
	settings.Backend = "metal"
	if _, err := New(&Game{ApplicationConfig: NewApplicationConfig(settings, 1)}); !errors.Is(err, core.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestStageString(t *testing.T) {
	if EngineStageRunning.String() != "running" {
		t.Errorf("unexpected %q", EngineStageRunning.String())
	}
	if Stage(42).String() != "stage(42)" {
		t.Errorf("unexpected %q", Stage(42).String())
	}
}

// minimizingPlatform reports an empty client area for a number of pumps.
type minimizingPlatform struct {
	*platform.Headless
	minimizedPumps int
}

func (p *minimizingPlatform) PumpMessages() bool {
	if p.minimizedPumps > 0 {
		p.minimizedPumps--
	}
	return p.Headless.PumpMessages()
}

func (p *minimizingPlatform) ClientSize() (uint32, uint32) {
	if p.minimizedPumps > 0 {
		return 0, 0
	}
	return p.Headless.ClientSize()
}

func TestResumeDoesNotCountSuspendedTime(t *testing.T) {
	p := &minimizingPlatform{Headless: platform.NewHeadless()}
	var deltas []float64
	g := &Game{
		ApplicationConfig: NewApplicationConfig(testSettings(t), 3),
		FnUpdate: func(sm *systems.SystemManager, deltaTime float64) error {
			deltas = append(deltas, deltaTime)
			if len(deltas) == 1 {
				p.minimizedPumps = 10
			}
			return nil
		},
	}
	e, err := NewWithDriver(g, p, headless.NewDriver())
	if err != nil {
		t.Fatalf("failed to create engine: %s", err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatalf("initialize failed: %s", err)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("run failed: %s", err)
	}

	if len(deltas) != 3 {
		t.Fatalf("expected 3 updates, got %d", len(deltas))
	}
	if deltas[1] != 0 {
		t.Errorf("the first frame after a resume must have a zero delta, got %f", deltas[1])
	}
	if p.Pumps() < 12 {
		t.Errorf("expected the loop to pump while suspended, got %d pumps", p.Pumps())
	}
}
