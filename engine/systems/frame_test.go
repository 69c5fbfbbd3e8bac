package systems

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/math"
	"github.com/spaghettifunk/quadcore/engine/renderer"
	"github.com/spaghettifunk/quadcore/engine/renderer/headless"
	"github.com/spaghettifunk/quadcore/engine/renderer/metadata"
)

func renderFrames(t *testing.T, fc *FrameController, n int, dt float32) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := fc.Render(dt); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
}

func TestFirstFrameBindsEverything(t *testing.T) {
	sm, drv, _ := initializedManager(t)
	rec := drv.Recorder()
	rec.ResetCalls()

	if err := sm.Frame.Render(0.016); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := rec.Calls()
	if calls[0] != "ClearRenderTargetView" || calls[len(calls)-1] != "DrawIndexed" {
		t.Errorf("a frame must start with a clear and end with the draw, got %v", calls)
	}
	if rec.Count("PSSetShaderResources") != 1 || rec.Count("Map") != 4 || rec.Count("DrawIndexed") != 1 {
		t.Errorf("unexpected first frame calls %v", calls)
	}

	state := sm.GraphicsDevice.Context.(*headless.Context).State()
	active, _ := sm.Textures.Entry("a.png")
	switch {
	case state.PSResources[0] != active.View:
		t.Errorf("active texture view is not bound")
	case state.VertexStride != metadata.VertexSize || state.IndexFormat != renderer.FormatR32Uint:
		t.Errorf("unexpected geometry binding %+v", state)
	case state.VSConstantBuffers[0] != sm.Buffers.WVPBuffer:
		t.Errorf("wvp buffer must be bound to vertex slot 0")
	case state.PSConstantBuffers[0] != sm.Buffers.LightBuffer || state.PSConstantBuffers[1] != sm.Buffers.MaterialBuffer:
		t.Errorf("light and material must be bound to pixel slots 0 and 1")
	case state.PSSamplers[0] != sm.Pipeline.Sampler:
		t.Errorf("sampler is not bound")
	case state.StencilRef != 0 || state.DepthStencilState != sm.GraphicsDevice.DepthStencilState:
		t.Errorf("unexpected depth stencil binding")
	case state.LastClearColour != [4]float32{0.0, 0.2, 0.4, 1.0}:
		t.Errorf("unexpected clear colour %v", state.LastClearColour)
	}

	stats := sm.Frame.Stats()
	if stats.Frames != 1 || stats.Draws != 1 || stats.Rebinds != 1 || stats.Uploads != 4 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if sm.Frame.StateDirty() || sm.Frame.BufferDirty() {
		t.Errorf("dirty flags must be cleared after the first frame")
	}
}

func TestCleanFrameOnlyUploadsWVP(t *testing.T) {
	sm, drv, _ := initializedManager(t)
	renderFrames(t, sm.Frame, 1, 0.1)

	rec := drv.Recorder()
	rec.ResetCalls()
	renderFrames(t, sm.Frame, 1, 0.1)

	if rec.Count("PSSetShaderResources") != 0 || rec.Count("VSSetShader") != 0 {
		t.Errorf("a clean frame must not rebind state, got %v", rec.Calls())
	}
	if rec.Count("Map") != 1 || rec.Count("Unmap") != 1 {
		t.Errorf("expected only the wvp upload, got %v", rec.Calls())
	}
	if rec.Count("ClearRenderTargetView") != 1 || rec.Count("ClearDepthStencilView") != 1 || rec.Count("DrawIndexed") != 1 {
		t.Errorf("unexpected calls %v", rec.Calls())
	}

	raw, err := sm.Buffers.ReadBuffer(sm.Buffers.WVPBuffer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wvp, err := metadata.Unpack[metadata.WVP](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wvp != sm.Buffers.WVP {
		t.Errorf("the uploaded wvp differs from the CPU copy")
	}
	if wvp.World == math.NewMat4Identity() {
		t.Errorf("the world matrix must be animated")
	}
}

func TestMarkDirtyForcesWork(t *testing.T) {
	sm, drv, _ := initializedManager(t)
	renderFrames(t, sm.Frame, 1, 0.1)
	rec := drv.Recorder()

	rec.ResetCalls()
	sm.Frame.MarkBufferDirty()
	renderFrames(t, sm.Frame, 1, 0.1)
	if rec.Count("Map") != 4 || rec.Count("PSSetShaderResources") != 0 {
		t.Errorf("expected a full upload without rebinding, got %v", rec.Calls())
	}

	rec.ResetCalls()
	sm.Frame.MarkStateDirty()
	renderFrames(t, sm.Frame, 1, 0.1)
	if rec.Count("Map") != 1 || rec.Count("PSSetShaderResources") != 1 {
		t.Errorf("expected a rebind with only the wvp upload, got %v", rec.Calls())
	}
}

func TestAnimationSwapsTextureAndFlipsDirection(t *testing.T) {
	sm, _, _ := initializedManager(t)
	fc := sm.Frame

	renderFrames(t, fc, 2, 1)
	if sm.Textures.Active() != "a.png" {
		t.Fatalf("texture swapped too early")
	}
	renderFrames(t, fc, 1, 1)
	if sm.Textures.Active() != "b.png" {
		t.Fatalf("expected b.png active halfway through the period, got %s", sm.Textures.Active())
	}
	if fc.Stats().Rebinds != 2 {
		t.Errorf("the swap must rebind state in the same frame, got %d rebinds", fc.Stats().Rebinds)
	}

	renderFrames(t, fc, 2, 1)
	if sm.Textures.Active() != "b.png" || sm.Transform.RotationAngle() != math.K_PI_2 {
		t.Fatalf("unexpected state before the end of the period")
	}
	renderFrames(t, fc, 1, 1)
	if sm.Transform.RotationAngle() != -math.K_PI_2 {
		t.Errorf("expected the direction to flip after a full period, got %v", sm.Transform.RotationAngle())
	}

	renderFrames(t, fc, 3, 1)
	if sm.Textures.Active() != "a.png" {
		t.Errorf("expected a.png active again, got %s", sm.Textures.Active())
	}
}

func TestAnimationWithoutRotation(t *testing.T) {
	drv := headless.NewDriver()
	config := testConfig()
	config.Rotating = false
	sm := newTestManager(t, config, drv, newFakeAssets("a.png", "b.png"))
	if err := sm.Initialize(testSurface{800, 600}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	renderFrames(t, sm.Frame, 12, 1)
	if sm.Textures.Active() != "b.png" {
		t.Errorf("expected a single swap, got %s active", sm.Textures.Active())
	}
	if sm.Transform.RotationAngle() != math.K_PI_2 || sm.Transform.Angle() != 0 {
		t.Errorf("a static quad must not rotate or flip")
	}
	if sm.Buffers.WVP.World.Data[11] != -0.5 {
		t.Errorf("expected a translated world matrix, got %v", sm.Buffers.WVP.World.Data)
	}
}

func TestRenderWithoutActiveTexture(t *testing.T) {
	sm, drv, _ := initializedManager(t)
	sm.Textures.Release()
	rec := drv.Recorder()
	rec.ResetCalls()

	if err := sm.Frame.Render(0.1); !errors.Is(err, core.ErrNoActiveTexture) {
		t.Fatalf("expected ErrNoActiveTexture, got %v", err)
	}
	if rec.Count("DrawIndexed") != 0 {
		t.Errorf("nothing must be drawn without a texture")
	}
}

func TestPresentHonoursVSync(t *testing.T) {
	for _, vsync := range []bool{true, false} {
		drv := headless.NewDriver()
		config := testConfig()
		config.VSync = vsync
		sm := newTestManager(t, config, drv, newFakeAssets("a.png", "b.png"))
		if err := sm.Initialize(testSurface{320, 240}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		renderFrames(t, sm.Frame, 1, 0.1)
		if err := sm.Frame.Present(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		n, interval := drv.Recorder().Presents()
		want := uint32(0)
		if vsync {
			want = 1
		}
		if n != 1 || interval != want {
			t.Errorf("vsync %v: expected 1 present with interval %d, got %d with %d", vsync, want, n, interval)
		}
	}
}

func TestSetDataReachesTheGPU(t *testing.T) {
	sm, _, _ := initializedManager(t)
	renderFrames(t, sm.Frame, 1, 0.1)
	if sm.Frame.BufferDirty() {
		t.Fatalf("buffers must be clean after the first frame")
	}

	light := sm.Buffers.Light()
	light.Colour = math.NewVec4(0.25, 0.5, 0.75, 1.0)
	material := sm.Buffers.Material()
	material.Shininess = 8
	sm.Buffers.SetData(sm.Buffers.WVP, light, material)
	if !sm.Frame.BufferDirty() {
		t.Fatalf("SetData must mark the buffers dirty")
	}
	renderFrames(t, sm.Frame, 1, 0.1)

	raw, err := sm.Buffers.ReadBuffer(sm.Buffers.LightBuffer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gotLight, err := metadata.Unpack[metadata.Light](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLight.Colour != light.Colour {
		t.Errorf("expected light colour %v on the GPU, got %v", light.Colour, gotLight.Colour)
	}

	raw, err = sm.Buffers.ReadBuffer(sm.Buffers.MaterialBuffer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gotMaterial, err := metadata.Unpack[metadata.Material](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMaterial.Shininess != 8 {
		t.Errorf("expected shininess 8 on the GPU, got %v", gotMaterial.Shininess)
	}
	if sm.Frame.BufferDirty() {
		t.Errorf("the upload must clear the buffer dirty flag")
	}
}

func TestSettersMarkBuffersDirty(t *testing.T) {
	sm, drv, _ := initializedManager(t)
	renderFrames(t, sm.Frame, 1, 0.1)
	rec := drv.Recorder()

	sm.Buffers.SetLight(sm.Buffers.Light())
	if !sm.Frame.BufferDirty() {
		t.Errorf("SetLight must mark the buffers dirty")
	}
	renderFrames(t, sm.Frame, 1, 0.1)

	sm.Buffers.SetMaterial(sm.Buffers.Material())
	if !sm.Frame.BufferDirty() {
		t.Errorf("SetMaterial must mark the buffers dirty")
	}
	renderFrames(t, sm.Frame, 1, 0.1)

	vertices := append([]math.Vertex3D(nil), sm.Meshes.Mesh.Vertices...)
	vertices[0].Texcoord = math.NewVec2(0.5, 0.5)
	if err := sm.Meshes.SetVertices(vertices); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sm.Frame.BufferDirty() {
		t.Errorf("SetVertices must mark the buffers dirty")
	}
	rec.ResetCalls()
	renderFrames(t, sm.Frame, 1, 0.1)
	if rec.Count("Map") != 4 {
		t.Errorf("expected vertex, light, material and wvp uploads, got %v", rec.Calls())
	}

	if err := sm.Meshes.SetVertices(vertices[:3]); !errors.Is(err, core.ErrInvalidUsage) {
		t.Errorf("expected a vertex count change to fail, got %v", err)
	}
}

func TestTextureSwapRebindsAndDrawsTheQuad(t *testing.T) {
	sm, drv, _ := initializedManager(t)
	a, _ := sm.Textures.Entry("a.png")
	b, _ := sm.Textures.Entry("b.png")
	if a.Slot != 0 || b.Slot != 1 {
		t.Fatalf("expected slots {0,1}, got {%d,%d}", a.Slot, b.Slot)
	}
	renderFrames(t, sm.Frame, 1, 0.1)
	rec := drv.Recorder()
	before, _ := rec.Draws()

	if err := sm.Textures.SetActive("b.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sm.Frame.StateDirty() {
		t.Fatalf("changing the active texture must mark the state dirty")
	}
	rec.ResetCalls()
	renderFrames(t, sm.Frame, 1, 0.1)

	if sm.Frame.StateDirty() {
		t.Errorf("the frame must clear the state dirty flag")
	}
	n, last := rec.Draws()
	if n-before != 1 || rec.Count("DrawIndexed") != 1 {
		t.Errorf("expected exactly one draw, got %d", n-before)
	}
	if last != (headless.DrawCall{IndexCount: 6, StartIndex: 0, BaseVertex: 0}) {
		t.Errorf("expected a draw of 6 indices from 0, got %+v", last)
	}
	state := sm.GraphicsDevice.Context.(*headless.Context).State()
	if state.PSResources[0] != b.View {
		t.Errorf("b.png must be bound after the swap")
	}
}
