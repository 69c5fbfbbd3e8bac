package systems

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spaghettifunk/quadcore/engine/core"
	"github.com/spaghettifunk/quadcore/engine/renderer/headless"
	"github.com/spaghettifunk/quadcore/engine/renderer/metadata"
)

func TestNewJobSystemValidation(t *testing.T) {
	if _, err := NewJobSystem(0, 1); !errors.Is(err, ErrNoWorkers) {
		t.Errorf("expected ErrNoWorkers, got %v", err)
	}
	if _, err := NewJobSystem(1, -1); !errors.Is(err, ErrNegativeChannelSize) {
		t.Errorf("expected ErrNegativeChannelSize, got %v", err)
	}
}

func TestJobSystemRunsJobs(t *testing.T) {
	js, err := NewJobSystem(4, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var completed, failed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		err := js.Submit(metadata.JobTask{
			Name:        "job",
			InputParams: i,
			OnStart: func(params interface{}) (interface{}, error) {
				if params.(int)%5 == 0 {
					return nil, core.ErrUnknown
				}
				return params.(int) * 2, nil
			},
			OnComplete: func(result interface{}) {
				completed.Add(1)
				wg.Done()
			},
			OnFailure: func(err error) {
				failed.Add(1)
				wg.Done()
			},
		})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	wg.Wait()

	if completed.Load() != 16 || failed.Load() != 4 {
		t.Errorf("expected 16 completed and 4 failed, got %d and %d", completed.Load(), failed.Load())
	}

	if err := js.Shutdown(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := js.Shutdown(); err != nil {
		t.Errorf("second shutdown must be a no-op, got %v", err)
	}
	err = js.Submit(metadata.JobTask{OnStart: func(interface{}) (interface{}, error) { return nil, nil }})
	if !errors.Is(err, ErrJobSystemClosed) {
		t.Errorf("expected ErrJobSystemClosed, got %v", err)
	}
}

func TestJobSystemRejectsJobWithoutEntryPoint(t *testing.T) {
	js, err := NewJobSystem(1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer js.Shutdown()
	if err := js.Submit(metadata.JobTask{Name: "empty"}); !errors.Is(err, core.ErrInvalidUsage) {
		t.Errorf("expected ErrInvalidUsage, got %v", err)
	}
}

func waitForReloads(t *testing.T, sm *SystemManager, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	applied := 0
	for applied < want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d reloads, got %d", want, applied)
		}
		applied += sm.ApplyReloads()
		time.Sleep(time.Millisecond)
	}
}

func TestHotReloadReplacesActiveTexture(t *testing.T) {
	sm, _, assets := initializedManager(t)
	renderFrames(t, sm.Frame, 1, 0.1)

	before, _ := sm.Textures.Entry("a.png")
	oldView := before.View
	assets.setImage("a.png", solidImage(8, 8, 200))

	if !sm.ScheduleReload("a.png") {
		t.Fatal("expected the reload to be scheduled")
	}
	waitForReloads(t, sm, 1)

	after, _ := sm.Textures.Entry("a.png")
	if after.Slot != 0 || after.Width != 8 || after.View == oldView {
		t.Errorf("unexpected entry after reload %+v", after)
	}
	if !sm.Frame.StateDirty() {
		t.Errorf("reloading the active texture must mark the frame state dirty")
	}
	renderFrames(t, sm.Frame, 1, 0.1)
	if !oldView.(*headless.View).Released() {
		t.Errorf("the replaced view must be released")
	}
}

func TestHotReloadIgnoresUnknownAndBrokenFiles(t *testing.T) {
	sm, _, assets := initializedManager(t)

	if sm.ScheduleReload("c.png") {
		t.Error("uncached paths must not be scheduled")
	}

	assets.mu.Lock()
	delete(assets.images, testResourceDir+"/b.png")
	assets.mu.Unlock()
	before, _ := sm.Textures.Entry("b.png")
	view := before.View

	if !sm.ScheduleReload("b.png") {
		t.Fatal("expected the reload to be scheduled")
	}
	// the failing decode never reaches the queue
	time.Sleep(50 * time.Millisecond)
	if n := sm.ApplyReloads(); n != 0 {
		t.Errorf("expected no reload, got %d", n)
	}
	after, _ := sm.Textures.Entry("b.png")
	if after.View != view {
		t.Errorf("a broken file must leave the cached texture untouched")
	}
}
