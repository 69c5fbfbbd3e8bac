package containers

import (
	"errors"
	"sync"
	"testing"
)

func TestRingQueueOrderAndWrap(t *testing.T) {
	rq := NewRingQueue[string](2)
	if !rq.IsEmpty() {
		t.Fatalf("new queue should be empty")
	}
	if _, err := rq.Dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("expected ErrQueueEmpty, got %v", err)
	}

	_ = rq.Enqueue("a")
	_ = rq.Enqueue("b")
	if err := rq.Enqueue("c"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	if v, _ := rq.Peek(); v != "a" {
		t.Errorf("expected peek a, got %s", v)
	}
	if v, _ := rq.Dequeue(); v != "a" {
		t.Errorf("expected a, got %s", v)
	}
	_ = rq.Enqueue("c")
	for _, want := range []string{"b", "c"} {
		v, err := rq.Dequeue()
		if err != nil || v != want {
			t.Errorf("expected %s, got %s (%v)", want, v, err)
		}
	}
	if rq.Len() != 0 {
		t.Errorf("expected empty queue, got %d", rq.Len())
	}
}

func TestRingQueueConcurrentProducers(t *testing.T) {
	rq := NewRingQueue[int](64)
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 16; i++ {
				_ = rq.Enqueue(i)
			}
		}()
	}
	wg.Wait()
	if !rq.IsFull() {
		t.Errorf("expected 64 queued items, got %d", rq.Len())
	}
}
