package headless

import (
	"fmt"
	"sync"
)

// DrawCall holds the arguments of an accepted DrawIndexed.
type DrawCall struct {
	IndexCount uint32
	StartIndex uint32
	BaseVertex int32
}

type fault struct {
	after int
	err   error
}

/**
 * @brief Keeps the call log, the object bookkeeping and the injected faults
 * shared by a driver and everything it creates.
 */
type Recorder struct {
	mu             sync.Mutex
	calls          []string
	counts         map[string]int
	attempts       map[string]int
	created        map[string]int
	releases       []string
	live           int
	doubleReleases int
	nextID         uint32
	faults         map[string]fault
	presents       int
	syncInterval   uint32
	draws          int
	lastDraw       DrawCall
}

func newRecorder() *Recorder {
	return &Recorder{
		counts:   make(map[string]int),
		attempts: make(map[string]int),
		created:  make(map[string]int),
		faults:   make(map[string]fault),
	}
}

func (r *Recorder) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	r.counts[call]++
}

// check returns the injected error for op, if its fault is due.
func (r *Recorder) check(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.attempts[op]
	r.attempts[op]++
	if f, ok := r.faults[op]; ok && n >= f.after {
		return fmt.Errorf("%s: %w", op, f.err)
	}
	return nil
}

func (r *Recorder) track(kind string) object {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.created[kind]++
	r.live++
	return object{kind: kind, id: r.nextID, rec: r}
}

func (r *Recorder) release(o *object) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.released {
		r.doubleReleases++
		return
	}
	o.released = true
	r.live--
	r.releases = append(r.releases, o.kind)
}

func (r *Recorder) present(syncInterval uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presents++
	r.syncInterval = syncInterval
}

func (r *Recorder) draw(call DrawCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draws++
	r.lastDraw = call
}

// Calls returns the context call log in order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Count returns how many times a context call was made.
func (r *Recorder) Count(call string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[call]
}

// ResetCalls clears the call log and counters, keeping object bookkeeping.
func (r *Recorder) ResetCalls() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.counts = make(map[string]int)
}

// Created returns how many objects of a kind were created.
func (r *Recorder) Created(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created[kind]
}

// Live returns the number of created objects not yet released.
func (r *Recorder) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

// Releases lists released object kinds in release order.
func (r *Recorder) Releases() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.releases...)
}

func (r *Recorder) DoubleReleases() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doubleReleases
}

// Presents returns the present count and the last sync interval.
func (r *Recorder) Presents() (int, uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.presents, r.syncInterval
}

// Draws returns how many draws passed validation and the arguments of the last one.
func (r *Recorder) Draws() (int, DrawCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draws, r.lastDraw
}
