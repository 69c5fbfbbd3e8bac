package renderer

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/spaghettifunk/quadcore/engine/core"
)

type arenaEntry struct {
	id       uuid.UUID
	label    string
	resource Resource
	released bool
}

/**
 * @brief Records every GPU object in creation order so that teardown can
 * release each of them exactly once, newest first.
 */
type Arena struct {
	mu      sync.Mutex
	entries []*arenaEntry
}

func NewArena() *Arena {
	return &Arena{}
}

// Track registers a freshly created resource and returns its identifier.
func (a *Arena) Track(label string, resource Resource) uuid.UUID {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry := &arenaEntry{
		id:       uuid.New(),
		label:    label,
		resource: resource,
	}
	a.entries = append(a.entries, entry)
	core.LogDebug("tracked %s (%s)", label, entry.id)
	return entry.id
}

// Release frees a single resource ahead of teardown.
func (a *Arena) Release(resource Resource) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := len(a.entries) - 1; i >= 0; i-- {
		entry := a.entries[i]
		if entry.resource != resource {
			continue
		}
		if entry.released {
			return fmt.Errorf("%s (%s): %w", entry.label, entry.id, core.ErrResourceReleased)
		}
		entry.resource.Release()
		entry.released = true
		core.LogDebug("released %s (%s)", entry.label, entry.id)
		return nil
	}
	return fmt.Errorf("resource is not tracked: %w", core.ErrInvalidUsage)
}

// ReleaseAll frees every live resource in reverse creation order.
func (a *Arena) ReleaseAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := len(a.entries) - 1; i >= 0; i-- {
		entry := a.entries[i]
		if entry.released {
			continue
		}
		entry.resource.Release()
		entry.released = true
		core.LogDebug("released %s (%s)", entry.label, entry.id)
	}
	a.entries = nil
}

// Live returns the number of resources not yet released.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	live := 0
	for _, entry := range a.entries {
		if !entry.released {
			live++
		}
	}
	return live
}

// Labels lists live resources in creation order.
func (a *Arena) Labels() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	labels := make([]string, 0, len(a.entries))
	for _, entry := range a.entries {
		if !entry.released {
			labels = append(labels, entry.label)
		}
	}
	return labels
}
