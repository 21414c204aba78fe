// ABOUTME: Thread-safe TTL archive for terminal tasks with size-bounded retention.
// ABOUTME: Uses a doubly-linked list to maintain insertion order for O(1) eviction.

package task

import (
	"container/list"
	"sync"
	"time"
)

// archiveEntry stores the task and list element for an archived id.
type archiveEntry struct {
	task     *Task
	element  *list.Element
	archived time.Time
}

// Archive holds terminal tasks until the retention window passes. It evicts
// the oldest entry when at capacity so an idle sweep cannot be outpaced by a
// busy submitter.
type Archive struct {
	mu      sync.RWMutex
	entries map[string]*archiveEntry
	order   *list.List // task ids in insertion order (oldest at front)
	ttl     time.Duration
	maxSize int
}

// NewArchive creates an archive with the given retention TTL and maximum
// size. The caller is responsible for invoking Sweep periodically.
func NewArchive(ttl time.Duration, maxSize int) *Archive {
	return &Archive{
		entries: make(map[string]*archiveEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Put stores a terminal task. If the id is already present the entry is
// refreshed and moved to the back of the eviction order.
func (a *Archive) Put(t *Task) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	if entry, exists := a.entries[t.ID]; exists {
		entry.task = t
		entry.archived = now
		a.order.MoveToBack(entry.element)
		return
	}

	if len(a.entries) >= a.maxSize {
		a.evictOldest()
	}

	elem := a.order.PushBack(t.ID)
	a.entries[t.ID] = &archiveEntry{
		task:     t,
		element:  elem,
		archived: now,
	}
}

// Get returns the archived task with the given id, or nil.
func (a *Archive) Get(id string) *Task {
	a.mu.RLock()
	defer a.mu.RUnlock()

	entry, ok := a.entries[id]
	if !ok {
		return nil
	}
	return entry.task
}

// Len returns the number of archived tasks.
func (a *Archive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// evictOldest removes the oldest entry. Must be called with mu held.
func (a *Archive) evictOldest() {
	front := a.order.Front()
	if front == nil {
		return
	}
	id, _ := front.Value.(string)
	a.order.Remove(front)
	delete(a.entries, id)
}

// Sweep removes all entries older than the retention TTL and returns how
// many were evicted.
func (a *Archive) Sweep() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	evicted := 0
	for id, entry := range a.entries {
		if now.Sub(entry.archived) > a.ttl {
			a.order.Remove(entry.element)
			delete(a.entries, id)
			evicted++
		}
	}
	return evicted
}
