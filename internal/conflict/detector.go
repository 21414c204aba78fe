// ABOUTME: Screens candidate tasks against in-flight work for resource collisions.
// ABOUTME: Two mutating tasks on the same symbol/owner must never run concurrently.

package conflict

import (
	"errors"
	"fmt"
	"sync"

	"github.com/DansiDanutz/zmart-orchestrator/internal/task"
)

// ErrConflict indicates a submission was rejected due to resource contention.
var ErrConflict = errors.New("task conflicts with in-flight work")

// Detector decides whether a candidate task may enter the system given the
// set of in-flight (pending or active) tasks. Only kinds registered as
// mutating participate; everything else always passes.
type Detector struct {
	mu       sync.RWMutex
	mutating map[string]bool
}

// NewDetector creates a detector with the given mutating kinds.
func NewDetector(mutatingKinds ...string) *Detector {
	d := &Detector{mutating: make(map[string]bool)}
	for _, k := range mutatingKinds {
		d.mutating[k] = true
	}
	return d
}

// RegisterMutatingKind marks a kind as position-modifying. Tasks of
// unregistered kinds are advisory-only and never conflict.
func (d *Detector) RegisterMutatingKind(kind string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mutating[kind] = true
}

// Conflicts reports whether the candidate collides with any in-flight task.
// A collision requires both tasks to be of mutating kinds and to share the
// same resource key.
func (d *Detector) Conflicts(candidate *task.Task, inflight []*task.Task) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.mutating[candidate.Kind] {
		return false
	}

	key := ResourceKey(candidate.Payload)
	if key == "" {
		return false
	}

	for _, t := range inflight {
		if !d.mutating[t.Kind] {
			continue
		}
		if ResourceKey(t.Payload) == key {
			return true
		}
	}
	return false
}

// ResourceKey derives the contention key from a task payload. It combines
// the symbol and owner fields; either alone still yields a usable key.
// Returns "" when the payload carries no resource fields at all.
func ResourceKey(payload map[string]any) string {
	symbol := stringField(payload, "symbol")
	owner := stringField(payload, "ownerId")
	if symbol == "" && owner == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", symbol, owner)
}

// stringField extracts a string payload field, tolerating absent keys and
// non-string values.
func stringField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
