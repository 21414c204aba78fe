// ABOUTME: Priority-ordered pending queue scanned by the scheduler loop.
// ABOUTME: Orders by priority descending, then scheduled time, then submission order.

package task

import (
	"sort"
	"time"
)

// Queue holds PENDING tasks in dispatch order. It is not safe for concurrent
// use; the orchestrator serializes access under its own lock.
type Queue struct {
	items   []*Task
	nextSeq uint64
}

// NewQueue creates an empty pending queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push inserts a task, keeping the queue ordered by (priority desc,
// scheduledAt asc, submission order asc).
func (q *Queue) Push(t *Task) {
	t.seq = q.nextSeq
	q.nextSeq++

	idx := sort.Search(len(q.items), func(i int) bool {
		return q.less(t, q.items[i])
	})
	q.items = append(q.items, nil)
	copy(q.items[idx+1:], q.items[idx:])
	q.items[idx] = t
}

// less reports whether a dispatches before b.
func (q *Queue) less(a, b *Task) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.ScheduledAt.Equal(b.ScheduledAt) {
		return a.ScheduledAt.Before(b.ScheduledAt)
	}
	return a.seq < b.seq
}

// Remove deletes the task with the given id, returning it if present.
func (q *Queue) Remove(id string) *Task {
	for i, t := range q.items {
		if t.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return t
		}
	}
	return nil
}

// Scan calls fn for each task in dispatch order whose scheduled time has
// arrived, until fn returns true (handled) or the queue is exhausted.
// The task for which fn returned true is removed from the queue.
func (q *Queue) Scan(now time.Time, fn func(t *Task) bool) *Task {
	for i, t := range q.items {
		if t.ScheduledAt.After(now) {
			continue
		}
		if fn(t) {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return t
		}
	}
	return nil
}

// Get returns the queued task with the given id, or nil.
func (q *Queue) Get(id string) *Task {
	for _, t := range q.items {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// All returns the queued tasks in dispatch order. The returned slice is a
// copy; the tasks are not.
func (q *Queue) All() []*Task {
	out := make([]*Task, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	return len(q.items)
}
