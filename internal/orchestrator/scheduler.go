// ABOUTME: Scheduler loop matching pending tasks to idle agents in priority order.
// ABOUTME: Fixed tick plus edge triggers; one assignment per pass for determinism.

package orchestrator

import (
	"context"
	"time"

	"github.com/DansiDanutz/zmart-orchestrator/internal/task"
)

// dispatchOne performs one scheduling pass: skip if the concurrency ceiling
// is reached, otherwise scan the pending queue in dispatch order and assign
// the first task that has an available agent. A task with no available agent
// does not block later, lower-priority entries. At most one assignment
// happens per pass; submission and completion edge-trigger further passes.
func (o *Orchestrator) dispatchOne() {
	o.mu.Lock()

	if len(o.active) >= o.cfg.Scheduler.MaxConcurrent {
		o.mu.Unlock()
		return
	}

	now := time.Now()
	var assignedAgent string
	t := o.queue.Scan(now, func(candidate *task.Task) bool {
		name := o.registry.FindAvailable(candidate.AgentType)
		if name == "" {
			return false
		}
		if err := o.registry.Assign(name, candidate.ID); err != nil {
			return false
		}
		assignedAgent = name
		return true
	})
	if t == nil {
		o.mu.Unlock()
		return
	}

	handler, err := o.registry.Handler(assignedAgent)
	if err != nil {
		// Agent vanished between Assign and Handler; requeue and move on.
		o.queue.Push(t)
		o.mu.Unlock()
		return
	}

	execCtx, cancel := context.WithTimeout(context.Background(), t.Timeout)
	t.Status = task.StatusActive
	t.StartedAt = now
	t.AgentName = assignedAgent
	o.active[t.ID] = &activeEntry{task: t, agentName: assignedAgent, cancel: cancel}
	o.mu.Unlock()

	o.logger.Debug("task dispatched",
		"task_id", t.ID,
		"kind", t.Kind,
		"agent", assignedAgent,
		"attempt", t.RetryCount,
	)

	go o.execute(execCtx, cancel, t, assignedAgent, handler)

	// Another task may be dispatchable right away.
	o.kick()
}

// schedulerLoop runs dispatch passes on the configured tick and whenever a
// submission or completion wakes it. A slow handler never stalls the loop:
// execution happens on its own goroutine.
func (o *Orchestrator) schedulerLoop(ctx context.Context) error {
	ticker := time.NewTicker(o.cfg.Scheduler.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-o.wake:
		}
		o.dispatchOne()
	}
}
