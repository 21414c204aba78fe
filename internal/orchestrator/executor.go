// ABOUTME: Runs one task against one agent under a deadline and settles the outcome.
// ABOUTME: Slot release on timeout is independent of handler cooperation.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DansiDanutz/zmart-orchestrator/internal/agent"
	"github.com/DansiDanutz/zmart-orchestrator/internal/events"
	"github.com/DansiDanutz/zmart-orchestrator/internal/task"
)

// execResult carries the handler outcome across the executor goroutines.
type execResult struct {
	value any
	err   error
}

// execute invokes the agent handler on its own goroutine and waits for
// either the result or the deadline. The handler goroutine may outlive the
// deadline; the agent slot is released regardless.
func (o *Orchestrator) execute(ctx context.Context, cancel context.CancelFunc, t *task.Task, agentName string, handler agent.Handler) {
	defer cancel()

	start := time.Now()
	done := make(chan execResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- execResult{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		value, err := handler.Execute(ctx, t.Kind, t.Payload)
		done <- execResult{value: value, err: err}
	}()

	select {
	case res := <-done:
		o.settle(t.ID, res, time.Since(start))
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			o.settleTimeout(t.ID, time.Since(start))
			return
		}
		// Cancelled by Cancel, heartbeat eviction, or unregistration. The
		// canceller already finalized the task and released the agent.
	}
}

// settle finalizes a completed or failed execution. If the task is no
// longer in the active map it was cancelled concurrently and the result is
// discarded.
func (o *Orchestrator) settle(taskID string, res execResult, duration time.Duration) {
	o.mu.Lock()
	entry, ok := o.active[taskID]
	if !ok {
		o.mu.Unlock()
		return
	}
	delete(o.active, taskID)
	t := entry.task
	agentName := entry.agentName

	if res.err == nil {
		t.Finalize(task.StatusCompleted, res.value, "", time.Now())
		o.archive.Put(t)
		o.mu.Unlock()

		o.registry.RecordSuccess(agentName, duration)
		o.sink.ObserveExecution(t.Kind, string(task.StatusCompleted), duration)
		o.logger.Info("task completed",
			"task_id", t.ID,
			"kind", t.Kind,
			"agent", agentName,
			"duration", duration,
		)
		o.emit(events.Event{Type: events.TypeTaskCompleted, TaskID: t.ID, AgentID: agentName})
		o.kick()
		return
	}

	// Handler failure: requeue while retry budget remains; otherwise the
	// failure is terminal.
	if t.RetryCount < t.MaxRetries {
		t.ResetForRetry()
		o.queue.Push(t)
		o.mu.Unlock()

		o.registry.RecordFailure(agentName, duration)
		o.sink.IncRetry(t.Kind)
		o.logger.Warn("task failed, requeuing",
			"task_id", t.ID,
			"kind", t.Kind,
			"agent", agentName,
			"attempt", t.RetryCount,
			"max_retries", t.MaxRetries,
			"error", res.err,
		)
		o.kick()
		return
	}

	t.Finalize(task.StatusFailed, nil, res.err.Error(), time.Now())
	o.archive.Put(t)
	o.mu.Unlock()

	o.registry.RecordFailure(agentName, duration)
	o.sink.ObserveExecution(t.Kind, string(task.StatusFailed), duration)
	o.sink.IncFailure(t.Kind, "handler_error")
	o.logger.Error("task failed permanently",
		"task_id", t.ID,
		"kind", t.Kind,
		"agent", agentName,
		"retries", t.RetryCount,
		"error", res.err,
	)
	o.emit(events.Event{Type: events.TypeTaskFailed, TaskID: t.ID, AgentID: agentName, Detail: res.err.Error()})
	o.kick()
}

// settleTimeout finalizes a deadline overrun. Timeouts are always terminal:
// the handler may still be running, and a retry could duplicate side effects.
func (o *Orchestrator) settleTimeout(taskID string, duration time.Duration) {
	o.mu.Lock()
	entry, ok := o.active[taskID]
	if !ok {
		o.mu.Unlock()
		return
	}
	delete(o.active, taskID)
	t := entry.task
	agentName := entry.agentName
	t.Finalize(task.StatusTimedOut, nil,
		fmt.Sprintf("execution exceeded timeout %s", t.Timeout), time.Now())
	o.archive.Put(t)
	o.mu.Unlock()

	o.registry.RecordFailure(agentName, duration)
	o.sink.ObserveExecution(t.Kind, string(task.StatusTimedOut), duration)
	o.sink.IncFailure(t.Kind, "timeout")
	o.logger.Error("task timed out",
		"task_id", t.ID,
		"kind", t.Kind,
		"agent", agentName,
		"timeout", t.Timeout,
	)
	o.emit(events.Event{Type: events.TypeTaskTimedOut, TaskID: t.ID, AgentID: agentName, Detail: t.Error})
	o.kick()
}
