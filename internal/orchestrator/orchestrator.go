// ABOUTME: Central dispatcher coordinating task submission, agents, and lifecycle state.
// ABOUTME: Owns the pending queue, active map, and archive behind a single mutex.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DansiDanutz/zmart-orchestrator/internal/agent"
	"github.com/DansiDanutz/zmart-orchestrator/internal/config"
	"github.com/DansiDanutz/zmart-orchestrator/internal/conflict"
	"github.com/DansiDanutz/zmart-orchestrator/internal/events"
	"github.com/DansiDanutz/zmart-orchestrator/internal/journal"
	"github.com/DansiDanutz/zmart-orchestrator/internal/metrics"
	"github.com/DansiDanutz/zmart-orchestrator/internal/task"
)

// ErrTaskNotFound indicates the requested task id is unknown or already evicted.
var ErrTaskNotFound = errors.New("task not found")

// activeEntry tracks one executing task together with its agent and the
// cancel function that aborts its handler context.
type activeEntry struct {
	task      *task.Task
	agentName string
	cancel    context.CancelFunc
}

// Orchestrator is the task orchestration core. It accepts heterogeneous
// units of work, matches each to a capable agent, enforces priority
// ordering, screens resource conflicts, and manages failure, retry, and
// timeout semantics.
type Orchestrator struct {
	cfg      *config.Config
	registry *agent.Registry
	detector *conflict.Detector
	bus      events.Bus
	journal  *journal.Journal
	sink     metrics.Sink
	logger   *slog.Logger

	mu      sync.Mutex
	queue   *task.Queue
	active  map[string]*activeEntry
	archive *task.Archive
	running bool

	// wake edge-triggers the scheduler on submission and completion so
	// dispatch latency does not depend on the tick alone.
	wake chan struct{}
}

// Options customize orchestrator construction. Nil collaborators fall back
// to no-op implementations.
type Options struct {
	Config  *config.Config
	Bus     events.Bus
	Journal *journal.Journal
	Metrics metrics.Sink
	Logger  *slog.Logger
}

// New creates an orchestrator. Call Run to start the periodic loops.
func New(opts Options) *Orchestrator {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bus := opts.Bus
	if bus == nil {
		bus = events.NopBus{}
	}
	sink := opts.Metrics
	if sink == nil {
		sink = metrics.NopSink{}
	}

	return &Orchestrator{
		cfg:      cfg,
		registry: agent.NewRegistry(logger),
		detector: conflict.NewDetector(cfg.Conflict.MutatingKinds...),
		bus:      bus,
		journal:  opts.Journal,
		sink:     sink,
		logger:   logger.With("component", "orchestrator"),
		queue:    task.NewQueue(),
		active:   make(map[string]*activeEntry),
		archive:  task.NewArchive(cfg.Retention.TTL, cfg.Retention.MaxArchive),
		wake:     make(chan struct{}, 1),
	}
}

// SubmitOption customizes one submission.
type SubmitOption func(*task.Task)

// WithScheduledAt delays eligibility until the given time.
func WithScheduledAt(at time.Time) SubmitOption {
	return func(t *task.Task) { t.ScheduledAt = at }
}

// WithTimeout bounds the handler execution duration.
func WithTimeout(d time.Duration) SubmitOption {
	return func(t *task.Task) { t.Timeout = d }
}

// WithMaxRetries bounds requeues after handler failures.
func WithMaxRetries(n int) SubmitOption {
	return func(t *task.Task) { t.MaxRetries = n }
}

// Submit screens a new task for conflicts and enqueues it. Returns the task
// id, or conflict.ErrConflict if the task collides with in-flight work.
func (o *Orchestrator) Submit(kind, agentType string, payload map[string]any, priority task.Priority, opts ...SubmitOption) (string, error) {
	t := task.New(kind, agentType, payload, priority)
	for _, opt := range opts {
		opt(t)
	}

	o.mu.Lock()
	inflight := o.queue.All()
	for _, entry := range o.active {
		inflight = append(inflight, entry.task)
	}
	if o.detector.Conflicts(t, inflight) {
		o.mu.Unlock()
		return "", fmt.Errorf("submitting %s task for %s: %w",
			kind, conflict.ResourceKey(payload), conflict.ErrConflict)
	}
	o.queue.Push(t)
	o.mu.Unlock()

	o.logger.Debug("task submitted",
		"task_id", t.ID,
		"kind", kind,
		"agent_type", agentType,
		"priority", priority.String(),
	)
	o.emit(events.Event{Type: events.TypeTaskSubmitted, TaskID: t.ID, Detail: kind})
	o.kick()
	return t.ID, nil
}

// Cancel cancels a task. A PENDING task is removed from the queue with no
// side effects. An ACTIVE task has its handler context cancelled (best
// effort, cooperative) and its agent released. Returns false if the task is
// unknown or already terminal.
func (o *Orchestrator) Cancel(taskID string) bool {
	o.mu.Lock()

	if t := o.queue.Remove(taskID); t != nil {
		t.Finalize(task.StatusCancelled, nil, "cancelled by caller", time.Now())
		o.archive.Put(t)
		o.mu.Unlock()

		o.logger.Info("pending task cancelled", "task_id", taskID)
		o.emit(events.Event{Type: events.TypeTaskCancelled, TaskID: taskID})
		return true
	}

	entry, ok := o.active[taskID]
	if !ok {
		o.mu.Unlock()
		return false
	}
	delete(o.active, taskID)
	entry.cancel()
	entry.task.Finalize(task.StatusCancelled, nil, "cancelled by caller", time.Now())
	o.archive.Put(entry.task)
	agentName := entry.agentName
	o.mu.Unlock()

	o.registry.Release(agentName)
	o.logger.Info("active task cancelled", "task_id", taskID, "agent", agentName)
	o.emit(events.Event{Type: events.TypeTaskCancelled, TaskID: taskID, AgentID: agentName})
	o.kick()
	return true
}

// RegisterAgent adds a worker to the registry.
// Returns agent.ErrDuplicateAgent if the name is taken.
func (o *Orchestrator) RegisterAgent(name, agentType string, capabilities []string, handler agent.Handler) error {
	if err := o.registry.Register(name, agentType, capabilities, handler); err != nil {
		return err
	}
	o.emit(events.Event{Type: events.TypeAgentRegistered, AgentID: name, Detail: agentType})
	o.kick()
	return nil
}

// UnregisterAgent removes a worker. Its in-flight task, if any, is cancelled
// first.
func (o *Orchestrator) UnregisterAgent(name string) error {
	inFlight, err := o.registry.Unregister(name)
	if err != nil {
		return err
	}
	if inFlight != "" {
		o.cancelOrphaned(inFlight, name, "agent unregistered")
	}
	o.emit(events.Event{Type: events.TypeAgentUnregistered, AgentID: name})
	return nil
}

// Heartbeat records a liveness signal from an agent.
func (o *Orchestrator) Heartbeat(name string) error {
	return o.registry.Heartbeat(name)
}

// GetTaskStatus returns the externally visible state of a task, wherever it
// currently resides. Returns ErrTaskNotFound for unknown or evicted ids.
func (o *Orchestrator) GetTaskStatus(taskID string) (task.Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if t := o.queue.Get(taskID); t != nil {
		return t.Snapshot(), nil
	}
	if entry, ok := o.active[taskID]; ok {
		return entry.task.Snapshot(), nil
	}
	if t := o.archive.Get(taskID); t != nil {
		return t.Snapshot(), nil
	}
	return task.Snapshot{}, ErrTaskNotFound
}

// GetAgentStatus returns the externally visible state of an agent.
// Returns agent.ErrAgentNotFound for unknown names.
func (o *Orchestrator) GetAgentStatus(name string) (agent.Info, error) {
	return o.registry.Get(name)
}

// SystemStatus summarizes the orchestrator for monitoring callers.
type SystemStatus struct {
	Running        bool
	TotalAgents    int
	ActiveAgents   int
	PendingCount   int
	ActiveCount    int
	CompletedCount int
}

// GetSystemStatus returns current system-wide counts.
func (o *Orchestrator) GetSystemStatus() SystemStatus {
	total, busy := o.registry.Counts()

	o.mu.Lock()
	defer o.mu.Unlock()
	return SystemStatus{
		Running:        o.running,
		TotalAgents:    total,
		ActiveAgents:   busy,
		PendingCount:   o.queue.Len(),
		ActiveCount:    len(o.active),
		CompletedCount: o.archive.Len(),
	}
}

// ListAgents returns snapshots of all registered agents.
func (o *Orchestrator) ListAgents() []agent.Info {
	return o.registry.List()
}

// RegisterMutatingKind marks a task kind as participating in conflict
// detection.
func (o *Orchestrator) RegisterMutatingKind(kind string) {
	o.detector.RegisterMutatingKind(kind)
}

// kick edge-triggers one scheduler pass without waiting for the tick.
func (o *Orchestrator) kick() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// emit publishes a lifecycle event to the bus and, when configured, appends
// it to the journal. Journal failures are logged, never propagated: no
// observer problem may disturb scheduling.
func (o *Orchestrator) emit(event events.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	o.bus.Publish(event)

	if o.journal != nil {
		if err := o.journal.Append(context.Background(), event); err != nil {
			o.logger.Warn("journal append failed",
				"type", string(event.Type),
				"error", err,
			)
		}
	}
}

// cancelOrphaned finalizes an active task whose agent went away (heartbeat
// timeout or unregistration). The agent slot was already cleared by the
// registry; only the task side is settled here.
func (o *Orchestrator) cancelOrphaned(taskID, agentName, reason string) {
	o.mu.Lock()
	entry, ok := o.active[taskID]
	if !ok {
		o.mu.Unlock()
		return
	}
	delete(o.active, taskID)
	entry.cancel()
	entry.task.Finalize(task.StatusCancelled, nil, reason, time.Now())
	o.archive.Put(entry.task)
	o.mu.Unlock()

	o.logger.Warn("in-flight task cancelled",
		"task_id", taskID,
		"agent", agentName,
		"reason", reason,
	)
	o.emit(events.Event{Type: events.TypeTaskCancelled, TaskID: taskID, AgentID: agentName, Detail: reason})
	o.kick()
}
