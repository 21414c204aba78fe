// ABOUTME: Core task value object with priority, lifecycle status, and retry bookkeeping.
// ABOUTME: Tasks are created by submission and owned by exactly one container at a time.

package task

import (
	"time"

	"github.com/google/uuid"
)

// Priority orders tasks within the pending queue. Higher values dispatch first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// String returns the lowercase name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether the status is a final state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimedOut, StatusCancelled:
		return true
	default:
		return false
	}
}

// DefaultTimeout bounds handler execution when the submitter does not set one.
const DefaultTimeout = 5 * time.Minute

// DefaultMaxRetries bounds requeues after handler failures.
const DefaultMaxRetries = 3

// Task is one schedulable unit of work. The orchestrator owns all mutation;
// external callers only ever see copies or read-only snapshots.
type Task struct {
	ID        string
	Kind      string
	Priority  Priority
	AgentType string

	// Payload is opaque to the core except for the conflict-detection
	// resource fields (symbol, ownerId).
	Payload map[string]any

	CreatedAt   time.Time
	ScheduledAt time.Time
	StartedAt   time.Time
	CompletedAt time.Time

	Timeout    time.Duration
	RetryCount int
	MaxRetries int

	Status Status

	// Result and Error are mutually exclusive and set exactly once per
	// terminal transition. A retry clears Error before requeue.
	Result any
	Error  string

	// AgentName records which agent executed (or is executing) the task.
	AgentName string

	// seq is the submission sequence number, used as the final FIFO
	// tie-breaker within a priority band.
	seq uint64
}

// New creates a PENDING task with a fresh ID. ScheduledAt defaults to now.
func New(kind, agentType string, payload map[string]any, priority Priority) *Task {
	now := time.Now()
	return &Task{
		ID:          uuid.New().String(),
		Kind:        kind,
		Priority:    priority,
		AgentType:   agentType,
		Payload:     payload,
		CreatedAt:   now,
		ScheduledAt: now,
		Timeout:     DefaultTimeout,
		MaxRetries:  DefaultMaxRetries,
		Status:      StatusPending,
	}
}

// Eligible reports whether the task may be dispatched at the given time.
func (t *Task) Eligible(now time.Time) bool {
	return t.Status == StatusPending && !t.ScheduledAt.After(now)
}

// Finalize records a terminal transition. Result and error are mutually
// exclusive; whichever does not apply must be its zero value.
func (t *Task) Finalize(status Status, result any, errText string, now time.Time) {
	t.Status = status
	t.Result = result
	t.Error = errText
	t.CompletedAt = now
}

// ResetForRetry returns the task to PENDING for another attempt, clearing the
// previous error and incrementing the retry counter.
func (t *Task) ResetForRetry() {
	t.Status = StatusPending
	t.Error = ""
	t.AgentName = ""
	t.StartedAt = time.Time{}
	t.RetryCount++
}

// Snapshot is the externally visible view of a task.
type Snapshot struct {
	ID          string
	Kind        string
	Priority    Priority
	AgentType   string
	Status      Status
	CreatedAt   time.Time
	ScheduledAt time.Time
	CompletedAt time.Time
	RetryCount  int
	Result      any
	Error       string
}

// Snapshot copies the externally visible fields.
func (t *Task) Snapshot() Snapshot {
	return Snapshot{
		ID:          t.ID,
		Kind:        t.Kind,
		Priority:    t.Priority,
		AgentType:   t.AgentType,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		ScheduledAt: t.ScheduledAt,
		CompletedAt: t.CompletedAt,
		RetryCount:  t.RetryCount,
		Result:      t.Result,
		Error:       t.Error,
	}
}
