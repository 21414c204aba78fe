// ABOUTME: Lifecycle event type and the Bus interface the orchestrator emits through.
// ABOUTME: External collaborators subscribe via the in-memory Broadcaster.

package events

import "time"

// Type tags a lifecycle notification.
type Type string

const (
	TypeAgentRegistered   Type = "agent.registered"
	TypeAgentUnregistered Type = "agent.unregistered"
	TypeAgentError        Type = "agent.error"
	TypeTaskSubmitted     Type = "task.submitted"
	TypeTaskCompleted     Type = "task.completed"
	TypeTaskFailed        Type = "task.failed"
	TypeTaskCancelled     Type = "task.cancelled"
	TypeTaskTimedOut      Type = "task.timed_out"
)

// Event is one lifecycle notification. TaskID and AgentID are set when
// relevant; Detail carries free-form context such as error text.
type Event struct {
	Type      Type
	TaskID    string
	AgentID   string
	Timestamp time.Time
	Detail    string
}

// Bus is the narrow interface the orchestrator publishes through. The core
// never depends on a concrete notification mechanism.
type Bus interface {
	Publish(event Event)
}

// NopBus discards all events.
type NopBus struct{}

// Publish does nothing.
func (NopBus) Publish(Event) {}
