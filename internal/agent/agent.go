// ABOUTME: Agent record, execution handler interface, and running statistics.
// ABOUTME: The core only ever sees an agent's declared type and its Handler.

package agent

import (
	"context"
	"time"
)

// Handler executes one unit of work. Concrete agents (market-data fetchers,
// scoring heuristics, traders) implement it; the core only holds the
// interface value.
type Handler interface {
	Execute(ctx context.Context, kind string, payload map[string]any) (any, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, kind string, payload map[string]any) (any, error)

// Execute calls fn.
func (fn HandlerFunc) Execute(ctx context.Context, kind string, payload map[string]any) (any, error) {
	return fn(ctx, kind, payload)
}

// Status represents the availability state of an agent.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusActive      Status = "active"
	StatusBusy        Status = "busy"
	StatusError       Status = "error"
	StatusMaintenance Status = "maintenance"
)

// avgAlpha is the smoothing factor for the exponentially weighted average
// execution time. Recent executions weigh 20%.
const avgAlpha = 0.2

// Agent is a registered worker. All mutation happens inside the Registry
// under its lock; callers receive copies via Info.
type Agent struct {
	Name         string
	Type         string
	Capabilities []string
	Handler      Handler

	Status        Status
	LastHeartbeat time.Time

	// CurrentTask holds at most one task id. It is set iff Status is BUSY.
	CurrentTask string

	CompletedCount int
	FailedCount    int
	AvgExecTime    time.Duration

	registeredAt time.Time
}

// available reports whether the agent can accept a task right now.
func (a *Agent) available() bool {
	return (a.Status == StatusIdle || a.Status == StatusActive) && a.CurrentTask == ""
}

// recordExecution folds one execution duration into the rolling average.
func (a *Agent) recordExecution(d time.Duration) {
	if a.AvgExecTime == 0 {
		a.AvgExecTime = d
		return
	}
	a.AvgExecTime = time.Duration(float64(a.AvgExecTime)*(1-avgAlpha) + float64(d)*avgAlpha)
}

// Info is the externally visible view of an agent.
type Info struct {
	Name           string
	Type           string
	Status         Status
	Capabilities   []string
	LastHeartbeat  time.Time
	CurrentTask    string
	CompletedCount int
	FailedCount    int
	AvgExecTime    time.Duration
}

// info copies the externally visible fields.
func (a *Agent) info() Info {
	caps := make([]string, len(a.Capabilities))
	copy(caps, a.Capabilities)
	return Info{
		Name:           a.Name,
		Type:           a.Type,
		Status:         a.Status,
		Capabilities:   caps,
		LastHeartbeat:  a.LastHeartbeat,
		CurrentTask:    a.CurrentTask,
		CompletedCount: a.CompletedCount,
		FailedCount:    a.FailedCount,
		AvgExecTime:    a.AvgExecTime,
	}
}
