// ABOUTME: Tracks registered agents, their health, and their current assignment.
// ABOUTME: Central coordinator for agent selection and release during dispatch.

package agent

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrDuplicateAgent indicates an agent with the same name is already registered.
var ErrDuplicateAgent = errors.New("agent already registered")

// ErrAgentNotFound indicates the specified agent was not found.
var ErrAgentNotFound = errors.New("agent not found")

// Registry coordinates all registered agents and hands out assignments.
type Registry struct {
	agents map[string]*Agent
	// order preserves registration order so FindAvailable is deterministic.
	order  []string
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewRegistry creates a new Registry instance.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		agents: make(map[string]*Agent),
		logger: logger.With("component", "agent-registry"),
	}
}

// Register adds a new agent in IDLE state.
// Returns ErrDuplicateAgent if an agent with the same name exists.
func (r *Registry) Register(name, agentType string, capabilities []string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("agent %q: handler is required", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[name]; exists {
		return ErrDuplicateAgent
	}

	now := time.Now()
	r.agents[name] = &Agent{
		Name:          name,
		Type:          agentType,
		Capabilities:  capabilities,
		Handler:       handler,
		Status:        StatusIdle,
		LastHeartbeat: now,
		registeredAt:  now,
	}
	r.order = append(r.order, name)

	r.logger.Info("agent registered",
		"agent", name,
		"type", agentType,
		"capabilities", capabilities,
		"total_agents", len(r.agents),
	)
	return nil
}

// Unregister removes an agent. It returns the id of the agent's in-flight
// task, if any, so the caller can cancel it first.
func (r *Registry) Unregister(name string) (inFlight string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, exists := r.agents[name]
	if !exists {
		return "", ErrAgentNotFound
	}

	inFlight = a.CurrentTask
	delete(r.agents, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.logger.Info("agent unregistered",
		"agent", name,
		"total_agents", len(r.agents),
	)
	return inFlight, nil
}

// FindAvailable returns the name of the first idle agent of the given type,
// in registration order. Returns "" if no agent is available.
func (r *Registry) FindAvailable(agentType string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		a := r.agents[name]
		if a.Type == agentType && a.available() {
			return name
		}
	}
	return ""
}

// Assign marks an agent BUSY with the given task. It fails if the agent is
// unknown or no longer available, so a racing heartbeat eviction cannot
// produce a double assignment.
func (r *Registry) Assign(name, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, exists := r.agents[name]
	if !exists {
		return ErrAgentNotFound
	}
	if !a.available() {
		return fmt.Errorf("agent %q is not available", name)
	}

	a.Status = StatusBusy
	a.CurrentTask = taskID
	return nil
}

// Release clears an agent's assignment and returns it to IDLE. Releasing an
// unknown agent is a no-op: the agent may have been unregistered while its
// task was still running.
func (r *Registry) Release(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, exists := r.agents[name]
	if !exists {
		return
	}

	a.CurrentTask = ""
	if a.Status == StatusBusy {
		a.Status = StatusIdle
	}
}

// RecordSuccess updates statistics after a completed execution and releases
// the agent.
func (r *Registry) RecordSuccess(name string, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, exists := r.agents[name]
	if !exists {
		return
	}

	a.CompletedCount++
	a.recordExecution(duration)
	a.CurrentTask = ""
	if a.Status == StatusBusy {
		a.Status = StatusIdle
	}
}

// RecordFailure updates statistics after a failed or timed-out execution and
// releases the agent.
func (r *Registry) RecordFailure(name string, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, exists := r.agents[name]
	if !exists {
		return
	}

	a.FailedCount++
	if duration > 0 {
		a.recordExecution(duration)
	}
	a.CurrentTask = ""
	if a.Status == StatusBusy {
		a.Status = StatusIdle
	}
}

// Heartbeat records a liveness signal. An agent in ERROR state is restored
// to IDLE by a fresh heartbeat.
func (r *Registry) Heartbeat(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, exists := r.agents[name]
	if !exists {
		return ErrAgentNotFound
	}

	a.LastHeartbeat = time.Now()
	if a.Status == StatusError {
		a.Status = StatusIdle
		r.logger.Info("agent recovered", "agent", name)
	}
	return nil
}

// MarkStale transitions every agent whose last heartbeat is older than the
// timeout into ERROR state and returns (name, in-flight task id) pairs for
// the agents that were holding a task so the caller can cancel them.
func (r *Registry) MarkStale(timeout time.Duration) map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stale := make(map[string]string)
	for _, a := range r.agents {
		if a.Status == StatusError {
			continue
		}
		if now.Sub(a.LastHeartbeat) <= timeout {
			continue
		}

		r.logger.Warn("agent heartbeat timed out",
			"agent", a.Name,
			"last_heartbeat", a.LastHeartbeat,
			"in_flight_task", a.CurrentTask,
		)
		stale[a.Name] = a.CurrentTask
		a.Status = StatusError
		a.CurrentTask = ""
	}
	return stale
}

// Handler returns the execution handler for the named agent.
func (r *Registry) Handler(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, exists := r.agents[name]
	if !exists {
		return nil, ErrAgentNotFound
	}
	return a.Handler, nil
}

// Get retrieves a snapshot of a specific agent by name.
func (r *Registry) Get(name string) (Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, exists := r.agents[name]
	if !exists {
		return Info{}, ErrAgentNotFound
	}
	return a.info(), nil
}

// List returns snapshots of all agents in registration order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.agents))
	for _, name := range r.order {
		infos = append(infos, r.agents[name].info())
	}
	return infos
}

// Counts returns the total number of agents and how many are currently busy.
func (r *Registry) Counts() (total, busy int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.agents {
		if a.Status == StatusBusy {
			busy++
		}
	}
	return len(r.agents), busy
}
