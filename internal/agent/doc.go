// Package agent manages the worker registry for the orchestration core.
//
// # Overview
//
// The agent package tracks registered workers, their declared type and
// capabilities, their health, and their current assignment. Concrete agent
// behavior lives behind the Handler interface; the core never looks inside.
//
// # Registry
//
// The Registry tracks all registered agents:
//
//	reg := agent.NewRegistry(logger)
//
// Key operations:
//
//   - Register(name, type, caps, handler): add a worker in IDLE state
//   - Unregister(name): remove a worker, surfacing its in-flight task
//   - FindAvailable(type): pick the first idle worker, registration order
//   - Assign / Release: tie and untie an agent to exactly one task
//   - Heartbeat(name): record liveness; recovers ERROR agents to IDLE
//   - MarkStale(timeout): evict agents whose heartbeat lapsed
//
// # Invariant
//
// An agent has CurrentTask set if and only if its status is BUSY. Assign
// sets both together; Release, RecordSuccess, and RecordFailure clear both
// together. MarkStale clears the assignment while parking the agent in
// ERROR so the scheduler never selects it.
//
// # Selection determinism
//
// Among equally eligible agents, FindAvailable returns the earliest
// registered one. This keeps dispatch order reproducible in tests.
//
// # Thread safety
//
// The Registry is thread-safe. A single mutex protects the agent table;
// callers only ever receive Info copies, never live records.
package agent
