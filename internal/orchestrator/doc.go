// Package orchestrator is the task orchestration core: a central dispatcher
// that accepts heterogeneous units of work, matches each to a capable agent,
// enforces priority ordering, prevents conflicting work from running
// concurrently, and manages failure, retry, and timeout semantics.
//
// # Control flow
//
// A caller submits a task → the conflict detector screens it → it enters
// the pending queue ordered by priority and scheduled time → the scheduler
// loop assigns it to an idle, matching agent → the executor runs it under
// the task's timeout → on completion/failure/timeout the task is finalized
// or re-enqueued (bounded retries) → the registry releases the agent. The
// heartbeat monitor independently polls agent liveness and can pre-empt this
// flow.
//
// # State ownership
//
// The pending queue, active map, and archive are owned by the Orchestrator
// behind one mutex; the agent table is owned by the Registry behind its
// own. Lock order is always orchestrator then registry, and the registry
// never calls back into the orchestrator. Submission, cancellation, and
// status queries are safe from any goroutine.
//
// # Dispatch policy
//
// Each scheduler pass assigns at most one task, keeping ordering among
// simultaneously eligible tasks strict: higher priority first, then earlier
// scheduled time, then submission order. Submission and completion
// edge-trigger additional passes, so a pass-per-assignment policy does not
// cost throughput the way a pure one-per-second tick would.
//
// # Failure semantics
//
// Handler errors are retried up to the task's MaxRetries and then surface
// as terminal FAILED status. Timeouts are always terminal: the handler may
// still be running, and a retry would risk duplicate side effects. The
// agent slot is released on the deadline no matter what the handler does.
// Heartbeat-evicted and unregistered agents have their in-flight task
// finalized as CANCELLED.
package orchestrator
