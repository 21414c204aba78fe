// Package task defines the schedulable unit of work and its containers.
//
// # Task
//
// A Task carries a kind tag, a target agent type, an opaque payload, a
// priority, and retry/timeout bookkeeping. Its lifecycle is:
//
//	PENDING → ACTIVE → {COMPLETED | FAILED | TIMED_OUT | CANCELLED}
//
// with FAILED → PENDING permitted while RetryCount < MaxRetries.
//
// # Ownership
//
// From creation until retention eviction a task resides in exactly one of:
//
//   - the pending Queue (status PENDING)
//   - the orchestrator's active map (status ACTIVE)
//   - the Archive (terminal status)
//
// The orchestrator serializes all moves between containers under its lock.
//
// # Queue
//
// The Queue keeps PENDING tasks ordered by (priority descending, scheduled
// time ascending, submission order ascending). The scheduler scans it in
// order, skipping tasks whose scheduled time has not arrived.
//
// # Archive
//
// The Archive retains terminal tasks for status queries until a time-based
// retention window (default 24h) passes, with a hard size cap as backstop.
package task
