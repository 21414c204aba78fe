// Package journal persists orchestrator lifecycle events to SQLite.
//
// Every notification the orchestrator emits (agent registrations, task
// submissions, completions, failures, cancellations) is also appended here,
// giving operators a durable audit trail per task and per agent. The journal
// is write-mostly: the core never reads it back to restore scheduling state,
// which stays strictly in memory.
//
// Entries expire with the same retention window as the in-memory archive;
// the orchestrator's retention sweep calls DeleteExpired.
package journal
