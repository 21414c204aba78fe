// ABOUTME: Heartbeat monitor evicting stale agents and cancelling their in-flight work.
// ABOUTME: Also hosts the retention sweep and periodic metrics publication loops.

package orchestrator

import (
	"context"
	"time"

	"github.com/DansiDanutz/zmart-orchestrator/internal/events"
	"github.com/DansiDanutz/zmart-orchestrator/internal/metrics"
)

// metricsInterval is how often the gauge snapshot is published.
const metricsInterval = 15 * time.Second

// checkHeartbeats marks agents whose heartbeat lapsed as ERROR and cancels
// any task they were holding. The agent slot is released by the registry
// regardless of what the handler does.
func (o *Orchestrator) checkHeartbeats() {
	stale := o.registry.MarkStale(o.cfg.Agents.HeartbeatTimeout)
	for name, taskID := range stale {
		o.emit(events.Event{Type: events.TypeAgentError, AgentID: name, Detail: "heartbeat timeout"})
		if taskID != "" {
			o.cancelOrphaned(taskID, name, "agent heartbeat timeout")
		}
	}
}

// heartbeatLoop polls agent liveness on the configured interval.
func (o *Orchestrator) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(o.cfg.Agents.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			o.checkHeartbeats()
		}
	}
}

// sweepRetention evicts expired tasks from the archive and expired entries
// from the journal.
func (o *Orchestrator) sweepRetention(ctx context.Context) {
	evicted := o.archive.Sweep()
	if evicted > 0 {
		o.logger.Info("archive sweep", "evicted", evicted)
	}

	if o.journal != nil {
		cutoff := time.Now().Add(-o.cfg.Retention.TTL)
		deleted, err := o.journal.DeleteExpired(ctx, cutoff)
		if err != nil {
			o.logger.Warn("journal sweep failed", "error", err)
		} else if deleted > 0 {
			o.logger.Info("journal sweep", "deleted", deleted)
		}
	}
}

// retentionLoop runs the archive and journal sweeps on the configured
// interval.
func (o *Orchestrator) retentionLoop(ctx context.Context) error {
	interval := o.cfg.Retention.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			o.sweepRetention(ctx)
		}
	}
}

// publishMetrics pushes the current gauge snapshot to the sink.
func (o *Orchestrator) publishMetrics() {
	status := o.GetSystemStatus()
	o.sink.RecordGauges(metrics.Snapshot{
		TotalAgents:    status.TotalAgents,
		ActiveAgents:   status.ActiveAgents,
		PendingTasks:   status.PendingCount,
		ActiveTasks:    status.ActiveCount,
		CompletedTasks: status.CompletedCount,
	})
}

// metricsLoop publishes gauges periodically.
func (o *Orchestrator) metricsLoop(ctx context.Context) error {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			o.publishMetrics()
		}
	}
}
