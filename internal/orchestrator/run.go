// ABOUTME: Lifecycle supervisor running the scheduler, heartbeat, retention, and metrics loops.
// ABOUTME: The loops are independent periodic activities that must never block each other.

package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Run starts the periodic loops and blocks until the context is cancelled.
// Each loop runs on its own goroutine; per-task failures are contained in
// the executor and can never halt scheduling. Returns nil on graceful
// shutdown.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	o.running = true
	o.mu.Unlock()

	o.logger.Info("orchestrator starting",
		"tick", o.cfg.Scheduler.Tick,
		"max_concurrent", o.cfg.Scheduler.MaxConcurrent,
		"heartbeat_timeout", o.cfg.Agents.HeartbeatTimeout,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.schedulerLoop(ctx) })
	g.Go(func() error { return o.heartbeatLoop(ctx) })
	g.Go(func() error { return o.retentionLoop(ctx) })
	g.Go(func() error { return o.metricsLoop(ctx) })

	err := g.Wait()

	o.mu.Lock()
	o.running = false
	// Abort the contexts of still-running handlers so goroutines can exit.
	for _, entry := range o.active {
		entry.cancel()
	}
	o.mu.Unlock()

	o.logger.Info("orchestrator stopped")
	return err
}
