// ABOUTME: Tests for the agent registry covering registration, selection, and liveness.
// ABOUTME: Validates the BUSY/CurrentTask invariant and deterministic selection order.

package agent

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func noopHandler() Handler {
	return HandlerFunc(func(ctx context.Context, kind string, payload map[string]any) (any, error) {
		return nil, nil
	})
}

func TestRegister(t *testing.T) {
	t.Run("registers agent in idle state", func(t *testing.T) {
		r := NewRegistry(slog.Default())
		if err := r.Register("trader-1", "trader", []string{"trade"}, noopHandler()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		info, err := r.Get("trader-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.Status != StatusIdle {
			t.Errorf("status = %s, want idle", info.Status)
		}
		if info.CurrentTask != "" {
			t.Error("new agent should have no current task")
		}
	})

	t.Run("rejects duplicate name", func(t *testing.T) {
		r := NewRegistry(slog.Default())
		if err := r.Register("trader-1", "trader", nil, noopHandler()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		err := r.Register("trader-1", "scorer", nil, noopHandler())
		if !errors.Is(err, ErrDuplicateAgent) {
			t.Errorf("error = %v, want ErrDuplicateAgent", err)
		}
	})

	t.Run("rejects nil handler", func(t *testing.T) {
		r := NewRegistry(slog.Default())
		if err := r.Register("trader-1", "trader", nil, nil); err == nil {
			t.Error("expected error for nil handler")
		}
	})
}

func TestFindAvailable(t *testing.T) {
	t.Run("returns earliest registered matching agent", func(t *testing.T) {
		r := NewRegistry(slog.Default())
		mustRegister(t, r, "trader-1", "trader")
		mustRegister(t, r, "trader-2", "trader")
		mustRegister(t, r, "scorer-1", "scorer")

		if got := r.FindAvailable("trader"); got != "trader-1" {
			t.Errorf("got %q, want trader-1", got)
		}
	})

	t.Run("skips busy agents", func(t *testing.T) {
		r := NewRegistry(slog.Default())
		mustRegister(t, r, "trader-1", "trader")
		mustRegister(t, r, "trader-2", "trader")

		if err := r.Assign("trader-1", "task-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := r.FindAvailable("trader"); got != "trader-2" {
			t.Errorf("got %q, want trader-2", got)
		}
	})

	t.Run("returns empty when no match", func(t *testing.T) {
		r := NewRegistry(slog.Default())
		mustRegister(t, r, "scorer-1", "scorer")

		if got := r.FindAvailable("trader"); got != "" {
			t.Errorf("got %q, want empty", got)
		}
	})
}

func TestAssignRelease(t *testing.T) {
	t.Run("assign sets busy and current task together", func(t *testing.T) {
		r := NewRegistry(slog.Default())
		mustRegister(t, r, "trader-1", "trader")

		if err := r.Assign("trader-1", "task-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		info, _ := r.Get("trader-1")
		if info.Status != StatusBusy || info.CurrentTask != "task-1" {
			t.Errorf("got status=%s task=%q, want busy/task-1", info.Status, info.CurrentTask)
		}
	})

	t.Run("double assign fails", func(t *testing.T) {
		r := NewRegistry(slog.Default())
		mustRegister(t, r, "trader-1", "trader")

		if err := r.Assign("trader-1", "task-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := r.Assign("trader-1", "task-2"); err == nil {
			t.Error("expected error assigning busy agent")
		}
	})

	t.Run("release clears both", func(t *testing.T) {
		r := NewRegistry(slog.Default())
		mustRegister(t, r, "trader-1", "trader")
		_ = r.Assign("trader-1", "task-1")

		r.Release("trader-1")
		info, _ := r.Get("trader-1")
		if info.Status != StatusIdle || info.CurrentTask != "" {
			t.Errorf("got status=%s task=%q, want idle/none", info.Status, info.CurrentTask)
		}
	})
}

func TestStats(t *testing.T) {
	r := NewRegistry(slog.Default())
	mustRegister(t, r, "trader-1", "trader")

	_ = r.Assign("trader-1", "task-1")
	r.RecordSuccess("trader-1", 100*time.Millisecond)
	_ = r.Assign("trader-1", "task-2")
	r.RecordFailure("trader-1", 200*time.Millisecond)

	info, _ := r.Get("trader-1")
	if info.CompletedCount != 1 || info.FailedCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", info.CompletedCount, info.FailedCount)
	}
	if info.AvgExecTime <= 100*time.Millisecond || info.AvgExecTime >= 200*time.Millisecond {
		t.Errorf("avg = %s, want between first and second durations", info.AvgExecTime)
	}
	if info.Status != StatusIdle {
		t.Errorf("status = %s, want idle after stats update", info.Status)
	}
}

func TestHeartbeat(t *testing.T) {
	t.Run("unknown agent", func(t *testing.T) {
		r := NewRegistry(slog.Default())
		if err := r.Heartbeat("ghost"); !errors.Is(err, ErrAgentNotFound) {
			t.Errorf("error = %v, want ErrAgentNotFound", err)
		}
	})

	t.Run("recovers agent from error state", func(t *testing.T) {
		r := NewRegistry(slog.Default())
		mustRegister(t, r, "trader-1", "trader")

		time.Sleep(5 * time.Millisecond)
		stale := r.MarkStale(time.Millisecond)
		if _, ok := stale["trader-1"]; !ok {
			t.Fatal("expected trader-1 marked stale")
		}
		info, _ := r.Get("trader-1")
		if info.Status != StatusError {
			t.Fatalf("status = %s, want error", info.Status)
		}

		if err := r.Heartbeat("trader-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		info, _ = r.Get("trader-1")
		if info.Status != StatusIdle {
			t.Errorf("status = %s, want idle after heartbeat", info.Status)
		}
	})
}

func TestMarkStale(t *testing.T) {
	t.Run("surfaces in-flight task and clears assignment", func(t *testing.T) {
		r := NewRegistry(slog.Default())
		mustRegister(t, r, "trader-1", "trader")
		_ = r.Assign("trader-1", "task-1")

		time.Sleep(5 * time.Millisecond)
		stale := r.MarkStale(time.Millisecond)
		if stale["trader-1"] != "task-1" {
			t.Errorf("stale = %v, want trader-1 -> task-1", stale)
		}
		info, _ := r.Get("trader-1")
		if info.CurrentTask != "" {
			t.Error("stale agent should have no current task")
		}
		if got := r.FindAvailable("trader"); got != "" {
			t.Error("error agent must not be selectable")
		}
	})

	t.Run("skips fresh and already-errored agents", func(t *testing.T) {
		r := NewRegistry(slog.Default())
		mustRegister(t, r, "trader-1", "trader")

		if stale := r.MarkStale(time.Hour); len(stale) != 0 {
			t.Errorf("fresh agent marked stale: %v", stale)
		}

		time.Sleep(5 * time.Millisecond)
		_ = r.MarkStale(time.Millisecond)
		if stale := r.MarkStale(time.Millisecond); len(stale) != 0 {
			t.Errorf("errored agent marked stale again: %v", stale)
		}
	})
}

func TestUnregister(t *testing.T) {
	r := NewRegistry(slog.Default())
	mustRegister(t, r, "trader-1", "trader")
	_ = r.Assign("trader-1", "task-1")

	inFlight, err := r.Unregister("trader-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inFlight != "task-1" {
		t.Errorf("inFlight = %q, want task-1", inFlight)
	}
	if _, err := r.Get("trader-1"); !errors.Is(err, ErrAgentNotFound) {
		t.Error("agent should be gone")
	}
	if _, err := r.Unregister("trader-1"); !errors.Is(err, ErrAgentNotFound) {
		t.Error("second unregister should report not found")
	}
}

func TestCounts(t *testing.T) {
	r := NewRegistry(slog.Default())
	mustRegister(t, r, "trader-1", "trader")
	mustRegister(t, r, "trader-2", "trader")
	_ = r.Assign("trader-1", "task-1")

	total, busy := r.Counts()
	if total != 2 || busy != 1 {
		t.Errorf("counts = %d/%d, want 2/1", total, busy)
	}
}

func mustRegister(t *testing.T, r *Registry, name, agentType string) {
	t.Helper()
	if err := r.Register(name, agentType, nil, noopHandler()); err != nil {
		t.Fatalf("registering %s: %v", name, err)
	}
}
