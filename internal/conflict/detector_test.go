// ABOUTME: Tests for resource conflict detection between mutating tasks.
// ABOUTME: Covers key derivation, mutating-kind registration, and advisory pass-through.

package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DansiDanutz/zmart-orchestrator/internal/task"
)

func tradeTask(symbol, owner string) *task.Task {
	return task.New("trade", "trader", map[string]any{
		"symbol":  symbol,
		"ownerId": owner,
	}, task.PriorityNormal)
}

func TestConflicts_SameResource(t *testing.T) {
	d := NewDetector("trade")

	first := tradeTask("BTC", "u1")
	second := tradeTask("BTC", "u1")

	assert.True(t, d.Conflicts(second, []*task.Task{first}))
}

func TestConflicts_DifferentResource(t *testing.T) {
	d := NewDetector("trade")

	btc := tradeTask("BTC", "u1")
	eth := tradeTask("ETH", "u1")
	otherOwner := tradeTask("BTC", "u2")

	assert.False(t, d.Conflicts(eth, []*task.Task{btc}))
	assert.False(t, d.Conflicts(otherOwner, []*task.Task{btc}))
}

func TestConflicts_NonMutatingKindsAlwaysPass(t *testing.T) {
	d := NewDetector("trade")

	mutating := tradeTask("BTC", "u1")
	analysis := task.New("analyze", "scorer", map[string]any{
		"symbol":  "BTC",
		"ownerId": "u1",
	}, task.PriorityNormal)

	// Read-only candidate against mutating in-flight
	assert.False(t, d.Conflicts(analysis, []*task.Task{mutating}))
	// Mutating candidate against read-only in-flight
	assert.False(t, d.Conflicts(mutating, []*task.Task{analysis}))
}

func TestConflicts_UnregisteredKindIsAdvisoryOnly(t *testing.T) {
	d := NewDetector()

	first := tradeTask("BTC", "u1")
	second := tradeTask("BTC", "u1")

	assert.False(t, d.Conflicts(second, []*task.Task{first}),
		"kinds not in the conflict table must always pass")

	d.RegisterMutatingKind("trade")
	assert.True(t, d.Conflicts(second, []*task.Task{first}))
}

func TestConflicts_NoResourceFields(t *testing.T) {
	d := NewDetector("trade")

	bare := task.New("trade", "trader", nil, task.PriorityNormal)
	other := task.New("trade", "trader", map[string]any{"note": "x"}, task.PriorityNormal)

	assert.False(t, d.Conflicts(bare, []*task.Task{other}))
}

func TestResourceKey(t *testing.T) {
	assert.Equal(t, "BTC/u1", ResourceKey(map[string]any{"symbol": "BTC", "ownerId": "u1"}))
	assert.Equal(t, "BTC/", ResourceKey(map[string]any{"symbol": "BTC"}))
	assert.Equal(t, "/u1", ResourceKey(map[string]any{"ownerId": "u1"}))
	assert.Equal(t, "", ResourceKey(nil))
	assert.Equal(t, "", ResourceKey(map[string]any{"symbol": 42}),
		"non-string resource fields are ignored")
}
