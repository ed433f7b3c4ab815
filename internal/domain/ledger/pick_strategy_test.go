package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBatch(t *testing.T, batchNumber string, expiry *time.Time, quantity int64) Batch {
	t.Helper()
	b, err := NewBatch(uuid.New(), uuid.New(), LocationKindWarehouse, batchNumber,
		expiry, decimal.NewFromInt(quantity), decimal.NewFromFloat(2.50))
	require.NoError(t, err)
	return *b
}

func dateOf(t *testing.T, value string) *time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return &d
}

func TestFEFOPickStrategy_Order(t *testing.T) {
	strategy := NewFEFOPickStrategy()

	t.Run("orders by expiry ascending", func(t *testing.T) {
		batches := []Batch{
			newTestBatch(t, "B2", dateOf(t, "2025-06-01"), 10),
			newTestBatch(t, "B1", dateOf(t, "2025-01-01"), 5),
			newTestBatch(t, "B3", dateOf(t, "2025-03-15"), 8),
		}

		sorted := strategy.Order(batches)

		assert.Equal(t, "B1", sorted[0].BatchNumber)
		assert.Equal(t, "B3", sorted[1].BatchNumber)
		assert.Equal(t, "B2", sorted[2].BatchNumber)
	})

	t.Run("batches without expiry sort last", func(t *testing.T) {
		batches := []Batch{
			newTestBatch(t, "NOEXP", nil, 10),
			newTestBatch(t, "B1", dateOf(t, "2025-12-01"), 5),
		}

		sorted := strategy.Order(batches)

		assert.Equal(t, "B1", sorted[0].BatchNumber)
		assert.Equal(t, "NOEXP", sorted[1].BatchNumber)
	})

	t.Run("ties break by batch number ascending", func(t *testing.T) {
		expiry := dateOf(t, "2025-05-01")
		batches := []Batch{
			newTestBatch(t, "B9", expiry, 10),
			newTestBatch(t, "B2", expiry, 5),
			newTestBatch(t, "B5", expiry, 7),
		}

		sorted := strategy.Order(batches)

		assert.Equal(t, "B2", sorted[0].BatchNumber)
		assert.Equal(t, "B5", sorted[1].BatchNumber)
		assert.Equal(t, "B9", sorted[2].BatchNumber)
	})

	t.Run("does not mutate the input slice", func(t *testing.T) {
		batches := []Batch{
			newTestBatch(t, "B2", dateOf(t, "2025-06-01"), 10),
			newTestBatch(t, "B1", dateOf(t, "2025-01-01"), 5),
		}

		strategy.Order(batches)

		assert.Equal(t, "B2", batches[0].BatchNumber)
	})
}

func TestFIFOPickStrategy_Order(t *testing.T) {
	strategy := NewFIFOPickStrategy()

	earliest := newTestBatch(t, "OLD", nil, 10)
	earliest.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	latest := newTestBatch(t, "NEW", nil, 10)
	latest.CreatedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	sorted := strategy.Order([]Batch{latest, earliest})

	assert.Equal(t, "OLD", sorted[0].BatchNumber)
	assert.Equal(t, "NEW", sorted[1].BatchNumber)
}

func TestStrategyFor(t *testing.T) {
	t.Run("returns FEFO strategy", func(t *testing.T) {
		s, err := StrategyFor(PickStrategyFEFO)
		require.NoError(t, err)
		assert.Equal(t, PickStrategyFEFO, s.StrategyType())
	})

	t.Run("returns FIFO strategy", func(t *testing.T) {
		s, err := StrategyFor(PickStrategyFIFO)
		require.NoError(t, err)
		assert.Equal(t, PickStrategyFIFO, s.StrategyType())
	})

	t.Run("rejects unknown strategy", func(t *testing.T) {
		s, err := StrategyFor("LIFO")
		require.Error(t, err)
		assert.Nil(t, s)
	})
}

func TestBuildPickPlan(t *testing.T) {
	t.Run("splits across batches in expiry order", func(t *testing.T) {
		b1 := newTestBatch(t, "B1", dateOf(t, "2025-01-01"), 5)
		b2 := newTestBatch(t, "B2", dateOf(t, "2025-06-01"), 10)

		plan, err := BuildPickPlan(decimal.NewFromInt(8), []Batch{b2, b1}, NewFEFOPickStrategy())

		require.NoError(t, err)
		require.Len(t, plan.Draws, 2)
		assert.Equal(t, b1.ID, plan.Draws[0].BatchID)
		assert.True(t, plan.Draws[0].Quantity.Equal(decimal.NewFromInt(5)))
		assert.Equal(t, b2.ID, plan.Draws[1].BatchID)
		assert.True(t, plan.Draws[1].Quantity.Equal(decimal.NewFromInt(3)))
		assert.True(t, plan.TotalPlanned.Equal(decimal.NewFromInt(8)))
		assert.True(t, plan.Draws[1].Remaining.Equal(decimal.NewFromInt(7)))
	})

	t.Run("single batch covers the full quantity", func(t *testing.T) {
		b1 := newTestBatch(t, "B1", dateOf(t, "2025-01-01"), 20)

		plan, err := BuildPickPlan(decimal.NewFromInt(8), []Batch{b1}, NewFEFOPickStrategy())

		require.NoError(t, err)
		require.Len(t, plan.Draws, 1)
		assert.True(t, plan.Draws[0].Quantity.Equal(decimal.NewFromInt(8)))
		assert.True(t, plan.Draws[0].Remaining.Equal(decimal.NewFromInt(12)))
	})

	t.Run("fails when total available is short", func(t *testing.T) {
		b1 := newTestBatch(t, "B1", dateOf(t, "2025-01-01"), 5)
		b2 := newTestBatch(t, "B2", dateOf(t, "2025-06-01"), 2)

		plan, err := BuildPickPlan(decimal.NewFromInt(10), []Batch{b1, b2}, NewFEFOPickStrategy())

		require.ErrorIs(t, err, shared.ErrInsufficientStock)
		require.NotNil(t, plan)
		assert.Empty(t, plan.Draws)
		assert.True(t, plan.TotalAvailable.Equal(decimal.NewFromInt(7)))
	})

	t.Run("skips drained batches", func(t *testing.T) {
		empty := newTestBatch(t, "EMPTY", dateOf(t, "2024-12-01"), 0)
		full := newTestBatch(t, "FULL", dateOf(t, "2025-06-01"), 10)

		plan, err := BuildPickPlan(decimal.NewFromInt(4), []Batch{empty, full}, NewFEFOPickStrategy())

		require.NoError(t, err)
		require.Len(t, plan.Draws, 1)
		assert.Equal(t, full.ID, plan.Draws[0].BatchID)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := BuildPickPlan(decimal.Zero, nil, NewFEFOPickStrategy())
		require.Error(t, err)
	})

	t.Run("defaults to FEFO when strategy is nil", func(t *testing.T) {
		b1 := newTestBatch(t, "B1", dateOf(t, "2025-01-01"), 5)
		b2 := newTestBatch(t, "B2", dateOf(t, "2025-06-01"), 5)

		plan, err := BuildPickPlan(decimal.NewFromInt(5), []Batch{b2, b1}, nil)

		require.NoError(t, err)
		require.Len(t, plan.Draws, 1)
		assert.Equal(t, b1.ID, plan.Draws[0].BatchID)
	})
}

func TestApplyPickPlan(t *testing.T) {
	t.Run("deducts every draw", func(t *testing.T) {
		b1 := newTestBatch(t, "B1", dateOf(t, "2025-01-01"), 5)
		b2 := newTestBatch(t, "B2", dateOf(t, "2025-06-01"), 10)
		plan, err := BuildPickPlan(decimal.NewFromInt(8), []Batch{b1, b2}, NewFEFOPickStrategy())
		require.NoError(t, err)

		err = ApplyPickPlan([]*Batch{&b1, &b2}, plan)

		require.NoError(t, err)
		assert.True(t, b1.QuantityOnHand.IsZero())
		assert.True(t, b2.QuantityOnHand.Equal(decimal.NewFromInt(7)))
	})

	t.Run("fails when a planned batch is missing", func(t *testing.T) {
		b1 := newTestBatch(t, "B1", dateOf(t, "2025-01-01"), 5)
		plan, err := BuildPickPlan(decimal.NewFromInt(3), []Batch{b1}, NewFEFOPickStrategy())
		require.NoError(t, err)

		err = ApplyPickPlan([]*Batch{}, plan)

		require.Error(t, err)
	})
}
