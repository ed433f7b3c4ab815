package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/fulfillment"
	"github.com/pharmerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAllocation(t *testing.T, requestID uuid.UUID) *fulfillment.Allocation {
	t.Helper()
	allocation, err := fulfillment.NewAllocation(requestID, uuid.New(), uuid.New(), uuid.New(), []fulfillment.ReservationInput{
		{BatchID: uuid.New(), BatchNumber: "LOT-1", Quantity: decimal.NewFromInt(5), UnitCost: decimal.NewFromFloat(2.20)},
		{BatchID: uuid.New(), BatchNumber: "LOT-2", Quantity: decimal.NewFromInt(3), UnitCost: decimal.NewFromFloat(2.35)},
	})
	require.NoError(t, err)
	return allocation
}

func TestGormAllocationRepository_SaveAndFind(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	repo := NewGormAllocationRepository(db)
	ctx := context.Background()

	t.Run("saves allocation with reservations and reloads them", func(t *testing.T) {
		allocation := newTestAllocation(t, uuid.New())

		err := repo.Save(ctx, allocation)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, allocation.ID)
		require.NoError(t, err)
		assert.Equal(t, allocation.ID, found.ID)
		assert.Equal(t, fulfillment.AllocationStatusReserved, found.Status)
		assert.True(t, found.Quantity.Equal(decimal.NewFromInt(8)))
		require.Len(t, found.Reservations, 2)
	})

	t.Run("returns not found for unknown ID", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormAllocationRepository_FindLiveByRequest(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	repo := NewGormAllocationRepository(db)
	ctx := context.Background()

	requestID := uuid.New()

	live := newTestAllocation(t, requestID)
	require.NoError(t, repo.Save(ctx, live))

	consumed := newTestAllocation(t, requestID)
	require.NoError(t, consumed.Consume())
	require.NoError(t, repo.Save(ctx, consumed))

	released := newTestAllocation(t, requestID)
	require.NoError(t, released.Release())
	require.NoError(t, repo.Save(ctx, released))

	t.Run("returns only reserved allocations", func(t *testing.T) {
		allocations, err := repo.FindLiveByRequest(ctx, requestID)
		require.NoError(t, err)
		require.Len(t, allocations, 1)
		assert.Equal(t, live.ID, allocations[0].ID)
		assert.Len(t, allocations[0].Reservations, 2)
	})

	t.Run("FindByRequest returns every allocation", func(t *testing.T) {
		allocations, err := repo.FindByRequest(ctx, requestID)
		require.NoError(t, err)
		assert.Len(t, allocations, 3)
	})

	t.Run("counts live allocations", func(t *testing.T) {
		count, err := repo.CountLiveByRequest(ctx, requestID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		count, err = repo.CountLiveByRequest(ctx, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}

func TestGormAllocationRepository_StatusTransitionsPersist(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	repo := NewGormAllocationRepository(db)
	ctx := context.Background()

	allocation := newTestAllocation(t, uuid.New())
	require.NoError(t, repo.Save(ctx, allocation))

	require.NoError(t, allocation.Consume())
	require.NoError(t, repo.Save(ctx, allocation))

	found, err := repo.FindByID(ctx, allocation.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.AllocationStatusConsumed, found.Status)
}
