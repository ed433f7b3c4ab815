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

func newTestDispatch(t *testing.T, warehouseID, shopID uuid.UUID, requestID *uuid.UUID) *fulfillment.Dispatch {
	t.Helper()
	dispatch, err := fulfillment.NewDispatch(warehouseID, shopID, requestID, []fulfillment.DispatchLineInput{
		{
			MedicineID:    uuid.New(),
			SourceBatchID: uuid.New(),
			BatchNumber:   "LOT-A",
			Quantity:      decimal.NewFromInt(6),
			UnitCost:      decimal.NewFromFloat(1.75),
		},
		{
			MedicineID:    uuid.New(),
			SourceBatchID: uuid.New(),
			BatchNumber:   "LOT-B",
			Quantity:      decimal.NewFromInt(2),
			UnitCost:      decimal.NewFromFloat(4.10),
		},
	})
	require.NoError(t, err)
	return dispatch
}

func TestGormDispatchRepository_SaveAndFind(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	repo := NewGormDispatchRepository(db)
	ctx := context.Background()

	t.Run("saves dispatch with lines and reloads them", func(t *testing.T) {
		requestID := uuid.New()
		dispatch := newTestDispatch(t, uuid.New(), uuid.New(), &requestID)

		err := repo.Save(ctx, dispatch)
		require.NoError(t, err)

		found, err := repo.FindByID(ctx, dispatch.ID)
		require.NoError(t, err)
		assert.Equal(t, dispatch.ID, found.ID)
		assert.Equal(t, fulfillment.DispatchStatusCreated, found.Status)
		require.NotNil(t, found.RequestID)
		assert.Equal(t, requestID, *found.RequestID)
		require.Len(t, found.Lines, 2)
	})

	t.Run("ad-hoc dispatch keeps a nil request reference", func(t *testing.T) {
		dispatch := newTestDispatch(t, uuid.New(), uuid.New(), nil)
		require.NoError(t, repo.Save(ctx, dispatch))

		found, err := repo.FindByID(ctx, dispatch.ID)
		require.NoError(t, err)
		assert.Nil(t, found.RequestID)
	})

	t.Run("returns not found for unknown ID", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormDispatchRepository_ReceiptRoundTrip(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	repo := NewGormDispatchRepository(db)
	ctx := context.Background()

	dispatch := newTestDispatch(t, uuid.New(), uuid.New(), nil)
	require.NoError(t, repo.Save(ctx, dispatch))

	require.NoError(t, dispatch.MarkInTransit())
	require.NoError(t, repo.SaveWithLock(ctx, dispatch))

	for _, line := range dispatch.Lines {
		_, err := dispatch.ReceiveLine(line.ID, "R-07")
		require.NoError(t, err)
	}
	require.NoError(t, dispatch.MarkDelivered())
	require.NoError(t, repo.SaveWithLock(ctx, dispatch))

	found, err := repo.FindByID(ctx, dispatch.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.DispatchStatusDelivered, found.Status)
	require.NotNil(t, found.DeliveredAt)
	for _, line := range found.Lines {
		assert.True(t, line.Received)
		assert.Equal(t, "R-07", line.RackHint)
		require.NotNil(t, line.ReceivedAt)
	}
}

func TestGormDispatchRepository_SaveWithLock(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	repo := NewGormDispatchRepository(db)
	ctx := context.Background()

	dispatch := newTestDispatch(t, uuid.New(), uuid.New(), nil)
	require.NoError(t, repo.Save(ctx, dispatch))

	stale, err := repo.FindByID(ctx, dispatch.ID)
	require.NoError(t, err)

	require.NoError(t, dispatch.MarkInTransit())
	require.NoError(t, repo.SaveWithLock(ctx, dispatch))

	require.NoError(t, stale.MarkInTransit())
	err = repo.SaveWithLock(ctx, stale)
	requireDomainCode(t, err, "OPTIMISTIC_LOCK_FAILED")
}

func TestGormDispatchRepository_FindByRequest(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	repo := NewGormDispatchRepository(db)
	ctx := context.Background()

	requestID := uuid.New()
	linked := newTestDispatch(t, uuid.New(), uuid.New(), &requestID)
	require.NoError(t, repo.Save(ctx, linked))
	adHoc := newTestDispatch(t, uuid.New(), uuid.New(), nil)
	require.NoError(t, repo.Save(ctx, adHoc))

	dispatches, err := repo.FindByRequest(ctx, requestID)
	require.NoError(t, err)
	require.Len(t, dispatches, 1)
	assert.Equal(t, linked.ID, dispatches[0].ID)
	assert.Len(t, dispatches[0].Lines, 2)
}

func TestGormDispatchRepository_Filters(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	repo := NewGormDispatchRepository(db)
	ctx := context.Background()

	shopID := uuid.New()
	warehouseID := uuid.New()
	requestID := uuid.New()

	linked := newTestDispatch(t, warehouseID, shopID, &requestID)
	require.NoError(t, repo.Save(ctx, linked))
	adHoc := newTestDispatch(t, warehouseID, shopID, nil)
	require.NoError(t, repo.Save(ctx, adHoc))
	elsewhere := newTestDispatch(t, uuid.New(), uuid.New(), nil)
	require.NoError(t, repo.Save(ctx, elsewhere))

	t.Run("by shop", func(t *testing.T) {
		dispatches, err := repo.FindByShop(ctx, shopID, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Len(t, dispatches, 2)
	})

	t.Run("by warehouse with ad-hoc filter", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Filters = map[string]interface{}{"ad_hoc": true}
		dispatches, err := repo.FindByWarehouse(ctx, warehouseID, filter)
		require.NoError(t, err)
		require.Len(t, dispatches, 1)
		assert.Equal(t, adHoc.ID, dispatches[0].ID)
	})

	t.Run("count by status", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Filters = map[string]interface{}{"status": fulfillment.DispatchStatusCreated}
		count, err := repo.Count(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})
}
