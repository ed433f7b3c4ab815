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

func requireDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

func TestNewBatch(t *testing.T) {
	medicineID := uuid.New()
	locationID := uuid.New()

	t.Run("creates a valid batch", func(t *testing.T) {
		expiry := time.Now().AddDate(1, 0, 0)
		batch, err := NewBatch(medicineID, locationID, LocationKindWarehouse, "LOT-2025-001",
			&expiry, decimal.NewFromInt(100), decimal.NewFromFloat(1.25))

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, batch.ID)
		assert.Equal(t, medicineID, batch.MedicineID)
		assert.Equal(t, "LOT-2025-001", batch.BatchNumber)
		assert.True(t, batch.QuantityOnHand.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, 1, batch.Version)
	})

	t.Run("allows zero quantity", func(t *testing.T) {
		batch, err := NewBatch(medicineID, locationID, LocationKindShop, "LOT-EMPTY",
			nil, decimal.Zero, decimal.Zero)

		require.NoError(t, err)
		assert.False(t, batch.HasStock())
	})

	t.Run("rejects empty medicine", func(t *testing.T) {
		_, err := NewBatch(uuid.Nil, locationID, LocationKindWarehouse, "LOT-1",
			nil, decimal.NewFromInt(1), decimal.Zero)
		require.Error(t, err)
		requireDomainCode(t, err, "INVALID_MEDICINE")
	})

	t.Run("rejects invalid location kind", func(t *testing.T) {
		_, err := NewBatch(medicineID, locationID, LocationKind("DEPOT"), "LOT-1",
			nil, decimal.NewFromInt(1), decimal.Zero)
		require.Error(t, err)
		requireDomainCode(t, err, "INVALID_LOCATION_KIND")
	})

	t.Run("rejects empty batch number", func(t *testing.T) {
		_, err := NewBatch(medicineID, locationID, LocationKindWarehouse, "",
			nil, decimal.NewFromInt(1), decimal.Zero)
		require.Error(t, err)
		requireDomainCode(t, err, "INVALID_BATCH_NUMBER")
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		_, err := NewBatch(medicineID, locationID, LocationKindWarehouse, "LOT-1",
			nil, decimal.NewFromInt(-5), decimal.Zero)
		require.Error(t, err)
		requireDomainCode(t, err, "INVALID_QUANTITY")
	})

	t.Run("rejects negative cost", func(t *testing.T) {
		_, err := NewBatch(medicineID, locationID, LocationKindWarehouse, "LOT-1",
			nil, decimal.NewFromInt(5), decimal.NewFromInt(-1))
		require.Error(t, err)
		requireDomainCode(t, err, "INVALID_COST")
	})
}

func TestBatch_Deduct(t *testing.T) {
	t.Run("deducts within available quantity", func(t *testing.T) {
		batch := newTestBatch(t, "LOT-1", nil, 10)
		before := batch.Version

		err := batch.Deduct(decimal.NewFromInt(4))

		require.NoError(t, err)
		assert.True(t, batch.QuantityOnHand.Equal(decimal.NewFromInt(6)))
		assert.Equal(t, before+1, batch.Version)
	})

	t.Run("deducts the full quantity to zero", func(t *testing.T) {
		batch := newTestBatch(t, "LOT-1", nil, 10)

		err := batch.Deduct(decimal.NewFromInt(10))

		require.NoError(t, err)
		assert.True(t, batch.QuantityOnHand.IsZero())
		assert.False(t, batch.HasStock())
	})

	t.Run("fails when quantity exceeds on hand", func(t *testing.T) {
		batch := newTestBatch(t, "LOT-1", nil, 10)

		err := batch.Deduct(decimal.NewFromInt(11))

		require.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.True(t, batch.QuantityOnHand.Equal(decimal.NewFromInt(10)))
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		batch := newTestBatch(t, "LOT-1", nil, 10)

		err := batch.Deduct(decimal.Zero)

		require.Error(t, err)
		requireDomainCode(t, err, "INVALID_QUANTITY")
	})
}

func TestBatch_Add(t *testing.T) {
	t.Run("adds quantity", func(t *testing.T) {
		batch := newTestBatch(t, "LOT-1", nil, 10)

		err := batch.Add(decimal.NewFromInt(5))

		require.NoError(t, err)
		assert.True(t, batch.QuantityOnHand.Equal(decimal.NewFromInt(15)))
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		batch := newTestBatch(t, "LOT-1", nil, 10)

		err := batch.Add(decimal.NewFromInt(-1))

		require.Error(t, err)
	})
}

func TestBatch_ApplyDelta(t *testing.T) {
	t.Run("applies a positive delta", func(t *testing.T) {
		batch := newTestBatch(t, "LOT-1", nil, 10)

		err := batch.ApplyDelta(decimal.NewFromInt(3))

		require.NoError(t, err)
		assert.True(t, batch.QuantityOnHand.Equal(decimal.NewFromInt(13)))
	})

	t.Run("applies a negative delta down to zero", func(t *testing.T) {
		batch := newTestBatch(t, "LOT-1", nil, 10)

		err := batch.ApplyDelta(decimal.NewFromInt(-10))

		require.NoError(t, err)
		assert.True(t, batch.QuantityOnHand.IsZero())
	})

	t.Run("refuses to go negative", func(t *testing.T) {
		batch := newTestBatch(t, "LOT-1", nil, 10)

		err := batch.ApplyDelta(decimal.NewFromInt(-11))

		require.ErrorIs(t, err, shared.ErrWouldGoNegative)
		assert.True(t, batch.QuantityOnHand.Equal(decimal.NewFromInt(10)))
	})
}

func TestBatch_IsExpired(t *testing.T) {
	t.Run("past expiry is expired", func(t *testing.T) {
		past := time.Now().AddDate(0, 0, -1)
		batch := newTestBatch(t, "LOT-1", &past, 10)
		assert.True(t, batch.IsExpired())
	})

	t.Run("future expiry is not expired", func(t *testing.T) {
		future := time.Now().AddDate(0, 1, 0)
		batch := newTestBatch(t, "LOT-1", &future, 10)
		assert.False(t, batch.IsExpired())
	})

	t.Run("no expiry never expires", func(t *testing.T) {
		batch := newTestBatch(t, "LOT-1", nil, 10)
		assert.False(t, batch.IsExpired())
	})
}

func TestBatch_AssignRack(t *testing.T) {
	batch := newTestBatch(t, "LOT-1", nil, 10)

	batch.AssignRack("A-03-2")

	assert.Equal(t, "A-03-2", batch.Rack)
	assert.True(t, batch.QuantityOnHand.Equal(decimal.NewFromInt(10)))
}

func TestBatch_TotalValue(t *testing.T) {
	batch, err := NewBatch(uuid.New(), uuid.New(), LocationKindWarehouse, "LOT-1",
		nil, decimal.NewFromInt(4), decimal.NewFromFloat(2.5))
	require.NoError(t, err)

	assert.True(t, batch.TotalValue().Equal(decimal.NewFromInt(10)))
}
