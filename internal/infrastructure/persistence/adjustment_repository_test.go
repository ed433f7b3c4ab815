package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/ledger"
	"github.com/pharmerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockAdjustmentRepository creates a GormAdjustmentRepository with a mocked SQL connection
func newMockAdjustmentRepository(t *testing.T) (*GormAdjustmentRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormAdjustmentRepository(gormDB), mock, mockDB
}

func adjustmentRows(adjustment *ledger.StockAdjustment) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "created_at", "updated_at",
		"batch_id", "medicine_id", "location_id", "location_kind",
		"delta", "reason", "actor", "adjusted_at",
	}).AddRow(
		adjustment.ID, adjustment.CreatedAt, adjustment.UpdatedAt,
		adjustment.BatchID, adjustment.MedicineID, adjustment.LocationID, string(adjustment.LocationKind),
		adjustment.Delta, adjustment.Reason, adjustment.Actor, adjustment.AdjustedAt,
	)
}

func auditedAdjustment(t *testing.T) *ledger.StockAdjustment {
	t.Helper()
	batch, err := ledger.NewBatch(
		uuid.New(), uuid.New(), ledger.LocationKindWarehouse,
		"LOT-AUDIT", nil, decimal.NewFromInt(30), decimal.NewFromFloat(1.50),
	)
	require.NoError(t, err)

	adjustment, err := ledger.NewStockAdjustment(batch, decimal.NewFromInt(-3), "cycle count variance", "warehouse.clerk")
	require.NoError(t, err)
	return adjustment
}

func TestGormAdjustmentRepository_Create(t *testing.T) {
	t.Run("inserts an audit row", func(t *testing.T) {
		repo, mock, mockDB := newMockAdjustmentRepository(t)
		defer mockDB.Close()

		adjustment := auditedAdjustment(t)

		mock.ExpectExec(`INSERT INTO "stock_adjustments"`).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.Create(context.Background(), adjustment)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAdjustmentRepository_FindByID(t *testing.T) {
	t.Run("finds existing adjustment", func(t *testing.T) {
		repo, mock, mockDB := newMockAdjustmentRepository(t)
		defer mockDB.Close()

		adjustment := auditedAdjustment(t)

		mock.ExpectQuery(`SELECT \* FROM "stock_adjustments" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(adjustment.ID, 1).
			WillReturnRows(adjustmentRows(adjustment))

		found, err := repo.FindByID(context.Background(), adjustment.ID)

		require.NoError(t, err)
		assert.Equal(t, adjustment.ID, found.ID)
		assert.Equal(t, "cycle count variance", found.Reason)
		assert.True(t, found.Delta.Equal(decimal.NewFromInt(-3)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for missing adjustment", func(t *testing.T) {
		repo, mock, mockDB := newMockAdjustmentRepository(t)
		defer mockDB.Close()

		adjustmentID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "stock_adjustments" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(adjustmentID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		found, err := repo.FindByID(context.Background(), adjustmentID)

		assert.Nil(t, found)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAdjustmentRepository_FindByBatch(t *testing.T) {
	t.Run("orders by adjustment time descending", func(t *testing.T) {
		repo, mock, mockDB := newMockAdjustmentRepository(t)
		defer mockDB.Close()

		adjustment := auditedAdjustment(t)

		mock.ExpectQuery(`SELECT \* FROM "stock_adjustments" WHERE batch_id = \$1 ORDER BY adjusted_at DESC LIMIT .*`).
			WithArgs(adjustment.BatchID, 20).
			WillReturnRows(adjustmentRows(adjustment))

		adjustments, err := repo.FindByBatch(context.Background(), adjustment.BatchID, shared.DefaultFilter())

		require.NoError(t, err)
		require.Len(t, adjustments, 1)
		assert.Equal(t, adjustment.BatchID, adjustments[0].BatchID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAdjustmentRepository_CountByLocation(t *testing.T) {
	t.Run("counts adjustments at a location", func(t *testing.T) {
		repo, mock, mockDB := newMockAdjustmentRepository(t)
		defer mockDB.Close()

		locationID := uuid.New()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "stock_adjustments" WHERE location_id = \$1`).
			WithArgs(locationID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(4)))

		count, err := repo.CountByLocation(context.Background(), locationID)

		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
