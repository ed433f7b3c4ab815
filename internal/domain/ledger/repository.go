package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/shared"
)

// BatchRepository defines the interface for batch persistence.
// All quantity mutations flow through the ledger application service, which
// holds the per-(location, medicine) lock while loading and saving batches.
type BatchRepository interface {
	// FindByID finds a batch by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Batch, error)

	// FindByLocationAndMedicine finds all batches for a medicine at a location,
	// ordered by expiry ascending then batch number
	FindByLocationAndMedicine(ctx context.Context, locationID, medicineID uuid.UUID) ([]Batch, error)

	// FindByIdentity finds the batch matching (medicine, location, batch number)
	FindByIdentity(ctx context.Context, medicineID, locationID uuid.UUID, batchNumber string) (*Batch, error)

	// FindByLocation finds all batches at a location
	FindByLocation(ctx context.Context, locationID uuid.UUID, filter shared.Filter) ([]Batch, error)

	// FindExpiringSoon finds batches with stock expiring within the given days
	FindExpiringSoon(ctx context.Context, withinDays int, filter shared.Filter) ([]Batch, error)

	// Save creates or updates a batch
	Save(ctx context.Context, batch *Batch) error

	// SaveWithLock saves with optimistic locking (checks version)
	SaveWithLock(ctx context.Context, batch *Batch) error

	// CountByLocation counts batches at a location
	CountByLocation(ctx context.Context, locationID uuid.UUID) (int64, error)
}

// AdjustmentRepository defines the interface for adjustment audit persistence
type AdjustmentRepository interface {
	// FindByID finds an adjustment by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockAdjustment, error)

	// FindByBatch finds adjustments for a batch
	FindByBatch(ctx context.Context, batchID uuid.UUID, filter shared.Filter) ([]StockAdjustment, error)

	// FindByLocation finds adjustments for a location
	FindByLocation(ctx context.Context, locationID uuid.UUID, filter shared.Filter) ([]StockAdjustment, error)

	// Create appends a new adjustment record (no update allowed)
	Create(ctx context.Context, adjustment *StockAdjustment) error

	// CountByLocation counts adjustments at a location
	CountByLocation(ctx context.Context, locationID uuid.UUID) (int64, error)
}
