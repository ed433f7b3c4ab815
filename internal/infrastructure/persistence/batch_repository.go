package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/ledger"
	"github.com/pharmerp/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormBatchRepository implements BatchRepository using GORM
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// FindByID finds a batch by its ID
func (r *GormBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Batch, error) {
	var batch ledger.Batch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindByLocationAndMedicine finds all batches for a medicine at a location,
// earliest expiry first with null expiry sorted last.
func (r *GormBatchRepository) FindByLocationAndMedicine(ctx context.Context, locationID, medicineID uuid.UUID) ([]ledger.Batch, error) {
	var batches []ledger.Batch
	if err := r.db.WithContext(ctx).
		Where("location_id = ? AND medicine_id = ?", locationID, medicineID).
		Order("COALESCE(expiry_date, '9999-12-31') ASC, batch_number ASC").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// FindByIdentity finds the batch matching (medicine, location, batch number)
func (r *GormBatchRepository) FindByIdentity(ctx context.Context, medicineID, locationID uuid.UUID, batchNumber string) (*ledger.Batch, error) {
	var batch ledger.Batch
	if err := r.db.WithContext(ctx).
		Where("medicine_id = ? AND location_id = ? AND batch_number = ?", medicineID, locationID, batchNumber).
		First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindByLocation finds all batches at a location
func (r *GormBatchRepository) FindByLocation(ctx context.Context, locationID uuid.UUID, filter shared.Filter) ([]ledger.Batch, error) {
	var batches []ledger.Batch
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&ledger.Batch{}).
			Where("location_id = ?", locationID),
		filter,
	)
	if err := query.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// FindExpiringSoon finds batches with stock expiring within the given days
func (r *GormBatchRepository) FindExpiringSoon(ctx context.Context, withinDays int, filter shared.Filter) ([]ledger.Batch, error) {
	var batches []ledger.Batch
	now := time.Now()
	threshold := now.AddDate(0, 0, withinDays)

	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&ledger.Batch{}).
			Where("quantity_on_hand > 0").
			Where("expiry_date IS NOT NULL").
			Where("expiry_date > ? AND expiry_date <= ?", now, threshold),
		filter,
	)
	if err := query.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// Save creates or updates a batch
func (r *GormBatchRepository) Save(ctx context.Context, batch *ledger.Batch) error {
	return r.db.WithContext(ctx).Save(batch).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormBatchRepository) SaveWithLock(ctx context.Context, batch *ledger.Batch) error {
	result := r.db.WithContext(ctx).
		Model(batch).
		Where("id = ? AND version = ?", batch.ID, batch.Version-1).
		Updates(map[string]interface{}{
			"quantity_on_hand": batch.QuantityOnHand,
			"unit_cost":        batch.UnitCost,
			"rack":             batch.Rack,
			"version":          batch.Version,
			"updated_at":       batch.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_FAILED", "Batch was modified by another transaction")
	}
	return nil
}

// CountByLocation counts batches at a location
func (r *GormBatchRepository) CountByLocation(ctx context.Context, locationID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&ledger.Batch{}).
		Where("location_id = ?", locationID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormBatchRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, BatchSortFields, "created_at")
		query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("COALESCE(expiry_date, '9999-12-31') ASC, batch_number ASC")
	}

	for key, value := range filter.Filters {
		switch key {
		case "medicine_id":
			query = query.Where("medicine_id = ?", value)
		case "location_kind":
			query = query.Where("location_kind = ?", value)
		case "has_stock":
			if value == true {
				query = query.Where("quantity_on_hand > 0")
			}
		case "expired":
			if value == true {
				query = query.Where("expiry_date IS NOT NULL AND expiry_date <= ?", time.Now())
			}
		}
	}

	return query
}

var _ ledger.BatchRepository = (*GormBatchRepository)(nil)
