package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/ledger"
	"github.com/pharmerp/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormAdjustmentRepository implements AdjustmentRepository using GORM.
// Adjustments are append-only; there is no update or delete path.
type GormAdjustmentRepository struct {
	db *gorm.DB
}

// NewGormAdjustmentRepository creates a new GormAdjustmentRepository
func NewGormAdjustmentRepository(db *gorm.DB) *GormAdjustmentRepository {
	return &GormAdjustmentRepository{db: db}
}

// FindByID finds an adjustment by its ID
func (r *GormAdjustmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.StockAdjustment, error) {
	var adjustment ledger.StockAdjustment
	if err := r.db.WithContext(ctx).First(&adjustment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &adjustment, nil
}

// FindByBatch finds adjustments for a batch
func (r *GormAdjustmentRepository) FindByBatch(ctx context.Context, batchID uuid.UUID, filter shared.Filter) ([]ledger.StockAdjustment, error) {
	var adjustments []ledger.StockAdjustment
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&ledger.StockAdjustment{}).
			Where("batch_id = ?", batchID),
		filter,
	)
	if err := query.Find(&adjustments).Error; err != nil {
		return nil, err
	}
	return adjustments, nil
}

// FindByLocation finds adjustments for a location
func (r *GormAdjustmentRepository) FindByLocation(ctx context.Context, locationID uuid.UUID, filter shared.Filter) ([]ledger.StockAdjustment, error) {
	var adjustments []ledger.StockAdjustment
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&ledger.StockAdjustment{}).
			Where("location_id = ?", locationID),
		filter,
	)
	if err := query.Find(&adjustments).Error; err != nil {
		return nil, err
	}
	return adjustments, nil
}

// Create appends a new adjustment record
func (r *GormAdjustmentRepository) Create(ctx context.Context, adjustment *ledger.StockAdjustment) error {
	return r.db.WithContext(ctx).Create(adjustment).Error
}

// CountByLocation counts adjustments at a location
func (r *GormAdjustmentRepository) CountByLocation(ctx context.Context, locationID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&ledger.StockAdjustment{}).
		Where("location_id = ?", locationID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormAdjustmentRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, AdjustmentSortFields, "adjusted_at")
		query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("adjusted_at DESC")
	}

	for key, value := range filter.Filters {
		switch key {
		case "medicine_id":
			query = query.Where("medicine_id = ?", value)
		case "reason":
			query = query.Where("reason = ?", value)
		}
	}

	return query
}

var _ ledger.AdjustmentRepository = (*GormAdjustmentRepository)(nil)
