package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/fulfillment"
	"github.com/pharmerp/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormDispatchRepository implements DispatchRepository using GORM
type GormDispatchRepository struct {
	db *gorm.DB
}

// NewGormDispatchRepository creates a new GormDispatchRepository
func NewGormDispatchRepository(db *gorm.DB) *GormDispatchRepository {
	return &GormDispatchRepository{db: db}
}

// FindByID finds a dispatch with its lines
func (r *GormDispatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.Dispatch, error) {
	var dispatch fulfillment.Dispatch
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&dispatch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &dispatch, nil
}

// FindByShop finds dispatches destined for a shop
func (r *GormDispatchRepository) FindByShop(ctx context.Context, shopID uuid.UUID, filter shared.Filter) ([]fulfillment.Dispatch, error) {
	var dispatches []fulfillment.Dispatch
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&fulfillment.Dispatch{}).
			Where("shop_id = ?", shopID),
		filter,
	)
	if err := query.Preload("Lines").Find(&dispatches).Error; err != nil {
		return nil, err
	}
	return dispatches, nil
}

// FindByWarehouse finds dispatches leaving a warehouse
func (r *GormDispatchRepository) FindByWarehouse(ctx context.Context, warehouseID uuid.UUID, filter shared.Filter) ([]fulfillment.Dispatch, error) {
	var dispatches []fulfillment.Dispatch
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&fulfillment.Dispatch{}).
			Where("warehouse_id = ?", warehouseID),
		filter,
	)
	if err := query.Preload("Lines").Find(&dispatches).Error; err != nil {
		return nil, err
	}
	return dispatches, nil
}

// FindByRequest finds the dispatches created from a request
func (r *GormDispatchRepository) FindByRequest(ctx context.Context, requestID uuid.UUID) ([]fulfillment.Dispatch, error) {
	var dispatches []fulfillment.Dispatch
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&dispatches).Error; err != nil {
		return nil, err
	}
	return dispatches, nil
}

// FindAll finds dispatches matching the filter
func (r *GormDispatchRepository) FindAll(ctx context.Context, filter shared.Filter) ([]fulfillment.Dispatch, error) {
	var dispatches []fulfillment.Dispatch
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&fulfillment.Dispatch{}),
		filter,
	)
	if err := query.Preload("Lines").Find(&dispatches).Error; err != nil {
		return nil, err
	}
	return dispatches, nil
}

// Save creates or updates a dispatch with its lines
func (r *GormDispatchRepository) Save(ctx context.Context, dispatch *fulfillment.Dispatch) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Save(dispatch).Error; err != nil {
			return err
		}
		return saveDispatchLines(tx, dispatch)
	})
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormDispatchRepository) SaveWithLock(ctx context.Context, dispatch *fulfillment.Dispatch) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&fulfillment.Dispatch{}).
			Where("id = ? AND version = ?", dispatch.ID, dispatch.Version-1).
			Updates(map[string]interface{}{
				"status":       dispatch.Status,
				"delivered_at": dispatch.DeliveredAt,
				"version":      dispatch.Version,
				"updated_at":   dispatch.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("OPTIMISTIC_LOCK_FAILED", "Dispatch was modified by another transaction")
		}
		return saveDispatchLines(tx, dispatch)
	})
}

// Count counts dispatches matching the filter
func (r *GormDispatchRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&fulfillment.Dispatch{}),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func saveDispatchLines(tx *gorm.DB, dispatch *fulfillment.Dispatch) error {
	for i := range dispatch.Lines {
		dispatch.Lines[i].DispatchID = dispatch.ID
		if err := tx.Save(&dispatch.Lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *GormDispatchRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, DispatchSortFields, "created_at")
		query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("created_at DESC")
	}
	return query
}

func (r *GormDispatchRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "shop_id":
			query = query.Where("shop_id = ?", value)
		case "warehouse_id":
			query = query.Where("warehouse_id = ?", value)
		case "ad_hoc":
			if value == true {
				query = query.Where("request_id IS NULL")
			}
		}
	}
	return query
}

var _ fulfillment.DispatchRepository = (*GormDispatchRepository)(nil)
