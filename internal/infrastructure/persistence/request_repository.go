package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/fulfillment"
	"github.com/pharmerp/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormRequestRepository implements RequestRepository using GORM
type GormRequestRepository struct {
	db *gorm.DB
}

// NewGormRequestRepository creates a new GormRequestRepository
func NewGormRequestRepository(db *gorm.DB) *GormRequestRepository {
	return &GormRequestRepository{db: db}
}

// FindByID finds a request with its lines
func (r *GormRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.PurchaseRequest, error) {
	var request fulfillment.PurchaseRequest
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&request, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

// FindByShop finds requests filed by a shop
func (r *GormRequestRepository) FindByShop(ctx context.Context, shopID uuid.UUID, filter shared.Filter) ([]fulfillment.PurchaseRequest, error) {
	var requests []fulfillment.PurchaseRequest
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&fulfillment.PurchaseRequest{}).
			Where("shop_id = ?", shopID),
		filter,
	)
	if err := query.Preload("Lines").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// FindByWarehouse finds requests targeting a warehouse
func (r *GormRequestRepository) FindByWarehouse(ctx context.Context, warehouseID uuid.UUID, filter shared.Filter) ([]fulfillment.PurchaseRequest, error) {
	var requests []fulfillment.PurchaseRequest
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&fulfillment.PurchaseRequest{}).
			Where("warehouse_id = ?", warehouseID),
		filter,
	)
	if err := query.Preload("Lines").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// FindByStatus finds requests in a given status
func (r *GormRequestRepository) FindByStatus(ctx context.Context, status fulfillment.RequestStatus, filter shared.Filter) ([]fulfillment.PurchaseRequest, error) {
	var requests []fulfillment.PurchaseRequest
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&fulfillment.PurchaseRequest{}).
			Where("status = ?", status),
		filter,
	)
	if err := query.Preload("Lines").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// FindApprovedBefore finds unflagged approved requests approved before the cutoff
func (r *GormRequestRepository) FindApprovedBefore(ctx context.Context, cutoff time.Time) ([]fulfillment.PurchaseRequest, error) {
	var requests []fulfillment.PurchaseRequest
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("status = ?", fulfillment.RequestStatusApproved).
		Where("stale_flag_at IS NULL").
		Where("approved_at <= ?", cutoff).
		Order("approved_at ASC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// FindAll finds requests matching the filter
func (r *GormRequestRepository) FindAll(ctx context.Context, filter shared.Filter) ([]fulfillment.PurchaseRequest, error) {
	var requests []fulfillment.PurchaseRequest
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&fulfillment.PurchaseRequest{}),
		filter,
	)
	if err := query.Preload("Lines").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// Save creates or updates a request with its lines
func (r *GormRequestRepository) Save(ctx context.Context, request *fulfillment.PurchaseRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Save(request).Error; err != nil {
			return err
		}
		return saveRequestLines(tx, request)
	})
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormRequestRepository) SaveWithLock(ctx context.Context, request *fulfillment.PurchaseRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&fulfillment.PurchaseRequest{}).
			Where("id = ? AND version = ?", request.ID, request.Version-1).
			Updates(map[string]interface{}{
				"priority":      request.Priority,
				"status":        request.Status,
				"approved_at":   request.ApprovedAt,
				"stale_flag_at": request.StaleFlagAt,
				"version":       request.Version,
				"updated_at":    request.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("OPTIMISTIC_LOCK_FAILED", "Request was modified by another transaction")
		}
		return saveRequestLines(tx, request)
	})
}

// Count counts requests matching the filter
func (r *GormRequestRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&fulfillment.PurchaseRequest{}),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func saveRequestLines(tx *gorm.DB, request *fulfillment.PurchaseRequest) error {
	for i := range request.Lines {
		request.Lines[i].RequestID = request.ID
		if err := tx.Save(&request.Lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *GormRequestRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, RequestSortFields, "created_at")
		query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("created_at DESC")
	}
	return query
}

func (r *GormRequestRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "priority":
			query = query.Where("priority = ?", value)
		case "shop_id":
			query = query.Where("shop_id = ?", value)
		case "warehouse_id":
			query = query.Where("warehouse_id = ?", value)
		case "stale":
			if value == true {
				query = query.Where("stale_flag_at IS NOT NULL")
			}
		}
	}
	return query
}

var _ fulfillment.RequestRepository = (*GormRequestRepository)(nil)
