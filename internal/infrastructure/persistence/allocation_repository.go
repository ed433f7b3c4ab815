package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/fulfillment"
	"github.com/pharmerp/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormAllocationRepository implements AllocationRepository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// FindByID finds an allocation with its reservations
func (r *GormAllocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.Allocation, error) {
	var allocation fulfillment.Allocation
	if err := r.db.WithContext(ctx).
		Preload("Reservations").
		First(&allocation, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &allocation, nil
}

// FindByRequest finds all allocations for a request
func (r *GormAllocationRepository) FindByRequest(ctx context.Context, requestID uuid.UUID) ([]fulfillment.Allocation, error) {
	var allocations []fulfillment.Allocation
	if err := r.db.WithContext(ctx).
		Preload("Reservations").
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// FindLiveByRequest finds reserved (not consumed, not released) allocations
func (r *GormAllocationRepository) FindLiveByRequest(ctx context.Context, requestID uuid.UUID) ([]fulfillment.Allocation, error) {
	var allocations []fulfillment.Allocation
	if err := r.db.WithContext(ctx).
		Preload("Reservations").
		Where("request_id = ? AND status = ?", requestID, fulfillment.AllocationStatusReserved).
		Order("created_at ASC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// Save creates or updates an allocation with its reservations
func (r *GormAllocationRepository) Save(ctx context.Context, allocation *fulfillment.Allocation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Reservations").Save(allocation).Error; err != nil {
			return err
		}
		for i := range allocation.Reservations {
			allocation.Reservations[i].AllocationID = allocation.ID
			if err := tx.Save(&allocation.Reservations[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// CountLiveByRequest counts live allocations for a request
func (r *GormAllocationRepository) CountLiveByRequest(ctx context.Context, requestID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&fulfillment.Allocation{}).
		Where("request_id = ? AND status = ?", requestID, fulfillment.AllocationStatusReserved).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

var _ fulfillment.AllocationRepository = (*GormAllocationRepository)(nil)
