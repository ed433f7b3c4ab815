package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/shared"
)

// RequestRepository defines the interface for purchase request persistence
type RequestRepository interface {
	// FindByID finds a request with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseRequest, error)

	// FindByShop finds requests filed by a shop
	FindByShop(ctx context.Context, shopID uuid.UUID, filter shared.Filter) ([]PurchaseRequest, error)

	// FindByWarehouse finds requests targeting a warehouse
	FindByWarehouse(ctx context.Context, warehouseID uuid.UUID, filter shared.Filter) ([]PurchaseRequest, error)

	// FindByStatus finds requests in a given status
	FindByStatus(ctx context.Context, status RequestStatus, filter shared.Filter) ([]PurchaseRequest, error)

	// FindApprovedBefore finds unflagged approved requests approved before the cutoff
	FindApprovedBefore(ctx context.Context, cutoff time.Time) ([]PurchaseRequest, error)

	// FindAll finds requests matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]PurchaseRequest, error)

	// Save creates or updates a request with its lines
	Save(ctx context.Context, request *PurchaseRequest) error

	// SaveWithLock saves with optimistic locking (checks version)
	SaveWithLock(ctx context.Context, request *PurchaseRequest) error

	// Count counts requests matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// AllocationRepository defines the interface for allocation persistence
type AllocationRepository interface {
	// FindByID finds an allocation with its reservations
	FindByID(ctx context.Context, id uuid.UUID) (*Allocation, error)

	// FindByRequest finds all allocations for a request
	FindByRequest(ctx context.Context, requestID uuid.UUID) ([]Allocation, error)

	// FindLiveByRequest finds reserved (not consumed, not released) allocations
	FindLiveByRequest(ctx context.Context, requestID uuid.UUID) ([]Allocation, error)

	// Save creates or updates an allocation with its reservations
	Save(ctx context.Context, allocation *Allocation) error

	// CountLiveByRequest counts live allocations for a request
	CountLiveByRequest(ctx context.Context, requestID uuid.UUID) (int64, error)
}

// DispatchRepository defines the interface for dispatch persistence
type DispatchRepository interface {
	// FindByID finds a dispatch with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*Dispatch, error)

	// FindByShop finds dispatches destined for a shop
	FindByShop(ctx context.Context, shopID uuid.UUID, filter shared.Filter) ([]Dispatch, error)

	// FindByWarehouse finds dispatches leaving a warehouse
	FindByWarehouse(ctx context.Context, warehouseID uuid.UUID, filter shared.Filter) ([]Dispatch, error)

	// FindByRequest finds the dispatches created from a request
	FindByRequest(ctx context.Context, requestID uuid.UUID) ([]Dispatch, error)

	// FindAll finds dispatches matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Dispatch, error)

	// Save creates or updates a dispatch with its lines
	Save(ctx context.Context, dispatch *Dispatch) error

	// SaveWithLock saves with optimistic locking (checks version)
	SaveWithLock(ctx context.Context, dispatch *Dispatch) error

	// Count counts dispatches matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
