package fulfillment

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/shared"
)

// Event type constants for the fulfillment domain
const (
	EventTypeRequestCreated      = "fulfillment.request_created"
	EventTypeRequestApproved     = "fulfillment.request_approved"
	EventTypeRequestRejected     = "fulfillment.request_rejected"
	EventTypeRequestAbandoned    = "fulfillment.request_abandoned"
	EventTypeRequestStaleFlagged = "fulfillment.request_stale_flagged"
	EventTypeDispatchCreated     = "fulfillment.dispatch_created"
	EventTypeDispatchInTransit   = "fulfillment.dispatch_in_transit"
	EventTypeDispatchDelivered   = "fulfillment.dispatch_delivered"
)

// RequestCreatedEvent is emitted when a shop files a purchase request
type RequestCreatedEvent struct {
	shared.BaseDomainEvent
	ShopID      uuid.UUID       `json:"shop_id"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	Priority    RequestPriority `json:"priority"`
}

// NewRequestCreatedEvent creates a new request created event
func NewRequestCreatedEvent(requestID, shopID, warehouseID uuid.UUID, priority RequestPriority) *RequestCreatedEvent {
	return &RequestCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRequestCreated, requestID, "PurchaseRequest"),
		ShopID:          shopID,
		WarehouseID:     warehouseID,
		Priority:        priority,
	}
}

// RequestApprovedEvent is emitted when a request is approved and allocated
type RequestApprovedEvent struct {
	shared.BaseDomainEvent
	ShopID      uuid.UUID `json:"shop_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
}

// NewRequestApprovedEvent creates a new request approved event
func NewRequestApprovedEvent(requestID, shopID, warehouseID uuid.UUID) *RequestApprovedEvent {
	return &RequestApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRequestApproved, requestID, "PurchaseRequest"),
		ShopID:          shopID,
		WarehouseID:     warehouseID,
	}
}

// RequestRejectedEvent is emitted when a pending request is rejected
type RequestRejectedEvent struct {
	shared.BaseDomainEvent
	ShopID      uuid.UUID `json:"shop_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
}

// NewRequestRejectedEvent creates a new request rejected event
func NewRequestRejectedEvent(requestID, shopID, warehouseID uuid.UUID) *RequestRejectedEvent {
	return &RequestRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRequestRejected, requestID, "PurchaseRequest"),
		ShopID:          shopID,
		WarehouseID:     warehouseID,
	}
}

// RequestAbandonedEvent is emitted when an approved request is closed and its
// reservations released back to the source warehouse
type RequestAbandonedEvent struct {
	shared.BaseDomainEvent
	ShopID      uuid.UUID `json:"shop_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
}

// NewRequestAbandonedEvent creates a new request abandoned event
func NewRequestAbandonedEvent(requestID, shopID, warehouseID uuid.UUID) *RequestAbandonedEvent {
	return &RequestAbandonedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRequestAbandoned, requestID, "PurchaseRequest"),
		ShopID:          shopID,
		WarehouseID:     warehouseID,
	}
}

// RequestStaleFlaggedEvent is emitted when an approved request sits too long
// without a dispatch; a human decides what happens next
type RequestStaleFlaggedEvent struct {
	shared.BaseDomainEvent
	ShopID      uuid.UUID `json:"shop_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	FlaggedAt   time.Time `json:"flagged_at"`
}

// NewRequestStaleFlaggedEvent creates a new stale flagged event
func NewRequestStaleFlaggedEvent(requestID, shopID, warehouseID uuid.UUID, flaggedAt time.Time) *RequestStaleFlaggedEvent {
	return &RequestStaleFlaggedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRequestStaleFlagged, requestID, "PurchaseRequest"),
		ShopID:          shopID,
		WarehouseID:     warehouseID,
		FlaggedAt:       flaggedAt,
	}
}

// DispatchCreatedEvent is emitted when allocations are consumed into a dispatch
type DispatchCreatedEvent struct {
	shared.BaseDomainEvent
	WarehouseID uuid.UUID  `json:"warehouse_id"`
	ShopID      uuid.UUID  `json:"shop_id"`
	RequestID   *uuid.UUID `json:"request_id,omitempty"`
}

// NewDispatchCreatedEvent creates a new dispatch created event
func NewDispatchCreatedEvent(dispatchID, warehouseID, shopID uuid.UUID, requestID *uuid.UUID) *DispatchCreatedEvent {
	return &DispatchCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDispatchCreated, dispatchID, "Dispatch"),
		WarehouseID:     warehouseID,
		ShopID:          shopID,
		RequestID:       requestID,
	}
}

// DispatchInTransitEvent is emitted when a dispatch leaves the warehouse
type DispatchInTransitEvent struct {
	shared.BaseDomainEvent
	WarehouseID uuid.UUID `json:"warehouse_id"`
	ShopID      uuid.UUID `json:"shop_id"`
}

// NewDispatchInTransitEvent creates a new dispatch in transit event
func NewDispatchInTransitEvent(dispatchID, warehouseID, shopID uuid.UUID) *DispatchInTransitEvent {
	return &DispatchInTransitEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDispatchInTransit, dispatchID, "Dispatch"),
		WarehouseID:     warehouseID,
		ShopID:          shopID,
	}
}

// DispatchDeliveredEvent is emitted exactly once per dispatch, when the
// destination credit is performed
type DispatchDeliveredEvent struct {
	shared.BaseDomainEvent
	WarehouseID uuid.UUID `json:"warehouse_id"`
	ShopID      uuid.UUID `json:"shop_id"`
}

// NewDispatchDeliveredEvent creates a new dispatch delivered event
func NewDispatchDeliveredEvent(dispatchID, warehouseID, shopID uuid.UUID) *DispatchDeliveredEvent {
	return &DispatchDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDispatchDelivered, dispatchID, "Dispatch"),
		WarehouseID:     warehouseID,
		ShopID:          shopID,
	}
}
