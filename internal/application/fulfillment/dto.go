package fulfillment

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/fulfillment"
	"github.com/shopspring/decimal"
)

// CreateRequestCommand represents a request to create a purchase request
type CreateRequestCommand struct {
	ShopID      uuid.UUID
	WarehouseID uuid.UUID
	Priority    fulfillment.RequestPriority
	Lines       []RequestLineInput
}

// RequestLineInput is a single medicine line of a new purchase request
type RequestLineInput struct {
	MedicineID uuid.UUID
	Quantity   decimal.Decimal
}

// ApproveRequestCommand represents a request to approve a purchase request.
// Every line must carry a positive approved quantity; approval reserves
// warehouse stock for all lines atomically.
type ApproveRequestCommand struct {
	RequestID uuid.UUID
	Lines     []ApproveLineInput
}

// ApproveLineInput carries the approved quantity for one medicine of the request
type ApproveLineInput struct {
	MedicineID uuid.UUID
	Quantity   decimal.Decimal
}

// CreateAdHocDispatchCommand represents a request to create a dispatch that
// is not backed by a purchase request. Stock is reserved at creation time.
type CreateAdHocDispatchCommand struct {
	WarehouseID uuid.UUID
	ShopID      uuid.UUID
	Lines       []AdHocLineInput
}

// AdHocLineInput is a single medicine line of an ad-hoc dispatch
type AdHocLineInput struct {
	MedicineID uuid.UUID
	Quantity   decimal.Decimal
}

// ReceiveLineCommand represents a shop-side acknowledgement of one dispatch line
type ReceiveLineCommand struct {
	DispatchID uuid.UUID
	LineID     uuid.UUID
	RackHint   string
}

// RequestLineResponse represents a purchase request line in API responses
type RequestLineResponse struct {
	ID                uuid.UUID       `json:"id"`
	MedicineID        uuid.UUID       `json:"medicine_id"`
	QuantityRequested decimal.Decimal `json:"quantity_requested"`
	QuantityApproved  decimal.Decimal `json:"quantity_approved"`
}

// RequestResponse represents a purchase request in API responses
type RequestResponse struct {
	ID          uuid.UUID             `json:"id"`
	ShopID      uuid.UUID             `json:"shop_id"`
	WarehouseID uuid.UUID             `json:"warehouse_id"`
	Priority    string                `json:"priority"`
	Status      string                `json:"status"`
	Lines       []RequestLineResponse `json:"lines"`
	ApprovedAt  *time.Time            `json:"approved_at,omitempty"`
	StaleFlagAt *time.Time            `json:"stale_flag_at,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// ToRequestResponse converts a purchase request aggregate to a response DTO
func ToRequestResponse(r *fulfillment.PurchaseRequest) *RequestResponse {
	lines := make([]RequestLineResponse, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = RequestLineResponse{
			ID:                l.ID,
			MedicineID:        l.MedicineID,
			QuantityRequested: l.QuantityRequested,
			QuantityApproved:  l.QuantityApproved,
		}
	}
	return &RequestResponse{
		ID:          r.ID,
		ShopID:      r.ShopID,
		WarehouseID: r.WarehouseID,
		Priority:    r.Priority.String(),
		Status:      r.Status.String(),
		Lines:       lines,
		ApprovedAt:  r.ApprovedAt,
		StaleFlagAt: r.StaleFlagAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// ToRequestResponses converts a slice of purchase requests to response DTOs
func ToRequestResponses(requests []*fulfillment.PurchaseRequest) []*RequestResponse {
	responses := make([]*RequestResponse, len(requests))
	for i, r := range requests {
		responses[i] = ToRequestResponse(r)
	}
	return responses
}

// ReservationResponse represents one batch reservation of an allocation
type ReservationResponse struct {
	BatchID     uuid.UUID       `json:"batch_id"`
	BatchNumber string          `json:"batch_number"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
}

// AllocationResponse represents an allocation in API responses
type AllocationResponse struct {
	ID            uuid.UUID             `json:"id"`
	RequestID     uuid.UUID             `json:"request_id"`
	RequestLineID uuid.UUID             `json:"request_line_id"`
	WarehouseID   uuid.UUID             `json:"warehouse_id"`
	MedicineID    uuid.UUID             `json:"medicine_id"`
	Quantity      decimal.Decimal       `json:"quantity"`
	Status        string                `json:"status"`
	Reservations  []ReservationResponse `json:"reservations"`
	CreatedAt     time.Time             `json:"created_at"`
}

// ToAllocationResponse converts an allocation aggregate to a response DTO
func ToAllocationResponse(a *fulfillment.Allocation) *AllocationResponse {
	reservations := make([]ReservationResponse, len(a.Reservations))
	for i, r := range a.Reservations {
		reservations[i] = ReservationResponse{
			BatchID:     r.BatchID,
			BatchNumber: r.BatchNumber,
			Quantity:    r.Quantity,
			UnitCost:    r.UnitCost,
			ExpiryDate:  r.ExpiryDate,
		}
	}
	return &AllocationResponse{
		ID:            a.ID,
		RequestID:     a.RequestID,
		RequestLineID: a.RequestLineID,
		WarehouseID:   a.WarehouseID,
		MedicineID:    a.MedicineID,
		Quantity:      a.Quantity,
		Status:        a.Status.String(),
		Reservations:  reservations,
		CreatedAt:     a.CreatedAt,
	}
}

// ToAllocationResponses converts a slice of allocations to response DTOs
func ToAllocationResponses(allocations []*fulfillment.Allocation) []*AllocationResponse {
	responses := make([]*AllocationResponse, len(allocations))
	for i, a := range allocations {
		responses[i] = ToAllocationResponse(a)
	}
	return responses
}

// DispatchLineResponse represents a dispatch line in API responses
type DispatchLineResponse struct {
	ID            uuid.UUID       `json:"id"`
	MedicineID    uuid.UUID       `json:"medicine_id"`
	SourceBatchID uuid.UUID       `json:"source_batch_id"`
	BatchNumber   string          `json:"batch_number"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	ExpiryDate    *time.Time      `json:"expiry_date,omitempty"`
	RackHint      string          `json:"rack_hint,omitempty"`
	Received      bool            `json:"received"`
	ReceivedAt    *time.Time      `json:"received_at,omitempty"`
}

// DispatchResponse represents a dispatch in API responses
type DispatchResponse struct {
	ID          uuid.UUID              `json:"id"`
	WarehouseID uuid.UUID              `json:"warehouse_id"`
	ShopID      uuid.UUID              `json:"shop_id"`
	RequestID   *uuid.UUID             `json:"request_id,omitempty"`
	Status      string                 `json:"status"`
	Lines       []DispatchLineResponse `json:"lines"`
	DeliveredAt *time.Time             `json:"delivered_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// ToDispatchResponse converts a dispatch aggregate to a response DTO
func ToDispatchResponse(d *fulfillment.Dispatch) *DispatchResponse {
	lines := make([]DispatchLineResponse, len(d.Lines))
	for i, l := range d.Lines {
		lines[i] = DispatchLineResponse{
			ID:            l.ID,
			MedicineID:    l.MedicineID,
			SourceBatchID: l.SourceBatchID,
			BatchNumber:   l.BatchNumber,
			Quantity:      l.Quantity,
			UnitCost:      l.UnitCost,
			ExpiryDate:    l.ExpiryDate,
			RackHint:      l.RackHint,
			Received:      l.Received,
			ReceivedAt:    l.ReceivedAt,
		}
	}
	return &DispatchResponse{
		ID:          d.ID,
		WarehouseID: d.WarehouseID,
		ShopID:      d.ShopID,
		RequestID:   d.RequestID,
		Status:      d.Status.String(),
		Lines:       lines,
		DeliveredAt: d.DeliveredAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// ToDispatchResponses converts a slice of dispatches to response DTOs
func ToDispatchResponses(dispatches []*fulfillment.Dispatch) []*DispatchResponse {
	responses := make([]*DispatchResponse, len(dispatches))
	for i, d := range dispatches {
		responses[i] = ToDispatchResponse(d)
	}
	return responses
}
