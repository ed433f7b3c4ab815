package fulfillment

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RequestPriority is the urgency a shop attaches to a purchase request
type RequestPriority string

const (
	RequestPriorityLow    RequestPriority = "LOW"
	RequestPriorityNormal RequestPriority = "NORMAL"
	RequestPriorityHigh   RequestPriority = "HIGH"
	RequestPriorityUrgent RequestPriority = "URGENT"
)

// IsValid checks if the priority is valid
func (p RequestPriority) IsValid() bool {
	switch p {
	case RequestPriorityLow, RequestPriorityNormal, RequestPriorityHigh, RequestPriorityUrgent:
		return true
	}
	return false
}

// String returns the string representation
func (p RequestPriority) String() string {
	return string(p)
}

// RequestStatus represents the status of a purchase request
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "PENDING"
	RequestStatusApproved   RequestStatus = "APPROVED"
	RequestStatusRejected   RequestStatus = "REJECTED"
	RequestStatusDispatched RequestStatus = "DISPATCHED"
	RequestStatusAbandoned  RequestStatus = "ABANDONED"
)

// IsValid checks if the status is a valid RequestStatus
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected,
		RequestStatusDispatched, RequestStatusAbandoned:
		return true
	}
	return false
}

// String returns the string representation
func (s RequestStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// Transitions only move forward; rejected, dispatched and abandoned are terminal.
func (s RequestStatus) CanTransitionTo(target RequestStatus) bool {
	switch s {
	case RequestStatusPending:
		return target == RequestStatusApproved || target == RequestStatusRejected
	case RequestStatusApproved:
		return target == RequestStatusDispatched || target == RequestStatusAbandoned
	case RequestStatusRejected, RequestStatusDispatched, RequestStatusAbandoned:
		return false
	}
	return false
}

// RequestLine is one medicine ask within a purchase request
type RequestLine struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key"`
	RequestID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	MedicineID        uuid.UUID       `gorm:"type:uuid;not null"`
	QuantityRequested decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuantityApproved  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt         time.Time       `gorm:"not null"`
	UpdatedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RequestLine) TableName() string {
	return "purchase_request_lines"
}

// PurchaseRequest is a shop's stock ask against a warehouse
type PurchaseRequest struct {
	shared.BaseAggregateRoot
	ShopID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	WarehouseID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Priority    RequestPriority `gorm:"type:varchar(20);not null"`
	Status      RequestStatus   `gorm:"type:varchar(20);not null;index"`
	Lines       []RequestLine   `gorm:"foreignKey:RequestID;references:ID"`
	ApprovedAt  *time.Time
	StaleFlagAt *time.Time `gorm:"index"` // set when approved allocations sit without a dispatch
}

// TableName returns the table name for GORM
func (PurchaseRequest) TableName() string {
	return "purchase_requests"
}

// RequestLineInput describes a requested line at creation time
type RequestLineInput struct {
	MedicineID uuid.UUID
	Quantity   decimal.Decimal
}

// NewPurchaseRequest creates a pending purchase request
func NewPurchaseRequest(shopID, warehouseID uuid.UUID, priority RequestPriority, lines []RequestLineInput) (*PurchaseRequest, error) {
	if shopID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SHOP", "Shop ID cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if !priority.IsValid() {
		return nil, shared.NewDomainError("INVALID_PRIORITY", "Unknown request priority")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_LINES", "At least one request line is required")
	}

	r := &PurchaseRequest{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ShopID:            shopID,
		WarehouseID:       warehouseID,
		Priority:          priority,
		Status:            RequestStatusPending,
		Lines:             make([]RequestLine, 0, len(lines)),
	}

	now := time.Now()
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, in := range lines {
		if in.MedicineID == uuid.Nil {
			return nil, shared.NewDomainError("INVALID_MEDICINE", "Medicine ID cannot be empty")
		}
		if in.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be positive")
		}
		if seen[in.MedicineID] {
			return nil, shared.NewDomainError("DUPLICATE_LINE", "Duplicate medicine in request lines")
		}
		seen[in.MedicineID] = true
		r.Lines = append(r.Lines, RequestLine{
			ID:                uuid.New(),
			RequestID:         r.ID,
			MedicineID:        in.MedicineID,
			QuantityRequested: in.Quantity,
			QuantityApproved:  decimal.Zero,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}

	r.AddDomainEvent(NewRequestCreatedEvent(r.ID, shopID, warehouseID, priority))
	return r, nil
}

// ApprovedLine carries the per-line approved quantity decided by the approver
type ApprovedLine struct {
	MedicineID       uuid.UUID
	QuantityApproved decimal.Decimal
}

// Approve records the approved quantities and transitions to APPROVED.
// Each approved quantity must be positive and no greater than the quantity
// requested on its line. Callers perform allocation before persisting; any
// allocation failure aborts the whole approval.
func (r *PurchaseRequest) Approve(approved []ApprovedLine) error {
	if !r.Status.CanTransitionTo(RequestStatusApproved) {
		return shared.NewDomainError("INVALID_STATE",
			"Request can only be approved from PENDING, current: "+r.Status.String())
	}
	if len(approved) == 0 {
		return shared.NewDomainError("INVALID_LINES", "At least one approved line is required")
	}

	byMedicine := make(map[uuid.UUID]*RequestLine, len(r.Lines))
	for i := range r.Lines {
		byMedicine[r.Lines[i].MedicineID] = &r.Lines[i]
	}

	now := time.Now()
	for _, a := range approved {
		line, ok := byMedicine[a.MedicineID]
		if !ok {
			return shared.NewDomainError("LINE_NOT_FOUND", "No request line for medicine "+a.MedicineID.String())
		}
		if a.QuantityApproved.LessThanOrEqual(decimal.Zero) {
			return shared.NewDomainError("INVALID_QUANTITY", "Approved quantity must be positive")
		}
		if a.QuantityApproved.GreaterThan(line.QuantityRequested) {
			return shared.NewDomainError("INVALID_QUANTITY", "Approved quantity exceeds requested quantity")
		}
		line.QuantityApproved = a.QuantityApproved
		line.UpdatedAt = now
	}

	r.Status = RequestStatusApproved
	r.ApprovedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()
	r.AddDomainEvent(NewRequestApprovedEvent(r.ID, r.ShopID, r.WarehouseID))
	return nil
}

// Reject transitions the request to the terminal REJECTED state.
// Rejection records no stock side effects.
func (r *PurchaseRequest) Reject() error {
	if !r.Status.CanTransitionTo(RequestStatusRejected) {
		return shared.NewDomainError("INVALID_STATE",
			"Request can only be rejected from PENDING, current: "+r.Status.String())
	}
	r.Status = RequestStatusRejected
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	r.AddDomainEvent(NewRequestRejectedEvent(r.ID, r.ShopID, r.WarehouseID))
	return nil
}

// MarkDispatched transitions an approved request to the terminal DISPATCHED state
func (r *PurchaseRequest) MarkDispatched() error {
	if !r.Status.CanTransitionTo(RequestStatusDispatched) {
		return shared.NewDomainError("INVALID_STATE",
			"Request can only be dispatched from APPROVED, current: "+r.Status.String())
	}
	r.Status = RequestStatusDispatched
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// Abandon closes an approved request whose allocations are being released.
// Callers must have released every live allocation back to the source first.
func (r *PurchaseRequest) Abandon() error {
	if !r.Status.CanTransitionTo(RequestStatusAbandoned) {
		return shared.NewDomainError("INVALID_STATE",
			"Request can only be abandoned from APPROVED, current: "+r.Status.String())
	}
	r.Status = RequestStatusAbandoned
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	r.AddDomainEvent(NewRequestAbandonedEvent(r.ID, r.ShopID, r.WarehouseID))
	return nil
}

// FlagStale marks an approved request whose allocations have waited too long
// for a dispatch. Flagging is advisory; reservations are never auto-reverted.
func (r *PurchaseRequest) FlagStale(at time.Time) bool {
	if r.Status != RequestStatusApproved || r.StaleFlagAt != nil {
		return false
	}
	r.StaleFlagAt = &at
	r.UpdatedAt = time.Now()
	r.AddDomainEvent(NewRequestStaleFlaggedEvent(r.ID, r.ShopID, r.WarehouseID, at))
	return true
}

// ApprovedLines returns the lines carrying a positive approved quantity
func (r *PurchaseRequest) ApprovedLines() []RequestLine {
	lines := make([]RequestLine, 0, len(r.Lines))
	for _, l := range r.Lines {
		if l.QuantityApproved.GreaterThan(decimal.Zero) {
			lines = append(lines, l)
		}
	}
	return lines
}
