package fulfillment

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DispatchStatus represents the status of a dispatch document
type DispatchStatus string

const (
	DispatchStatusCreated   DispatchStatus = "CREATED"
	DispatchStatusInTransit DispatchStatus = "IN_TRANSIT"
	DispatchStatusDelivered DispatchStatus = "DELIVERED"
)

// IsValid checks if the status is a valid DispatchStatus
func (s DispatchStatus) IsValid() bool {
	switch s {
	case DispatchStatusCreated, DispatchStatusInTransit, DispatchStatusDelivered:
		return true
	}
	return false
}

// String returns the string representation
func (s DispatchStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// Transitions are forward-only; DELIVERED is terminal.
func (s DispatchStatus) CanTransitionTo(target DispatchStatus) bool {
	switch s {
	case DispatchStatusCreated:
		return target == DispatchStatusInTransit
	case DispatchStatusInTransit:
		return target == DispatchStatusDelivered
	case DispatchStatusDelivered:
		return false
	}
	return false
}

// DispatchLine is one batch shipment within a dispatch. Each line references
// exactly one source batch whose quantity was already debited at Reserve time.
type DispatchLine struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	DispatchID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	MedicineID    uuid.UUID       `gorm:"type:uuid;not null"`
	SourceBatchID uuid.UUID       `gorm:"type:uuid;not null"`
	BatchNumber   string          `gorm:"type:varchar(100);not null"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ExpiryDate    *time.Time
	RackHint      string `gorm:"type:varchar(100)"`
	Received      bool   `gorm:"not null;default:false"`
	ReceivedAt    *time.Time
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DispatchLine) TableName() string {
	return "dispatch_lines"
}

// Dispatch is a shipment of allocated batches from a warehouse to a shop
type Dispatch struct {
	shared.BaseAggregateRoot
	WarehouseID uuid.UUID      `gorm:"type:uuid;not null;index"`
	ShopID      uuid.UUID      `gorm:"type:uuid;not null;index"`
	RequestID   *uuid.UUID     `gorm:"type:uuid;index"` // nil for ad-hoc dispatches
	Status      DispatchStatus `gorm:"type:varchar(20);not null;index"`
	Lines       []DispatchLine `gorm:"foreignKey:DispatchID;references:ID"`
	DeliveredAt *time.Time
}

// TableName returns the table name for GORM
func (Dispatch) TableName() string {
	return "dispatches"
}

// DispatchLineInput carries one allocated batch into a new dispatch
type DispatchLineInput struct {
	MedicineID    uuid.UUID
	SourceBatchID uuid.UUID
	BatchNumber   string
	Quantity      decimal.Decimal
	UnitCost      decimal.Decimal
	ExpiryDate    *time.Time
	RackHint      string
}

// NewDispatch creates a dispatch document in the CREATED state.
// Creating a dispatch never debits stock; the lines reference batches that
// were already debited when their allocations were reserved.
func NewDispatch(warehouseID, shopID uuid.UUID, requestID *uuid.UUID, lines []DispatchLineInput) (*Dispatch, error) {
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if shopID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SHOP", "Shop ID cannot be empty")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_LINES", "At least one dispatch line is required")
	}

	d := &Dispatch{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		WarehouseID:       warehouseID,
		ShopID:            shopID,
		RequestID:         requestID,
		Status:            DispatchStatusCreated,
		Lines:             make([]DispatchLine, 0, len(lines)),
	}

	now := time.Now()
	for _, in := range lines {
		if in.MedicineID == uuid.Nil || in.SourceBatchID == uuid.Nil {
			return nil, shared.NewDomainError("INVALID_LINE", "Medicine and source batch IDs cannot be empty")
		}
		if in.BatchNumber == "" {
			return nil, shared.NewDomainError("INVALID_BATCH_NUMBER", "Batch number cannot be empty")
		}
		if in.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be positive")
		}
		d.Lines = append(d.Lines, DispatchLine{
			ID:            uuid.New(),
			DispatchID:    d.ID,
			MedicineID:    in.MedicineID,
			SourceBatchID: in.SourceBatchID,
			BatchNumber:   in.BatchNumber,
			Quantity:      in.Quantity,
			UnitCost:      in.UnitCost,
			ExpiryDate:    in.ExpiryDate,
			RackHint:      in.RackHint,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	d.AddDomainEvent(NewDispatchCreatedEvent(d.ID, warehouseID, shopID, requestID))
	return d, nil
}

// MarkInTransit advances the dispatch to IN_TRANSIT
func (d *Dispatch) MarkInTransit() error {
	if !d.Status.CanTransitionTo(DispatchStatusInTransit) {
		return shared.NewDomainError("INVALID_STATE",
			"Dispatch can only leave from CREATED, current: "+d.Status.String())
	}
	d.Status = DispatchStatusInTransit
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
	d.AddDomainEvent(NewDispatchInTransitEvent(d.ID, d.WarehouseID, d.ShopID))
	return nil
}

// ReceiveLine marks a single line as received at the destination.
// Receiving a line records arrival only; no stock is credited until the
// dispatch as a whole is marked delivered.
func (d *Dispatch) ReceiveLine(lineID uuid.UUID, rackHint string) (*DispatchLine, error) {
	if d.Status == DispatchStatusDelivered {
		return nil, shared.NewDomainError("INVALID_STATE", "Dispatch is already delivered")
	}
	for i := range d.Lines {
		if d.Lines[i].ID != lineID {
			continue
		}
		if d.Lines[i].Received {
			// receiving twice is harmless, keep the first receipt
			return &d.Lines[i], nil
		}
		now := time.Now()
		d.Lines[i].Received = true
		d.Lines[i].ReceivedAt = &now
		if rackHint != "" {
			d.Lines[i].RackHint = rackHint
		}
		d.Lines[i].UpdatedAt = now
		d.UpdatedAt = now
		return &d.Lines[i], nil
	}
	return nil, shared.ErrNotFound
}

// AllLinesReceived returns true when every line has been individually received
func (d *Dispatch) AllLinesReceived() bool {
	for _, l := range d.Lines {
		if !l.Received {
			return false
		}
	}
	return len(d.Lines) > 0
}

// IsDelivered returns true once the dispatch reached its terminal state
func (d *Dispatch) IsDelivered() bool {
	return d.Status == DispatchStatusDelivered
}

// MarkDelivered transitions to the terminal DELIVERED state. It requires
// every line to be received first. The caller performs the destination
// credits in the same unit of work and must treat an already-delivered
// dispatch as a successful no-op, never as a reason to credit again.
func (d *Dispatch) MarkDelivered() error {
	if !d.Status.CanTransitionTo(DispatchStatusDelivered) {
		return shared.NewDomainError("INVALID_STATE",
			"Dispatch can only be delivered from IN_TRANSIT, current: "+d.Status.String())
	}
	if !d.AllLinesReceived() {
		return shared.NewDomainError("LINES_PENDING", "Every dispatch line must be received before delivery")
	}
	now := time.Now()
	d.Status = DispatchStatusDelivered
	d.DeliveredAt = &now
	d.UpdatedAt = now
	d.IncrementVersion()
	d.AddDomainEvent(NewDispatchDeliveredEvent(d.ID, d.WarehouseID, d.ShopID))
	return nil
}

// TotalQuantity sums the line quantities
func (d *Dispatch) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, l := range d.Lines {
		total = total.Add(l.Quantity)
	}
	return total
}
