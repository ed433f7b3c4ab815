package fulfillment

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AllocationStatus represents the lifecycle of a reservation
type AllocationStatus string

const (
	// AllocationStatusReserved means source batches are debited and held
	AllocationStatusReserved AllocationStatus = "RESERVED"
	// AllocationStatusConsumed means the allocation became a dispatch line
	AllocationStatusConsumed AllocationStatus = "CONSUMED"
	// AllocationStatusReleased means the reservation was credited back
	AllocationStatusReleased AllocationStatus = "RELEASED"
)

// IsValid checks if the status is valid
func (s AllocationStatus) IsValid() bool {
	switch s {
	case AllocationStatusReserved, AllocationStatusConsumed, AllocationStatusReleased:
		return true
	}
	return false
}

// String returns the string representation
func (s AllocationStatus) String() string {
	return string(s)
}

// AllocationReservation is the quantity held against a single source batch
type AllocationReservation struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key"`
	AllocationID uuid.UUID       `gorm:"type:uuid;not null;index"`
	BatchID      uuid.UUID       `gorm:"type:uuid;not null"`
	BatchNumber  string          `gorm:"type:varchar(100);not null"`
	Quantity     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ExpiryDate   *time.Time
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AllocationReservation) TableName() string {
	return "allocation_reservations"
}

// Allocation is the ephemeral reservation linking an approved request line to
// specific source batches. It lives between approval and dispatch creation,
// and is either consumed into dispatch lines or released back to the ledger.
type Allocation struct {
	shared.BaseAggregateRoot
	RequestID     uuid.UUID               `gorm:"type:uuid;not null;index"`
	RequestLineID uuid.UUID               `gorm:"type:uuid;not null;index"`
	WarehouseID   uuid.UUID               `gorm:"type:uuid;not null;index"`
	MedicineID    uuid.UUID               `gorm:"type:uuid;not null"`
	Quantity      decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	Status        AllocationStatus        `gorm:"type:varchar(20);not null;index"`
	Reservations  []AllocationReservation `gorm:"foreignKey:AllocationID;references:ID"`
}

// TableName returns the table name for GORM
func (Allocation) TableName() string {
	return "allocations"
}

// ReservationInput carries one batch draw into a new allocation
type ReservationInput struct {
	BatchID     uuid.UUID
	BatchNumber string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	ExpiryDate  *time.Time
}

// NewAllocation creates a reserved allocation from ledger draw results
func NewAllocation(requestID, requestLineID, warehouseID, medicineID uuid.UUID, reservations []ReservationInput) (*Allocation, error) {
	if requestID == uuid.Nil || requestLineID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_REQUEST", "Request and line IDs cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if medicineID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MEDICINE", "Medicine ID cannot be empty")
	}
	if len(reservations) == 0 {
		return nil, shared.NewDomainError("INVALID_RESERVATIONS", "At least one batch reservation is required")
	}

	a := &Allocation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		RequestID:         requestID,
		RequestLineID:     requestLineID,
		WarehouseID:       warehouseID,
		MedicineID:        medicineID,
		Quantity:          decimal.Zero,
		Status:            AllocationStatusReserved,
		Reservations:      make([]AllocationReservation, 0, len(reservations)),
	}

	now := time.Now()
	for _, in := range reservations {
		if in.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Reserved quantity must be positive")
		}
		a.Reservations = append(a.Reservations, AllocationReservation{
			ID:           uuid.New(),
			AllocationID: a.ID,
			BatchID:      in.BatchID,
			BatchNumber:  in.BatchNumber,
			Quantity:     in.Quantity,
			UnitCost:     in.UnitCost,
			ExpiryDate:   in.ExpiryDate,
			CreatedAt:    now,
		})
		a.Quantity = a.Quantity.Add(in.Quantity)
	}

	return a, nil
}

// IsLive returns true while the reservation still holds stock
func (a *Allocation) IsLive() bool {
	return a.Status == AllocationStatusReserved
}

// Consume converts the reservation into dispatch lines. The source-side debit
// already happened at Reserve time, so consuming never touches the ledger.
func (a *Allocation) Consume() error {
	if a.Status != AllocationStatusReserved {
		return shared.NewDomainError("INVALID_STATE",
			"Allocation can only be consumed while RESERVED, current: "+a.Status.String())
	}
	a.Status = AllocationStatusConsumed
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

// Release marks the reservation as returned to the source. The compensating
// ledger credit must happen in the same unit of work.
func (a *Allocation) Release() error {
	if a.Status != AllocationStatusReserved {
		return shared.NewDomainError("INVALID_STATE",
			"Allocation can only be released while RESERVED, current: "+a.Status.String())
	}
	a.Status = AllocationStatusReleased
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}
