package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Batch represents a specific production lot of a medicine held at a location.
// Quantity is only ever mutated through ledger operations; batches are never
// deleted, they drain to zero and remain for audit and expiry history.
type Batch struct {
	shared.BaseAggregateRoot
	MedicineID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_batch_identity,unique;index"`
	LocationID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_batch_identity,unique;index"`
	LocationKind   LocationKind    `gorm:"type:varchar(20);not null"`
	BatchNumber    string          `gorm:"type:varchar(100);not null;index:idx_batch_identity,unique"`
	ExpiryDate     *time.Time      `gorm:"index"`
	QuantityOnHand decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Rack           string          `gorm:"type:varchar(100)"` // in-location rack annotation, never inventory-affecting
}

// TableName returns the table name for GORM
func (Batch) TableName() string {
	return "batches"
}

// NewBatch creates a new batch at a location
func NewBatch(
	medicineID, locationID uuid.UUID,
	kind LocationKind,
	batchNumber string,
	expiryDate *time.Time,
	quantity, unitCost decimal.Decimal,
) (*Batch, error) {
	if medicineID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MEDICINE", "Medicine ID cannot be empty")
	}
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_LOCATION_KIND", "Location kind must be WAREHOUSE or SHOP")
	}
	if batchNumber == "" {
		return nil, shared.NewDomainError("INVALID_BATCH_NUMBER", "Batch number cannot be empty")
	}
	if quantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Batch quantity cannot be negative")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	return &Batch{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		MedicineID:        medicineID,
		LocationID:        locationID,
		LocationKind:      kind,
		BatchNumber:       batchNumber,
		ExpiryDate:        expiryDate,
		QuantityOnHand:    quantity,
		UnitCost:          unitCost,
	}, nil
}

// IsExpired returns true if the batch has expired
func (b *Batch) IsExpired() bool {
	if b.ExpiryDate == nil {
		return false
	}
	return b.ExpiryDate.Before(time.Now())
}

// HasStock returns true if the batch has quantity on hand
func (b *Batch) HasStock() bool {
	return b.QuantityOnHand.GreaterThan(decimal.Zero)
}

// Deduct removes quantity from the batch. The whole requested quantity must
// be coverable; the ledger's all-or-nothing reservation depends on this.
func (b *Batch) Deduct(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Deduction quantity must be positive")
	}
	if quantity.GreaterThan(b.QuantityOnHand) {
		return shared.ErrInsufficientStock
	}
	b.QuantityOnHand = b.QuantityOnHand.Sub(quantity)
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
	return nil
}

// Add increases the batch quantity (receipt or compensating release)
func (b *Batch) Add(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Added quantity must be positive")
	}
	b.QuantityOnHand = b.QuantityOnHand.Add(quantity)
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
	return nil
}

// ApplyDelta applies a signed adjustment, guarding against underflow
func (b *Batch) ApplyDelta(delta decimal.Decimal) error {
	next := b.QuantityOnHand.Add(delta)
	if next.IsNegative() {
		return shared.ErrWouldGoNegative
	}
	b.QuantityOnHand = next
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
	return nil
}

// AssignRack records the in-location rack annotation
func (b *Batch) AssignRack(rack string) {
	b.Rack = rack
	b.UpdatedAt = time.Now()
}

// TotalValue returns quantity * unit cost
func (b *Batch) TotalValue() decimal.Decimal {
	return b.QuantityOnHand.Mul(b.UnitCost)
}
