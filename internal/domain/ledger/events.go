package ledger

import (
	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type constants for the ledger domain
const (
	EventTypeStockReserved = "ledger.stock_reserved"
	EventTypeStockCredited = "ledger.stock_credited"
	EventTypeStockReleased = "ledger.stock_released"
	EventTypeStockAdjusted = "ledger.stock_adjusted"
)

// StockReservedEvent is emitted when a reservation deducts source batches
type StockReservedEvent struct {
	shared.BaseDomainEvent
	MedicineID uuid.UUID       `json:"medicine_id"`
	LocationID uuid.UUID       `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Draws      []BatchDraw     `json:"draws"`
}

// NewStockReservedEvent creates a new stock reserved event
func NewStockReservedEvent(medicineID, locationID uuid.UUID, quantity decimal.Decimal, draws []BatchDraw) *StockReservedEvent {
	return &StockReservedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReserved, locationID, "Batch"),
		MedicineID:      medicineID,
		LocationID:      locationID,
		Quantity:        quantity,
		Draws:           draws,
	}
}

// StockCreditedEvent is emitted when stock enters a location
type StockCreditedEvent struct {
	shared.BaseDomainEvent
	BatchID     uuid.UUID       `json:"batch_id"`
	MedicineID  uuid.UUID       `json:"medicine_id"`
	LocationID  uuid.UUID       `json:"location_id"`
	BatchNumber string          `json:"batch_number"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// NewStockCreditedEvent creates a new stock credited event
func NewStockCreditedEvent(batchID, medicineID, locationID uuid.UUID, batchNumber string, quantity decimal.Decimal) *StockCreditedEvent {
	return &StockCreditedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockCredited, batchID, "Batch"),
		BatchID:         batchID,
		MedicineID:      medicineID,
		LocationID:      locationID,
		BatchNumber:     batchNumber,
		Quantity:        quantity,
	}
}

// StockReleasedEvent is emitted when a reservation is returned to its source
type StockReleasedEvent struct {
	shared.BaseDomainEvent
	MedicineID uuid.UUID       `json:"medicine_id"`
	LocationID uuid.UUID       `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// NewStockReleasedEvent creates a new stock released event
func NewStockReleasedEvent(medicineID, locationID uuid.UUID, quantity decimal.Decimal) *StockReleasedEvent {
	return &StockReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReleased, locationID, "Batch"),
		MedicineID:      medicineID,
		LocationID:      locationID,
		Quantity:        quantity,
	}
}

// StockAdjustedEvent is emitted for every manual correction
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	BatchID     uuid.UUID       `json:"batch_id"`
	MedicineID  uuid.UUID       `json:"medicine_id"`
	LocationID  uuid.UUID       `json:"location_id"`
	Delta       decimal.Decimal `json:"delta"`
	NewQuantity decimal.Decimal `json:"new_quantity"`
	Reason      string          `json:"reason"`
}

// NewStockAdjustedEvent creates a new stock adjusted event
func NewStockAdjustedEvent(batchID, medicineID, locationID uuid.UUID, delta, newQuantity decimal.Decimal, reason string) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, batchID, "Batch"),
		BatchID:         batchID,
		MedicineID:      medicineID,
		LocationID:      locationID,
		Delta:           delta,
		NewQuantity:     newQuantity,
		Reason:          reason,
	}
}
