package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// ReserveCommand asks the ledger to hold quantity at a location
type ReserveCommand struct {
	LocationID   uuid.UUID
	LocationKind ledger.LocationKind
	MedicineID   uuid.UUID
	Quantity     decimal.Decimal
	Strategy     ledger.PickStrategyType // defaults to FEFO
}

// ReserveResult reports the batches a reservation drew from
type ReserveResult struct {
	LocationID uuid.UUID          `json:"location_id"`
	MedicineID uuid.UUID          `json:"medicine_id"`
	Quantity   decimal.Decimal    `json:"quantity"`
	Draws      []ledger.BatchDraw `json:"draws"`
}

// CreditCommand brings stock into a location
type CreditCommand struct {
	LocationID   uuid.UUID
	LocationKind ledger.LocationKind
	MedicineID   uuid.UUID
	BatchNumber  string
	Quantity     decimal.Decimal
	ExpiryDate   *time.Time
	UnitCost     decimal.Decimal
	Rack         string
}

// ReleaseCommand returns previously reserved quantity to its source batches
type ReleaseCommand struct {
	LocationID uuid.UUID
	MedicineID uuid.UUID
	Draws      []ledger.BatchDraw
}

// AdjustCommand is a manual correction against a single batch
type AdjustCommand struct {
	LocationID uuid.UUID
	MedicineID uuid.UUID
	BatchID    uuid.UUID
	Type       ledger.AdjustmentType
	Quantity   decimal.Decimal
	Reason     string
	Actor      string
}

// BatchResponse is the read model for a batch
type BatchResponse struct {
	ID             uuid.UUID       `json:"id"`
	MedicineID     uuid.UUID       `json:"medicine_id"`
	LocationID     uuid.UUID       `json:"location_id"`
	LocationKind   string          `json:"location_kind"`
	BatchNumber    string          `json:"batch_number"`
	ExpiryDate     *time.Time      `json:"expiry_date,omitempty"`
	QuantityOnHand decimal.Decimal `json:"quantity_on_hand"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	Rack           string          `json:"rack,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

// ToBatchResponse converts a batch to its read model
func ToBatchResponse(b *ledger.Batch) BatchResponse {
	return BatchResponse{
		ID:             b.ID,
		MedicineID:     b.MedicineID,
		LocationID:     b.LocationID,
		LocationKind:   b.LocationKind.String(),
		BatchNumber:    b.BatchNumber,
		ExpiryDate:     b.ExpiryDate,
		QuantityOnHand: b.QuantityOnHand,
		UnitCost:       b.UnitCost,
		Rack:           b.Rack,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
		Version:        b.Version,
	}
}

// ToBatchResponses converts a batch slice to read models
func ToBatchResponses(batches []ledger.Batch) []BatchResponse {
	out := make([]BatchResponse, 0, len(batches))
	for i := range batches {
		out = append(out, ToBatchResponse(&batches[i]))
	}
	return out
}

// AdjustmentResponse is the read model for a stock adjustment
type AdjustmentResponse struct {
	ID          uuid.UUID       `json:"id"`
	BatchID     uuid.UUID       `json:"batch_id"`
	MedicineID  uuid.UUID       `json:"medicine_id"`
	LocationID  uuid.UUID       `json:"location_id"`
	Delta       decimal.Decimal `json:"delta"`
	Reason      string          `json:"reason"`
	Actor       string          `json:"actor"`
	AdjustedAt  time.Time       `json:"adjusted_at"`
	NewQuantity decimal.Decimal `json:"new_quantity"`
}

// ToAdjustmentResponse converts an adjustment plus resulting quantity
func ToAdjustmentResponse(a *ledger.StockAdjustment, newQuantity decimal.Decimal) AdjustmentResponse {
	return AdjustmentResponse{
		ID:          a.ID,
		BatchID:     a.BatchID,
		MedicineID:  a.MedicineID,
		LocationID:  a.LocationID,
		Delta:       a.Delta,
		Reason:      a.Reason,
		Actor:       a.Actor,
		AdjustedAt:  a.AdjustedAt,
		NewQuantity: newQuantity,
	}
}
