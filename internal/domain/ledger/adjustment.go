package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AdjustmentType is the direction of a manual stock correction
type AdjustmentType string

const (
	// AdjustmentTypeIncrease adds stock (recount surplus, found stock)
	AdjustmentTypeIncrease AdjustmentType = "INCREASE"
	// AdjustmentTypeDecrease removes stock (damage, expiry write-off)
	AdjustmentTypeDecrease AdjustmentType = "DECREASE"
)

// IsValid checks if the adjustment type is valid
func (t AdjustmentType) IsValid() bool {
	switch t {
	case AdjustmentTypeIncrease, AdjustmentTypeDecrease:
		return true
	}
	return false
}

// String returns the string representation
func (t AdjustmentType) String() string {
	return string(t)
}

// StockAdjustment is an append-only audit record of a manual correction.
// Each row corresponds to exactly one batch quantity mutation.
type StockAdjustment struct {
	shared.BaseEntity
	BatchID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	MedicineID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	LocationID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	LocationKind LocationKind    `gorm:"type:varchar(20);not null"`
	Delta        decimal.Decimal `gorm:"type:decimal(18,4);not null"` // signed
	Reason       string          `gorm:"type:varchar(500);not null"`
	Actor        string          `gorm:"type:varchar(200);not null"`
	AdjustedAt   time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (StockAdjustment) TableName() string {
	return "stock_adjustments"
}

// NewStockAdjustment creates an adjustment audit record for a batch mutation
func NewStockAdjustment(batch *Batch, delta decimal.Decimal, reason, actor string) (*StockAdjustment, error) {
	if batch == nil {
		return nil, shared.NewDomainError("INVALID_BATCH", "Batch cannot be nil")
	}
	if delta.IsZero() {
		return nil, shared.NewDomainError("INVALID_DELTA", "Adjustment delta cannot be zero")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, shared.NewDomainError("REASON_REQUIRED", "Adjustment reason is mandatory")
	}

	return &StockAdjustment{
		BaseEntity:   shared.NewBaseEntity(),
		BatchID:      batch.ID,
		MedicineID:   batch.MedicineID,
		LocationID:   batch.LocationID,
		LocationKind: batch.LocationKind,
		Delta:        delta,
		Reason:       strings.TrimSpace(reason),
		Actor:        actor,
		AdjustedAt:   time.Now(),
	}, nil
}
