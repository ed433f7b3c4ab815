package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PickStrategyType defines the batch selection order for outgoing stock
type PickStrategyType string

const (
	// PickStrategyFEFO selects batches closest to expiry first
	PickStrategyFEFO PickStrategyType = "FEFO"
	// PickStrategyFIFO selects the oldest batches first (by creation date)
	PickStrategyFIFO PickStrategyType = "FIFO"
)

// IsValid checks if the strategy type is valid
func (t PickStrategyType) IsValid() bool {
	switch t {
	case PickStrategyFEFO, PickStrategyFIFO:
		return true
	}
	return false
}

// String returns the string representation
func (t PickStrategyType) String() string {
	return string(t)
}

// BatchDraw is the portion of a reservation drawn from a single batch
type BatchDraw struct {
	BatchID     uuid.UUID       `json:"batch_id"`
	BatchNumber string          `json:"batch_number"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
	Remaining   decimal.Decimal `json:"remaining_in_batch"`
}

// PickPlan is the computed result of selecting batches for a reservation.
// It is a pure calculation; nothing is deducted until the plan is applied.
type PickPlan struct {
	Draws          []BatchDraw     `json:"draws"`
	TotalRequested decimal.Decimal `json:"total_requested"`
	TotalPlanned   decimal.Decimal `json:"total_planned"`
	TotalAvailable decimal.Decimal `json:"total_available"`
}

// PickStrategy orders the candidate batches for selection
type PickStrategy interface {
	// StrategyType returns the pick strategy type
	StrategyType() PickStrategyType
	// Order sorts the candidate batches into draw order
	Order(batches []Batch) []Batch
}

// FEFOPickStrategy orders batches by ascending expiry date, batches without
// an expiry date last, ties broken by ascending batch number.
type FEFOPickStrategy struct{}

// NewFEFOPickStrategy creates a new FEFO pick strategy
func NewFEFOPickStrategy() *FEFOPickStrategy {
	return &FEFOPickStrategy{}
}

// StrategyType returns the pick strategy type
func (s *FEFOPickStrategy) StrategyType() PickStrategyType {
	return PickStrategyFEFO
}

// Order sorts batches earliest expiry first
func (s *FEFOPickStrategy) Order(batches []Batch) []Batch {
	sorted := make([]Batch, len(batches))
	copy(sorted, batches)
	sort.SliceStable(sorted, func(i, j int) bool {
		ei, ej := sorted[i].ExpiryDate, sorted[j].ExpiryDate
		switch {
		case ei != nil && ej != nil:
			if !ei.Equal(*ej) {
				return ei.Before(*ej)
			}
		case ei != nil:
			return true
		case ej != nil:
			return false
		}
		return sorted[i].BatchNumber < sorted[j].BatchNumber
	})
	return sorted
}

// FIFOPickStrategy orders batches oldest first by creation date
type FIFOPickStrategy struct{}

// NewFIFOPickStrategy creates a new FIFO pick strategy
func NewFIFOPickStrategy() *FIFOPickStrategy {
	return &FIFOPickStrategy{}
}

// StrategyType returns the pick strategy type
func (s *FIFOPickStrategy) StrategyType() PickStrategyType {
	return PickStrategyFIFO
}

// Order sorts batches by creation date, then batch number
func (s *FIFOPickStrategy) Order(batches []Batch) []Batch {
	sorted := make([]Batch, len(batches))
	copy(sorted, batches)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].BatchNumber < sorted[j].BatchNumber
	})
	return sorted
}

// StrategyFor returns the pick strategy for the given type
func StrategyFor(strategyType PickStrategyType) (PickStrategy, error) {
	switch strategyType {
	case PickStrategyFEFO:
		return NewFEFOPickStrategy(), nil
	case PickStrategyFIFO:
		return NewFIFOPickStrategy(), nil
	default:
		return nil, shared.NewDomainError("INVALID_STRATEGY", "Unknown pick strategy type")
	}
}

// BuildPickPlan computes which batches cover the requested quantity using the
// given strategy. It either plans the full quantity or fails with
// InsufficientStock; a partial plan is never returned.
func BuildPickPlan(requested decimal.Decimal, batches []Batch, strategy PickStrategy) (*PickPlan, error) {
	if requested.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be positive")
	}
	if strategy == nil {
		strategy = NewFEFOPickStrategy()
	}

	available := decimal.Zero
	candidates := make([]Batch, 0, len(batches))
	for _, b := range batches {
		if b.HasStock() {
			candidates = append(candidates, b)
			available = available.Add(b.QuantityOnHand)
		}
	}

	plan := &PickPlan{
		Draws:          make([]BatchDraw, 0, len(candidates)),
		TotalRequested: requested,
		TotalPlanned:   decimal.Zero,
		TotalAvailable: available,
	}

	if available.LessThan(requested) {
		return plan, shared.ErrInsufficientStock
	}

	remaining := requested
	for _, b := range strategy.Order(candidates) {
		if remaining.IsZero() {
			break
		}
		draw := decimal.Min(remaining, b.QuantityOnHand)
		plan.Draws = append(plan.Draws, BatchDraw{
			BatchID:     b.ID,
			BatchNumber: b.BatchNumber,
			Quantity:    draw,
			UnitCost:    b.UnitCost,
			ExpiryDate:  b.ExpiryDate,
			Remaining:   b.QuantityOnHand.Sub(draw),
		})
		plan.TotalPlanned = plan.TotalPlanned.Add(draw)
		remaining = remaining.Sub(draw)
	}

	return plan, nil
}

// ApplyPickPlan deducts each planned draw from the corresponding batch.
// Every draw must be covered in full; the caller holds the per-key lock.
func ApplyPickPlan(batches []*Batch, plan *PickPlan) error {
	if plan == nil {
		return shared.NewDomainError("INVALID_PLAN", "Pick plan cannot be nil")
	}

	byID := make(map[uuid.UUID]*Batch, len(batches))
	for _, b := range batches {
		byID[b.ID] = b
	}

	for _, draw := range plan.Draws {
		batch, ok := byID[draw.BatchID]
		if !ok {
			return shared.NewDomainError("BATCH_NOT_FOUND", "Batch not found: "+draw.BatchID.String())
		}
		if err := batch.Deduct(draw.Quantity); err != nil {
			return err
		}
	}
	return nil
}
