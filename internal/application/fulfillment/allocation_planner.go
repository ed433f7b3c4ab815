package fulfillment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	ledgerapp "github.com/pharmerp/backend/internal/application/ledger"
	"github.com/pharmerp/backend/internal/domain/fulfillment"
	"github.com/pharmerp/backend/internal/domain/ledger"
	"github.com/pharmerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AllocationPlanner turns approved request lines into batch reservations.
// Each line is allocated in full from the warehouse's batches in FEFO order;
// a line that cannot be fully covered fails the whole plan.
type AllocationPlanner struct {
	strategy ledger.PickStrategy
}

// NewAllocationPlanner creates a planner using the given pick strategy.
// A nil strategy defaults to FEFO.
func NewAllocationPlanner(strategy ledger.PickStrategy) *AllocationPlanner {
	if strategy == nil {
		strategy = ledger.NewFEFOPickStrategy()
	}
	return &AllocationPlanner{strategy: strategy}
}

// PlanLine reserves warehouse stock for one approved request line and builds
// the allocation holding the resulting batch draws. The batch debits happen
// through the given repository, so callers run this inside their transaction
// while holding the (warehouse, medicine) lock.
func (p *AllocationPlanner) PlanLine(
	ctx context.Context,
	repo ledger.BatchRepository,
	requestID uuid.UUID,
	line fulfillment.RequestLine,
	warehouseID uuid.UUID,
	quantity decimal.Decimal,
) (*fulfillment.Allocation, error) {
	plan, err := ledgerapp.ReserveWithRepo(ctx, repo, warehouseID, line.MedicineID, quantity, p.strategy)
	if err != nil {
		if plan != nil && err == shared.ErrInsufficientStock {
			return nil, shortageError(line.MedicineID, quantity, plan.TotalAvailable)
		}
		return nil, err
	}

	reservations := make([]fulfillment.ReservationInput, len(plan.Draws))
	for i, draw := range plan.Draws {
		reservations[i] = fulfillment.ReservationInput{
			BatchID:     draw.BatchID,
			BatchNumber: draw.BatchNumber,
			Quantity:    draw.Quantity,
			UnitCost:    draw.UnitCost,
			ExpiryDate:  draw.ExpiryDate,
		}
	}
	return fulfillment.NewAllocation(requestID, line.ID, warehouseID, line.MedicineID, reservations)
}

func shortageError(medicineID uuid.UUID, requested, available decimal.Decimal) error {
	return shared.NewDomainError("ALLOCATION_FAILED", fmt.Sprintf(
		"Cannot allocate medicine %s: requested %s, available %s",
		medicineID, requested.String(), available.String()))
}
