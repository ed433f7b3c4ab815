package ledger

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/ledger"
	"github.com/pharmerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AdjustmentService applies manual stock corrections (damage, expiry
// write-off, recount) against single batches. Every correction writes an
// append-only audit record in the same transaction as the batch mutation.
type AdjustmentService struct {
	scope    TransactionScope
	locks    *KeyedMutex
	eventBus shared.EventPublisher
	logger   *zap.Logger
}

// NewAdjustmentService creates a new AdjustmentService
func NewAdjustmentService(scope TransactionScope, locks *KeyedMutex, logger *zap.Logger) *AdjustmentService {
	return &AdjustmentService{
		scope:  scope,
		locks:  locks,
		logger: logger,
	}
}

// SetEventPublisher sets the event publisher for adjustment events
func (s *AdjustmentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventBus = publisher
}

// Adjust validates and applies a manual correction. Decreases that would
// drive the batch below zero fail with WouldGoNegative and leave no trace.
func (s *AdjustmentService) Adjust(ctx context.Context, cmd AdjustCommand) (*AdjustmentResponse, error) {
	if !cmd.Type.IsValid() {
		return nil, shared.NewDomainError("INVALID_ADJUSTMENT_TYPE", "Adjustment type must be INCREASE or DECREASE")
	}
	if cmd.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Adjustment quantity must be positive")
	}
	if strings.TrimSpace(cmd.Reason) == "" {
		return nil, shared.NewDomainError("REASON_REQUIRED", "Adjustment reason is mandatory")
	}

	delta := cmd.Quantity
	if cmd.Type == ledger.AdjustmentTypeDecrease {
		delta = cmd.Quantity.Neg()
	}

	unlock := s.locks.Lock(PairKey(cmd.LocationID, cmd.MedicineID))
	defer unlock()

	var adjustment *ledger.StockAdjustment
	var newQuantity decimal.Decimal
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		batch, err := repos.BatchRepo().FindByID(ctx, cmd.BatchID)
		if err != nil {
			return err
		}
		if batch.LocationID != cmd.LocationID || batch.MedicineID != cmd.MedicineID {
			return shared.NewDomainError("BATCH_MISMATCH", "Batch does not belong to the given location and medicine")
		}

		if err := batch.ApplyDelta(delta); err != nil {
			return err
		}

		adjustment, err = ledger.NewStockAdjustment(batch, delta, cmd.Reason, cmd.Actor)
		if err != nil {
			return err
		}

		if err := repos.BatchRepo().SaveWithLock(ctx, batch); err != nil {
			return err
		}
		if err := repos.AdjustmentRepo().Create(ctx, adjustment); err != nil {
			return err
		}

		newQuantity = batch.QuantityOnHand
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock adjusted",
		zap.String("batch_id", cmd.BatchID.String()),
		zap.String("delta", delta.String()),
		zap.String("reason", adjustment.Reason),
		zap.String("new_quantity", newQuantity.String()),
	)
	if s.eventBus != nil {
		_ = s.eventBus.Publish(ctx, ledger.NewStockAdjustedEvent(
			cmd.BatchID, cmd.MedicineID, cmd.LocationID, delta, newQuantity, adjustment.Reason))
	}

	resp := ToAdjustmentResponse(adjustment, newQuantity)
	return &resp, nil
}

// ListByLocation returns the adjustment audit trail for a location
func (s *AdjustmentService) ListByLocation(ctx context.Context, locationID uuid.UUID, filter shared.Filter) ([]AdjustmentResponse, int64, error) {
	var adjustments []ledger.StockAdjustment
	var total int64
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		adjustments, err = repos.AdjustmentRepo().FindByLocation(ctx, locationID, filter)
		if err != nil {
			return err
		}
		total, err = repos.AdjustmentRepo().CountByLocation(ctx, locationID)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	out := make([]AdjustmentResponse, 0, len(adjustments))
	for i := range adjustments {
		out = append(out, AdjustmentResponse{
			ID:         adjustments[i].ID,
			BatchID:    adjustments[i].BatchID,
			MedicineID: adjustments[i].MedicineID,
			LocationID: adjustments[i].LocationID,
			Delta:      adjustments[i].Delta,
			Reason:     adjustments[i].Reason,
			Actor:      adjustments[i].Actor,
			AdjustedAt: adjustments[i].AdjustedAt,
		})
	}
	return out, total, nil
}
