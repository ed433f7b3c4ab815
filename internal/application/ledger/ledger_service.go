package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/ledger"
	"github.com/pharmerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService is the authoritative owner of batch-level quantities.
// Every stock mutation in the system flows through Reserve, Credit, Release
// or the adjustment path; nothing else writes quantity_on_hand.
//
// Mutations on the same (location, medicine) pair are serialized by a keyed
// mutex held across the load-mutate-save transaction, with an optimistic
// version check on each batch row as the second line of defense. Mutations on
// different pairs run fully in parallel.
type LedgerService struct {
	scope    TransactionScope
	locks    *KeyedMutex
	eventBus shared.EventPublisher
	logger   *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(scope TransactionScope, locks *KeyedMutex, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		scope:  scope,
		locks:  locks,
		logger: logger,
	}
}

// SetEventPublisher sets the event publisher for ledger events
func (s *LedgerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventBus = publisher
}

// Locks exposes the keyed mutex so coordinating services can hold the same
// per-pair locks around multi-step units of work.
func (s *LedgerService) Locks() *KeyedMutex {
	return s.locks
}

// publish sends events after the surrounding transaction has committed
func (s *LedgerService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventBus == nil || len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish ledger events", zap.Error(err))
	}
}

// Reserve holds quantity of a medicine at a location. Batches are selected by
// the given strategy (FEFO unless specified) and deducted atomically: either
// the full quantity is reserved or InsufficientStock is returned and no batch
// is touched.
func (s *LedgerService) Reserve(ctx context.Context, cmd ReserveCommand) (*ReserveResult, error) {
	if cmd.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Reserve quantity must be positive")
	}

	strategyType := cmd.Strategy
	if strategyType == "" {
		strategyType = ledger.PickStrategyFEFO
	}
	strategy, err := ledger.StrategyFor(strategyType)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(PairKey(cmd.LocationID, cmd.MedicineID))
	defer unlock()

	var plan *ledger.PickPlan
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		plan, err = ReserveWithRepo(ctx, repos.BatchRepo(), cmd.LocationID, cmd.MedicineID, cmd.Quantity, strategy)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock reserved",
		zap.String("location_id", cmd.LocationID.String()),
		zap.String("medicine_id", cmd.MedicineID.String()),
		zap.String("quantity", cmd.Quantity.String()),
		zap.Int("batches", len(plan.Draws)),
	)
	s.publish(ctx, ledger.NewStockReservedEvent(cmd.MedicineID, cmd.LocationID, cmd.Quantity, plan.Draws))

	return &ReserveResult{
		LocationID: cmd.LocationID,
		MedicineID: cmd.MedicineID,
		Quantity:   cmd.Quantity,
		Draws:      plan.Draws,
	}, nil
}

// Credit brings stock into a location, inserting a new batch or topping up
// the batch matching (medicine, location, batch number). This is the only
// path by which stock enters a location.
func (s *LedgerService) Credit(ctx context.Context, cmd CreditCommand) (*BatchResponse, error) {
	unlock := s.locks.Lock(PairKey(cmd.LocationID, cmd.MedicineID))
	defer unlock()

	var batch *ledger.Batch
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batch, err = CreditWithRepo(ctx, repos.BatchRepo(), cmd)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock credited",
		zap.String("location_id", cmd.LocationID.String()),
		zap.String("medicine_id", cmd.MedicineID.String()),
		zap.String("batch_number", cmd.BatchNumber),
		zap.String("quantity", cmd.Quantity.String()),
	)
	s.publish(ctx, ledger.NewStockCreditedEvent(batch.ID, cmd.MedicineID, cmd.LocationID, cmd.BatchNumber, cmd.Quantity))

	resp := ToBatchResponse(batch)
	return &resp, nil
}

// Release returns previously reserved quantity to the exact batches it was
// drawn from. Used when an approved request is abandoned; the compensation
// restores each source batch to its pre-reservation quantity.
func (s *LedgerService) Release(ctx context.Context, cmd ReleaseCommand) error {
	if len(cmd.Draws) == 0 {
		return shared.NewDomainError("INVALID_RELEASE", "Release requires at least one draw to return")
	}

	unlock := s.locks.Lock(PairKey(cmd.LocationID, cmd.MedicineID))
	defer unlock()

	total := decimal.Zero
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		total, err = ReleaseWithRepo(ctx, repos.BatchRepo(), cmd.Draws)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("reservation released",
		zap.String("location_id", cmd.LocationID.String()),
		zap.String("medicine_id", cmd.MedicineID.String()),
		zap.String("quantity", total.String()),
	)
	s.publish(ctx, ledger.NewStockReleasedEvent(cmd.MedicineID, cmd.LocationID, total))
	return nil
}

// ListBatches returns the current batches for a medicine at a location,
// sorted by expiry ascending then batch number.
func (s *LedgerService) ListBatches(ctx context.Context, locationID, medicineID uuid.UUID) ([]BatchResponse, error) {
	var batches []ledger.Batch
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batches, err = repos.BatchRepo().FindByLocationAndMedicine(ctx, locationID, medicineID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ToBatchResponses(batches), nil
}

// ListLocationBatches returns all batches at a location
func (s *LedgerService) ListLocationBatches(ctx context.Context, locationID uuid.UUID, filter shared.Filter) ([]BatchResponse, int64, error) {
	var batches []ledger.Batch
	var total int64
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batches, err = repos.BatchRepo().FindByLocation(ctx, locationID, filter)
		if err != nil {
			return err
		}
		total, err = repos.BatchRepo().CountByLocation(ctx, locationID)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return ToBatchResponses(batches), total, nil
}

// ReserveWithRepo runs the reservation against an already-scoped repository.
// Callers outside this service must hold the (location, medicine) pair lock
// for the duration of their transaction.
func ReserveWithRepo(
	ctx context.Context,
	repo ledger.BatchRepository,
	locationID, medicineID uuid.UUID,
	quantity decimal.Decimal,
	strategy ledger.PickStrategy,
) (*ledger.PickPlan, error) {
	batches, err := repo.FindByLocationAndMedicine(ctx, locationID, medicineID)
	if err != nil {
		return nil, err
	}

	plan, err := ledger.BuildPickPlan(quantity, batches, strategy)
	if err != nil {
		return plan, err
	}

	byID := make(map[uuid.UUID]*ledger.Batch, len(batches))
	for i := range batches {
		byID[batches[i].ID] = &batches[i]
	}
	for _, draw := range plan.Draws {
		batch := byID[draw.BatchID]
		if batch == nil {
			return nil, shared.NewDomainError("BATCH_NOT_FOUND", "Batch vanished during reservation: "+draw.BatchID.String())
		}
		if err := batch.Deduct(draw.Quantity); err != nil {
			return nil, err
		}
		if err := repo.SaveWithLock(ctx, batch); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// CreditWithRepo runs the credit upsert against an already-scoped repository.
// Callers outside this service must hold the (location, medicine) pair lock.
func CreditWithRepo(ctx context.Context, repo ledger.BatchRepository, cmd CreditCommand) (*ledger.Batch, error) {
	if cmd.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Credit quantity must be positive")
	}
	if cmd.BatchNumber == "" {
		return nil, shared.NewDomainError("INVALID_BATCH_NUMBER", "Batch number cannot be empty")
	}
	if !cmd.LocationKind.IsValid() {
		return nil, shared.NewDomainError("INVALID_LOCATION_KIND", "Location kind must be WAREHOUSE or SHOP")
	}

	existing, err := repo.FindByIdentity(ctx, cmd.MedicineID, cmd.LocationID, cmd.BatchNumber)
	switch {
	case err == nil:
		if existing.LocationKind != cmd.LocationKind {
			return nil, shared.NewDomainError("LOCATION_KIND_MISMATCH", "Batch exists under a different location kind")
		}
		if err := existing.Add(cmd.Quantity); err != nil {
			return nil, err
		}
		if cmd.Rack != "" {
			existing.AssignRack(cmd.Rack)
		}
		if err := repo.SaveWithLock(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	case err == shared.ErrNotFound:
		batch, err := ledger.NewBatch(cmd.MedicineID, cmd.LocationID, cmd.LocationKind, cmd.BatchNumber, cmd.ExpiryDate, cmd.Quantity, cmd.UnitCost)
		if err != nil {
			return nil, err
		}
		if cmd.Rack != "" {
			batch.AssignRack(cmd.Rack)
		}
		if err := repo.Save(ctx, batch); err != nil {
			return nil, err
		}
		return batch, nil
	default:
		return nil, err
	}
}

// ReleaseWithRepo returns draw quantities to their source batches and reports
// the total released. Callers must hold the pair lock.
func ReleaseWithRepo(ctx context.Context, repo ledger.BatchRepository, draws []ledger.BatchDraw) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, draw := range draws {
		batch, err := repo.FindByID(ctx, draw.BatchID)
		if err != nil {
			return decimal.Zero, err
		}
		if err := batch.Add(draw.Quantity); err != nil {
			return decimal.Zero, err
		}
		if err := repo.SaveWithLock(ctx, batch); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(draw.Quantity)
	}
	return total, nil
}

// ExpiringBatches returns batches with stock expiring within the window
func (s *LedgerService) ExpiringBatches(ctx context.Context, withinDays int, filter shared.Filter) ([]BatchResponse, error) {
	if withinDays <= 0 {
		withinDays = 30
	}
	var batches []ledger.Batch
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batches, err = repos.BatchRepo().FindExpiringSoon(ctx, withinDays, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ToBatchResponses(batches), nil
}
