package fulfillment

import (
	"context"

	"github.com/google/uuid"
	ledgerapp "github.com/pharmerp/backend/internal/application/ledger"
	"github.com/pharmerp/backend/internal/domain/fulfillment"
	"github.com/pharmerp/backend/internal/domain/ledger"
	"github.com/pharmerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DispatchService drives shipments from warehouse to shop. Creating a
// dispatch consumes existing allocations without touching the ledger; only
// delivery moves stock, crediting the shop exactly once per dispatch.
type DispatchService struct {
	scope    TransactionScope
	locks    *ledgerapp.KeyedMutex
	strategy ledger.PickStrategy
	eventBus shared.EventPublisher
	logger   *zap.Logger
}

// NewDispatchService creates a new DispatchService
func NewDispatchService(scope TransactionScope, locks *ledgerapp.KeyedMutex, logger *zap.Logger) *DispatchService {
	return &DispatchService{
		scope:    scope,
		locks:    locks,
		strategy: ledger.NewFEFOPickStrategy(),
		logger:   logger,
	}
}

// SetEventPublisher sets the event publisher for dispatch events
func (s *DispatchService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventBus = publisher
}

func (s *DispatchService) publish(ctx context.Context, aggs ...shared.AggregateRoot) {
	var events []shared.DomainEvent
	for _, agg := range aggs {
		events = append(events, agg.GetDomainEvents()...)
		agg.ClearDomainEvents()
	}
	if s.eventBus == nil || len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish dispatch events", zap.Error(err))
	}
}

// CreateFromRequest turns an approved request's live allocations into a
// dispatch. The allocations are consumed and the request moves to DISPATCHED
// in the same transaction. No stock moves here: the source debit happened at
// approval, the destination credit waits for delivery.
func (s *DispatchService) CreateFromRequest(ctx context.Context, requestID uuid.UUID) (*DispatchResponse, error) {
	var dispatch *fulfillment.Dispatch
	var request *fulfillment.PurchaseRequest
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		request, err = repos.RequestRepo().FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		if request.Status != fulfillment.RequestStatusApproved {
			return shared.NewDomainError("INVALID_STATE",
				"Dispatch requires an APPROVED request, current: "+request.Status.String())
		}

		allocations, err := repos.AllocationRepo().FindLiveByRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if len(allocations) == 0 {
			return shared.NewDomainError("NO_ALLOCATIONS", "Request has no live allocations to dispatch")
		}

		var lines []fulfillment.DispatchLineInput
		for i := range allocations {
			allocation := &allocations[i]
			if err := allocation.Consume(); err != nil {
				return err
			}
			for _, r := range allocation.Reservations {
				lines = append(lines, fulfillment.DispatchLineInput{
					MedicineID:    allocation.MedicineID,
					SourceBatchID: r.BatchID,
					BatchNumber:   r.BatchNumber,
					Quantity:      r.Quantity,
					UnitCost:      r.UnitCost,
					ExpiryDate:    r.ExpiryDate,
				})
			}
			if err := repos.AllocationRepo().Save(ctx, allocation); err != nil {
				return err
			}
		}

		dispatch, err = fulfillment.NewDispatch(request.WarehouseID, request.ShopID, &requestID, lines)
		if err != nil {
			return err
		}
		if err := repos.DispatchRepo().Save(ctx, dispatch); err != nil {
			return err
		}

		if err := request.MarkDispatched(); err != nil {
			return err
		}
		return repos.RequestRepo().SaveWithLock(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("dispatch created from request",
		zap.String("dispatch_id", dispatch.ID.String()),
		zap.String("request_id", requestID.String()),
		zap.Int("lines", len(dispatch.Lines)),
	)
	s.publish(ctx, dispatch, request)
	return ToDispatchResponse(dispatch), nil
}

// CreateAdHoc creates a dispatch with no backing request. Stock is reserved
// from the warehouse at creation time, all lines or none.
func (s *DispatchService) CreateAdHoc(ctx context.Context, cmd CreateAdHocDispatchCommand) (*DispatchResponse, error) {
	if len(cmd.Lines) == 0 {
		return nil, shared.NewDomainError("INVALID_LINES", "At least one dispatch line is required")
	}
	seen := make(map[uuid.UUID]bool, len(cmd.Lines))
	keys := make([]string, 0, len(cmd.Lines))
	for _, l := range cmd.Lines {
		if l.MedicineID == uuid.Nil {
			return nil, shared.NewDomainError("INVALID_MEDICINE", "Medicine ID cannot be empty")
		}
		if l.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be positive")
		}
		if seen[l.MedicineID] {
			return nil, shared.NewDomainError("DUPLICATE_LINE", "Duplicate medicine in dispatch lines")
		}
		seen[l.MedicineID] = true
		keys = append(keys, ledgerapp.PairKey(cmd.WarehouseID, l.MedicineID))
	}

	unlock := s.locks.LockAll(keys)
	defer unlock()

	var dispatch *fulfillment.Dispatch
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var lines []fulfillment.DispatchLineInput
		for _, l := range cmd.Lines {
			plan, err := ledgerapp.ReserveWithRepo(ctx, repos.BatchRepo(),
				cmd.WarehouseID, l.MedicineID, l.Quantity, s.strategy)
			if err != nil {
				if plan != nil && err == shared.ErrInsufficientStock {
					return shortageError(l.MedicineID, l.Quantity, plan.TotalAvailable)
				}
				return err
			}
			for _, draw := range plan.Draws {
				lines = append(lines, fulfillment.DispatchLineInput{
					MedicineID:    l.MedicineID,
					SourceBatchID: draw.BatchID,
					BatchNumber:   draw.BatchNumber,
					Quantity:      draw.Quantity,
					UnitCost:      draw.UnitCost,
					ExpiryDate:    draw.ExpiryDate,
				})
			}
		}

		var err error
		dispatch, err = fulfillment.NewDispatch(cmd.WarehouseID, cmd.ShopID, nil, lines)
		if err != nil {
			return err
		}
		return repos.DispatchRepo().Save(ctx, dispatch)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ad-hoc dispatch created",
		zap.String("dispatch_id", dispatch.ID.String()),
		zap.String("warehouse_id", cmd.WarehouseID.String()),
		zap.String("shop_id", cmd.ShopID.String()),
	)
	s.publish(ctx, dispatch)
	return ToDispatchResponse(dispatch), nil
}

// MarkInTransit advances a created dispatch to IN_TRANSIT
func (s *DispatchService) MarkInTransit(ctx context.Context, dispatchID uuid.UUID) (*DispatchResponse, error) {
	var dispatch *fulfillment.Dispatch
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		dispatch, err = repos.DispatchRepo().FindByID(ctx, dispatchID)
		if err != nil {
			return err
		}
		if err := dispatch.MarkInTransit(); err != nil {
			return err
		}
		return repos.DispatchRepo().SaveWithLock(ctx, dispatch)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("dispatch in transit", zap.String("dispatch_id", dispatchID.String()))
	s.publish(ctx, dispatch)
	return ToDispatchResponse(dispatch), nil
}

// ReceiveLine records the shop-side receipt of one line, optionally
// assigning the rack where the stock will be shelved. Receiving the same
// line twice keeps the first receipt.
func (s *DispatchService) ReceiveLine(ctx context.Context, cmd ReceiveLineCommand) (*DispatchResponse, error) {
	var dispatch *fulfillment.Dispatch
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		dispatch, err = repos.DispatchRepo().FindByID(ctx, cmd.DispatchID)
		if err != nil {
			return err
		}
		if _, err := dispatch.ReceiveLine(cmd.LineID, cmd.RackHint); err != nil {
			return err
		}
		return repos.DispatchRepo().Save(ctx, dispatch)
	})
	if err != nil {
		return nil, err
	}
	return ToDispatchResponse(dispatch), nil
}

// MarkDelivered completes a dispatch, crediting every line to the shop's
// ledger. The status check and the credits share one transaction, so a
// dispatch that is already DELIVERED returns successfully without crediting
// anything: retried or duplicated delivery calls can never double-count
// stock at the shop.
func (s *DispatchService) MarkDelivered(ctx context.Context, dispatchID uuid.UUID) (*DispatchResponse, error) {
	dispatch, err := s.load(ctx, dispatchID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(dispatch.Lines))
	keys := make([]string, 0, len(dispatch.Lines))
	for _, l := range dispatch.Lines {
		key := ledgerapp.PairKey(dispatch.ShopID, l.MedicineID)
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	unlock := s.locks.LockAll(keys)
	defer unlock()

	delivered := false
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		dispatch, err = repos.DispatchRepo().FindByID(ctx, dispatchID)
		if err != nil {
			return err
		}
		if dispatch.IsDelivered() {
			// retried delivery, report success without moving stock again
			return nil
		}

		if err := dispatch.MarkDelivered(); err != nil {
			return err
		}
		for _, line := range dispatch.Lines {
			if _, err := ledgerapp.CreditWithRepo(ctx, repos.BatchRepo(), ledgerapp.CreditCommand{
				LocationID:   dispatch.ShopID,
				LocationKind: ledger.LocationKindShop,
				MedicineID:   line.MedicineID,
				BatchNumber:  line.BatchNumber,
				Quantity:     line.Quantity,
				ExpiryDate:   line.ExpiryDate,
				UnitCost:     line.UnitCost,
				Rack:         line.RackHint,
			}); err != nil {
				return err
			}
		}

		delivered = true
		return repos.DispatchRepo().SaveWithLock(ctx, dispatch)
	})
	if err != nil {
		return nil, err
	}

	if delivered {
		s.logger.Info("dispatch delivered",
			zap.String("dispatch_id", dispatchID.String()),
			zap.String("shop_id", dispatch.ShopID.String()),
			zap.String("total_quantity", dispatch.TotalQuantity().String()),
		)
		s.publish(ctx, dispatch)
	}
	return ToDispatchResponse(dispatch), nil
}

// Get returns a single dispatch with its lines
func (s *DispatchService) Get(ctx context.Context, dispatchID uuid.UUID) (*DispatchResponse, error) {
	dispatch, err := s.load(ctx, dispatchID)
	if err != nil {
		return nil, err
	}
	return ToDispatchResponse(dispatch), nil
}

// List returns dispatches matching the filter
func (s *DispatchService) List(ctx context.Context, filter shared.Filter) ([]*DispatchResponse, int64, error) {
	var dispatches []fulfillment.Dispatch
	var total int64
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		dispatches, err = repos.DispatchRepo().FindAll(ctx, filter)
		if err != nil {
			return err
		}
		total, err = repos.DispatchRepo().Count(ctx, filter)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return toDispatchPointers(dispatches), total, nil
}

// ListByShop returns dispatches destined for a shop
func (s *DispatchService) ListByShop(ctx context.Context, shopID uuid.UUID, filter shared.Filter) ([]*DispatchResponse, error) {
	var dispatches []fulfillment.Dispatch
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		dispatches, err = repos.DispatchRepo().FindByShop(ctx, shopID, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toDispatchPointers(dispatches), nil
}

// ListByRequest returns the dispatches created from a request
func (s *DispatchService) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*DispatchResponse, error) {
	var dispatches []fulfillment.Dispatch
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		dispatches, err = repos.DispatchRepo().FindByRequest(ctx, requestID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toDispatchPointers(dispatches), nil
}

func (s *DispatchService) load(ctx context.Context, dispatchID uuid.UUID) (*fulfillment.Dispatch, error) {
	var dispatch *fulfillment.Dispatch
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		dispatch, err = repos.DispatchRepo().FindByID(ctx, dispatchID)
		return err
	})
	return dispatch, err
}

func toDispatchPointers(dispatches []fulfillment.Dispatch) []*DispatchResponse {
	out := make([]*fulfillment.Dispatch, len(dispatches))
	for i := range dispatches {
		out[i] = &dispatches[i]
	}
	return ToDispatchResponses(out)
}
