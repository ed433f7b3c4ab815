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

// RequestService drives the purchase request lifecycle. Approval is the only
// step that touches the ledger: it reserves stock for every approved line in
// one transaction, so a request is either fully allocated or stays pending.
type RequestService struct {
	scope    TransactionScope
	locks    *ledgerapp.KeyedMutex
	planner  *AllocationPlanner
	eventBus shared.EventPublisher
	logger   *zap.Logger
}

// NewRequestService creates a new RequestService
func NewRequestService(scope TransactionScope, locks *ledgerapp.KeyedMutex, planner *AllocationPlanner, logger *zap.Logger) *RequestService {
	if planner == nil {
		planner = NewAllocationPlanner(nil)
	}
	return &RequestService{
		scope:   scope,
		locks:   locks,
		planner: planner,
		logger:  logger,
	}
}

// SetEventPublisher sets the event publisher for request events
func (s *RequestService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventBus = publisher
}

func (s *RequestService) publish(ctx context.Context, agg shared.AggregateRoot) {
	events := agg.GetDomainEvents()
	agg.ClearDomainEvents()
	if s.eventBus == nil || len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish request events", zap.Error(err))
	}
}

// Create files a new pending purchase request. Creation never reserves stock.
func (s *RequestService) Create(ctx context.Context, cmd CreateRequestCommand) (*RequestResponse, error) {
	lines := make([]fulfillment.RequestLineInput, len(cmd.Lines))
	for i, l := range cmd.Lines {
		lines[i] = fulfillment.RequestLineInput{MedicineID: l.MedicineID, Quantity: l.Quantity}
	}

	request, err := fulfillment.NewPurchaseRequest(cmd.ShopID, cmd.WarehouseID, cmd.Priority, lines)
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.RequestRepo().Save(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase request created",
		zap.String("request_id", request.ID.String()),
		zap.String("shop_id", cmd.ShopID.String()),
		zap.Int("lines", len(request.Lines)),
	)
	s.publish(ctx, request)
	return ToRequestResponse(request), nil
}

// Approve approves a pending request and reserves warehouse stock for every
// approved line. Allocation is all-or-nothing: if any line cannot be covered
// in full the transaction rolls back, no batch is touched and the request
// stays pending. Lines omitted from the command are approved at their
// requested quantity.
func (s *RequestService) Approve(ctx context.Context, cmd ApproveRequestCommand) (*RequestResponse, error) {
	request, err := s.load(ctx, cmd.RequestID)
	if err != nil {
		return nil, err
	}

	approved, err := resolveApprovedLines(request, cmd.Lines)
	if err != nil {
		return nil, err
	}

	// lock every (warehouse, medicine) pair touched by the approval; LockAll
	// sorts the keys so concurrent approvals cannot deadlock
	keys := make([]string, 0, len(approved))
	for _, a := range approved {
		keys = append(keys, ledgerapp.PairKey(request.WarehouseID, a.MedicineID))
	}
	unlock := s.locks.LockAll(keys)
	defer unlock()

	var allocations []*fulfillment.Allocation
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		request, err = repos.RequestRepo().FindByID(ctx, cmd.RequestID)
		if err != nil {
			return err
		}
		if err := request.Approve(approved); err != nil {
			return err
		}

		byMedicine := make(map[uuid.UUID]fulfillment.RequestLine, len(request.Lines))
		for _, l := range request.Lines {
			byMedicine[l.MedicineID] = l
		}

		allocations = allocations[:0]
		for _, a := range approved {
			line := byMedicine[a.MedicineID]
			allocation, err := s.planner.PlanLine(ctx, repos.BatchRepo(),
				request.ID, line, request.WarehouseID, a.QuantityApproved)
			if err != nil {
				return err
			}
			if err := repos.AllocationRepo().Save(ctx, allocation); err != nil {
				return err
			}
			allocations = append(allocations, allocation)
		}

		return repos.RequestRepo().SaveWithLock(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase request approved",
		zap.String("request_id", request.ID.String()),
		zap.Int("allocations", len(allocations)),
	)
	s.publish(ctx, request)
	return ToRequestResponse(request), nil
}

// Reject closes a pending request without any stock side effects
func (s *RequestService) Reject(ctx context.Context, requestID uuid.UUID) (*RequestResponse, error) {
	var request *fulfillment.PurchaseRequest
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		request, err = repos.RequestRepo().FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		if err := request.Reject(); err != nil {
			return err
		}
		return repos.RequestRepo().SaveWithLock(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase request rejected", zap.String("request_id", requestID.String()))
	s.publish(ctx, request)
	return ToRequestResponse(request), nil
}

// Abandon closes an approved request that will never be dispatched. Every
// live allocation is released: each reservation is credited back to the exact
// batch it was drawn from, in the same transaction as the status change.
func (s *RequestService) Abandon(ctx context.Context, requestID uuid.UUID) (*RequestResponse, error) {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}

	live, err := s.liveAllocations(ctx, requestID)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(live))
	for _, a := range live {
		keys = append(keys, ledgerapp.PairKey(request.WarehouseID, a.MedicineID))
	}
	unlock := s.locks.LockAll(keys)
	defer unlock()

	var released decimal.Decimal
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		request, err = repos.RequestRepo().FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		if err := request.Abandon(); err != nil {
			return err
		}

		allocations, err := repos.AllocationRepo().FindLiveByRequest(ctx, requestID)
		if err != nil {
			return err
		}

		released = decimal.Zero
		for i := range allocations {
			allocation := &allocations[i]
			if err := allocation.Release(); err != nil {
				return err
			}
			qty, err := ledgerapp.ReleaseWithRepo(ctx, repos.BatchRepo(), reservationDraws(allocation))
			if err != nil {
				return err
			}
			released = released.Add(qty)
			if err := repos.AllocationRepo().Save(ctx, allocation); err != nil {
				return err
			}
		}

		return repos.RequestRepo().SaveWithLock(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase request abandoned",
		zap.String("request_id", requestID.String()),
		zap.String("released_quantity", released.String()),
	)
	s.publish(ctx, request)
	return ToRequestResponse(request), nil
}

// Get returns a single request with its lines
func (s *RequestService) Get(ctx context.Context, requestID uuid.UUID) (*RequestResponse, error) {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return ToRequestResponse(request), nil
}

// GetAllocations returns the allocations created for a request
func (s *RequestService) GetAllocations(ctx context.Context, requestID uuid.UUID) ([]*AllocationResponse, error) {
	var allocations []fulfillment.Allocation
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		allocations, err = repos.AllocationRepo().FindByRequest(ctx, requestID)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]*fulfillment.Allocation, len(allocations))
	for i := range allocations {
		out[i] = &allocations[i]
	}
	return ToAllocationResponses(out), nil
}

// List returns requests matching the filter, newest first
func (s *RequestService) List(ctx context.Context, filter shared.Filter) ([]*RequestResponse, int64, error) {
	var requests []fulfillment.PurchaseRequest
	var total int64
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		requests, err = repos.RequestRepo().FindAll(ctx, filter)
		if err != nil {
			return err
		}
		total, err = repos.RequestRepo().Count(ctx, filter)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return toRequestPointers(requests), total, nil
}

// ListByShop returns requests filed by a shop
func (s *RequestService) ListByShop(ctx context.Context, shopID uuid.UUID, filter shared.Filter) ([]*RequestResponse, error) {
	var requests []fulfillment.PurchaseRequest
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		requests, err = repos.RequestRepo().FindByShop(ctx, shopID, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toRequestPointers(requests), nil
}

// ListByStatus returns requests in the given status
func (s *RequestService) ListByStatus(ctx context.Context, status fulfillment.RequestStatus, filter shared.Filter) ([]*RequestResponse, error) {
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Unknown request status")
	}
	var requests []fulfillment.PurchaseRequest
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		requests, err = repos.RequestRepo().FindByStatus(ctx, status, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toRequestPointers(requests), nil
}

func (s *RequestService) load(ctx context.Context, requestID uuid.UUID) (*fulfillment.PurchaseRequest, error) {
	var request *fulfillment.PurchaseRequest
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		request, err = repos.RequestRepo().FindByID(ctx, requestID)
		return err
	})
	return request, err
}

func (s *RequestService) liveAllocations(ctx context.Context, requestID uuid.UUID) ([]fulfillment.Allocation, error) {
	var allocations []fulfillment.Allocation
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		allocations, err = repos.AllocationRepo().FindLiveByRequest(ctx, requestID)
		return err
	})
	return allocations, err
}

// resolveApprovedLines expands the approval command into per-line quantities.
// An empty command approves every line at its requested quantity.
func resolveApprovedLines(request *fulfillment.PurchaseRequest, inputs []ApproveLineInput) ([]fulfillment.ApprovedLine, error) {
	if len(inputs) == 0 {
		approved := make([]fulfillment.ApprovedLine, len(request.Lines))
		for i, l := range request.Lines {
			approved[i] = fulfillment.ApprovedLine{
				MedicineID:       l.MedicineID,
				QuantityApproved: l.QuantityRequested,
			}
		}
		return approved, nil
	}

	seen := make(map[uuid.UUID]bool, len(inputs))
	approved := make([]fulfillment.ApprovedLine, 0, len(inputs))
	for _, in := range inputs {
		if seen[in.MedicineID] {
			return nil, shared.NewDomainError("DUPLICATE_LINE", "Duplicate medicine in approval lines")
		}
		seen[in.MedicineID] = true
		approved = append(approved, fulfillment.ApprovedLine{
			MedicineID:       in.MedicineID,
			QuantityApproved: in.Quantity,
		})
	}
	return approved, nil
}

// reservationDraws converts an allocation's reservations back into batch
// draws so the ledger can credit the exact source batches.
func reservationDraws(a *fulfillment.Allocation) []ledger.BatchDraw {
	draws := make([]ledger.BatchDraw, len(a.Reservations))
	for i, r := range a.Reservations {
		draws[i] = ledger.BatchDraw{
			BatchID:     r.BatchID,
			BatchNumber: r.BatchNumber,
			Quantity:    r.Quantity,
			UnitCost:    r.UnitCost,
			ExpiryDate:  r.ExpiryDate,
		}
	}
	return draws
}

func toRequestPointers(requests []fulfillment.PurchaseRequest) []*RequestResponse {
	out := make([]*fulfillment.PurchaseRequest, len(requests))
	for i := range requests {
		out[i] = &requests[i]
	}
	return ToRequestResponses(out)
}
