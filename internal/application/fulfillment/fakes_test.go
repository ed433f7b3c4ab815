package fulfillment

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	ledgerapp "github.com/pharmerp/backend/internal/application/ledger"
	"github.com/pharmerp/backend/internal/domain/fulfillment"
	"github.com/pharmerp/backend/internal/domain/ledger"
	"github.com/pharmerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// In-memory repositories backing the service tests. All of them store deep
// copies so callers only observe state that went through Save.

type memBatchRepo struct {
	mu      sync.Mutex
	batches map[uuid.UUID]ledger.Batch
}

func newMemBatchRepo() *memBatchRepo {
	return &memBatchRepo{batches: make(map[uuid.UUID]ledger.Batch)}
}

func (r *memBatchRepo) seed(b *ledger.Batch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[b.ID] = *b
}

func (r *memBatchRepo) quantityOf(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	require.True(t, ok)
	return b.QuantityOnHand
}

func (r *memBatchRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := b
	return &copied, nil
}

func (r *memBatchRepo) FindByLocationAndMedicine(_ context.Context, locationID, medicineID uuid.UUID) ([]ledger.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.Batch, 0)
	for _, b := range r.batches {
		if b.LocationID == locationID && b.MedicineID == medicineID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BatchNumber < out[j].BatchNumber })
	return out, nil
}

func (r *memBatchRepo) FindByIdentity(_ context.Context, medicineID, locationID uuid.UUID, batchNumber string) (*ledger.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.batches {
		if b.MedicineID == medicineID && b.LocationID == locationID && b.BatchNumber == batchNumber {
			copied := b
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memBatchRepo) FindByLocation(_ context.Context, locationID uuid.UUID, _ shared.Filter) ([]ledger.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.Batch, 0)
	for _, b := range r.batches {
		if b.LocationID == locationID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBatchRepo) FindExpiringSoon(_ context.Context, withinDays int, _ shared.Filter) ([]ledger.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, withinDays)
	out := make([]ledger.Batch, 0)
	for _, b := range r.batches {
		if b.ExpiryDate != nil && b.ExpiryDate.Before(cutoff) && b.HasStock() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBatchRepo) Save(_ context.Context, batch *ledger.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[batch.ID] = *batch
	return nil
}

func (r *memBatchRepo) SaveWithLock(_ context.Context, batch *ledger.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.batches[batch.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if existing.Version != batch.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.batches[batch.ID] = *batch
	return nil
}

func (r *memBatchRepo) CountByLocation(_ context.Context, locationID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, b := range r.batches {
		if b.LocationID == locationID {
			n++
		}
	}
	return n, nil
}

type memRequestRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]fulfillment.PurchaseRequest
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{requests: make(map[uuid.UUID]fulfillment.PurchaseRequest)}
}

func copyRequest(r fulfillment.PurchaseRequest) fulfillment.PurchaseRequest {
	lines := make([]fulfillment.RequestLine, len(r.Lines))
	copy(lines, r.Lines)
	r.Lines = lines
	// the real repository persists rows, not pending domain events, so a
	// reloaded aggregate never carries events from before it was saved
	r.ClearDomainEvents()
	return r
}

func (r *memRequestRepo) FindByID(_ context.Context, id uuid.UUID) (*fulfillment.PurchaseRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := copyRequest(req)
	return &copied, nil
}

func (r *memRequestRepo) FindByShop(_ context.Context, shopID uuid.UUID, _ shared.Filter) ([]fulfillment.PurchaseRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]fulfillment.PurchaseRequest, 0)
	for _, req := range r.requests {
		if req.ShopID == shopID {
			out = append(out, copyRequest(req))
		}
	}
	return out, nil
}

func (r *memRequestRepo) FindByWarehouse(_ context.Context, warehouseID uuid.UUID, _ shared.Filter) ([]fulfillment.PurchaseRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]fulfillment.PurchaseRequest, 0)
	for _, req := range r.requests {
		if req.WarehouseID == warehouseID {
			out = append(out, copyRequest(req))
		}
	}
	return out, nil
}

func (r *memRequestRepo) FindByStatus(_ context.Context, status fulfillment.RequestStatus, _ shared.Filter) ([]fulfillment.PurchaseRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]fulfillment.PurchaseRequest, 0)
	for _, req := range r.requests {
		if req.Status == status {
			out = append(out, copyRequest(req))
		}
	}
	return out, nil
}

func (r *memRequestRepo) FindApprovedBefore(_ context.Context, cutoff time.Time) ([]fulfillment.PurchaseRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]fulfillment.PurchaseRequest, 0)
	for _, req := range r.requests {
		if req.Status == fulfillment.RequestStatusApproved &&
			req.StaleFlagAt == nil &&
			req.ApprovedAt != nil && req.ApprovedAt.Before(cutoff) {
			out = append(out, copyRequest(req))
		}
	}
	return out, nil
}

func (r *memRequestRepo) FindAll(_ context.Context, _ shared.Filter) ([]fulfillment.PurchaseRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]fulfillment.PurchaseRequest, 0, len(r.requests))
	for _, req := range r.requests {
		out = append(out, copyRequest(req))
	}
	return out, nil
}

func (r *memRequestRepo) Save(_ context.Context, request *fulfillment.PurchaseRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[request.ID] = copyRequest(*request)
	return nil
}

func (r *memRequestRepo) SaveWithLock(_ context.Context, request *fulfillment.PurchaseRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.requests[request.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if existing.Version != request.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.requests[request.ID] = copyRequest(*request)
	return nil
}

func (r *memRequestRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.requests)), nil
}

func (r *memRequestRepo) statusOf(t *testing.T, id uuid.UUID) fulfillment.RequestStatus {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	require.True(t, ok)
	return req.Status
}

type memAllocationRepo struct {
	mu          sync.Mutex
	allocations map[uuid.UUID]fulfillment.Allocation
}

func newMemAllocationRepo() *memAllocationRepo {
	return &memAllocationRepo{allocations: make(map[uuid.UUID]fulfillment.Allocation)}
}

func copyAllocation(a fulfillment.Allocation) fulfillment.Allocation {
	reservations := make([]fulfillment.AllocationReservation, len(a.Reservations))
	copy(reservations, a.Reservations)
	a.Reservations = reservations
	return a
}

func (r *memAllocationRepo) FindByID(_ context.Context, id uuid.UUID) (*fulfillment.Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.allocations[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := copyAllocation(a)
	return &copied, nil
}

func (r *memAllocationRepo) FindByRequest(_ context.Context, requestID uuid.UUID) ([]fulfillment.Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]fulfillment.Allocation, 0)
	for _, a := range r.allocations {
		if a.RequestID == requestID {
			out = append(out, copyAllocation(a))
		}
	}
	return out, nil
}

func (r *memAllocationRepo) FindLiveByRequest(_ context.Context, requestID uuid.UUID) ([]fulfillment.Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]fulfillment.Allocation, 0)
	for _, a := range r.allocations {
		if a.RequestID == requestID && a.Status == fulfillment.AllocationStatusReserved {
			out = append(out, copyAllocation(a))
		}
	}
	return out, nil
}

func (r *memAllocationRepo) Save(_ context.Context, allocation *fulfillment.Allocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allocations[allocation.ID] = copyAllocation(*allocation)
	return nil
}

func (r *memAllocationRepo) CountLiveByRequest(_ context.Context, requestID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, a := range r.allocations {
		if a.RequestID == requestID && a.Status == fulfillment.AllocationStatusReserved {
			n++
		}
	}
	return n, nil
}

type memDispatchRepo struct {
	mu         sync.Mutex
	dispatches map[uuid.UUID]fulfillment.Dispatch
}

func newMemDispatchRepo() *memDispatchRepo {
	return &memDispatchRepo{dispatches: make(map[uuid.UUID]fulfillment.Dispatch)}
}

func copyDispatch(d fulfillment.Dispatch) fulfillment.Dispatch {
	lines := make([]fulfillment.DispatchLine, len(d.Lines))
	copy(lines, d.Lines)
	d.Lines = lines
	return d
}

func (r *memDispatchRepo) FindByID(_ context.Context, id uuid.UUID) (*fulfillment.Dispatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.dispatches[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := copyDispatch(d)
	return &copied, nil
}

func (r *memDispatchRepo) FindByShop(_ context.Context, shopID uuid.UUID, _ shared.Filter) ([]fulfillment.Dispatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]fulfillment.Dispatch, 0)
	for _, d := range r.dispatches {
		if d.ShopID == shopID {
			out = append(out, copyDispatch(d))
		}
	}
	return out, nil
}

func (r *memDispatchRepo) FindByWarehouse(_ context.Context, warehouseID uuid.UUID, _ shared.Filter) ([]fulfillment.Dispatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]fulfillment.Dispatch, 0)
	for _, d := range r.dispatches {
		if d.WarehouseID == warehouseID {
			out = append(out, copyDispatch(d))
		}
	}
	return out, nil
}

func (r *memDispatchRepo) FindByRequest(_ context.Context, requestID uuid.UUID) ([]fulfillment.Dispatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]fulfillment.Dispatch, 0)
	for _, d := range r.dispatches {
		if d.RequestID != nil && *d.RequestID == requestID {
			out = append(out, copyDispatch(d))
		}
	}
	return out, nil
}

func (r *memDispatchRepo) FindAll(_ context.Context, _ shared.Filter) ([]fulfillment.Dispatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]fulfillment.Dispatch, 0, len(r.dispatches))
	for _, d := range r.dispatches {
		out = append(out, copyDispatch(d))
	}
	return out, nil
}

func (r *memDispatchRepo) Save(_ context.Context, dispatch *fulfillment.Dispatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatches[dispatch.ID] = copyDispatch(*dispatch)
	return nil
}

func (r *memDispatchRepo) SaveWithLock(_ context.Context, dispatch *fulfillment.Dispatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.dispatches[dispatch.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if existing.Version != dispatch.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.dispatches[dispatch.ID] = copyDispatch(*dispatch)
	return nil
}

func (r *memDispatchRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.dispatches)), nil
}

var _ ledger.BatchRepository = (*memBatchRepo)(nil)
var _ fulfillment.RequestRepository = (*memRequestRepo)(nil)
var _ fulfillment.AllocationRepository = (*memAllocationRepo)(nil)
var _ fulfillment.DispatchRepository = (*memDispatchRepo)(nil)

// capturingPublisher records every published event
type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.EventType()
	}
	return types
}

// fixture wires the fulfillment services over in-memory repositories the way
// the server wires them over GORM.
type fixture struct {
	batchRepo      *memBatchRepo
	requestRepo    *memRequestRepo
	allocationRepo *memAllocationRepo
	dispatchRepo   *memDispatchRepo
	requestSvc     *RequestService
	dispatchSvc    *DispatchService
	scope          *NoOpTransactionScope
}

func newFixture() *fixture {
	batchRepo := newMemBatchRepo()
	requestRepo := newMemRequestRepo()
	allocationRepo := newMemAllocationRepo()
	dispatchRepo := newMemDispatchRepo()
	scope := NewNoOpTransactionScope(requestRepo, allocationRepo, dispatchRepo, batchRepo)
	locks := ledgerapp.NewKeyedMutex()
	logger := zap.NewNop()

	return &fixture{
		batchRepo:      batchRepo,
		requestRepo:    requestRepo,
		allocationRepo: allocationRepo,
		dispatchRepo:   dispatchRepo,
		requestSvc:     NewRequestService(scope, locks, NewAllocationPlanner(nil), logger),
		dispatchSvc:    NewDispatchService(scope, locks, logger),
		scope:          scope,
	}
}

func (f *fixture) seedWarehouseBatch(t *testing.T, medicineID, warehouseID uuid.UUID, batchNumber string, expiry *time.Time, quantity int64) *ledger.Batch {
	t.Helper()
	b, err := ledger.NewBatch(medicineID, warehouseID, ledger.LocationKindWarehouse, batchNumber,
		expiry, decimal.NewFromInt(quantity), decimal.NewFromFloat(1.5))
	require.NoError(t, err)
	f.batchRepo.seed(b)
	return b
}

func expiryIn(days int) *time.Time {
	d := time.Now().AddDate(0, 0, days)
	return &d
}

func requireDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}
