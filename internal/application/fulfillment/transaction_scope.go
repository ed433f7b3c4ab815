package fulfillment

import (
	"context"

	"github.com/pharmerp/backend/internal/domain/fulfillment"
	"github.com/pharmerp/backend/internal/domain/ledger"
)

// TransactionScope provides transactional access to the fulfillment and
// ledger repositories. Approval, abandonment and delivery each mutate a
// workflow aggregate and batch rows in one atomic unit of work; the scope
// guarantees both sides commit or roll back together.
type TransactionScope interface {
	// Execute runs the given function within a database transaction
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within a
// transaction. All repositories share the same underlying transaction.
type TransactionalRepositories interface {
	// RequestRepo returns the purchase request repository
	RequestRepo() fulfillment.RequestRepository
	// AllocationRepo returns the allocation repository
	AllocationRepo() fulfillment.AllocationRepository
	// DispatchRepo returns the dispatch repository
	DispatchRepo() fulfillment.DispatchRepository
	// BatchRepo returns the ledger batch repository
	BatchRepo() ledger.BatchRepository
}

// NoOpTransactionScope runs functions without a real transaction, for tests
// built on in-memory repositories.
type NoOpTransactionScope struct {
	requestRepo    fulfillment.RequestRepository
	allocationRepo fulfillment.AllocationRepository
	dispatchRepo   fulfillment.DispatchRepository
	batchRepo      ledger.BatchRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(
	requestRepo fulfillment.RequestRepository,
	allocationRepo fulfillment.AllocationRepository,
	dispatchRepo fulfillment.DispatchRepository,
	batchRepo ledger.BatchRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		requestRepo:    requestRepo,
		allocationRepo: allocationRepo,
		dispatchRepo:   dispatchRepo,
		batchRepo:      batchRepo,
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// RequestRepo returns the purchase request repository
func (s *NoOpTransactionScope) RequestRepo() fulfillment.RequestRepository {
	return s.requestRepo
}

// AllocationRepo returns the allocation repository
func (s *NoOpTransactionScope) AllocationRepo() fulfillment.AllocationRepository {
	return s.allocationRepo
}

// DispatchRepo returns the dispatch repository
func (s *NoOpTransactionScope) DispatchRepo() fulfillment.DispatchRepository {
	return s.dispatchRepo
}

// BatchRepo returns the ledger batch repository
func (s *NoOpTransactionScope) BatchRepo() ledger.BatchRepository {
	return s.batchRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
