package ledger

import (
	"context"

	"github.com/pharmerp/backend/internal/domain/ledger"
)

// TransactionScope provides transactional access to ledger repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the ledger repositories within
// a transaction. All repositories share the same underlying transaction.
type TransactionalRepositories interface {
	// BatchRepo returns the batch repository scoped to the current transaction
	BatchRepo() ledger.BatchRepository
	// AdjustmentRepo returns the adjustment repository scoped to the current transaction
	AdjustmentRepo() ledger.AdjustmentRepository
}

// NoOpTransactionScope is a transaction scope that doesn't use real
// transactions. Useful for tests built on in-memory repositories.
type NoOpTransactionScope struct {
	batchRepo      ledger.BatchRepository
	adjustmentRepo ledger.AdjustmentRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(batchRepo ledger.BatchRepository, adjustmentRepo ledger.AdjustmentRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		batchRepo:      batchRepo,
		adjustmentRepo: adjustmentRepo,
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// BatchRepo returns the batch repository
func (s *NoOpTransactionScope) BatchRepo() ledger.BatchRepository {
	return s.batchRepo
}

// AdjustmentRepo returns the adjustment repository
func (s *NoOpTransactionScope) AdjustmentRepo() ledger.AdjustmentRepository {
	return s.adjustmentRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
