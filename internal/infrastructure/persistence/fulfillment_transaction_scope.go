package persistence

import (
	"context"

	appfulf "github.com/pharmerp/backend/internal/application/fulfillment"
	"github.com/pharmerp/backend/internal/domain/fulfillment"
	"github.com/pharmerp/backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormFulfillmentTransactionScope implements the fulfillment TransactionScope
// using GORM transactions. Approval and delivery touch workflow aggregates
// and batch rows in the same transaction, so the batch repository here shares
// the tx handle with the fulfillment repositories.
type GormFulfillmentTransactionScope struct {
	db *gorm.DB
}

// NewGormFulfillmentTransactionScope creates a new GormFulfillmentTransactionScope.
func NewGormFulfillmentTransactionScope(db *gorm.DB) *GormFulfillmentTransactionScope {
	return &GormFulfillmentTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormFulfillmentTransactionScope) Execute(ctx context.Context, fn func(repos appfulf.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormFulfillmentRepositories{tx: tx}
		return fn(repos)
	})
}

// gormFulfillmentRepositories provides access to all repositories within a transaction.
type gormFulfillmentRepositories struct {
	tx *gorm.DB
}

// RequestRepo returns the purchase request repository scoped to the current transaction.
func (r *gormFulfillmentRepositories) RequestRepo() fulfillment.RequestRepository {
	return NewGormRequestRepository(r.tx)
}

// AllocationRepo returns the allocation repository scoped to the current transaction.
func (r *gormFulfillmentRepositories) AllocationRepo() fulfillment.AllocationRepository {
	return NewGormAllocationRepository(r.tx)
}

// DispatchRepo returns the dispatch repository scoped to the current transaction.
func (r *gormFulfillmentRepositories) DispatchRepo() fulfillment.DispatchRepository {
	return NewGormDispatchRepository(r.tx)
}

// BatchRepo returns the ledger batch repository scoped to the current transaction.
func (r *gormFulfillmentRepositories) BatchRepo() ledger.BatchRepository {
	return NewGormBatchRepository(r.tx)
}

var _ appfulf.TransactionScope = (*GormFulfillmentTransactionScope)(nil)
var _ appfulf.TransactionalRepositories = (*gormFulfillmentRepositories)(nil)
