package fulfillment

import (
	"context"

	"github.com/pharmerp/backend/internal/domain/fulfillment"
	"github.com/pharmerp/backend/internal/domain/ledger"
	"github.com/pharmerp/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// WorkflowAuditHandler writes a structured audit line for every workflow and
// ledger event. It is the durable trail operators grep when a shop disputes
// what happened to a request.
type WorkflowAuditHandler struct {
	logger *zap.Logger
}

// NewWorkflowAuditHandler creates a new WorkflowAuditHandler
func NewWorkflowAuditHandler(logger *zap.Logger) *WorkflowAuditHandler {
	return &WorkflowAuditHandler{logger: logger.Named("audit")}
}

// Handle logs the event
func (h *WorkflowAuditHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.logger.Info("workflow event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

// EventTypes returns the event types this handler subscribes to
func (h *WorkflowAuditHandler) EventTypes() []string {
	return []string{
		fulfillment.EventTypeRequestCreated,
		fulfillment.EventTypeRequestApproved,
		fulfillment.EventTypeRequestRejected,
		fulfillment.EventTypeRequestAbandoned,
		fulfillment.EventTypeRequestStaleFlagged,
		fulfillment.EventTypeDispatchCreated,
		fulfillment.EventTypeDispatchInTransit,
		fulfillment.EventTypeDispatchDelivered,
		ledger.EventTypeStockReserved,
		ledger.EventTypeStockCredited,
		ledger.EventTypeStockReleased,
		ledger.EventTypeStockAdjusted,
	}
}

// StaleRequestAlertHandler warns loudly when an approved request sits without
// a dispatch past the configured window. Separate from the audit trail so the
// alert can be routed to a pager sink by log level.
type StaleRequestAlertHandler struct {
	logger *zap.Logger
}

// NewStaleRequestAlertHandler creates a new StaleRequestAlertHandler
func NewStaleRequestAlertHandler(logger *zap.Logger) *StaleRequestAlertHandler {
	return &StaleRequestAlertHandler{logger: logger}
}

// Handle logs a warning for the flagged request
func (h *StaleRequestAlertHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	flagged, ok := event.(*fulfillment.RequestStaleFlaggedEvent)
	if !ok {
		return nil
	}
	h.logger.Warn("approved request has no dispatch within the stale window",
		zap.String("request_id", flagged.AggregateID().String()),
		zap.String("shop_id", flagged.ShopID.String()),
		zap.String("warehouse_id", flagged.WarehouseID.String()),
		zap.Time("flagged_at", flagged.FlaggedAt),
	)
	return nil
}

// EventTypes returns the event types this handler subscribes to
func (h *StaleRequestAlertHandler) EventTypes() []string {
	return []string{fulfillment.EventTypeRequestStaleFlagged}
}

var _ shared.EventHandler = (*WorkflowAuditHandler)(nil)
var _ shared.EventHandler = (*StaleRequestAlertHandler)(nil)
