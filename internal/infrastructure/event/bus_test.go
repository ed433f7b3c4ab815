package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pharmerp/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stockEvent implements DomainEvent for testing
type stockEvent struct {
	shared.BaseDomainEvent
	BatchNumber string `json:"batch_number"`
}

func newStockEvent(eventType string) *stockEvent {
	return &stockEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, uuid.New(), "Batch"),
		BatchNumber:     "LOT-001",
	}
}

// recordingHandler implements EventHandler for testing
type recordingHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panics     bool
	mu         sync.Mutex
}

func newRecordingHandler(eventTypes ...string) *recordingHandler {
	return &recordingHandler{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panics {
		panic("handler blew up")
	}
	h.handled = append(h.handled, event)
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *recordingHandler) setError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *recordingHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newRecordingHandler("ledger.stock_reserved")
	bus.Subscribe(handler, "ledger.stock_reserved")

	event := newStockEvent("ledger.stock_reserved")
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	require.Len(t, handler.getHandled(), 1)
	assert.Equal(t, event, handler.getHandled()[0])
}

func TestInMemoryEventBus_Publish_MultipleEvents(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newRecordingHandler("ledger.stock_credited")
	bus.Subscribe(handler, "ledger.stock_credited")

	err := bus.Publish(context.Background(),
		newStockEvent("ledger.stock_credited"),
		newStockEvent("ledger.stock_credited"),
	)

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 2)
}

func TestInMemoryEventBus_Publish_MultipleHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	first := newRecordingHandler("fulfillment.request_created")
	second := newRecordingHandler("fulfillment.request_created")
	bus.Subscribe(first, "fulfillment.request_created")
	bus.Subscribe(second, "fulfillment.request_created")

	err := bus.Publish(context.Background(), newStockEvent("fulfillment.request_created"))

	require.NoError(t, err)
	assert.Len(t, first.getHandled(), 1)
	assert.Len(t, second.getHandled(), 1)
}

func TestInMemoryEventBus_Subscribe_DefaultsToHandlerTypes(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	// No explicit types at subscription: the handler's own list applies.
	handler := newRecordingHandler("ledger.stock_adjusted")
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newStockEvent("ledger.stock_adjusted")))
	require.NoError(t, bus.Publish(context.Background(), newStockEvent("ledger.stock_released")))

	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_WildcardHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	// A handler that declares no event types at all receives everything.
	wildcard := newRecordingHandler()
	bus.Subscribe(wildcard)

	require.NoError(t, bus.Publish(context.Background(), newStockEvent("ledger.stock_reserved")))
	require.NoError(t, bus.Publish(context.Background(), newStockEvent("fulfillment.dispatch_delivered")))

	assert.Len(t, wildcard.getHandled(), 2)
}

func TestInMemoryEventBus_Publish_HandlerError(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := newRecordingHandler("ledger.stock_reserved")
	failing.setError(errors.New("handler error"))
	healthy := newRecordingHandler("ledger.stock_reserved")
	bus.Subscribe(failing, "ledger.stock_reserved")
	bus.Subscribe(healthy, "ledger.stock_reserved")

	err := bus.Publish(context.Background(), newStockEvent("ledger.stock_reserved"))

	// A failing handler never blocks the others.
	require.NoError(t, err)
	assert.Len(t, failing.getHandled(), 1)
	assert.Len(t, healthy.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_HandlerPanic(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	panicking := newRecordingHandler("ledger.stock_reserved")
	panicking.panics = true
	healthy := newRecordingHandler("ledger.stock_reserved")
	bus.Subscribe(panicking, "ledger.stock_reserved")
	bus.Subscribe(healthy, "ledger.stock_reserved")

	err := bus.Publish(context.Background(), newStockEvent("ledger.stock_reserved"))

	require.NoError(t, err)
	assert.Len(t, healthy.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_NoMatchingHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newRecordingHandler("ledger.stock_released")
	bus.Subscribe(handler, "ledger.stock_released")

	err := bus.Publish(context.Background(), newStockEvent("ledger.stock_reserved"))

	require.NoError(t, err)
	assert.Empty(t, handler.getHandled())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newRecordingHandler("ledger.stock_reserved")
	bus.Subscribe(handler, "ledger.stock_reserved")

	_ = bus.Publish(context.Background(), newStockEvent("ledger.stock_reserved"))
	assert.Len(t, handler.getHandled(), 1)

	bus.Unsubscribe(handler)

	_ = bus.Publish(context.Background(), newStockEvent("ledger.stock_reserved"))
	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	ctx := context.Background()
	require.NoError(t, bus.Start(ctx))

	handler := newRecordingHandler("ledger.stock_reserved")
	bus.Subscribe(handler, "ledger.stock_reserved")
	require.NoError(t, bus.Publish(ctx, newStockEvent("ledger.stock_reserved")))
	assert.Len(t, handler.getHandled(), 1)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(stopCtx))

	err := bus.Publish(ctx, newStockEvent("ledger.stock_reserved"))
	require.ErrorIs(t, err, ErrBusStopped)
	assert.Len(t, handler.getHandled(), 1)

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Publish(ctx, newStockEvent("ledger.stock_reserved")))
	assert.Len(t, handler.getHandled(), 2)
}

func TestInMemoryEventBus_PublishableWithoutStart(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newRecordingHandler("ledger.stock_credited")
	bus.Subscribe(handler, "ledger.stock_credited")

	require.NoError(t, bus.Publish(context.Background(), newStockEvent("ledger.stock_credited")))
	assert.Len(t, handler.getHandled(), 1)
}
