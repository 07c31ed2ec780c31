package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestOrderTransitionTable pins the lifecycle state machine down
// exhaustively: every (from, to) pair is asserted, so adding or removing an
// edge is always a deliberate act.
func TestOrderTransitionTable(t *testing.T) {
	all := []OrderStatus{OrderPending, OrderPreparing, OrderReady, OrderCompleted, OrderCancelled}

	allowed := map[OrderStatus]map[OrderStatus]bool{
		OrderPending:   {OrderPreparing: true, OrderCancelled: true},
		OrderPreparing: {OrderReady: true, OrderCancelled: true},
		OrderReady:     {OrderCompleted: true, OrderCancelled: true},
		OrderCompleted: {},
		OrderCancelled: {},
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to]
			assert.Equal(t, want, CanTransition(from, to), "transition %s -> %s", from, to)
		}
	}
}

func TestOrderTransitionUnknownStatus(t *testing.T) {
	assert.False(t, CanTransition(OrderStatus("bogus"), OrderPreparing))
	assert.False(t, CanTransition(OrderPending, OrderStatus("bogus")))
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, OrderCompleted.Terminal())
	assert.True(t, OrderCancelled.Terminal())
	assert.False(t, OrderPending.Terminal())
	assert.False(t, OrderPreparing.Terminal())
	assert.False(t, OrderReady.Terminal())
}

func TestPaymentStatusTerminal(t *testing.T) {
	assert.True(t, PaymentCompleted.Terminal())
	assert.True(t, PaymentFailed.Terminal())
	assert.True(t, PaymentRefunded.Terminal())
	assert.False(t, PaymentPending.Terminal())
}

func TestPaymentMethodAsync(t *testing.T) {
	assert.True(t, PaymentMethodCardPSPA.Async())
	assert.True(t, PaymentMethodCardPSPB.Async())
	assert.False(t, PaymentMethodCash.Async())
	assert.False(t, PaymentMethodTerminal.Async())
}

func TestShiftStatusTerminal(t *testing.T) {
	assert.True(t, ShiftCompleted.Terminal())
	assert.True(t, ShiftCancelled.Terminal())
	assert.False(t, ShiftScheduled.Terminal())
	assert.False(t, ShiftActive.Terminal())
}
