// Package eventbus is the event bus: a transactional outbox writer plus
// a background dispatcher that delivers events to in-process subscribers
// at-least-once, in per-aggregate publish order.
package eventbus

// Kind is one of the domain event kinds the core emits.
type Kind string

const (
	KindOrderCreated        Kind = "OrderCreated"
	KindOrderStatusChanged  Kind = "OrderStatusChanged"
	KindOrderCancelled      Kind = "OrderCancelled"
	KindPaymentCreated      Kind = "PaymentCreated"
	KindPaymentSettled      Kind = "PaymentSettled"
	KindPaymentFailed       Kind = "PaymentFailed"
	KindPaymentRefunded     Kind = "PaymentRefunded"
	KindShiftStarted        Kind = "ShiftStarted"
	KindShiftEnded          Kind = "ShiftEnded"
	KindShiftMissed         Kind = "ShiftMissed"
	KindInviteConsumed      Kind = "InviteConsumed"
)

// AggregateType names the aggregate an event's AggregateID belongs to, used
// to keep per-aggregate ordering legible in the outbox.
const (
	AggregateOrder   = "order"
	AggregatePayment = "payment"
	AggregateShift   = "shift"
	AggregateInvite  = "invite_token"
)

type OrderCreatedPayload struct {
	OrderID      string `json:"orderId"`
	RestaurantID string `json:"restaurantId"`
	OrderNumber  string `json:"orderNumber"`
	TotalMinor   int64  `json:"totalMinor"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"orderId"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type OrderCancelledPayload struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

type PaymentCreatedPayload struct {
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
	Method    string `json:"method"`
}

type PaymentSettledPayload struct {
	PaymentID       string `json:"paymentId"`
	OrderID         string `json:"orderId"`
	AmountMinor     int64  `json:"amountMinor"`
	CommissionMinor int64  `json:"commissionMinor"`
	NetMinor        int64  `json:"netMinor"`
}

type PaymentFailedPayload struct {
	PaymentID string `json:"paymentId"`
	Reason    string `json:"reason"`
}

type PaymentRefundedPayload struct {
	PaymentID   string `json:"paymentId"`
	AmountMinor int64  `json:"amountMinor"`
}

type ShiftStartedPayload struct {
	ShiftID    string `json:"shiftId"`
	EmployeeID string `json:"employeeId"`
}

type ShiftEndedPayload struct {
	ShiftID        string   `json:"shiftId"`
	EmployeeID     string   `json:"employeeId"`
	HoursWorked    float64  `json:"hoursWorked"`
	PayMinor       *int64   `json:"payMinor,omitempty"`
}

type ShiftMissedPayload struct {
	ShiftID    string `json:"shiftId"`
	EmployeeID string `json:"employeeId"`
}

type InviteConsumedPayload struct {
	InviteID   string `json:"inviteId"`
	EmployeeID string `json:"employeeId"`
}
