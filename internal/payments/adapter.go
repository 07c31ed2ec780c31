// Package payments is the payment broker: provider adapters, the
// create/webhook/refund command handlers, and commission accounting.
package payments

import (
	"context"

	"foodcourt/internal/domain"
)

// PaymentDraft is the frozen request an adapter turns into a provider
// charge. It carries the internal Payment id, which the card adapters pass
// to the provider as metadata or as the charge reference.
type PaymentDraft struct {
	PaymentID   string
	OrderID     string
	AmountMinor int64
	Currency    string
	ReturnURL   string
}

// ChargeResult is what createCharge hands back for the broker to persist.
type ChargeResult struct {
	ProviderRef string
	RedirectURL *string
}

// RefundResult is what refund hands back.
type RefundResult struct {
	RefundRef string
}

// WebhookEvent is the normalized shape every adapter's verifyWebhook
// produces, regardless of the provider's wire format.
type WebhookEvent struct {
	ProviderEventID string
	ProviderRef     string
	Kind            WebhookKind
	FailureReason   string
	RefundAmountMinor int64
}

type WebhookKind string

const (
	WebhookChargeSucceeded WebhookKind = "charge.succeeded"
	WebhookChargeFailed    WebhookKind = "charge.failed"
	WebhookRefundSucceeded WebhookKind = "refund.succeeded"
)

// Adapter is the provider boundary. Adapters are stateless; all
// durable state lives on the Payment aggregate.
type Adapter interface {
	Method() domain.PaymentMethod
	CreateCharge(ctx context.Context, draft PaymentDraft) (ChargeResult, error)
	Refund(ctx context.Context, providerRef string, amountMinor int64, reason string) (RefundResult, error)
	VerifyWebhook(ctx context.Context, rawBody []byte, headers map[string]string) (WebhookEvent, error)
}
