package payments

import (
	"context"
	"encoding/json"

	"foodcourt/internal/apperr"
	"foodcourt/internal/domain"
)

// Cash and Terminal settle synchronously at insertion time; neither
// ever receives a webhook, so VerifyWebhook always fails closed.

type Cash struct{}

func (Cash) Method() domain.PaymentMethod { return domain.PaymentMethodCash }

func (Cash) CreateCharge(ctx context.Context, draft PaymentDraft) (ChargeResult, error) {
	return ChargeResult{}, nil
}

func (Cash) Refund(ctx context.Context, providerRef string, amountMinor int64, reason string) (RefundResult, error) {
	return RefundResult{}, apperr.New(apperr.RefundFailed, "cash payments are refunded by hand, not through the broker")
}

func (Cash) VerifyWebhook(ctx context.Context, rawBody []byte, headers map[string]string) (WebhookEvent, error) {
	return WebhookEvent{}, apperr.New(apperr.InvalidWebhookSignature, "cash payments do not receive webhooks")
}

type Terminal struct{}

func (Terminal) Method() domain.PaymentMethod { return domain.PaymentMethodTerminal }

func (Terminal) CreateCharge(ctx context.Context, draft PaymentDraft) (ChargeResult, error) {
	return ChargeResult{}, nil
}

func (Terminal) Refund(ctx context.Context, providerRef string, amountMinor int64, reason string) (RefundResult, error) {
	return RefundResult{}, apperr.New(apperr.RefundFailed, "terminal payments are refunded by hand, not through the broker")
}

func (Terminal) VerifyWebhook(ctx context.Context, rawBody []byte, headers map[string]string) (WebhookEvent, error) {
	return WebhookEvent{}, apperr.New(apperr.InvalidWebhookSignature, "terminal payments do not receive webhooks")
}

// CashDetails is the extra context a Cash payment records at insertion.
type CashDetails struct {
	AmountReceivedMinor  int64
	ChangeGivenMinor     int64
	ProcessedByPrincipalID string
}

// TerminalDetails is the extra context a Terminal payment records at insertion.
type TerminalDetails struct {
	TerminalTxID string
	TerminalID   string
	CardLast4    *string
	CardBrand    *string
}

// synchronousMetadata freezes the synchronous-method detail fields
// (amountReceived, changeGiven, processedByPrincipalId for cash;
// terminalTxId, terminalId, cardLast4, cardBrand for terminal) into
// Payment's opaque ProviderMetadata column; async methods have none at
// creation time.
func synchronousMetadata(in CreatePaymentInput) (json.RawMessage, error) {
	switch {
	case in.Cash != nil:
		return json.Marshal(struct {
			AmountReceivedMinor    int64  `json:"amountReceivedMinor"`
			ChangeGivenMinor       int64  `json:"changeGivenMinor"`
			ProcessedByPrincipalID string `json:"processedByPrincipalId"`
		}{in.Cash.AmountReceivedMinor, in.Cash.ChangeGivenMinor, in.Cash.ProcessedByPrincipalID})
	case in.Terminal != nil:
		return json.Marshal(struct {
			TerminalTxID string  `json:"terminalTxId"`
			TerminalID   string  `json:"terminalId"`
			CardLast4    *string `json:"cardLast4,omitempty"`
			CardBrand    *string `json:"cardBrand,omitempty"`
		}{in.Terminal.TerminalTxID, in.Terminal.TerminalID, in.Terminal.CardLast4, in.Terminal.CardBrand})
	default:
		return nil, nil
	}
}
