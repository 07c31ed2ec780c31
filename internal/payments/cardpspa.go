package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"foodcourt/internal/apperr"
	"foodcourt/internal/domain"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// CardPSPA is the redirect/PaymentIntent flow adapter, settled via an async
// webhook.
type CardPSPA struct {
	API           *client.API
	WebhookSecret string
	ReturnURLBase string
}

func NewCardPSPA(secretKey, webhookSecret, returnURLBase string) *CardPSPA {
	return &CardPSPA{
		API:           client.New(secretKey, nil),
		WebhookSecret: webhookSecret,
		ReturnURLBase: returnURLBase,
	}
}

func (a *CardPSPA) Method() domain.PaymentMethod { return domain.PaymentMethodCardPSPA }

func (a *CardPSPA) CreateCharge(ctx context.Context, draft PaymentDraft) (ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(draft.AmountMinor),
		Currency: stripe.String(draft.Currency),
		Metadata: map[string]string{
			"payment_id": draft.PaymentID,
			"order_id":   draft.OrderID,
		},
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	pi, err := a.API.PaymentIntents.New(params)
	if err != nil {
		return ChargeResult{}, apperr.Wrap(apperr.ProviderUnavailable, "card pspa create charge", err)
	}
	redirectURL := fmt.Sprintf("%s?client_secret=%s", a.ReturnURLBase, pi.ClientSecret)
	return ChargeResult{ProviderRef: pi.ID, RedirectURL: &redirectURL}, nil
}

func (a *CardPSPA) Refund(ctx context.Context, providerRef string, amountMinor int64, reason string) (RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(providerRef),
		Amount:        stripe.Int64(amountMinor),
	}
	params.Context = ctx
	rf, err := a.API.Refunds.New(params)
	if err != nil {
		return RefundResult{}, apperr.Wrap(apperr.RefundFailed, "card pspa refund", err)
	}
	return RefundResult{RefundRef: rf.ID}, nil
}

func (a *CardPSPA) VerifyWebhook(ctx context.Context, rawBody []byte, headers map[string]string) (WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(rawBody, headers["Stripe-Signature"], a.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return WebhookEvent{}, apperr.Wrap(apperr.InvalidWebhookSignature, "card pspa webhook signature", err)
	}

	var pi stripe.PaymentIntent
	switch event.Type {
	case "payment_intent.succeeded":
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return WebhookEvent{}, apperr.Wrap(apperr.Internal, "unmarshal payment intent", err)
		}
		return WebhookEvent{ProviderEventID: event.ID, ProviderRef: pi.ID, Kind: WebhookChargeSucceeded}, nil
	case "payment_intent.payment_failed", "payment_intent.canceled":
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return WebhookEvent{}, apperr.Wrap(apperr.Internal, "unmarshal payment intent", err)
		}
		reason := ""
		if pi.LastPaymentError != nil {
			reason = pi.LastPaymentError.Msg
		}
		return WebhookEvent{ProviderEventID: event.ID, ProviderRef: pi.ID, Kind: WebhookChargeFailed, FailureReason: reason}, nil
	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return WebhookEvent{}, apperr.Wrap(apperr.Internal, "unmarshal charge", err)
		}
		ref := ch.PaymentIntent
		ref2 := ""
		if ref != nil {
			ref2 = ref.ID
		}
		return WebhookEvent{ProviderEventID: event.ID, ProviderRef: ref2, Kind: WebhookRefundSucceeded, RefundAmountMinor: ch.AmountRefunded}, nil
	default:
		return WebhookEvent{ProviderEventID: event.ID, Kind: WebhookKind(event.Type)}, nil
	}
}
