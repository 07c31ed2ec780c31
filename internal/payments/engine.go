package payments

import (
	"context"
	"database/sql"
	"time"

	"foodcourt/internal/apperr"
	"foodcourt/internal/domain"
	"foodcourt/internal/eventbus"
	"foodcourt/internal/identity"
	"foodcourt/internal/store"
)

type Engine struct {
	store    *store.Store
	bus      *eventbus.Bus
	oracle   *identity.Oracle
	adapters map[domain.PaymentMethod]Adapter
}

func NewEngine(s *store.Store, bus *eventbus.Bus, oracle *identity.Oracle, adapters ...Adapter) *Engine {
	m := make(map[domain.PaymentMethod]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Method()] = a
	}
	return &Engine{store: s, bus: bus, oracle: oracle, adapters: m}
}

func (e *Engine) adapterFor(method domain.PaymentMethod) (Adapter, error) {
	a, ok := e.adapters[method]
	if !ok {
		return nil, apperr.Newf(apperr.ValidationFailed, "no adapter configured for payment method %s", method)
	}
	return a, nil
}

type CreatePaymentInput struct {
	OrderID string
	Method  domain.PaymentMethod
	Cash    *CashDetails
	Terminal *TerminalDetails
}

// CreatePayment handles both the async (card) and synchronous
// (cash/terminal) payment method families in one transaction.
func (e *Engine) CreatePayment(ctx context.Context, principal domain.Principal, in CreatePaymentInput) (domain.Payment, error) {
	adapter, err := e.adapterFor(in.Method)
	if err != nil {
		return domain.Payment{}, err
	}
	if in.Method == domain.PaymentMethodCash && in.Cash == nil {
		return domain.Payment{}, apperr.New(apperr.ValidationFailed, "cash payment details are required")
	}
	if in.Method == domain.PaymentMethodTerminal && in.Terminal == nil {
		return domain.Payment{}, apperr.New(apperr.ValidationFailed, "terminal payment details are required")
	}

	var result domain.Payment
	err = e.store.WithSerializableRetry(ctx, func(ctx context.Context, tx *sql.Tx) error {
		order, err := e.store.Orders.GetByIDForUpdate(ctx, tx, in.OrderID)
		if err != nil {
			if apperr.Is(err, apperr.NotFound) {
				return apperr.New(apperr.NotFound, "OrderNotFound")
			}
			return err
		}

		verb := identity.VerbCreatePayment
		if in.Method == domain.PaymentMethodCash || in.Method == domain.PaymentMethodTerminal {
			verb = identity.VerbProcessCashOrTerminal
		}
		if err := e.oracle.Authorize(ctx, principal, verb, identity.Resource{
			RestaurantID:             order.RestaurantID,
			OrderCustomerPrincipalID: order.CustomerPrincipalID,
		}); err != nil {
			return err
		}

		if _, err := e.store.Payments.GetByOrderID(ctx, tx, in.OrderID); err == nil {
			return apperr.New(apperr.PaymentAlreadyExists, "a payment already exists for this order")
		} else if !apperr.Is(err, apperr.NotFound) {
			return err
		}

		rest, err := e.store.Restaurants.GetByID(ctx, tx, order.RestaurantID)
		if err != nil {
			return err
		}
		commissionMinor, netMinor := domain.CommissionSplit(order.TotalMinor, rest.CommissionRate)

		now := time.Now().UTC()
		status := domain.PaymentPending
		if !in.Method.Async() {
			status = domain.PaymentCompleted
		}
		metadata, err := synchronousMetadata(in)
		if err != nil {
			return apperr.Wrap(apperr.ValidationFailed, "encode payment metadata", err)
		}
		payment := domain.Payment{
			ID:               domain.NewID(),
			OrderID:          in.OrderID,
			AmountMinor:      order.TotalMinor,
			Currency:         "USD",
			Method:           in.Method,
			Status:           status,
			CommissionMinor:  commissionMinor,
			NetMinor:         netMinor,
			ProviderMetadata: metadata,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := e.store.Payments.Create(ctx, tx, payment); err != nil {
			return err
		}

		if in.Method.Async() {
			charge, err := adapter.CreateCharge(ctx, PaymentDraft{
				PaymentID:   payment.ID,
				OrderID:     payment.OrderID,
				AmountMinor: payment.AmountMinor,
				Currency:    payment.Currency,
			})
			if err != nil {
				return err
			}
			if err := e.store.Payments.UpdateAfterProviderCreate(ctx, tx, payment.ID, &charge.ProviderRef, charge.RedirectURL); err != nil {
				return err
			}
			payment.ProviderRef = &charge.ProviderRef
			payment.RedirectURL = charge.RedirectURL
		}

		if err := e.bus.Publish(ctx, tx, eventbus.AggregatePayment, payment.ID, eventbus.KindPaymentCreated, eventbus.PaymentCreatedPayload{
			PaymentID: payment.ID, OrderID: payment.OrderID, Method: string(payment.Method),
		}); err != nil {
			return err
		}

		result = payment
		return nil
	})
	if err != nil {
		return domain.Payment{}, err
	}
	return result, nil
}

// HandleWebhook drives the payment status transition table for an inbound
// provider webhook. Signature failures never reach the transaction; they
// are rejected up front.
func (e *Engine) HandleWebhook(ctx context.Context, method domain.PaymentMethod, rawBody []byte, headers map[string]string) error {
	adapter, err := e.adapterFor(method)
	if err != nil {
		return err
	}
	event, err := adapter.VerifyWebhook(ctx, rawBody, headers)
	if err != nil {
		return err
	}

	return e.store.WithSerializableRetry(ctx, func(ctx context.Context, tx *sql.Tx) error {
		alreadyProcessed, err := e.store.Outbox.MarkWebhookProcessed(ctx, tx, string(method), event.ProviderEventID)
		if err != nil {
			return err
		}
		if alreadyProcessed {
			return nil
		}

		payment, err := e.store.Payments.GetByProviderRef(ctx, tx, method, event.ProviderRef)
		if err != nil {
			return err
		}
		if payment.Status == domain.PaymentFailed || payment.Status == domain.PaymentRefunded {
			return nil
		}

		switch event.Kind {
		case WebhookChargeSucceeded:
			if payment.Status != domain.PaymentPending {
				return nil
			}
			if err := e.store.Payments.UpdateStatus(ctx, tx, payment.ID, domain.PaymentCompleted, nil, nil); err != nil {
				return err
			}
			return e.bus.Publish(ctx, tx, eventbus.AggregatePayment, payment.ID, eventbus.KindPaymentSettled, eventbus.PaymentSettledPayload{
				PaymentID: payment.ID, OrderID: payment.OrderID, AmountMinor: payment.AmountMinor,
				CommissionMinor: payment.CommissionMinor, NetMinor: payment.NetMinor,
			})

		case WebhookChargeFailed:
			if payment.Status != domain.PaymentPending {
				return nil
			}
			if err := e.store.Payments.UpdateStatus(ctx, tx, payment.ID, domain.PaymentFailed, nil, nil); err != nil {
				return err
			}
			return e.bus.Publish(ctx, tx, eventbus.AggregatePayment, payment.ID, eventbus.KindPaymentFailed, eventbus.PaymentFailedPayload{
				PaymentID: payment.ID, Reason: event.FailureReason,
			})

		case WebhookRefundSucceeded:
			if payment.Status != domain.PaymentCompleted {
				return nil
			}
			zero := int64(0)
			if err := e.store.Payments.UpdateStatus(ctx, tx, payment.ID, domain.PaymentRefunded, &zero, &zero); err != nil {
				return err
			}
			return e.bus.Publish(ctx, tx, eventbus.AggregatePayment, payment.ID, eventbus.KindPaymentRefunded, eventbus.PaymentRefundedPayload{
				PaymentID: payment.ID, AmountMinor: event.RefundAmountMinor,
			})
		}
		return nil
	})
}

// Refund implements Refund.
func (e *Engine) Refund(ctx context.Context, principal domain.Principal, paymentID string, amountMinor int64, reason string) (domain.Payment, error) {
	if amountMinor <= 0 {
		return domain.Payment{}, apperr.New(apperr.ValidationFailed, "refund amount must be positive")
	}
	if reason == "" {
		return domain.Payment{}, apperr.New(apperr.ValidationFailed, "refund reason is required")
	}

	var result domain.Payment
	err := e.store.WithSerializableRetry(ctx, func(ctx context.Context, tx *sql.Tx) error {
		payment, err := e.store.Payments.GetByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		order, err := e.store.Orders.GetByID(ctx, tx, payment.OrderID)
		if err != nil {
			return err
		}
		if err := e.oracle.Authorize(ctx, principal, identity.VerbRefundPayment, identity.Resource{RestaurantID: order.RestaurantID}); err != nil {
			return err
		}
		if payment.Status != domain.PaymentCompleted {
			return apperr.New(apperr.ValidationFailed, "payment is not in a refundable state")
		}

		priorRefunds, err := e.store.Payments.SumRefunds(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		remaining := payment.AmountMinor - priorRefunds
		if amountMinor > remaining {
			return apperr.New(apperr.ValidationFailed, "refund amount exceeds remaining refundable balance")
		}

		adapter, err := e.adapterFor(payment.Method)
		if err != nil {
			return err
		}
		providerRef := ""
		if payment.ProviderRef != nil {
			providerRef = *payment.ProviderRef
		}
		refundResult, err := adapter.Refund(ctx, providerRef, amountMinor, reason)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := e.store.Payments.InsertRefund(ctx, tx, domain.Refund{
			ID: domain.NewID(), PaymentID: paymentID, AmountMinor: amountMinor, Reason: reason,
			ProviderRef: &refundResult.RefundRef, CreatedAt: now,
		}); err != nil {
			return err
		}

		fullyRefunded := amountMinor == remaining
		if fullyRefunded {
			zero := int64(0)
			if err := e.store.Payments.UpdateStatus(ctx, tx, paymentID, domain.PaymentRefunded, &zero, &zero); err != nil {
				return err
			}
			payment.Status = domain.PaymentRefunded
			payment.CommissionMinor = 0
			payment.NetMinor = 0
		}
		if err := e.bus.Publish(ctx, tx, eventbus.AggregatePayment, paymentID, eventbus.KindPaymentRefunded, eventbus.PaymentRefundedPayload{
			PaymentID: paymentID, AmountMinor: amountMinor,
		}); err != nil {
			return err
		}

		result = payment
		return nil
	})
	if err != nil {
		return domain.Payment{}, err
	}
	return result, nil
}

func (e *Engine) GetPayment(ctx context.Context, principal domain.Principal, paymentID string) (domain.Payment, error) {
	payment, err := e.store.Payments.GetByID(ctx, e.store.DB, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	order, err := e.store.Orders.GetByID(ctx, e.store.DB, payment.OrderID)
	if err != nil {
		return domain.Payment{}, err
	}
	if err := e.oracle.Authorize(ctx, principal, identity.VerbReadOrder, identity.Resource{
		RestaurantID:             order.RestaurantID,
		OrderCustomerPrincipalID: order.CustomerPrincipalID,
	}); err != nil {
		return domain.Payment{}, err
	}
	return payment, nil
}
