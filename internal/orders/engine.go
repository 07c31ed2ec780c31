// Package orders is the order engine: it owns the Order aggregate,
// validation, pricing, the lifecycle state machine, and per-restaurant
// monotonic numbering.
package orders

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"foodcourt/internal/apperr"
	"foodcourt/internal/catalog"
	"foodcourt/internal/domain"
	"foodcourt/internal/eventbus"
	"foodcourt/internal/identity"
	"foodcourt/internal/store"

	"github.com/hashicorp/go-multierror"
)

// Refunder is the slice of the payment broker the order engine needs to
// carry out a refund-on-cancel; depending on the interface
// rather than *payments.Engine keeps this package free to unit-test the
// state machine without constructing a full payment broker.
type Refunder interface {
	Refund(ctx context.Context, principal domain.Principal, paymentID string, amountMinor int64, reason string) (domain.Payment, error)
}

type Engine struct {
	store    *store.Store
	catalog  catalog.Client
	bus      *eventbus.Bus
	oracle   *identity.Oracle
	payments Refunder
}

func NewEngine(s *store.Store, c catalog.Client, bus *eventbus.Bus, oracle *identity.Oracle, payments Refunder) *Engine {
	return &Engine{store: s, catalog: c, bus: bus, oracle: oracle, payments: payments}
}

type ItemInput struct {
	ProductID           string
	VariantLabel        *string
	Quantity            int
	SpecialInstructions *string
}

type CreateOrderInput struct {
	RestaurantID        string
	TableID             *string
	CustomerPrincipalID *string
	CustomerName        string
	CustomerPhone       string
	DeliveryType        domain.DeliveryType
	SpecialInstructions *string
	Items               []ItemInput

	// IdempotencyKey, when set, makes a retried create return the order
	// the first attempt produced instead of creating a second one.
	IdempotencyKey *string
}

// CreateOrder validates and prices the order inside one serializable
// transaction, retrying up to 3 times on a serialization conflict from the
// order-number counter row.
func (e *Engine) CreateOrder(ctx context.Context, principal domain.Principal, in CreateOrderInput) (domain.Order, error) {
	if err := e.oracle.Authorize(ctx, principal, identity.VerbCreateOrder, identity.Resource{RestaurantID: in.RestaurantID}); err != nil {
		return domain.Order{}, err
	}
	if len(in.Items) == 0 {
		return domain.Order{}, apperr.New(apperr.ValidationFailed, "order must contain at least one item")
	}

	var result domain.Order
	err := e.store.WithSerializableRetry(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if in.IdempotencyKey != nil && *in.IdempotencyKey != "" {
			existingID, err := e.store.Orders.LookupIdempotencyKey(ctx, tx, *in.IdempotencyKey, principal.ID)
			switch {
			case err == nil:
				existing, err := e.store.Orders.GetByID(ctx, tx, existingID)
				if err != nil {
					return err
				}
				result = existing
				return nil
			case !apperr.Is(err, apperr.NotFound):
				return err
			}
		}

		rest, err := e.store.Restaurants.GetByID(ctx, tx, in.RestaurantID)
		if err != nil {
			return err
		}
		if !rest.PublishedFlag {
			return apperr.New(apperr.ValidationFailed, "RestaurantNotActive")
		}
		fc, err := e.store.Foodcourts.GetByID(ctx, tx, rest.FoodcourtID)
		if err != nil {
			return err
		}
		if !fc.ActiveFlag {
			return apperr.New(apperr.ValidationFailed, "RestaurantNotActive")
		}

		if in.TableID != nil {
			table, err := e.store.Tables.GetByID(ctx, tx, *in.TableID)
			if err != nil {
				return err
			}
			if table.FoodcourtID != rest.FoodcourtID {
				return apperr.New(apperr.ValidationFailed, "TableMismatch")
			}
		}

		items := make([]domain.OrderItem, 0, len(in.Items))
		var total int64
		for _, itemIn := range in.Items {
			snap, err := e.catalog.GetProductSnapshot(ctx, in.RestaurantID, itemIn.ProductID)
			if err != nil {
				if apperr.Is(err, apperr.NotFound) {
					return apperr.New(apperr.ValidationFailed, "ProductUnavailable")
				}
				return err
			}
			if !snap.Available || snap.RestaurantID != in.RestaurantID {
				return apperr.New(apperr.ValidationFailed, "ProductUnavailable")
			}
			unitPrice := snap.BasePriceMinor
			if itemIn.VariantLabel != nil {
				modifier, ok := snap.VariantPriceModifiers[*itemIn.VariantLabel]
				if !ok {
					return apperr.New(apperr.ValidationFailed, "UnknownVariant")
				}
				unitPrice += modifier
			}
			if itemIn.Quantity < 1 {
				return apperr.New(apperr.ValidationFailed, "item quantity must be at least 1")
			}
			lineTotal := unitPrice * int64(itemIn.Quantity)
			total += lineTotal
			items = append(items, domain.OrderItem{
				ID:                  domain.NewID(),
				ProductID:           itemIn.ProductID,
				VariantLabel:        itemIn.VariantLabel,
				Quantity:            itemIn.Quantity,
				UnitPriceMinor:      unitPrice,
				LineTotalMinor:      lineTotal,
				SpecialInstructions: itemIn.SpecialInstructions,
			})
		}
		if total == 0 {
			return apperr.New(apperr.ValidationFailed, "order total must be greater than zero")
		}

		localDate, err := LocalDate(rest.Timezone, time.Now())
		if err != nil {
			return apperr.Wrap(apperr.Internal, "resolve restaurant local date", err)
		}
		orderNumber, err := e.store.Orders.NextOrderNumber(ctx, tx, in.RestaurantID, localDate)
		if err != nil {
			return err
		}

		customerPrincipalID := in.CustomerPrincipalID
		if principal.Role == domain.RoleCustomer {
			customerPrincipalID = &principal.ID
		}

		now := time.Now().UTC()
		order := domain.Order{
			ID:                  domain.NewID(),
			OrderNumber:         orderNumber,
			RestaurantID:        in.RestaurantID,
			TableID:             in.TableID,
			CustomerPrincipalID: customerPrincipalID,
			CustomerName:        in.CustomerName,
			CustomerPhone:       in.CustomerPhone,
			DeliveryType:        in.DeliveryType,
			TotalMinor:          total,
			Status:              domain.OrderPending,
			SpecialInstructions: in.SpecialInstructions,
			Items:               items,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := e.store.Orders.Create(ctx, tx, order); err != nil {
			return err
		}
		if in.IdempotencyKey != nil && *in.IdempotencyKey != "" {
			if err := e.store.Orders.RecordIdempotencyKey(ctx, tx, *in.IdempotencyKey, principal.ID, order.ID); err != nil {
				return err
			}
		}
		if err := e.bus.Publish(ctx, tx, eventbus.AggregateOrder, order.ID, eventbus.KindOrderCreated, eventbus.OrderCreatedPayload{
			OrderID: order.ID, RestaurantID: order.RestaurantID, OrderNumber: order.OrderNumber, TotalMinor: order.TotalMinor,
		}); err != nil {
			return err
		}

		result = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

// LocalDate computes the restaurant's local calendar date from its stored
// IANA timezone.
func LocalDate(tz string, now time.Time) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return now.In(loc).Format("2006-01-02"), nil
}

// TransitionStatus drives the order through its lifecycle state machine.
func (e *Engine) TransitionStatus(ctx context.Context, principal domain.Principal, orderID string, to domain.OrderStatus, estimatedMinutes *int) (domain.Order, error) {
	if estimatedMinutes != nil && *estimatedMinutes < 0 {
		return domain.Order{}, apperr.New(apperr.ValidationFailed, "estimatedMinutes must not be negative")
	}

	var result domain.Order
	err := e.store.WithSerializableRetry(ctx, func(ctx context.Context, tx *sql.Tx) error {
		order, err := e.store.Orders.GetByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := e.oracle.Authorize(ctx, principal, identity.VerbTransitionOrderStatus, identity.Resource{RestaurantID: order.RestaurantID}); err != nil {
			return err
		}
		if !domain.CanTransition(order.Status, to) {
			return apperr.New(apperr.IllegalTransition, fmt.Sprintf("cannot transition order from %s to %s", order.Status, to))
		}
		from := order.Status
		if err := e.store.Orders.UpdateStatus(ctx, tx, orderID, to); err != nil {
			return err
		}
		if err := e.bus.Publish(ctx, tx, eventbus.AggregateOrder, orderID, eventbus.KindOrderStatusChanged, eventbus.OrderStatusChangedPayload{
			OrderID: orderID, From: string(from), To: string(to),
		}); err != nil {
			return err
		}
		order.Status = to
		result = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

// BulkStatusUpdate processes each order id in its own transaction; partial
// failure is reported per-id without affecting others.
func (e *Engine) BulkStatusUpdate(ctx context.Context, principal domain.Principal, orderIDs []string, to domain.OrderStatus) (map[string]error, error) {
	results := make(map[string]error, len(orderIDs))
	var merr *multierror.Error
	for _, id := range orderIDs {
		_, err := e.TransitionStatus(ctx, principal, id, to, nil)
		results[id] = err
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("order %s: %w", id, err))
		}
	}
	return results, merr.ErrorOrNil()
}

func (e *Engine) GetOrder(ctx context.Context, principal domain.Principal, orderID string) (domain.Order, error) {
	order, err := e.store.Orders.GetByID(ctx, e.store.DB, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if err := e.oracle.Authorize(ctx, principal, identity.VerbReadOrder, identity.Resource{
		RestaurantID:             order.RestaurantID,
		OrderCustomerPrincipalID: order.CustomerPrincipalID,
	}); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// CancelOrder implements Cancel. When refund is requested against a
// Completed payment, the refund must clear before the order is marked
// Cancelled: the refund runs to completion (its own serializable
// transaction, since the payment broker owns that boundary) before the
// order-cancel transaction ever opens, so a failed refund leaves both
// aggregates exactly as they were and surfaces RefundFailed; a successful
// refund's externally visible effect and the order's Cancelled transition
// are the two phases of this command.
func (e *Engine) CancelOrder(ctx context.Context, principal domain.Principal, orderID, reason string, requestRefund bool) (domain.Order, error) {
	if reason == "" {
		return domain.Order{}, apperr.New(apperr.ValidationFailed, "cancel reason is required")
	}

	order, err := e.store.Orders.GetByID(ctx, e.store.DB, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if err := e.oracle.Authorize(ctx, principal, identity.VerbCancelOrder, identity.Resource{
		RestaurantID:             order.RestaurantID,
		OrderCustomerPrincipalID: order.CustomerPrincipalID,
		OrderStatus:              order.Status,
	}); err != nil {
		return domain.Order{}, err
	}
	if order.Status.Terminal() {
		return domain.Order{}, apperr.New(apperr.IllegalTransition, "order is already in a terminal status")
	}

	if requestRefund {
		payment, err := e.store.Payments.GetByOrderID(ctx, e.store.DB, orderID)
		if err != nil && !apperr.Is(err, apperr.NotFound) {
			return domain.Order{}, err
		}
		if err == nil && payment.Status == domain.PaymentCompleted {
			if e.payments == nil {
				return domain.Order{}, apperr.New(apperr.RefundFailed, "no payment broker configured to issue the refund")
			}
			if _, err := e.payments.Refund(ctx, principal, payment.ID, payment.AmountMinor, reason); err != nil {
				return domain.Order{}, apperr.Wrap(apperr.RefundFailed, "refund failed, cancel rejected", err)
			}
		}
	}

	var result domain.Order
	err = e.store.WithSerializableRetry(ctx, func(ctx context.Context, tx *sql.Tx) error {
		locked, err := e.store.Orders.GetByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if locked.Status.Terminal() {
			return apperr.New(apperr.IllegalTransition, "order is already in a terminal status")
		}
		if err := e.store.Orders.UpdateStatus(ctx, tx, orderID, domain.OrderCancelled); err != nil {
			return err
		}
		if err := e.bus.Publish(ctx, tx, eventbus.AggregateOrder, orderID, eventbus.KindOrderCancelled, eventbus.OrderCancelledPayload{
			OrderID: orderID, Reason: reason,
		}); err != nil {
			return err
		}
		locked.Status = domain.OrderCancelled
		result = locked
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

func (e *Engine) ListOrders(ctx context.Context, principal domain.Principal, restaurantID string, status *domain.OrderStatus) ([]domain.Order, error) {
	if err := e.oracle.Authorize(ctx, principal, identity.VerbReadOrder, identity.Resource{RestaurantID: restaurantID}); err != nil {
		return nil, err
	}
	return e.store.Orders.ListByRestaurant(ctx, e.store.DB, restaurantID, status)
}
