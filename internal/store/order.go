package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"foodcourt/internal/apperr"
	"foodcourt/internal/domain"
)

type OrderRepo struct{}

// NextOrderNumber locks (or creates) the counter row for (restaurantID,
// localDate), increments it, and returns the formatted YYYYMMDD-NNN number.
// Must be called inside the same transaction that inserts the Order row so
// a crash between the two never leaves a gap.
func (r *OrderRepo) NextOrderNumber(ctx context.Context, tx *sql.Tx, restaurantID, localDate string) (string, error) {
	var value int
	err := tx.QueryRowContext(ctx, `
		SELECT value FROM order_number_counter WHERE restaurant_id = $1 AND local_date = $2 FOR UPDATE`,
		restaurantID, localDate).Scan(&value)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_number_counter (restaurant_id, local_date, value) VALUES ($1, $2, 1)`,
			restaurantID, localDate); err != nil {
			return "", apperr.Wrap(apperr.Internal, "insert order number counter", err)
		}
		value = 1
	case err != nil:
		return "", apperr.Wrap(apperr.Internal, "lock order number counter", err)
	default:
		value++
		if _, err := tx.ExecContext(ctx, `
			UPDATE order_number_counter SET value = $1 WHERE restaurant_id = $2 AND local_date = $3`,
			value, restaurantID, localDate); err != nil {
			return "", apperr.Wrap(apperr.Internal, "update order number counter", err)
		}
	}

	compact := localDate[0:4] + localDate[5:7] + localDate[8:10]
	return fmt.Sprintf("%s-%03d", compact, value), nil
}

// LookupIdempotencyKey resolves a prior order created under the same
// (key, principal) pair, so a client retry after a dropped response does
// not double-create.
func (r *OrderRepo) LookupIdempotencyKey(ctx context.Context, q Querier, key, principalID string) (string, error) {
	var orderID string
	err := q.QueryRowContext(ctx, `
		SELECT order_id FROM order_idempotency WHERE idempotency_key = $1 AND principal_id = $2`,
		key, principalID).Scan(&orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.New(apperr.NotFound, "idempotency key not seen before")
	}
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "lookup idempotency key", err)
	}
	return orderID, nil
}

// RecordIdempotencyKey binds key to the order created in the same
// transaction.
func (r *OrderRepo) RecordIdempotencyKey(ctx context.Context, tx *sql.Tx, key, principalID, orderID string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_idempotency (idempotency_key, principal_id, order_id) VALUES ($1, $2, $3)`,
		key, principalID, orderID); err != nil {
		return apperr.Wrap(apperr.Internal, "record idempotency key", err)
	}
	return nil
}

func (r *OrderRepo) Create(ctx context.Context, tx *sql.Tx, o domain.Order) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO "order" (id, order_number, restaurant_id, table_id, customer_principal_id, customer_name,
			customer_phone, delivery_type, total_minor, status, special_instructions, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		o.ID, o.OrderNumber, o.RestaurantID, o.TableID, o.CustomerPrincipalID, o.CustomerName,
		o.CustomerPhone, o.DeliveryType, o.TotalMinor, o.Status, o.SpecialInstructions, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "create order", err)
	}
	for _, item := range o.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_item (id, order_id, product_id, variant_label, quantity, unit_price_minor, line_total_minor, special_instructions)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			item.ID, o.ID, item.ProductID, item.VariantLabel, item.Quantity, item.UnitPriceMinor, item.LineTotalMinor, item.SpecialInstructions); err != nil {
			return apperr.Wrap(apperr.Internal, "create order item", err)
		}
	}
	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, q Querier, id string) (domain.Order, error) {
	var o domain.Order
	err := q.QueryRowContext(ctx, `
		SELECT id, order_number, restaurant_id, table_id, customer_principal_id, customer_name, customer_phone,
			delivery_type, total_minor, status, special_instructions, created_at, updated_at
		FROM "order" WHERE id = $1`, id,
	).Scan(&o.ID, &o.OrderNumber, &o.RestaurantID, &o.TableID, &o.CustomerPrincipalID, &o.CustomerName, &o.CustomerPhone,
		&o.DeliveryType, &o.TotalMinor, &o.Status, &o.SpecialInstructions, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, apperr.New(apperr.NotFound, "order not found")
	}
	if err != nil {
		return domain.Order{}, apperr.Wrap(apperr.Internal, "get order", err)
	}

	items, err := r.listItems(ctx, q, id)
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items
	return o, nil
}

func (r *OrderRepo) listItems(ctx context.Context, q Querier, orderID string) ([]domain.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, product_id, variant_label, quantity, unit_price_minor, line_total_minor, special_instructions
		FROM order_item WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list order items", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantLabel, &it.Quantity, &it.UnitPriceMinor, &it.LineTotalMinor, &it.SpecialInstructions); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan order item", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListByRestaurant supports the restaurant-scoped order listing endpoint,
// optionally filtered by status.
func (r *OrderRepo) ListByRestaurant(ctx context.Context, q Querier, restaurantID string, status *domain.OrderStatus) ([]domain.Order, error) {
	var rows *sql.Rows
	var err error
	if status != nil {
		rows, err = q.QueryContext(ctx, `
			SELECT id FROM "order" WHERE restaurant_id = $1 AND status = $2 ORDER BY created_at DESC`, restaurantID, *status)
	} else {
		rows, err = q.QueryContext(ctx, `
			SELECT id FROM "order" WHERE restaurant_id = $1 ORDER BY created_at DESC`, restaurantID)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list orders", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, apperr.Wrap(apperr.Internal, "scan order id", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list orders", err)
	}

	out := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		o, err := r.GetByID(ctx, q, id)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// UpdateStatus performs a bare status write; callers are responsible for
// validating the transition beforehand (internal/orders owns that logic).
func (r *OrderRepo) UpdateStatus(ctx context.Context, tx *sql.Tx, id string, status domain.OrderStatus) error {
	res, err := tx.ExecContext(ctx, `UPDATE "order" SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "update order status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.NotFound, "order not found")
	}
	return nil
}

// GetByIDForUpdate locks the order row for the duration of the caller's
// transaction, used so concurrent status transitions serialize at the DB.
func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (domain.Order, error) {
	var o domain.Order
	err := tx.QueryRowContext(ctx, `
		SELECT id, order_number, restaurant_id, table_id, customer_principal_id, customer_name, customer_phone,
			delivery_type, total_minor, status, special_instructions, created_at, updated_at
		FROM "order" WHERE id = $1 FOR UPDATE`, id,
	).Scan(&o.ID, &o.OrderNumber, &o.RestaurantID, &o.TableID, &o.CustomerPrincipalID, &o.CustomerName, &o.CustomerPhone,
		&o.DeliveryType, &o.TotalMinor, &o.Status, &o.SpecialInstructions, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, apperr.New(apperr.NotFound, "order not found")
	}
	if err != nil {
		return domain.Order{}, apperr.Wrap(apperr.Internal, "get order for update", err)
	}
	items, err := r.listItems(ctx, tx, id)
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items
	return o, nil
}
