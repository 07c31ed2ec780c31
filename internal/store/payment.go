package store

import (
	"context"
	"database/sql"
	"errors"

	"foodcourt/internal/apperr"
	"foodcourt/internal/domain"
)

type PaymentRepo struct{}

func (r *PaymentRepo) Create(ctx context.Context, tx *sql.Tx, p domain.Payment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payment (id, order_id, amount_minor, currency, method, status, commission_minor, net_minor,
			provider_ref, redirect_url, provider_metadata, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.OrderID, p.AmountMinor, p.Currency, p.Method, p.Status, p.CommissionMinor, p.NetMinor,
		p.ProviderRef, p.RedirectURL, p.ProviderMetadata, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if matchesPQCode(err, "23505") {
			return apperr.New(apperr.PaymentAlreadyExists, "a payment already exists for this order")
		}
		return apperr.Wrap(apperr.Internal, "create payment", err)
	}
	return nil
}

func (r *PaymentRepo) GetByID(ctx context.Context, q Querier, id string) (domain.Payment, error) {
	return r.scanOne(q.QueryRowContext(ctx, paymentSelect+` WHERE id = $1`, id))
}

func (r *PaymentRepo) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (domain.Payment, error) {
	return r.scanOne(tx.QueryRowContext(ctx, paymentSelect+` WHERE id = $1 FOR UPDATE`, id))
}

func (r *PaymentRepo) GetByOrderID(ctx context.Context, q Querier, orderID string) (domain.Payment, error) {
	return r.scanOne(q.QueryRowContext(ctx, paymentSelect+` WHERE order_id = $1`, orderID))
}

func (r *PaymentRepo) GetByProviderRef(ctx context.Context, tx *sql.Tx, method domain.PaymentMethod, providerRef string) (domain.Payment, error) {
	return r.scanOne(tx.QueryRowContext(ctx, paymentSelect+` WHERE method = $1 AND provider_ref = $2 FOR UPDATE`, method, providerRef))
}

const paymentSelect = `
	SELECT id, order_id, amount_minor, currency, method, status, commission_minor, net_minor,
		provider_ref, redirect_url, provider_metadata, created_at, updated_at
	FROM payment`

func (r *PaymentRepo) scanOne(row *sql.Row) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.AmountMinor, &p.Currency, &p.Method, &p.Status, &p.CommissionMinor, &p.NetMinor,
		&p.ProviderRef, &p.RedirectURL, &p.ProviderMetadata, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Payment{}, apperr.New(apperr.NotFound, "payment not found")
	}
	if err != nil {
		return domain.Payment{}, apperr.Wrap(apperr.Internal, "scan payment", err)
	}
	return p, nil
}

// UpdateAfterProviderCreate persists the providerRef/redirectURL returned by
// adapter.createCharge.
func (r *PaymentRepo) UpdateAfterProviderCreate(ctx context.Context, tx *sql.Tx, id string, providerRef, redirectURL *string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE payment SET provider_ref = $1, redirect_url = $2, updated_at = now() WHERE id = $3`,
		providerRef, redirectURL, id)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "update payment after provider create", err)
	}
	return nil
}

// UpdateStatus transitions status and, when status is terminal, freezes
// commission/net as whatever was last computed (commission is reversed to
// zero by the caller before calling this on a full refund).
func (r *PaymentRepo) UpdateStatus(ctx context.Context, tx *sql.Tx, id string, status domain.PaymentStatus, commissionMinor, netMinor *int64) error {
	var err error
	if commissionMinor != nil && netMinor != nil {
		_, err = tx.ExecContext(ctx, `
			UPDATE payment SET status = $1, commission_minor = $2, net_minor = $3, updated_at = now() WHERE id = $4`,
			status, *commissionMinor, *netMinor, id)
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE payment SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, "update payment status", err)
	}
	return nil
}

func (r *PaymentRepo) InsertRefund(ctx context.Context, tx *sql.Tx, rf domain.Refund) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO refund (id, payment_id, amount_minor, reason, provider_ref, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		rf.ID, rf.PaymentID, rf.AmountMinor, rf.Reason, rf.ProviderRef, rf.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "insert refund", err)
	}
	return nil
}

// SumRefunds returns the total already refunded against a payment, used to
// compute the remaining refundable amount.
func (r *PaymentRepo) SumRefunds(ctx context.Context, q Querier, paymentID string) (int64, error) {
	var sum sql.NullInt64
	err := q.QueryRowContext(ctx, `SELECT sum(amount_minor) FROM refund WHERE payment_id = $1`, paymentID).Scan(&sum)
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "sum refunds", err)
	}
	return sum.Int64, nil
}
