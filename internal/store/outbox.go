package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"foodcourt/internal/apperr"
)

// OutboxRow is a durable record of one domain event, written in the same
// transaction as the business state change that produced it.
type OutboxRow struct {
	ID            int64
	EventID       string
	AggregateType string
	AggregateID   string
	Kind          string
	Payload       json.RawMessage
	CreatedAt     time.Time
	DispatchedAt  *time.Time
}

type OutboxRepo struct{}

// Append writes one outbox row inside the caller's transaction. eventID must
// be a fresh UUID assigned by the publisher at publish time.
func (r *OutboxRepo) Append(ctx context.Context, q Querier, eventID, aggregateType, aggregateID, kind string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "marshal event payload", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO outbox (event_id, aggregate_type, aggregate_id, kind, payload)
		VALUES ($1, $2, $3, $4, $5)`,
		eventID, aggregateType, aggregateID, kind, data)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "append outbox row", err)
	}
	return nil
}

// FetchUndispatched returns up to limit undispatched rows in commit order
// (ascending id), which is also per-aggregate publish order.
func (r *OutboxRepo) FetchUndispatched(ctx context.Context, q Querier, limit int) ([]OutboxRow, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, event_id, aggregate_type, aggregate_id, kind, payload, created_at, dispatched_at
		FROM outbox
		WHERE dispatched_at IS NULL
		ORDER BY id ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "fetch undispatched outbox rows", err)
	}
	defer rows.Close()

	var out []OutboxRow
	for rows.Next() {
		var row OutboxRow
		if err := rows.Scan(&row.ID, &row.EventID, &row.AggregateType, &row.AggregateID, &row.Kind, &row.Payload, &row.CreatedAt, &row.DispatchedAt); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan outbox row", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MarkDispatched stamps dispatched_at for the given outbox row ids.
func (r *OutboxRepo) MarkDispatched(ctx context.Context, q Querier, ids []int64) error {
	for _, id := range ids {
		if _, err := q.ExecContext(ctx, `UPDATE outbox SET dispatched_at = now() WHERE id = $1`, id); err != nil {
			return apperr.Wrap(apperr.Internal, "mark outbox dispatched", err)
		}
	}
	return nil
}

// MarkWebhookProcessed reports whether (provider, providerEventID) has
// already been recorded, and if not, records it atomically as part of q's
// transaction — the webhook idempotency guard.
func (r *OutboxRepo) MarkWebhookProcessed(ctx context.Context, q Querier, provider, providerEventID string) (alreadyProcessed bool, err error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO processed_webhook (provider, provider_event_id) VALUES ($1, $2)
		ON CONFLICT (provider, provider_event_id) DO NOTHING`,
		provider, providerEventID)
	if err != nil {
		return false, apperr.Wrap(apperr.Internal, "record processed webhook", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Wrap(apperr.Internal, "record processed webhook", err)
	}
	return inserted == 0, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if err == sql.ErrNoRows {
		return false
	}
	return matchesPQCode(err, "23505")
}
