package store

import (
	"context"
	"database/sql"
	"errors"

	"foodcourt/internal/apperr"
	"foodcourt/internal/domain"
)

type InviteRepo struct{}

const inviteSelect = `
	SELECT id, token, restaurant_id, granted_role, hourly_wage_minor, expires_at, max_uses, used_count, status,
		created_by_principal_id
	FROM invite_token`

func (r *InviteRepo) Create(ctx context.Context, tx *sql.Tx, i domain.InviteToken) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO invite_token (id, token, restaurant_id, granted_role, hourly_wage_minor, expires_at, max_uses,
			used_count, status, created_by_principal_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		i.ID, i.Token, i.RestaurantID, i.GrantedRole, i.HourlyWageMinor, i.ExpiresAt, i.MaxUses, i.UsedCount, i.Status, i.CreatedByPrincipalID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "create invite token", err)
	}
	return nil
}

func (r *InviteRepo) GetByID(ctx context.Context, q Querier, id string) (domain.InviteToken, error) {
	return r.scanOne(q.QueryRowContext(ctx, inviteSelect+` WHERE id = $1`, id))
}

func (r *InviteRepo) GetByTokenForUpdate(ctx context.Context, tx *sql.Tx, token string) (domain.InviteToken, error) {
	return r.scanOne(tx.QueryRowContext(ctx, inviteSelect+` WHERE token = $1 FOR UPDATE`, token))
}

func (r *InviteRepo) scanOne(row *sql.Row) (domain.InviteToken, error) {
	var i domain.InviteToken
	err := row.Scan(&i.ID, &i.Token, &i.RestaurantID, &i.GrantedRole, &i.HourlyWageMinor, &i.ExpiresAt, &i.MaxUses,
		&i.UsedCount, &i.Status, &i.CreatedByPrincipalID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.InviteToken{}, apperr.New(apperr.NotFound, "invite token not found")
	}
	if err != nil {
		return domain.InviteToken{}, apperr.Wrap(apperr.Internal, "scan invite token", err)
	}
	return i, nil
}

func (r *InviteRepo) UpdateUsage(ctx context.Context, tx *sql.Tx, id string, usedCount int, status domain.InviteStatus) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE invite_token SET used_count = $1, status = $2 WHERE id = $3`, usedCount, status, id)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "update invite token usage", err)
	}
	return nil
}

func (r *InviteRepo) UpdateStatus(ctx context.Context, q Querier, id string, status domain.InviteStatus) error {
	res, err := q.ExecContext(ctx, `UPDATE invite_token SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "update invite token status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.NotFound, "invite token not found")
	}
	return nil
}

type SessionRepo struct{}

func (r *SessionRepo) Create(ctx context.Context, q Querier, s domain.Session) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO session (id, principal_id, token, issued_at, expires_at) VALUES ($1,$2,$3,$4,$5)`,
		s.ID, s.PrincipalID, s.Token, s.IssuedAt, s.ExpiresAt)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "create session", err)
	}
	return nil
}

func (r *SessionRepo) GetByToken(ctx context.Context, q Querier, token string) (domain.Session, error) {
	var s domain.Session
	err := q.QueryRowContext(ctx, `
		SELECT id, principal_id, token, issued_at, expires_at FROM session WHERE token = $1`, token,
	).Scan(&s.ID, &s.PrincipalID, &s.Token, &s.IssuedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, apperr.New(apperr.Unauthenticated, "session not found")
	}
	if err != nil {
		return domain.Session{}, apperr.Wrap(apperr.Internal, "get session", err)
	}
	return s, nil
}
