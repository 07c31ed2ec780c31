package store

import (
	"context"
	"database/sql"
	"errors"

	"foodcourt/internal/apperr"
	"foodcourt/internal/domain"
)

type PrincipalRepo struct{}

func (r *PrincipalRepo) Create(ctx context.Context, q Querier, p domain.Principal) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO principal (id, role, external_identity_id, created_at)
		VALUES ($1, $2, $3, $4)`,
		p.ID, p.Role, p.ExternalIdentityID, p.CreatedAt)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "create principal", err)
	}
	return nil
}

func (r *PrincipalRepo) GetByID(ctx context.Context, q Querier, id string) (domain.Principal, error) {
	var p domain.Principal
	err := q.QueryRowContext(ctx, `
		SELECT id, role, external_identity_id, created_at FROM principal WHERE id = $1`, id,
	).Scan(&p.ID, &p.Role, &p.ExternalIdentityID, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Principal{}, apperr.New(apperr.NotFound, "principal not found")
	}
	if err != nil {
		return domain.Principal{}, apperr.Wrap(apperr.Internal, "get principal", err)
	}
	return p, nil
}

func (r *PrincipalRepo) GetByExternalIdentityID(ctx context.Context, q Querier, externalID string) (domain.Principal, error) {
	var p domain.Principal
	err := q.QueryRowContext(ctx, `
		SELECT id, role, external_identity_id, created_at FROM principal WHERE external_identity_id = $1`, externalID,
	).Scan(&p.ID, &p.Role, &p.ExternalIdentityID, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Principal{}, apperr.New(apperr.NotFound, "principal not found")
	}
	if err != nil {
		return domain.Principal{}, apperr.Wrap(apperr.Internal, "get principal by external identity", err)
	}
	return p, nil
}

// UpdateRole is used by the invite-consumption flow to upgrade a
// Customer to an Employee.
func (r *PrincipalRepo) UpdateRole(ctx context.Context, q Querier, id string, role domain.Role) error {
	res, err := q.ExecContext(ctx, `UPDATE principal SET role = $1 WHERE id = $2`, role, id)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "update principal role", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.NotFound, "principal not found")
	}
	return nil
}

// CountSuperadmins supports the invariant that at least one Superadmin must
// exist at all times.
func (r *PrincipalRepo) CountSuperadmins(ctx context.Context, q Querier) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT count(*) FROM principal WHERE role = $1`, domain.RoleSuperadmin).Scan(&n)
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "count superadmins", err)
	}
	return n, nil
}
