package store

import (
	"context"
	"database/sql"
	"errors"

	"foodcourt/internal/apperr"
	"foodcourt/internal/domain"
)

type FoodcourtRepo struct{}

func (r *FoodcourtRepo) GetByID(ctx context.Context, q Querier, id string) (domain.Foodcourt, error) {
	var f domain.Foodcourt
	err := q.QueryRowContext(ctx, `
		SELECT id, name, commission_rate, active_flag FROM foodcourt WHERE id = $1`, id,
	).Scan(&f.ID, &f.Name, &f.CommissionRate, &f.ActiveFlag)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Foodcourt{}, apperr.New(apperr.NotFound, "foodcourt not found")
	}
	if err != nil {
		return domain.Foodcourt{}, apperr.Wrap(apperr.Internal, "get foodcourt", err)
	}
	return f, nil
}

func (r *FoodcourtRepo) Create(ctx context.Context, q Querier, f domain.Foodcourt) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO foodcourt (id, name, commission_rate, active_flag) VALUES ($1, $2, $3, $4)`,
		f.ID, f.Name, f.CommissionRate, f.ActiveFlag)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "create foodcourt", err)
	}
	return nil
}

type RestaurantRepo struct{}

func (r *RestaurantRepo) Create(ctx context.Context, q Querier, rest domain.Restaurant) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO restaurant (id, owner_principal_id, foodcourt_id, name, commission_rate, published_flag, timezone, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rest.ID, rest.OwnerPrincipalID, rest.FoodcourtID, rest.Name, rest.CommissionRate, rest.PublishedFlag, rest.Timezone, rest.Location)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "create restaurant", err)
	}
	return nil
}

func (r *RestaurantRepo) GetByID(ctx context.Context, q Querier, id string) (domain.Restaurant, error) {
	var rest domain.Restaurant
	err := q.QueryRowContext(ctx, `
		SELECT id, owner_principal_id, foodcourt_id, name, commission_rate, published_flag, timezone, location
		FROM restaurant WHERE id = $1`, id,
	).Scan(&rest.ID, &rest.OwnerPrincipalID, &rest.FoodcourtID, &rest.Name, &rest.CommissionRate, &rest.PublishedFlag, &rest.Timezone, &rest.Location)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Restaurant{}, apperr.New(apperr.NotFound, "restaurant not found")
	}
	if err != nil {
		return domain.Restaurant{}, apperr.Wrap(apperr.Internal, "get restaurant", err)
	}
	return rest, nil
}

// ListOwnedBy returns every restaurant owned by ownerPrincipalID, used to
// compute the Owner scope in the authorization matrix.
func (r *RestaurantRepo) ListOwnedBy(ctx context.Context, q Querier, ownerPrincipalID string) ([]domain.Restaurant, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, owner_principal_id, foodcourt_id, name, commission_rate, published_flag, timezone, location
		FROM restaurant WHERE owner_principal_id = $1`, ownerPrincipalID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list owned restaurants", err)
	}
	defer rows.Close()

	var out []domain.Restaurant
	for rows.Next() {
		var rest domain.Restaurant
		if err := rows.Scan(&rest.ID, &rest.OwnerPrincipalID, &rest.FoodcourtID, &rest.Name, &rest.CommissionRate, &rest.PublishedFlag, &rest.Timezone, &rest.Location); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan restaurant row", err)
		}
		out = append(out, rest)
	}
	return out, rows.Err()
}

type TableRepo struct{}

func (r *TableRepo) GetByID(ctx context.Context, q Querier, id string) (domain.Table, error) {
	var t domain.Table
	err := q.QueryRowContext(ctx, `SELECT id, foodcourt_id, label FROM "table" WHERE id = $1`, id).
		Scan(&t.ID, &t.FoodcourtID, &t.Label)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Table{}, apperr.New(apperr.NotFound, "table not found")
	}
	if err != nil {
		return domain.Table{}, apperr.Wrap(apperr.Internal, "get table", err)
	}
	return t, nil
}
