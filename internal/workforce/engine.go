// Package workforce is the shift-timekeeping ledger: invite tokens,
// shift scheduling, clock in/out, the missed-shift sweeper, and the payroll
// rollup read model.
package workforce

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"time"

	"foodcourt/internal/apperr"
	"foodcourt/internal/domain"
	"foodcourt/internal/eventbus"
	"foodcourt/internal/identity"
	"foodcourt/internal/store"
)

// MissedShiftGrace is how long after a scheduled start the sweeper waits
// before declaring a no-show.
const MissedShiftGrace = 15 * time.Minute

type Engine struct {
	store  *store.Store
	bus    *eventbus.Bus
	oracle *identity.Oracle
}

func NewEngine(s *store.Store, bus *eventbus.Bus, oracle *identity.Oracle) *Engine {
	return &Engine{store: s, bus: bus, oracle: oracle}
}

type CreateInviteInput struct {
	RestaurantID    string
	GrantedRole     domain.EmployeeRole
	HourlyWageMinor *int64
	ExpiresAt       time.Time
	MaxUses         int
}

// CreateInvite implements invite creation.
func (e *Engine) CreateInvite(ctx context.Context, principal domain.Principal, in CreateInviteInput) (domain.InviteToken, error) {
	if err := e.oracle.Authorize(ctx, principal, identity.VerbCreateInviteToken, identity.Resource{RestaurantID: in.RestaurantID}); err != nil {
		return domain.InviteToken{}, err
	}
	if in.ExpiresAt.Before(time.Now().Add(time.Minute)) {
		return domain.InviteToken{}, apperr.New(apperr.ValidationFailed, "expiresAt must be at least 1 minute in the future")
	}
	if in.MaxUses < 1 {
		return domain.InviteToken{}, apperr.New(apperr.ValidationFailed, "maxUses must be at least 1")
	}

	token, err := randomToken()
	if err != nil {
		return domain.InviteToken{}, apperr.Wrap(apperr.Internal, "generate invite token", err)
	}
	invite := domain.InviteToken{
		ID:                   domain.NewID(),
		Token:                token,
		RestaurantID:         in.RestaurantID,
		GrantedRole:          in.GrantedRole,
		HourlyWageMinor:      in.HourlyWageMinor,
		ExpiresAt:            in.ExpiresAt,
		MaxUses:              in.MaxUses,
		UsedCount:            0,
		Status:               domain.InviteActive,
		CreatedByPrincipalID: principal.ID,
	}

	err = e.store.WithSerializableRetry(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return e.store.Invites.Create(ctx, tx, invite)
	})
	if err != nil {
		return domain.InviteToken{}, err
	}
	return invite, nil
}

// ConsumeInvite implements invite consumption. The caller must already
// be an authenticated Customer; the Employee created is bound to that
// principal and the principal's role is upgraded in the same transaction.
func (e *Engine) ConsumeInvite(ctx context.Context, principal domain.Principal, token string, name, phone string, email *string) (domain.Employee, error) {
	if err := e.oracle.Authorize(ctx, principal, identity.VerbConsumeInviteToken, identity.Resource{}); err != nil {
		return domain.Employee{}, err
	}

	var employee domain.Employee
	err := e.store.WithSerializableRetry(ctx, func(ctx context.Context, tx *sql.Tx) error {
		invite, err := e.store.Invites.GetByTokenForUpdate(ctx, tx, token)
		if err != nil {
			return err
		}
		if invite.Status != domain.InviteActive {
			return apperr.New(apperr.ValidationFailed, "invite token is not active")
		}
		if time.Now().After(invite.ExpiresAt) {
			return apperr.New(apperr.ValidationFailed, "invite token has expired")
		}
		if invite.UsedCount >= invite.MaxUses {
			return apperr.New(apperr.ValidationFailed, "invite token has no remaining uses")
		}

		employee = domain.Employee{
			ID:              domain.NewID(),
			RestaurantID:    invite.RestaurantID,
			PrincipalID:     &principal.ID,
			Name:            name,
			Phone:           phone,
			Email:           email,
			EmployeeRole:    invite.GrantedRole,
			HourlyWageMinor: invite.HourlyWageMinor,
			ActiveFlag:      true,
		}
		if err := e.store.Employees.Create(ctx, tx, employee); err != nil {
			return err
		}

		usedCount := invite.UsedCount + 1
		status := invite.Status
		if usedCount >= invite.MaxUses {
			status = domain.InviteConsumed
		}
		if err := e.store.Invites.UpdateUsage(ctx, tx, invite.ID, usedCount, status); err != nil {
			return err
		}

		if err := e.store.Principals.UpdateRole(ctx, tx, principal.ID, domain.RoleEmployee); err != nil {
			return err
		}

		return e.bus.Publish(ctx, tx, eventbus.AggregateInvite, invite.ID, eventbus.KindInviteConsumed, eventbus.InviteConsumedPayload{
			InviteID: invite.ID, EmployeeID: employee.ID,
		})
	})
	if err != nil {
		return domain.Employee{}, err
	}
	return employee, nil
}

// RevokeInvite lets an Owner retire an invite before it expires or is
// fully used.
func (e *Engine) RevokeInvite(ctx context.Context, principal domain.Principal, inviteID string) error {
	invite, err := e.store.Invites.GetByID(ctx, e.store.DB, inviteID)
	if err != nil {
		return err
	}
	if err := e.oracle.Authorize(ctx, principal, identity.VerbCreateInviteToken, identity.Resource{RestaurantID: invite.RestaurantID}); err != nil {
		return err
	}
	if invite.Status != domain.InviteActive {
		return apperr.New(apperr.ValidationFailed, "invite token is not active")
	}
	return e.store.Invites.UpdateStatus(ctx, e.store.DB, inviteID, domain.InviteRevoked)
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
