package identity

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"foodcourt/internal/apperr"
	"foodcourt/internal/domain"
)

// EnsureSuperadmin enforces the standing invariant that at least one
// Superadmin principal exists: if none does (a fresh database), one is
// created and its id logged so an operator can mint a session for it.
func (o *Oracle) EnsureSuperadmin(ctx context.Context) (domain.Principal, error) {
	var p domain.Principal
	err := o.store.WithSerializableRetry(ctx, func(ctx context.Context, tx *sql.Tx) error {
		n, err := o.store.Principals.CountSuperadmins(ctx, tx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		p = domain.Principal{
			ID:                 domain.NewID(),
			Role:               domain.RoleSuperadmin,
			ExternalIdentityID: "bootstrap-superadmin",
			CreatedAt:          time.Now().UTC(),
		}
		return o.store.Principals.Create(ctx, tx, p)
	})
	if err != nil {
		return domain.Principal{}, err
	}
	return p, nil
}

// BootstrapResult is returned to the auth bootstrap endpoint.
type BootstrapResult struct {
	AccessToken string
	Principal   domain.Principal
}

// Bootstrap implements POST /auth/session: initData stands in for whatever
// third-party payload a front door already validated before this service
// ever sees it (validating that payload itself is explicitly out of this
// core's scope). It derives a stable external identity id from initData,
// resolving an existing Principal or creating a fresh Customer on first
// contact, then issues and persists a signed session token.
func (o *Oracle) Bootstrap(ctx context.Context, initData string) (BootstrapResult, error) {
	if initData == "" {
		return BootstrapResult{}, apperr.New(apperr.ValidationFailed, "initData is required")
	}
	sum := sha256.Sum256([]byte(initData))
	externalID := hex.EncodeToString(sum[:])

	var result BootstrapResult
	err := o.store.WithSerializableRetry(ctx, func(ctx context.Context, tx *sql.Tx) error {
		p, err := o.store.Principals.GetByExternalIdentityID(ctx, tx, externalID)
		switch {
		case apperr.Is(err, apperr.NotFound):
			p = domain.Principal{
				ID:                 domain.NewID(),
				Role:               domain.RoleCustomer,
				ExternalIdentityID: externalID,
				CreatedAt:          time.Now().UTC(),
			}
			if err := o.store.Principals.Create(ctx, tx, p); err != nil {
				return err
			}
		case err != nil:
			return err
		}

		now := time.Now().UTC()
		token := IssueToken(o.signingSecret, p.ID, now)
		session := domain.Session{
			ID:          domain.NewID(),
			PrincipalID: p.ID,
			Token:       token,
			IssuedAt:    now,
			ExpiresAt:   now.Add(DefaultSessionLifetime),
		}
		if err := o.store.Sessions.Create(ctx, tx, session); err != nil {
			return err
		}

		result = BootstrapResult{AccessToken: token, Principal: p}
		return nil
	})
	if err != nil {
		return BootstrapResult{}, err
	}
	return result, nil
}
