package identity

import (
	"context"

	"foodcourt/internal/apperr"
	"foodcourt/internal/domain"
	"foodcourt/internal/store"
)

// Verb is one column-independent action from the authorization matrix.
type Verb string

const (
	VerbCreateOrder            Verb = "create_order"
	VerbReadOrder              Verb = "read_order"
	VerbTransitionOrderStatus  Verb = "transition_order_status"
	VerbCancelOrder            Verb = "cancel_order"
	VerbCreatePayment          Verb = "create_payment"
	VerbProcessCashOrTerminal  Verb = "process_cash_or_terminal"
	VerbRefundPayment          Verb = "refund_payment"
	VerbCreateOrUpdateEmployee Verb = "create_or_update_employee"
	VerbClockInOut             Verb = "clock_in_out"
	VerbCreateInviteToken      Verb = "create_invite_token"
	VerbConsumeInviteToken     Verb = "consume_invite_token"
)

// Resource carries whatever context a verb needs to evaluate scope and the
// self-only carve-outs in the matrix. Callers fill in only the fields
// relevant to the verb being checked.
type Resource struct {
	RestaurantID string

	// OrderCustomerPrincipalID is set when checking an order-scoped verb; a
	// nil value means the order was not self-placed by any Customer.
	OrderCustomerPrincipalID *string
	OrderStatus              domain.OrderStatus

	// EmployeePrincipalID is the principal bound to the Employee aggregate
	// being clocked in/out, for the Employee "self only" rule.
	EmployeePrincipalID *string
}

// Oracle resolves tokens to Principals and evaluates the authorization
// matrix. It is the only component allowed to read session tokens.
type Oracle struct {
	store          *store.Store
	signingSecret  string
}

func NewOracle(s *store.Store, signingSecret string) *Oracle {
	return &Oracle{store: s, signingSecret: signingSecret}
}

// ResolvePrincipal validates opaqueToken and loads the bound Principal.
func (o *Oracle) ResolvePrincipal(ctx context.Context, opaqueToken string) (domain.Principal, error) {
	parsed, err := VerifyToken(o.signingSecret, opaqueToken)
	if err != nil {
		return domain.Principal{}, err
	}
	p, err := o.store.Principals.GetByID(ctx, o.store.DB, parsed.SubjectID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return domain.Principal{}, apperr.New(apperr.Unauthenticated, "session bound to unknown principal")
		}
		return domain.Principal{}, err
	}
	return p, nil
}

// Authorize implements the authorization matrix exactly. It returns nil on allow,
// or an *apperr.Error with code Forbidden on deny. The caller is expected to
// have already distinguished "no principal" (Unauthenticated) upstream.
func (o *Oracle) Authorize(ctx context.Context, principal domain.Principal, verb Verb, res Resource) error {
	if principal.Role == domain.RoleSuperadmin {
		return nil
	}

	switch verb {
	case VerbCreateOrder:
		if principal.Role == domain.RoleCustomer {
			return nil
		}
		return o.requireScope(ctx, principal, res)

	case VerbReadOrder:
		if principal.Role == domain.RoleCustomer {
			if o.isSelfPlaced(principal, res) {
				return nil
			}
			return forbidden()
		}
		return o.requireScope(ctx, principal, res)

	case VerbTransitionOrderStatus:
		if principal.Role == domain.RoleCustomer {
			return forbidden()
		}
		return o.requireScope(ctx, principal, res)

	case VerbCancelOrder:
		if principal.Role == domain.RoleCustomer {
			if o.isSelfPlaced(principal, res) && res.OrderStatus == domain.OrderPending {
				return nil
			}
			return forbidden()
		}
		return o.requireScope(ctx, principal, res)

	case VerbCreatePayment:
		if principal.Role == domain.RoleCustomer {
			if o.isSelfPlaced(principal, res) {
				return nil
			}
			return forbidden()
		}
		return o.requireScope(ctx, principal, res)

	case VerbProcessCashOrTerminal:
		if principal.Role == domain.RoleCustomer {
			return forbidden()
		}
		return o.requireScope(ctx, principal, res)

	case VerbRefundPayment:
		if principal.Role == domain.RoleRestaurantOwner {
			return o.requireOwnerScope(ctx, principal, res)
		}
		return forbidden()

	case VerbCreateOrUpdateEmployee:
		if principal.Role == domain.RoleRestaurantOwner {
			return o.requireOwnerScope(ctx, principal, res)
		}
		return forbidden()

	case VerbClockInOut:
		switch principal.Role {
		case domain.RoleRestaurantOwner:
			return o.requireOwnerScope(ctx, principal, res)
		case domain.RoleEmployee:
			if res.EmployeePrincipalID != nil && *res.EmployeePrincipalID == principal.ID {
				return nil
			}
			return forbidden()
		default:
			return forbidden()
		}

	case VerbCreateInviteToken:
		if principal.Role == domain.RoleRestaurantOwner {
			return o.requireOwnerScope(ctx, principal, res)
		}
		return forbidden()

	case VerbConsumeInviteToken:
		if principal.Role == domain.RoleCustomer {
			return nil
		}
		return forbidden()
	}

	return forbidden()
}

func (o *Oracle) isSelfPlaced(principal domain.Principal, res Resource) bool {
	return res.OrderCustomerPrincipalID != nil && *res.OrderCustomerPrincipalID == principal.ID
}

// requireScope allows Owner (scope=own restaurants) or Employee
// (scope=assigned restaurant); anything else is Forbidden.
func (o *Oracle) requireScope(ctx context.Context, principal domain.Principal, res Resource) error {
	switch principal.Role {
	case domain.RoleRestaurantOwner:
		return o.requireOwnerScope(ctx, principal, res)
	case domain.RoleEmployee:
		emp, err := o.store.Employees.GetByPrincipalID(ctx, o.store.DB, principal.ID)
		if err != nil {
			if apperr.Is(err, apperr.NotFound) {
				return forbidden()
			}
			return err
		}
		if emp.RestaurantID != res.RestaurantID {
			return forbidden()
		}
		return nil
	default:
		return forbidden()
	}
}

func (o *Oracle) requireOwnerScope(ctx context.Context, principal domain.Principal, res Resource) error {
	rest, err := o.store.Restaurants.GetByID(ctx, o.store.DB, res.RestaurantID)
	if err != nil {
		return err
	}
	if rest.OwnerPrincipalID != principal.ID {
		return forbidden()
	}
	return nil
}

func forbidden() error {
	return apperr.New(apperr.Forbidden, "principal is not authorized for this action")
}
