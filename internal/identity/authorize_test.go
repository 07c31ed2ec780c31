package identity

import (
	"context"
	"testing"

	"foodcourt/internal/apperr"
	"foodcourt/internal/domain"

	"github.com/stretchr/testify/assert"
)

// These tests cover the rows of the authorization matrix that do not need a
// database lookup (Superadmin and Customer columns, plus the unconditional
// denies). Owner/Employee scope checks resolve restaurants and employees
// through the store and are not exercised by these tests.

func newMatrixOracle() *Oracle {
	return NewOracle(nil, "secret")
}

func TestAuthorizeSuperadminAllowsEverything(t *testing.T) {
	oracle := newMatrixOracle()
	admin := domain.Principal{ID: "p-admin", Role: domain.RoleSuperadmin}

	verbs := []Verb{
		VerbCreateOrder, VerbReadOrder, VerbTransitionOrderStatus, VerbCancelOrder,
		VerbCreatePayment, VerbProcessCashOrTerminal, VerbRefundPayment,
		VerbCreateOrUpdateEmployee, VerbClockInOut, VerbCreateInviteToken,
	}
	for _, verb := range verbs {
		assert.NoError(t, oracle.Authorize(context.Background(), admin, verb, Resource{RestaurantID: "r-1"}), "verb %s", verb)
	}
}

func TestAuthorizeCustomerColumn(t *testing.T) {
	oracle := newMatrixOracle()
	self := "p-customer"
	other := "p-other"
	customer := domain.Principal{ID: self, Role: domain.RoleCustomer}

	t.Run("read self-placed order", func(t *testing.T) {
		err := oracle.Authorize(context.Background(), customer, VerbReadOrder, Resource{OrderCustomerPrincipalID: &self})
		assert.NoError(t, err)
	})

	t.Run("read someone else's order denied", func(t *testing.T) {
		err := oracle.Authorize(context.Background(), customer, VerbReadOrder, Resource{OrderCustomerPrincipalID: &other})
		assert.True(t, apperr.Is(err, apperr.Forbidden))
	})

	t.Run("read anonymous order denied", func(t *testing.T) {
		err := oracle.Authorize(context.Background(), customer, VerbReadOrder, Resource{})
		assert.True(t, apperr.Is(err, apperr.Forbidden))
	})

	t.Run("transition always denied", func(t *testing.T) {
		err := oracle.Authorize(context.Background(), customer, VerbTransitionOrderStatus, Resource{OrderCustomerPrincipalID: &self})
		assert.True(t, apperr.Is(err, apperr.Forbidden))
	})

	t.Run("cancel self-placed pending order", func(t *testing.T) {
		err := oracle.Authorize(context.Background(), customer, VerbCancelOrder, Resource{
			OrderCustomerPrincipalID: &self, OrderStatus: domain.OrderPending,
		})
		assert.NoError(t, err)
	})

	t.Run("cancel self-placed order past pending denied", func(t *testing.T) {
		err := oracle.Authorize(context.Background(), customer, VerbCancelOrder, Resource{
			OrderCustomerPrincipalID: &self, OrderStatus: domain.OrderPreparing,
		})
		assert.True(t, apperr.Is(err, apperr.Forbidden))
	})

	t.Run("create payment for self-placed order", func(t *testing.T) {
		err := oracle.Authorize(context.Background(), customer, VerbCreatePayment, Resource{OrderCustomerPrincipalID: &self})
		assert.NoError(t, err)
	})

	t.Run("cash and terminal denied", func(t *testing.T) {
		err := oracle.Authorize(context.Background(), customer, VerbProcessCashOrTerminal, Resource{OrderCustomerPrincipalID: &self})
		assert.True(t, apperr.Is(err, apperr.Forbidden))
	})

	t.Run("refund denied", func(t *testing.T) {
		err := oracle.Authorize(context.Background(), customer, VerbRefundPayment, Resource{})
		assert.True(t, apperr.Is(err, apperr.Forbidden))
	})

	t.Run("employee management denied", func(t *testing.T) {
		err := oracle.Authorize(context.Background(), customer, VerbCreateOrUpdateEmployee, Resource{})
		assert.True(t, apperr.Is(err, apperr.Forbidden))
	})

	t.Run("clock-in denied", func(t *testing.T) {
		err := oracle.Authorize(context.Background(), customer, VerbClockInOut, Resource{})
		assert.True(t, apperr.Is(err, apperr.Forbidden))
	})

	t.Run("invite creation denied", func(t *testing.T) {
		err := oracle.Authorize(context.Background(), customer, VerbCreateInviteToken, Resource{})
		assert.True(t, apperr.Is(err, apperr.Forbidden))
	})

	t.Run("invite consumption allowed", func(t *testing.T) {
		err := oracle.Authorize(context.Background(), customer, VerbConsumeInviteToken, Resource{})
		assert.NoError(t, err)
	})
}

func TestAuthorizeInviteConsumptionDeniedForStaff(t *testing.T) {
	oracle := newMatrixOracle()
	for _, role := range []domain.Role{domain.RoleRestaurantOwner, domain.RoleEmployee} {
		p := domain.Principal{ID: "p-1", Role: role}
		err := oracle.Authorize(context.Background(), p, VerbConsumeInviteToken, Resource{})
		assert.True(t, apperr.Is(err, apperr.Forbidden), "role %s", role)
	}
}

func TestAuthorizeEmployeeSelfOnlyClockIn(t *testing.T) {
	oracle := newMatrixOracle()
	self := "p-emp"
	other := "p-other"
	employee := domain.Principal{ID: self, Role: domain.RoleEmployee}

	assert.NoError(t, oracle.Authorize(context.Background(), employee, VerbClockInOut, Resource{EmployeePrincipalID: &self}))

	err := oracle.Authorize(context.Background(), employee, VerbClockInOut, Resource{EmployeePrincipalID: &other})
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	err = oracle.Authorize(context.Background(), employee, VerbClockInOut, Resource{})
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestAuthorizeRefundDeniedForEmployee(t *testing.T) {
	oracle := newMatrixOracle()
	employee := domain.Principal{ID: "p-emp", Role: domain.RoleEmployee}
	err := oracle.Authorize(context.Background(), employee, VerbRefundPayment, Resource{RestaurantID: "r-1"})
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestAuthorizeUnknownVerbDenied(t *testing.T) {
	oracle := newMatrixOracle()
	owner := domain.Principal{ID: "p-owner", Role: domain.RoleRestaurantOwner}
	err := oracle.Authorize(context.Background(), owner, Verb("launch_missiles"), Resource{})
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}
