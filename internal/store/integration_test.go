//go:build integration

package store_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodcourt/internal/apperr"
	"foodcourt/internal/domain"
	"foodcourt/internal/store"
	"foodcourt/internal/testutil"
)

var pg *testutil.PostgresContainer

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	pg, err = testutil.StartPostgresContainer(ctx)
	if err != nil {
		log.Fatalf("starting postgres container: %v", err)
	}

	code := m.Run()

	pg.Stop(ctx)
	os.Exit(code)
}

// seedRestaurant creates the principal/foodcourt/restaurant chain order
// creation depends on and returns the restaurant.
func seedRestaurant(t *testing.T, st *store.Store) domain.Restaurant {
	t.Helper()
	ctx := context.Background()

	owner := domain.Principal{
		ID:                 domain.NewID(),
		Role:               domain.RoleRestaurantOwner,
		ExternalIdentityID: domain.NewID(),
		CreatedAt:          time.Now().UTC(),
	}
	require.NoError(t, st.Principals.Create(ctx, st.DB, owner))

	fc := domain.Foodcourt{ID: domain.NewID(), Name: "Central Hall", CommissionRate: 0.10, ActiveFlag: true}
	require.NoError(t, st.Foodcourts.Create(ctx, st.DB, fc))

	rest := domain.Restaurant{
		ID:               domain.NewID(),
		OwnerPrincipalID: owner.ID,
		FoodcourtID:      fc.ID,
		Name:             "Pasta Corner",
		CommissionRate:   fc.CommissionRate,
		PublishedFlag:    true,
		Timezone:         "UTC",
		Location:         json.RawMessage(`{"hall":"A"}`),
	}
	require.NoError(t, st.Restaurants.Create(ctx, st.DB, rest))
	return rest
}

func createNumberedOrder(ctx context.Context, st *store.Store, restaurantID, localDate string) (string, error) {
	var number string
	err := st.WithSerializableRetry(ctx, func(ctx context.Context, tx *sql.Tx) error {
		n, err := st.Orders.NextOrderNumber(ctx, tx, restaurantID, localDate)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		order := domain.Order{
			ID:           domain.NewID(),
			OrderNumber:  n,
			RestaurantID: restaurantID,
			CustomerName: "Walk-in",
			CustomerPhone: "+381600000000",
			DeliveryType: domain.DeliveryDineIn,
			TotalMinor:   1000,
			Status:       domain.OrderPending,
			Items: []domain.OrderItem{{
				ID: domain.NewID(), ProductID: "prod-1", Quantity: 1,
				UnitPriceMinor: 1000, LineTotalMinor: 1000,
			}},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := st.Orders.Create(ctx, tx, order); err != nil {
			return err
		}
		number = n
		return nil
	})
	return number, err
}

// TestOrderNumberSequenceIsGapless drives 50 concurrent order creations at
// one restaurant on one local date and asserts the numbers come out
// pairwise distinct and gapless from -001 to -050. Callers retry on
// Conflict, the same contract the HTTP layer exposes.
func TestOrderNumberSequenceIsGapless(t *testing.T) {
	st := pg.OpenStore(t)
	rest := seedRestaurant(t, st)
	ctx := context.Background()
	const localDate = "2026-08-02"

	// The counter row is created by the first transaction that needs it;
	// doing that up front keeps the concurrent phase on the row-lock path.
	_, err := createNumberedOrder(ctx, st, rest.ID, localDate)
	require.NoError(t, err)

	const n = 49
	numbers := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				number, err := createNumberedOrder(ctx, st, rest.ID, localDate)
				if err == nil {
					numbers <- number
					return
				}
				if !apperr.Is(err, apperr.Conflict) {
					t.Errorf("unexpected error: %v", err)
					return
				}
				time.Sleep(10 * time.Millisecond)
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{"20260802-001": true}
	for number := range numbers {
		assert.False(t, seen[number], "duplicate order number %s", number)
		seen[number] = true
	}
	require.Len(t, seen, 50)
	for i := 1; i <= 50; i++ {
		want := fmt.Sprintf("20260802-%03d", i)
		assert.True(t, seen[want], "missing order number %s", want)
	}
}

func TestOrderNumberCounterIsPerDate(t *testing.T) {
	st := pg.OpenStore(t)
	rest := seedRestaurant(t, st)
	ctx := context.Background()

	n1, err := createNumberedOrder(ctx, st, rest.ID, "2026-08-03")
	require.NoError(t, err)
	n2, err := createNumberedOrder(ctx, st, rest.ID, "2026-08-04")
	require.NoError(t, err)

	assert.Equal(t, "20260803-001", n1)
	assert.Equal(t, "20260804-001", n2)
}

func TestPaymentOrderUniqueConstraint(t *testing.T) {
	st := pg.OpenStore(t)
	rest := seedRestaurant(t, st)
	ctx := context.Background()

	var payment domain.Payment
	require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		n, err := st.Orders.NextOrderNumber(ctx, tx, rest.ID, "2026-08-05")
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		order := domain.Order{
			ID: domain.NewID(), OrderNumber: n, RestaurantID: rest.ID,
			CustomerName: "Ana", CustomerPhone: "+381601111111",
			DeliveryType: domain.DeliveryTakeaway, TotalMinor: 1500,
			Status:    domain.OrderPending,
			CreatedAt: now, UpdatedAt: now,
		}
		if err := st.Orders.Create(ctx, tx, order); err != nil {
			return err
		}
		payment = domain.Payment{
			ID: domain.NewID(), OrderID: order.ID, AmountMinor: 1500, Currency: "USD",
			Method: domain.PaymentMethodCash, Status: domain.PaymentCompleted,
			CommissionMinor: 150, NetMinor: 1350, CreatedAt: now, UpdatedAt: now,
		}
		return st.Payments.Create(ctx, tx, payment)
	}))

	// Second payment for the same order must hit the unique constraint. It
	// runs in its own transaction: a failed statement aborts the Postgres
	// transaction it ran in, so nothing after it could commit.
	dup := payment
	dup.ID = domain.NewID()
	err := st.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return st.Payments.Create(ctx, tx, dup)
	})
	assert.Error(t, err)
}

func TestEmployeePhoneUniqueAmongActive(t *testing.T) {
	st := pg.OpenStore(t)
	rest := seedRestaurant(t, st)
	ctx := context.Background()

	emp := domain.Employee{
		ID: domain.NewID(), RestaurantID: rest.ID, Name: "Mila",
		Phone: "+381602222222", EmployeeRole: domain.EmployeeRoleCashier, ActiveFlag: true,
	}
	require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return st.Employees.Create(ctx, tx, emp)
	}))

	dup := emp
	dup.ID = domain.NewID()
	err := st.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return st.Employees.Create(ctx, tx, dup)
	})
	assert.Error(t, err, "same phone at the same restaurant must be rejected while active")

	// An inactive employee releases the phone for reuse.
	inactive := emp
	inactive.ID = domain.NewID()
	inactive.Phone = "+381603333333"
	inactive.ActiveFlag = false
	require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return st.Employees.Create(ctx, tx, inactive)
	}))
	reuse := inactive
	reuse.ID = domain.NewID()
	reuse.ActiveFlag = true
	require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return st.Employees.Create(ctx, tx, reuse)
	}))
}

func TestMarkWebhookProcessedIsIdempotent(t *testing.T) {
	st := pg.OpenStore(t)
	ctx := context.Background()

	eventID := domain.NewID()
	var first, second bool
	require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		first, err = st.Outbox.MarkWebhookProcessed(ctx, tx, "card_psp_a", eventID)
		return err
	}))
	require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		second, err = st.Outbox.MarkWebhookProcessed(ctx, tx, "card_psp_a", eventID)
		return err
	}))

	assert.False(t, first, "first delivery is not a duplicate")
	assert.True(t, second, "second delivery must be recognized as processed")
}

func TestOutboxFetchAndMarkDispatched(t *testing.T) {
	st := pg.OpenStore(t)
	ctx := context.Background()

	aggregateID := domain.NewID()
	require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for i := 0; i < 3; i++ {
			err := st.Outbox.Append(ctx, tx, domain.NewID(), "order", aggregateID, "OrderStatusChanged",
				map[string]any{"seq": i})
			if err != nil {
				return err
			}
		}
		return nil
	}))

	rows, err := st.Outbox.FetchUndispatched(ctx, st.DB, 100)
	require.NoError(t, err)

	var ids []int64
	lastID := int64(-1)
	for _, row := range rows {
		if row.AggregateID != aggregateID {
			continue
		}
		assert.Greater(t, row.ID, lastID, "outbox rows must come back in commit order")
		lastID = row.ID
		ids = append(ids, row.ID)
	}
	require.Len(t, ids, 3)

	require.NoError(t, st.Outbox.MarkDispatched(ctx, st.DB, ids))

	rows, err = st.Outbox.FetchUndispatched(ctx, st.DB, 100)
	require.NoError(t, err)
	for _, row := range rows {
		assert.NotEqual(t, aggregateID, row.AggregateID, "dispatched rows must not be fetched again")
	}
}
