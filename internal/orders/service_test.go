package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/baanfurniture/storefront-backend/internal/cart"
	"github.com/baanfurniture/storefront-backend/internal/customers"
	product "github.com/baanfurniture/storefront-backend/internal/products"
	"github.com/baanfurniture/storefront-backend/pkg/db"
	"github.com/baanfurniture/storefront-backend/pkg/db/dbtest"
	"github.com/baanfurniture/storefront-backend/pkg/db/models"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
	pkgerrors "github.com/baanfurniture/storefront-backend/pkg/errors"
	"github.com/baanfurniture/storefront-backend/pkg/outbox"
	"github.com/baanfurniture/storefront-backend/pkg/types"
)

var fixedNow = time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

var admin = Actor{UserID: uuid.New(), Role: enums.RoleAdmin}

type recordingHook struct {
	mu    sync.Mutex
	calls []Transition
}

func (h *recordingHook) OnTransition(_ context.Context, t Transition) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, t)
}

func (h *recordingHook) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

type fixture struct {
	conn *gorm.DB
	svc  Service
	cart *cart.Repository
	hook *recordingHook
}

func newFixture(t *testing.T, wrap func(Repository) Repository) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	if wrap != nil {
		repo = wrap(repo)
	}
	cartRepo := cart.NewRepository(conn)
	hook := &recordingHook{}
	svc, err := NewService(ServiceParams{
		Repo:           repo,
		Products:       product.NewRepository(conn),
		Cart:           cartRepo,
		Customers:      customers.NewRepository(conn),
		Tx:             db.Wrap(conn),
		Outbox:         outbox.NewService(outbox.NewRepository(conn), nil),
		Hooks:          []TransitionHook{hook},
		VATRate:        decimal.RequireFromString("0.07"),
		PriceTolerance: decimal.NewFromInt(1),
		Now:            func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return &fixture{conn: conn, svc: svc, cart: cartRepo, hook: hook}
}

func (f *fixture) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := f.conn.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func (f *fixture) addToCart(t *testing.T, customerID, productID uuid.UUID, variant enums.PricingVariant, qty int, price string) {
	t.Helper()
	require.NoError(t, f.cart.Increment(context.Background(), models.CartItem{
		CustomerID:     customerID,
		ProductID:      productID,
		PricingVariant: variant,
		PricingLabel:   string(variant),
		Quantity:       qty,
		UnitPrice:      decimal.RequireFromString(price),
	}))
}

func address() types.ShippingAddress {
	return types.ShippingAddress{RecipientName: "Somchai", Phone: "0812345678", Address: "99 Sukhumvit Rd, Bangkok"}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code(), err.Error())
}

func (f *fixture) pendingCashOrder(t *testing.T, customerID uuid.UUID) *models.Order {
	t.Helper()
	p := dbtest.SeedProduct(t, f.conn, "Side table", "1500")
	order, err := f.svc.Checkout(context.Background(), CheckoutInput{
		CustomerID:      customerID,
		Items:           []Item{{ProductID: p.ID, Variant: enums.PricingVariantCash, Quantity: 1}},
		PaymentMethod:   enums.PaymentMethodCash,
		ShippingAddress: address(),
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) pendingInstallmentOrder(t *testing.T, customerID uuid.UUID) *models.Order {
	t.Helper()
	p := dbtest.SeedProduct(t, f.conn, "Wardrobe", "11000", func(p *models.Product) {
		p.InstallmentPrice = dbtest.Price("12000")
	})
	order, err := f.svc.Checkout(context.Background(), CheckoutInput{
		CustomerID:         customerID,
		Items:              []Item{{ProductID: p.ID, Variant: enums.PricingVariantInstallment, Quantity: 1}},
		PaymentMethod:      enums.PaymentMethodInstallment,
		InstallmentPeriods: 3,
		ShippingAddress:    address(),
	})
	require.NoError(t, err)
	return order
}

func TestCheckoutCashConsumesOnlyPurchasedLines(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	customerID := uuid.New()
	sofa := dbtest.SeedProduct(t, f.conn, "Sofa", "1200", func(p *models.Product) {
		p.CashPromoPrice = dbtest.Price("1000")
	})
	lamp := dbtest.SeedProduct(t, f.conn, "Lamp", "450")
	f.addToCart(t, customerID, sofa.ID, enums.PricingVariantCashPromo, 2, "1000")
	f.addToCart(t, customerID, lamp.ID, enums.PricingVariantCash, 1, "450")

	order, err := f.svc.Checkout(ctx, CheckoutInput{
		CustomerID: customerID,
		Items: []Item{{
			ProductID: sofa.ID,
			Variant:   enums.PricingVariantCashPromo,
			Quantity:  2,
			UnitPrice: dbtest.Price("1000"),
		}},
		PaymentMethod:      enums.PaymentMethodCash,
		InstallmentPeriods: 6,
		ShippingAddress:    address(),
	})
	require.NoError(t, err)

	require.Equal(t, enums.OrderStatusPending, order.Status)
	require.True(t, order.TotalAmount.Equal(decimal.NewFromInt(2000)), order.TotalAmount.String())
	require.True(t, order.VATAmount.Equal(decimal.RequireFromString("130.84")), order.VATAmount.String())
	require.Equal(t, 1, order.InstallmentPeriods)
	require.True(t, order.MonthlyPayment.IsZero())
	require.Empty(t, order.Schedule)
	require.Len(t, order.Details, 1)
	require.Equal(t, "Sofa", order.Details[0].ProductName)

	stored, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Details, 1)
	require.Empty(t, stored.Schedule)

	items, err := f.cart.ListLines(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, lamp.ID, items[0].ProductID)

	require.EqualValues(t, 1, f.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderCreated))
}

func TestCheckoutInstallmentBuildsSchedule(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	order := f.pendingInstallmentOrder(t, uuid.New())

	require.True(t, order.TotalAmount.Equal(decimal.NewFromInt(12000)))
	require.True(t, order.MonthlyPayment.Equal(decimal.NewFromInt(4000)))
	require.Equal(t, 3, order.InstallmentPeriods)

	stored, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Schedule, 3)
	wantDates := []string{"2026-03-15", "2026-04-15", "2026-05-15"}
	for i, entry := range stored.Schedule {
		require.Equal(t, i+1, entry.InstallmentNumber)
		require.True(t, entry.Amount.Equal(decimal.NewFromInt(4000)), entry.Amount.String())
		require.Equal(t, wantDates[i], entry.DueDate.UTC().Format("2006-01-02"))
		require.Equal(t, enums.InstallmentStatusUnpaid, entry.Status)
	}
}

func TestCheckoutRejectsStaleClientPrice(t *testing.T) {
	f := newFixture(t, nil)
	p := dbtest.SeedProduct(t, f.conn, "Desk", "5000")

	_, err := f.svc.Checkout(context.Background(), CheckoutInput{
		CustomerID:      uuid.New(),
		Items:           []Item{{ProductID: p.ID, Variant: enums.PricingVariantCash, Quantity: 1, UnitPrice: dbtest.Price("4800")}},
		PaymentMethod:   enums.PaymentMethodCash,
		ShippingAddress: address(),
	})
	requireCode(t, err, pkgerrors.CodeValidation)
	require.Zero(t, f.count(t, &models.Order{}, ""))
}

func TestCheckoutValidation(t *testing.T) {
	f := newFixture(t, nil)
	p := dbtest.SeedProduct(t, f.conn, "Stool", "800", func(p *models.Product) {
		p.IsActive = false
	})
	cashItem := Item{ProductID: uuid.New(), Variant: enums.PricingVariantCash, Quantity: 1}

	cases := map[string]struct {
		input CheckoutInput
		code  pkgerrors.Code
	}{
		"no items": {
			input: CheckoutInput{PaymentMethod: enums.PaymentMethodCash, ShippingAddress: address()},
			code:  pkgerrors.CodeValidation,
		},
		"zero quantity": {
			input: CheckoutInput{Items: []Item{{ProductID: uuid.New(), Variant: enums.PricingVariantCash}}, PaymentMethod: enums.PaymentMethodCash, ShippingAddress: address()},
			code:  pkgerrors.CodeValidation,
		},
		"blank address": {
			input: CheckoutInput{Items: []Item{cashItem}, PaymentMethod: enums.PaymentMethodCash, ShippingAddress: types.ShippingAddress{RecipientName: "  "}},
			code:  pkgerrors.CodeValidation,
		},
		"variant payment mismatch": {
			input: CheckoutInput{Items: []Item{{ProductID: uuid.New(), Variant: enums.PricingVariantInstallment, Quantity: 1}}, PaymentMethod: enums.PaymentMethodCash, ShippingAddress: address()},
			code:  pkgerrors.CodeValidation,
		},
		"periods out of range": {
			input: CheckoutInput{Items: []Item{{ProductID: uuid.New(), Variant: enums.PricingVariantInstallment, Quantity: 1}}, PaymentMethod: enums.PaymentMethodInstallment, InstallmentPeriods: 13, ShippingAddress: address()},
			code:  pkgerrors.CodeValidation,
		},
		"duplicate lines": {
			input: CheckoutInput{Items: []Item{cashItem, cashItem}, PaymentMethod: enums.PaymentMethodCash, ShippingAddress: address()},
			code:  pkgerrors.CodeValidation,
		},
		"inactive product": {
			input: CheckoutInput{Items: []Item{{ProductID: p.ID, Variant: enums.PricingVariantCash, Quantity: 1}}, PaymentMethod: enums.PaymentMethodCash, ShippingAddress: address()},
			code:  pkgerrors.CodeNotFound,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			tc.input.CustomerID = uuid.New()
			_, err := f.svc.Checkout(context.Background(), tc.input)
			requireCode(t, err, tc.code)
		})
	}
}

type failingScheduleRepo struct {
	Repository
}

func (r failingScheduleRepo) WithTx(tx *gorm.DB) Repository {
	return failingScheduleRepo{Repository: r.Repository.WithTx(tx)}
}

func (failingScheduleRepo) CreateSchedule(context.Context, []models.InstallmentEntry) error {
	return errors.New("disk full")
}

func TestCheckoutRollsBackOnScheduleFailure(t *testing.T) {
	f := newFixture(t, func(r Repository) Repository { return failingScheduleRepo{Repository: r} })
	ctx := context.Background()
	customerID := uuid.New()
	p := dbtest.SeedProduct(t, f.conn, "Bed frame", "9000", func(p *models.Product) {
		p.InstallmentPrice = dbtest.Price("9900")
	})
	f.addToCart(t, customerID, p.ID, enums.PricingVariantInstallment, 1, "9900")

	_, err := f.svc.Checkout(ctx, CheckoutInput{
		CustomerID:         customerID,
		Items:              []Item{{ProductID: p.ID, Variant: enums.PricingVariantInstallment, Quantity: 1}},
		PaymentMethod:      enums.PaymentMethodInstallment,
		InstallmentPeriods: 4,
		ShippingAddress:    address(),
	})
	requireCode(t, err, pkgerrors.CodeDependency)

	require.Zero(t, f.count(t, &models.Order{}, ""))
	require.Zero(t, f.count(t, &models.OrderDetail{}, ""))
	require.Zero(t, f.count(t, &models.OutboxEvent{}, ""))
	items, err := f.cart.ListLines(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestCreateAdHocUsesTrustedPricesAndKeepsCart(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	customer := dbtest.SeedCustomer(t, f.conn, "buyer@example.com")
	p := dbtest.SeedProduct(t, f.conn, "Dining set", "25000")
	f.addToCart(t, customer.ID, p.ID, enums.PricingVariantCash, 1, "25000")

	order, err := f.svc.CreateAdHoc(ctx, AdHocInput{
		CheckoutInput: CheckoutInput{
			CustomerID:      customer.ID,
			Items:           []Item{{ProductID: p.ID, Variant: enums.PricingVariantCash, Quantity: 1, UnitPrice: dbtest.Price("22000")}},
			PaymentMethod:   enums.PaymentMethodCash,
			ShippingAddress: address(),
		},
		Actor: admin,
	})
	require.NoError(t, err)
	require.True(t, order.TotalAmount.Equal(decimal.NewFromInt(22000)))

	items, err := f.cart.ListLines(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, err = f.svc.CreateAdHoc(ctx, AdHocInput{
		CheckoutInput: CheckoutInput{
			CustomerID:      uuid.New(),
			Items:           []Item{{ProductID: p.ID, Variant: enums.PricingVariantCash, Quantity: 1, UnitPrice: dbtest.Price("22000")}},
			PaymentMethod:   enums.PaymentMethodCash,
			ShippingAddress: address(),
		},
		Actor: admin,
	})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.CreateAdHoc(ctx, AdHocInput{Actor: Actor{UserID: customer.ID, Role: enums.RoleCustomer}})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestCreateAdHocRejectsUnusableTrustedPrices(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	customer := dbtest.SeedCustomer(t, f.conn, "buyer@example.com")
	p := dbtest.SeedProduct(t, f.conn, "Dining set", "25000")

	for _, price := range []string{"0", "-1", "22000.005"} {
		_, err := f.svc.CreateAdHoc(ctx, AdHocInput{
			CheckoutInput: CheckoutInput{
				CustomerID:      customer.ID,
				Items:           []Item{{ProductID: p.ID, Variant: enums.PricingVariantCash, Quantity: 1, UnitPrice: dbtest.Price(price)}},
				PaymentMethod:   enums.PaymentMethodCash,
				ShippingAddress: address(),
			},
			Actor: admin,
		})
		requireCode(t, err, pkgerrors.CodeValidation)
	}
	require.Zero(t, f.count(t, &models.Order{}, ""))

	order, err := f.svc.CreateAdHoc(ctx, AdHocInput{
		CheckoutInput: CheckoutInput{
			CustomerID:      customer.ID,
			Items:           []Item{{ProductID: p.ID, Variant: enums.PricingVariantCash, Quantity: 1, UnitPrice: dbtest.Price("21999.50")}},
			PaymentMethod:   enums.PaymentMethodCash,
			ShippingAddress: address(),
		},
		Actor: admin,
	})
	require.NoError(t, err)
	require.Equal(t, "21999.50", order.TotalAmount.StringFixed(2))
}

func TestApproveFiresHookOnlyOnChange(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	order := f.pendingCashOrder(t, uuid.New())

	res, err := f.svc.Approve(ctx, order.ID, admin)
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, enums.OrderStatusPending, res.From)
	require.Equal(t, enums.OrderStatusAwaitingPayment, res.Order.Status)
	require.Equal(t, 1, f.hook.count())
	require.Equal(t, enums.OrderStatusAwaitingPayment, f.hook.calls[0].To)

	res, err = f.svc.Approve(ctx, order.ID, admin)
	require.NoError(t, err)
	require.False(t, res.Changed)
	require.Equal(t, 1, f.hook.count())
	require.EqualValues(t, 1, f.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderStatusChanged))
}

// racingRepo lets a competing writer move the order to winner just before
// the caller's compare-and-swap, which then reports no row updated.
type racingRepo struct {
	Repository
	winner enums.OrderStatus
}

func (r racingRepo) WithTx(tx *gorm.DB) Repository {
	return racingRepo{Repository: r.Repository.WithTx(tx), winner: r.winner}
}

func (r racingRepo) CompareAndSetStatus(ctx context.Context, orderID uuid.UUID, from, _ enums.OrderStatus, _ *string) (bool, error) {
	if _, err := r.Repository.CompareAndSetStatus(ctx, orderID, from, r.winner, nil); err != nil {
		return false, err
	}
	return false, nil
}

func TestApproveLostRaceToSameStatusIsUnchanged(t *testing.T) {
	f := newFixture(t, func(r Repository) Repository {
		return racingRepo{Repository: r, winner: enums.OrderStatusAwaitingPayment}
	})
	order := f.pendingCashOrder(t, uuid.New())

	res, err := f.svc.Approve(context.Background(), order.ID, admin)
	require.NoError(t, err)
	require.False(t, res.Changed)
	require.Equal(t, enums.OrderStatusAwaitingPayment, res.Order.Status)
	require.Zero(t, f.hook.count())
	require.Zero(t, f.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderStatusChanged))
}

func TestApproveLostRaceToCancelIsConflict(t *testing.T) {
	f := newFixture(t, func(r Repository) Repository {
		return racingRepo{Repository: r, winner: enums.OrderStatusCancelledByCustomer}
	})
	order := f.pendingCashOrder(t, uuid.New())

	_, err := f.svc.Approve(context.Background(), order.ID, admin)
	requireCode(t, err, pkgerrors.CodeStateConflict)
	require.Zero(t, f.hook.count())
}

func TestCustomerCancel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := uuid.New()

	t.Run("pending order is cancelled", func(t *testing.T) {
		order := f.pendingCashOrder(t, owner)
		res, err := f.svc.CancelByCustomer(ctx, owner, order.ID)
		require.NoError(t, err)
		require.True(t, res.Changed)
		require.Equal(t, enums.OrderStatusCancelledByCustomer, res.Order.Status)
	})

	t.Run("other customer is forbidden", func(t *testing.T) {
		order := f.pendingCashOrder(t, owner)
		_, err := f.svc.CancelByCustomer(ctx, uuid.New(), order.ID)
		requireCode(t, err, pkgerrors.CodeForbidden)
	})

	t.Run("awaiting payment is rejected", func(t *testing.T) {
		order := f.pendingCashOrder(t, owner)
		_, err := f.svc.Approve(ctx, order.ID, admin)
		require.NoError(t, err)
		_, err = f.svc.CancelByCustomer(ctx, owner, order.ID)
		requireCode(t, err, pkgerrors.CodeStateConflict)
	})

	t.Run("missing order", func(t *testing.T) {
		_, err := f.svc.CancelByCustomer(ctx, owner, uuid.New())
		requireCode(t, err, pkgerrors.CodeNotFound)
	})
}

func TestAdvanceWalksChainToCompleted(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	order := f.pendingCashOrder(t, uuid.New())

	want := []enums.OrderStatus{
		enums.OrderStatusAwaitingPayment,
		enums.OrderStatusApproved,
		enums.OrderStatusWaitingForDelivery,
		enums.OrderStatusCompleted,
	}
	for _, status := range want {
		res, err := f.svc.Advance(ctx, order.ID, admin)
		require.NoError(t, err)
		require.Equal(t, status, res.To)
	}

	_, err := f.svc.Advance(ctx, order.ID, admin)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = f.svc.SetStatus(ctx, SetStatusInput{OrderID: order.ID, Status: enums.OrderStatusCancelled, Actor: admin})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	require.Equal(t, len(want), f.hook.count())
}

func TestSetStatusRules(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	order := f.pendingCashOrder(t, uuid.New())

	_, err := f.svc.SetStatus(ctx, SetStatusInput{OrderID: order.ID, Status: "shipped", Actor: admin})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.SetStatus(ctx, SetStatusInput{OrderID: order.ID, Status: enums.OrderStatusCancelledByCustomer, Actor: admin})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	reason := "out of stock"
	_, err = f.svc.SetStatus(ctx, SetStatusInput{OrderID: order.ID, Status: enums.OrderStatusApproved, CancelReason: &reason, Actor: admin})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.SetStatus(ctx, SetStatusInput{
		OrderID:        order.ID,
		Status:         enums.OrderStatusApproved,
		ExpectedStatus: []enums.OrderStatus{enums.OrderStatusAwaitingPayment},
		Actor:          admin,
	})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = f.svc.SetStatus(ctx, SetStatusInput{OrderID: order.ID, Status: enums.OrderStatusApproved, Actor: Actor{UserID: uuid.New(), Role: enums.RoleCustomer}})
	requireCode(t, err, pkgerrors.CodeForbidden)

	res, err := f.svc.SetStatus(ctx, SetStatusInput{OrderID: order.ID, Status: enums.OrderStatusCancelled, CancelReason: &reason, Actor: admin})
	require.NoError(t, err)
	require.True(t, res.Changed)

	stored, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, stored.Status)
	require.NotNil(t, stored.CancelReason)
	require.Equal(t, reason, *stored.CancelReason)

	_, err = f.svc.SetStatus(ctx, SetStatusInput{OrderID: order.ID, Status: enums.OrderStatusApproved, Actor: admin})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestRejectRecordsReason(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	order := f.pendingCashOrder(t, uuid.New())
	reason := "  address outside delivery area "

	res, err := f.svc.Reject(ctx, order.ID, &reason, admin)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, res.Order.Status)
	require.NotNil(t, res.Order.CancelReason)
	require.Equal(t, "address outside delivery area", *res.Order.CancelReason)
}

func TestMarkInstallmentPaid(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	order := f.pendingInstallmentOrder(t, uuid.New())

	_, err := f.svc.MarkInstallmentPaid(ctx, order.ID, 1, admin)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = f.svc.Approve(ctx, order.ID, admin)
	require.NoError(t, err)

	res, err := f.svc.MarkInstallmentPaid(ctx, order.ID, 1, admin)
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, enums.InstallmentStatusPaid, res.Entry.Status)
	require.NotNil(t, res.Entry.PaidAt)

	res, err = f.svc.MarkInstallmentPaid(ctx, order.ID, 1, admin)
	require.NoError(t, err)
	require.False(t, res.Changed)
	require.EqualValues(t, 1, f.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventInstallmentPaid))

	_, err = f.svc.MarkInstallmentPaid(ctx, order.ID, 9, admin)
	requireCode(t, err, pkgerrors.CodeNotFound)

	cash := f.pendingCashOrder(t, uuid.New())
	_, err = f.svc.MarkInstallmentPaid(ctx, cash.ID, 1, admin)
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestListAndOwnership(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := uuid.New()
	first := f.pendingCashOrder(t, owner)
	f.pendingCashOrder(t, owner)
	f.pendingCashOrder(t, uuid.New())

	page, err := f.svc.List(ctx, ListInput{CustomerID: &owner, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotEmpty(t, page.NextCursor)

	next, err := f.svc.List(ctx, ListInput{CustomerID: &owner, Limit: 1, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	require.Empty(t, next.NextCursor)
	require.NotEqual(t, page.Items[0].ID, next.Items[0].ID)

	_, err = f.svc.GetForCustomer(ctx, owner, first.ID)
	require.NoError(t, err)
	_, err = f.svc.GetForCustomer(ctx, uuid.New(), first.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)

	bad := enums.OrderStatus("lost")
	_, err = f.svc.List(ctx, ListInput{Status: &bad})
	requireCode(t, err, pkgerrors.CodeValidation)
}
