package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/baanfurniture/storefront-backend/internal/pricing"
	"github.com/baanfurniture/storefront-backend/pkg/db/models"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
	pkgerrors "github.com/baanfurniture/storefront-backend/pkg/errors"
)

type stubCartRepo struct {
	incremented []models.CartItem
	set         []models.CartItem
	deleted     []Key
	cleared     bool
	lines       []Line
}

func (s *stubCartRepo) WithTx(*gorm.DB) CartRepository { return s }

func (s *stubCartRepo) Increment(_ context.Context, item models.CartItem) error {
	s.incremented = append(s.incremented, item)
	return nil
}

func (s *stubCartRepo) SetQuantity(_ context.Context, item models.CartItem) error {
	s.set = append(s.set, item)
	return nil
}

func (s *stubCartRepo) Delete(_ context.Context, _ uuid.UUID, key Key) (int64, error) {
	s.deleted = append(s.deleted, key)
	return 1, nil
}

func (s *stubCartRepo) DeleteKeys(_ context.Context, _ uuid.UUID, keys []Key) (int64, error) {
	s.deleted = append(s.deleted, keys...)
	return int64(len(keys)), nil
}

func (s *stubCartRepo) Clear(context.Context, uuid.UUID) error {
	s.cleared = true
	return nil
}

func (s *stubCartRepo) ListLines(context.Context, uuid.UUID) ([]Line, error) {
	return s.lines, nil
}

type stubPrices struct {
	result pricing.Result
	err    error
}

func (s stubPrices) PriceVariant(context.Context, uuid.UUID, enums.PricingVariant, int) (*models.Product, pricing.Result, error) {
	return &models.Product{}, s.result, s.err
}

func newTestService(t *testing.T, repo *stubCartRepo, prices stubPrices) Service {
	t.Helper()
	svc, err := NewService(repo, prices, decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestUpsertIncrementUsesResolvedPrice(t *testing.T) {
	repo := &stubCartRepo{}
	svc := newTestService(t, repo, stubPrices{result: pricing.Result{
		EffectiveUnitPrice: decimal.NewFromInt(1000),
		Variant:            enums.PricingVariantCashPromo,
	}})

	_, err := svc.Upsert(context.Background(), uuid.New(), UpsertInput{
		ProductID: uuid.New(),
		Variant:   enums.PricingVariantCashPromo,
		Quantity:  1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.incremented) != 1 {
		t.Fatalf("expected one increment, got %d", len(repo.incremented))
	}
	got := repo.incremented[0]
	if !got.UnitPrice.Equal(decimal.NewFromInt(1000)) || got.PricingLabel != "Cash promotion" {
		t.Fatalf("unexpected stored item %+v", got)
	}
}

func TestUpsertSetMode(t *testing.T) {
	repo := &stubCartRepo{}
	svc := newTestService(t, repo, stubPrices{result: pricing.Result{EffectiveUnitPrice: decimal.NewFromInt(500)}})

	_, err := svc.Upsert(context.Background(), uuid.New(), UpsertInput{
		ProductID: uuid.New(),
		Variant:   enums.PricingVariantCash,
		Quantity:  4,
		Mode:      ModeSet,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.set) != 1 || repo.set[0].Quantity != 4 {
		t.Fatalf("expected set with quantity 4, got %+v", repo.set)
	}
}

func TestUpsertNonPositiveQuantityDeletes(t *testing.T) {
	repo := &stubCartRepo{}
	svc := newTestService(t, repo, stubPrices{err: pkgerrors.New(pkgerrors.CodeInternal, "should not price")})
	productID := uuid.New()

	for _, qty := range []int{0, -3} {
		if _, err := svc.Upsert(context.Background(), uuid.New(), UpsertInput{
			ProductID: productID,
			Variant:   enums.PricingVariantCash,
			Quantity:  qty,
			Mode:      ModeSet,
		}); err != nil {
			t.Fatalf("qty %d: unexpected error: %v", qty, err)
		}
	}
	if len(repo.deleted) != 2 || len(repo.set) != 0 || len(repo.incremented) != 0 {
		t.Fatalf("expected deletes only, got deleted=%d set=%d inc=%d", len(repo.deleted), len(repo.set), len(repo.incremented))
	}
}

func TestUpsertRejectsStaleClientPrice(t *testing.T) {
	repo := &stubCartRepo{}
	svc := newTestService(t, repo, stubPrices{result: pricing.Result{EffectiveUnitPrice: decimal.NewFromInt(1000)}})
	stale := decimal.NewFromInt(1200)

	_, err := svc.Upsert(context.Background(), uuid.New(), UpsertInput{
		ProductID: uuid.New(),
		Variant:   enums.PricingVariantCash,
		Quantity:  1,
		UnitPrice: &stale,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.incremented) != 0 {
		t.Fatal("expected no write on stale price")
	}
}

func TestUpsertPropagatesPricingErrors(t *testing.T) {
	repo := &stubCartRepo{}
	svc := newTestService(t, repo, stubPrices{err: pricing.Classify(pricing.ErrNoPriceAvailable)})

	_, err := svc.Upsert(context.Background(), uuid.New(), UpsertInput{
		ProductID: uuid.New(),
		Variant:   enums.PricingVariantCash,
		Quantity:  1,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpsertValidatesInput(t *testing.T) {
	svc := newTestService(t, &stubCartRepo{}, stubPrices{})

	if _, err := svc.Upsert(context.Background(), uuid.Nil, UpsertInput{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing customer, got %v", err)
	}
	if _, err := svc.Upsert(context.Background(), uuid.New(), UpsertInput{ProductID: uuid.New(), Variant: "layaway", Quantity: 1}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for bad variant, got %v", err)
	}
}

func TestListBuildsSubtotalAndCurrentPrice(t *testing.T) {
	repo := &stubCartRepo{lines: []Line{
		{
			ProductID:      uuid.New(),
			PricingVariant: enums.PricingVariantCashPromo,
			Quantity:       2,
			UnitPrice:      decimal.NewFromInt(1000),
			IsActive:       true,
			CashPrice:      decimal.NewFromInt(1200),
			CashPromoPrice: func() *decimal.Decimal { v := decimal.NewFromInt(950); return &v }(),
		},
		{
			ProductID:      uuid.New(),
			PricingVariant: enums.PricingVariantCashPromo,
			Quantity:       1,
			UnitPrice:      decimal.NewFromInt(300),
			IsActive:       true,
			CashPrice:      decimal.NewFromInt(400),
		},
	}}
	svc := newTestService(t, repo, stubPrices{})

	view, err := svc.List(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !view.Subtotal.Equal(decimal.NewFromInt(2300)) || view.ItemCount != 3 {
		t.Fatalf("unexpected totals subtotal=%s count=%d", view.Subtotal, view.ItemCount)
	}
	if view.Items[0].CurrentPrice == nil || !view.Items[0].CurrentPrice.Equal(decimal.NewFromInt(950)) {
		t.Fatalf("expected live promo price 950, got %v", view.Items[0].CurrentPrice)
	}
	if view.Items[1].Available {
		t.Fatal("line whose promo ended should be flagged unavailable")
	}
}

func TestClear(t *testing.T) {
	repo := &stubCartRepo{}
	svc := newTestService(t, repo, stubPrices{})
	if err := svc.Clear(context.Background(), uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !repo.cleared {
		t.Fatal("expected repo clear")
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeIncrement {
		t.Fatalf("empty mode should default to increment, got %q %v", m, err)
	}
	if _, err := ParseMode("replace"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
