package cart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/baanfurniture/storefront-backend/api/middleware"
	"github.com/baanfurniture/storefront-backend/internal/cart"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
)

type stubCartService struct {
	upserted []cart.UpsertInput
	removed  []cart.Key
	cleared  int
	customer uuid.UUID
}

func (s *stubCartService) List(_ context.Context, customerID uuid.UUID) (*cart.View, error) {
	s.customer = customerID
	return &cart.View{Items: []cart.LineView{}}, nil
}

func (s *stubCartService) Upsert(ctx context.Context, customerID uuid.UUID, input cart.UpsertInput) (*cart.View, error) {
	s.upserted = append(s.upserted, input)
	return s.List(ctx, customerID)
}

func (s *stubCartService) Remove(ctx context.Context, customerID uuid.UUID, key cart.Key) (*cart.View, error) {
	s.removed = append(s.removed, key)
	return s.List(ctx, customerID)
}

func (s *stubCartService) Clear(_ context.Context, customerID uuid.UUID) error {
	s.cleared++
	s.customer = customerID
	return nil
}

func withCustomer(req *http.Request, id uuid.UUID) *http.Request {
	ctx := middleware.WithUserID(req.Context(), id.String())
	ctx = middleware.WithRole(ctx, enums.RoleCustomer)
	return req.WithContext(ctx)
}

func TestUpsertItemParsesPayload(t *testing.T) {
	svc := &stubCartService{}
	customerID := uuid.New()
	productID := uuid.New()
	body := `{"product_id":"` + productID.String() + `","pricing_variant":"cashPromo","quantity":2,"mode":"set","unit_price":"1000"}`

	req := withCustomer(httptest.NewRequest(http.MethodPut, "/cart/items", strings.NewReader(body)), customerID)
	resp := httptest.NewRecorder()
	UpsertItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.upserted) != 1 {
		t.Fatalf("expected one upsert, got %d", len(svc.upserted))
	}
	got := svc.upserted[0]
	if got.ProductID != productID || got.Variant != enums.PricingVariantCashPromo || got.Quantity != 2 || got.Mode != cart.ModeSet {
		t.Fatalf("unexpected input %+v", got)
	}
	if got.UnitPrice == nil || got.UnitPrice.String() != "1000" {
		t.Fatalf("expected unit price 1000, got %v", got.UnitPrice)
	}
	if svc.customer != customerID {
		t.Fatalf("expected customer from token")
	}
}

func TestUpsertItemPassesShortPeriodsThroughForClamping(t *testing.T) {
	svc := &stubCartService{}
	body := `{"product_id":"` + uuid.NewString() + `","pricing_variant":"installment","quantity":1,"installment_periods":1}`
	req := withCustomer(httptest.NewRequest(http.MethodPut, "/cart/items", strings.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	UpsertItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.upserted) != 1 || svc.upserted[0].Periods != 1 {
		t.Fatalf("expected periods 1 handed to the service, got %+v", svc.upserted)
	}
}

func TestUpsertItemRejectsUnknownVariant(t *testing.T) {
	svc := &stubCartService{}
	body := `{"product_id":"` + uuid.NewString() + `","pricing_variant":"layaway","quantity":1}`
	req := withCustomer(httptest.NewRequest(http.MethodPut, "/cart/items", strings.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	UpsertItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if len(svc.upserted) != 0 {
		t.Fatalf("service should not be called")
	}
}

func TestRemoveItemAndClear(t *testing.T) {
	svc := &stubCartService{}
	customerID := uuid.New()
	productID := uuid.New()

	body := `{"product_id":"` + productID.String() + `","pricing_variant":"installment"}`
	req := withCustomer(httptest.NewRequest(http.MethodDelete, "/cart/items", strings.NewReader(body)), customerID)
	resp := httptest.NewRecorder()
	RemoveItem(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(svc.removed) != 1 || svc.removed[0] != (cart.Key{ProductID: productID, Variant: enums.PricingVariantInstallment}) {
		t.Fatalf("unexpected removals %+v", svc.removed)
	}

	req = withCustomer(httptest.NewRequest(http.MethodDelete, "/cart", nil), customerID)
	resp = httptest.NewRecorder()
	Clear(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if svc.cleared != 1 {
		t.Fatalf("expected clear to be called")
	}
}

func TestGetRequiresUser(t *testing.T) {
	resp := httptest.NewRecorder()
	Get(&stubCartService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/cart", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
