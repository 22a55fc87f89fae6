package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/baanfurniture/storefront-backend/internal/cart"
	"github.com/baanfurniture/storefront-backend/internal/pricing"
	"github.com/baanfurniture/storefront-backend/pkg/db/models"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
	pkgerrors "github.com/baanfurniture/storefront-backend/pkg/errors"
	"github.com/baanfurniture/storefront-backend/pkg/outbox"
	"github.com/baanfurniture/storefront-backend/pkg/outbox/payloads"
)

type assembleOptions struct {
	trustedPrices bool
	consumeCart   bool
	actor         Actor
}

// Checkout turns the submitted cart lines into an order. Prices are
// re-resolved server side and the purchased lines leave the cart in the same
// transaction.
func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*models.Order, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	return s.assemble(ctx, input, assembleOptions{
		consumeCart: true,
		actor:       Actor{UserID: input.CustomerID, Role: enums.RoleCustomer},
	})
}

// CreateAdHoc builds an order on behalf of a customer using the prices staff
// supplied.
func (s *service) CreateAdHoc(ctx context.Context, input AdHocInput) (*models.Order, error) {
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	for i, item := range input.Items {
		if err := validateTrustedPrice(i, item.UnitPrice); err != nil {
			return nil, err
		}
	}
	exists, err := s.customers.Exists(ctx, input.CustomerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return s.assemble(ctx, input.CheckoutInput, assembleOptions{
		trustedPrices: true,
		actor:         input.Actor,
	})
}

func (s *service) assemble(ctx context.Context, input CheckoutInput, opts assembleOptions) (*models.Order, error) {
	periods, err := validateCheckout(&input)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(input.Items))
	keys := make([]cart.Key, 0, len(input.Items))
	for _, item := range input.Items {
		ids = append(ids, item.ProductID)
		keys = append(keys, cart.Key{ProductID: item.ProductID, Variant: item.Variant})
	}

	now := s.now().UTC()
	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		products, err := s.products.WithTx(tx).FindByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}

		details := make([]models.OrderDetail, 0, len(input.Items))
		total := decimal.Zero
		for _, item := range input.Items {
			p, ok := products[item.ProductID]
			if !ok || !p.IsActive {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]any{"product_id": item.ProductID.String()})
			}
			price, err := s.linePrice(p, item, periods, opts.trustedPrices)
			if err != nil {
				return err
			}
			lineTotal := price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			total = total.Add(lineTotal)
			details = append(details, models.OrderDetail{
				ProductID:      p.ID,
				ProductName:    p.Name,
				PricingVariant: item.Variant,
				Quantity:       item.Quantity,
				UnitPrice:      price,
				LineTotal:      lineTotal,
				CreatedAt:      now,
			})
		}

		order = &models.Order{
			CustomerID:         input.CustomerID,
			Currency:           enums.CurrencyTHB,
			TotalAmount:        total,
			VATAmount:          VATPortion(total, s.vatRate),
			PaymentMethod:      input.PaymentMethod,
			InstallmentPeriods: periods,
			MonthlyPayment:     decimal.Zero,
			ShippingAddress:    input.ShippingAddress,
			Status:             enums.OrderStatusPending,
			CreatedAt:          now,
			UpdatedAt:          now,
		}

		var schedule []models.InstallmentEntry
		if input.PaymentMethod.HasSchedule() {
			schedule, err = BuildSchedule(total, periods, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build installment schedule")
			}
			order.MonthlyPayment = schedule[0].Amount
		}

		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			return storageErr(err, "create order")
		}
		for i := range details {
			details[i].OrderID = order.ID
		}
		if err := repo.CreateDetails(ctx, details); err != nil {
			return storageErr(err, "create order details")
		}
		for i := range schedule {
			schedule[i].OrderID = order.ID
		}
		if err := repo.CreateSchedule(ctx, schedule); err != nil {
			return storageErr(err, "create installment schedule")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(opts.actor),
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:            order.ID,
				CustomerID:         order.CustomerID,
				PaymentMethod:      order.PaymentMethod,
				TotalAmount:        order.TotalAmount,
				InstallmentPeriods: order.InstallmentPeriods,
				ItemCount:          len(details),
			},
		}); err != nil {
			return storageErr(err, "emit order_created")
		}

		// Cart lines go last so any earlier failure leaves the cart intact.
		if opts.consumeCart {
			if _, err := s.cart.WithTx(tx).DeleteKeys(ctx, input.CustomerID, keys); err != nil {
				return storageErr(err, "remove purchased cart lines")
			}
		}

		order.Details = details
		order.Schedule = schedule
		return nil
	})
	if err != nil {
		return nil, storageErr(err, "create order")
	}

	s.metrics.IncCreated(string(order.PaymentMethod))
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"payment_method": order.PaymentMethod,
		"total_amount":   order.TotalAmount.StringFixed(2),
		"periods":        order.InstallmentPeriods,
	})
	s.logg.Info(logCtx, "order created")
	return order, nil
}

// linePrice returns the unit price to persist for item.
func (s *service) linePrice(p models.Product, item Item, periods int, trusted bool) (decimal.Decimal, error) {
	if trusted {
		return *item.UnitPrice, nil
	}
	resolvedPeriods := periods
	if item.Variant.PaymentMethod() == enums.PaymentMethodCash {
		resolvedPeriods = 0
	}
	resolved, err := pricing.ResolveVariant(pricing.QuadrupleOf(p), item.Variant, resolvedPeriods)
	if err != nil {
		return decimal.Zero, pricing.Classify(err)
	}
	if item.UnitPrice != nil && item.UnitPrice.Sub(resolved.EffectiveUnitPrice).Abs().GreaterThan(s.tolerance) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price has changed, refresh and try again").
			WithDetails(map[string]any{
				"product_id":      p.ID.String(),
				"pricing_variant": item.Variant,
				"submitted_price": item.UnitPrice.String(),
				"current_price":   resolved.EffectiveUnitPrice.String(),
			})
	}
	return resolved.EffectiveUnitPrice, nil
}

// validateTrustedPrice checks a staff-supplied price, which is persisted as
// is: positive and in whole satang.
func validateTrustedPrice(i int, price *decimal.Decimal) error {
	switch {
	case price == nil:
		return pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d]: unit price is required", i)
	case !price.IsPositive():
		return pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d]: unit price must be positive", i)
	case price.Exponent() < -2 && !price.Equal(price.Round(2)):
		return pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d]: unit price has more than 2 decimal places", i)
	}
	return nil
}

// validateCheckout normalizes input in place and returns the period count to
// persist (1 for cash).
func validateCheckout(input *CheckoutInput) (int, error) {
	if len(input.Items) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	if !input.PaymentMethod.IsValid() {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown payment method %q", input.PaymentMethod)
	}

	periods := 1
	if input.PaymentMethod.HasSchedule() {
		periods = input.InstallmentPeriods
		if periods < pricing.MinPeriods || periods > pricing.MaxPeriods {
			return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "installment periods must be between %d and %d", pricing.MinPeriods, pricing.MaxPeriods)
		}
	}

	seen := make(map[cart.Key]struct{}, len(input.Items))
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d]: product id is required", i)
		}
		if !item.Variant.IsValid() {
			return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d]: unknown pricing variant %q", i, item.Variant)
		}
		if item.Variant.PaymentMethod() != input.PaymentMethod {
			return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d]: %s pricing cannot be paid by %s", i, item.Variant, input.PaymentMethod)
		}
		if item.Quantity <= 0 {
			return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d]: quantity must be positive", i)
		}
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d]: unit price must not be negative", i)
		}
		key := cart.Key{ProductID: item.ProductID, Variant: item.Variant}
		if _, dup := seen[key]; dup {
			return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "items[%d]: duplicate product and pricing variant", i)
		}
		seen[key] = struct{}{}
	}

	input.ShippingAddress = input.ShippingAddress.Normalize()
	if input.ShippingAddress.IsEmpty() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}
	return periods, nil
}
