package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/baanfurniture/storefront-backend/internal/cart"
	product "github.com/baanfurniture/storefront-backend/internal/products"
	"github.com/baanfurniture/storefront-backend/pkg/db"
	"github.com/baanfurniture/storefront-backend/pkg/db/models"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
	pkgerrors "github.com/baanfurniture/storefront-backend/pkg/errors"
	"github.com/baanfurniture/storefront-backend/pkg/logger"
	"github.com/baanfurniture/storefront-backend/pkg/metrics"
	"github.com/baanfurniture/storefront-backend/pkg/outbox"
	"github.com/baanfurniture/storefront-backend/pkg/outbox/payloads"
	"github.com/baanfurniture/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type customerChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service is the order engine: checkout, reads, status changes and
// installment bookkeeping.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*models.Order, error)
	CreateAdHoc(ctx context.Context, input AdHocInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetForCustomer(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Approve(ctx context.Context, orderID uuid.UUID, actor Actor) (*TransitionResult, error)
	Reject(ctx context.Context, orderID uuid.UUID, reason *string, actor Actor) (*TransitionResult, error)
	Advance(ctx context.Context, orderID uuid.UUID, actor Actor) (*TransitionResult, error)
	SetStatus(ctx context.Context, input SetStatusInput) (*TransitionResult, error)
	CancelByCustomer(ctx context.Context, customerID, orderID uuid.UUID) (*TransitionResult, error)
	MarkInstallmentPaid(ctx context.Context, orderID uuid.UUID, number int, actor Actor) (*InstallmentPaidResult, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo           Repository
	Products       product.Reader
	Cart           cart.CartRepository
	Customers      customerChecker
	Tx             txRunner
	Outbox         outboxPublisher
	Hooks          []TransitionHook
	Metrics        *metrics.OrderMetrics
	VATRate        decimal.Decimal
	PriceTolerance decimal.Decimal
	Logger         *logger.Logger
	Now            func() time.Time
}

type service struct {
	repo      Repository
	products  product.Reader
	cart      cart.CartRepository
	customers customerChecker
	tx        txRunner
	outbox    outboxPublisher
	hooks     []TransitionHook
	metrics   *metrics.OrderMetrics
	vatRate   decimal.Decimal
	tolerance decimal.Decimal
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		products:  params.Products,
		cart:      params.Cart,
		customers: params.Customers,
		tx:        params.Tx,
		outbox:    params.Outbox,
		hooks:     params.Hooks,
		metrics:   params.Metrics,
		vatRate:   params.VATRate,
		tolerance: params.PriceTolerance.Abs(),
		logg:      logg,
		now:       now,
	}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindWithRelations(ctx, orderID)
	if err != nil {
		return nil, loadErr(err, "order not found", "load order")
	}
	return order, nil
}

func (s *service) GetForCustomer(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown order status %q", *input.Status)
	}
	filter := ListFilter{
		CustomerID: input.CustomerID,
		Status:     input.Status,
		Limit:      pagination.LimitWithBuffer(input.Limit),
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.Cursor = cursor

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	items, next := pagination.Page(rows, input.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	if items == nil {
		items = []models.Order{}
	}
	return &ListResult{Items: items, NextCursor: next}, nil
}

// loadErr maps a repository read error to not-found or dependency.
func loadErr(err error, notFoundMsg, op string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return storageErr(err, op)
}

// storageErr wraps untyped errors as dependency failures and passes typed
// errors through unchanged.
func storageErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func normalizeReason(reason *string) *string {
	if reason == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*reason)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func actorRef(a Actor) *outbox.ActorRef {
	if a.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: a.UserID, Role: a.Role.String()}
}

func (s *service) emitStatusChanged(ctx context.Context, tx *gorm.DB, order *models.Order, from enums.OrderStatus, actor Actor) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		Data: payloads.OrderStatusChangedEvent{
			OrderID:      order.ID,
			CustomerID:   order.CustomerID,
			From:         from,
			To:           order.Status,
			CancelReason: order.CancelReason,
			ChangedAt:    order.UpdatedAt,
		},
	})
}
