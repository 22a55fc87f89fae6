package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/baanfurniture/storefront-backend/pkg/db/models"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
	"github.com/baanfurniture/storefront-backend/pkg/pagination"
)

// Repository defines persistence for orders, their details and schedules.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateDetails(ctx context.Context, details []models.OrderDetail) error
	CreateSchedule(ctx context.Context, entries []models.InstallmentEntry) error
	FindHeader(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindWithRelations(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, error)
	CompareAndSetStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, cancelReason *string) (bool, error)
	FindInstallment(ctx context.Context, orderID uuid.UUID, number int) (*models.InstallmentEntry, error)
	MarkInstallmentPaid(ctx context.Context, orderID uuid.UUID, number int, paidAt time.Time) (bool, error)
	ListDueInstallments(ctx context.Context, from, to time.Time) ([]DueInstallment, error)
}

// DueInstallment pairs an unpaid schedule entry with its order header.
type DueInstallment struct {
	Order models.Order
	Entry models.InstallmentEntry
}

// ListFilter narrows an order listing. Limit should already include the
// look-ahead row used to detect another page.
type ListFilter struct {
	CustomerID *uuid.UUID
	Status     *enums.OrderStatus
	Limit      int
	Cursor     *pagination.Cursor
}
