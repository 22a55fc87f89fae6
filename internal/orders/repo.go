package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/baanfurniture/storefront-backend/pkg/db/models"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
)

type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository builds an orders repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db, now: time.Now}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, now: r.now}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if order == nil {
		return errors.New("order is required")
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) CreateDetails(ctx context.Context, details []models.OrderDetail) error {
	if len(details) == 0 {
		return errors.New("order details are required")
	}
	return r.db.WithContext(ctx).Create(&details).Error
}

func (r *repository) CreateSchedule(ctx context.Context, entries []models.InstallmentEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

// FindHeader loads the order row without details or schedule.
func (r *repository) FindHeader(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindWithRelations(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Details", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Preload("Schedule", func(db *gorm.DB) *gorm.DB {
			return db.Order("installment_number ASC")
		}).
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns order headers newest first using keyset pagination.
func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.CustomerID != nil {
		q = q.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		q = q.Where("order_status = ?", *filter.Status)
	}
	if filter.Cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []models.Order
	if err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CompareAndSetStatus moves the order from -> to only if it is still in from.
// It reports false when another writer got there first.
func (r *repository) CompareAndSetStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, cancelReason *string) (bool, error) {
	updates := map[string]any{
		"order_status": to,
		"updated_at":   r.now().UTC(),
	}
	if cancelReason != nil {
		updates["cancel_reason"] = *cancelReason
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND order_status = ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) FindInstallment(ctx context.Context, orderID uuid.UUID, number int) (*models.InstallmentEntry, error) {
	var entry models.InstallmentEntry
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND installment_number = ?", orderID, number).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarkInstallmentPaid flips an unpaid entry to paid. Paid entries are left
// untouched and reported as false.
func (r *repository) MarkInstallmentPaid(ctx context.Context, orderID uuid.UUID, number int, paidAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InstallmentEntry{}).
		Where("order_id = ? AND installment_number = ? AND payment_status = ?", orderID, number, enums.InstallmentStatusUnpaid).
		Updates(map[string]any{
			"payment_status": enums.InstallmentStatusPaid,
			"payment_date":   paidAt,
			"updated_at":     r.now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListDueInstallments returns unpaid entries due in [from, to) whose order is
// still collecting payments, ordered by due date.
func (r *repository) ListDueInstallments(ctx context.Context, from, to time.Time) ([]DueInstallment, error) {
	var entries []models.InstallmentEntry
	err := r.db.WithContext(ctx).
		Model(&models.InstallmentEntry{}).
		Select("installment_schedules.*").
		Joins("JOIN orders ON orders.id = installment_schedules.order_id").
		Where("installment_schedules.payment_status = ?", enums.InstallmentStatusUnpaid).
		Where("installment_schedules.payment_due_date >= ? AND installment_schedules.payment_due_date < ?", from, to).
		Where("orders.order_status IN ?", payableStatuses).
		Order("installment_schedules.payment_due_date ASC").
		Order("installment_schedules.installment_number ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(entries))
	seen := make(map[uuid.UUID]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.OrderID]; ok {
			continue
		}
		seen[e.OrderID] = struct{}{}
		ids = append(ids, e.OrderID)
	}
	var headers []models.Order
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&headers).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Order, len(headers))
	for _, o := range headers {
		byID[o.ID] = o
	}

	out := make([]DueInstallment, 0, len(entries))
	for _, e := range entries {
		order, ok := byID[e.OrderID]
		if !ok {
			continue
		}
		out = append(out, DueInstallment{Order: order, Entry: e})
	}
	return out, nil
}
