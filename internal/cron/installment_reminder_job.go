package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/baanfurniture/storefront-backend/internal/notifications"
	"github.com/baanfurniture/storefront-backend/internal/orders"
	"github.com/baanfurniture/storefront-backend/pkg/db/models"
	"github.com/baanfurniture/storefront-backend/pkg/logger"
	"github.com/baanfurniture/storefront-backend/pkg/metrics"
)

const defaultReminderLeadDays = 3

type dueInstallmentReader interface {
	ListDueInstallments(ctx context.Context, from, to time.Time) ([]orders.DueInstallment, error)
}

type customerReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type InstallmentReminderJobParams struct {
	Logger       *logger.Logger
	Installments dueInstallmentReader
	Customers    customerReader
	Mailer       notifications.Mailer
	From         string
	LeadDays     int
	// Ledger dedupes reminders across runs. Defaults to an in-process ledger.
	Ledger       ReminderLedger
	Metrics      *metrics.CronJobMetrics
}

// NewInstallmentReminderJob emails customers whose unpaid installment falls
// due LeadDays from today. Each run covers exactly one calendar day, and the
// ledger keeps a rerun on the same day from mailing an entry again.
func NewInstallmentReminderJob(params InstallmentReminderJobParams) (Job, error) {
	if params.Installments == nil {
		return nil, fmt.Errorf("installment reader required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	lead := params.LeadDays
	if lead <= 0 {
		lead = defaultReminderLeadDays
	}
	var ledger ReminderLedger = NewMemoryReminderLedger()
	if params.Ledger != nil {
		ledger = params.Ledger
	}
	return &installmentReminderJob{
		logg:         logg,
		installments: params.Installments,
		customers:    params.Customers,
		mailer:       params.Mailer,
		from:         params.From,
		leadDays:     lead,
		ledger:       ledger,
		metrics:      params.Metrics,
		now:          time.Now,
	}, nil
}

type installmentReminderJob struct {
	logg         *logger.Logger
	installments dueInstallmentReader
	customers    customerReader
	mailer       notifications.Mailer
	from         string
	leadDays     int
	ledger       ReminderLedger
	metrics      *metrics.CronJobMetrics
	now          func() time.Time
}

func (j *installmentReminderJob) Name() string { return "installment-reminders" }

func (j *installmentReminderJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, j.leadDays)
	end := start.AddDate(0, 0, 1)

	due, err := j.installments.ListDueInstallments(ctx, start, end)
	if err != nil {
		return fmt.Errorf("list due installments: %w", err)
	}

	var errs []error
	sent, skipped := 0, 0
	customers := make(map[uuid.UUID]*models.Customer)
	for _, item := range due {
		key := reminderKey(item)
		first, err := j.ledger.Claim(ctx, key)
		if err != nil {
			j.metrics.IncReminder(false)
			errs = append(errs, err)
			continue
		}
		if !first {
			skipped++
			continue
		}
		if err := j.remind(ctx, item, customers); err != nil {
			j.metrics.IncReminder(false)
			err = multierr.Append(err, j.ledger.Forget(ctx, key))
			errs = append(errs, fmt.Errorf("order %s installment %d: %w", item.Order.ID, item.Entry.InstallmentNumber, err))
			continue
		}
		j.metrics.IncReminder(true)
		sent++
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"due_date": start.Format("2006-01-02"),
		"due":      len(due),
		"sent":     sent,
		"skipped":  skipped,
	}), "installment reminders complete")
	return multierr.Combine(errs...)
}

func (j *installmentReminderJob) remind(ctx context.Context, item orders.DueInstallment, cache map[uuid.UUID]*models.Customer) error {
	customer, ok := cache[item.Order.CustomerID]
	if !ok {
		loaded, err := j.customers.FindByID(ctx, item.Order.CustomerID)
		if err != nil {
			return fmt.Errorf("load customer: %w", err)
		}
		cache[item.Order.CustomerID] = loaded
		customer = loaded
	}
	msg := notifications.InstallmentReminderMessage(item.Order, item.Entry, *customer)
	msg.From = j.from
	return j.mailer.Send(ctx, msg)
}

// reminderKey identifies one reminder: the order, the installment and the
// due date it was sent for.
func reminderKey(item orders.DueInstallment) string {
	return fmt.Sprintf("%s:%d:%s", item.Order.ID, item.Entry.InstallmentNumber, item.Entry.DueDate.UTC().Format("2006-01-02"))
}
