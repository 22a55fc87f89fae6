package notifications

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baanfurniture/storefront-backend/internal/orders"
	"github.com/baanfurniture/storefront-backend/pkg/db/models"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
	"github.com/baanfurniture/storefront-backend/pkg/logger"
	"github.com/baanfurniture/storefront-backend/pkg/metrics"
)

const defaultSendTimeout = 10 * time.Second

type customerReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// PaymentDueParams wires a PaymentDueNotifier.
type PaymentDueParams struct {
	Customers   customerReader
	Mailer      Mailer
	From        string
	SendTimeout time.Duration
	Metrics     *metrics.OrderMetrics
	Logger      *logger.Logger
}

// PaymentDueNotifier emails the customer once an order reaches
// awaiting_payment. Delivery runs detached from the request; failures are
// logged and counted, never returned.
type PaymentDueNotifier struct {
	customers customerReader
	mailer    Mailer
	from      string
	timeout   time.Duration
	metrics   *metrics.OrderMetrics
	logg      *logger.Logger
	wg        sync.WaitGroup
}

var _ orders.TransitionHook = (*PaymentDueNotifier)(nil)

func NewPaymentDueNotifier(params PaymentDueParams) (*PaymentDueNotifier, error) {
	if params.Customers == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	timeout := params.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &PaymentDueNotifier{
		customers: params.Customers,
		mailer:    params.Mailer,
		from:      params.From,
		timeout:   timeout,
		metrics:   params.Metrics,
		logg:      logg,
	}, nil
}

func (n *PaymentDueNotifier) OnTransition(ctx context.Context, t orders.Transition) {
	if t.To != enums.OrderStatusAwaitingPayment {
		return
	}
	order := t.Order
	detached := context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		sendCtx, cancel := context.WithTimeout(detached, n.timeout)
		defer cancel()
		if err := n.send(sendCtx, order); err != nil {
			n.metrics.IncNotificationFailure()
			n.logg.Error(n.logg.WithOrderID(sendCtx, order.ID.String()), "payment due email failed", err)
		}
	}()
}

// Wait blocks until in-flight sends finish or ctx is done.
func (n *PaymentDueNotifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *PaymentDueNotifier) send(ctx context.Context, order models.Order) error {
	customer, err := n.customers.FindByID(ctx, order.CustomerID)
	if err != nil {
		return fmt.Errorf("load customer %s: %w", order.CustomerID, err)
	}
	msg := PaymentDueMessage(order, *customer)
	msg.From = n.from
	if err := n.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// PaymentDueMessage composes the payment request for order. Cash orders quote
// the total; installment orders quote the monthly amount and period count.
func PaymentDueMessage(order models.Order, customer models.Customer) Message {
	ref := shortRef(order.ID)
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", customer.FullName())
	fmt.Fprintf(&b, "Your order %s has been approved and is awaiting payment.\n\n", ref)
	switch order.PaymentMethod {
	case enums.PaymentMethodInstallment:
		fmt.Fprintf(&b, "Monthly payment: %s %s\n", order.MonthlyPayment.StringFixed(2), order.Currency)
		fmt.Fprintf(&b, "Number of payments: %d\n", order.InstallmentPeriods)
		fmt.Fprintf(&b, "Order total: %s %s\n", order.TotalAmount.StringFixed(2), order.Currency)
	default:
		fmt.Fprintf(&b, "Amount due: %s %s\n", order.TotalAmount.StringFixed(2), order.Currency)
	}
	b.WriteString("\nThank you for shopping with us.\n")

	return Message{
		To:      customer.Email,
		Subject: fmt.Sprintf("Payment due for order %s", ref),
		Body:    b.String(),
	}
}

func shortRef(id uuid.UUID) string {
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

// InstallmentReminderMessage composes the heads-up sent ahead of a scheduled
// installment.
func InstallmentReminderMessage(order models.Order, entry models.InstallmentEntry, customer models.Customer) Message {
	ref := shortRef(order.ID)
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", customer.FullName())
	fmt.Fprintf(&b, "Payment %d of %d for order %s is due on %s.\n\n",
		entry.InstallmentNumber, order.InstallmentPeriods, ref, entry.DueDate.Format("2 January 2006"))
	fmt.Fprintf(&b, "Amount due: %s %s\n", entry.Amount.StringFixed(2), order.Currency)
	b.WriteString("\nIf you have already paid, please ignore this message.\n")

	return Message{
		To:      customer.Email,
		Subject: fmt.Sprintf("Installment %d due for order %s", entry.InstallmentNumber, ref),
		Body:    b.String(),
	}
}
