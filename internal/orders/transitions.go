package orders

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/baanfurniture/storefront-backend/pkg/enums"
	pkgerrors "github.com/baanfurniture/storefront-backend/pkg/errors"
	"github.com/baanfurniture/storefront-backend/pkg/outbox"
	"github.com/baanfurniture/storefront-backend/pkg/outbox/payloads"
)

// transitionRequest is the normalized form every status operation funnels
// into. target is resolved lazily so Advance can compute it from the fresh
// row inside the transaction.
type transitionRequest struct {
	orderID  uuid.UUID
	actor    Actor
	target   func(current enums.OrderStatus) (enums.OrderStatus, error)
	reason   *string
	expected []enums.OrderStatus
	owner    *uuid.UUID
}

func fixedTarget(to enums.OrderStatus) func(enums.OrderStatus) (enums.OrderStatus, error) {
	return func(enums.OrderStatus) (enums.OrderStatus, error) { return to, nil }
}

func (s *service) Approve(ctx context.Context, orderID uuid.UUID, actor Actor) (*TransitionResult, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return s.transition(ctx, transitionRequest{
		orderID:  orderID,
		actor:    actor,
		target:   fixedTarget(enums.OrderStatusAwaitingPayment),
		expected: []enums.OrderStatus{enums.OrderStatusPending},
	})
}

func (s *service) Reject(ctx context.Context, orderID uuid.UUID, reason *string, actor Actor) (*TransitionResult, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return s.transition(ctx, transitionRequest{
		orderID:  orderID,
		actor:    actor,
		target:   fixedTarget(enums.OrderStatusCancelled),
		reason:   normalizeReason(reason),
		expected: []enums.OrderStatus{enums.OrderStatusPending},
	})
}

// Advance moves the order one step along the fulfilment chain.
func (s *service) Advance(ctx context.Context, orderID uuid.UUID, actor Actor) (*TransitionResult, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return s.transition(ctx, transitionRequest{
		orderID: orderID,
		actor:   actor,
		target: func(current enums.OrderStatus) (enums.OrderStatus, error) {
			next, ok := NextStatus(current)
			if !ok {
				return "", pkgerrors.Newf(pkgerrors.CodeStateConflict, "order in status %s cannot advance", current).
					WithDetails(map[string]any{"current_status": current})
			}
			return next, nil
		},
	})
}

func (s *service) SetStatus(ctx context.Context, input SetStatusInput) (*TransitionResult, error) {
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown order status %q", input.Status)
	}
	for _, expected := range input.ExpectedStatus {
		if !expected.IsValid() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown expected status %q", expected)
		}
	}
	reason := normalizeReason(input.CancelReason)
	if reason != nil && input.Status != enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancel_reason is only accepted when cancelling")
	}
	return s.transition(ctx, transitionRequest{
		orderID:  input.OrderID,
		actor:    input.Actor,
		target:   fixedTarget(input.Status),
		reason:   reason,
		expected: input.ExpectedStatus,
	})
}

func (s *service) CancelByCustomer(ctx context.Context, customerID, orderID uuid.UUID) (*TransitionResult, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	return s.transition(ctx, transitionRequest{
		orderID: orderID,
		actor:   Actor{UserID: customerID, Role: enums.RoleCustomer},
		target:  fixedTarget(enums.OrderStatusCancelledByCustomer),
		owner:   &customerID,
	})
}

func (s *service) transition(ctx context.Context, req transitionRequest) (*TransitionResult, error) {
	if req.orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	var result TransitionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindHeader(ctx, req.orderID)
		if err != nil {
			return loadErr(err, "order not found", "load order")
		}
		if req.owner != nil && order.CustomerID != *req.owner {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}

		from := order.Status
		to, err := req.target(from)
		if err != nil {
			return err
		}
		result = TransitionResult{Order: order, From: from, To: to}

		if from == to {
			return nil
		}
		if len(req.expected) > 0 && !slices.Contains(req.expected, from) {
			return conflict(from, to, "order is not in an expected status")
		}
		if !CanTransition(req.actor.Role, from, to) {
			return conflict(from, to, "status transition not allowed")
		}

		var reason *string
		if to == enums.OrderStatusCancelled {
			reason = req.reason
		}
		swapped, err := repo.CompareAndSetStatus(ctx, order.ID, from, to, reason)
		if err != nil {
			return storageErr(err, "update order status")
		}
		if !swapped {
			// Lost a race; report based on where the winner left it.
			fresh, err := repo.FindHeader(ctx, order.ID)
			if err != nil {
				return loadErr(err, "order not found", "reload order")
			}
			result.Order = fresh
			result.From = fresh.Status
			if fresh.Status == to {
				return nil
			}
			return conflict(fresh.Status, to, "order status changed concurrently")
		}

		order.Status = to
		order.CancelReason = reason
		order.UpdatedAt = s.now().UTC()
		if err := s.emitStatusChanged(ctx, tx, order, from, req.actor); err != nil {
			return storageErr(err, "emit order_status_changed")
		}
		result.Changed = true
		return nil
	})
	if err != nil {
		return nil, storageErr(err, "transition order")
	}

	logCtx := s.logg.WithOrderID(ctx, req.orderID.String())
	if !result.Changed {
		s.logg.Debug(s.logg.WithField(logCtx, "order_status", result.To), "order status unchanged")
		return &result, nil
	}

	s.metrics.IncTransition(string(result.From), string(result.To))
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"from_status": result.From,
		"to_status":   result.To,
		"actor_role":  req.actor.Role,
	}), "order status changed")

	t := Transition{Order: *result.Order, From: result.From, To: result.To, Actor: req.actor}
	for _, hook := range s.hooks {
		hook.OnTransition(ctx, t)
	}
	return &result, nil
}

func conflict(from, to enums.OrderStatus, msg string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, msg).
		WithDetails(map[string]any{"current_status": from, "requested_status": to})
}

// payableStatuses are the order states in which schedule payments are
// recorded.
var payableStatuses = []enums.OrderStatus{
	enums.OrderStatusAwaitingPayment,
	enums.OrderStatusApproved,
	enums.OrderStatusWaitingForDelivery,
}

// MarkInstallmentPaid records a payment against one schedule entry. Paying
// an already paid entry returns it unchanged.
func (s *service) MarkInstallmentPaid(ctx context.Context, orderID uuid.UUID, number int, actor Actor) (*InstallmentPaidResult, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if number <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "installment number must be positive")
	}

	var result InstallmentPaidResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindHeader(ctx, orderID)
		if err != nil {
			return loadErr(err, "order not found", "load order")
		}
		if !order.PaymentMethod.HasSchedule() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no installment schedule").
				WithDetails(map[string]any{"payment_method": order.PaymentMethod})
		}
		entry, err := repo.FindInstallment(ctx, orderID, number)
		if err != nil {
			return loadErr(err, "installment not found", "load installment")
		}
		result.Entry = entry
		if entry.Status == enums.InstallmentStatusPaid {
			return nil
		}
		if !slices.Contains(payableStatuses, order.Status) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "payments cannot be recorded for a %s order", order.Status).
				WithDetails(map[string]any{"current_status": order.Status})
		}

		paidAt := s.now().UTC()
		marked, err := repo.MarkInstallmentPaid(ctx, orderID, number, paidAt)
		if err != nil {
			return storageErr(err, "mark installment paid")
		}
		if !marked {
			fresh, err := repo.FindInstallment(ctx, orderID, number)
			if err != nil {
				return loadErr(err, "installment not found", "reload installment")
			}
			result.Entry = fresh
			return nil
		}

		entry.Status = enums.InstallmentStatusPaid
		entry.PaidAt = &paidAt
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInstallmentPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         actorRef(actor),
			OccurredAt:    paidAt,
			Data: payloads.InstallmentPaidEvent{
				OrderID:           orderID,
				InstallmentNumber: number,
				Amount:            entry.Amount,
				PaidAt:            paidAt,
			},
		}); err != nil {
			return storageErr(err, "emit installment_paid")
		}
		result.Changed = true
		return nil
	})
	if err != nil {
		return nil, storageErr(err, "mark installment paid")
	}

	if result.Changed {
		s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
			"installment_number": number,
			"amount":             result.Entry.Amount.StringFixed(2),
		}), "installment marked paid")
	}
	return &result, nil
}

