package orders

import (
	"context"

	"github.com/google/uuid"

	"github.com/baanfurniture/storefront-backend/pkg/db/models"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
)

// Actor is the authenticated caller driving an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.RoleAdmin
}

// Transition describes a committed status change handed to hooks.
type Transition struct {
	Order models.Order
	From  enums.OrderStatus
	To    enums.OrderStatus
	Actor Actor
}

// TransitionHook runs after a status change has committed. Hooks never see
// no-op transitions and cannot undo the change.
type TransitionHook interface {
	OnTransition(ctx context.Context, t Transition)
}

// TransitionHookFunc adapts a function to TransitionHook.
type TransitionHookFunc func(ctx context.Context, t Transition)

func (f TransitionHookFunc) OnTransition(ctx context.Context, t Transition) {
	f(ctx, t)
}

// progression is the forward fulfilment chain.
var progression = []enums.OrderStatus{
	enums.OrderStatusPending,
	enums.OrderStatusAwaitingPayment,
	enums.OrderStatusApproved,
	enums.OrderStatusWaitingForDelivery,
	enums.OrderStatusCompleted,
}

func stage(s enums.OrderStatus) int {
	for i, candidate := range progression {
		if candidate == s {
			return i
		}
	}
	return -1
}

// NextStatus returns the status after from in the fulfilment chain.
func NextStatus(from enums.OrderStatus) (enums.OrderStatus, bool) {
	i := stage(from)
	if i < 0 || i+1 >= len(progression) {
		return "", false
	}
	return progression[i+1], true
}

// CanTransition reports whether actor may move an order from -> to. Equal
// statuses are handled by the caller as a no-op before this is consulted.
//
// Customers may only cancel a pending order. Admins may move an order forward
// along the chain or cancel any non-terminal order; they can never send it
// back to pending or record a customer cancellation.
func CanTransition(role enums.Role, from, to enums.OrderStatus) bool {
	if from.IsTerminal() || !to.IsValid() {
		return false
	}
	switch role {
	case enums.RoleCustomer:
		return from == enums.OrderStatusPending && to == enums.OrderStatusCancelledByCustomer
	case enums.RoleAdmin:
		switch to {
		case enums.OrderStatusPending, enums.OrderStatusCancelledByCustomer:
			return false
		case enums.OrderStatusCancelled:
			return true
		}
		return stage(to) > stage(from)
	default:
		return false
	}
}
