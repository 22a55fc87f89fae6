package enums

import (
	"fmt"
	"slices"
)

// PaymentMethod is how a customer settles an order: in full, or over a
// monthly installment schedule.
type PaymentMethod string

const (
	PaymentMethodCash        PaymentMethod = "cash"
	PaymentMethodInstallment PaymentMethod = "installment"
)

var paymentMethods = []PaymentMethod{PaymentMethodCash, PaymentMethodInstallment}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return slices.Contains(paymentMethods, p) }

// HasSchedule reports whether orders paid this way carry installment rows.
func (p PaymentMethod) HasSchedule() bool { return p == PaymentMethodInstallment }

// ParsePaymentMethod accepts the lower-case wire value.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	p := PaymentMethod(value)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid payment method %q", value)
	}
	return p, nil
}
