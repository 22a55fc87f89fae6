package types

import "strings"

// ShippingAddress is the delivery block captured at checkout.
type ShippingAddress struct {
	RecipientName string `json:"recipient_name" validate:"required,max=120"`
	Surname       string `json:"surname" validate:"max=120"`
	Phone         string `json:"phone" validate:"required,max=32"`
	Address       string `json:"address" validate:"required,max=1000"`
}

// IsEmpty reports whether any field needed for delivery is blank.
func (a ShippingAddress) IsEmpty() bool {
	return strings.TrimSpace(a.RecipientName) == "" ||
		strings.TrimSpace(a.Phone) == "" ||
		strings.TrimSpace(a.Address) == ""
}

// Normalize trims surrounding whitespace from every field.
func (a ShippingAddress) Normalize() ShippingAddress {
	return ShippingAddress{
		RecipientName: strings.TrimSpace(a.RecipientName),
		Surname:       strings.TrimSpace(a.Surname),
		Phone:         strings.TrimSpace(a.Phone),
		Address:       strings.TrimSpace(a.Address),
	}
}
