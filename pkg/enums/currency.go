package enums

import "fmt"

// Currency is an ISO 4217 code. Orders are only priced in baht today.
type Currency string

const CurrencyTHB Currency = "THB"

func (c Currency) String() string { return string(c) }

func (c Currency) IsValid() bool { return c == CurrencyTHB }

func ParseCurrency(value string) (Currency, error) {
	c := Currency(value)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid currency %q", value)
	}
	return c, nil
}
