package pricing

import "github.com/shopspring/decimal"

const (
	MinPeriods = 2
	MaxPeriods = 12
)

// rateTable is the installment surcharge per period count. It climbs one
// percentage point per period from 10% and tops out at 21% for twelve months.
var rateTable = map[int]decimal.Decimal{
	2:  decimal.RequireFromString("0.10"),
	3:  decimal.RequireFromString("0.11"),
	4:  decimal.RequireFromString("0.12"),
	5:  decimal.RequireFromString("0.13"),
	6:  decimal.RequireFromString("0.14"),
	7:  decimal.RequireFromString("0.15"),
	8:  decimal.RequireFromString("0.16"),
	9:  decimal.RequireFromString("0.17"),
	10: decimal.RequireFromString("0.18"),
	11: decimal.RequireFromString("0.19"),
	12: decimal.RequireFromString("0.21"),
}

// ClampPeriods forces n into [MinPeriods, MaxPeriods].
func ClampPeriods(n int) int {
	if n < MinPeriods {
		return MinPeriods
	}
	if n > MaxPeriods {
		return MaxPeriods
	}
	return n
}

// Rate returns the surcharge for n periods after clamping.
func Rate(n int) decimal.Decimal {
	return rateTable[ClampPeriods(n)]
}

// AdvertisedMonthly is the product-page preview: total / periods floored to a
// multiple of 10 baht. It is never persisted or charged.
func AdvertisedMonthly(total decimal.Decimal, periods int) decimal.Decimal {
	if periods <= 0 || !total.IsPositive() {
		return decimal.Zero
	}
	ten := decimal.NewFromInt(10)
	return total.Div(decimal.NewFromInt(int64(periods))).Div(ten).Floor().Mul(ten)
}
