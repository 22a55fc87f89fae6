package orders

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baanfurniture/storefront-backend/pkg/db/models"
	"github.com/baanfurniture/storefront-backend/pkg/enums"
)

// BuildSchedule splits total into periods entries. Entries 1..n-1 carry
// floor(total/n) baht and the last entry takes the remainder, so the amounts
// always sum to total. Due dates start on the day of start and step one
// calendar month at a time.
func BuildSchedule(total decimal.Decimal, periods int, start time.Time) ([]models.InstallmentEntry, error) {
	if periods < 1 {
		return nil, fmt.Errorf("periods must be positive, got %d", periods)
	}
	if total.IsNegative() {
		return nil, fmt.Errorf("total must not be negative")
	}

	n := decimal.NewFromInt(int64(periods))
	base := total.Div(n).Floor()
	last := total.Sub(base.Mul(decimal.NewFromInt(int64(periods - 1))))

	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	entries := make([]models.InstallmentEntry, periods)
	for i := 0; i < periods; i++ {
		amount := base
		if i == periods-1 {
			amount = last
		}
		entries[i] = models.InstallmentEntry{
			InstallmentNumber: i + 1,
			Amount:            amount,
			DueDate:           AddMonthsClamped(day, i),
			Status:            enums.InstallmentStatusUnpaid,
		}
	}
	return entries, nil
}

// AddMonthsClamped adds months to t, pinning the day to the last day of the
// target month when t's day does not exist there (Jan 31 + 1 = Feb 28/29).
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// VATPortion extracts the VAT already included in a VAT-inclusive total.
func VATPortion(total, rate decimal.Decimal) decimal.Decimal {
	if !rate.IsPositive() || !total.IsPositive() {
		return decimal.Zero
	}
	return total.Mul(rate).Div(decimal.NewFromInt(1).Add(rate)).Round(2)
}
