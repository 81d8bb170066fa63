package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amounts travel through the system in minor currency units (paise for INR).
// Decimal arithmetic is confined to this package so callers never do float
// math on money.

// FromMinorUnits converts minor units into a major-unit decimal (50000 -> 500.00).
func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

// AdvanceMinorUnits computes the advance due on a total at the given percent,
// in minor units, rounded to the nearest unit.
func AdvanceMinorUnits(total int64, percent int) int64 {
	if total <= 0 || percent <= 0 {
		return 0
	}
	if percent >= 100 {
		return total
	}
	advance := decimal.New(total, 0).Mul(decimal.New(int64(percent), -2))
	return advance.Round(0).IntPart()
}

// Format renders a minor-unit amount for logs and responses ("INR 500.00").
func Format(amount int64, currency string) string {
	return fmt.Sprintf("%s %s", currency, FromMinorUnits(amount).StringFixed(2))
}
