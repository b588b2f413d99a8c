package utils

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatMoney renders an amount in the display format of an ISO currency,
// rounded to the currency's minor unit.
func FormatMoney(amount decimal.Decimal, currency string) string {
	// money.New never returns a nil currency, unlike money.GetCurrency.
	cur := money.New(0, currency).Currency()
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// FormatMoneyFloat is FormatMoney for float statistics.
func FormatMoneyFloat(amount float64, currency string) string {
	return FormatMoney(decimal.NewFromFloat(amount), currency)
}

// FormatOptionalMoney renders nil as "—".
func FormatOptionalMoney(amount *float64, currency string) string {
	if amount == nil {
		return "—"
	}
	return FormatMoneyFloat(*amount, currency)
}
