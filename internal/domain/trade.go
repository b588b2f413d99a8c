package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade represents a single executed buy or sell, as loaded by the storage layer.
type Trade struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Fees      decimal.Decimal `json:"fees"`
	TradeTime time.Time       `json:"trade_time"`
}

// Validate checks the fields the matcher depends on.
// The returned error, if any, is always a *ValidationError.
func (t Trade) Validate() error {
	invalid := func(field, reason string) error {
		return &ValidationError{TradeID: t.ID, Symbol: NormalizeSymbol(t.Symbol), Field: field, Reason: reason}
	}
	switch {
	case NormalizeSymbol(t.Symbol) == "":
		return invalid("symbol", "must not be empty")
	case !t.Side.Valid():
		return invalid("side", "must be BUY or SELL")
	case !t.Quantity.IsPositive():
		return invalid("quantity", "must be positive")
	case !t.Price.IsPositive():
		return invalid("price", "must be positive")
	case t.Fees.IsNegative():
		return invalid("fees", "must not be negative")
	case t.TradeTime.IsZero():
		return invalid("trade_time", "is required")
	}
	return nil
}

// FeePerUnit spreads the trade's total fee evenly over its quantity.
func (t Trade) FeePerUnit() decimal.Decimal {
	if !t.Quantity.IsPositive() {
		return decimal.Zero
	}
	return t.Fees.Div(t.Quantity)
}
