package domain

import "github.com/shopspring/decimal"

// MarkSource tells where an open position's mark price came from.
type MarkSource string

const (
	MarkFromOverride  MarkSource = "override"
	MarkFromLastTrade MarkSource = "last_trade"
	MarkFromCost      MarkSource = "avg_cost"
)

// OpenPosition is a snapshot of the quantity still open for one symbol and
// direction, valued at a mark price. Recomputed on every request.
type OpenPosition struct {
	Symbol        string          `json:"symbol"`
	Direction     Direction       `json:"side"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgCost       decimal.Decimal `json:"avg_cost"`
	MarkPrice     decimal.Decimal `json:"mark_price"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	MarkSource    MarkSource      `json:"mark_source"`
}
