package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is the unmatched remainder of an opening trade.
type Lot struct {
	Symbol            string          `json:"symbol"`
	Direction         Direction       `json:"side"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	FeesPerUnit       decimal.Decimal `json:"fees_per_unit"`
	OpenedAt          time.Time       `json:"opened_at"`
	SourceTradeID     string          `json:"source_trade_id"`
}

// EffectiveUnitCost folds the entry fee into the unit price: added for a long,
// subtracted from the proceeds of a short.
func (l Lot) EffectiveUnitCost() decimal.Decimal {
	if l.Direction == Short {
		return l.UnitPrice.Sub(l.FeesPerUnit)
	}
	return l.UnitPrice.Add(l.FeesPerUnit)
}
