package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RealizedMatch is one closed slice of quantity, pairing an opening lot with
// (part of) a closing trade. It is never mutated after creation.
type RealizedMatch struct {
	Symbol            string          `json:"symbol"`
	Direction         Direction       `json:"side_closed"`
	Quantity          decimal.Decimal `json:"quantity"`
	EntryPrice        decimal.Decimal `json:"entry_price"`
	ExitPrice         decimal.Decimal `json:"exit_price"`
	EntryTime         time.Time       `json:"entry_time"`
	ExitTime          time.Time       `json:"exit_time"`
	EntryTradeID      string          `json:"entry_trade_id"`
	ExitTradeID       string          `json:"exit_trade_id"`
	PnL               decimal.Decimal `json:"pnl"`
	FeesAllocated     decimal.Decimal `json:"fees_allocated"`
	HoldingPeriodDays float64         `json:"holding_period_days"`
}

// PnLFloat is the realized P&L as a float for statistics.
func (m RealizedMatch) PnLFloat() float64 {
	return m.PnL.InexactFloat64()
}

// IsWin reports a strictly positive realized P&L.
func (m RealizedMatch) IsWin() bool { return m.PnL.IsPositive() }

// IsLoss reports a strictly negative realized P&L.
func (m RealizedMatch) IsLoss() bool { return m.PnL.IsNegative() }

// HoldingDays returns the elapsed time between entry and exit in fractional days.
func HoldingDays(entry, exit time.Time) float64 {
	return exit.Sub(entry).Hours() / 24
}
