package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundLot is a single mutual-fund purchase.
type FundLot struct {
	ID             string          `json:"id"`
	SchemeCode     string          `json:"scheme_code"`
	SchemeName     string          `json:"scheme_name"`
	Units          decimal.Decimal `json:"units"`
	NAV            decimal.Decimal `json:"nav"`
	InvestmentDate time.Time       `json:"investment_date"`
	Fees           decimal.Decimal `json:"fees"`
}

// Validate checks a purchase lot; errors are *ValidationError.
func (f FundLot) Validate() error {
	invalid := func(field, reason string) error {
		return &ValidationError{TradeID: f.ID, Symbol: f.SchemeCode, Field: field, Reason: reason}
	}
	switch {
	case f.SchemeCode == "":
		return invalid("scheme_code", "must not be empty")
	case !f.Units.IsPositive():
		return invalid("units", "must be positive")
	case !f.NAV.IsPositive():
		return invalid("nav", "must be positive")
	case f.Fees.IsNegative():
		return invalid("fees", "must not be negative")
	case f.InvestmentDate.IsZero():
		return invalid("investment_date", "is required")
	}
	return nil
}

// Amount is the cash invested by the lot, fees included.
func (f FundLot) Amount() decimal.Decimal {
	return f.NAV.Mul(f.Units).Add(f.Fees)
}
