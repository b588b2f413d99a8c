// Package funds values mutual-fund purchase lots against current NAVs.
// Redemptions are not tracked, so all fund P&L is unrealized.
package funds

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"pnlEngine/internal/domain"
)

// Position aggregates every purchase of one scheme.
type Position struct {
	SchemeCode      string           `json:"scheme_code"`
	SchemeName      string           `json:"scheme_name"`
	TotalUnits      decimal.Decimal  `json:"units"`
	TotalInvestment decimal.Decimal  `json:"total_investment"`
	AvgNAV          decimal.Decimal  `json:"avg_nav"`
	// CurrentNAV is nil when no positive NAV was supplied for the scheme.
	CurrentNAV      *decimal.Decimal `json:"current_nav"`
	CurrentValue    decimal.Decimal  `json:"current_value"`
	UnrealizedPnL   decimal.Decimal  `json:"unrealized_pnl"`
	FirstInvestment time.Time        `json:"first_investment_date"`
	LastInvestment  time.Time        `json:"last_investment_date"`
}

// ReturnPercent is the unrealized return on the money invested, in percent.
func (p Position) ReturnPercent() float64 {
	if !p.TotalInvestment.IsPositive() {
		return 0
	}
	return p.UnrealizedPnL.Div(p.TotalInvestment).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// Aggregate groups valid lots by scheme code. Average NAV is the total
// investment (fees included) per unit. Schemes without a current NAV are
// valued at their average NAV with zero unrealized P&L. Positions are sorted
// by scheme code; invalid lots are returned separately.
func Aggregate(lots []domain.FundLot, navs map[string]decimal.Decimal) ([]Position, []*domain.ValidationError) {
	var skipped []*domain.ValidationError
	byCode := make(map[string]*Position)
	for _, lot := range lots {
		if err := lot.Validate(); err != nil {
			skipped = append(skipped, err.(*domain.ValidationError))
			continue
		}
		pos, ok := byCode[lot.SchemeCode]
		if !ok {
			pos = &Position{
				SchemeCode:      lot.SchemeCode,
				SchemeName:      lot.SchemeName,
				FirstInvestment: lot.InvestmentDate,
				LastInvestment:  lot.InvestmentDate,
			}
			byCode[lot.SchemeCode] = pos
		}
		pos.TotalUnits = pos.TotalUnits.Add(lot.Units)
		pos.TotalInvestment = pos.TotalInvestment.Add(lot.Amount())
		if lot.InvestmentDate.Before(pos.FirstInvestment) {
			pos.FirstInvestment = lot.InvestmentDate
		}
		if lot.InvestmentDate.After(pos.LastInvestment) {
			pos.LastInvestment = lot.InvestmentDate
		}
	}

	out := make([]Position, 0, len(byCode))
	for code, pos := range byCode {
		pos.AvgNAV = pos.TotalInvestment.Div(pos.TotalUnits)
		if nav, ok := navs[code]; ok && nav.IsPositive() {
			pos.CurrentNAV = &nav
			pos.CurrentValue = nav.Mul(pos.TotalUnits)
			pos.UnrealizedPnL = pos.CurrentValue.Sub(pos.TotalInvestment)
		} else {
			pos.CurrentValue = pos.AvgNAV.Mul(pos.TotalUnits)
			pos.UnrealizedPnL = decimal.Zero
		}
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SchemeCode < out[j].SchemeCode })
	return out, skipped
}

// SchemeReturn is one row of the by-scheme breakdown.
type SchemeReturn struct {
	SchemeCode      string          `json:"scheme_code"`
	SchemeName      string          `json:"scheme_name"`
	TotalInvestment decimal.Decimal `json:"total_investment"`
	CurrentValue    decimal.Decimal `json:"current_value"`
	UnrealizedPnL   decimal.Decimal `json:"unrealized_pnl"`
	ReturnPercent   float64         `json:"return_percent"`
	Units           decimal.Decimal `json:"units"`
}

// Overview is the portfolio-level view of fund holdings.
type Overview struct {
	TotalInvestment decimal.Decimal           `json:"total_investment"`
	CurrentValue    decimal.Decimal           `json:"current_value"`
	UnrealizedPnL   decimal.Decimal           `json:"unrealized_pnl"`
	Positions       []Position                `json:"open_positions"`
	ByScheme        []SchemeReturn            `json:"by_scheme"`
	MissingNAVs     []string                  `json:"missing_navs"`
	Skipped         []*domain.ValidationError `json:"skipped"`
}

// Summarize builds the overview of a user's fund lots.
func Summarize(lots []domain.FundLot, navs map[string]decimal.Decimal) *Overview {
	positions, skipped := Aggregate(lots, navs)
	ov := &Overview{
		Positions:   positions,
		ByScheme:    byScheme(positions),
		MissingNAVs: []string{},
		Skipped:     skipped,
	}
	if ov.Skipped == nil {
		ov.Skipped = []*domain.ValidationError{}
	}
	for _, p := range positions {
		ov.TotalInvestment = ov.TotalInvestment.Add(p.TotalInvestment)
		ov.CurrentValue = ov.CurrentValue.Add(p.CurrentValue)
		if p.CurrentNAV == nil {
			ov.MissingNAVs = append(ov.MissingNAVs, p.SchemeCode)
		}
	}
	ov.UnrealizedPnL = ov.CurrentValue.Sub(ov.TotalInvestment)
	return ov
}

// byScheme orders positions by absolute unrealized P&L, largest first.
func byScheme(positions []Position) []SchemeReturn {
	out := make([]SchemeReturn, 0, len(positions))
	for _, p := range positions {
		out = append(out, SchemeReturn{
			SchemeCode:      p.SchemeCode,
			SchemeName:      p.SchemeName,
			TotalInvestment: p.TotalInvestment,
			CurrentValue:    p.CurrentValue,
			UnrealizedPnL:   p.UnrealizedPnL,
			ReturnPercent:   p.ReturnPercent(),
			Units:           p.TotalUnits,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UnrealizedPnL.Abs().GreaterThan(out[j].UnrealizedPnL.Abs())
	})
	return out
}
