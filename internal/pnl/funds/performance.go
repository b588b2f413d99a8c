package funds

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"pnlEngine/internal/domain"
)

// InvestmentPoint is the cumulative amount invested by the end of a day.
type InvestmentPoint struct {
	Date       string          `json:"date"`
	Investment decimal.Decimal `json:"investment"`
}

// EquityPoint is a point of the fund equity curve.
type EquityPoint struct {
	Date   string          `json:"date"`
	Equity decimal.Decimal `json:"equity"`
}

// Stats summarises the return of all holdings.
type Stats struct {
	TotalInvestment    decimal.Decimal `json:"total_investment"`
	CurrentValue       decimal.Decimal `json:"current_value"`
	TotalReturn        decimal.Decimal `json:"total_return"`
	TotalReturnPercent float64         `json:"total_return_percent"`
}

// PerformanceReport tracks money invested over time against today's value.
type PerformanceReport struct {
	Stats           Stats             `json:"stats"`
	DailyInvestment []InvestmentPoint `json:"daily_investment"`
	EquityCurve     []EquityPoint     `json:"equity_curve"`
	ByScheme        []SchemeReturn    `json:"by_scheme"`
}

// Performance builds the cumulative investment series of the lots. The
// equity curve follows the invested amount and ends with the current value
// dated asOf.
func Performance(lots []domain.FundLot, navs map[string]decimal.Decimal, asOf time.Time, loc *time.Location) *PerformanceReport {
	positions, _ := Aggregate(lots, navs)
	r := &PerformanceReport{
		DailyInvestment: make([]InvestmentPoint, 0),
		EquityCurve:     make([]EquityPoint, 0),
		ByScheme:        byScheme(positions),
	}
	for _, p := range positions {
		r.Stats.TotalInvestment = r.Stats.TotalInvestment.Add(p.TotalInvestment)
		r.Stats.CurrentValue = r.Stats.CurrentValue.Add(p.CurrentValue)
	}
	r.Stats.TotalReturn = r.Stats.CurrentValue.Sub(r.Stats.TotalInvestment)
	if r.Stats.TotalInvestment.IsPositive() {
		r.Stats.TotalReturnPercent = r.Stats.TotalReturn.Div(r.Stats.TotalInvestment).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	valid := make([]domain.FundLot, 0, len(lots))
	for _, lot := range lots {
		if lot.Validate() == nil {
			valid = append(valid, lot)
		}
	}
	if len(valid) == 0 {
		return r
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].InvestmentDate.Before(valid[j].InvestmentDate)
	})

	cum := decimal.Zero
	for _, lot := range valid {
		cum = cum.Add(lot.Amount())
		day := dayKey(lot.InvestmentDate, loc)
		if n := len(r.DailyInvestment); n > 0 && r.DailyInvestment[n-1].Date == day {
			r.DailyInvestment[n-1].Investment = cum
			continue
		}
		r.DailyInvestment = append(r.DailyInvestment, InvestmentPoint{Date: day, Investment: cum})
	}
	for _, p := range r.DailyInvestment {
		r.EquityCurve = append(r.EquityCurve, EquityPoint{Date: p.Date, Equity: p.Investment})
	}
	r.EquityCurve = append(r.EquityCurve, EquityPoint{Date: dayKey(asOf, loc), Equity: r.Stats.CurrentValue})
	return r
}

func dayKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("2006-01-02")
}
