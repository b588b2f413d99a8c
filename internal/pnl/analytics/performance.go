// Package analytics derives performance and risk statistics from a series of
// realized matches.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"pnlEngine/internal/domain"
)

// DefaultCapitalBase normalises daily P&L into returns when no capital base is given.
const DefaultCapitalBase = 100000.0

// Options controls return normalisation and calendar bucketing.
type Options struct {
	// CapitalBase is the reference capital daily P&L is divided by.
	CapitalBase float64
	// RiskFreeRate is the annual risk-free rate as a fraction (0.04 for 4%).
	RiskFreeRate float64
	// Location decides calendar days and weeks. Nil keeps each exit's own zone.
	Location *time.Location
}

func (o Options) capital() float64 {
	if o.CapitalBase > 0 {
		return o.CapitalBase
	}
	return DefaultCapitalBase
}

// PerformanceMetrics holds the statistics of a realized match series.
// Nil pointers mean the value is undefined for the input (no data or a zero
// denominator) and are rendered as null.
type PerformanceMetrics struct {
	// Basic Metrics
	TotalMatches     int             `json:"total_matches"`
	WinningMatches   int             `json:"winning_matches"`
	LosingMatches    int             `json:"losing_matches"`
	BreakevenMatches int             `json:"breakeven_matches"`
	RealizedPnL      decimal.Decimal `json:"realized_pnl"`
	GrossProfit      decimal.Decimal `json:"gross_profit"`
	GrossLoss        decimal.Decimal `json:"gross_loss"`
	WinRate          *float64        `json:"win_rate"`
	AvgWin           *float64        `json:"avg_win"`
	AvgLoss          *float64        `json:"avg_loss"`
	RiskRewardRatio  *float64        `json:"risk_reward_ratio"`
	Drawdown         float64         `json:"drawdown"`

	// Advanced Metrics
	SharpeRatio          *float64 `json:"sharpe_ratio"`
	SortinoRatio         *float64 `json:"sortino_ratio"`
	CalmarRatio          *float64 `json:"calmar_ratio"`
	ProfitFactor         *float64 `json:"profit_factor"`
	Expectancy           *float64 `json:"expectancy"`
	AvgHoldingPeriodDays *float64 `json:"avg_holding_period_days"`
	MaxWinStreak         int      `json:"max_win_streak"`
	MaxLossStreak        int      `json:"max_loss_streak"`

	// Series
	EquityCurve       []EquityPoint    `json:"equity_curve"`
	DailyRealizedPnL  []PeriodPnL      `json:"daily_realized_pnl"`
	WeeklyRealizedPnL []PeriodPnL      `json:"weekly_realized_pnl"`
	MonthlyReturns    []PeriodPnL      `json:"monthly_realized_pnl"`
	Drawdowns         []DrawdownPeriod `json:"drawdowns"`
	BestDay           *PeriodPnL       `json:"best_day"`
	WorstDay          *PeriodPnL       `json:"worst_day"`
}

// EquityPoint is the cumulative realized P&L at the end of a calendar day.
type EquityPoint struct {
	Date   string  `json:"date"`
	Equity float64 `json:"equity"`
}

// PeriodPnL is the realized P&L booked within one period (day, ISO week or month).
type PeriodPnL struct {
	Period string  `json:"period"`
	PnL    float64 `json:"pnl"`
}

// DrawdownPeriod is one peak-to-recovery episode of the equity curve.
// RecoveryDate is empty while the curve has not regained the peak.
type DrawdownPeriod struct {
	PeakDate     string  `json:"peak_date"`
	TroughDate   string  `json:"trough_date"`
	RecoveryDate string  `json:"recovery_date,omitempty"`
	Peak         float64 `json:"peak"`
	Trough       float64 `json:"trough"`
	Depth        float64 `json:"depth"`
}

// AnalyzePerformance calculates the metrics of a match series. The input is
// not modified; matches are processed in exit-time order.
func AnalyzePerformance(matches []domain.RealizedMatch, opts Options) *PerformanceMetrics {
	metrics := &PerformanceMetrics{
		EquityCurve:       make([]EquityPoint, 0),
		DailyRealizedPnL:  make([]PeriodPnL, 0),
		WeeklyRealizedPnL: make([]PeriodPnL, 0),
		MonthlyReturns:    make([]PeriodPnL, 0),
		Drawdowns:         make([]DrawdownPeriod, 0),
	}
	if len(matches) == 0 {
		// Every term of the expectancy formula counts as 0.
		expectancy := 0.0
		metrics.Expectancy = &expectancy
		return metrics
	}

	sorted := SortByExit(matches)

	var consecutiveWins, consecutiveLosses int
	var totalHolding float64
	for _, m := range sorted {
		metrics.TotalMatches++
		metrics.RealizedPnL = metrics.RealizedPnL.Add(m.PnL)
		totalHolding += m.HoldingPeriodDays

		switch {
		case m.IsWin():
			metrics.WinningMatches++
			metrics.GrossProfit = metrics.GrossProfit.Add(m.PnL)
			consecutiveWins++
			consecutiveLosses = 0
		case m.IsLoss():
			metrics.LosingMatches++
			metrics.GrossLoss = metrics.GrossLoss.Add(m.PnL)
			consecutiveLosses++
			consecutiveWins = 0
		default:
			// A breakeven match ends both streaks.
			metrics.BreakevenMatches++
			consecutiveWins = 0
			consecutiveLosses = 0
		}
		metrics.MaxWinStreak = max(metrics.MaxWinStreak, consecutiveWins)
		metrics.MaxLossStreak = max(metrics.MaxLossStreak, consecutiveLosses)
	}

	total := float64(metrics.TotalMatches)
	winRate := float64(metrics.WinningMatches) / total
	metrics.WinRate = &winRate
	if metrics.WinningMatches > 0 {
		metrics.AvgWin = ratio(metrics.GrossProfit.InexactFloat64(), float64(metrics.WinningMatches))
	}
	if metrics.LosingMatches > 0 {
		metrics.AvgLoss = ratio(metrics.GrossLoss.InexactFloat64(), float64(metrics.LosingMatches))
		metrics.ProfitFactor = ratio(metrics.GrossProfit.InexactFloat64(), -metrics.GrossLoss.InexactFloat64())
	}
	if metrics.AvgWin != nil && metrics.AvgLoss != nil {
		metrics.RiskRewardRatio = ratio(*metrics.AvgWin, -*metrics.AvgLoss)
	}
	metrics.Expectancy = finite(winRate*orZero(metrics.AvgWin) + (1-winRate)*orZero(metrics.AvgLoss))
	metrics.AvgHoldingPeriodDays = ratio(totalHolding, total)

	daily := groupPnL(sorted, func(t time.Time) string { return dayKey(t, opts.Location) })
	metrics.DailyRealizedPnL = daily
	metrics.WeeklyRealizedPnL = groupPnL(sorted, func(t time.Time) string { return isoWeekKey(t, opts.Location) })
	metrics.MonthlyReturns = groupPnL(sorted, func(t time.Time) string { return monthKey(t, opts.Location) })
	metrics.BestDay, metrics.WorstDay = bestAndWorst(daily)

	metrics.EquityCurve = equityCurve(daily)
	metrics.Drawdown, metrics.Drawdowns = drawdowns(metrics.EquityCurve)

	returns := dailyReturns(daily, opts.capital())
	rf := opts.RiskFreeRate / tradingDaysPerYear
	metrics.SharpeRatio = sharpeRatio(returns, rf)
	metrics.SortinoRatio = sortinoRatio(returns, rf)
	metrics.CalmarRatio = calmarRatio(returns, metrics.Drawdown, opts.capital())

	return metrics
}

// SortByExit returns a copy of matches stably ordered by exit time.
func SortByExit(matches []domain.RealizedMatch) []domain.RealizedMatch {
	sorted := make([]domain.RealizedMatch, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ExitTime.Before(sorted[j].ExitTime)
	})
	return sorted
}

// groupPnL sums P&L by period key. Keys sort chronologically as strings.
func groupPnL(sorted []domain.RealizedMatch, key func(time.Time) string) []PeriodPnL {
	sums := make(map[string]decimal.Decimal)
	for _, m := range sorted {
		k := key(m.ExitTime)
		sums[k] = sums[k].Add(m.PnL)
	}
	out := make([]PeriodPnL, 0, len(sums))
	for k, v := range sums {
		out = append(out, PeriodPnL{Period: k, PnL: v.InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// bestAndWorst picks the earliest day with the highest and lowest P&L.
func bestAndWorst(daily []PeriodPnL) (*PeriodPnL, *PeriodPnL) {
	if len(daily) == 0 {
		return nil, nil
	}
	best, worst := daily[0], daily[0]
	for _, d := range daily[1:] {
		if d.PnL > best.PnL {
			best = d
		}
		if d.PnL < worst.PnL {
			worst = d
		}
	}
	return &best, &worst
}

func localize(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		return t.In(loc)
	}
	return t
}

func dayKey(t time.Time, loc *time.Location) string {
	return localize(t, loc).Format("2006-01-02")
}

func monthKey(t time.Time, loc *time.Location) string {
	return localize(t, loc).Format("2006-01")
}

func isoWeekKey(t time.Time, loc *time.Location) string {
	y, w := localize(t, loc).ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, w)
}
