package app

import (
	"time"

	"github.com/shopspring/decimal"

	"pnlEngine/internal/domain"
	"pnlEngine/internal/pnl/analytics"
	"pnlEngine/internal/pnl/buckets"
	"pnlEngine/internal/pnl/tax"
)

// Notes is the side-channel attached to every trade report.
type Notes struct {
	Currency        string                    `json:"currency"`
	Skipped         []*domain.ValidationError `json:"skipped"`
	MissingMarks    []string                  `json:"missing_marks"`
	FallbackToCost  []string                  `json:"fallback_to_cost"`
	MarkPriceSource string                    `json:"mark_price_source"`
	Attribution     string                    `json:"attribution,omitempty"`
}

// PortfolioSummary is realized and unrealized P&L with the open positions.
type PortfolioSummary struct {
	RealizedPnL   decimal.Decimal       `json:"realized_pnl"`
	UnrealizedPnL decimal.Decimal       `json:"unrealized_pnl"`
	TotalPnL      decimal.Decimal       `json:"total_pnl"`
	OpenPositions []domain.OpenPosition `json:"open_positions"`
	Notes         Notes                 `json:"notes"`
}

// AdvancedMetrics groups the risk-adjusted statistics of an overview.
type AdvancedMetrics struct {
	SharpeRatio          *float64 `json:"sharpe_ratio"`
	SortinoRatio         *float64 `json:"sortino_ratio"`
	CalmarRatio          *float64 `json:"calmar_ratio"`
	ProfitFactor         *float64 `json:"profit_factor"`
	Expectancy           *float64 `json:"expectancy"`
	AvgHoldingPeriodDays *float64 `json:"avg_holding_period_days"`
}

// Overview is the analytics dashboard of a trade history.
type Overview struct {
	RealizedPnL     decimal.Decimal       `json:"realized_pnl"`
	UnrealizedPnL   decimal.Decimal       `json:"unrealized_pnl"`
	TotalPnL        decimal.Decimal       `json:"total_pnl"`
	WinRate         *float64              `json:"win_rate"`
	AvgWin          *float64              `json:"avg_win"`
	AvgLoss         *float64              `json:"avg_loss"`
	Drawdown        float64               `json:"drawdown"`
	RiskRewardRatio *float64              `json:"risk_reward_ratio"`
	AdvancedMetrics AdvancedMetrics       `json:"advanced_metrics"`
	TimeBuckets     *buckets.TimeBuckets  `json:"time_buckets"`
	OpenPositions   []domain.OpenPosition `json:"open_positions"`
	Notes           Notes                 `json:"notes"`
}

// Series are the time series of a performance report.
type Series struct {
	DailyRealizedPnL   []analytics.PeriodPnL      `json:"daily_realized_pnl"`
	WeeklyRealizedPnL  []analytics.PeriodPnL      `json:"weekly_realized_pnl"`
	MonthlyRealizedPnL []analytics.PeriodPnL      `json:"monthly_realized_pnl"`
	EquityCurve        []analytics.EquityPoint    `json:"equity_curve"`
	Drawdowns          []analytics.DrawdownPeriod `json:"drawdowns"`
}

// Stats are the headline day and streak numbers of a performance report.
type Stats struct {
	BestDay       *analytics.PeriodPnL `json:"best_day"`
	WorstDay      *analytics.PeriodPnL `json:"worst_day"`
	MaxWinStreak  int                  `json:"max_win_streak"`
	MaxLossStreak int                  `json:"max_loss_streak"`
}

// PerformanceReport is the performance page of a trade history.
type PerformanceReport struct {
	Series       Series                  `json:"series"`
	Stats        Stats                   `json:"stats"`
	Breakdowns   buckets.Breakdowns      `json:"breakdowns"`
	Distribution *analytics.Distribution `json:"distribution"`
	TimeOfDay    *buckets.TimeOfDay      `json:"time_of_day"`
	Notes        Notes                   `json:"notes"`
}

// TaxNotes extends the policy notes of a tax report.
type TaxNotes struct {
	tax.Notes
	Currency string                    `json:"currency"`
	Skipped  []*domain.ValidationError `json:"skipped"`
}

// TaxReport is the tax view of one year plus every year's realized total.
type TaxReport struct {
	TaxYear           int                     `json:"tax_year"`
	ShortTerm         tax.Bucket              `json:"short_term"`
	LongTerm          tax.Bucket              `json:"long_term"`
	Summary           tax.Summary             `json:"summary"`
	TaxRates          tax.Rates               `json:"tax_rates"`
	TaxLossHarvesting []tax.HarvestSuggestion `json:"tax_loss_harvesting"`
	YearSummary       []tax.YearTotal         `json:"year_summary"`
	Notes             TaxNotes                `json:"notes"`
}

// Period is an inclusive trade-time window.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within the window.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// PeriodOverview is the overview of the trades executed within a period.
type PeriodOverview struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Analytics  *Overview `json:"analytics"`
	TradeCount int       `json:"trade_count"`
}

// PeriodDelta holds period2 minus period1 for the compared figures.
// Undefined statistics count as zero.
type PeriodDelta struct {
	PnLDifference        decimal.Decimal `json:"pnl_difference"`
	PnLPercentChange     float64         `json:"pnl_percent_change"`
	WinRateDifference    float64         `json:"win_rate_difference"`
	TradeCountDifference int             `json:"trade_count_difference"`
	AvgWinDifference     float64         `json:"avg_win_difference"`
	AvgLossDifference    float64         `json:"avg_loss_difference"`
	DrawdownDifference   float64         `json:"drawdown_difference"`
}

// Comparison is the side-by-side overview of two periods.
type Comparison struct {
	Period1    PeriodOverview `json:"period1"`
	Period2    PeriodOverview `json:"period2"`
	Comparison PeriodDelta    `json:"comparison"`
}
