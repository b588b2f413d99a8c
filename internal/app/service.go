package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"pnlEngine/config"
	"pnlEngine/internal/domain"
	"pnlEngine/internal/pnl/analytics"
	"pnlEngine/internal/pnl/buckets"
	"pnlEngine/internal/pnl/funds"
	"pnlEngine/internal/pnl/matching"
	"pnlEngine/internal/pnl/positions"
	"pnlEngine/internal/pnl/tax"
	"pnlEngine/internal/ports"
)

const binanceAttribution = "Mark prices from the Binance USD-M futures premium index"

// ReportService turns trade histories into the portfolio, analytics,
// performance and tax reports. It loads data from the repositories for the
// per-user variants and never keeps state between calls.
type ReportService struct {
	cfg     *config.Config
	logger  ports.Logger
	trades  ports.TradeRepository
	journal ports.JournalRepository
	funds   ports.FundRepository
	marks   ports.MarkPriceSource
	now     func() time.Time
}

// NewReportService creates a new application service instance. The
// repositories and the mark source may be nil: the per-user operations then
// fail with ports.ErrConfigurationError and marks come from the request alone.
func NewReportService(
	cfg *config.Config,
	logger ports.Logger,
	trades ports.TradeRepository,
	journal ports.JournalRepository,
	fundRepo ports.FundRepository,
	marks ports.MarkPriceSource,
) (*ReportService, error) {
	if cfg == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for ReportService: %w", ports.ErrConfigurationError)
	}
	if cfg.CapitalBase <= 0 {
		return nil, fmt.Errorf("configuration CapitalBase must be positive: %w", ports.ErrConfigurationError)
	}
	return &ReportService{
		cfg:     cfg,
		logger:  logger,
		trades:  trades,
		journal: journal,
		funds:   fundRepo,
		marks:   marks,
		now:     time.Now,
	}, nil
}

// TaxParams returns the configured tax policy for a year.
func (s *ReportService) TaxParams(year int) tax.Params {
	return tax.Params{
		TaxYear:                    year,
		ShortTermRate:              s.cfg.ShortTermTaxRate,
		LongTermRate:               s.cfg.LongTermTaxRate,
		HoldingPeriodThresholdDays: s.cfg.HoldingPeriodThresholdDays,
		Location:                   s.cfg.Location,
	}
}

func (s *ReportService) analyticsOptions() analytics.Options {
	return analytics.Options{
		CapitalBase:  s.cfg.CapitalBase,
		RiskFreeRate: s.cfg.RiskFreeRate,
		Location:     s.cfg.Location,
	}
}

// match runs the matcher and logs what it skipped.
func (s *ReportService) match(ctx context.Context, trades []domain.Trade) *matching.Result {
	start := time.Now()
	res := matching.Match(trades, matching.Options{Workers: s.cfg.MatchWorkers})
	for _, sk := range res.Skipped {
		s.logger.Warn(ctx, "Skipping invalid trade", map[string]interface{}{
			"tradeID": sk.TradeID,
			"symbol":  sk.Symbol,
			"field":   sk.Field,
			"reason":  sk.Reason,
		})
	}
	s.logger.Debug(ctx, "Trades matched", map[string]interface{}{
		"trades":   len(trades),
		"matches":  len(res.Matches),
		"skipped":  len(res.Skipped),
		"symbols":  len(res.LastPrices),
		"duration": time.Since(start).String(),
	})
	return res
}

func (s *ReportService) baseNotes(res *matching.Result) Notes {
	n := Notes{
		Currency:        s.cfg.Currency,
		Skipped:         res.Skipped,
		MissingMarks:    []string{},
		FallbackToCost:  []string{},
		MarkPriceSource: config.MarkSourceNone,
	}
	if n.Skipped == nil {
		n.Skipped = []*domain.ValidationError{}
	}
	return n
}

// resolveMarks merges request overrides with prices from the configured
// source for the open symbols the overrides do not cover. A failing source
// is logged and the engine falls back to its own defaults.
func (s *ReportService) resolveMarks(ctx context.Context, res *matching.Result, overrides map[string]decimal.Decimal, notes *Notes) map[string]decimal.Decimal {
	marks := make(map[string]decimal.Decimal, len(overrides))
	for sym, p := range overrides {
		marks[domain.NormalizeSymbol(sym)] = p
	}
	if s.marks == nil {
		return marks
	}

	var missing []string
	for sym, lots := range res.OpenLots {
		if len(lots) == 0 {
			continue
		}
		if p, ok := marks[sym]; !ok || !p.IsPositive() {
			missing = append(missing, sym)
		}
	}
	if len(missing) == 0 {
		return marks
	}
	sort.Strings(missing)

	fetched, err := s.marks.MarkPrices(ctx, missing)
	if err != nil {
		s.logger.Warn(ctx, "Mark price source unavailable, using last trade prices", map[string]interface{}{
			"symbols": missing,
			"error":   err.Error(),
		})
		return marks
	}
	for sym, p := range fetched {
		marks[domain.NormalizeSymbol(sym)] = p
	}
	s.tickerFallback(ctx, missing, marks)
	notes.MarkPriceSource = s.cfg.MarkSource
	if s.cfg.MarkSource == config.MarkSourceBinance {
		notes.Attribution = binanceAttribution
	}
	return marks
}

// tickerFallback prices the symbols the mark lookup left out with their last
// traded price, when the source can look those up.
func (s *ReportService) tickerFallback(ctx context.Context, symbols []string, marks map[string]decimal.Decimal) {
	ts, ok := s.marks.(ports.TickerSource)
	if !ok {
		return
	}
	for _, sym := range symbols {
		if p, ok := marks[sym]; ok && p.IsPositive() {
			continue
		}
		price, err := ts.GetTickerPrice(ctx, sym)
		if err != nil {
			s.logger.Debug(ctx, "No ticker price for open symbol", map[string]interface{}{"symbol": sym, "error": err.Error()})
			continue
		}
		if !price.IsPositive() {
			continue
		}
		marks[sym] = price
	}
}

// Valuation holds the per-call inputs for valuing open positions.
type Valuation struct {
	// Marks override the mark price per symbol.
	Marks map[string]decimal.Decimal
	// Strict fails the report when an open symbol has no price at all.
	// Nil falls back to the configured STRICT_MARKS.
	Strict *bool
}

func (s *ReportService) strict(v Valuation) bool {
	if v.Strict != nil {
		return *v.Strict
	}
	return s.cfg.StrictMarks
}

// openPositions values the open lots and records how each mark was resolved.
func (s *ReportService) openPositions(ctx context.Context, res *matching.Result, trades []domain.Trade, v Valuation, notes *Notes) ([]domain.OpenPosition, error) {
	marks := s.resolveMarks(ctx, res, v.Marks, notes)
	open, markNotes, err := positions.Track(res.OpenLots, trades, marks, s.strict(v))
	if err != nil {
		return nil, fmt.Errorf("failed to value open positions: %w", err)
	}
	notes.MissingMarks = markNotes.MissingMarks
	notes.FallbackToCost = markNotes.FallbackToCost
	for _, sym := range markNotes.FallbackToCost {
		s.logger.Warn(ctx, "No mark price, valuing position at average cost", map[string]interface{}{"symbol": sym})
	}
	return open, nil
}

// Portfolio computes realized and unrealized P&L. Marks in v override the
// last trade price per symbol.
func (s *ReportService) Portfolio(ctx context.Context, trades []domain.Trade, v Valuation) (*PortfolioSummary, error) {
	res := s.match(ctx, trades)
	notes := s.baseNotes(res)
	open, err := s.openPositions(ctx, res, trades, v, &notes)
	if err != nil {
		return nil, err
	}

	realized := decimal.Zero
	for _, m := range res.Matches {
		realized = realized.Add(m.PnL)
	}
	unrealized := positions.TotalUnrealized(open)
	return &PortfolioSummary{
		RealizedPnL:   realized,
		UnrealizedPnL: unrealized,
		TotalPnL:      realized.Add(unrealized),
		OpenPositions: open,
		Notes:         notes,
	}, nil
}

// Overview computes the analytics dashboard.
func (s *ReportService) Overview(ctx context.Context, trades []domain.Trade, v Valuation) (*Overview, error) {
	res := s.match(ctx, trades)
	notes := s.baseNotes(res)
	open, err := s.openPositions(ctx, res, trades, v, &notes)
	if err != nil {
		return nil, err
	}
	return s.overview(res, open, notes), nil
}

func (s *ReportService) overview(res *matching.Result, open []domain.OpenPosition, notes Notes) *Overview {
	m := analytics.AnalyzePerformance(res.Matches, s.analyticsOptions())
	unrealized := positions.TotalUnrealized(open)
	return &Overview{
		RealizedPnL:     m.RealizedPnL,
		UnrealizedPnL:   unrealized,
		TotalPnL:        m.RealizedPnL.Add(unrealized),
		WinRate:         m.WinRate,
		AvgWin:          m.AvgWin,
		AvgLoss:         m.AvgLoss,
		Drawdown:        m.Drawdown,
		RiskRewardRatio: m.RiskRewardRatio,
		AdvancedMetrics: AdvancedMetrics{
			SharpeRatio:          m.SharpeRatio,
			SortinoRatio:         m.SortinoRatio,
			CalmarRatio:          m.CalmarRatio,
			ProfitFactor:         m.ProfitFactor,
			Expectancy:           m.Expectancy,
			AvgHoldingPeriodDays: m.AvgHoldingPeriodDays,
		},
		TimeBuckets:   buckets.Compute(res.Matches, s.cfg.Location),
		OpenPositions: open,
		Notes:         notes,
	}
}

// Performance computes the time series, streaks and breakdowns. Tags are
// joined to matches through the exit trade.
func (s *ReportService) Performance(ctx context.Context, trades []domain.Trade, tags map[string]domain.JournalTag) (*PerformanceReport, error) {
	res := s.match(ctx, trades)
	m := analytics.AnalyzePerformance(res.Matches, s.analyticsOptions())
	return &PerformanceReport{
		Series: Series{
			DailyRealizedPnL:   m.DailyRealizedPnL,
			WeeklyRealizedPnL:  m.WeeklyRealizedPnL,
			MonthlyRealizedPnL: m.MonthlyReturns,
			EquityCurve:        m.EquityCurve,
			Drawdowns:          m.Drawdowns,
		},
		Stats: Stats{
			BestDay:       m.BestDay,
			WorstDay:      m.WorstDay,
			MaxWinStreak:  m.MaxWinStreak,
			MaxLossStreak: m.MaxLossStreak,
		},
		Breakdowns:   buckets.Breakdown(res.Matches, tags, s.cfg.TopNBreakdown),
		Distribution: analytics.WinLossDistribution(res.Matches),
		TimeOfDay:    buckets.HourOfDay(res.Matches, s.cfg.Location),
		Notes:        s.baseNotes(res),
	}, nil
}

// Tax classifies the matches exiting in p.TaxYear.
func (s *ReportService) Tax(ctx context.Context, trades []domain.Trade, p tax.Params) (*TaxReport, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tax parameters: %w", err)
	}
	res := s.match(ctx, trades)
	r := tax.Classify(res.Matches, p)
	s.logger.Debug(ctx, "Tax report computed", map[string]interface{}{
		"taxYear":   r.TaxYear,
		"shortTerm": r.ShortTerm.Count,
		"longTerm":  r.LongTerm.Count,
	})

	notes := s.baseNotes(res)
	return &TaxReport{
		TaxYear:           r.TaxYear,
		ShortTerm:         r.ShortTerm,
		LongTerm:          r.LongTerm,
		Summary:           r.Summary,
		TaxRates:          r.TaxRates,
		TaxLossHarvesting: r.TaxLossHarvesting,
		YearSummary:       tax.YearSummary(res.Matches, p.Location),
		Notes: TaxNotes{
			Notes:    r.Notes,
			Currency: notes.Currency,
			Skipped:  notes.Skipped,
		},
	}, nil
}

// ComparePeriods computes an overview for the trades executed within each
// period and the differences period2 minus period1. Open positions inside a
// period are valued at that period's last trade prices.
func (s *ReportService) ComparePeriods(ctx context.Context, trades []domain.Trade, p1, p2 Period) (*Comparison, error) {
	for i, p := range []Period{p1, p2} {
		if p.Start.IsZero() || p.End.IsZero() || p.End.Before(p.Start) {
			return nil, fmt.Errorf("period%d must have a start before its end: %w", i+1, ports.ErrInvalidRequest)
		}
	}

	periodOverview := func(p Period) PeriodOverview {
		var within []domain.Trade
		for _, t := range trades {
			if p.Contains(t.TradeTime) {
				within = append(within, t)
			}
		}
		res := s.match(ctx, within)
		open, _, err := positions.Track(res.OpenLots, within, nil, false)
		if err != nil {
			// Non-strict tracking does not fail.
			open = []domain.OpenPosition{}
		}
		return PeriodOverview{
			Start:      p.Start,
			End:        p.End,
			Analytics:  s.overview(res, open, s.baseNotes(res)),
			TradeCount: len(within),
		}
	}

	a, b := periodOverview(p1), periodOverview(p2)
	delta := PeriodDelta{
		PnLDifference:        b.Analytics.RealizedPnL.Sub(a.Analytics.RealizedPnL),
		WinRateDifference:    valueOrZero(b.Analytics.WinRate) - valueOrZero(a.Analytics.WinRate),
		TradeCountDifference: b.TradeCount - a.TradeCount,
		AvgWinDifference:     valueOrZero(b.Analytics.AvgWin) - valueOrZero(a.Analytics.AvgWin),
		AvgLossDifference:    valueOrZero(b.Analytics.AvgLoss) - valueOrZero(a.Analytics.AvgLoss),
		DrawdownDifference:   b.Analytics.Drawdown - a.Analytics.Drawdown,
	}
	if base := a.Analytics.RealizedPnL; !base.IsZero() {
		delta.PnLPercentChange = delta.PnLDifference.Div(base.Abs()).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	return &Comparison{Period1: a, Period2: b, Comparison: delta}, nil
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// FundOverview values fund lots against the given NAVs.
func (s *ReportService) FundOverview(ctx context.Context, lots []domain.FundLot, navs map[string]decimal.Decimal) *funds.Overview {
	ov := funds.Summarize(lots, navs)
	s.logFundNotes(ctx, ov.Skipped, ov.MissingNAVs)
	return ov
}

// FundPerformance builds the fund investment series ending at asOf, or now
// when asOf is zero.
func (s *ReportService) FundPerformance(ctx context.Context, lots []domain.FundLot, navs map[string]decimal.Decimal, asOf time.Time) *funds.PerformanceReport {
	if asOf.IsZero() {
		asOf = s.now()
	}
	return funds.Performance(lots, navs, asOf, s.cfg.Location)
}

func (s *ReportService) logFundNotes(ctx context.Context, skipped []*domain.ValidationError, missing []string) {
	for _, sk := range skipped {
		s.logger.Warn(ctx, "Skipping invalid fund lot", map[string]interface{}{"lotID": sk.TradeID, "scheme": sk.Symbol, "field": sk.Field, "reason": sk.Reason})
	}
	if len(missing) > 0 {
		s.logger.Warn(ctx, "No NAV for schemes, valuing at average NAV", map[string]interface{}{"schemes": missing})
	}
}

// --- Stored data ---

var errNoStore = fmt.Errorf("no repository configured: %w", ports.ErrConfigurationError)

// RecordTrade validates and stores a trade for the user.
func (s *ReportService) RecordTrade(ctx context.Context, userID string, trade *domain.Trade) (string, error) {
	if s.trades == nil {
		return "", errNoStore
	}
	if err := trade.Validate(); err != nil {
		return "", err
	}
	return s.trades.CreateTrade(ctx, userID, trade)
}

// TagTrade attaches journal labels to one of the user's trades.
func (s *ReportService) TagTrade(ctx context.Context, userID string, tag domain.JournalTag) error {
	if s.journal == nil {
		return errNoStore
	}
	if tag.TradeID == "" {
		return fmt.Errorf("trade id is required: %w", ports.ErrInvalidRequest)
	}
	return s.journal.TagTrade(ctx, userID, tag)
}

// RecordFundLot validates and stores a fund purchase for the user.
func (s *ReportService) RecordFundLot(ctx context.Context, userID string, lot *domain.FundLot) (string, error) {
	if s.funds == nil {
		return "", errNoStore
	}
	if err := lot.Validate(); err != nil {
		return "", err
	}
	return s.funds.CreateFundLot(ctx, userID, lot)
}

func (s *ReportService) userTrades(ctx context.Context, userID string) ([]domain.Trade, error) {
	if s.trades == nil {
		return nil, errNoStore
	}
	trades, err := s.trades.ListTrades(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trades of user %s: %w", userID, err)
	}
	return trades, nil
}

// UserPortfolio is Portfolio over the user's stored trades.
func (s *ReportService) UserPortfolio(ctx context.Context, userID string, v Valuation) (*PortfolioSummary, error) {
	trades, err := s.userTrades(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Portfolio(ctx, trades, v)
}

// UserOverview is Overview over the user's stored trades.
func (s *ReportService) UserOverview(ctx context.Context, userID string, v Valuation) (*Overview, error) {
	trades, err := s.userTrades(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Overview(ctx, trades, v)
}

// UserPerformance is Performance over the user's stored trades and tags.
func (s *ReportService) UserPerformance(ctx context.Context, userID string) (*PerformanceReport, error) {
	trades, err := s.userTrades(ctx, userID)
	if err != nil {
		return nil, err
	}
	tags := map[string]domain.JournalTag{}
	if s.journal != nil {
		if tags, err = s.journal.JournalTags(ctx, userID); err != nil {
			return nil, fmt.Errorf("failed to load journal tags of user %s: %w", userID, err)
		}
	}
	return s.Performance(ctx, trades, tags)
}

// UserTax is Tax over the user's stored trades.
func (s *ReportService) UserTax(ctx context.Context, userID string, p tax.Params) (*TaxReport, error) {
	trades, err := s.userTrades(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Tax(ctx, trades, p)
}

// UserFundOverview is FundOverview over the user's stored fund lots.
func (s *ReportService) UserFundOverview(ctx context.Context, userID string, navs map[string]decimal.Decimal) (*funds.Overview, error) {
	if s.funds == nil {
		return nil, errNoStore
	}
	lots, err := s.funds.ListFundLots(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fund lots of user %s: %w", userID, err)
	}
	return s.FundOverview(ctx, lots, navs), nil
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrValidation) || errors.Is(err, ports.ErrInvalidRequest)
}
