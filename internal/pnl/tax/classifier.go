// Package tax classifies realized matches into short and long-term capital
// gains for a tax year and estimates the resulting liability.
package tax

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"pnlEngine/internal/domain"
)

const (
	DefaultShortTermRate              = 15.0
	DefaultLongTermRate               = 10.0
	DefaultHoldingPeriodThresholdDays = 365

	Disclaimer = "This is for informational purposes only. Consult a tax professional for tax advice."
)

// Term identifies a holding-period bucket.
type Term string

const (
	ShortTerm Term = "short_term"
	LongTerm  Term = "long_term"
)

func (t Term) other() Term {
	if t == ShortTerm {
		return LongTerm
	}
	return ShortTerm
}

// Params are the caller's tax policy inputs. Rates are percentages.
type Params struct {
	TaxYear                    int
	ShortTermRate              float64
	LongTermRate               float64
	HoldingPeriodThresholdDays int
	// Location decides which calendar year an exit falls in. Nil keeps the
	// zone of each exit timestamp.
	Location *time.Location
}

// DefaultParams returns the default policy for a tax year.
func DefaultParams(year int) Params {
	return Params{
		TaxYear:                    year,
		ShortTermRate:              DefaultShortTermRate,
		LongTermRate:               DefaultLongTermRate,
		HoldingPeriodThresholdDays: DefaultHoldingPeriodThresholdDays,
	}
}

// Validate reports every invalid parameter at once.
func (p Params) Validate() error {
	var errs []error
	if p.TaxYear <= 0 {
		errs = append(errs, fmt.Errorf("tax year must be positive, got %d", p.TaxYear))
	}
	if p.ShortTermRate < 0 || p.ShortTermRate > 100 {
		errs = append(errs, fmt.Errorf("short-term rate must be within 0..100, got %g", p.ShortTermRate))
	}
	if p.LongTermRate < 0 || p.LongTermRate > 100 {
		errs = append(errs, fmt.Errorf("long-term rate must be within 0..100, got %g", p.LongTermRate))
	}
	if p.HoldingPeriodThresholdDays <= 0 {
		errs = append(errs, fmt.Errorf("holding period threshold must be positive, got %d", p.HoldingPeriodThresholdDays))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrValidation, errors.Join(errs...))
	}
	return nil
}

// Entry is one realized match as listed in a bucket.
type Entry struct {
	Symbol       string          `json:"symbol"`
	Quantity     decimal.Decimal `json:"qty"`
	EntryTime    time.Time       `json:"entry_time"`
	ExitTime     time.Time       `json:"exit_time"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
	ExitPrice    decimal.Decimal `json:"exit_price"`
	PnL          decimal.Decimal `json:"pnl"`
	HoldingDays  int             `json:"holding_days"`
	EntryTradeID string          `json:"entry_trade_id"`
	ExitTradeID  string          `json:"exit_trade_id"`
}

// Bucket aggregates the gains and losses of one holding-period class.
// Breakeven matches are left out of both lists and of Count.
type Bucket struct {
	Gains       []Entry         `json:"gains"`
	Losses      []Entry         `json:"losses"`
	TotalGains  decimal.Decimal `json:"total_gains"`
	TotalLosses decimal.Decimal `json:"total_losses"`
	Net         decimal.Decimal `json:"net"`
	Count       int             `json:"count"`
}

func newBucket() Bucket {
	return Bucket{Gains: []Entry{}, Losses: []Entry{}}
}

func (b *Bucket) add(e Entry) {
	switch {
	case e.PnL.IsPositive():
		b.Gains = append(b.Gains, e)
		b.TotalGains = b.TotalGains.Add(e.PnL)
	case e.PnL.IsNegative():
		b.Losses = append(b.Losses, e)
		b.TotalLosses = b.TotalLosses.Add(e.PnL)
	default:
		return
	}
	b.Net = b.TotalGains.Add(b.TotalLosses)
	b.Count++
}

// Summary holds the headline numbers of a report.
type Summary struct {
	TotalRealizedPnL     decimal.Decimal `json:"total_realized_pnl"`
	NetShortTerm         decimal.Decimal `json:"net_short_term"`
	NetLongTerm          decimal.Decimal `json:"net_long_term"`
	ShortTermTaxableGain decimal.Decimal `json:"short_term_taxable_gain"`
	LongTermTaxableGain  decimal.Decimal `json:"long_term_taxable_gain"`
	ShortTermTax         decimal.Decimal `json:"short_term_tax"`
	LongTermTax          decimal.Decimal `json:"long_term_tax"`
	TotalTax             decimal.Decimal `json:"total_tax"`
}

// Rates echoes the rates the report was computed with.
type Rates struct {
	ShortTermRate float64 `json:"short_term_rate"`
	LongTermRate  float64 `json:"long_term_rate"`
}

// HarvestSuggestion points at realized losses that could offset gains.
// Suggestions are informational and never change the computed tax.
type HarvestSuggestion struct {
	Type          Term            `json:"type"`
	AvailableLoss decimal.Decimal `json:"available_loss"`
	CouldOffset   string          `json:"could_offset"`
}

// Notes carries the policy context of a report.
type Notes struct {
	LongTermThresholdDays int    `json:"long_term_threshold_days"`
	Disclaimer            string `json:"disclaimer"`
}

// Report is the tax classification of one year.
type Report struct {
	TaxYear           int                 `json:"tax_year"`
	ShortTerm         Bucket              `json:"short_term"`
	LongTerm          Bucket              `json:"long_term"`
	Summary           Summary             `json:"summary"`
	TaxRates          Rates               `json:"tax_rates"`
	TaxLossHarvesting []HarvestSuggestion `json:"tax_loss_harvesting"`
	Notes             Notes               `json:"notes"`
}

// Classify buckets the matches that exit in p.TaxYear by holding period and
// computes the tax owed on each bucket's positive net. A match is short-term
// when it was held for fewer than p.HoldingPeriodThresholdDays days.
// Params are assumed valid; see Params.Validate.
func Classify(matches []domain.RealizedMatch, p Params) *Report {
	r := &Report{
		TaxYear:           p.TaxYear,
		ShortTerm:         newBucket(),
		LongTerm:          newBucket(),
		TaxRates:          Rates{ShortTermRate: p.ShortTermRate, LongTermRate: p.LongTermRate},
		TaxLossHarvesting: []HarvestSuggestion{},
		Notes: Notes{
			LongTermThresholdDays: p.HoldingPeriodThresholdDays,
			Disclaimer:            Disclaimer,
		},
	}

	threshold := float64(p.HoldingPeriodThresholdDays)
	for _, m := range matches {
		if exitYear(m.ExitTime, p.Location) != p.TaxYear {
			continue
		}
		e := Entry{
			Symbol:       m.Symbol,
			Quantity:     m.Quantity,
			EntryTime:    m.EntryTime,
			ExitTime:     m.ExitTime,
			EntryPrice:   m.EntryPrice,
			ExitPrice:    m.ExitPrice,
			PnL:          m.PnL,
			HoldingDays:  int(m.HoldingPeriodDays),
			EntryTradeID: m.EntryTradeID,
			ExitTradeID:  m.ExitTradeID,
		}
		if m.HoldingPeriodDays < threshold {
			r.ShortTerm.add(e)
		} else {
			r.LongTerm.add(e)
		}
	}

	s := &r.Summary
	s.NetShortTerm = r.ShortTerm.Net
	s.NetLongTerm = r.LongTerm.Net
	s.TotalRealizedPnL = s.NetShortTerm.Add(s.NetLongTerm)
	s.ShortTermTaxableGain = decimal.Max(s.NetShortTerm, decimal.Zero)
	s.LongTermTaxableGain = decimal.Max(s.NetLongTerm, decimal.Zero)
	s.ShortTermTax = applyRate(s.ShortTermTaxableGain, p.ShortTermRate)
	s.LongTermTax = applyRate(s.LongTermTaxableGain, p.LongTermRate)
	s.TotalTax = s.ShortTermTax.Add(s.LongTermTax)

	r.TaxLossHarvesting = append(r.TaxLossHarvesting, harvest(ShortTerm, r.ShortTerm)...)
	r.TaxLossHarvesting = append(r.TaxLossHarvesting, harvest(LongTerm, r.LongTerm)...)
	return r
}

// harvest lists the offsets a bucket's losses could be used for: its own
// gains first, then the other bucket's gains when the bucket nets a loss.
func harvest(term Term, b Bucket) []HarvestSuggestion {
	var out []HarvestSuggestion
	if b.TotalLosses.IsNegative() && b.TotalGains.IsPositive() {
		out = append(out, HarvestSuggestion{
			Type:          term,
			AvailableLoss: b.TotalLosses.Abs(),
			CouldOffset:   string(term) + "_gains",
		})
	}
	if b.Net.IsNegative() {
		out = append(out, HarvestSuggestion{
			Type:          term,
			AvailableLoss: b.Net.Abs(),
			CouldOffset:   string(term.other()) + "_gains",
		})
	}
	return out
}

func applyRate(amount decimal.Decimal, ratePercent float64) decimal.Decimal {
	return amount.Mul(decimal.NewFromFloat(ratePercent)).Div(decimal.NewFromInt(100))
}

func exitYear(t time.Time, loc *time.Location) int {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Year()
}

// YearTotal is the realized P&L booked in one calendar year.
type YearTotal struct {
	Year        int             `json:"year"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	Count       int             `json:"count"`
}

// YearSummary totals realized P&L by exit year, oldest year first.
func YearSummary(matches []domain.RealizedMatch, loc *time.Location) []YearTotal {
	byYear := make(map[int]*YearTotal)
	for _, m := range matches {
		y := exitYear(m.ExitTime, loc)
		yt, ok := byYear[y]
		if !ok {
			yt = &YearTotal{Year: y}
			byYear[y] = yt
		}
		yt.RealizedPnL = yt.RealizedPnL.Add(m.PnL)
		yt.Count++
	}
	out := make([]YearTotal, 0, len(byYear))
	for _, yt := range byYear {
		out = append(out, *yt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}
