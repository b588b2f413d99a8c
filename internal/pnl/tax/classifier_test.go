package tax

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pnlEngine/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func match(pnl string, holdingDays float64, exit time.Time) domain.RealizedMatch {
	entry := exit.Add(-time.Duration(holdingDays * 24 * float64(time.Hour)))
	return domain.RealizedMatch{
		Symbol:            "AAPL",
		Direction:         domain.Long,
		Quantity:          d("1"),
		EntryTime:         entry,
		ExitTime:          exit,
		PnL:               d(pnl),
		HoldingPeriodDays: holdingDays,
		EntryTradeID:      "in",
		ExitTradeID:       "out",
	}
}

func TestClassify_LongTermGainUsesLongTermRate(t *testing.T) {
	exit := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	r := Classify([]domain.RealizedMatch{match("1000", 400, exit)}, DefaultParams(2024))

	assert.Equal(t, 0, r.ShortTerm.Count)
	assert.True(t, r.Summary.ShortTermTax.IsZero())
	assert.Equal(t, 1, r.LongTerm.Count)
	assert.True(t, r.Summary.LongTermTaxableGain.Equal(d("1000")))
	assert.True(t, r.Summary.LongTermTax.Equal(d("100")), "long-term tax %s", r.Summary.LongTermTax)
	assert.True(t, r.Summary.TotalTax.Equal(d("100")))
	assert.Equal(t, 10.0, r.TaxRates.LongTermRate)
}

func TestClassify_ThresholdBoundary(t *testing.T) {
	exit := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	r := Classify([]domain.RealizedMatch{
		match("10", 364.99, exit),
		match("20", 365, exit),
	}, DefaultParams(2024))

	require.Len(t, r.ShortTerm.Gains, 1)
	assert.True(t, r.ShortTerm.Gains[0].PnL.Equal(d("10")))
	assert.Equal(t, 364, r.ShortTerm.Gains[0].HoldingDays)
	require.Len(t, r.LongTerm.Gains, 1)
	assert.True(t, r.LongTerm.Gains[0].PnL.Equal(d("20")))
}

func TestClassify_FiltersByExitYear(t *testing.T) {
	r := Classify([]domain.RealizedMatch{
		match("50", 10, time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC)),
		match("70", 10, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)),
	}, DefaultParams(2024))

	assert.Equal(t, 1, r.ShortTerm.Count)
	assert.True(t, r.Summary.TotalRealizedPnL.Equal(d("70")))
}

func TestClassify_LocationShiftsYear(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	p := DefaultParams(2024)
	p.Location = tokyo

	r := Classify([]domain.RealizedMatch{
		match("50", 10, time.Date(2023, 12, 31, 20, 0, 0, 0, time.UTC)),
	}, p)
	assert.Equal(t, 1, r.ShortTerm.Count)
}

func TestClassify_NetAndTaxableGain(t *testing.T) {
	exit := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	r := Classify([]domain.RealizedMatch{
		match("300", 5, exit),
		match("-100", 5, exit),
		match("0", 5, exit),
		match("-500", 500, exit),
		match("200", 500, exit),
	}, DefaultParams(2024))

	assert.True(t, r.ShortTerm.TotalGains.Equal(d("300")))
	assert.True(t, r.ShortTerm.TotalLosses.Equal(d("-100")))
	assert.True(t, r.ShortTerm.Net.Equal(d("200")))
	assert.Equal(t, 2, r.ShortTerm.Count)
	assert.True(t, r.Summary.ShortTermTax.Equal(d("30")))

	assert.True(t, r.LongTerm.Net.Equal(d("-300")))
	assert.True(t, r.Summary.LongTermTaxableGain.IsZero())
	assert.True(t, r.Summary.LongTermTax.IsZero())
	assert.True(t, r.Summary.TotalRealizedPnL.Equal(d("-100")))

	want := []struct {
		term   Term
		loss   string
		offset string
	}{
		{ShortTerm, "100", "short_term_gains"},
		{LongTerm, "500", "long_term_gains"},
		{LongTerm, "300", "short_term_gains"},
	}
	require.Len(t, r.TaxLossHarvesting, len(want))
	for i, w := range want {
		got := r.TaxLossHarvesting[i]
		assert.Equal(t, w.term, got.Type)
		assert.True(t, got.AvailableLoss.Equal(d(w.loss)), "suggestion %d loss %s", i, got.AvailableLoss)
		assert.Equal(t, w.offset, got.CouldOffset)
	}
}

func TestClassify_EmptyInput(t *testing.T) {
	r := Classify(nil, DefaultParams(2024))
	assert.Equal(t, 2024, r.TaxYear)
	assert.NotNil(t, r.ShortTerm.Gains)
	assert.NotNil(t, r.TaxLossHarvesting)
	assert.True(t, r.Summary.TotalTax.IsZero())
	assert.Equal(t, 365, r.Notes.LongTermThresholdDays)
	assert.Equal(t, Disclaimer, r.Notes.Disclaimer)
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr bool
	}{
		{"defaults", func(*Params) {}, false},
		{"zero rates", func(p *Params) { p.ShortTermRate, p.LongTermRate = 0, 0 }, false},
		{"negative rate", func(p *Params) { p.ShortTermRate = -1 }, true},
		{"rate above 100", func(p *Params) { p.LongTermRate = 101 }, true},
		{"zero threshold", func(p *Params) { p.HoldingPeriodThresholdDays = 0 }, true},
		{"missing year", func(p *Params) { p.TaxYear = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams(2024)
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestYearSummary(t *testing.T) {
	out := YearSummary([]domain.RealizedMatch{
		match("10", 1, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)),
		match("-4", 1, time.Date(2023, 7, 5, 0, 0, 0, 0, time.UTC)),
		match("5", 1, time.Date(2024, 9, 5, 0, 0, 0, 0, time.UTC)),
	}, nil)

	require.Len(t, out, 2)
	assert.Equal(t, 2023, out[0].Year)
	assert.True(t, out[0].RealizedPnL.Equal(d("-4")))
	assert.Equal(t, 2024, out[1].Year)
	assert.Equal(t, 2, out[1].Count)
	assert.True(t, out[1].RealizedPnL.Equal(d("15")))
}
