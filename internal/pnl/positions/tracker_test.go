package positions

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pnlEngine/internal/domain"
	"pnlEngine/internal/pnl/matching"
)

var t0 = time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func lot(symbol string, dir domain.Direction, qty, price, fpu string) domain.Lot {
	return domain.Lot{
		Symbol:            symbol,
		Direction:         dir,
		RemainingQuantity: d(qty),
		UnitPrice:         d(price),
		FeesPerUnit:       d(fpu),
		OpenedAt:          t0,
	}
}

func TestTrack_WeightedAverageCostAndLastTradeMark(t *testing.T) {
	trades := []domain.Trade{
		{ID: "1", Symbol: "AAPL", Side: domain.Buy, Quantity: d("10"), Price: d("100"), Fees: d("10"), TradeTime: t0},
		{ID: "2", Symbol: "AAPL", Side: domain.Buy, Quantity: d("10"), Price: d("110"), Fees: d("0"), TradeTime: t0.Add(time.Hour)},
		{ID: "3", Symbol: "AAPL", Side: domain.Sell, Quantity: d("5"), Price: d("120"), Fees: d("0"), TradeTime: t0.Add(2 * time.Hour)},
	}
	res := matching.Match(trades, matching.Options{})

	positions, notes, err := Track(res.OpenLots, trades, nil, true)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	p := positions[0]
	assert.Equal(t, "AAPL", p.Symbol)
	assert.Equal(t, domain.Long, p.Direction)
	assert.True(t, p.Quantity.Equal(d("15")))
	// (5 * 101 + 10 * 110) / 15
	assert.True(t, p.AvgCost.Equal(d("107")), "avg cost %s", p.AvgCost)
	assert.True(t, p.MarkPrice.Equal(d("120")))
	assert.True(t, p.UnrealizedPnL.Equal(d("195")), "unrealized %s", p.UnrealizedPnL)
	assert.Equal(t, domain.MarkFromLastTrade, p.MarkSource)
	assert.Equal(t, []string{"AAPL"}, notes.MissingMarks)
	assert.Empty(t, notes.FallbackToCost)
}

func TestTrack_OverrideWinsOverLastTrade(t *testing.T) {
	lots := map[string][]domain.Lot{"TSLA": {lot("TSLA", domain.Short, "4", "50", "0.5")}}
	trades := []domain.Trade{
		{ID: "1", Symbol: "TSLA", Side: domain.Sell, Quantity: d("4"), Price: d("50"), Fees: d("2"), TradeTime: t0},
	}

	positions, notes, err := Track(lots, trades, map[string]decimal.Decimal{"tsla": d("45")}, true)
	require.NoError(t, err)
	require.Len(t, positions, 1)

	p := positions[0]
	assert.Equal(t, domain.Short, p.Direction)
	assert.True(t, p.AvgCost.Equal(d("49.5")))
	assert.True(t, p.MarkPrice.Equal(d("45")))
	// short gains when the mark drops below the proceeds per unit
	assert.True(t, p.UnrealizedPnL.Equal(d("18")), "unrealized %s", p.UnrealizedPnL)
	assert.Equal(t, domain.MarkFromOverride, p.MarkSource)
	assert.Empty(t, notes.MissingMarks)
}

func TestTrack_NonPositiveOverrideIgnored(t *testing.T) {
	lots := map[string][]domain.Lot{"AAPL": {lot("AAPL", domain.Long, "1", "10", "0")}}
	trades := []domain.Trade{
		{ID: "1", Symbol: "AAPL", Side: domain.Buy, Quantity: d("1"), Price: d("10"), Fees: d("0"), TradeTime: t0},
	}

	positions, _, err := Track(lots, trades, map[string]decimal.Decimal{"AAPL": decimal.Zero}, true)
	require.NoError(t, err)
	assert.Equal(t, domain.MarkFromLastTrade, positions[0].MarkSource)
}

func TestTrack_MissingMark(t *testing.T) {
	lots := map[string][]domain.Lot{"XYZ": {lot("XYZ", domain.Long, "3", "20", "0")}}

	t.Run("strict fails", func(t *testing.T) {
		_, _, err := Track(lots, nil, nil, true)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrMarkPriceMissing)

		var missing *domain.MarkPriceMissingError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "XYZ", missing.Symbol)
	})

	t.Run("non-strict falls back to cost", func(t *testing.T) {
		positions, notes, err := Track(lots, nil, nil, false)
		require.NoError(t, err)
		require.Len(t, positions, 1)
		assert.True(t, positions[0].MarkPrice.Equal(d("20")))
		assert.True(t, positions[0].UnrealizedPnL.IsZero())
		assert.Equal(t, domain.MarkFromCost, positions[0].MarkSource)
		assert.Equal(t, []string{"XYZ"}, notes.FallbackToCost)
		assert.Equal(t, []string{"XYZ"}, notes.MissingMarks)
	})
}

func TestTrack_SortedBySymbolThenDirection(t *testing.T) {
	lots := map[string][]domain.Lot{
		"MSFT": {lot("MSFT", domain.Short, "1", "10", "0")},
		"AAPL": {lot("AAPL", domain.Short, "1", "10", "0"), lot("AAPL", domain.Long, "1", "10", "0")},
	}

	positions, _, err := Track(lots, nil, map[string]decimal.Decimal{"AAPL": d("10"), "MSFT": d("10")}, true)
	require.NoError(t, err)
	require.Len(t, positions, 3)
	assert.Equal(t, "AAPL", positions[0].Symbol)
	assert.Equal(t, domain.Long, positions[0].Direction)
	assert.Equal(t, domain.Short, positions[1].Direction)
	assert.Equal(t, "MSFT", positions[2].Symbol)
	assert.True(t, TotalUnrealized(positions).IsZero())
}

func TestTrack_NoLots(t *testing.T) {
	positions, notes, err := Track(nil, nil, nil, true)
	require.NoError(t, err)
	assert.Empty(t, positions)
	assert.NotNil(t, notes.MissingMarks)
	assert.NotNil(t, notes.FallbackToCost)
}
