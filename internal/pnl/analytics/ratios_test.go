package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pnlEngine/internal/domain"
)

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"rising", []float64{1, 2, 3}, 0},
		{"peak then trough", []float64{100, 150, 90, 200}, -60},
		{"starts at first point", []float64{-50, -80, -20}, -30},
		{"two dips", []float64{10, 5, 20, 8, 30}, -12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaxDrawdown(tt.equity))
		})
	}
}

func TestRatioGuards(t *testing.T) {
	assert.Nil(t, ratio(1, 0))
	assert.Nil(t, finite(math.NaN()))
	assert.Nil(t, finite(math.Inf(1)))
	require.NotNil(t, ratio(3, 2))
	assert.Equal(t, 1.5, *ratio(3, 2))
	assert.Nil(t, sharpeRatio([]float64{0.1}, 0))
	assert.Nil(t, sortinoRatio([]float64{0.1, 0.2, -0.1}, 0))
	assert.Nil(t, calmarRatio([]float64{0.1, 0.2}, 0, 1000))
}

func TestSampleStdDev(t *testing.T) {
	assert.InDelta(t, 1.0, sampleStdDev([]float64{1, 2, 3}), 1e-12)
	assert.InDelta(t, 0.0, sampleStdDev([]float64{4, 4}), 1e-12)
}

func TestWinLossDistribution(t *testing.T) {
	dist := WinLossDistribution(onDays(-100, 0, 100, 300))

	require.Len(t, dist.Bins, DistributionBins)
	assert.Equal(t, 1, dist.Bins[0].Losses)
	assert.Equal(t, 1, dist.Bins[10].Wins)
	assert.Equal(t, 1, dist.Bins[DistributionBins-1].Wins)
	assert.Equal(t, "-100 to -80", dist.Bins[0].Label)

	var wins, losses int
	for _, b := range dist.Bins {
		wins += b.Wins
		losses += b.Losses
	}
	assert.Equal(t, 2, wins)
	assert.Equal(t, 1, losses)

	assert.Equal(t, DistributionSummary{
		TotalWins:   2,
		TotalLosses: 1,
		AvgWin:      200,
		AvgLoss:     -100,
		MaxWin:      300,
		MaxLoss:     -100,
	}, dist.Summary)
}

func TestWinLossDistribution_Empty(t *testing.T) {
	dist := WinLossDistribution([]domain.RealizedMatch{realized(0, day0)})
	assert.Empty(t, dist.Bins)
	assert.NotNil(t, dist.Bins)
	assert.Zero(t, dist.Summary.TotalWins)
}

func TestWinLossDistribution_SingleValue(t *testing.T) {
	dist := WinLossDistribution(onDays(50, 50))
	require.Len(t, dist.Bins, DistributionBins)
	assert.Equal(t, 2, dist.Bins[0].Wins)
}
