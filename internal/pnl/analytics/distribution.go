package analytics

import (
	"fmt"

	"pnlEngine/internal/domain"
)

// DistributionBins is the number of equal-width histogram bins.
const DistributionBins = 20

// Bin counts wins and losses whose P&L falls within [From, To).
// The last bin also holds the maximum.
type Bin struct {
	Index  int     `json:"bin_index"`
	Label  string  `json:"bin"`
	From   float64 `json:"from"`
	To     float64 `json:"to"`
	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`
}

// DistributionSummary describes the extremes of the win/loss population.
type DistributionSummary struct {
	TotalWins   int     `json:"total_wins"`
	TotalLosses int     `json:"total_losses"`
	AvgWin      float64 `json:"avg_win"`
	AvgLoss     float64 `json:"avg_loss"`
	MaxWin      float64 `json:"max_win"`
	MaxLoss     float64 `json:"max_loss"`
}

// Distribution is a histogram of non-zero realized P&L values.
type Distribution struct {
	Bins    []Bin               `json:"distribution"`
	Summary DistributionSummary `json:"summary"`
}

// WinLossDistribution buckets winning and losing matches into
// DistributionBins equal-width bins spanning the observed P&L range.
// Breakeven matches are ignored. No bins are returned without data.
func WinLossDistribution(matches []domain.RealizedMatch) *Distribution {
	dist := &Distribution{Bins: make([]Bin, 0)}

	var values []float64
	var sumWin, sumLoss float64
	s := &dist.Summary
	for _, m := range matches {
		v := m.PnLFloat()
		switch {
		case v > 0:
			s.TotalWins++
			sumWin += v
			s.MaxWin = max(s.MaxWin, v)
		case v < 0:
			s.TotalLosses++
			sumLoss += v
			s.MaxLoss = min(s.MaxLoss, v)
		default:
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return dist
	}
	if s.TotalWins > 0 {
		s.AvgWin = sumWin / float64(s.TotalWins)
	}
	if s.TotalLosses > 0 {
		s.AvgLoss = sumLoss / float64(s.TotalLosses)
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	width := (hi - lo) / DistributionBins
	if width == 0 {
		width = 1
	}

	for i := 0; i < DistributionBins; i++ {
		from := lo + float64(i)*width
		to := lo + float64(i+1)*width
		dist.Bins = append(dist.Bins, Bin{
			Index: i,
			Label: fmt.Sprintf("%.0f to %.0f", from, to),
			From:  from,
			To:    to,
		})
	}
	for _, v := range values {
		i := int((v - lo) / width)
		if i >= DistributionBins {
			i = DistributionBins - 1
		}
		if v > 0 {
			dist.Bins[i].Wins++
		} else {
			dist.Bins[i].Losses++
		}
	}
	return dist
}
