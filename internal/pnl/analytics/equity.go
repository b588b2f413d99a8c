package analytics

// equityCurve accumulates daily P&L into one point per day.
func equityCurve(daily []PeriodPnL) []EquityPoint {
	curve := make([]EquityPoint, 0, len(daily))
	var cum float64
	for _, d := range daily {
		cum += d.PnL
		curve = append(curve, EquityPoint{Date: d.Period, Equity: cum})
	}
	return curve
}

// MaxDrawdown returns the most negative value of equity minus its running
// maximum, with the running maximum starting at the first point. It is zero
// for an empty or never-declining curve.
func MaxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0]
	var dd float64
	for _, v := range equity {
		peak = max(peak, v)
		dd = min(dd, v-peak)
	}
	return dd
}

// drawdowns tracks every decline below a prior peak along the curve and
// returns the deepest one together with the episodes.
func drawdowns(curve []EquityPoint) (float64, []DrawdownPeriod) {
	periods := make([]DrawdownPeriod, 0)
	if len(curve) == 0 {
		return 0, periods
	}

	var (
		worst   float64
		current *DrawdownPeriod
		peak    = curve[0]
	)
	for _, p := range curve {
		if p.Equity >= peak.Equity {
			if current != nil && p.Equity >= current.Peak {
				current.RecoveryDate = p.Date
				periods = append(periods, *current)
				current = nil
			}
			peak = p
			continue
		}

		depth := p.Equity - peak.Equity
		if current == nil {
			current = &DrawdownPeriod{
				PeakDate:   peak.Date,
				Peak:       peak.Equity,
				TroughDate: p.Date,
				Trough:     p.Equity,
				Depth:      depth,
			}
		} else if depth < current.Depth {
			current.TroughDate = p.Date
			current.Trough = p.Equity
			current.Depth = depth
		}
		worst = min(worst, depth)
	}

	// Close any open drawdown
	if current != nil {
		periods = append(periods, *current)
	}
	return worst, periods
}
