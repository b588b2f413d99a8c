package analytics

import "math"

const tradingDaysPerYear = 252.0

// finite wraps v, mapping NaN and infinities to nil.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ratio returns num/den, or nil when den is zero.
func ratio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	return finite(num / den)
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStdDev is the n-1 standard deviation. Callers guarantee len(xs) >= 2.
func sampleStdDev(xs []float64) float64 {
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// dailyReturns turns per-day realized P&L into returns on the capital base.
func dailyReturns(daily []PeriodPnL, capital float64) []float64 {
	out := make([]float64, len(daily))
	for i, d := range daily {
		out[i] = d.PnL / capital
	}
	return out
}

func excess(returns []float64, rf float64) []float64 {
	out := make([]float64, len(returns))
	for i, r := range returns {
		out[i] = r - rf
	}
	return out
}

// sharpeRatio annualises mean excess daily return over its sample deviation.
func sharpeRatio(returns []float64, rf float64) *float64 {
	if len(returns) < 2 {
		return nil
	}
	ex := excess(returns, rf)
	sd := sampleStdDev(ex)
	if sd == 0 {
		return nil
	}
	return finite(mean(ex) / sd * math.Sqrt(tradingDaysPerYear))
}

// sortinoRatio is sharpeRatio with the deviation of negative excess returns only.
func sortinoRatio(returns []float64, rf float64) *float64 {
	if len(returns) < 2 {
		return nil
	}
	ex := excess(returns, rf)
	var downside []float64
	for _, r := range ex {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) < 2 {
		return nil
	}
	sd := sampleStdDev(downside)
	if sd == 0 {
		return nil
	}
	return finite(mean(ex) / sd * math.Sqrt(tradingDaysPerYear))
}

// calmarRatio divides the annualised mean daily return by the drawdown
// expressed as a fraction of the capital base.
func calmarRatio(returns []float64, drawdown, capital float64) *float64 {
	if len(returns) == 0 || drawdown == 0 {
		return nil
	}
	annualised := mean(returns) * tradingDaysPerYear
	return ratio(annualised, math.Abs(drawdown)/capital)
}
