// Package positions values the lots left open after matching.
package positions

import (
	"sort"

	"github.com/shopspring/decimal"

	"pnlEngine/internal/domain"
	"pnlEngine/internal/pnl/matching"
)

// Notes is the side-channel describing how marks were resolved.
type Notes struct {
	// MissingMarks lists symbols that had no override and were valued some other way.
	MissingMarks []string `json:"missing_marks"`
	// FallbackToCost lists symbols valued at their average cost (non-strict mode only).
	FallbackToCost []string `json:"fallback_to_cost"`
}

type positionKey struct {
	symbol    string
	direction domain.Direction
}

// Track builds one OpenPosition per symbol and direction from the open lots.
//
// The mark price of a symbol is the positive override in marks when present,
// otherwise the price of its most recent trade. A symbol with neither fails
// with *domain.MarkPriceMissingError when strict is set; otherwise it is valued
// at its average cost and reported in Notes.FallbackToCost.
func Track(lots map[string][]domain.Lot, trades []domain.Trade, marks map[string]decimal.Decimal, strict bool) ([]domain.OpenPosition, Notes, error) {
	notes := Notes{MissingMarks: []string{}, FallbackToCost: []string{}}

	overrides := make(map[string]decimal.Decimal, len(marks))
	for sym, price := range marks {
		if price.IsPositive() {
			overrides[domain.NormalizeSymbol(sym)] = price
		}
	}
	lastPrices := matching.LastTradePrices(trades)

	type agg struct {
		qty  decimal.Decimal
		cost decimal.Decimal
	}
	totals := make(map[positionKey]*agg)
	var keys []positionKey
	for sym, symLots := range lots {
		sym = domain.NormalizeSymbol(sym)
		for _, l := range symLots {
			if !l.RemainingQuantity.IsPositive() {
				continue
			}
			k := positionKey{symbol: sym, direction: l.Direction}
			a, ok := totals[k]
			if !ok {
				a = &agg{}
				totals[k] = a
				keys = append(keys, k)
			}
			a.qty = a.qty.Add(l.RemainingQuantity)
			a.cost = a.cost.Add(l.EffectiveUnitCost().Mul(l.RemainingQuantity))
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].symbol != keys[j].symbol {
			return keys[i].symbol < keys[j].symbol
		}
		return keys[i].direction < keys[j].direction
	})

	noted := make(map[string]bool)
	positions := make([]domain.OpenPosition, 0, len(keys))
	for _, k := range keys {
		a := totals[k]
		avgCost := a.cost.Div(a.qty)

		mark, source := avgCost, domain.MarkFromCost
		if p, ok := overrides[k.symbol]; ok {
			mark, source = p, domain.MarkFromOverride
		} else if p, ok := lastPrices[k.symbol]; ok {
			mark, source = p, domain.MarkFromLastTrade
		} else if strict {
			return nil, notes, &domain.MarkPriceMissingError{Symbol: k.symbol}
		}

		if source != domain.MarkFromOverride && !noted[k.symbol] {
			noted[k.symbol] = true
			notes.MissingMarks = append(notes.MissingMarks, k.symbol)
			if source == domain.MarkFromCost {
				notes.FallbackToCost = append(notes.FallbackToCost, k.symbol)
			}
		}

		positions = append(positions, domain.OpenPosition{
			Symbol:        k.symbol,
			Direction:     k.direction,
			Quantity:      a.qty,
			AvgCost:       avgCost,
			MarkPrice:     mark,
			UnrealizedPnL: mark.Sub(avgCost).Mul(a.qty).Mul(decimal.NewFromInt(k.direction.Sign())),
			MarkSource:    source,
		})
	}
	return positions, notes, nil
}

// TotalUnrealized sums the unrealized P&L of all positions.
func TotalUnrealized(positions []domain.OpenPosition) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(p.UnrealizedPnL)
	}
	return total
}
