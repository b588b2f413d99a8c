// Package matching pairs opening and closing executions into realized
// matches using strict FIFO lot accounting per symbol.
package matching

import (
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"pnlEngine/internal/domain"
)

// Options tunes a matching run. The zero value matches sequentially.
type Options struct {
	// Workers is the number of symbols matched concurrently. Values below 2
	// keep matching on the calling goroutine.
	Workers int
}

// Result holds everything produced by a single matching run.
type Result struct {
	// Matches are ordered by exit time, then by the input order of the exit trade.
	Matches []domain.RealizedMatch
	// OpenLots holds the unmatched lots per symbol, oldest first.
	OpenLots map[string][]domain.Lot
	// LastPrices is the price of the latest valid trade per symbol.
	LastPrices map[string]decimal.Decimal
	// Skipped lists trades rejected by validation, in input order.
	Skipped []*domain.ValidationError
}

// NetQuantity returns the signed open quantity of a symbol: long lots count
// positive, short lots negative.
func (r *Result) NetQuantity(symbol string) decimal.Decimal {
	net := decimal.Zero
	for _, l := range r.OpenLots[domain.NormalizeSymbol(symbol)] {
		net = net.Add(l.RemainingQuantity.Mul(decimal.NewFromInt(l.Direction.Sign())))
	}
	return net
}

// Symbols returns every symbol with at least one valid trade, sorted.
func (r *Result) Symbols() []string {
	out := make([]string, 0, len(r.LastPrices))
	for s := range r.LastPrices {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// AllOpenLots flattens OpenLots in symbol order.
func (r *Result) AllOpenLots() []domain.Lot {
	var out []domain.Lot
	for _, s := range r.Symbols() {
		out = append(out, r.OpenLots[s]...)
	}
	return out
}

// sequenced is a validated trade plus its position in the caller's input.
type sequenced struct {
	domain.Trade
	seq int
}

type symbolResult struct {
	matches   []domain.RealizedMatch
	exitSeq   []int
	open      []domain.Lot
	lastPrice decimal.Decimal
}

// Match runs FIFO lot matching over all trades of one user.
//
// Invalid trades are skipped and reported in Result.Skipped; they never abort
// the run. The output depends only on the input: trades at the same instant
// are processed in input order and per-symbol results are merged in a fixed
// order regardless of Options.Workers.
func Match(trades []domain.Trade, opts Options) *Result {
	res := &Result{
		OpenLots:   make(map[string][]domain.Lot),
		LastPrices: make(map[string]decimal.Decimal),
	}

	groups := make(map[string][]sequenced)
	for i, t := range trades {
		if err := t.Validate(); err != nil {
			res.Skipped = append(res.Skipped, err.(*domain.ValidationError))
			continue
		}
		t.Symbol = domain.NormalizeSymbol(t.Symbol)
		groups[t.Symbol] = append(groups[t.Symbol], sequenced{Trade: t, seq: i})
	}

	symbols := make([]string, 0, len(groups))
	for s := range groups {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	results := make([]symbolResult, len(symbols))
	if opts.Workers > 1 && len(symbols) > 1 {
		var g errgroup.Group
		g.SetLimit(opts.Workers)
		for i, s := range symbols {
			i, s := i, s
			g.Go(func() error {
				results[i] = matchSymbol(groups[s])
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, s := range symbols {
			results[i] = matchSymbol(groups[s])
		}
	}

	var exitSeq []int
	for i, s := range symbols {
		r := results[i]
		res.Matches = append(res.Matches, r.matches...)
		exitSeq = append(exitSeq, r.exitSeq...)
		if len(r.open) > 0 {
			res.OpenLots[s] = r.open
		}
		res.LastPrices[s] = r.lastPrice
	}
	sortByExit(res.Matches, exitSeq)
	return res
}

// LastTradePrices returns the price of the latest valid trade per normalised
// symbol. Same-instant trades resolve to the one appearing last in the input.
func LastTradePrices(trades []domain.Trade) map[string]decimal.Decimal {
	type last struct {
		at    sequenced
		valid bool
	}
	latest := make(map[string]last)
	for i, t := range trades {
		if t.Validate() != nil {
			continue
		}
		sym := domain.NormalizeSymbol(t.Symbol)
		cur := latest[sym]
		if !cur.valid || !t.TradeTime.Before(cur.at.TradeTime) {
			latest[sym] = last{at: sequenced{Trade: t, seq: i}, valid: true}
		}
	}
	out := make(map[string]decimal.Decimal, len(latest))
	for sym, l := range latest {
		out[sym] = l.at.Price
	}
	return out
}

func matchSymbol(trades []sequenced) symbolResult {
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].TradeTime.Before(trades[j].TradeTime)
	})

	var (
		q   lotQueue
		out symbolResult
	)
	for _, t := range trades {
		dir := t.Side.Direction()
		feePerUnit := t.FeePerUnit()
		remaining := t.Quantity
		feesLeft := t.Fees

		for remaining.IsPositive() && !q.empty() && q.direction() != dir {
			lot := q.front()
			qty := decimal.Min(remaining, lot.RemainingQuantity)
			entryFees := feeShare(lot.fees, lot.FeesPerUnit, qty, lot.RemainingQuantity)
			exitFees := feeShare(feesLeft, feePerUnit, qty, remaining)
			fees := entryFees.Add(exitFees)
			gross := t.Price.Sub(lot.UnitPrice).Mul(qty).Mul(decimal.NewFromInt(lot.Direction.Sign()))

			out.matches = append(out.matches, domain.RealizedMatch{
				Symbol:            t.Symbol,
				Direction:         lot.Direction,
				Quantity:          qty,
				EntryPrice:        lot.UnitPrice,
				ExitPrice:         t.Price,
				EntryTime:         lot.OpenedAt,
				ExitTime:          t.TradeTime,
				EntryTradeID:      lot.SourceTradeID,
				ExitTradeID:       t.ID,
				PnL:               gross.Sub(fees),
				FeesAllocated:     fees,
				HoldingPeriodDays: domain.HoldingDays(lot.OpenedAt, t.TradeTime),
			})
			out.exitSeq = append(out.exitSeq, t.seq)

			lot.RemainingQuantity = lot.RemainingQuantity.Sub(qty)
			lot.fees = lot.fees.Sub(entryFees)
			remaining = remaining.Sub(qty)
			feesLeft = feesLeft.Sub(exitFees)
			if !lot.RemainingQuantity.IsPositive() {
				q.pop()
			}
		}

		// Whatever is left opens (or extends) a position in the trade's own direction.
		if remaining.IsPositive() {
			q.push(domain.Lot{
				Symbol:            t.Symbol,
				Direction:         dir,
				RemainingQuantity: remaining,
				UnitPrice:         t.Price,
				FeesPerUnit:       feePerUnit,
				OpenedAt:          t.TradeTime,
				SourceTradeID:     t.ID,
			}, feesLeft)
		}
		out.lastPrice = t.Price
	}
	out.open = q.snapshot()
	return out
}

// feeShare is the part of a trade's fee carried by qty of its open units.
// The slice that closes the last open units takes whatever fee is left, so the
// slices of one trade add up to its fee exactly.
func feeShare(left, perUnit, qty, open decimal.Decimal) decimal.Decimal {
	if qty.Equal(open) {
		return left
	}
	return perUnit.Mul(qty)
}

// sortByExit orders matches by exit time, then by the input position of the
// exit trade. Slices of the same exit trade keep their FIFO order.
func sortByExit(matches []domain.RealizedMatch, exitSeq []int) {
	idx := make([]int, len(matches))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ma, mb := matches[idx[a]], matches[idx[b]]
		if !ma.ExitTime.Equal(mb.ExitTime) {
			return ma.ExitTime.Before(mb.ExitTime)
		}
		return exitSeq[idx[a]] < exitSeq[idx[b]]
	})
	sorted := make([]domain.RealizedMatch, len(matches))
	for i, j := range idx {
		sorted[i] = matches[j]
	}
	copy(matches, sorted)
}
