package matching

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"pnlEngine/internal/domain"
)

func genTrades(t *rapid.T) []domain.Trade {
	n := rapid.IntRange(0, 60).Draw(t, "n")
	symbols := []string{"AAPL", "MSFT", "BTCUSDT"}
	trades := make([]domain.Trade, 0, n)
	for i := 0; i < n; i++ {
		side := domain.Buy
		if rapid.Bool().Draw(t, "sell") {
			side = domain.Sell
		}
		trades = append(trades, domain.Trade{
			ID:        fmt.Sprintf("t%d", i),
			Symbol:    rapid.SampledFrom(symbols).Draw(t, "symbol"),
			Side:      side,
			Quantity:  decimal.NewFromInt(rapid.Int64Range(1, 50).Draw(t, "qty")),
			Price:     decimal.NewFromInt(rapid.Int64Range(1, 500).Draw(t, "price")),
			Fees:      decimal.NewFromInt(rapid.Int64Range(0, 5).Draw(t, "fees")),
			TradeTime: t0.Add(time.Duration(rapid.IntRange(0, 30).Draw(t, "minute")) * time.Minute),
		})
	}
	return trades
}

// Every opened unit is either still open or closed by exactly one opposite unit.
func TestMatch_ConservationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		trades := genTrades(t)
		res := Match(trades, Options{})

		traded := map[string]decimal.Decimal{}
		net := map[string]decimal.Decimal{}
		for _, tr := range trades {
			traded[tr.Symbol] = traded[tr.Symbol].Add(tr.Quantity)
			net[tr.Symbol] = net[tr.Symbol].Add(tr.Quantity.Mul(decimal.NewFromInt(tr.Side.Direction().Sign())))
		}
		matched := map[string]decimal.Decimal{}
		for _, m := range res.Matches {
			matched[m.Symbol] = matched[m.Symbol].Add(m.Quantity)
		}

		for sym, total := range traded {
			open := decimal.Zero
			for _, l := range res.OpenLots[sym] {
				open = open.Add(l.RemainingQuantity)
			}
			if got := matched[sym].Mul(decimal.NewFromInt(2)).Add(open); !got.Equal(total) {
				t.Fatalf("%s: 2*matched+open = %s, traded %s", sym, got, total)
			}
			if got := res.NetQuantity(sym); !got.Equal(net[sym]) {
				t.Fatalf("%s: net open %s, want %s", sym, got, net[sym])
			}
			if !open.Equal(net[sym].Abs()) {
				t.Fatalf("%s: open %s, |net| %s", sym, open, net[sym].Abs())
			}
		}
	})
}

func TestMatch_DeterminismProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		trades := genTrades(t)
		workers := rapid.IntRange(0, 4).Draw(t, "workers")

		first := Match(trades, Options{})
		second := Match(trades, Options{Workers: workers})
		if len(first.Matches) != len(second.Matches) {
			t.Fatalf("match count differs: %d vs %d", len(first.Matches), len(second.Matches))
		}
		for i := range first.Matches {
			a, b := first.Matches[i], second.Matches[i]
			if a.EntryTradeID != b.EntryTradeID || a.ExitTradeID != b.ExitTradeID || !a.PnL.Equal(b.PnL) || !a.Quantity.Equal(b.Quantity) {
				t.Fatalf("match %d differs: %+v vs %+v", i, a, b)
			}
		}
	})
}

// Realized P&L plus fees equals the signed price move of every matched slice.
func TestMatch_PnLIdentityProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		res := Match(genTrades(t), Options{})
		for _, m := range res.Matches {
			gross := m.ExitPrice.Sub(m.EntryPrice).Mul(m.Quantity).Mul(decimal.NewFromInt(m.Direction.Sign()))
			if !m.PnL.Add(m.FeesAllocated).Equal(gross) {
				t.Fatalf("pnl %s + fees %s != gross %s", m.PnL, m.FeesAllocated, gross)
			}
			if m.ExitTime.Before(m.EntryTime) {
				t.Fatalf("exit %s before entry %s", m.ExitTime, m.EntryTime)
			}
		}
	})
}
