package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// MarkPriceSource resolves current mark prices for open symbols.
// The engine never calls it; the application layer fetches marks up front
// and passes them in as overrides.
type MarkPriceSource interface {
	// MarkPrices returns prices keyed by normalised symbol. Symbols the source
	// does not know are omitted from the map rather than reported as errors.
	MarkPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}

// TickerSource looks up the last traded price of a single symbol. The report
// service asks it for open symbols its MarkPriceSource could not price.
type TickerSource interface {
	GetTickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}
