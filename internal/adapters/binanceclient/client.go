package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"pnlEngine/internal/domain"
	"pnlEngine/internal/ports"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"
)

// Client implements ports.MarkPriceSource and ports.TickerSource on top of the
// Binance USD-M futures public endpoints.
type Client struct {
	futuresClient *futures.Client
	logger        ports.Logger
	timeout       time.Duration
}

var (
	_ ports.MarkPriceSource = (*Client)(nil)
	_ ports.TickerSource    = (*Client)(nil)
)

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	// BaseURL overrides the production/testnet endpoint when set.
	BaseURL string
	Logger  ports.Logger
	Timeout time.Duration // Per-request timeout (e.g., 10 * time.Second)
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client: %w", ports.ErrConfigurationError)
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		// Mark prices are public; keys are only needed for rate-limit headroom.
		cfg.Logger.Debug(context.Background(), "APIKey or SecretKey is empty. Client will only use public endpoints.")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)

	switch {
	case cfg.BaseURL != "":
		client.BaseURL = cfg.BaseURL
	case cfg.UseTestnet:
		client.BaseURL = baseURLTestnet
	default:
		client.BaseURL = baseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance client configured", map[string]interface{}{"baseURL": client.BaseURL, "testnet": cfg.UseTestnet})

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		futuresClient: client,
		logger:        cfg.Logger,
		timeout:       timeout,
	}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp for this request is outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022, -2014, -2015: // Bad signature or API key
			mappedErr = ports.ErrAuthenticationFailed
		case -1121: // Invalid symbol
			mappedErr = ports.ErrUnknownSymbol
		case -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1125, -1127, -1128, -1130:
			mappedErr = ports.ErrInvalidRequest
		default:
			mappedErr = ports.ErrMarketDataUnavailable
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	// Handle non-API errors (network, context cancellation, etc.)
	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// Ping checks the connectivity to the Binance API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.futuresClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// GetMarkPrice retrieves the current mark price for a given symbol.
func (c *Client) GetMarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	op := "GetMarkPrice"
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	symbol = domain.NormalizeSymbol(symbol)
	tickers, err := c.futuresClient.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, c.handleError(ctx, err, op)
	}
	if len(tickers) == 0 {
		return decimal.Zero, c.handleError(ctx, fmt.Errorf("no price data returned for symbol %s: %w", symbol, ports.ErrUnknownSymbol), op)
	}
	return c.parsePrice(ctx, tickers[0].MarkPrice, op)
}

// GetTickerPrice retrieves the last ticker price for a given symbol.
func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	op := "GetTickerPrice"
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	symbol = domain.NormalizeSymbol(symbol)
	tickers, err := c.futuresClient.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, c.handleError(ctx, err, op)
	}
	if len(tickers) == 0 {
		return decimal.Zero, c.handleError(ctx, fmt.Errorf("no ticker data returned for symbol %s: %w", symbol, ports.ErrUnknownSymbol), op)
	}
	return c.parsePrice(ctx, tickers[0].LastPrice, op)
}

// MarkPrices returns the mark prices of the requested symbols. A single symbol
// is read from its own premium index entry; several symbols share one call
// listing every index. Unknown symbols and non-positive prices are omitted.
func (c *Client) MarkPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	op := "MarkPrices"
	prices := make(map[string]decimal.Decimal, len(symbols))
	if len(symbols) == 0 {
		return prices, nil
	}

	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[domain.NormalizeSymbol(s)] = true
	}

	if len(wanted) == 1 {
		sym := domain.NormalizeSymbol(symbols[0])
		price, err := c.GetMarkPrice(ctx, sym)
		if errors.Is(err, ports.ErrUnknownSymbol) {
			c.logger.Debug(ctx, op+" symbol not listed", map[string]interface{}{"symbol": sym})
			return prices, nil
		}
		if err != nil {
			return nil, err
		}
		if price.IsPositive() {
			prices[sym] = price
		} else {
			c.logger.Warn(ctx, "Skipping unusable mark price", map[string]interface{}{"symbol": sym, "markPrice": price.String()})
		}
		return prices, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	indexes, err := c.futuresClient.NewPremiumIndexService().Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	for _, idx := range indexes {
		sym := domain.NormalizeSymbol(idx.Symbol)
		if !wanted[sym] {
			continue
		}
		price, err := decimal.NewFromString(idx.MarkPrice)
		if err != nil || !price.IsPositive() {
			c.logger.Warn(ctx, "Skipping unusable mark price", map[string]interface{}{"symbol": sym, "markPrice": idx.MarkPrice})
			continue
		}
		prices[sym] = price
	}
	c.logger.Debug(ctx, op+" resolved", map[string]interface{}{"requested": len(wanted), "resolved": len(prices)})
	return prices, nil
}

func (c *Client) parsePrice(ctx context.Context, raw, op string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		// This is an internal parsing error, not an API error
		return decimal.Zero, c.handleError(ctx, fmt.Errorf("could not parse price '%s': %w", raw, err), op)
	}
	return price, nil
}
