package ports

import "errors"

// Sentinel errors shared by the service and its adapters. Adapters wrap the
// underlying driver or API error with one of these using %w.
var (
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Mark price source
	ErrMarketDataUnavailable = errors.New("market data source is unavailable")
	ErrConnectionFailed      = errors.New("failed to connect to the market data source")
	ErrRateLimited           = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed  = errors.New("market data authentication failed (check API keys)")
	ErrUnknownSymbol         = errors.New("symbol not known to the market data source")

	// Trade store
	ErrDuplicateEntry = errors.New("record already stored")
	ErrDBConnection   = errors.New("trade store connection error")
	ErrQueryFailed    = errors.New("trade store query failed")
	ErrUpdateFailed   = errors.New("trade store update failed")
)
