package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a malformed trade or lot that was rejected.
	ErrValidation = errors.New("validation failed")
	// ErrMarkPriceMissing marks an open symbol that could not be valued in strict mode.
	ErrMarkPriceMissing = errors.New("mark price missing")
)

// ValidationError describes a single rejected input record.
// It is reported alongside results instead of aborting the computation.
type ValidationError struct {
	TradeID string `json:"trade_id"`
	Symbol  string `json:"symbol,omitempty"`
	Field   string `json:"field"`
	Reason  string `json:"reason"`
}

func (e *ValidationError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("trade %s (%s): invalid %s: %s", e.TradeID, e.Symbol, e.Field, e.Reason)
	}
	return fmt.Sprintf("trade %s: invalid %s: %s", e.TradeID, e.Field, e.Reason)
}

// Unwrap lets callers match with errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error { return ErrValidation }

// MarkPriceMissingError is returned in strict mode when an open symbol has
// neither an override nor a trade to take its price from.
type MarkPriceMissingError struct {
	Symbol string
}

func (e *MarkPriceMissingError) Error() string {
	return fmt.Sprintf("no mark price for open symbol %s", e.Symbol)
}

func (e *MarkPriceMissingError) Unwrap() error { return ErrMarkPriceMissing }
