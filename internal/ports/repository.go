package ports

import (
	"context"

	"pnlEngine/internal/domain"
)

// TradeRepository defines the interface for storing and retrieving a user's executions.
type TradeRepository interface {
	// CreateTrade saves a new trade for the user. The trade ID is assigned when empty.
	CreateTrade(ctx context.Context, userID string, trade *domain.Trade) (string, error)
	// ListTrades retrieves all trades of a user in insertion order.
	ListTrades(ctx context.Context, userID string) ([]domain.Trade, error)
}

// JournalRepository stores the strategy/emotion tags attached to trades.
type JournalRepository interface {
	// TagTrade creates or replaces the journal tag of a trade.
	TagTrade(ctx context.Context, userID string, tag domain.JournalTag) error
	// JournalTags returns the user's tags keyed by trade ID.
	JournalTags(ctx context.Context, userID string) (map[string]domain.JournalTag, error)
}

// FundRepository stores mutual-fund purchase lots.
type FundRepository interface {
	// CreateFundLot saves a new fund lot for the user and returns its ID.
	CreateFundLot(ctx context.Context, userID string, lot *domain.FundLot) (string, error)
	// ListFundLots retrieves all fund lots of a user ordered by investment date.
	ListFundLots(ctx context.Context, userID string) ([]domain.FundLot, error)
}
