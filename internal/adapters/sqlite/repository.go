package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3" // SQLite driver

	"pnlEngine/internal/domain"
	"pnlEngine/internal/ports"
)

// Repository implements the ports.TradeRepository, ports.JournalRepository and
// ports.FundRepository interfaces using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

var (
	_ ports.TradeRepository   = (*Repository)(nil)
	_ ports.JournalRepository = (*Repository)(nil)
	_ ports.FundRepository    = (*Repository)(nil)
)

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository: %w", ports.ErrConfigurationError)
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/pnl.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %v: %w", dbPath, err, ports.ErrDBConnection)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %v: %w", dbPath, err, ports.ErrDBConnection)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Debug(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
// Money and quantities are stored as decimal strings so they round-trip exactly.
// Record IDs are unique per user.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trades (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity TEXT NOT NULL,
		price TEXT NOT NULL,
		fees TEXT NOT NULL DEFAULT '0',
		trade_time TIMESTAMP NOT NULL,
		UNIQUE (user_id, id)
	);

	CREATE TABLE IF NOT EXISTS journal_tags (
		user_id TEXT NOT NULL,
		trade_id TEXT NOT NULL,
		strategy TEXT NOT NULL DEFAULT '',
		emotion TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (user_id, trade_id),
		FOREIGN KEY (user_id, trade_id) REFERENCES trades (user_id, id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS fund_lots (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		scheme_code TEXT NOT NULL,
		scheme_name TEXT NOT NULL DEFAULT '',
		units TEXT NOT NULL,
		nav TEXT NOT NULL,
		fees TEXT NOT NULL DEFAULT '0',
		investment_date TIMESTAMP NOT NULL,
		UNIQUE (user_id, id)
	);
	-- Add indexes for common lookups
	CREATE INDEX IF NOT EXISTS idx_trades_user ON trades (user_id, seq);
	CREATE INDEX IF NOT EXISTS idx_fund_lots_user ON fund_lots (user_id, investment_date);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %v: %w", err, ports.ErrQueryFailed)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- TradeRepository Implementation ---

// CreateTrade saves a new trade record and returns its ID. A missing ID is
// generated; the stored symbol is normalised.
func (r *Repository) CreateTrade(ctx context.Context, userID string, trade *domain.Trade) (string, error) {
	const query = `
	INSERT INTO trades (id, user_id, symbol, side, quantity, price, fees, trade_time)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	if userID == "" {
		return "", fmt.Errorf("user id is required: %w", ports.ErrInvalidRequest)
	}
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}
	trade.Symbol = domain.NormalizeSymbol(trade.Symbol)

	_, err := r.db.ExecContext(ctx, query,
		trade.ID, userID, trade.Symbol, string(trade.Side),
		trade.Quantity, trade.Price, trade.Fees, trade.TradeTime.UTC())
	if err != nil {
		return "", fmt.Errorf("failed to insert trade %s for symbol %s: %w", trade.ID, trade.Symbol, classify(err, ports.ErrQueryFailed))
	}
	r.logger.Debug(ctx, "Trade created", map[string]interface{}{"tradeID": trade.ID, "symbol": trade.Symbol, "userID": userID})
	return trade.ID, nil
}

// ListTrades retrieves all trades of a user in insertion order.
func (r *Repository) ListTrades(ctx context.Context, userID string) ([]domain.Trade, error) {
	const query = `
	SELECT id, symbol, side, quantity, price, fees, trade_time
	FROM trades
	WHERE user_id = ? ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades for user %s: %v: %w", userID, err, ports.ErrQueryFailed)
	}
	defer rows.Close()

	trades := make([]domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade during ListTrades: %v: %w", err, ports.ErrQueryFailed)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %v: %w", err, ports.ErrQueryFailed)
	}
	return trades, nil
}

// --- JournalRepository Implementation ---

// TagTrade creates or replaces the journal tag of one of the user's trades.
func (r *Repository) TagTrade(ctx context.Context, userID string, tag domain.JournalTag) error {
	const exists = `SELECT COUNT(*) FROM trades WHERE user_id = ? AND id = ?`
	const upsert = `
	INSERT INTO journal_tags (user_id, trade_id, strategy, emotion)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (user_id, trade_id) DO UPDATE SET strategy = excluded.strategy, emotion = excluded.emotion`

	var count int
	if err := r.db.QueryRowContext(ctx, exists, userID, tag.TradeID).Scan(&count); err != nil {
		return fmt.Errorf("failed to look up trade %s: %v: %w", tag.TradeID, err, ports.ErrQueryFailed)
	}
	if count == 0 {
		return fmt.Errorf("trade %s of user %s: %w", tag.TradeID, userID, ports.ErrNotFound)
	}

	if _, err := r.db.ExecContext(ctx, upsert, userID, tag.TradeID, tag.Strategy, tag.Emotion); err != nil {
		return fmt.Errorf("failed to tag trade %s: %v: %w", tag.TradeID, err, ports.ErrUpdateFailed)
	}
	r.logger.Debug(ctx, "Trade tagged", map[string]interface{}{"tradeID": tag.TradeID, "strategy": tag.Strategy, "emotion": tag.Emotion})
	return nil
}

// JournalTags returns the user's tags keyed by trade ID.
func (r *Repository) JournalTags(ctx context.Context, userID string) (map[string]domain.JournalTag, error) {
	const query = `SELECT trade_id, strategy, emotion FROM journal_tags WHERE user_id = ?`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal tags for user %s: %v: %w", userID, err, ports.ErrQueryFailed)
	}
	defer rows.Close()

	tags := make(map[string]domain.JournalTag)
	for rows.Next() {
		var tag domain.JournalTag
		if err := rows.Scan(&tag.TradeID, &tag.Strategy, &tag.Emotion); err != nil {
			return nil, fmt.Errorf("failed to scan journal tag: %v: %w", err, ports.ErrQueryFailed)
		}
		tags[tag.TradeID] = tag
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal tag rows: %v: %w", err, ports.ErrQueryFailed)
	}
	return tags, nil
}

// --- FundRepository Implementation ---

// CreateFundLot saves a mutual-fund purchase and returns its ID.
func (r *Repository) CreateFundLot(ctx context.Context, userID string, lot *domain.FundLot) (string, error) {
	const query = `
	INSERT INTO fund_lots (id, user_id, scheme_code, scheme_name, units, nav, fees, investment_date)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	if userID == "" {
		return "", fmt.Errorf("user id is required: %w", ports.ErrInvalidRequest)
	}
	if lot.ID == "" {
		lot.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, query,
		lot.ID, userID, lot.SchemeCode, lot.SchemeName, lot.Units, lot.NAV, lot.Fees, lot.InvestmentDate.UTC())
	if err != nil {
		return "", fmt.Errorf("failed to insert fund lot %s: %w", lot.ID, classify(err, ports.ErrQueryFailed))
	}
	r.logger.Debug(ctx, "Fund lot created", map[string]interface{}{"lotID": lot.ID, "scheme": lot.SchemeCode})
	return lot.ID, nil
}

// ListFundLots retrieves all fund lots of a user ordered by investment date.
func (r *Repository) ListFundLots(ctx context.Context, userID string) ([]domain.FundLot, error) {
	const query = `
	SELECT id, scheme_code, scheme_name, units, nav, fees, investment_date
	FROM fund_lots
	WHERE user_id = ? ORDER BY investment_date, seq`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fund lots for user %s: %v: %w", userID, err, ports.ErrQueryFailed)
	}
	defer rows.Close()

	lots := make([]domain.FundLot, 0)
	for rows.Next() {
		var lot domain.FundLot
		if err := rows.Scan(&lot.ID, &lot.SchemeCode, &lot.SchemeName, &lot.Units, &lot.NAV, &lot.Fees, &lot.InvestmentDate); err != nil {
			return nil, fmt.Errorf("failed to scan fund lot: %v: %w", err, ports.ErrQueryFailed)
		}
		lots = append(lots, lot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fund lot rows: %v: %w", err, ports.ErrQueryFailed)
	}
	return lots, nil
}

// --- Helpers ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanTrade scans a row into a domain.Trade struct.
func scanTrade(s scanner) (domain.Trade, error) {
	var t domain.Trade
	var side string
	err := s.Scan(&t.ID, &t.Symbol, &side, &t.Quantity, &t.Price, &t.Fees, &t.TradeTime)
	if err != nil {
		return domain.Trade{}, err // Handle sql.ErrNoRows in the caller
	}
	t.Side = domain.Side(side)
	return t, nil
}

// classify maps driver errors onto the ports sentinels.
func classify(err error, fallback error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%v: %w", err, ports.ErrDuplicateEntry)
		}
	}
	return fmt.Errorf("%v: %w", err, fallback)
}
