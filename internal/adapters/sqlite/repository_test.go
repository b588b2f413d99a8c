package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pnlEngine/internal/domain"
	"pnlEngine/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "pnl-engine-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := NewRepository(Config{
		DBPath: dbPath,
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, cleanup
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNewRepository_RequiresLogger(t *testing.T) {
	_, err := NewRepository(Config{DBPath: filepath.Join(t.TempDir(), "x.db")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestRepository_CreateAndListTrades(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	inputs := []domain.Trade{
		{ID: "t1", Symbol: " aapl ", Side: domain.Buy, Quantity: dec("10"), Price: dec("100.125"), Fees: dec("1.5"), TradeTime: base},
		{Symbol: "AAPL", Side: domain.Sell, Quantity: dec("4"), Price: dec("110"), Fees: decimal.Zero, TradeTime: base.Add(time.Hour)},
		{ID: "t3", Symbol: "MSFT", Side: domain.Sell, Quantity: dec("0.000001"), Price: dec("300"), Fees: dec("0.01"), TradeTime: base.Add(-time.Hour)},
	}

	var ids []string
	for i := range inputs {
		id, err := repo.CreateTrade(ctx, "alice", &inputs[i])
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		ids = append(ids, id)
	}
	assert.Equal(t, "t1", ids[0])
	assert.Equal(t, "t3", ids[2])
	assert.Equal(t, "AAPL", inputs[0].Symbol)

	trades, err := repo.ListTrades(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, trades, 3)

	// Insertion order, not trade time.
	for i, tr := range trades {
		assert.Equal(t, ids[i], tr.ID)
		assert.Equal(t, inputs[i].Symbol, tr.Symbol)
		assert.Equal(t, inputs[i].Side, tr.Side)
		assert.True(t, inputs[i].Quantity.Equal(tr.Quantity), "quantity %s", tr.Quantity)
		assert.True(t, inputs[i].Price.Equal(tr.Price), "price %s", tr.Price)
		assert.True(t, inputs[i].Fees.Equal(tr.Fees), "fees %s", tr.Fees)
		assert.True(t, inputs[i].TradeTime.Equal(tr.TradeTime), "time %s", tr.TradeTime)
	}

	other, err := repo.ListTrades(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, other)
	assert.NotNil(t, other)
}

func TestRepository_CreateTradeErrors(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	trade := domain.Trade{ID: "dup", Symbol: "AAPL", Side: domain.Buy, Quantity: dec("1"), Price: dec("1"), TradeTime: time.Now()}
	_, err := repo.CreateTrade(ctx, "alice", &trade)
	require.NoError(t, err)

	tests := []struct {
		name    string
		userID  string
		trade   domain.Trade
		wantErr error
	}{
		{name: "duplicate id", userID: "alice", trade: trade, wantErr: ports.ErrDuplicateEntry},
		{name: "missing user", userID: "", trade: domain.Trade{Symbol: "AAPL"}, wantErr: ports.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.CreateTrade(ctx, tt.userID, &tt.trade)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRepository_IDsScopedPerUser(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for _, user := range []string{"alice", "bob"} {
		trade := domain.Trade{ID: "t1", Symbol: "AAPL", Side: domain.Buy, Quantity: dec("1"), Price: dec("10"), TradeTime: time.Now()}
		id, err := repo.CreateTrade(ctx, user, &trade)
		require.NoError(t, err, user)
		assert.Equal(t, "t1", id)

		lot := domain.FundLot{ID: "lot-a", SchemeCode: "120503", Units: dec("1"), NAV: dec("10"), InvestmentDate: time.Now()}
		_, err = repo.CreateFundLot(ctx, user, &lot)
		require.NoError(t, err, user)
	}

	require.NoError(t, repo.TagTrade(ctx, "alice", domain.JournalTag{TradeID: "t1", Strategy: "breakout"}))
	require.NoError(t, repo.TagTrade(ctx, "bob", domain.JournalTag{TradeID: "t1", Strategy: "scalp"}))

	for user, want := range map[string]string{"alice": "breakout", "bob": "scalp"} {
		trades, err := repo.ListTrades(ctx, user)
		require.NoError(t, err)
		require.Len(t, trades, 1)

		tags, err := repo.JournalTags(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, want, tags["t1"].Strategy, user)
	}
}

func TestRepository_JournalTags(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	trade := domain.Trade{ID: "exit-1", Symbol: "AAPL", Side: domain.Sell, Quantity: dec("1"), Price: dec("1"), TradeTime: time.Now()}
	_, err := repo.CreateTrade(ctx, "alice", &trade)
	require.NoError(t, err)

	require.NoError(t, repo.TagTrade(ctx, "alice", domain.JournalTag{TradeID: "exit-1", Strategy: "breakout", Emotion: "calm"}))
	// Upsert replaces the previous labels.
	require.NoError(t, repo.TagTrade(ctx, "alice", domain.JournalTag{TradeID: "exit-1", Strategy: "reversal"}))

	tags, err := repo.JournalTags(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, domain.JournalTag{TradeID: "exit-1", Strategy: "reversal"}, tags["exit-1"])

	err = repo.TagTrade(ctx, "alice", domain.JournalTag{TradeID: "missing", Strategy: "x"})
	assert.ErrorIs(t, err, ports.ErrNotFound)

	// Tags are scoped to the trade's owner.
	err = repo.TagTrade(ctx, "bob", domain.JournalTag{TradeID: "exit-1", Strategy: "x"})
	assert.ErrorIs(t, err, ports.ErrNotFound)

	empty, err := repo.JournalTags(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRepository_FundLots(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	later := domain.FundLot{SchemeCode: "120503", SchemeName: "Index Fund", Units: dec("12.345"), NAV: dec("81.02"), Fees: dec("0"), InvestmentDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	earlier := domain.FundLot{ID: "lot-a", SchemeCode: "120503", SchemeName: "Index Fund", Units: dec("10"), NAV: dec("75.5"), Fees: dec("2.25"), InvestmentDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)}

	idLater, err := repo.CreateFundLot(ctx, "alice", &later)
	require.NoError(t, err)
	assert.NotEmpty(t, idLater)
	_, err = repo.CreateFundLot(ctx, "alice", &earlier)
	require.NoError(t, err)

	lots, err := repo.ListFundLots(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, "lot-a", lots[0].ID)
	assert.Equal(t, idLater, lots[1].ID)
	assert.True(t, dec("12.345").Equal(lots[1].Units))
	assert.True(t, dec("2.25").Equal(lots[0].Fees))
	assert.True(t, earlier.InvestmentDate.Equal(lots[0].InvestmentDate))

	_, err = repo.CreateFundLot(ctx, "alice", &earlier)
	assert.ErrorIs(t, err, ports.ErrDuplicateEntry)
}
