package binanceclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pnlEngine/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

const premiumIndexBody = `[
	{"symbol":"BTCUSDT","markPrice":"65000.50","indexPrice":"65001.00","lastFundingRate":"0.0001","nextFundingTime":0,"time":0},
	{"symbol":"ETHUSDT","markPrice":"3200.10","indexPrice":"3200.00","lastFundingRate":"0.0001","nextFundingTime":0,"time":0},
	{"symbol":"DOGEUSDT","markPrice":"0","indexPrice":"0","lastFundingRate":"0","nextFundingTime":0,"time":0}
]`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, Logger: &mockLogger{}})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresLogger(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestClient_MarkPrices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/premiumIndex", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(premiumIndexBody))
	})

	prices, err := c.MarkPrices(context.Background(), []string{"btcusdt", "DOGEUSDT", "SOLUSDT"})
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.True(t, decimal.RequireFromString("65000.50").Equal(prices["BTCUSDT"]))
	_, ok := prices["DOGEUSDT"]
	assert.False(t, ok, "non-positive marks are dropped")
}

func TestClient_MarkPricesEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	})
	prices, err := c.MarkPrices(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestClient_GetMarkPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"symbol":"ETHUSDT","markPrice":"3200.10"}]`))
	})

	price, err := c.GetMarkPrice(context.Background(), " ethusdt ")
	require.NoError(t, err)
	assert.Equal(t, "3200.1", price.String())
}

func TestClient_MarkPricesSingleSymbol(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   map[string]string
	}{
		{
			name:   "listed",
			status: http.StatusOK,
			body:   `[{"symbol":"ETHUSDT","markPrice":"3200.10"}]`,
			want:   map[string]string{"ETHUSDT": "3200.1"},
		},
		{
			name:   "unknown symbol is omitted",
			status: http.StatusBadRequest,
			body:   `{"code":-1121,"msg":"Invalid symbol."}`,
			want:   map[string]string{},
		},
		{
			name:   "zero mark is omitted",
			status: http.StatusOK,
			body:   `[{"symbol":"ETHUSDT","markPrice":"0"}]`,
			want:   map[string]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/fapi/v1/premiumIndex", r.URL.Path)
				assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			prices, err := c.MarkPrices(context.Background(), []string{"ethusdt"})
			require.NoError(t, err)
			got := make(map[string]string, len(prices))
			for sym, p := range prices {
				got[sym] = p.String()
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_GetTickerPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/ticker/24hr", r.URL.Path)
		assert.Equal(t, "SOLUSDT", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"symbol":"SOLUSDT","lastPrice":"142.35","priceChange":"1.2"}]`))
	})

	price, err := c.GetTickerPrice(context.Background(), "solusdt")
	require.NoError(t, err)
	assert.Equal(t, "142.35", price.String())
}

func TestClient_APIErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		wantErr error
	}{
		{name: "invalid symbol", status: http.StatusBadRequest, body: `{"code":-1121,"msg":"Invalid symbol."}`, wantErr: ports.ErrUnknownSymbol},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"code":-1003,"msg":"Too many requests."}`, wantErr: ports.ErrRateLimited},
		{name: "bad key", status: http.StatusUnauthorized, body: `{"code":-2015,"msg":"Invalid API-key."}`, wantErr: ports.ErrAuthenticationFailed},
		{name: "other", status: http.StatusInternalServerError, body: `{"code":-1000,"msg":"Unknown."}`, wantErr: ports.ErrMarketDataUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.GetMarkPrice(context.Background(), "NOPE")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(premiumIndexBody))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.MarkPrices(ctx, []string{"BTCUSDT"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrContextCanceled)
}
