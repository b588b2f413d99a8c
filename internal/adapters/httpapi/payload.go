package httpapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pnlEngine/internal/app"
	"pnlEngine/internal/domain"
	"pnlEngine/internal/pnl/tax"
)

type tradePayload struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Side      string          `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Fees      decimal.Decimal `json:"fees"`
	TradeTime time.Time       `json:"trade_time"`
}

// toDomain keeps an unknown side as-is so the matcher reports the trade as
// skipped instead of failing the whole request.
func (p tradePayload) toDomain() domain.Trade {
	side, err := domain.ParseSide(p.Side)
	if err != nil {
		side = domain.Side(p.Side)
	}
	return domain.Trade{
		ID:        p.ID,
		Symbol:    p.Symbol,
		Side:      side,
		Quantity:  p.Quantity,
		Price:     p.Price,
		Fees:      p.Fees,
		TradeTime: p.TradeTime,
	}
}

func tradesToDomain(payloads []tradePayload) []domain.Trade {
	out := make([]domain.Trade, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, p.toDomain())
	}
	return out
}

type reportRequest struct {
	Trades []tradePayload             `json:"trades"`
	Marks  map[string]decimal.Decimal `json:"marks"`
	Strict *bool                      `json:"strict"`
	Tags   []domain.JournalTag        `json:"tags"`
}

func (r reportRequest) valuation() app.Valuation {
	return app.Valuation{Marks: r.Marks, Strict: r.Strict}
}

func (r reportRequest) tagsByTrade() map[string]domain.JournalTag {
	out := make(map[string]domain.JournalTag, len(r.Tags))
	for _, t := range r.Tags {
		out[t.TradeID] = t
	}
	return out
}

type taxRequest struct {
	Trades        []tradePayload `json:"trades"`
	TaxYear       int            `json:"tax_year"`
	ShortTermRate *float64       `json:"short_term_rate"`
	LongTermRate  *float64       `json:"long_term_rate"`
	LongTermDays  *int           `json:"long_term_days"`
}

// apply overrides the configured policy with the fields present in the request.
func (r taxRequest) apply(p tax.Params) tax.Params {
	if r.ShortTermRate != nil {
		p.ShortTermRate = *r.ShortTermRate
	}
	if r.LongTermRate != nil {
		p.LongTermRate = *r.LongTermRate
	}
	if r.LongTermDays != nil {
		p.HoldingPeriodThresholdDays = *r.LongTermDays
	}
	return p
}

type compareRequest struct {
	Trades  []tradePayload `json:"trades"`
	Period1 app.Period     `json:"period1"`
	Period2 app.Period     `json:"period2"`
}

type fundLotPayload struct {
	ID             string          `json:"id"`
	SchemeCode     string          `json:"scheme_code"`
	SchemeName     string          `json:"scheme_name"`
	Units          decimal.Decimal `json:"units"`
	NAV            decimal.Decimal `json:"nav"`
	Fees           decimal.Decimal `json:"fees"`
	InvestmentDate time.Time       `json:"investment_date"`
}

func (p fundLotPayload) toDomain() domain.FundLot {
	return domain.FundLot{
		ID:             p.ID,
		SchemeCode:     strings.TrimSpace(p.SchemeCode),
		SchemeName:     p.SchemeName,
		Units:          p.Units,
		NAV:            p.NAV,
		Fees:           p.Fees,
		InvestmentDate: p.InvestmentDate,
	}
}

type fundRequest struct {
	Lots []fundLotPayload           `json:"lots"`
	NAVs map[string]decimal.Decimal `json:"navs"`
	AsOf time.Time                  `json:"as_of"`
}

func (r fundRequest) lots() []domain.FundLot {
	out := make([]domain.FundLot, 0, len(r.Lots))
	for _, p := range r.Lots {
		out = append(out, p.toDomain())
	}
	return out
}

// parsePrices reads repeated "KEY:price" query values such as mark=AAPL:190.5.
func parsePrices(values []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(values))
	for _, v := range values {
		key, raw, ok := strings.Cut(v, ":")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("price %q must look like KEY:price", v)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("price %q: %w", v, err)
		}
		out[strings.TrimSpace(key)] = price
	}
	return out, nil
}
