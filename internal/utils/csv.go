package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pnlEngine/internal/domain"
	"pnlEngine/internal/ports"
)

// Accepted trade_time layouts, tried in order.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

var tradeColumns = []string{"id", "symbol", "side", "quantity", "price", "fees", "trade_time"}

// ReadTradesFromCSV reads a trades file; see ReadTradesCSV.
func ReadTradesFromCSV(filename string) ([]domain.Trade, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadTradesCSV(file)
}

// ReadTradesCSV parses trades from CSV with a header row. The symbol, side,
// quantity, price and trade_time columns are required; id and fees are
// optional and columns may come in any order. Zone-less times are read as UTC.
// Values are not validated beyond parsing; the matcher skips invalid trades.
func ReadTradesCSV(r io.Reader) ([]domain.Trade, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []domain.Trade{}, nil
		}
		return nil, fmt.Errorf("read header: %v: %w", err, ports.ErrInvalidRequest)
	}
	cols := indexColumns(header)
	for _, required := range []string{"symbol", "side", "quantity", "price", "trade_time"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q: %w", required, ports.ErrInvalidRequest)
		}
	}

	trades := make([]domain.Trade, 0)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %v: %w", line, err, ports.ErrInvalidRequest)
		}
		get := func(name string) string {
			if i, ok := cols[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		t := domain.Trade{ID: get("id"), Symbol: get("symbol")}
		if t.Side, err = domain.ParseSide(get("side")); err != nil {
			t.Side = domain.Side(get("side"))
		}
		if t.Quantity, err = parseDecimal(get("quantity")); err != nil {
			return nil, fmt.Errorf("line %d: quantity: %w", line, err)
		}
		if t.Price, err = parseDecimal(get("price")); err != nil {
			return nil, fmt.Errorf("line %d: price: %w", line, err)
		}
		if t.Fees, err = parseDecimal(get("fees")); err != nil {
			return nil, fmt.Errorf("line %d: fees: %w", line, err)
		}
		if t.TradeTime, err = parseTime(get("trade_time")); err != nil {
			return nil, fmt.Errorf("line %d: trade_time: %w", line, err)
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// ReadPricesCSV reads "key,price" rows (a header row is optional) into a map.
// It serves mark prices keyed by symbol and NAVs keyed by scheme code.
func ReadPricesCSV(r io.Reader) (map[string]decimal.Decimal, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = 2

	prices := make(map[string]decimal.Decimal)
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %v: %w", line, err, ports.ErrInvalidRequest)
		}
		key, raw := strings.TrimSpace(record[0]), strings.TrimSpace(record[1])
		price, err := decimal.NewFromString(raw)
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: price %q: %w", line, raw, ports.ErrInvalidRequest)
		}
		prices[key] = price
	}
	return prices, nil
}

// ReadPricesFromCSV reads a prices file; see ReadPricesCSV.
func ReadPricesFromCSV(filename string) (map[string]decimal.Decimal, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadPricesCSV(file)
}

// ReadFundLotsFromCSV reads fund purchases from CSV with a header row. The
// scheme_code, units, nav and investment_date columns are required; id,
// scheme_name and fees are optional.
func ReadFundLotsFromCSV(filename string) ([]domain.FundLot, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []domain.FundLot{}, nil
		}
		return nil, fmt.Errorf("read header: %v: %w", err, ports.ErrInvalidRequest)
	}
	cols := indexColumns(header)
	for _, required := range []string{"scheme_code", "units", "nav", "investment_date"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q: %w", required, ports.ErrInvalidRequest)
		}
	}

	lots := make([]domain.FundLot, 0)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %v: %w", line, err, ports.ErrInvalidRequest)
		}
		get := func(name string) string {
			if i, ok := cols[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		lot := domain.FundLot{ID: get("id"), SchemeCode: get("scheme_code"), SchemeName: get("scheme_name")}
		if lot.Units, err = parseDecimal(get("units")); err != nil {
			return nil, fmt.Errorf("line %d: units: %w", line, err)
		}
		if lot.NAV, err = parseDecimal(get("nav")); err != nil {
			return nil, fmt.Errorf("line %d: nav: %w", line, err)
		}
		if lot.Fees, err = parseDecimal(get("fees")); err != nil {
			return nil, fmt.Errorf("line %d: fees: %w", line, err)
		}
		if lot.InvestmentDate, err = parseTime(get("investment_date")); err != nil {
			return nil, fmt.Errorf("line %d: investment_date: %w", line, err)
		}
		lots = append(lots, lot)
	}
	return lots, nil
}

// WritePricesCSV writes "symbol,price" rows sorted by key.
func WritePricesCSV(w io.Writer, prices map[string]decimal.Decimal) error {
	keys := make([]string, 0, len(prices))
	for k := range prices {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	writer := csv.NewWriter(w)
	writer.Write([]string{"symbol", "price"})
	for _, k := range keys {
		writer.Write([]string{k, prices[k].String()})
	}
	writer.Flush()
	return writer.Error()
}

// WriteTradesCSV writes trades in the layout ReadTradesCSV accepts.
func WriteTradesCSV(w io.Writer, trades []domain.Trade) error {
	writer := csv.NewWriter(w)
	writer.Write(tradeColumns)
	for _, t := range trades {
		writer.Write([]string{
			t.ID,
			t.Symbol,
			string(t.Side),
			t.Quantity.String(),
			t.Price.String(),
			t.Fees.String(),
			t.TradeTime.Format(time.RFC3339Nano),
		})
	}
	writer.Flush()
	return writer.Error()
}

// WriteMatchesCSV writes one row per realized match.
func WriteMatchesCSV(w io.Writer, matches []domain.RealizedMatch) error {
	writer := csv.NewWriter(w)

	// Write header
	writer.Write([]string{"symbol", "side_closed", "quantity", "entry_price", "exit_price", "entry_time", "exit_time",
		"entry_trade_id", "exit_trade_id", "fees_allocated", "pnl", "holding_period_days"})

	for _, m := range matches {
		writer.Write([]string{
			m.Symbol,
			m.Direction.String(),
			m.Quantity.String(),
			m.EntryPrice.String(),
			m.ExitPrice.String(),
			m.EntryTime.Format(time.RFC3339),
			m.ExitTime.Format(time.RFC3339),
			m.EntryTradeID,
			m.ExitTradeID,
			m.FeesAllocated.String(),
			m.PnL.String(),
			strconv.FormatFloat(m.HoldingPeriodDays, 'f', 4, 64),
		})
	}
	writer.Flush()
	return writer.Error()
}

// WriteMatchesToCSV writes realized matches to a new file.
func WriteMatchesToCSV(matches []domain.RealizedMatch, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteMatchesCSV(file, matches)
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not a number: %w", s, ports.ErrInvalidRequest)
	}
	return d, nil
}

// parseTime leaves an empty value as the zero time.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a supported time: %w", s, ports.ErrInvalidRequest)
}
