package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"pnlEngine/config"
	"pnlEngine/internal/adapters/binanceclient"
	"pnlEngine/internal/adapters/logger"
	"pnlEngine/internal/domain"
	"pnlEngine/internal/pnl/matching"
	"pnlEngine/internal/utils"
)

func main() {
	symbolsFlag := flag.String("symbols", "", "Comma-separated symbols, e.g. BTCUSDT,ETHUSDT")
	tradesPath := flag.String("trades", "", "Fetch marks for the open symbols of this trades CSV")
	outPath := flag.String("out", "data/marks.csv", "Output CSV file (symbol,price)")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.New(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	var symbols []string
	for _, s := range strings.Split(*symbolsFlag, ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	if *tradesPath != "" {
		trades, err := utils.ReadTradesFromCSV(*tradesPath)
		if err != nil {
			log.Fatalf("Error reading trades from %s: %v", *tradesPath, err)
		}
		res := matching.Match(trades, matching.Options{Workers: cfg.MatchWorkers})
		for _, sym := range res.Symbols() {
			if !res.NetQuantity(sym).IsZero() {
				symbols = append(symbols, sym)
			}
		}
	}
	if len(symbols) == 0 {
		log.Fatalf("no symbols to fetch; pass -symbols or -trades")
	}

	// 3. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	fmt.Printf("Fetching mark prices for %s...\n", strings.Join(symbols, ", "))
	prices, err := binanceClient.MarkPrices(ctx, symbols)
	if err != nil {
		log.Fatalf("Error fetching mark prices: %v", err)
	}
	// Fall back to the last traded price for symbols without a mark.
	var missing []string
	for _, sym := range symbols {
		sym = domain.NormalizeSymbol(sym)
		if _, ok := prices[sym]; ok {
			continue
		}
		price, err := binanceClient.GetTickerPrice(ctx, sym)
		if err != nil || !price.IsPositive() {
			missing = append(missing, sym)
			continue
		}
		prices[sym] = price
	}
	if len(missing) > 0 {
		appLogger.Warn(ctx, "Some symbols have no price", map[string]interface{}{"symbols": missing})
	}

	file, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("Error creating %s: %v", *outPath, err)
	}
	defer file.Close()
	if err := utils.WritePricesCSV(file, prices); err != nil {
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(ctx, "Saved to", map[string]interface{}{"filename": *outPath, "count": len(prices)})
}
