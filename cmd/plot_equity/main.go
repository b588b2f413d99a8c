package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"pnlEngine/config"
	"pnlEngine/internal/adapters/chart"
	"pnlEngine/internal/adapters/logger"
	"pnlEngine/internal/adapters/sqlite"
	"pnlEngine/internal/app"
	"pnlEngine/internal/domain"
	"pnlEngine/internal/utils"
)

func main() {
	tradesPath := flag.String("trades", "", "Trades CSV file")
	user := flag.String("user", "", "Plot the user's stored trades instead of a CSV file")
	outPath := flag.String("out", "equity_curve.png", "Output image (png, svg or pdf by extension)")
	flag.Parse()

	if (*tradesPath == "") == (*user == "") {
		log.Fatalf("exactly one of -trades or -user is required")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.New(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	var trades []domain.Trade
	title := "Realized Equity Curve"
	if *user != "" {
		repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
		if err != nil {
			log.Fatalf("Error opening database: %v", err)
		}
		defer repo.Close()
		if trades, err = repo.ListTrades(ctx, *user); err != nil {
			log.Fatalf("Error loading trades of %s: %v", *user, err)
		}
		title = fmt.Sprintf("Realized Equity Curve: %s", *user)
	} else if trades, err = utils.ReadTradesFromCSV(*tradesPath); err != nil {
		log.Fatalf("Error reading trades from %s: %v", *tradesPath, err)
	}

	svc, err := app.NewReportService(cfg, appLogger, nil, nil, nil, nil)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize report service: %v", err)
	}
	perf, err := svc.Performance(ctx, trades, nil)
	if err != nil {
		log.Fatalf("Error computing performance: %v", err)
	}

	if err := chart.SaveEquityPNG(perf.Series.EquityCurve, title, cfg.Currency, *outPath); err != nil {
		log.Fatalf("Error saving chart: %v", err)
	}
	fmt.Printf("Saved %d-day equity curve to %s\n", len(perf.Series.EquityCurve), *outPath)
}
