package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"pnlEngine/config"
	"pnlEngine/internal/adapters/logger"
	"pnlEngine/internal/adapters/sqlite"
	"pnlEngine/internal/app"
	"pnlEngine/internal/domain"
	"pnlEngine/internal/ports"
	"pnlEngine/internal/utils"
)

func main() {
	user := flag.String("user", "", "User the records belong to")
	tradesPath := flag.String("trades", "", "Trades CSV file to import")
	fundsPath := flag.String("funds", "", "Fund lots CSV file to import (scheme_code,scheme_name,units,nav,fees,investment_date)")
	flag.Parse()

	if *user == "" || (*tradesPath == "" && *fundsPath == "") {
		log.Fatalf("-user and at least one of -trades or -funds are required")
	}

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := logger.New(cfg.LogLevel, cfg.LogFormat)
	ctx := logger.WithRequestID(context.Background(), "import-"+*user)

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer repo.Close()

	svc, err := app.NewReportService(cfg, appLogger, repo, repo, repo, nil)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize report service: %v", err)
	}

	if *tradesPath != "" {
		trades, err := utils.ReadTradesFromCSV(*tradesPath)
		if err != nil {
			log.Fatalf("Error reading trades from %s: %v", *tradesPath, err)
		}
		imported, rejected := 0, 0
		for i := range trades {
			if _, err := svc.RecordTrade(ctx, *user, &trades[i]); err != nil {
				rejected++
				logRejected(ctx, appLogger, "trade", trades[i].ID, err)
				continue
			}
			imported++
		}
		fmt.Printf("Trades: %d imported, %d rejected\n", imported, rejected)
	}

	if *fundsPath != "" {
		lots, err := utils.ReadFundLotsFromCSV(*fundsPath)
		if err != nil {
			log.Fatalf("Error reading fund lots from %s: %v", *fundsPath, err)
		}
		imported, rejected := 0, 0
		for i := range lots {
			if _, err := svc.RecordFundLot(ctx, *user, &lots[i]); err != nil {
				rejected++
				logRejected(ctx, appLogger, "fund lot", lots[i].ID, err)
				continue
			}
			imported++
		}
		fmt.Printf("Fund lots: %d imported, %d rejected\n", imported, rejected)
	}
}

// logRejected logs a record that could not be stored; anything other than a
// validation failure or a duplicate is fatal.
func logRejected(ctx context.Context, l ports.Logger, kind, id string, err error) {
	if !errors.Is(err, domain.ErrValidation) && !errors.Is(err, ports.ErrDuplicateEntry) {
		log.Fatalf("Error storing %s %s: %v", kind, id, err)
	}
	l.Warn(ctx, "Rejected "+kind, map[string]interface{}{"id": id, "error": err.Error()})
}
